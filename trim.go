package tavernkit

// trimPlan evicts blocks to satisfy preset.max_input_tokens, in the fixed
// order: examples → lore → history (§4.I). Hard-reserved groups (system,
// PHI, author's note) are never evicted; history retains its most recent
// user message.
func trimPlan(ctx *BuildContext, plan *Plan) {
	budget := ctx.Preset.MaxInputTokens()
	if budget <= 0 {
		return
	}

	overhead := ctx.Preset.MessageTokenOverhead
	total, _ := estimateBlocks(ctx.Estimator, plan.Blocks, overhead)
	if total <= budget {
		return
	}

	switch ctx.Preset.ExamplesBehavior {
	case ExamplesDisabled:
		plan.Blocks = evictAll(ctx, plan, func(b Block) bool { return b.TokenGroup == GroupExamples }, "examples_disabled")
		total, _ = estimateBlocks(ctx.Estimator, plan.Blocks, overhead)
	case ExamplesAlwaysKeep:
		// step 1 disabled entirely
	default:
		plan.Blocks, total = evictUntilBudget(ctx, plan.Blocks, overhead, budget, func(b Block) bool {
			return b.TokenGroup == GroupExamples
		}, "examples_budget", false)
	}

	if total > budget {
		plan.Blocks, total = evictUntilBudget(ctx, plan.Blocks, overhead, budget, func(b Block) bool {
			return b.TokenGroup == GroupLore && !isHardReserved(b) && !b.IgnoreBudget
		}, "lore_budget", true)
	}

	if total > budget {
		plan.Blocks, total = evictUntilBudget(ctx, plan.Blocks, overhead, budget, func(b Block) bool {
			return b.TokenGroup == GroupHistory && !isHardReserved(b)
		}, "history_budget", false)
	}
	if total > budget {
		ctx.warn("budget still exceeded after trimming: %d > %d tokens", total, budget)
	}
}

func isHardReserved(b Block) bool {
	if b.TokenGroup == GroupSystem {
		return true
	}
	if b.Slot == PinnedPostHistoryInstructions || b.Slot == PinnedAuthorsNote {
		return true
	}
	return false
}

func lastVisibleUserIndex(blocks []Block) int {
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].TokenGroup == GroupHistory && blocks[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

func evictAll(ctx *BuildContext, plan *Plan, match func(Block) bool, reason string) []Block {
	out := make([]Block, 0, len(plan.Blocks))
	for _, b := range plan.Blocks {
		if match(b) {
			reportEvict(ctx, b, reason)
			continue
		}
		out = append(out, b)
	}
	return out
}

// evictUntilBudget evicts matching blocks, earliest-first unless
// lorePriorityOrder is set (ascending priority then insertion order, per
// §4.I step 2), stopping once the running total fits budget. The most
// recent visible user history message is never evicted.
func evictUntilBudget(ctx *BuildContext, blocks []Block, overhead, budget int, match func(Block) bool, reason string, lorePriorityOrder bool) ([]Block, int) {
	total, _ := estimateBlocks(ctx.Estimator, blocks, overhead)
	if total <= budget {
		return blocks, total
	}
	lastUserIdx := lastVisibleUserIndex(blocks)

	candidateIdx := make([]int, 0, len(blocks))
	for i, b := range blocks {
		if i == lastUserIdx {
			continue
		}
		if match(b) {
			candidateIdx = append(candidateIdx, i)
		}
	}
	if lorePriorityOrder {
		sortByPriority(blocks, candidateIdx)
	}

	evicted := make(map[int]bool, len(candidateIdx))
	for _, idx := range candidateIdx {
		if total <= budget {
			break
		}
		b := blocks[idx]
		n, _ := ctx.Estimator.Estimate(b.Content)
		reportEvict(ctx, b, reason)
		total -= int(n) + overhead
		evicted[idx] = true
	}

	out := make([]Block, 0, len(blocks)-len(evicted))
	for i, b := range blocks {
		if evicted[i] {
			continue
		}
		out = append(out, b)
	}
	return out, total
}

func sortByPriority(blocks []Block, idx []int) {
	for i := 1; i < len(idx); i++ {
		j := i
		for j > 0 && blocks[idx[j]].Priority < blocks[idx[j-1]].Priority {
			idx[j], idx[j-1] = idx[j-1], idx[j]
			j--
		}
	}
}

func reportEvict(ctx *BuildContext, b Block, reason string) {
	n, _ := ctx.Estimator.Estimate(b.Content)
	ctx.trimReport = append(ctx.trimReport, TrimReportEntry{
		BlockID: b.ID, Slot: b.Slot, Group: b.TokenGroup, Reason: reason, Tokens: int(n),
	})
}
