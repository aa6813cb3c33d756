package tavernkit

// assemblePlan replaces the chat_history sentinel with history messages,
// interleaves in-chat blocks by depth, applies generation-type variations,
// and resolves the greeting (§4.H).
func assemblePlan(ctx *BuildContext, compiled []Block) (*Plan, error) {
	sentinelIdx := -1
	for i, b := range compiled {
		if b.Slot == PinnedChatHistory {
			sentinelIdx = i
			break
		}
	}

	historySeq := buildHistorySequence(ctx)

	finalBlocks := make([]Block, 0, len(compiled)+len(historySeq)+len(ctx.inChatBlocks))
	if sentinelIdx >= 0 {
		finalBlocks = append(finalBlocks, compiled[:sentinelIdx]...)
	} else {
		finalBlocks = append(finalBlocks, compiled...)
	}
	finalBlocks = append(finalBlocks, interleaveInChat(ctx, historySeq)...)
	if sentinelIdx >= 0 {
		finalBlocks = append(finalBlocks, compiled[sentinelIdx+1:]...)
	}

	plan := &Plan{Blocks: finalBlocks}
	resolveGreeting(ctx, plan)
	return plan, nil
}

// buildHistorySequence produces the tail-adjusted history Blocks per
// generation_type (§4.H generation variations).
func buildHistorySequence(ctx *BuildContext) []Block {
	var seq []Block
	for _, m := range ctx.History.Messages() {
		if !m.Visible {
			continue
		}
		seq = append(seq, Block{
			ID: newBlockID(), Role: m.Role, Content: m.ActiveContent(), Name: m.Name,
			Enabled: true, InsertionPoint: InsertChatHistory, TokenGroup: GroupHistory,
		})
	}

	switch ctx.genType() {
	case GenContinue:
		if ctx.Preset.ContinuePrefill && len(seq) > 0 {
			last := &seq[len(seq)-1]
			if last.Metadata == nil {
				last.Metadata = map[string]any{}
			}
			last.Metadata["continue_prefill"] = true
			if ctx.Preset.ContinuePostfix != "" {
				last.Content += ctx.Preset.ContinuePostfix
			}
		} else if ctx.Preset.ContinueNudgePrompt != "" {
			seq = append(seq, Block{
				ID: newBlockID(), Role: RoleSystem, Content: ctx.Preset.ContinueNudgePrompt,
				Enabled: true, InsertionPoint: InsertChatHistory, TokenGroup: GroupHistory,
			})
		}
	case GenImpersonate:
		if ctx.UserMessage != "" {
			seq = append(seq, Block{
				ID: newBlockID(), Role: RoleUser, Content: ctx.UserMessage, Name: ctx.User.Name,
				Enabled: true, InsertionPoint: InsertChatHistory, TokenGroup: GroupHistory,
			})
		}
		if ctx.Preset.ImpersonationPrompt != "" {
			seq = append(seq, Block{
				ID: newBlockID(), Role: RoleSystem, Content: ctx.Preset.ImpersonationPrompt,
				Enabled: true, InsertionPoint: InsertChatHistory, TokenGroup: GroupHistory,
			})
		}
	default: // normal, regenerate, swipe, quiet
		content := ctx.UserMessage
		if content == "" && ctx.Preset.ReplaceEmptyMessage != "" {
			content = ctx.Preset.ReplaceEmptyMessage
		}
		if content != "" {
			seq = append(seq, Block{
				ID: newBlockID(), Role: RoleUser, Content: content, Name: ctx.User.Name,
				Enabled: true, InsertionPoint: InsertChatHistory, TokenGroup: GroupHistory,
			})
		}
	}
	return seq
}

// interleaveInChat splices ctx.inChatBlocks into historySeq by depth.
// Depth 0 = after the last history message; depth k = before the k-th
// most recent message; depth is clamped to [0, len(historySeq)] (§4.H).
func interleaveInChat(ctx *BuildContext, historySeq []Block) []Block {
	if len(ctx.inChatBlocks) == 0 {
		return historySeq
	}
	n := len(historySeq)
	bySlot := map[int][]Block{}
	for _, b := range ctx.inChatBlocks {
		depth := b.Depth
		if depth < 0 {
			depth = 0
		}
		if depth > n {
			depth = n
		}
		slot := n - depth
		bySlot[slot] = append(bySlot[slot], b)
	}

	out := make([]Block, 0, n+len(ctx.inChatBlocks))
	for i := 0; i <= n; i++ {
		out = append(out, bySlot[i]...)
		if i < n {
			out = append(out, historySeq[i])
		}
	}
	return out
}

// resolveGreeting fills Plan.Greeting/GreetingIndex from
// BuildOptions.GreetingIndex (§4.H Greeting). index -1 selects
// first_message; index >= 0 selects alternate_greetings[index].
func resolveGreeting(ctx *BuildContext, plan *Plan) {
	idx := ctx.Options.GreetingIndex
	if idx == nil {
		return
	}
	if *idx < 0 {
		plan.Greeting = ctx.Character.FirstMessage
	} else if *idx < len(ctx.Character.AlternateGreetings) {
		plan.Greeting = ctx.Character.AlternateGreetings[*idx]
	} else {
		ctx.warn("greeting_index %d out of range", *idx)
		return
	}
	copied := *idx
	plan.GreetingIndex = &copied
}
