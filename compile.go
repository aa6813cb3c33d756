package tavernkit

import "strings"

// anchoredOrder is the deterministic anchor sequence for relative blocks
// (§4.G). chat_history is represented by PinnedChatHistory's sentinel block
// (InsertChatHistory) and is always present, even if empty, so stage H has
// a guaranteed splice point.
var anchoredOrder = []InsertionPoint{
	InsertBeforePromptInjections,
	InsertMainPrompt,
	InsertBeforeCharDefs,
	InsertPersona,
	InsertDescription,
	InsertPersonality,
	InsertScenario,
	InsertAuxiliary,
	InsertAfterCharDefs,
	InsertBeforeExampleMessages,
	InsertChatExamples,
	InsertAfterExampleMessages,
	InsertAuthorsNote,
	InsertInPromptInjections,
	InsertChatHistory,
	InsertPostHistoryInstructions,
}

var anchorRank = func() map[InsertionPoint]int {
	m := make(map[InsertionPoint]int, len(anchoredOrder))
	for i, p := range anchoredOrder {
		m[p] = i
	}
	return m
}()

// compileBlocks merges stages C/E/F into one linear relative-block
// sequence, resolving anchors; in-chat blocks are merged by (depth, order,
// role) and stashed on ctx for stage H, not interleaved here (§4.G).
func compileBlocks(ctx *BuildContext) []Block {
	all := make([]Block, 0, len(ctx.loreBlocks)+len(ctx.entryBlocks)+len(ctx.injBlocks))
	all = append(all, ctx.loreBlocks...)
	all = append(all, ctx.entryBlocks...)
	all = append(all, ctx.injBlocks...)

	// post_history_instructions is always last regardless of list order,
	// even though entryBlocks already appends it last today — guard the
	// invariant explicitly so future stage reordering can't break it.
	var relative, phi []Block
	for _, b := range all {
		if b.InsertionPoint == InsertInChat {
			continue
		}
		if b.InsertionPoint == InsertPostHistoryInstructions {
			phi = append(phi, b)
			continue
		}
		relative = append(relative, b)
	}

	stableSortByAnchor(relative)
	relative = append(relative, phi...)

	ctx.inChatBlocks = mergeInChat(all)
	return relative
}

func stableSortByAnchor(blocks []Block) {
	// Insertion sort: stable, preserves within-anchor order (insertion_order
	// already baked into Block.Order by the producing stage).
	for i := 1; i < len(blocks); i++ {
		j := i
		for j > 0 && anchorLess(blocks[j], blocks[j-1]) {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
			j--
		}
	}
}

func anchorLess(a, b Block) bool {
	ra, rb := anchorRank[a.InsertionPoint], anchorRank[b.InsertionPoint]
	if ra != rb {
		return ra < rb
	}
	return a.Order < b.Order
}

// mergeInChat collects every InsertInChat block and merges ones sharing
// (depth, order, role) into one, joining content with "\n" and emitting
// roles within a bucket in the fixed order assistant→user→system (§4.G).
func mergeInChat(all []Block) []Block {
	type key struct {
		depth, order int
		role         Role
	}
	buckets := map[key][]Block{}
	var order []key
	for _, b := range all {
		if b.InsertionPoint != InsertInChat {
			continue
		}
		k := key{depth: b.Depth, order: b.Order, role: b.Role}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], b)
	}

	merged := make([]Block, 0, len(order))
	for _, k := range order {
		bs := buckets[k]
		first := bs[0]
		if len(bs) > 1 {
			parts := make([]string, len(bs))
			for i, b := range bs {
				parts[i] = b.Content
			}
			first.Content = strings.Join(parts, "\n")
		}
		merged = append(merged, first)
	}

	// Within a single (depth, order) bucket across roles, emit
	// assistant → user → system.
	roleRank := map[Role]int{RoleAssistant: 0, RoleUser: 1, RoleSystem: 2, RoleTool: 3}
	for i := 1; i < len(merged); i++ {
		j := i
		for j > 0 && sameDepthOrder(merged[j], merged[j-1]) && roleRank[merged[j].Role] < roleRank[merged[j-1].Role] {
			merged[j], merged[j-1] = merged[j-1], merged[j]
			j--
		}
	}
	return merged
}

func sameDepthOrder(a, b Block) bool {
	return a.Depth == b.Depth && a.Order == b.Order
}
