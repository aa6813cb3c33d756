package tavernkit

// runInjectionStage maps registered injections to Blocks per the placement
// table in §4.F. `none`-position injections never produce a block (they
// only ever contribute to the lore scan buffer, already consumed in stage C).
func runInjectionStage(ctx *BuildContext) {
	var blocks []Block
	for _, inj := range ctx.Injections.Snapshot() {
		if inj.Filter != nil && !inj.Filter(ctx) {
			continue
		}
		point, ok := injectionInsertionPoint(inj.Position)
		if !ok {
			continue
		}
		blocks = append(blocks, Block{
			ID:             newBlockID(),
			Role:           nonEmptyRole(inj.Role),
			Content:        inj.Content,
			Slot:           "injection:" + inj.ID,
			Enabled:        true,
			InsertionPoint: point,
			Depth:          inj.Depth,
			TokenGroup:     GroupCustom,
		})
	}
	ctx.injBlocks = blocks
}

func injectionInsertionPoint(pos InjectionPosition) (InsertionPoint, bool) {
	switch pos {
	case InjectBefore:
		return InsertBeforePromptInjections, true
	case InjectAfter:
		return InsertInPromptInjections, true
	case InjectChat:
		return InsertInChat, true
	default: // InjectNone
		return "", false
	}
}
