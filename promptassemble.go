package tavernkit

import "strings"

// runPromptEntryStage expands preset.prompt_entries into Blocks (§4.E).
func runPromptEntryStage(ctx *BuildContext) error {
	var blocks []Block
	var phiContent string
	phiSeen := false

	for _, entry := range ctx.Preset.PromptEntries {
		e := entry
		if !e.Enabled || !e.MatchesTrigger(ctx.genType()) {
			continue
		}
		if !conditionsPass(ctx, e.Conditions) {
			continue
		}

		// Normalization rules (§3 PromptEntry, §4.E step 2).
		if e.ID == PinnedChatHistory || e.ID == PinnedChatExamples {
			e.Position = PositionRelative
		}
		if e.ID == PinnedPostHistoryInstructions {
			phiSeen = true
			phiContent = resolvePinned(ctx, e)
			continue
		}

		if e.Pinned {
			bs, ok := pinnedBlocks(ctx, e)
			if ok {
				blocks = append(blocks, bs...)
				continue
			}
			if e.Content != "" {
				blocks = append(blocks, customBlock(e, e.Content))
				continue
			}
			if ctx.Options.Strict {
				return &StrictModeViolationError{Reason: "unknown pinned prompt entry: " + e.ID}
			}
			ctx.warn("unknown pinned prompt entry %q downgraded to empty", e.ID)
			continue
		}

		blocks = append(blocks, customBlock(e, e.Content))
	}

	if phiSeen {
		phi := Block{
			ID:             newBlockID(),
			Role:           RoleSystem,
			Content:        phiContent,
			Slot:           PinnedPostHistoryInstructions,
			Enabled:        true,
			InsertionPoint: InsertPostHistoryInstructions,
			TokenGroup:     GroupSystem,
			Priority:       -1, // hard-reserved, never evicted
		}
		blocks = append(blocks, phi)
	}

	ctx.entryBlocks = blocks
	return nil
}

func customBlock(e PromptEntry, content string) Block {
	point := InsertAuxiliary
	if e.Position == PositionInChat {
		point = InsertInChat
	}
	return Block{
		ID:             newBlockID(),
		Role:           nonEmptyRole(e.Role),
		Content:        content,
		Name:           e.Name,
		Slot:           e.ID,
		Enabled:        true,
		InsertionPoint: point,
		Depth:          e.Depth,
		Order:          e.Order,
		TokenGroup:     GroupCustom,
	}
}

func nonEmptyRole(r Role) Role {
	if r == "" {
		return RoleSystem
	}
	return r
}

// pinnedBlocks resolves a known pinned slot id to its Block(s). ok is false
// for ids tavernkit does not recognize.
func pinnedBlocks(ctx *BuildContext, e PromptEntry) ([]Block, bool) {
	switch e.ID {
	case PinnedMainPrompt:
		content := ctx.Preset.MainPrompt
		if ctx.Preset.PreferCharPrompt && ctx.Character.SystemPrompt != "" {
			content = strings.ReplaceAll(ctx.Character.SystemPrompt, "{{original}}", ctx.Preset.MainPrompt)
		}
		return []Block{{
			ID: newBlockID(), Role: RoleSystem, Content: content, Slot: e.ID, Enabled: true,
			InsertionPoint: InsertMainPrompt, TokenGroup: GroupSystem, Priority: -1,
		}}, true
	case PinnedPersonaDescription:
		if ctx.User.PersonaText == "" {
			return nil, true
		}
		return []Block{{
			ID: newBlockID(), Role: RoleSystem, Content: ctx.User.PersonaText, Slot: e.ID, Enabled: true,
			InsertionPoint: InsertPersona, TokenGroup: GroupDefault,
		}}, true
	case PinnedCharacterDescription:
		if ctx.Character.Description == "" {
			return nil, true
		}
		return []Block{{
			ID: newBlockID(), Role: RoleSystem, Content: ctx.Character.Description, Slot: e.ID, Enabled: true,
			InsertionPoint: InsertDescription, TokenGroup: GroupDefault,
		}}, true
	case PinnedCharacterPersonality:
		content := ctx.Character.Personality
		if content == "" {
			return nil, true
		}
		if ctx.Preset.PersonalityFormat != "" {
			content = strings.ReplaceAll(ctx.Preset.PersonalityFormat, "{0}", content)
		}
		return []Block{{
			ID: newBlockID(), Role: RoleSystem, Content: content, Slot: e.ID, Enabled: true,
			InsertionPoint: InsertPersonality, TokenGroup: GroupDefault,
		}}, true
	case PinnedScenario:
		content := ctx.Character.Scenario
		if content == "" {
			return nil, true
		}
		if ctx.Preset.ScenarioFormat != "" {
			content = strings.ReplaceAll(ctx.Preset.ScenarioFormat, "{0}", content)
		}
		return []Block{{
			ID: newBlockID(), Role: RoleSystem, Content: content, Slot: e.ID, Enabled: true,
			InsertionPoint: InsertScenario, TokenGroup: GroupDefault,
		}}, true
	case PinnedChatExamples:
		if ctx.Preset.ExamplesBehavior == ExamplesDisabled {
			return nil, true
		}
		return exampleBlocks(ctx), true
	case PinnedChatHistory:
		return []Block{{
			ID: newBlockID(), Slot: e.ID, Enabled: true, InsertionPoint: InsertChatHistory, TokenGroup: GroupHistory,
		}}, true
	case PinnedAuthorsNote:
		if !authorsNoteGatePasses(ctx) {
			return nil, true
		}
		an := ctx.Preset.AuthorsNote
		point := InsertAuthorsNote
		if an.Position == ANInChat {
			point = InsertInChat
		}
		return []Block{{
			ID: newBlockID(), Role: nonEmptyRole(an.Role), Content: an.Text, Slot: e.ID, Enabled: true,
			InsertionPoint: point, Depth: an.Depth, TokenGroup: GroupCustom,
		}}, true
	case PinnedWorldInfoBeforeCharDefs, PinnedWorldInfoAfterCharDefs,
		PinnedWorldInfoBeforeExamples, PinnedWorldInfoAfterExamples:
		return nil, true // sentinel consumed directly from ctx.loreBlocks by stage G
	case PinnedEnhanceDefinitions, PinnedAuxiliaryPrompt:
		if e.Content == "" {
			return nil, true
		}
		return []Block{customBlock(e, e.Content)}, true
	default:
		return nil, false
	}
}

func resolvePinned(ctx *BuildContext, e PromptEntry) string {
	content := ctx.Character.PostHistoryInstructions
	if !ctx.Preset.PreferCharInstructions || content == "" {
		content = ctx.Preset.PostHistoryInstructions
	} else {
		content = strings.ReplaceAll(content, "{{original}}", ctx.Preset.PostHistoryInstructions)
	}
	if e.Content != "" && content == "" {
		content = e.Content
	}
	return content
}

// authorsNoteGatePasses implements the frequency gate (§4.E): n = user
// messages in history + 1; insert iff frequency > 0 and n mod frequency == 0.
func authorsNoteGatePasses(ctx *BuildContext) bool {
	freq := ctx.Preset.AuthorsNote.Frequency
	if freq < 0 {
		freq = 0
	}
	if freq == 0 {
		return false
	}
	if ctx.Preset.AuthorsNote.Text == "" {
		return false
	}
	n := UserMessageCount(ctx.History) + 1
	return n%freq == 0
}

func conditionsPass(ctx *BuildContext, conds []ConditionPredicate) bool {
	for _, c := range conds {
		if !conditionPasses(ctx, c) {
			return false
		}
	}
	return true
}

func conditionPasses(ctx *BuildContext, c ConditionPredicate) bool {
	if c.ChatContains != "" {
		if !strings.Contains(strings.ToLower(ctx.scanBuffer), strings.ToLower(c.ChatContains)) {
			return false
		}
	}
	if c.ChatRegex != "" {
		if re, ok := compileJSRegex(c.ChatRegex, false); ok && !re.MatchString(ctx.scanBuffer) {
			return false
		}
	}
	turn := ctx.History.Len()
	if c.TurnMin != nil && turn < *c.TurnMin {
		return false
	}
	if c.TurnMax != nil && turn > *c.TurnMax {
		return false
	}
	if c.TurnEquals != nil && turn != *c.TurnEquals {
		return false
	}
	if c.TurnEvery != nil && *c.TurnEvery > 0 && turn%*c.TurnEvery != 0 {
		return false
	}
	if len(c.TagsAny) > 0 && !tagsIntersect(ctx.Character.Tags, c.TagsAny) {
		return false
	}
	if len(c.TagsAll) > 0 && !tagsContainAll(ctx.Character.Tags, c.TagsAll) {
		return false
	}
	if c.PersonaContains != "" && !strings.Contains(strings.ToLower(ctx.User.PersonaText), strings.ToLower(c.PersonaContains)) {
		return false
	}
	return true
}

func tagsIntersect(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if set[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func tagsContainAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if !set[strings.ToLower(t)] {
			return false
		}
	}
	return true
}
