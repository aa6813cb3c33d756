package tavernkit

import "strings"

// parseExampleDialogue splits raw example-dialogue text into role-tagged
// blocks (§4.D). Splits on literal "<START>" separators, then within each
// segment on lines beginning with "{{user}}:"/"{{char}}:" (the text is
// parsed before macro expansion, so we match case-insensitively against
// both the literal macro and the resolved name).
func parseExampleDialogue(raw, userName, charName string) []ChatMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []ChatMessage
	for _, segment := range strings.Split(raw, "<START>") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		out = append(out, parseExampleSegment(segment, userName, charName)...)
	}
	return out
}

func parseExampleSegment(segment, userName, charName string) []ChatMessage {
	lines := strings.Split(segment, "\n")
	var out []ChatMessage
	var current *ChatMessage

	flush := func() {
		if current != nil && strings.TrimSpace(current.Content) != "" {
			current.Content = strings.TrimSpace(current.Content)
			out = append(out, *current)
		}
		current = nil
	}

	for _, line := range lines {
		if role, name, rest, ok := speakerPrefix(line, userName, charName); ok {
			flush()
			current = &ChatMessage{Role: role, Name: name, Content: rest, Visible: false}
			continue
		}
		if current == nil {
			current = &ChatMessage{Role: RoleAssistant, Name: charName, Visible: false}
		}
		if current.Content != "" {
			current.Content += "\n"
		}
		current.Content += line
	}
	flush()
	return out
}

func speakerPrefix(line, userName, charName string) (role Role, name, rest string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "{{user}}:"):
		return RoleUser, userName, strings.TrimSpace(trimmed[len("{{user}}:"):]), true
	case strings.HasPrefix(lower, "{{char}}:"):
		return RoleAssistant, charName, strings.TrimSpace(trimmed[len("{{char}}:"):]), true
	case userName != "" && strings.HasPrefix(lower, strings.ToLower(userName)+":"):
		return RoleUser, userName, strings.TrimSpace(trimmed[len(userName)+1:]), true
	case charName != "" && strings.HasPrefix(lower, strings.ToLower(charName)+":"):
		return RoleAssistant, charName, strings.TrimSpace(trimmed[len(charName)+1:]), true
	default:
		return "", "", "", false
	}
}

// exampleBlocks projects parsed example dialogue into Blocks tagged for
// the "chat_examples" pinned slot, ready for stage G's anchored placement.
func exampleBlocks(ctx *BuildContext) []Block {
	msgs := parseExampleDialogue(ctx.Character.ExampleDialogue, userName(ctx), charName(ctx))
	if len(msgs) == 0 {
		return nil
	}
	blocks := make([]Block, 0, len(msgs))
	for i, m := range msgs {
		blocks = append(blocks, Block{
			ID:             newBlockID(),
			Role:           m.Role,
			Content:        m.Content,
			Name:           m.Name,
			Slot:           PinnedChatExamples,
			Enabled:        true,
			InsertionPoint: InsertChatExamples,
			Order:          i,
			TokenGroup:     GroupExamples,
			Priority:       i,
		})
	}
	return blocks
}
