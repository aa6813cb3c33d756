package tavernkit

import (
	"strings"

	openai "github.com/openai/openai-go/v2"
)

// adaptOpenAI projects blocks to openai-go/v2's chat-completion message
// params (§4.J chat-openai).
func adaptOpenAI(blocks []Block, opts DialectOptions) []openai.ChatCompletionMessageParamUnion {
	merged := blocks
	if opts.SquashSystemMessages {
		merged = squashSystemMessages(blocks)
	}

	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(merged))
	for _, b := range merged {
		if b.Role == RoleSystem && strings.TrimSpace(b.Content) == "" {
			continue
		}
		switch b.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(b.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(b.Content))
		case RoleTool:
			out = append(out, openai.UserMessage(b.Content))
		default:
			out = append(out, openai.UserMessage(b.Content))
		}
	}
	return out
}

func squashSystemMessages(blocks []Block) []Block {
	const (
		slotNewChatPrompt  = "new_chat_prompt"
		slotNewExampleChat = "new_example_chat"
	)
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Role == RoleSystem && b.Name == "" && b.Slot != slotNewChatPrompt && b.Slot != slotNewExampleChat &&
			len(out) > 0 && out[len(out)-1].Role == RoleSystem && out[len(out)-1].Name == "" {
			out[len(out)-1].Content = out[len(out)-1].Content + "\n" + b.Content
			continue
		}
		out = append(out, b)
	}
	return out
}
