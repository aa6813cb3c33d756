package tavernkit

import (
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// AnthropicPlan is the chat-anthropic wire shape (§4.J chat-anthropic).
type AnthropicPlan struct {
	System   []anthropic.TextBlockParam `json:"system,omitempty"`
	Messages []anthropic.MessageParam   `json:"messages"`

	// ContinuePrefill mirrors the continue_prefill metadata planassemble.go
	// stamps onto the last history block under generation_type=continue
	// (§8.6 scenario: "Anthropic: prefix=true"). The anthropic-sdk-go
	// MessageParam wire shape has no such field itself; prefilling is done
	// by ending Messages on that assistant turn, which adaptAnthropic
	// already does, so this is exposed here purely for callers that want to
	// confirm/log that the last message is a continuation prefill.
	ContinuePrefill bool `json:"continue_prefill,omitempty"`
}

const zeroWidthSpace = "​"

// adaptAnthropic extracts leading system blocks into System; any system
// block that doesn't lead becomes a user message. Consecutive same-role
// messages merge; empty content becomes a zero-width space; named blocks
// get "name: content" prefixing.
func adaptAnthropic(blocks []Block, opts DialectOptions) AnthropicPlan {
	var system []anthropic.TextBlockParam
	leading := true
	var rest []Block
	for _, b := range blocks {
		if b.Role == RoleSystem && leading {
			system = append(system, anthropic.TextBlockParam{Text: b.Content})
			continue
		}
		leading = false
		rest = append(rest, b)
	}

	var messages []anthropic.MessageParam
	var curRole Role
	var curText string
	flush := func() {
		if curRole == "" {
			return
		}
		text := curText
		if text == "" {
			text = zeroWidthSpace
		}
		block := anthropic.NewTextBlock(text)
		if curRole == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	for _, b := range rest {
		role := b.Role
		if role == RoleSystem {
			role = RoleUser
		}
		content := b.Content
		if b.Name != "" {
			content = fmt.Sprintf("%s: %s", b.Name, content)
		}
		if role == curRole {
			if curText != "" && content != "" {
				curText += "\n" + content
			} else {
				curText += content
			}
			continue
		}
		flush()
		curRole, curText = role, content
	}
	flush()

	plan := AnthropicPlan{System: system, Messages: messages}
	if len(rest) > 0 {
		if v, ok := rest[len(rest)-1].Metadata["continue_prefill"]; ok {
			if b, ok := v.(bool); ok {
				plan.ContinuePrefill = b
			}
		}
	}
	return plan
}
