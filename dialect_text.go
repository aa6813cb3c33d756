package tavernkit

import (
	"fmt"
	"strings"
)

// TextPlan is the text-completion wire shape (§4.J text).
type TextPlan struct {
	Prompt        string   `json:"prompt"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// adaptText renders each block as "{label}: {content}" on its own line,
// ending with "{assistant_label}:", optionally prefixing each block's
// content with an Instruct-mode sequence. No suffix is appended.
func adaptText(blocks []Block, opts DialectOptions) TextPlan {
	var lines []string
	stopSet := map[string]struct{}{}
	assistantLabel := opts.Instruct.OutputLabel
	if assistantLabel == "" {
		assistantLabel = "assistant"
	}

	for i, b := range blocks {
		label := blockLabel(b)
		stopSet[label+":"] = struct{}{}
		content := b.Content
		if opts.Instruct.Enabled {
			content = wrapInstruct(b, i, len(blocks), opts.Instruct)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, content))
	}
	lines = append(lines, assistantLabel+":")

	var stops []string
	for s := range stopSet {
		stops = append(stops, s)
	}
	if opts.Instruct.Enabled {
		for _, s := range []string{opts.Instruct.InputSequence, opts.Instruct.OutputSequence, opts.Instruct.SystemSequence, opts.Instruct.StopSequence} {
			if s != "" {
				stops = append(stops, s)
			}
		}
	}

	return TextPlan{Prompt: strings.Join(lines, "\n"), StopSequences: stops}
}

func wrapInstruct(b Block, i, n int, cfg InstructModeConfig) string {
	prefix, suffix := cfg.InputSequence, ""
	if b.Role == RoleAssistant {
		prefix = cfg.OutputSequence
	} else if b.Role == RoleSystem {
		prefix = cfg.SystemSequence
	}
	if i == 0 && cfg.FirstInputSequence != "" && b.Role != RoleAssistant {
		prefix = cfg.FirstInputSequence
	}
	if i == n-1 {
		if b.Role == RoleAssistant && cfg.LastOutputSequence != "" {
			prefix = cfg.LastOutputSequence
		} else if b.Role != RoleAssistant && cfg.LastInputSequence != "" {
			prefix = cfg.LastInputSequence
		}
	}
	return prefix + b.Content + suffix
}
