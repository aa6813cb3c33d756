package tavernkit

import genai "google.golang.org/genai"

// GooglePlan is the genai-shaped projection (§4.J "other dialects":
// mechanical restructurings preserving message order).
type GooglePlan struct {
	System   string           `json:"system,omitempty"`
	Contents []*genai.Content `json:"contents"`
}

// MechanicalMessage is the shared shape used by the remaining mechanical
// dialects (cohere/ai21/mistral/xai), which differ from chat-openai only
// in field naming conventions on the host/provider side, not in ordering
// or merge semantics.
type MechanicalMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type MechanicalPlan struct {
	Dialect  Dialect              `json:"dialect"`
	Messages []MechanicalMessage  `json:"messages"`
}

func adaptMechanical(blocks []Block, dialect Dialect) any {
	if dialect == DialectGoogle {
		return adaptGoogle(blocks)
	}
	out := make([]MechanicalMessage, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, MechanicalMessage{Role: string(b.Role), Content: b.Content})
	}
	return MechanicalPlan{Dialect: dialect, Messages: out}
}

func adaptGoogle(blocks []Block) GooglePlan {
	var system string
	var contents []*genai.Content
	leading := true
	for _, b := range blocks {
		if b.Role == RoleSystem && leading {
			if system != "" {
				system += "\n"
			}
			system += b.Content
			continue
		}
		leading = false
		role := genai.RoleUser
		if b.Role == RoleAssistant {
			role = genai.RoleModel
		}
		if len(contents) > 0 && contents[len(contents)-1].Role == role {
			contents[len(contents)-1].Parts = append(contents[len(contents)-1].Parts, &genai.Part{Text: b.Content})
			continue
		}
		contents = append(contents, genai.NewContentFromParts([]*genai.Part{{Text: b.Content}}, role))
	}
	return GooglePlan{System: system, Contents: contents}
}
