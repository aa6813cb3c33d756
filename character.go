package tavernkit

// Character is the immutable, per-build view of a character card (CCv2/CCv3
// semantics; decoding the card file itself is out of scope — see
// CharacterCardVersion for the version check the loader is expected to have
// already performed).
type Character struct {
	Name                     string         `json:"name" yaml:"name"`
	Description              string         `json:"description" yaml:"description"`
	Personality              string         `json:"personality" yaml:"personality"`
	Scenario                 string         `json:"scenario" yaml:"scenario"`
	SystemPrompt             string         `json:"system_prompt" yaml:"system_prompt"`
	PostHistoryInstructions  string         `json:"post_history_instructions" yaml:"post_history_instructions"`
	FirstMessage             string         `json:"first_message" yaml:"first_message"`
	AlternateGreetings       []string       `json:"alternate_greetings,omitempty" yaml:"alternate_greetings,omitempty"`
	ExampleDialogue          string         `json:"example_dialogue,omitempty" yaml:"example_dialogue,omitempty"`
	CreatorNotes             string         `json:"creator_notes,omitempty" yaml:"creator_notes,omitempty"`
	CharacterVersion         string         `json:"character_version,omitempty" yaml:"character_version,omitempty"`
	Tags                     []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	DepthPrompt              *DepthPrompt   `json:"depth_prompt,omitempty" yaml:"depth_prompt,omitempty"`
	EmbeddedLorebook         *Lorebook      `json:"embedded_lorebook,omitempty" yaml:"embedded_lorebook,omitempty"`
	Extensions               map[string]any `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// DepthPrompt is a character-level in-chat injection (SillyTavern calls this
// "character's note"), placed at Depth in the final message sequence.
type DepthPrompt struct {
	Text  string `json:"text" yaml:"text"`
	Depth int    `json:"depth" yaml:"depth"`
	Role  string `json:"role" yaml:"role"`
}

// User is the persona consuming the character in this build.
type User struct {
	Name        string `json:"name" yaml:"name"`
	PersonaText string `json:"persona_text,omitempty" yaml:"persona_text,omitempty"`
}

// GroupContext carries group-chat membership used by group-aware macros
// ({{group}}, {{groupNotMuted}}, {{charIfNotGroup}}, {{notChar}}).
type GroupContext struct {
	Members          []string `json:"members,omitempty" yaml:"members,omitempty"`
	Muted            []string `json:"muted,omitempty" yaml:"muted,omitempty"`
	CurrentCharacter string   `json:"current_character,omitempty" yaml:"current_character,omitempty"`
}

// NotMuted returns the group members that are not in Muted.
func (g *GroupContext) NotMuted() []string {
	if g == nil {
		return nil
	}
	muted := make(map[string]struct{}, len(g.Muted))
	for _, m := range g.Muted {
		muted[m] = struct{}{}
	}
	out := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if _, ok := muted[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}
