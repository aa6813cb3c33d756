package tavernkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalPreset() *Preset {
	return &Preset{
		PromptEntries: []PromptEntry{
			{ID: PinnedMainPrompt, Enabled: true, Pinned: true},
			{ID: PinnedCharacterDescription, Enabled: true, Pinned: true},
			{ID: PinnedChatHistory, Enabled: true, Pinned: true},
		},
	}
}

func TestBuild_MissingCharacterReturnsError(t *testing.T) {
	_, err := Build(BuildInput{User: User{Name: "Captain"}, History: NewSliceHistory(nil)})
	assert.ErrorIs(t, err, ErrMissingCharacter)
}

func TestBuild_MinimalScenarioProducesOrderedBlocks(t *testing.T) {
	preset := minimalPreset()
	preset.PreferCharPrompt = true

	plan, err := Build(BuildInput{
		Character:   &Character{Name: "Aria", Description: "A navigator.", SystemPrompt: "Stay in character."},
		User:        User{Name: "Captain"},
		History:     NewSliceHistory(nil),
		Preset:      preset,
		UserMessage: "Hello there!",
	})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Messages)

	var contents []string
	for _, m := range plan.Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents[0], "Stay in character.")
	assert.Contains(t, contents, "A navigator.")
	assert.Contains(t, contents, "Hello there!")
}

func TestBuild_CharacterOverridesMainPromptWhenPreferred(t *testing.T) {
	preset := minimalPreset()
	preset.MainPrompt = "default system prompt"
	preset.PreferCharPrompt = true

	plan, err := Build(BuildInput{
		Character: &Character{Name: "Aria", SystemPrompt: "custom instructions: {{original}}"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    preset,
	})
	require.NoError(t, err)

	var found bool
	for _, m := range plan.Messages {
		if m.Content == "custom instructions: default system prompt" {
			found = true
		}
	}
	assert.True(t, found, "PreferCharPrompt must substitute {{original}} with the preset's main prompt")
}

func TestBuild_AuthorsNoteFrequencyGate(t *testing.T) {
	preset := minimalPreset()
	preset.PromptEntries = append(preset.PromptEntries, PromptEntry{ID: PinnedAuthorsNote, Enabled: true, Pinned: true})
	preset.AuthorsNote = AuthorsNoteConfig{Text: "Remember the stakes.", Frequency: 2, Position: ANInPrompt}

	plan, err := Build(BuildInput{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    preset,
	})
	require.NoError(t, err)
	assert.NotContains(t, messageContents(plan), "Remember the stakes.", "frequency=2 must not fire when only the upcoming turn counts (n=1)")

	history2 := NewSliceHistory([]ChatMessage{
		{ID: "1", Role: RoleUser, Content: "first", Visible: true},
		{ID: "2", Role: RoleAssistant, Content: "reply", Visible: true},
	})
	plan2, err := Build(BuildInput{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   history2,
		Preset:    preset,
		UserMessage: "second",
	})
	require.NoError(t, err)
	assert.Contains(t, messageContents(plan2), "Remember the stakes.", "frequency=2 must fire once two user turns have accumulated")
}

func TestBuild_ContinueGenerationTypeAppendsPrefillMetadataNoNewTurn(t *testing.T) {
	preset := minimalPreset()
	preset.ContinuePrefill = true
	preset.ContinuePostfix = "..."

	history := NewSliceHistory([]ChatMessage{
		{ID: "1", Role: RoleUser, Content: "go on", Visible: true},
		{ID: "2", Role: RoleAssistant, Content: "once upon a time", Visible: true},
	})

	plan, err := Build(BuildInput{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   history,
		Preset:    preset,
		Options:   BuildOptions{GenerationType: GenContinue},
	})
	require.NoError(t, err)
	assert.Contains(t, messageContents(plan), "once upon a time...")
}

func TestBuild_GreetingSelection(t *testing.T) {
	idx := 0
	plan, err := Build(BuildInput{
		Character: &Character{
			Name:               "Aria",
			FirstMessage:       "Hello, traveler.",
			AlternateGreetings: []string{"Status check."},
		},
		User:    User{Name: "Captain"},
		History: NewSliceHistory(nil),
		Preset:  minimalPreset(),
		Options: BuildOptions{GreetingIndex: &idx},
	})
	require.NoError(t, err)
	assert.Equal(t, "Status check.", plan.Greeting)
	require.NotNil(t, plan.GreetingIndex)
	assert.Equal(t, 0, *plan.GreetingIndex)
}

func TestBuild_DeterministicGivenIdenticalSeed(t *testing.T) {
	build := func() (*Plan, error) {
		preset := minimalPreset()
		preset.MainPrompt = "{{pick::alpha,beta,gamma}}"
		return Build(BuildInput{
			Character: &Character{Name: "Aria"},
			User:      User{Name: "Captain"},
			History:   NewSliceHistory(nil),
			Preset:    preset,
			Options:   BuildOptions{RNGSeed: 7, Now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		})
	}
	plan1, err := build()
	require.NoError(t, err)
	plan2, err := build()
	require.NoError(t, err)
	assert.Equal(t, messageContents(plan1), messageContents(plan2))
}

func TestBuild_EmptyContentInjectionEquivalence(t *testing.T) {
	reg := NewInjectionRegistry()
	require.NoError(t, reg.Register(Injection{ID: "empty", Content: "", Position: InjectBefore}))

	withEmpty, err := Build(BuildInput{
		Character:  &Character{Name: "Aria"},
		User:       User{Name: "Captain"},
		History:    NewSliceHistory(nil),
		Preset:     minimalPreset(),
		Injections: reg,
	})
	require.NoError(t, err)

	without, err := Build(BuildInput{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    minimalPreset(),
	})
	require.NoError(t, err)

	assert.Equal(t, messageContents(without), messageContents(withEmpty), "an empty-content injection must be equivalent to no injection at all")
}

func TestBuild_ExamplesDisabledOmitsExampleDialogue(t *testing.T) {
	preset := minimalPreset()
	preset.PromptEntries = append(preset.PromptEntries, PromptEntry{ID: PinnedChatExamples, Enabled: true, Pinned: true})
	preset.ExamplesBehavior = ExamplesDisabled

	plan, err := Build(BuildInput{
		Character: &Character{Name: "Aria", ExampleDialogue: "{{user}}: hi\n{{char}}: hello"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    preset,
	})
	require.NoError(t, err)
	assert.NotContains(t, messageContents(plan), "hello", "examples_behavior=disabled must omit example dialogue entirely")
}

func TestBuild_ContinueWithEmptyHistoryProducesNoPrefillSplice(t *testing.T) {
	preset := minimalPreset()
	preset.ContinuePrefill = true
	preset.ContinuePostfix = "..."

	plan, err := Build(BuildInput{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    preset,
		Options:   BuildOptions{GenerationType: GenContinue},
	})
	require.NoError(t, err)
	for _, c := range messageContents(plan) {
		assert.NotContains(t, c, "...", "continue with no prior assistant turn has nothing to splice a postfix onto")
	}
}

func messageContents(p *Plan) []string {
	out := make([]string, len(p.Messages))
	for i, m := range p.Messages {
		out[i] = m.Content
	}
	return out
}
