package tavernkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExampleDialogue_SplitsOnStartAndSpeakerTags(t *testing.T) {
	raw := "<START>\n{{user}}: hello there\n{{char}}: greetings, traveler\n<START>\n{{user}}: again"
	msgs := parseExampleDialogue(raw, "Captain", "Aria")

	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "Captain", msgs[0].Name)
	assert.Equal(t, "hello there", msgs[0].Content)

	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Aria", msgs[1].Name)
	assert.Equal(t, "greetings, traveler", msgs[1].Content)

	assert.Equal(t, RoleUser, msgs[2].Role)
	assert.Equal(t, "again", msgs[2].Content)
}

func TestParseExampleDialogue_EmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, parseExampleDialogue("   ", "Captain", "Aria"))
}

func TestParseExampleDialogue_MultilineContentIsJoined(t *testing.T) {
	raw := "{{char}}: first line\nsecond line"
	msgs := parseExampleDialogue(raw, "Captain", "Aria")
	require.Len(t, msgs, 1)
	assert.Equal(t, "first line\nsecond line", msgs[0].Content)
}

func TestParseExampleDialogue_RecognizesResolvedNamesNotJustMacros(t *testing.T) {
	raw := "Captain: hi Aria\nAria: hello Captain"
	msgs := parseExampleDialogue(raw, "Captain", "Aria")
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestParseExampleDialogue_UntaggedLeadingContentDefaultsToCharacter(t *testing.T) {
	raw := "just some narration with no speaker tag"
	msgs := parseExampleDialogue(raw, "Captain", "Aria")
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Aria", msgs[0].Name)
}

func TestExampleBlocks_ProjectsParsedDialogueIntoOrderedChatExamplesBlocks(t *testing.T) {
	ctx := &BuildContext{
		Character: &Character{Name: "Aria", ExampleDialogue: "{{user}}: hi\n{{char}}: hello"},
		User:      User{Name: "Captain"},
	}
	blocks := exampleBlocks(ctx)
	require.Len(t, blocks, 2)
	assert.Equal(t, PinnedChatExamples, blocks[0].Slot)
	assert.Equal(t, InsertChatExamples, blocks[0].InsertionPoint)
	assert.Equal(t, 0, blocks[0].Order)
	assert.Equal(t, 1, blocks[1].Order)
}

func TestExampleBlocks_NoDialogueReturnsNil(t *testing.T) {
	ctx := &BuildContext{Character: &Character{Name: "Aria"}, User: User{Name: "Captain"}}
	assert.Nil(t, exampleBlocks(ctx))
}
