package tavernkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquashSystemMessages_MergesConsecutiveUnnamedSystemBlocks(t *testing.T) {
	blocks := []Block{
		{Role: RoleSystem, Content: "first"},
		{Role: RoleSystem, Content: "second"},
		{Role: RoleUser, Content: "third"},
	}
	out := squashSystemMessages(blocks)
	require.Len(t, out, 2)
	assert.Equal(t, "first\nsecond", out[0].Content)
	assert.Equal(t, "third", out[1].Content)
}

func TestSquashSystemMessages_DoesNotMergeNamedSystemBlocks(t *testing.T) {
	blocks := []Block{
		{Role: RoleSystem, Content: "first", Name: "narrator"},
		{Role: RoleSystem, Content: "second", Name: "narrator"},
	}
	out := squashSystemMessages(blocks)
	require.Len(t, out, 2, "named system blocks must not be squashed into each other")
}

func TestAdaptOpenAI_DropsBlankSystemBlocks(t *testing.T) {
	blocks := []Block{
		{Role: RoleSystem, Content: "   "},
		{Role: RoleUser, Content: "hello"},
	}
	out := adaptOpenAI(blocks, DialectOptions{})
	require.Len(t, out, 1)
}

func TestAdaptOpenAI_PreservesContentAcrossRoles(t *testing.T) {
	blocks := []Block{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleAssistant, Content: "hello there"},
		{Role: RoleUser, Content: "hi"},
	}
	out := adaptOpenAI(blocks, DialectOptions{})
	require.Len(t, out, 3)
	for i, want := range []string{"be helpful", "hello there", "hi"} {
		raw, err := json.Marshal(out[i])
		require.NoError(t, err)
		assert.Contains(t, string(raw), want)
	}
}
