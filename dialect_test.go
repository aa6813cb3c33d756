package tavernkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptDialect_DisabledBlocksNeverReachTheAdapter(t *testing.T) {
	blocks := []Block{
		{Role: RoleUser, Content: "visible", Enabled: true},
		{Role: RoleUser, Content: "should not appear", Enabled: false},
	}
	out, err := adaptDialect(blocks, DialectText, DialectOptions{})
	require.NoError(t, err)
	text := out.(TextPlan)
	assert.Contains(t, text.Prompt, "visible")
	assert.NotContains(t, text.Prompt, "should not appear")
}

func TestAdaptDialect_UnknownDialectReturnsError(t *testing.T) {
	_, err := adaptDialect(nil, Dialect("carrier-pigeon"), DialectOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDialect))
}

func TestAdaptDialect_EmptyDialectDefaultsToOpenAI(t *testing.T) {
	blocks := []Block{{Role: RoleUser, Content: "hi", Enabled: true}}
	out, err := adaptDialect(blocks, Dialect(""), DialectOptions{})
	require.NoError(t, err)
	want := adaptOpenAI(blocks, DialectOptions{})
	assert.IsType(t, want, out)
}

func TestBlockLabel_PrefersNameOverRole(t *testing.T) {
	assert.Equal(t, "Captain", blockLabel(Block{Role: RoleUser, Name: "Captain"}))
	assert.Equal(t, "user", blockLabel(Block{Role: RoleUser}))
}
