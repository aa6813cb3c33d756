package tavernkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectionInsertionPoint_MapsEachPosition(t *testing.T) {
	point, ok := injectionInsertionPoint(InjectBefore)
	require.True(t, ok)
	assert.Equal(t, InsertBeforePromptInjections, point)

	point, ok = injectionInsertionPoint(InjectAfter)
	require.True(t, ok)
	assert.Equal(t, InsertInPromptInjections, point)

	point, ok = injectionInsertionPoint(InjectChat)
	require.True(t, ok)
	assert.Equal(t, InsertInChat, point)

	_, ok = injectionInsertionPoint(InjectNone)
	assert.False(t, ok, "position=none must never produce a block")
}

func TestRunInjectionStage_NonePositionProducesNoBlock(t *testing.T) {
	reg := NewInjectionRegistry()
	require.NoError(t, reg.Register(Injection{ID: "scan-only", Content: "ambient lore text", Position: InjectNone}))

	ctx := &BuildContext{Injections: reg}
	runInjectionStage(ctx)
	assert.Empty(t, ctx.injBlocks)
}

func TestRunInjectionStage_FilterExcludesNonMatchingInjections(t *testing.T) {
	reg := NewInjectionRegistry()
	require.NoError(t, reg.Register(Injection{
		ID: "conditional", Content: "only sometimes", Position: InjectBefore,
		Filter: func(*BuildContext) bool { return false },
	}))

	ctx := &BuildContext{Injections: reg}
	runInjectionStage(ctx)
	assert.Empty(t, ctx.injBlocks)
}

func TestRunInjectionStage_DefaultsToSystemRoleWhenUnset(t *testing.T) {
	reg := NewInjectionRegistry()
	require.NoError(t, reg.Register(Injection{ID: "a", Content: "note", Position: InjectBefore}))

	ctx := &BuildContext{Injections: reg}
	runInjectionStage(ctx)
	require.Len(t, ctx.injBlocks, 1)
	assert.Equal(t, RoleSystem, ctx.injBlocks[0].Role)
}
