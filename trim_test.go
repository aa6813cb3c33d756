package tavernkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trimTestContext(budget int) *BuildContext {
	return &BuildContext{
		Preset:    &Preset{ContextWindowTokens: budget, ReservedResponseTokens: 0},
		Estimator: NewHeuristicEstimator(),
	}
}

func TestTrimPlan_NoEvictionUnderBudget(t *testing.T) {
	ctx := trimTestContext(1000)
	plan := &Plan{Blocks: []Block{
		{ID: "a", Content: "short", TokenGroup: GroupHistory},
	}}
	trimPlan(ctx, plan)
	assert.Len(t, plan.Blocks, 1)
	assert.Empty(t, ctx.trimReport)
}

func TestTrimPlan_EvictsExamplesBeforeLoreBeforeHistory(t *testing.T) {
	ctx := trimTestContext(5)
	plan := &Plan{Blocks: []Block{
		{ID: "sys", Content: "x", TokenGroup: GroupSystem},
		{ID: "ex", Content: "example filler text here", TokenGroup: GroupExamples},
		{ID: "lore", Content: "lore filler text here too", TokenGroup: GroupLore},
		{ID: "hist1", Content: "older turn", TokenGroup: GroupHistory, Role: RoleAssistant},
		{ID: "hist2", Content: "latest turn", TokenGroup: GroupHistory, Role: RoleUser},
	}}
	trimPlan(ctx, plan)

	var reasons []string
	for _, r := range ctx.trimReport {
		reasons = append(reasons, r.Reason)
	}
	require.NotEmpty(t, reasons)
	assert.Equal(t, "examples_budget", reasons[0], "examples must be evicted before lore or history")

	var ids []string
	for _, b := range plan.Blocks {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, "sys", "system blocks are hard-reserved")
	assert.Contains(t, ids, "hist2", "the most recent visible user message must never be evicted")
}

func TestTrimPlan_ExamplesAlwaysKeepSkipsExampleEviction(t *testing.T) {
	ctx := trimTestContext(3)
	ctx.Preset.ExamplesBehavior = ExamplesAlwaysKeep
	plan := &Plan{Blocks: []Block{
		{ID: "ex", Content: "example filler text here", TokenGroup: GroupExamples},
	}}
	trimPlan(ctx, plan)

	var ids []string
	for _, b := range plan.Blocks {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, "ex", "always_keep must never evict examples regardless of budget pressure")
}

func TestTrimPlan_ZeroBudgetSkipsTrimmingEntirely(t *testing.T) {
	ctx := trimTestContext(0)
	plan := &Plan{Blocks: []Block{
		{ID: "a", Content: "this would normally overflow any small budget", TokenGroup: GroupHistory},
	}}
	trimPlan(ctx, plan)
	assert.Len(t, plan.Blocks, 1)
	assert.Empty(t, ctx.trimReport)
}

func TestTrimPlan_IgnoreBudgetLoreExemptFromStageIEviction(t *testing.T) {
	ctx := trimTestContext(1)
	plan := &Plan{Blocks: []Block{
		{ID: "exempt", Content: "this lore entry ignores the budget entirely", TokenGroup: GroupLore, IgnoreBudget: true},
		{ID: "normal", Content: "this ordinary lore entry does not", TokenGroup: GroupLore},
	}}
	trimPlan(ctx, plan)

	var ids []string
	for _, b := range plan.Blocks {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, "exempt", "ignore_budget lore must never be evicted by stage I")
	assert.NotContains(t, ids, "normal")
}

func TestIsHardReserved(t *testing.T) {
	assert.True(t, isHardReserved(Block{TokenGroup: GroupSystem}))
	assert.True(t, isHardReserved(Block{Slot: PinnedPostHistoryInstructions}))
	assert.True(t, isHardReserved(Block{Slot: PinnedAuthorsNote}))
	assert.False(t, isHardReserved(Block{TokenGroup: GroupHistory}))
}
