package tavernkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptEntry_MatchesTriggerEmptyMeansAll(t *testing.T) {
	p := &PromptEntry{}
	assert.True(t, p.MatchesTrigger(GenNormal))
	assert.True(t, p.MatchesTrigger(GenContinue))
}

func TestPromptEntry_MatchesTriggerRestrictsToListedTypes(t *testing.T) {
	p := &PromptEntry{Triggers: []GenerationType{GenContinue, GenImpersonate}}
	assert.True(t, p.MatchesTrigger(GenContinue))
	assert.False(t, p.MatchesTrigger(GenNormal))
}

func TestPreset_MaxInputTokensSubtractsReservedResponseTokens(t *testing.T) {
	p := &Preset{ContextWindowTokens: 4096, ReservedResponseTokens: 512}
	assert.Equal(t, 3584, p.MaxInputTokens())
}

func TestPreset_MaxInputTokensZeroWhenContextWindowUnset(t *testing.T) {
	p := &Preset{ReservedResponseTokens: 512}
	assert.Equal(t, 0, p.MaxInputTokens())
}

func TestPreset_MaxInputTokensClampsAtZeroWhenReservedExceedsWindow(t *testing.T) {
	p := &Preset{ContextWindowTokens: 100, ReservedResponseTokens: 500}
	assert.Equal(t, 0, p.MaxInputTokens())
}

func TestPreset_WorldInfoBudgetTokensResolvesMinOfCapAndPercentage(t *testing.T) {
	p := &Preset{ContextWindowTokens: 1000, WorldInfo: WorldInfoConfig{Budget: 10, BudgetCap: 50}}
	assert.Equal(t, 50, p.WorldInfoBudgetTokens(), "10% of 1000 is 100, which exceeds the 50 cap")
}

func TestPreset_WorldInfoBudgetTokensUsesPercentageWhenBelowCap(t *testing.T) {
	p := &Preset{ContextWindowTokens: 1000, WorldInfo: WorldInfoConfig{Budget: 5, BudgetCap: 500}}
	assert.Equal(t, 50, p.WorldInfoBudgetTokens())
}

func TestPreset_WorldInfoBudgetTokensCapAloneWorksWithoutContextWindow(t *testing.T) {
	p := &Preset{WorldInfo: WorldInfoConfig{BudgetCap: 50}}
	assert.Equal(t, 50, p.WorldInfoBudgetTokens())
}

func TestPreset_WorldInfoBudgetTokensZeroWhenNeitherSet(t *testing.T) {
	p := &Preset{ContextWindowTokens: 1000}
	assert.Equal(t, 0, p.WorldInfoBudgetTokens())
}
