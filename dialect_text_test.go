package tavernkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptText_RendersLabelledLinesEndingWithAssistantLabel(t *testing.T) {
	blocks := []Block{
		{Role: RoleSystem, Content: "be terse", Enabled: true},
		{Role: RoleUser, Content: "hi", Enabled: true},
	}
	plan := adaptText(blocks, DialectOptions{})
	assert.Contains(t, plan.Prompt, "system: be terse")
	assert.Contains(t, plan.Prompt, "user: hi")
	assert.Contains(t, plan.Prompt, "assistant:")
}

func TestAdaptText_UsesNameOverRoleAsLabel(t *testing.T) {
	blocks := []Block{{Role: RoleAssistant, Name: "Aria", Content: "hello", Enabled: true}}
	plan := adaptText(blocks, DialectOptions{})
	assert.Contains(t, plan.Prompt, "Aria: hello")
}

func TestAdaptText_CustomOutputLabel(t *testing.T) {
	blocks := []Block{{Role: RoleUser, Content: "hi", Enabled: true}}
	plan := adaptText(blocks, DialectOptions{Instruct: InstructModeConfig{OutputLabel: "Aria"}})
	assert.Contains(t, plan.Prompt, "\nAria:")
}

func TestAdaptText_StopSequencesIncludeEachDistinctLabel(t *testing.T) {
	blocks := []Block{
		{Role: RoleUser, Content: "hi", Enabled: true},
		{Role: RoleAssistant, Content: "hello", Enabled: true},
	}
	plan := adaptText(blocks, DialectOptions{})
	assert.Contains(t, plan.StopSequences, "user:")
	assert.Contains(t, plan.StopSequences, "assistant:")
}

func TestAdaptText_InstructModeAddsConfiguredStopSequences(t *testing.T) {
	blocks := []Block{{Role: RoleUser, Content: "hi", Enabled: true}}
	opts := DialectOptions{Instruct: InstructModeConfig{
		Enabled: true, InputSequence: "[INST]", OutputSequence: "[/INST]", StopSequence: "</s>",
	}}
	plan := adaptText(blocks, opts)
	assert.Contains(t, plan.StopSequences, "</s>")
	assert.Contains(t, plan.StopSequences, "[INST]")
}

func TestWrapInstruct_UsesInputSequenceForUserRole(t *testing.T) {
	b := Block{Role: RoleUser, Content: "hi"}
	cfg := InstructModeConfig{InputSequence: "[INST]", OutputSequence: "[/INST]"}
	out := wrapInstruct(b, 1, 3, cfg)
	assert.Equal(t, "[INST]hi", out)
}

func TestWrapInstruct_UsesOutputSequenceForAssistantRole(t *testing.T) {
	b := Block{Role: RoleAssistant, Content: "hello"}
	cfg := InstructModeConfig{InputSequence: "[INST]", OutputSequence: "[/INST]"}
	out := wrapInstruct(b, 1, 3, cfg)
	assert.Equal(t, "[/INST]hello", out)
}

func TestWrapInstruct_UsesSystemSequenceForSystemRole(t *testing.T) {
	b := Block{Role: RoleSystem, Content: "rules"}
	cfg := InstructModeConfig{SystemSequence: "<<SYS>>"}
	out := wrapInstruct(b, 1, 3, cfg)
	assert.Equal(t, "<<SYS>>rules", out)
}

func TestWrapInstruct_FirstInputSequenceOverridesOnlyTheFirstNonAssistantBlock(t *testing.T) {
	cfg := InstructModeConfig{InputSequence: "[INST]", FirstInputSequence: "<s>[INST]"}
	first := wrapInstruct(Block{Role: RoleUser, Content: "hi"}, 0, 3, cfg)
	assert.Equal(t, "<s>[INST]hi", first)

	later := wrapInstruct(Block{Role: RoleUser, Content: "hi"}, 1, 3, cfg)
	assert.Equal(t, "[INST]hi", later)
}

func TestWrapInstruct_LastOutputSequenceOverridesFinalAssistantBlock(t *testing.T) {
	cfg := InstructModeConfig{OutputSequence: "[/INST]", LastOutputSequence: "[/INST]</s>"}
	out := wrapInstruct(Block{Role: RoleAssistant, Content: "bye"}, 2, 3, cfg)
	assert.Equal(t, "[/INST]</s>bye", out)
}

func TestWrapInstruct_LastInputSequenceOverridesFinalNonAssistantBlock(t *testing.T) {
	cfg := InstructModeConfig{InputSequence: "[INST]", LastInputSequence: "[INST-FINAL]"}
	out := wrapInstruct(Block{Role: RoleUser, Content: "last"}, 2, 3, cfg)
	assert.Equal(t, "[INST-FINAL]last", out)
}
