package tavernkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistorySequence_ImpersonateAppendsUserMessageThenPrompt(t *testing.T) {
	ctx := &BuildContext{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    &Preset{ImpersonationPrompt: "Write as the user."},
		Options:   BuildOptions{GenerationType: GenImpersonate},
		UserMessage: "what should I say next?",
	}
	seq := buildHistorySequence(ctx)
	require.Len(t, seq, 2)
	assert.Equal(t, RoleUser, seq[0].Role)
	assert.Equal(t, "what should I say next?", seq[0].Content)
	assert.Equal(t, RoleSystem, seq[1].Role)
	assert.Equal(t, "Write as the user.", seq[1].Content)
}

func TestBuildHistorySequence_ReplacesEmptyUserMessageWithConfiguredFallback(t *testing.T) {
	ctx := &BuildContext{
		Character:   &Character{Name: "Aria"},
		User:        User{Name: "Captain"},
		History:     NewSliceHistory(nil),
		Preset:      &Preset{ReplaceEmptyMessage: "..."},
		UserMessage: "",
	}
	seq := buildHistorySequence(ctx)
	require.Len(t, seq, 1)
	assert.Equal(t, "...", seq[0].Content)
}

func TestBuildHistorySequence_NoUserMessageAndNoFallbackAppendsNothing(t *testing.T) {
	ctx := &BuildContext{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History:   NewSliceHistory(nil),
		Preset:    &Preset{},
	}
	assert.Empty(t, buildHistorySequence(ctx))
}

func TestBuildHistorySequence_InvisibleMessagesExcluded(t *testing.T) {
	ctx := &BuildContext{
		Character: &Character{Name: "Aria"},
		User:      User{Name: "Captain"},
		History: NewSliceHistory([]ChatMessage{
			{ID: "1", Role: RoleUser, Content: "hidden", Visible: false},
			{ID: "2", Role: RoleAssistant, Content: "shown", Visible: true},
		}),
		Preset: &Preset{},
	}
	seq := buildHistorySequence(ctx)
	require.Len(t, seq, 1)
	assert.Equal(t, "shown", seq[0].Content)
}

func TestInterleaveInChat_NoInChatBlocksReturnsHistoryUnchanged(t *testing.T) {
	ctx := &BuildContext{}
	history := []Block{{ID: "1", Content: "a"}, {ID: "2", Content: "b"}}
	out := interleaveInChat(ctx, history)
	assert.Equal(t, history, out)
}

func TestInterleaveInChat_DepthZeroGoesAfterLastMessage(t *testing.T) {
	ctx := &BuildContext{inChatBlocks: []Block{{ID: "note", Content: "depth0", Depth: 0}}}
	history := []Block{{ID: "1", Content: "a"}, {ID: "2", Content: "b"}}
	out := interleaveInChat(ctx, history)
	require.Len(t, out, 3)
	assert.Equal(t, "depth0", out[2].Content)
}

func TestInterleaveInChat_DepthClampedToHistoryLength(t *testing.T) {
	ctx := &BuildContext{inChatBlocks: []Block{{ID: "note", Content: "too deep", Depth: 99}}}
	history := []Block{{ID: "1", Content: "a"}, {ID: "2", Content: "b"}}
	out := interleaveInChat(ctx, history)
	require.Len(t, out, 3)
	assert.Equal(t, "too deep", out[0].Content, "depth beyond history length clamps to the very front")
}

func TestResolveGreeting_NegativeIndexSelectsFirstMessage(t *testing.T) {
	idx := -1
	ctx := &BuildContext{
		Character: &Character{FirstMessage: "Hello there."},
		Options:   BuildOptions{GreetingIndex: &idx},
	}
	plan := &Plan{}
	resolveGreeting(ctx, plan)
	assert.Equal(t, "Hello there.", plan.Greeting)
	require.NotNil(t, plan.GreetingIndex)
	assert.Equal(t, -1, *plan.GreetingIndex)
}

func TestResolveGreeting_OutOfRangeIndexWarnsAndLeavesGreetingEmpty(t *testing.T) {
	idx := 5
	ctx := &BuildContext{
		Character: &Character{AlternateGreetings: []string{"only one"}},
		Options:   BuildOptions{GreetingIndex: &idx},
	}
	plan := &Plan{}
	resolveGreeting(ctx, plan)
	assert.Empty(t, plan.Greeting)
	assert.Nil(t, plan.GreetingIndex)
	assert.Len(t, ctx.warnings, 1)
}

func TestResolveGreeting_NilIndexLeavesPlanUntouched(t *testing.T) {
	ctx := &BuildContext{Character: &Character{FirstMessage: "Hello."}}
	plan := &Plan{}
	resolveGreeting(ctx, plan)
	assert.Empty(t, plan.Greeting)
	assert.Nil(t, plan.GreetingIndex)
}
