package tavernkit

import "time"

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one turn of chat history. Swipes hold alternate generations
// of the same assistant turn; ActiveSwipeIndex selects which one is "live".
type ChatMessage struct {
	ID               string
	Role             Role
	Content          string
	Name             string
	Swipes           []string
	ActiveSwipeIndex int
	Visible          bool
	CreatedAt        time.Time
}

// ActiveContent returns the swipe-resolved content for this message: the
// active swipe if any are recorded, otherwise Content.
func (m ChatMessage) ActiveContent() string {
	if len(m.Swipes) == 0 {
		return m.Content
	}
	idx := m.ActiveSwipeIndex
	if idx < 0 || idx >= len(m.Swipes) {
		idx = len(m.Swipes) - 1
	}
	return m.Swipes[idx]
}

// History is the abstract, read-only (from the core's perspective) chat
// history collaborator. The host owns persistence; tavernkit only reads.
type History interface {
	Messages() []ChatMessage
	Len() int
	LastUser() (ChatMessage, bool)
	LastAssistant() (ChatMessage, bool)
}

// SliceHistory is a simple in-memory History backed by a slice, useful for
// tests and for hosts that already hold the whole transcript in memory.
type SliceHistory struct {
	messages []ChatMessage
}

// NewSliceHistory builds a History from an ordered slice of messages.
func NewSliceHistory(messages []ChatMessage) *SliceHistory {
	cp := make([]ChatMessage, len(messages))
	copy(cp, messages)
	return &SliceHistory{messages: cp}
}

func (h *SliceHistory) Messages() []ChatMessage { return h.messages }

func (h *SliceHistory) Len() int { return len(h.messages) }

func (h *SliceHistory) LastUser() (ChatMessage, bool) {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == RoleUser {
			return h.messages[i], true
		}
	}
	return ChatMessage{}, false
}

func (h *SliceHistory) LastAssistant() (ChatMessage, bool) {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == RoleAssistant {
			return h.messages[i], true
		}
	}
	return ChatMessage{}, false
}

// UserMessageCount returns how many user-authored (visible) messages are in
// history; used by the Author's Note frequency gate (§4.E).
func UserMessageCount(h History) int {
	if h == nil {
		return 0
	}
	n := 0
	for _, m := range h.Messages() {
		if m.Role == RoleUser && m.Visible {
			n++
		}
	}
	return n
}
