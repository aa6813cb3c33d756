package tavernkit

import "encoding/json"

// Dialect names a wire-format projection of a Block sequence (§4.J).
type Dialect string

const (
	DialectOpenAI    Dialect = "chat-openai"
	DialectAnthropic Dialect = "chat-anthropic"
	DialectText      Dialect = "text"
	DialectCohere    Dialect = "cohere"
	DialectGoogle    Dialect = "google"
	DialectAI21      Dialect = "ai21"
	DialectMistral   Dialect = "mistral"
	DialectXAI       Dialect = "xai"
)

// TrimReportEntry records one block evicted by the trimmer (§7).
type TrimReportEntry struct {
	BlockID string      `json:"block_id"`
	Slot    string      `json:"slot"`
	Group   BudgetGroup `json:"group"`
	Reason  string      `json:"reason"`
	Tokens  int         `json:"tokens"`
}

// OutputMessage is a role-tagged message ready to submit to an LLM.
type OutputMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Plan is the output of a build (§3, §6).
type Plan struct {
	Blocks        []Block           `json:"-"`
	Messages      []OutputMessage   `json:"messages"`
	Warnings      []string          `json:"warnings,omitempty"`
	TrimReport    []TrimReportEntry `json:"trim_report,omitempty"`
	Greeting      string            `json:"greeting,omitempty"`
	GreetingIndex *int              `json:"greeting_index,omitempty"`
}

// ToMessages projects Plan.Blocks into a dialect-specific wire shape. This
// is the only boundary-crossing serialization step (§6).
func (p *Plan) ToMessages(dialect Dialect, opts DialectOptions) (any, error) {
	return adaptDialect(p.Blocks, dialect, opts)
}

// blocksToMessages projects the final, post-trim Blocks into the
// dialect-neutral OutputMessage shape that backs Plan.Messages: every
// dialect adapter is a reshaping of exactly this (role, content, name)
// sequence, so it also serves as Plan's own JSON-friendly view of the
// build's result.
func blocksToMessages(blocks []Block) []OutputMessage {
	out := make([]OutputMessage, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, OutputMessage{Role: b.Role, Content: b.Content, Name: b.Name})
	}
	return out
}

// ToJSON returns a deterministic JSON projection of the plan (messages,
// warnings, trim report, greeting) for archival/analytics sinks. It is a
// plain json.Marshal of the Plan (Messages is the blocksToMessages view;
// ToMessages is not called), a serialization convenience, not a new
// semantic surface (SPEC_FULL §SUPPLEMENTED FEATURES).
func (p *Plan) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}
