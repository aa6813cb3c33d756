package tavernkit

// EntrySource distinguishes a lorebook entry's origin, part of its stable
// identity key (source, book_name, uid).
type EntrySource string

const (
	SourceCharacter EntrySource = "character"
	SourceGlobal    EntrySource = "global"
)

// WIPosition is where a lorebook entry (or pinned world-info slot) is
// anchored in the assembled prompt.
type WIPosition string

const (
	PosBeforeCharDefs        WIPosition = "before_char_defs"
	PosAfterCharDefs         WIPosition = "after_char_defs"
	PosBeforeExampleMessages WIPosition = "before_example_messages"
	PosAfterExampleMessages  WIPosition = "after_example_messages"
	PosTopOfAN               WIPosition = "top_of_an"
	PosBottomOfAN            WIPosition = "bottom_of_an"
	PosAtDepth               WIPosition = "at_depth"
	PosOutlet                WIPosition = "outlet"
)

// SelectiveLogic combines primary and secondary key matches for a
// "selective" lorebook entry.
type SelectiveLogic string

const (
	LogicAndAny SelectiveLogic = "and_any"
	LogicAndAll SelectiveLogic = "and_all"
	LogicNotAny SelectiveLogic = "not_any"
	LogicNotAll SelectiveLogic = "not_all"
)

// GenerationType is the intent of a build call; it gates entry/prompt-entry
// triggers and alters plan assembly (§4.H).
type GenerationType string

const (
	GenNormal      GenerationType = "normal"
	GenContinue    GenerationType = "continue"
	GenImpersonate GenerationType = "impersonate"
	GenSwipe       GenerationType = "swipe"
	GenRegenerate  GenerationType = "regenerate"
	GenQuiet       GenerationType = "quiet"
)

// EntryKey is the stable identity of a lorebook entry across a build:
// (source, book_name, uid). uid uniqueness is per book.
type EntryKey struct {
	Source EntrySource
	Book   string
	UID    string
}

// MatchFields toggles which character/persona text fields an entry also
// scans, beyond chat history.
type MatchFields struct {
	Description  bool
	Personality  bool
	Scenario     bool
	CreatorNotes bool
	Persona      bool
	DepthPrompt  bool
}

// Entry is a single lorebook ("world info") entry.
type Entry struct {
	UID  string      `yaml:"uid"`
	Name string      `yaml:"name,omitempty"`

	// Matching.
	Keys            []string       `yaml:"keys"`
	SecondaryKeys   []string       `yaml:"secondary_keys,omitempty"`
	CaseSensitive   bool           `yaml:"case_sensitive,omitempty"`
	MatchWholeWords bool           `yaml:"match_whole_words,omitempty"`
	Selective       bool           `yaml:"selective,omitempty"`
	SelectiveLogic  SelectiveLogic `yaml:"selective_logic,omitempty"`
	UseRegex        bool           `yaml:"use_regex,omitempty"`
	Match           MatchFields    `yaml:"match,omitempty"`

	// Activation.
	Enabled             bool   `yaml:"enabled"`
	Constant            bool   `yaml:"constant,omitempty"`
	Probability         int    `yaml:"probability,omitempty"`
	UseProbability      bool   `yaml:"use_probability,omitempty"`
	Group               string `yaml:"group,omitempty"`
	GroupWeight         int    `yaml:"group_weight,omitempty"`
	GroupOverride       bool   `yaml:"group_override,omitempty"`
	UseGroupScoring     bool   `yaml:"use_group_scoring,omitempty"`
	Delay               int    `yaml:"delay,omitempty"`
	Sticky              int    `yaml:"sticky,omitempty"`
	Cooldown            int    `yaml:"cooldown,omitempty"`
	DelayUntilRecursion bool   `yaml:"delay_until_recursion,omitempty"`

	// Placement.
	Position       WIPosition `yaml:"position"`
	Depth          int        `yaml:"depth,omitempty"`
	Role           Role       `yaml:"role,omitempty"`
	OutletName     string     `yaml:"outlet_name,omitempty"`
	InsertionOrder int        `yaml:"insertion_order"`

	// Budget & recursion.
	IgnoreBudget      bool `yaml:"ignore_budget,omitempty"`
	PreventRecursion  bool `yaml:"prevent_recursion,omitempty"`
	ExcludeRecursion  bool `yaml:"exclude_recursion,omitempty"`
	ScanDepthOverride *int `yaml:"scan_depth,omitempty"`

	// Triggers: empty means "all".
	Triggers []GenerationType `yaml:"triggers,omitempty"`

	Content string `yaml:"content"`

	// SemanticQuery opts this entry into vector-similarity activation
	// (extension of §4.C's matching step; see SemanticMatcher) alongside
	// its keyword/regex keys. Entries that leave this empty are unaffected.
	SemanticQuery     string  `yaml:"semantic_query,omitempty"`
	SemanticThreshold float64 `yaml:"semantic_threshold,omitempty"`
}

// SemanticMatcher is an optional extension point for the matching step: an
// entry can activate via vector-similarity against the scan buffer instead
// of, or in addition to, substring/regex key matching. Implementations
// (e.g. internal/lore/semantic) own embedding generation and storage; the
// core only ever sees a yes/no verdict.
type SemanticMatcher interface {
	Matches(scanText, query string, threshold float64) (bool, error)
}

// MatchesTrigger reports whether this entry participates in the given
// generation type (empty Triggers means "all").
func (e *Entry) MatchesTrigger(gt GenerationType) bool {
	if len(e.Triggers) == 0 {
		return true
	}
	for _, t := range e.Triggers {
		if t == gt {
			return true
		}
	}
	return false
}

// LorebookSettings holds book-level scanning/budget configuration.
type LorebookSettings struct {
	ScanDepth          int  `yaml:"scan_depth,omitempty"`
	TokenBudget        int  `yaml:"token_budget,omitempty"`
	RecursiveScanning  bool `yaml:"recursive_scanning,omitempty"`
}

// Lorebook is a named collection of Entry.
type Lorebook struct {
	Name     string           `yaml:"name"`
	Entries  []Entry          `yaml:"entries"`
	Settings LorebookSettings `yaml:"settings,omitempty"`
}
