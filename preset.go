package tavernkit

// ExamplesBehavior controls how example dialogue degrades under budget
// pressure (§4.I).
type ExamplesBehavior string

const (
	ExamplesGraduallyPushOut ExamplesBehavior = "gradually_push_out"
	ExamplesAlwaysKeep      ExamplesBehavior = "always_keep"
	ExamplesDisabled        ExamplesBehavior = "disabled"
)

// AuthorsNotePosition controls where the author's note lands relative to
// the main prompt / chat history.
type AuthorsNotePosition string

const (
	ANInPrompt    AuthorsNotePosition = "in_prompt"
	ANInChat      AuthorsNotePosition = "in_chat"
	ANBeforePrompt AuthorsNotePosition = "before_prompt"
)

// AuthorsNoteConfig configures the author's note pinned entry.
type AuthorsNoteConfig struct {
	Text        string              `yaml:"text,omitempty"`
	Frequency   int                 `yaml:"frequency,omitempty"`
	Position    AuthorsNotePosition `yaml:"position,omitempty"`
	Depth       int                 `yaml:"depth,omitempty"`
	Role        Role                `yaml:"role,omitempty"`
	AllowWIScan bool                `yaml:"allow_wi_scan,omitempty"`
}

// WorldInfoConfig bundles the preset's lore-engine knobs (§3 Preset).
type WorldInfoConfig struct {
	Depth                 int  `yaml:"depth,omitempty"`
	Budget                int  `yaml:"budget,omitempty"`
	BudgetCap             int  `yaml:"budget_cap,omitempty"`
	IncludeNames          bool `yaml:"include_names,omitempty"`
	MinActivations        int  `yaml:"min_activations,omitempty"`
	MinActivationsDepthMax int `yaml:"min_activations_depth_max,omitempty"`
	UseGroupScoring       bool `yaml:"use_group_scoring,omitempty"`
}

// PromptEntryPosition is relative (anchored, possibly multi-block) or
// in_chat (carried forward to depth-based interleaving).
type PromptEntryPosition string

const (
	PositionRelative PromptEntryPosition = "relative"
	PositionInChat   PromptEntryPosition = "in_chat"
)

// Well-known pinned PromptEntry ids (§3 PromptEntry).
const (
	PinnedMainPrompt                   = "main_prompt"
	PinnedPersonaDescription           = "persona_description"
	PinnedCharacterDescription         = "character_description"
	PinnedCharacterPersonality         = "character_personality"
	PinnedScenario                     = "scenario"
	PinnedChatExamples                 = "chat_examples"
	PinnedChatHistory                  = "chat_history"
	PinnedWorldInfoBeforeCharDefs      = "world_info_before_char_defs"
	PinnedWorldInfoAfterCharDefs       = "world_info_after_char_defs"
	PinnedWorldInfoBeforeExamples      = "world_info_before_example_messages"
	PinnedWorldInfoAfterExamples       = "world_info_after_example_messages"
	PinnedAuthorsNote                  = "authors_note"
	PinnedPostHistoryInstructions      = "post_history_instructions"
	PinnedEnhanceDefinitions           = "enhance_definitions"
	PinnedAuxiliaryPrompt              = "auxiliary_prompt"
)

// ConditionPredicate is one entry in a PromptEntry's condition list.
type ConditionPredicate struct {
	// Chat keyword/regex predicate.
	ChatContains string `yaml:"chat_contains,omitempty"`
	ChatRegex    string `yaml:"chat_regex,omitempty"`
	DepthOverride *int  `yaml:"depth_override,omitempty"`

	// Turn-count predicate.
	TurnMin   *int `yaml:"turn_min,omitempty"`
	TurnMax   *int `yaml:"turn_max,omitempty"`
	TurnEquals *int `yaml:"turn_equals,omitempty"`
	TurnEvery *int `yaml:"turn_every,omitempty"`

	// Character/user attribute predicate.
	TagsAny         []string `yaml:"tags_any,omitempty"`
	TagsAll         []string `yaml:"tags_all,omitempty"`
	PersonaContains string   `yaml:"persona_contains,omitempty"`
}

// PromptEntry is one ordered entry in preset.prompt_entries (§3).
type PromptEntry struct {
	ID              string               `yaml:"id"`
	Name            string               `yaml:"name,omitempty"`
	Enabled         bool                 `yaml:"enabled"`
	Pinned          bool                 `yaml:"pinned,omitempty"`
	Role            Role                 `yaml:"role,omitempty"`
	Position        PromptEntryPosition  `yaml:"position,omitempty"`
	Depth           int                  `yaml:"depth,omitempty"`
	Order           int                  `yaml:"order,omitempty"`
	Content         string               `yaml:"content,omitempty"`
	Triggers        []GenerationType     `yaml:"triggers,omitempty"`
	ForbidOverrides bool                 `yaml:"forbid_overrides,omitempty"`
	Conditions      []ConditionPredicate `yaml:"conditions,omitempty"`
}

// MatchesTrigger reports whether this prompt entry participates in the
// given generation type (empty Triggers means "all").
func (p *PromptEntry) MatchesTrigger(gt GenerationType) bool {
	if len(p.Triggers) == 0 {
		return true
	}
	for _, t := range p.Triggers {
		if t == gt {
			return true
		}
	}
	return false
}

// Preset bundles every ordering/budget/formatting knob (§3).
type Preset struct {
	MainPrompt              string `yaml:"main_prompt,omitempty"`
	PostHistoryInstructions string `yaml:"post_history_instructions,omitempty"`

	NewChatPrompt       string `yaml:"new_chat_prompt,omitempty"`
	NewGroupChatPrompt  string `yaml:"new_group_chat_prompt,omitempty"`
	NewExampleChat      string `yaml:"new_example_chat,omitempty"`
	GroupNudgePrompt    string `yaml:"group_nudge_prompt,omitempty"`
	ContinueNudgePrompt string `yaml:"continue_nudge_prompt,omitempty"`
	ImpersonationPrompt string `yaml:"impersonation_prompt,omitempty"`

	SquashSystemMessages bool   `yaml:"squash_system_messages,omitempty"`
	ContinuePrefill      bool   `yaml:"continue_prefill,omitempty"`
	ContinuePostfix      string `yaml:"continue_postfix,omitempty"`
	ReplaceEmptyMessage  string `yaml:"replace_empty_message,omitempty"`

	PreferCharPrompt       bool `yaml:"prefer_char_prompt,omitempty"`
	PreferCharInstructions bool `yaml:"prefer_char_instructions,omitempty"`

	CharacterLoreInsertionStrategy string `yaml:"character_lore_insertion_strategy,omitempty"`

	PromptEntries []PromptEntry `yaml:"prompt_entries"`

	ContextWindowTokens   int `yaml:"context_window_tokens,omitempty"`
	ReservedResponseTokens int `yaml:"reserved_response_tokens,omitempty"`
	MessageTokenOverhead  int `yaml:"message_token_overhead,omitempty"`

	ExamplesBehavior ExamplesBehavior `yaml:"examples_behavior,omitempty"`

	WorldInfo WorldInfoConfig `yaml:"world_info,omitempty"`

	WIFormat           string `yaml:"wi_format,omitempty"`
	ScenarioFormat     string `yaml:"scenario_format,omitempty"`
	PersonalityFormat  string `yaml:"personality_format,omitempty"`

	AuthorsNote AuthorsNoteConfig `yaml:"authors_note,omitempty"`
}

// MaxInputTokens returns the effective trim budget: context window minus
// reserved response tokens. Zero means "no budget configured".
func (p *Preset) MaxInputTokens() int {
	if p.ContextWindowTokens <= 0 {
		return 0
	}
	max := p.ContextWindowTokens - p.ReservedResponseTokens
	if max < 0 {
		return 0
	}
	return max
}

// WorldInfoBudgetTokens resolves min(budget_cap, budget% of context window).
func (p *Preset) WorldInfoBudgetTokens() int {
	cap := p.WorldInfo.BudgetCap
	pct := 0
	if p.ContextWindowTokens > 0 {
		pct = p.WorldInfo.Budget * p.ContextWindowTokens / 100
	}
	if cap <= 0 {
		return pct
	}
	if pct <= 0 {
		return cap
	}
	if pct < cap {
		return pct
	}
	return cap
}
