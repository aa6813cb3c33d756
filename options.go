package tavernkit

import "time"

// BuildOptions parameterizes a single Build call (§5, §6).
type BuildOptions struct {
	// GenerationType selects which entry/prompt-entry triggers fire and how
	// plan assembly shapes the tail of history (§4.H). Defaults to GenNormal.
	GenerationType GenerationType

	// MacroVars supplies host values for {{lastMessageId}},
	// {{firstIncludedMessageId}}, {{firstDisplayedMessageId}} and
	// {{idle_duration}} for this build only. {{getvar::}} does not read it.
	MacroVars map[string]string

	// GlobalLorebooks are lorebooks active across all characters, scanned
	// alongside the character's embedded lorebook and any persona lorebook.
	GlobalLorebooks []*Lorebook

	// PersonaLorebook is the user persona's own lorebook, if any.
	PersonaLorebook *Lorebook

	// RNGSeed seeds math/rand for any macro that needs randomness generally
	// ({{random}}, {{roll}}); zero means "seed from wall-clock".
	RNGSeed int64

	// PickSeed, if non-zero, is mixed into the FNV-1a hash that derives a
	// deterministic per-invocation seed for {{pick}} (DESIGN.md Open
	// Question decisions). Zero falls back to RNGSeed.
	PickSeed int64

	// Now overrides time.Now() for {{time}}/{{date}}/{{isotime}}/{{isodate}}
	// and, when RNGSeed is zero, for the wall-clock RNG seed. Zero means
	// real time. Sticky/cooldown expiry counts chat messages, not time.
	Now time.Time

	// Strict, when true, turns ambiguous-input situations that would
	// otherwise be resolved by a documented default into a
	// StrictModeViolationError instead (§7).
	Strict bool

	// DryRun skips persisting lore timed-effect state (sticky/cooldown) to
	// the VariableStore. Macro-driven variable writes ({{setvar}} and
	// friends) still reach the store.
	DryRun bool

	// GreetingIndex selects which of Character.AlternateGreetings (or the
	// first message, at index -1) seeds a brand-new chat. Nil means "no
	// greeting requested".
	GreetingIndex *int

	// MaxRecursionSteps bounds lore recursion passes (§4.C). Zero uses the
	// documented default of 3; values above 10 are clamped to 10.
	MaxRecursionSteps int

	// SemanticMatcher, if set, lets entries with a non-empty
	// Entry.SemanticQuery activate via vector similarity against the scan
	// buffer, alongside the documented keyword/regex matching (§4.C
	// extension point; see internal/lore/semantic for a Qdrant-backed
	// implementation).
	SemanticMatcher SemanticMatcher
}

func (o BuildOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o BuildOptions) generationType() GenerationType {
	if o.GenerationType == "" {
		return GenNormal
	}
	return o.GenerationType
}

func (o BuildOptions) maxRecursionSteps() int {
	switch {
	case o.MaxRecursionSteps <= 0:
		return 3
	case o.MaxRecursionSteps > 10:
		return 10
	default:
		return o.MaxRecursionSteps
	}
}
