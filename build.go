package tavernkit

import (
	"context"
	"fmt"
	"math/rand"

	"tavernkit/internal/obs"
)

// BuildInput bundles everything a single Build call needs (§6 External
// Interfaces). Character, User and History are mandatory; everything else
// has a usable zero value.
type BuildInput struct {
	Character *Character
	User      User
	History   History
	Preset    *Preset
	Group     *GroupContext

	Estimator Estimator

	Injections *InjectionRegistry
	Macros     *MacroRegistry
	Hooks      *HookRegistry

	LocalVars  VariableStore
	GlobalVars VariableStore

	UserMessage string

	Options BuildOptions
}

// BuildContext is the mutable, single-build scratch space threaded through
// every stage (§3 Ownership summary, §5). It is discarded at the end of the
// build; nothing outlives it except what's copied into Plan.
type BuildContext struct {
	Character *Character
	User      User
	Group     *GroupContext
	History   History
	Preset    *Preset

	Estimator Estimator

	Injections *InjectionRegistry
	Macros     *MacroRegistry
	Hooks      *HookRegistry

	LocalVars  VariableStore
	GlobalVars VariableStore

	UserMessage string
	Options     BuildOptions

	rng *rand.Rand

	// Scratch populated across stages.
	lorebooks   []loreBook // merged character/global/persona books, tagged
	loreBlocks  []Block    // output of stage C
	entryBlocks []Block    // output of stage E
	injBlocks   []Block    // output of stage F
	scanBuffer  string     // built by stage C, consulted by stage E's entry conditions
	outlets     map[string][]string
	inChatBlocks []Block  // merged in-chat blocks carried forward from stage G to H

	warnings   []string
	trimReport []TrimReportEntry
}

type loreBook struct {
	source EntrySource
	book   *Lorebook
}

func newBuildContext(in BuildInput) *BuildContext {
	seed := in.Options.RNGSeed
	if seed == 0 {
		seed = in.Options.now().UnixNano()
	}
	ctx := &BuildContext{
		Character:   in.Character,
		User:        in.User,
		Group:       in.Group,
		History:     in.History,
		Preset:      in.Preset,
		Estimator:   in.Estimator,
		Injections:  in.Injections,
		Macros:      in.Macros,
		Hooks:       in.Hooks,
		LocalVars:   in.LocalVars,
		GlobalVars:  in.GlobalVars,
		UserMessage: in.UserMessage,
		Options:     in.Options,
		rng:         rand.New(rand.NewSource(seed)),
		outlets:     make(map[string][]string),
	}
	if ctx.Preset == nil {
		ctx.Preset = &Preset{}
	}
	if ctx.Estimator == nil {
		ctx.Estimator = NewHeuristicEstimator()
	}
	if ctx.Injections == nil {
		ctx.Injections = NewInjectionRegistry()
	}
	if ctx.Macros == nil {
		ctx.Macros = NewMacroRegistry()
	}
	if ctx.Hooks == nil {
		ctx.Hooks = NewHookRegistry()
	}
	if ctx.LocalVars == nil {
		ctx.LocalVars = NewInMemoryVariableStore()
	}
	if ctx.GlobalVars == nil {
		ctx.GlobalVars = NewInMemoryVariableStore()
	}
	for _, lb := range in.Options.GlobalLorebooks {
		if lb != nil {
			ctx.lorebooks = append(ctx.lorebooks, loreBook{source: SourceGlobal, book: lb})
		}
	}
	if in.Character != nil && in.Character.EmbeddedLorebook != nil {
		ctx.lorebooks = append(ctx.lorebooks, loreBook{source: SourceCharacter, book: in.Character.EmbeddedLorebook})
	}
	if in.Options.PersonaLorebook != nil {
		ctx.lorebooks = append(ctx.lorebooks, loreBook{source: SourceGlobal, book: in.Options.PersonaLorebook})
	}
	return ctx
}

func (ctx *BuildContext) warn(format string, args ...any) {
	ctx.warnings = append(ctx.warnings, fmt.Sprintf(format, args...))
}

func (ctx *BuildContext) genType() GenerationType {
	return ctx.Options.generationType()
}

// Build runs the full pipeline (§2 Control flow):
// hooks.before_build → Lore → Entries → Injection → Compilation →
// Macro expansion → Plan assembly → Trimming → hooks.after_build.
func Build(in BuildInput) (*Plan, error) {
	if in.Character == nil {
		return nil, ErrMissingCharacter
	}
	if in.User.Name == "" && in.Options.Strict {
		return nil, &StrictModeViolationError{Reason: "user.name is empty"}
	}

	ctx := newBuildContext(in)

	buildID := newBlockID()
	logger := obs.ForBuild(buildID)
	octx, span := obs.StartStage(context.Background(), "build")
	defer span.End()
	logger.Debug().Str("character", charName(ctx)).Msg("build started")

	before, after := ctx.Hooks.snapshot()
	for _, h := range before {
		if err := h(ctx); err != nil {
			ctx.Injections.PruneEphemeral()
			return nil, fmt.Errorf("tavernkit: before_build hook: %w", err)
		}
	}

	if err := runLoreStage(ctx); err != nil {
		ctx.Injections.PruneEphemeral()
		return nil, err
	}
	obs.RecordBlocksEmitted(octx, "lore", len(ctx.loreBlocks))
	if err := runPromptEntryStage(ctx); err != nil {
		ctx.Injections.PruneEphemeral()
		return nil, err
	}
	obs.RecordBlocksEmitted(octx, "prompt_entries", len(ctx.entryBlocks))
	runInjectionStage(ctx)
	obs.RecordBlocksEmitted(octx, "injections", len(ctx.injBlocks))

	blocks := compileBlocks(ctx)

	for i := range blocks {
		expanded, err := expandMacros(ctx, blocks[i].Content, true)
		if err != nil {
			ctx.Injections.PruneEphemeral()
			return nil, err
		}
		blocks[i].Content = expanded
	}

	plan, err := assemblePlan(ctx, blocks)
	if err != nil {
		ctx.Injections.PruneEphemeral()
		return nil, err
	}

	trimPlan(ctx, plan)
	for _, t := range ctx.trimReport {
		obs.RecordBlocksEvicted(octx, t.Reason, 1)
	}

	plan.Messages = blocksToMessages(plan.Blocks)
	plan.Warnings = append(plan.Warnings, ctx.warnings...)
	plan.TrimReport = append(plan.TrimReport, ctx.trimReport...)

	for _, h := range after {
		if err := h(ctx, plan); err != nil {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("after_build hook: %v", err))
		}
	}

	logger.Debug().Int("blocks", len(plan.Blocks)).Int("warnings", len(plan.Warnings)).Msg("build finished")
	ctx.Injections.PruneEphemeral()
	return plan, nil
}
