// Command tavernkit-build is a minimal demo driver for the tavernkit
// library, grounded on the teacher's cmd/agent-demo/main.go (plain func
// main, manual wiring, a hardcoded scenario) and cmd/migrateprojects'
// flag-based CLI surface (stdlib flag, no framework).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tavernkit"
	"tavernkit/internal/presetcfg"
)

func main() {
	presetPath := flag.String("preset", "", "path to a preset YAML file (optional; a minimal default is used otherwise)")
	lorebookPath := flag.String("lorebook", "", "path to a lorebook YAML file (optional)")
	userMessage := flag.String("message", "Hello there!", "the pending user message to build a prompt for")
	dialect := flag.String("dialect", string(tavernkit.DialectOpenAI), "output dialect: chat-openai, chat-anthropic, text, cohere, google, ai21, mistral, xai")
	model := flag.String("model", "gpt-4o", "model name, used for BPE token estimation")
	flag.Parse()

	// .env is optional; this CLI is a demo harness, not a service, so a
	// missing file is not an error.
	_ = godotenv.Load()

	ctx := context.Background()

	preset := defaultPreset()
	if *presetPath != "" {
		loaded, err := presetcfg.LoadPreset(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tavernkit-build: load preset: %v\n", err)
			os.Exit(1)
		}
		preset = loaded
	}

	character := &tavernkit.Character{
		Name:         "Aria",
		Description:  "Aria is a curious starship navigator.",
		Personality:  "Inquisitive, dry-witted, loyal.",
		Scenario:     "Aboard the freighter Halcyon, mid-journey.",
		FirstMessage: "Status check. What do you need from navigation?",
	}

	if *lorebookPath != "" {
		lore, err := presetcfg.LoadLorebook(*lorebookPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tavernkit-build: load lorebook: %v\n", err)
			os.Exit(1)
		}
		character.EmbeddedLorebook = lore
	}

	user := tavernkit.User{Name: "Captain"}

	history := tavernkit.NewSliceHistory([]tavernkit.ChatMessage{
		{ID: "1", Role: tavernkit.RoleUser, Content: "How far to the next waypoint?"},
		{ID: "2", Role: tavernkit.RoleAssistant, Content: "Forty hours, give or take a solar flare."},
	})

	estimator, err := tavernkit.NewBPEEstimator(*model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tavernkit-build: bpe estimator unavailable (%v), falling back to heuristic estimator\n", err)
		estimator = tavernkit.NewHeuristicEstimator()
	}

	plan, err := tavernkit.Build(tavernkit.BuildInput{
		Character:   character,
		User:        user,
		History:     history,
		Preset:      preset,
		Estimator:   estimator,
		Injections:  tavernkit.NewInjectionRegistry(),
		Macros:      tavernkit.NewMacroRegistry(),
		Hooks:       tavernkit.NewHookRegistry(),
		UserMessage: *userMessage,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tavernkit-build: build failed: %v\n", err)
		os.Exit(1)
	}

	messages, err := plan.ToMessages(tavernkit.Dialect(*dialect), tavernkit.DialectOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tavernkit-build: dialect adaptation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Assembled plan:")
	fmt.Printf("  blocks:   %d\n", len(plan.Blocks))
	fmt.Printf("  warnings: %d\n", len(plan.Warnings))
	for _, w := range plan.Warnings {
		fmt.Printf("    - %s\n", w)
	}

	fmt.Println()
	fmt.Println("Dialect-adapted output:")
	fmt.Printf("%+v\n", messages)

	_ = ctx
}

func defaultPreset() *tavernkit.Preset {
	return &tavernkit.Preset{
		ContextWindowTokens:    8192,
		ReservedResponseTokens: 512,
		ExamplesBehavior:       tavernkit.ExamplesGraduallyPushOut,
		PromptEntries: []tavernkit.PromptEntry{
			{ID: tavernkit.PinnedMainPrompt, Enabled: true, Pinned: true},
			{ID: tavernkit.PinnedCharacterDescription, Enabled: true, Pinned: true},
			{ID: tavernkit.PinnedCharacterPersonality, Enabled: true, Pinned: true},
			{ID: tavernkit.PinnedScenario, Enabled: true, Pinned: true},
			{ID: tavernkit.PinnedChatHistory, Enabled: true, Pinned: true},
		},
	}
}
