package tavernkit

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// macroToken matches the first "}}" following a "{{", lazily — not balanced
// bracket matching. This reproduces the legacy left-to-right, non-recursive
// scan described in §4.B/§9: nested macros resolve across passes, not
// within one.
var macroToken = regexp.MustCompile(`\{\{([\s\S]*?)\}\}`)

const macroPasses = 4

// expandMacros runs the fixed number of passes over s (§4.B). allowOutlets
// gates `{{outlet::name}}`, which only resolves during the post-compilation
// macro pass (§4.G').
func expandMacros(ctx *BuildContext, s string, allowOutlets bool) (string, error) {
	for pass := 0; pass < macroPasses; pass++ {
		next, changed := expandPass(ctx, s, allowOutlets, pass)
		s = next
		if !changed {
			break
		}
	}
	// Final-pass-only macros: {{trim}} removes surrounding newlines.
	s = strings.ReplaceAll(s, "{{trim}}", "")
	s = strings.Trim(s, "\n")
	return s, nil
}

func expandPass(ctx *BuildContext, s string, allowOutlets bool, pass int) (string, bool) {
	matches := macroToken.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, false
	}
	var b strings.Builder
	last := 0
	changed := false
	for _, m := range matches {
		start, end := m[0], m[1]
		inner := s[m[2]:m[3]]
		b.WriteString(s[last:start])
		repl, ok := resolveMacro(ctx, inner, s, start, allowOutlets, pass)
		if ok {
			b.WriteString(repl)
			changed = true
		} else {
			b.WriteString(s[start:end]) // unknown: left verbatim for a later pass
		}
		last = end
	}
	b.WriteString(s[last:])
	return b.String(), changed
}

// resolveMacro dispatches one `{{inner}}` occurrence (inner excludes the
// braces). raw/offset are the enclosing template and this token's start
// offset, used only to derive {{pick}}'s deterministic seed.
func resolveMacro(ctx *BuildContext, inner, raw string, offset int, allowOutlets bool, pass int) (string, bool) {
	if strings.HasPrefix(inner, "//") {
		return "", true // comment: stripped
	}
	name, args := splitMacro(inner)
	lname := strings.ToLower(name)

	switch lname {
	case "char":
		return charName(ctx), true
	case "user":
		return userName(ctx), true
	case "persona":
		return ctx.User.PersonaText, true
	case "description":
		return ctx.Character.Description, true
	case "personality":
		return ctx.Character.Personality, true
	case "scenario":
		return ctx.Character.Scenario, true
	case "system":
		return ctx.Character.SystemPrompt, true
	case "charprompt":
		return ctx.Character.SystemPrompt, true
	case "charjailbreak", "charinstruction":
		return ctx.Character.PostHistoryInstructions, true
	case "mesexamples":
		blocks := parseExampleDialogue(ctx.Character.ExampleDialogue, userName(ctx), charName(ctx))
		var parts []string
		for _, bl := range blocks {
			parts = append(parts, fmt.Sprintf("%s: %s", bl.Name, bl.Content))
		}
		return strings.Join(parts, "\n"), true
	case "mesexamplesraw":
		return ctx.Character.ExampleDialogue, true
	case "charifnotgroup":
		if ctx.Group == nil {
			return charName(ctx), true
		}
		return "", true
	case "group":
		if ctx.Group == nil {
			return "", true
		}
		return strings.Join(ctx.Group.Members, ", "), true
	case "groupnotmuted":
		if ctx.Group == nil {
			return "", true
		}
		return strings.Join(ctx.Group.NotMuted(), ", "), true
	case "notchar":
		if ctx.Group == nil {
			return "", true
		}
		var others []string
		for _, m := range ctx.Group.Members {
			if m != ctx.Group.CurrentCharacter {
				others = append(others, m)
			}
		}
		return strings.Join(others, ", "), true
	case "charversion":
		return ctx.Character.CharacterVersion, true
	case "chardepthprompt":
		if ctx.Character.DepthPrompt == nil {
			return "", true
		}
		return ctx.Character.DepthPrompt.Text, true
	case "creatornotes":
		return ctx.Character.CreatorNotes, true
	case "input":
		return ctx.UserMessage, true
	case "maxprompt":
		return strconv.Itoa(ctx.Preset.MaxInputTokens()), true
	case "original":
		// One-shot: callers compose it in before expansion; by the time we
		// get here with no surrounding handling it simply vanishes.
		return "", true
	case "newline":
		return "\n", true
	case "noop":
		return "", true
	case "trim":
		return "{{trim}}", true // deferred to the post-loop final strip
	case "lastmessage":
		if m, ok := lastMessage(ctx); ok {
			return m.ActiveContent(), true
		}
		return "", true
	case "lastusermessage":
		if m, ok := ctx.History.LastUser(); ok {
			return m.ActiveContent(), true
		}
		return "", true
	case "lastcharmessage":
		if m, ok := ctx.History.LastAssistant(); ok {
			return m.ActiveContent(), true
		}
		return "", true
	case "lastmessageid":
		return macroVarOr(ctx, "lastMessageId", strconv.Itoa(max(ctx.History.Len()-1, 0))), true
	case "firstincludedmessageid":
		return macroVarOr(ctx, "firstIncludedMessageId", "0"), true
	case "firstdisplayedmessageid":
		return macroVarOr(ctx, "firstDisplayedMessageId", "0"), true
	case "idle_duration":
		return macroVarOr(ctx, "idle_duration", "0"), true
	case "date":
		return ctx.Options.now().Format("January 2, 2006"), true
	case "time":
		return ctx.Options.now().Format("3:04 PM"), true
	case "weekday":
		return ctx.Options.now().Format("Monday"), true
	case "isodate":
		return ctx.Options.now().Format("2006-01-02"), true
	case "isotime":
		return ctx.Options.now().Format("15:04:05"), true
	case "datetimeformat":
		if len(args) == 0 {
			return "", true
		}
		return goTimeFormat(ctx.Options.now(), args[0]), true
	case "banned":
		// Accounted into Plan.warnings (SPEC_FULL supplemented feature);
		// content itself never appears in the prompt.
		ctx.warn("banned phrase encountered: %s", strings.Join(args, " "))
		return "", true
	case "reverse":
		return reverseString(strings.Join(args, "::")), true
	case "outlet":
		if !allowOutlets || len(args) == 0 {
			return "", false
		}
		return strings.Join(ctx.outlets[args[0]], "\n"), true
	case "random":
		if len(args) == 0 {
			return "", true
		}
		opts := splitCSV(args[0])
		if len(opts) == 0 {
			return "", true
		}
		return opts[ctx.rng.Intn(len(opts))], true
	case "pick":
		if len(args) == 0 {
			return "", true
		}
		opts := splitCSV(args[0])
		if len(opts) == 0 {
			return "", true
		}
		idx := pickIndex(ctx, raw, offset, len(opts))
		return opts[idx], true
	case "roll":
		if len(args) == 0 {
			return "", true
		}
		return rollDice(ctx.rng, args[0]), true
	case "setvar":
		if len(args) < 2 {
			return "", true
		}
		ctx.LocalVars.Set(args[0], strings.Join(args[1:], "::"))
		return "", true
	case "getvar":
		if len(args) == 0 {
			return "", true
		}
		v, _ := ctx.LocalVars.Get(args[0])
		return v, true
	case "addvar":
		if len(args) < 2 {
			return "", true
		}
		return accumulateVar(ctx.LocalVars, args[0], args[1], "add"), true
	case "incvar":
		if len(args) < 1 {
			return "", true
		}
		return accumulateVar(ctx.LocalVars, args[0], "1", "add"), true
	case "decvar":
		if len(args) < 1 {
			return "", true
		}
		return accumulateVar(ctx.LocalVars, args[0], "1", "sub"), true
	case "setglobalvar":
		if len(args) < 2 {
			return "", true
		}
		ctx.GlobalVars.Set(args[0], strings.Join(args[1:], "::"))
		return "", true
	case "getglobalvar":
		if len(args) == 0 {
			return "", true
		}
		v, _ := ctx.GlobalVars.Get(args[0])
		return v, true
	case "addglobalvar":
		if len(args) < 2 {
			return "", true
		}
		return accumulateVar(ctx.GlobalVars, args[0], args[1], "add"), true
	default:
		if len(lname) > len("time_utc") && strings.HasPrefix(lname, "time_utc") {
			return timeUTCOffset(ctx.Options.now(), lname), true
		}
		if strings.HasPrefix(lname, "banned ") {
			// Quoted form {{banned "phrase"}}: removed like {{banned::phrase}}.
			ctx.warn("banned phrase encountered: %s", strings.Trim(strings.TrimSpace(name[len("banned "):]), `"`))
			return "", true
		}
		if lname == "timediff" && len(args) >= 2 {
			return humanizeTimeDiff(args[0], args[1]), true
		}
		if fn, ok := ctx.Macros.lookup(name); ok {
			return fn(ctx, MacroInvocation{Name: name, Args: args, Raw: "{{" + inner + "}}"}), true
		}
		return "", false
	}
}

func isBuiltinMacroName(name string) bool {
	switch strings.ToLower(name) {
	case "char", "user", "persona", "description", "personality", "scenario", "system",
		"charprompt", "charjailbreak", "charinstruction", "mesexamples", "mesexamplesraw",
		"charifnotgroup", "group", "groupnotmuted", "notchar", "charversion", "chardepthprompt",
		"creatornotes", "input", "maxprompt", "original", "newline", "trim", "noop",
		"lastmessage", "lastusermessage", "lastcharmessage", "lastmessageid",
		"firstincludedmessageid", "firstdisplayedmessageid", "idle_duration",
		"date", "time", "weekday", "isodate", "isotime", "datetimeformat", "banned",
		"reverse", "outlet", "random", "pick", "roll", "setvar", "getvar", "addvar",
		"incvar", "decvar", "setglobalvar", "getglobalvar", "addglobalvar", "timediff":
		return true
	}
	return false
}

func splitMacro(inner string) (name string, args []string) {
	parts := strings.Split(inner, "::")
	return strings.TrimSpace(parts[0]), parts[1:]
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, strings.TrimSpace(r))
	}
	return out
}

func charName(ctx *BuildContext) string {
	if ctx.Character == nil {
		return ""
	}
	return ctx.Character.Name
}

func userName(ctx *BuildContext) string {
	return ctx.User.Name
}

func lastMessage(ctx *BuildContext) (ChatMessage, bool) {
	msgs := ctx.History.Messages()
	if len(msgs) == 0 {
		return ChatMessage{}, false
	}
	return msgs[len(msgs)-1], true
}

func macroVarOr(ctx *BuildContext, key, def string) string {
	if v, ok := ctx.Options.MacroVars[key]; ok {
		return v
	}
	return def
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func rollDice(rng *rand.Rand, spec string) string {
	spec = strings.ToLower(strings.TrimSpace(spec))
	count, sides := 1, 20
	if idx := strings.Index(spec, "d"); idx >= 0 {
		if idx > 0 {
			if n, err := strconv.Atoi(spec[:idx]); err == nil {
				count = n
			}
		}
		if n, err := strconv.Atoi(spec[idx+1:]); err == nil {
			sides = n
		}
	}
	if count <= 0 {
		count = 1
	}
	if sides <= 0 {
		sides = 20
	}
	total := 0
	for i := 0; i < count; i++ {
		total += rng.Intn(sides) + 1
	}
	return strconv.Itoa(total)
}

func accumulateVar(store VariableStore, key, delta, op string) string {
	cur := 0
	if v, ok := store.Get(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cur = n
		}
	}
	d, err := strconv.Atoi(delta)
	if err != nil {
		d = 0
	}
	if op == "sub" {
		cur -= d
	} else {
		cur += d
	}
	result := strconv.Itoa(cur)
	store.Set(key, result)
	return result
}

func goTimeFormat(t time.Time, stFormat string) string {
	replacer := strings.NewReplacer(
		"YYYY", "2006", "YY", "06",
		"MM", "01", "DD", "02",
		"HH", "15", "mm", "04", "ss", "05",
	)
	return t.Format(replacer.Replace(stFormat))
}

func timeUTCOffset(t time.Time, macroName string) string {
	suffix := strings.TrimPrefix(macroName, "time_utc")
	offset, err := strconv.Atoi(suffix)
	if err != nil {
		offset = 0
	}
	return t.UTC().Add(time.Duration(offset) * time.Hour).Format("3:04 PM")
}

func humanizeTimeDiff(a, b string) string {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA != nil || errB != nil {
		return ""
	}
	d := tb.Sub(ta)
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}

// pickIndex derives a stable index into an n-option {{pick}} list: an
// FNV-1a hash of (pick_seed, a window of template text around the macro,
// the macro's byte offset) — see DESIGN.md §Open Question decisions. This
// intentionally does not attempt byte-parity with any particular reference
// RNG; it only needs to be stable for a fixed (raw, offset, pick_seed).
func pickIndex(ctx *BuildContext, raw string, offset int, n int) int {
	if n <= 1 {
		return 0
	}
	const window = 24
	start := offset - window
	if start < 0 {
		start = 0
	}
	end := offset + window
	if end > len(raw) {
		end = len(raw)
	}
	seed := ctx.Options.PickSeed
	if seed == 0 {
		seed = ctx.Options.RNGSeed
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%d", seed, raw[start:end], offset)
	return int(h.Sum64() % uint64(n))
}
