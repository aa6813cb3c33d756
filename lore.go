package tavernkit

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

const loreTimedEffectsKey = "tavernkit:lore_timed_effects"
const loreScanBufferCap = 1 << 20 // 1 MiB (§4.C, §5)

type timedEffectState struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Protected bool `json:"protected"`
}

type timedEffects struct {
	Sticky   map[string]timedEffectState `json:"sticky"`
	Cooldown map[string]timedEffectState `json:"cooldown"`
}

func loadTimedEffects(store VariableStore) timedEffects {
	te := timedEffects{Sticky: map[string]timedEffectState{}, Cooldown: map[string]timedEffectState{}}
	raw, ok := store.Get(loreTimedEffectsKey)
	if !ok || raw == "" {
		return te
	}
	if err := json.Unmarshal([]byte(raw), &te); err != nil {
		return timedEffects{Sticky: map[string]timedEffectState{}, Cooldown: map[string]timedEffectState{}}
	}
	if te.Sticky == nil {
		te.Sticky = map[string]timedEffectState{}
	}
	if te.Cooldown == nil {
		te.Cooldown = map[string]timedEffectState{}
	}
	return te
}

func saveTimedEffects(store VariableStore, te timedEffects) {
	raw, err := json.Marshal(te)
	if err != nil {
		return
	}
	store.Set(loreTimedEffectsKey, string(raw))
}

type loreCandidate struct {
	key       EntryKey
	entry     *Entry
	active    bool
	recursive bool // activated only during a recursion pass
}

// runLoreStage evaluates every lorebook entry and emits Blocks for the
// retained ones, plus outlet contributions (§4.C).
func runLoreStage(ctx *BuildContext) error {
	entries := collectEntries(ctx)
	if len(entries) == 0 {
		return nil
	}

	messageCount := ctx.History.Len()
	te := loadTimedEffects(ctx.LocalVars)

	scanDepth := ctx.Preset.WorldInfo.Depth
	buf := buildScanBuffer(ctx, scanDepth)
	buf = appendScanInjections(ctx, buf)

	active := make(map[EntryKey]*loreCandidate, len(entries))
	order := make([]EntryKey, 0, len(entries))

	evaluatePass := func(scan string, recursionPass bool) {
		for i := range entries {
			c := &entries[i]
			if !c.entry.MatchesTrigger(ctx.genType()) {
				continue
			}
			if c.entry.DelayUntilRecursion && !recursionPass {
				continue
			}
			if _, already := active[c.key]; already {
				continue
			}
			if entryActivates(ctx, c, scan, messageCount, &te) {
				cp := *c
				cp.active = true
				cp.recursive = recursionPass
				active[cp.key] = &cp
				order = append(order, cp.key)
			}
		}
	}

	evaluatePass(buf, false)

	maxSteps := ctx.Options.maxRecursionSteps()
	for step := 0; step < maxSteps; step++ {
		added := false
		for _, k := range order {
			c := active[k]
			if c.entry.PreventRecursion || c.entry.ExcludeRecursion {
				continue
			}
			if !strings.Contains(buf, c.entry.Content) {
				if len(buf)+len(c.entry.Content)+1 > loreScanBufferCap {
					ctx.warn("lore scan buffer exceeded %d bytes; truncating recursion", loreScanBufferCap)
					break
				}
				buf = buf + "\n" + c.entry.Content
				added = true
			}
		}
		if !added {
			break
		}
		before := len(order)
		evaluatePass(buf, true)
		if len(order) == before {
			break
		}
	}

	minAct := ctx.Preset.WorldInfo.MinActivations
	if minAct > 0 && len(order) < minAct && ctx.Preset.WorldInfo.MinActivationsDepthMax > scanDepth {
		widened := buildScanBuffer(ctx, ctx.Preset.WorldInfo.MinActivationsDepthMax)
		widened = appendScanInjections(ctx, widened)
		evaluatePass(widened, false)
	}

	updateTimedEffects(&te, active, messageCount)
	if !ctx.Options.DryRun {
		saveTimedEffects(ctx.LocalVars, te)
	}

	candidates := make([]*loreCandidate, 0, len(order))
	for _, k := range order {
		candidates = append(candidates, active[k])
	}

	candidates = applyGroupScoring(candidates)
	candidates = applyBudget(ctx, candidates)

	blocks := make([]Block, 0, len(candidates))
	for _, c := range candidates {
		if c.entry.Position == PosOutlet && c.entry.OutletName != "" {
			ctx.outlets[c.entry.OutletName] = append(ctx.outlets[c.entry.OutletName], c.entry.Content)
			continue
		}
		blocks = append(blocks, loreEntryBlock(ctx, c))
	}
	ctx.loreBlocks = blocks
	ctx.scanBuffer = buf
	return nil
}

func collectEntries(ctx *BuildContext) []loreCandidate {
	var out []loreCandidate
	for _, lb := range ctx.lorebooks {
		if lb.book == nil {
			continue
		}
		for i := range lb.book.Entries {
			e := &lb.book.Entries[i]
			if !e.Enabled {
				continue
			}
			out = append(out, loreCandidate{
				key:   EntryKey{Source: lb.source, Book: lb.book.Name, UID: e.UID},
				entry: e,
			})
		}
	}
	return out
}

func buildScanBuffer(ctx *BuildContext, depth int) string {
	if depth <= 0 {
		return ""
	}
	msgs := ctx.History.Messages()
	start := len(msgs) - depth
	if start < 0 {
		start = 0
	}
	var lines []string
	for _, m := range msgs[start:] {
		if !m.Visible {
			continue
		}
		if ctx.Preset.WorldInfo.IncludeNames && m.Name != "" {
			lines = append(lines, m.Name+": "+m.ActiveContent())
		} else {
			lines = append(lines, m.ActiveContent())
		}
	}
	return strings.Join(lines, "\n")
}

func appendScanInjections(ctx *BuildContext, buf string) string {
	for _, inj := range ctx.Injections.Snapshot() {
		if !inj.Scan {
			continue
		}
		if inj.Filter != nil && !inj.Filter(ctx) {
			continue
		}
		if buf != "" {
			buf += "\n"
		}
		buf += inj.Content
	}
	return buf
}

func entryActivates(ctx *BuildContext, c *loreCandidate, scan string, messageCount int, te *timedEffects) bool {
	e := c.entry
	key := timedEffectKey(c.key.Source, c.key.Book, c.key.UID)

	if cd, ok := te.Cooldown[key]; ok && messageCount < cd.End {
		return false
	}
	if st, ok := te.Sticky[key]; ok && messageCount < st.End {
		return true
	}

	if e.Delay > 0 && messageCount < e.Delay {
		return false
	}

	matched := e.Constant || matchEntry(ctx, e, scan)
	if !matched {
		return false
	}

	if e.UseProbability && e.Probability < 100 {
		if ctx.rng.Intn(100) >= e.Probability {
			return false
		}
	}
	return true
}

func matchEntry(ctx *BuildContext, e *Entry, scan string) bool {
	haystacks := []string{scan}
	if e.Match.Description {
		haystacks = append(haystacks, ctx.Character.Description)
	}
	if e.Match.Personality {
		haystacks = append(haystacks, ctx.Character.Personality)
	}
	if e.Match.Scenario {
		haystacks = append(haystacks, ctx.Character.Scenario)
	}
	if e.Match.CreatorNotes {
		haystacks = append(haystacks, ctx.Character.CreatorNotes)
	}
	if e.Match.Persona {
		haystacks = append(haystacks, ctx.User.PersonaText)
	}
	if e.Match.DepthPrompt && ctx.Character.DepthPrompt != nil {
		haystacks = append(haystacks, ctx.Character.DepthPrompt.Text)
	}
	haystack := strings.Join(haystacks, "\n")

	primary := anyKeyMatches(e.Keys, haystack, e)
	if !primary && e.SemanticQuery != "" && ctx.Options.SemanticMatcher != nil {
		ok, err := ctx.Options.SemanticMatcher.Matches(haystack, e.SemanticQuery, e.SemanticThreshold)
		if err != nil {
			ctx.warn("semantic match for entry %s.%s: %v", e.UID, e.Name, err)
		} else {
			primary = ok
		}
	}
	if !primary {
		return false
	}
	if !e.Selective || len(e.SecondaryKeys) == 0 {
		return true
	}
	secondary := anyKeyMatches(e.SecondaryKeys, haystack, e)
	switch e.SelectiveLogic {
	case LogicAndAll:
		return allKeysMatch(e.SecondaryKeys, haystack, e)
	case LogicNotAny:
		return !secondary
	case LogicNotAll:
		return !allKeysMatch(e.SecondaryKeys, haystack, e)
	default: // and_any
		return secondary
	}
}

func anyKeyMatches(keys []string, haystack string, e *Entry) bool {
	for _, k := range keys {
		if keyMatches(k, haystack, e) {
			return true
		}
	}
	return false
}

func allKeysMatch(keys []string, haystack string, e *Entry) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !keyMatches(k, haystack, e) {
			return false
		}
	}
	return true
}

func keyMatches(key, haystack string, e *Entry) bool {
	if e.UseRegex || isRegexLiteral(key) {
		if re, ok := compileJSRegex(key, e.CaseSensitive); ok {
			return re.MatchString(haystack)
		}
		// translation failure degrades to literal substring match (§9).
	}
	h, k := haystack, key
	if !e.CaseSensitive {
		h, k = strings.ToLower(h), strings.ToLower(k)
	}
	if !e.MatchWholeWords {
		return strings.Contains(h, k)
	}
	return wholeWordContains(h, k)
}

// wholeWordContains implements ST/JS \W boundary semantics: the match must
// be preceded and followed by a non-word character (or string boundary),
// not the stricter \b.
func wholeWordContains(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], needle)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(needle)
		beforeOK := start == 0 || isNonWord(rune(haystack[start-1]))
		afterOK := end == len(haystack) || isNonWord(rune(haystack[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(haystack) {
			return false
		}
	}
}

func isNonWord(r rune) bool {
	return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
}

func isRegexLiteral(key string) bool {
	return len(key) >= 2 && strings.HasPrefix(key, "/") && strings.LastIndex(key, "/") > 0
}

func compileJSRegex(key string, caseSensitive bool) (*regexp.Regexp, bool) {
	body, flags := key, ""
	if isRegexLiteral(key) {
		last := strings.LastIndex(key, "/")
		body = key[1:last]
		flags = key[last+1:]
	}
	pattern := body
	if strings.Contains(flags, "i") || !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

func updateTimedEffects(te *timedEffects, active map[EntryKey]*loreCandidate, messageCount int) {
	for k, v := range te.Sticky {
		if v.End <= messageCount {
			delete(te.Sticky, k)
			if v.Protected {
				continue
			}
		}
	}
	for k, v := range te.Cooldown {
		if v.End <= messageCount {
			delete(te.Cooldown, k)
		}
	}
	for key, c := range active {
		k := timedEffectKey(key.Source, key.Book, key.UID)
		if c.entry.Sticky > 0 {
			te.Sticky[k] = timedEffectState{Start: messageCount, End: messageCount + c.entry.Sticky}
		}
		if c.entry.Cooldown > 0 {
			te.Cooldown[k] = timedEffectState{Start: messageCount, End: messageCount + c.entry.Cooldown}
		}
	}
}

func applyGroupScoring(candidates []*loreCandidate) []*loreCandidate {
	groups := map[string][]*loreCandidate{}
	var ungrouped []*loreCandidate
	for _, c := range candidates {
		if c.entry.UseGroupScoring && c.entry.Group != "" {
			groups[c.entry.Group] = append(groups[c.entry.Group], c)
		} else {
			ungrouped = append(ungrouped, c)
		}
	}
	out := ungrouped
	for _, members := range groups {
		winner := members[0]
		for _, m := range members[1:] {
			if m.entry.GroupOverride && !winner.entry.GroupOverride {
				winner = m
				continue
			}
			if winner.entry.GroupOverride {
				continue
			}
			if m.entry.GroupWeight > winner.entry.GroupWeight ||
				(m.entry.GroupWeight == winner.entry.GroupWeight && m.entry.InsertionOrder < winner.entry.InsertionOrder) {
				winner = m
			}
		}
		out = append(out, winner)
	}
	return out
}

func applyBudget(ctx *BuildContext, candidates []*loreCandidate) []*loreCandidate {
	budget := ctx.Preset.WorldInfoBudgetTokens()
	if budget < 0 {
		return candidates // only a negative world_info budget bypasses eviction; an unset budget resolves to 0
	}
	sorted := append([]*loreCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].entry, sorted[j].entry
		if a.Constant != b.Constant {
			return a.Constant // constant desc
		}
		if a.IgnoreBudget != b.IgnoreBudget {
			return a.IgnoreBudget // ignore_budget desc
		}
		if a.InsertionOrder != b.InsertionOrder {
			return a.InsertionOrder < b.InsertionOrder // insertion_order asc
		}
		return a.Probability > b.Probability // probability desc
	})

	total := 0
	kept := make([]*loreCandidate, 0, len(sorted))
	keptSet := map[EntryKey]bool{}
	for _, c := range sorted {
		if c.entry.IgnoreBudget {
			kept = append(kept, c)
			keptSet[c.key] = true
			continue
		}
		n, _ := ctx.Estimator.Estimate(c.entry.Content)
		// budget==0 drops every non-ignore_budget candidate outright (§8
		// boundary: world_info_budget=0 means all such lore is dropped and
		// reported, not unlimited).
		if budget == 0 || total+int(n) > budget {
			ctx.trimReport = append(ctx.trimReport, TrimReportEntry{
				BlockID: c.key.UID,
				Slot:    "lore",
				Group:   GroupLore,
				Reason:  "lore_budget",
				Tokens:  int(n),
			})
			continue
		}
		total += int(n)
		kept = append(kept, c)
		keptSet[c.key] = true
	}
	// Preserve original activation order among kept candidates.
	out := make([]*loreCandidate, 0, len(kept))
	for _, c := range candidates {
		if keptSet[c.key] {
			out = append(out, c)
		}
	}
	return out
}

func loreEntryBlock(ctx *BuildContext, c *loreCandidate) Block {
	e := c.entry
	content := e.Content
	if ctx.Preset.WIFormat != "" {
		content = strings.ReplaceAll(ctx.Preset.WIFormat, "{0}", content)
	}
	role := e.Role
	if role == "" {
		role = RoleSystem
	}
	priority := 1000 + e.InsertionOrder
	if e.Constant {
		priority -= 100000
	}
	return Block{
		ID:             newBlockID(),
		Role:           role,
		Content:        content,
		Slot:           "lore:" + c.key.Book + "." + c.key.UID,
		Enabled:        true,
		InsertionPoint: loreInsertionPoint(e.Position),
		Depth:          e.Depth,
		Order:          e.InsertionOrder,
		Priority:       priority,
		TokenGroup:     GroupLore,
		IgnoreBudget:   e.IgnoreBudget,
	}
}

func loreInsertionPoint(pos WIPosition) InsertionPoint {
	switch pos {
	case PosBeforeCharDefs:
		return InsertBeforeCharDefs
	case PosAfterCharDefs:
		return InsertAfterCharDefs
	case PosBeforeExampleMessages:
		return InsertBeforeExampleMessages
	case PosAfterExampleMessages:
		return InsertAfterExampleMessages
	case PosTopOfAN, PosBottomOfAN:
		return InsertAuthorsNote
	case PosAtDepth:
		return InsertInChat
	default:
		return InsertAfterCharDefs
	}
}
