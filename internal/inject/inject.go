package inject

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/embedding"
	"github.com/cortexmind/cortex/internal/index"
	"github.com/cortexmind/cortex/internal/scoring"
	"github.com/cortexmind/cortex/internal/sessionring"
	"github.com/cortexmind/cortex/internal/store"
)

// Config carries the tunables the tiers read from, mirroring the config
// surface's relevance/truncation knobs.
type Config struct {
	RelevanceThreshold   float64
	MinMatchScore        float64
	TruncateOldMemoriesTo int
}

// Composer assembles the L0-L5 + diversity context block for one turn.
type Composer struct {
	cfg        Config
	idx        *index.Index
	ring       *sessionring.Ring
	categories *category.Manager
	embedder   embedding.Provider
	classifier CausalClassifier
}

// CausalClassifier decides whether a prompt warrants L5 causal-chain
// traversal; nil disables L5 entirely.
type CausalClassifier interface {
	IsCausal(prompt string) bool
	TraverseFrom(ctx context.Context, prompt string) []string
}

// New builds a Composer. embedder and classifier may be nil to degrade L4/L5 gracefully.
func New(cfg Config, idx *index.Index, ring *sessionring.Ring, cats *category.Manager, embedder embedding.Provider, classifier CausalClassifier) *Composer {
	return &Composer{cfg: cfg, idx: idx, ring: ring, categories: cats, embedder: embedder, classifier: classifier}
}

// Result is before_agent_start's return contract.
type Result struct {
	PrependContext string
}

// dedupKey truncates and lowercases content to the shared dedup key, so the
// same memory surfaced via two tiers (e.g. hot tier and STM) only injects once.
func dedupKey(content string) string {
	c := strings.ToLower(content)
	if len(c) > 100 {
		c = c[:100]
	}
	return c
}

// Compose runs the full tier pipeline under a dynamically-computed token
// budget. sessionPreamble is the one-shot L0 block (empty after the first
// turn or on cold start); pins is the always-included L1 set.
func (c *Composer) Compose(ctx context.Context, prompt string, sessionPreamble string, pins []store.WorkingMemoryPin) Result {
	budget := TokenBudget(prompt)
	var sections []string
	seen := map[string]bool{}

	if sessionPreamble != "" {
		sections = append(sections, sessionPreamble)
	}
	if len(pins) > 0 {
		sections = append(sections, renderPins(pins))
	}

	remaining := func() int {
		used := 0
		for _, s := range sections {
			used += EstimateTokens(s)
		}
		if budget-used < 0 {
			return 0
		}
		return budget - used
	}

	if block, ok := c.injectActiveSession(prompt, seen, remaining()); ok {
		sections = append(sections, block)
	}
	if block, ok := c.injectHotTier(prompt, seen, remaining()); ok {
		sections = append(sections, block)
	}
	if block, ok := c.injectSTM(prompt, seen, remaining()); ok {
		sections = append(sections, block)
	}
	if remaining() >= 100 {
		if block, ok := c.injectSemantic(ctx, prompt, seen, remaining()); ok {
			sections = append(sections, block)
		}
	}
	if remaining() >= 200 && c.classifier != nil && c.classifier.IsCausal(prompt) {
		if block, ok := c.injectCausal(ctx, prompt, remaining()); ok {
			sections = append(sections, block)
		}
	}
	if remaining() >= 50 {
		if block, ok := c.injectDiversity(prompt, seen, remaining()); ok {
			sections = append(sections, block)
		}
	}

	return Result{PrependContext: strings.Join(sections, "\n\n")}
}

func renderPins(pins []store.WorkingMemoryPin) string {
	var b strings.Builder
	b.WriteString("Working memory:\n")
	for _, p := range pins {
		fmt.Fprintf(&b, "- %s\n", p.Content)
	}
	return b.String()
}

// injectActiveSession is L2: top matches from the transient session ring.
func (c *Composer) injectActiveSession(prompt string, seen map[string]bool, budget int) (string, bool) {
	if c.ring == nil || budget <= 0 {
		return "", false
	}
	matches := c.ring.Search(prompt, 5)
	if len(matches) == 0 {
		return "", false
	}
	var lines []string
	for _, m := range matches {
		key := dedupKey(m.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		content := m.Content
		if len(content) > 150 {
			content = content[:150]
		}
		lines = append(lines, "- "+content)
	}
	if len(lines) == 0 {
		return "", false
	}
	return "Active session:\n" + strings.Join(lines, "\n"), true
}

// injectHotTier is L3: the in-RAM hot tier, filtered by >=1 query-term overlap.
func (c *Composer) injectHotTier(prompt string, seen map[string]bool, budget int) (string, bool) {
	if c.idx == nil || budget <= 0 {
		return "", false
	}
	queryTerms := uniqueLowerWords(prompt)
	candidates := c.idx.GetHot(20)
	var lines []string
	now := time.Now()
	for _, m := range candidates {
		if len(lines) >= 3 {
			break
		}
		if !anyTermIn(queryTerms, m.Content) {
			continue
		}
		key := dedupKey(m.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		content := truncate(m.Content, c.cfg.TruncateOldMemoriesTo)
		delta := now.Sub(m.CreatedAt)
		lines = append(lines, fmt.Sprintf("- [%s ago, accessed %dx] %s", formatDelta(delta), m.AccessCount, content))
	}
	if len(lines) == 0 {
		return "", false
	}
	return "Hot memories:\n" + strings.Join(lines, "\n"), true
}

// injectSTM is L3.5: C5 composite match scoring over recent STM.
func (c *Composer) injectSTM(prompt string, seen map[string]bool, budget int) (string, bool) {
	if c.idx == nil || budget <= 0 {
		return "", false
	}
	now := time.Now()
	candidates := c.idx.GetHot(30)
	type scoredMem struct {
		mem   *store.Memory
		score float64
	}
	var ranked []scoredMem
	for _, m := range candidates {
		sc := scoring.STMMatchScore(scoring.MatchInput{
			Query: prompt, Content: m.Content, CreatedAt: m.CreatedAt, Now: now, Importance: m.Importance,
		})
		if sc >= c.cfg.MinMatchScore {
			ranked = append(ranked, scoredMem{m, sc})
		}
	}
	var lines []string
	for _, r := range ranked {
		if len(lines) >= 3 {
			break
		}
		key := dedupKey(r.mem.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		lines = append(lines, "- "+truncate(r.mem.Content, c.cfg.TruncateOldMemoriesTo))
	}
	if len(lines) == 0 {
		return "", false
	}
	return "Short-term matches:\n" + strings.Join(lines, "\n"), true
}

// injectSemantic is L4. It is skipped entirely when the provider is
// unavailable (graceful degradation, no error surfaced); otherwise it embeds
// the prompt and still emits no section, because memories carry no stored
// embeddings to compare against.
func (c *Composer) injectSemantic(ctx context.Context, prompt string, seen map[string]bool, budget int) (string, bool) {
	if c.embedder == nil || !c.embedder.Available() {
		return "", false
	}
	_, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		return "", false
	}
	// No vector search runs here: the memories table has no embedding column.
	return "", false
}

// injectCausal is L5: deep abstraction / causal atom chain traversal.
func (c *Composer) injectCausal(ctx context.Context, prompt string, budget int) (string, bool) {
	indicators := c.classifier.TraverseFrom(ctx, prompt)
	if len(indicators) == 0 {
		return "", false
	}
	return "Novel indicators:\n- " + strings.Join(indicators, "\n- "), true
}

// injectDiversity pulls one freshest untouched memory per active category
// absent from the injected set, up to 2 categories.
func (c *Composer) injectDiversity(prompt string, seen map[string]bool, budget int) (string, bool) {
	if c.categories == nil || c.idx == nil {
		return "", false
	}
	active := c.categories.Detect(prompt)
	var lines []string
	for _, cat := range active {
		if len(lines) >= 2 {
			break
		}
		mems := c.idx.GetByCategory(cat)
		for _, m := range mems {
			key := dedupKey(m.Content)
			if seen[key] {
				continue
			}
			seen[key] = true
			lines = append(lines, fmt.Sprintf("- [%s] %s", cat, truncate(m.Content, c.cfg.TruncateOldMemoriesTo)))
			break
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return "Category diversity:\n" + strings.Join(lines, "\n"), true
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func formatDelta(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func uniqueLowerWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func anyTermIn(terms []string, content string) bool {
	lower := strings.ToLower(content)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
