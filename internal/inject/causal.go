package inject

import (
	"context"
	"strings"

	"github.com/cortexmind/cortex/internal/store"
)

// causalCues flags prompts asking about root cause, history, or consequence
// chains rather than a single fact, the same connective vocabulary
// internal/tools' atom splitter uses to recognize causal shape in free text.
var causalCues = []string{
	"why did", "why does", "what caused", "what's causing", "root cause",
	"led to", "leads to", "because of", "keeps happening", "keeps failing",
	"every time", "recurring", "pattern",
}

// AtomClassifier is the store-backed CausalClassifier: it recognizes causal
// phrasing in a prompt and, when matched, walks the atom graph's causal
// links forward from whichever atoms best match the prompt's subject terms.
type AtomClassifier struct {
	store   *store.Store
	maxHops int
}

// NewAtomClassifier builds a classifier over the causal atom store. maxHops
// bounds the forward traversal so a densely linked atom graph can't turn one
// prompt into an unbounded walk.
func NewAtomClassifier(s *store.Store, maxHops int) *AtomClassifier {
	if maxHops <= 0 {
		maxHops = 3
	}
	return &AtomClassifier{store: s, maxHops: maxHops}
}

// IsCausal reports whether the prompt asks a root-cause or recurrence
// question rather than requesting a single fact.
func (c *AtomClassifier) IsCausal(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, cue := range causalCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// TraverseFrom finds atoms whose subject matches the prompt's terms and walks their causal links forward, returning one line per hop in
// the style atom_find_causes/abstract_deeper already render.
func (c *AtomClassifier) TraverseFrom(ctx context.Context, prompt string) []string {
	if c.store == nil {
		return nil
	}
	terms := uniqueLowerWords(prompt)
	if len(terms) == 0 {
		return nil
	}

	seeds := map[string]*store.Atom{}
	for _, term := range terms {
		if len(term) < 4 {
			continue
		}
		matches, err := c.store.SearchAtomsByField(store.FieldSubject, term, 3)
		if err != nil {
			continue
		}
		for _, a := range matches {
			seeds[a.ID] = a
		}
		if len(seeds) >= 5 {
			break
		}
	}
	if len(seeds) == 0 {
		return nil
	}

	var indicators []string
	seen := map[string]bool{}
	frontier := make([]string, 0, len(seeds))
	for id := range seeds {
		frontier = append(frontier, id)
	}

	for hop := 0; hop < c.maxHops && len(frontier) > 0 && len(indicators) < 8; hop++ {
		var next []string
		for _, id := range frontier {
			links, err := c.store.LinksFrom(id)
			if err != nil {
				continue
			}
			for _, l := range links {
				if seen[l.ToAtomID] {
					continue
				}
				seen[l.ToAtomID] = true
				target, err := c.store.GetAtom(l.ToAtomID)
				if err != nil {
					continue
				}
				indicators = append(indicators, target.Subject+" -> "+target.Action+" -> "+target.Outcome)
				next = append(next, target.ID)
			}
		}
		frontier = next
	}
	return indicators
}
