package tools

import (
	"fmt"
	"strings"

	"github.com/cortexmind/cortex/internal/store"
)

// AtomCreate implements atom_create: a four-facet causal knowledge unit.
func (r *Registry) AtomCreate(subject, action, outcome, consequences string, confidence float64, source string) Result {
	a := &store.Atom{
		Subject: subject, Action: action, Outcome: outcome, Consequences: consequences,
		Confidence: confidence, Source: source,
	}
	if err := r.engine.Store.CreateAtom(a); err != nil {
		return errResult("validation_error", "atom create failed: "+err.Error())
	}
	return textWith("atom created: "+a.ID, map[string]interface{}{"atom_id": a.ID})
}

// AtomSearch implements atom_search: an FTS5 match against one facet.
func (r *Registry) AtomSearch(field, query string, limit int) Result {
	if limit <= 0 {
		limit = 10
	}
	atoms, err := r.engine.Store.SearchAtomsByField(store.AtomField(field), query, limit)
	if err != nil {
		return errResult("validation_error", "atom search failed: "+err.Error())
	}
	return textWith(fmt.Sprintf("%d atom(s) matched", len(atoms)), map[string]interface{}{"atoms": atomsToDetails(atoms)})
}

// AtomFindCauses implements atom_find_causes: a bounded-depth backward walk
// over causal links from either a seed atom or an outcome-matched set.
func (r *Registry) AtomFindCauses(atomID, outcome string, maxDepth int) Result {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	var seeds []string
	if atomID != "" {
		seeds = []string{atomID}
	} else if outcome != "" {
		atoms, err := r.engine.Store.SearchAtomsByField(store.FieldOutcome, outcome, 5)
		if err != nil {
			return errResult("internal_error", "seed lookup failed: "+err.Error())
		}
		for _, a := range atoms {
			seeds = append(seeds, a.ID)
		}
	} else {
		return errResult("validation_error", "one of atom_id or outcome is required")
	}

	seen := map[string]bool{}
	var chain []string
	frontier := seeds
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			links, err := r.engine.Store.LinksTo(id)
			if err != nil {
				continue
			}
			for _, l := range links {
				if seen[l.FromAtomID] {
					continue
				}
				seen[l.FromAtomID] = true
				cause, err := r.engine.Store.GetAtom(l.FromAtomID)
				if err != nil {
					continue
				}
				chain = append(chain, fmt.Sprintf("%s -> %s (%s, strength %.2f)", cause.Subject, cause.Action, l.LinkType, l.Strength))
				next = append(next, l.FromAtomID)
			}
		}
		frontier = next
	}
	if len(chain) == 0 {
		return text("no causal chain found")
	}
	return textWith(strings.Join(chain, "\n"), map[string]interface{}{"chain": chain})
}

// AtomLink implements atom_link: a directed causal edge between two atoms.
func (r *Registry) AtomLink(from, to, linkType string, strength float64) Result {
	if linkType == "" {
		linkType = string(store.LinkCauses)
	}
	if strength == 0 {
		strength = 0.5
	}
	l := &store.CausalLink{FromAtomID: from, ToAtomID: to, LinkType: store.LinkType(linkType), Strength: strength}
	if err := r.engine.Store.CreateLink(l); err != nil {
		return errResult("validation_error", "link failed: "+err.Error())
	}
	return text("link created")
}

// AtomStats reports atom counts by outcome from a grouped count over the
// atoms table.
func (r *Registry) AtomStats() Result {
	rows, err := r.engine.Store.DB().Query(`SELECT outcome, count(*) FROM atoms GROUP BY outcome`)
	if err != nil {
		return errResult("internal_error", "stats failed: "+err.Error())
	}
	defer rows.Close()
	total := 0
	byOutcome := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return errResult("internal_error", "stats failed: "+err.Error())
		}
		byOutcome[outcome] = n
		total += n
	}
	return textWith(fmt.Sprintf("%d atom(s) total", total), map[string]interface{}{"total": total, "by_outcome": byOutcome})
}

// splitCause breaks a free-text observation into subject/action/outcome
// facets at the first causal connective it finds, falling back to treating
// the whole line as the outcome when no connective is present.
var causalConnectives = []string{"because", "which caused", "leading to", "so that", "resulting in"}

func splitCause(line string) (subject, action, outcome string) {
	lower := strings.ToLower(line)
	for _, conn := range causalConnectives {
		if idx := strings.Index(lower, conn); idx > 0 {
			before := strings.TrimSpace(line[:idx])
			after := strings.TrimSpace(line[idx+len(conn):])
			return "observed event", before, after
		}
	}
	return "observed event", line, ""
}

// Atomize implements atomize: extracts atoms from free text or a batch of
// recent STM entries. batch_embeddings is out of scope here; memory
// embeddings are not persisted by the store (see DESIGN.md).
func (r *Registry) Atomize(freeText string, batchSTM bool, source string) Result {
	var lines []string
	if freeText != "" {
		lines = strings.Split(freeText, "\n")
	} else if batchSTM {
		mems, err := r.engine.Store.GetRecent(20, nil)
		if err != nil {
			return errResult("internal_error", "stm lookup failed: "+err.Error())
		}
		for _, m := range mems {
			lines = append(lines, m.Content)
		}
	} else {
		return errResult("validation_error", "one of text or batch_stm is required")
	}

	var created []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		subj, action, outcome := splitCause(line)
		if outcome == "" {
			continue // no causal shape found in this line, skip rather than fabricate
		}
		a := &store.Atom{Subject: subj, Action: action, Outcome: outcome, Consequences: "unspecified", Source: source}
		if err := r.engine.Store.CreateAtom(a); err != nil {
			continue
		}
		created = append(created, a.ID)
	}
	return textWith(fmt.Sprintf("%d atom(s) extracted", len(created)), map[string]interface{}{"atom_ids": created})
}

// AbstractDeeper implements abstract_deeper: forward causal-chain traversal
// from atoms matching a query, surfacing downstream consequences.
func (r *Registry) AbstractDeeper(query string, maxDepth int) Result {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	atoms, err := r.engine.Store.SearchAtomsByField(store.FieldSubject, query, 5)
	if err != nil || len(atoms) == 0 {
		atoms, err = r.engine.Store.SearchAtomsByField(store.FieldAction, query, 5)
	}
	if err != nil {
		return errResult("internal_error", "seed search failed: "+err.Error())
	}
	if len(atoms) == 0 {
		return text("no matching atoms to abstract from")
	}

	seen := map[string]bool{}
	var indicators []string
	frontier := make([]string, 0, len(atoms))
	for _, a := range atoms {
		frontier = append(frontier, a.ID)
	}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			links, err := r.engine.Store.LinksFrom(id)
			if err != nil {
				continue
			}
			for _, l := range links {
				if seen[l.ToAtomID] {
					continue
				}
				seen[l.ToAtomID] = true
				target, err := r.engine.Store.GetAtom(l.ToAtomID)
				if err != nil {
					continue
				}
				indicators = append(indicators, fmt.Sprintf("%s (%s, strength %.2f)", target.Outcome, l.LinkType, l.Strength))
				next = append(next, l.ToAtomID)
			}
		}
		frontier = next
	}
	if len(indicators) == 0 {
		return text("no downstream consequences found")
	}
	return textWith(strings.Join(indicators, "\n"), map[string]interface{}{"indicators": indicators})
}

func atomsToDetails(atoms []*store.Atom) []map[string]interface{} {
	out := make([]map[string]interface{}, len(atoms))
	for i, a := range atoms {
		out[i] = map[string]interface{}{
			"id": a.ID, "subject": a.Subject, "action": a.Action,
			"outcome": a.Outcome, "consequences": a.Consequences, "confidence": a.Confidence,
		}
	}
	return out
}
