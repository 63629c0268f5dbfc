// Package sessionring implements C3: a bounded FIFO of recent user/assistant
// messages with a byte cap, used for in-turn keyword search. Ring contents
// are never persisted and never influence confidence scoring.
package sessionring

import (
	"sort"
	"strings"
	"sync"
)

// Entry is one message held in the ring.
type Entry struct {
	Role    string // "user" or "assistant"
	Content string
}

// Ring is a bounded FIFO keyed by message count and total byte size.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	maxCount int
	maxBytes int
	bytes    int
}

// New builds a Ring bounded by maxCount entries and maxBytes total content size.
func New(maxCount, maxBytes int) *Ring {
	return &Ring{maxCount: maxCount, maxBytes: maxBytes}
}

// Push appends a message, evicting the oldest entries until both bounds hold.
func (r *Ring) Push(role, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, Entry{Role: role, Content: content})
	r.bytes += len(content)

	for (len(r.entries) > r.maxCount || r.bytes > r.maxBytes) && len(r.entries) > 0 {
		r.bytes -= len(r.entries[0].Content)
		r.entries = r.entries[1:]
	}
}

// All returns a snapshot of the ring, oldest first.
func (r *Ring) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the current entry count.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// scored is an internal match candidate.
type scored struct {
	entry Entry
	score float64
}

// Search performs keyword scoring over the ring and returns matches ordered
// by descending score. Results are transient: callers must not persist them
// or treat them as confidence-bearing evidence.
func (r *Ring) Search(query string, limit int) []Entry {
	terms := uniqueLowerWords(query)
	if len(terms) == 0 {
		return nil
	}

	r.mu.Lock()
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	var candidates []scored
	for _, e := range entries {
		lower := strings.ToLower(e.Content)
		matched := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: float64(matched) / float64(len(terms))})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}
	out := make([]Entry, len(candidates))
	for i, c := range candidates {
		out[i] = c.entry
	}
	return out
}

func uniqueLowerWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
