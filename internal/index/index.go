// Package index implements C2: a bounded in-RAM working set over the
// Persistent Store — an id→memory map, category buckets, a hot-tier
// priority set keyed by smoothed access count, and co-occurrence adjacency.
package index

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// entry wraps a cached memory with the smoothed access count the hot tier
// ranks on — distinct from store.Memory.AccessCount so that injected (not
// explicitly accessed) memories never climb the ranking.
type entry struct {
	mem     *store.Memory
	smooth  float64
}

// Index is the bounded hot working set. hotCap bounds get_hot's candidate
// pool size; it does not evict cache entries (the map grows with warmup and
// delta_sync, a read-mostly cache that trades memory for lookup speed).
type Index struct {
	store  *store.Store
	hotCap int

	mu         sync.RWMutex
	byID       map[string]*entry
	byCategory map[string][]string // category -> ordered memory ids, most-recent-first
	coOccur    map[string]map[string]int
	watermark  time.Time
}

// New builds an empty index; call Warmup before first use.
func New(s *store.Store, hotCap int) *Index {
	return &Index{
		store:      s,
		hotCap:     hotCap,
		byID:       map[string]*entry{},
		byCategory: map[string][]string{},
		coOccur:    map[string]map[string]int{},
	}
}

// Warmup bulk-reads recent memories into the map and populates category
// buckets.
func (ix *Index) Warmup(limit int) error {
	mems, err := ix.store.GetRecent(limit, nil)
	if err != nil {
		return fmt.Errorf("index: warmup: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	// GetRecent is newest-first and insertLocked prepends, so insert oldest first.
	for i := len(mems) - 1; i >= 0; i-- {
		ix.insertLocked(mems[i])
	}
	ix.watermark = time.Now()
	return nil
}

func (ix *Index) insertLocked(m *store.Memory) {
	ix.byID[m.ID] = &entry{mem: m, smooth: float64(m.AccessCount)}
	for _, cat := range m.Categories {
		ix.byCategory[cat] = appendRecent(ix.byCategory[cat], m.ID)
	}
}

func appendRecent(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append([]string{id}, ids...)
}

// GetHot returns the top-n cached memories by smoothed access count.
func (ix *Index) GetHot(n int) []*store.Memory {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	entries := make([]*entry, 0, len(ix.byID))
	for _, e := range ix.byID {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].smooth > entries[j].smooth })

	if n > ix.hotCap {
		n = ix.hotCap
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]*store.Memory, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].mem
	}
	return out
}

// GetByCategory returns a category's bucket, most recently created first.
func (ix *Index) GetByCategory(cat string) []*store.Memory {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := ix.byCategory[cat]
	out := make([]*store.Memory, 0, len(ids))
	for _, id := range ids {
		if e, ok := ix.byID[id]; ok {
			out = append(out, e.mem)
		}
	}
	return out
}

// RecordAccess increments an entry's smoothed count and re-ranks it.
// Invariant: only explicit retrieval (search/STM/tool) calls this — context
// injection never does, preventing a stuck-hot feedback loop.
func (ix *Index) RecordAccess(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if e, ok := ix.byID[id]; ok {
		e.smooth = e.smooth*0.9 + 1.0
		e.mem.AccessCount++
	}
}

// RecordCoOccurrence adds pairwise adjacency for memories that appeared
// together in the same injected context.
func (ix *Index) RecordCoOccurrence(ids []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			ix.bump(ids[i], ids[j])
			ix.bump(ids[j], ids[i])
		}
	}
}

func (ix *Index) bump(a, b string) {
	if ix.coOccur[a] == nil {
		ix.coOccur[a] = map[string]int{}
	}
	ix.coOccur[a][b]++
}

// CoOccurring returns ids that have co-occurred with id, most frequent first.
func (ix *Index) CoOccurring(id string, limit int) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	neighbors := ix.coOccur[id]
	type pair struct {
		id    string
		count int
	}
	pairs := make([]pair, 0, len(neighbors))
	for n, c := range neighbors {
		pairs = append(pairs, pair{n, c})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].count > pairs[j].count })
	if limit > len(pairs) {
		limit = len(pairs)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = pairs[i].id
	}
	return out
}

// PrefetchCategory loads additional bucket memories from the store on a
// category shift (e.g. a tool call's extracted context changes category).
func (ix *Index) PrefetchCategory(cat string) error {
	mems, err := ix.store.GetRecent(ix.hotCap, []string{cat})
	if err != nil {
		return fmt.Errorf("index: prefetch %s: %w", cat, err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i := len(mems) - 1; i >= 0; i-- {
		ix.insertLocked(mems[i])
	}
	return nil
}

// DeltaSync pulls memories updated since the watermark and advances it.
func (ix *Index) DeltaSync() error {
	ix.mu.RLock()
	wm := ix.watermark
	ix.mu.RUnlock()

	mems, err := ix.store.GetRecent(ix.hotCap, nil)
	if err != nil {
		return fmt.Errorf("index: delta sync: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i := len(mems) - 1; i >= 0; i-- {
		m := mems[i]
		if m.LastAccessed.After(wm) || m.CreatedAt.After(wm) {
			ix.insertLocked(m)
		}
	}
	ix.watermark = time.Now()
	return nil
}
