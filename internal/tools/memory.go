package tools

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// CortexAdd implements cortex_add: store a memory with initial confidence
// 1.0, auto-detecting categories when none are supplied.
func (r *Registry) CortexAdd(content string, categories []string, importance float64) Result {
	if strings.TrimSpace(content) == "" {
		return errResult("validation_error", "content must not be empty")
	}
	if len(categories) == 0 && r.engine.Categories != nil {
		categories = r.engine.Categories.Detect(content)
	}
	if importance == 0 {
		importance = 1.0
	}
	m := &store.Memory{
		Content:    content,
		Categories: categories,
		Importance: importance,
		Confidence: 1.0,
		CreatedAt:  time.Now(),
		Source:     store.SourceAgent,
	}
	if err := r.engine.Store.AddMemory(m); err != nil {
		return errResult("internal_error", "failed to store memory: "+err.Error())
	}
	if r.engine.Index != nil {
		_ = r.engine.Index.DeltaSync()
	}
	return textWith(fmt.Sprintf("stored memory %s in categories [%s]", m.ID, strings.Join(m.Categories, ", ")),
		map[string]interface{}{"memory_id": m.ID, "categories": m.Categories})
}

// CortexSTM implements cortex_stm: list recent short-term memory with
// human-readable time deltas and confidence.
func (r *Registry) CortexSTM(limit int, categories []string) Result {
	if limit <= 0 {
		limit = 20
	}
	mems, err := r.engine.Store.GetRecent(limit, categories)
	if err != nil {
		return errResult("internal_error", "failed to list memories: "+err.Error())
	}
	now := time.Now()
	var b strings.Builder
	items := make([]map[string]interface{}, 0, len(mems))
	for _, m := range mems {
		fmt.Fprintf(&b, "- [%s ago, %.0f%% confidence] %s\n", ago(now.Sub(m.CreatedAt)), m.Confidence*100, truncate(m.Content, 200))
		items = append(items, map[string]interface{}{
			"id": m.ID, "content": m.Content, "categories": m.Categories,
			"confidence": m.Confidence, "created_at": m.CreatedAt,
		})
	}
	if len(mems) == 0 {
		return textWith("no recent memories", map[string]interface{}{"items": items})
	}
	return textWith(b.String(), map[string]interface{}{"items": items})
}

// CortexStats implements cortex_stats: total memory count, per-category
// counts, average confidence, hot-tier size, and active-session ring length.
func (r *Registry) CortexStats() Result {
	mems, err := r.engine.Store.GetRecent(0, nil)
	if err != nil {
		return errResult("internal_error", "failed to compute stats: "+err.Error())
	}
	byCategory := map[string]int{}
	var confSum float64
	for _, m := range mems {
		for _, c := range m.Categories {
			byCategory[c]++
		}
		confSum += m.Confidence
	}
	avgConf := 0.0
	if len(mems) > 0 {
		avgConf = confSum / float64(len(mems))
	}
	hotCount := 0
	ringLen := 0
	if r.engine.Index != nil {
		hotCount = len(r.engine.Index.GetHot(10000))
	}
	if r.engine.Ring != nil {
		ringLen = r.engine.Ring.Len()
	}
	details := map[string]interface{}{
		"total_memories":   len(mems),
		"by_category":      byCategory,
		"avg_confidence":   avgConf,
		"hot_tier_size":    hotCount,
		"active_session":   ringLen,
	}
	return textWith(fmt.Sprintf("%d memories, %d in hot tier, avg confidence %.0f%%", len(mems), hotCount, avgConf*100), details)
}

// CortexDedupe implements cortex_dedupe: identify, and optionally collapse,
// near-duplicate memories keyed on the first-100-char lowercased content
// (similarity_threshold is reserved for a future semantic variant).
func (r *Registry) CortexDedupe(action string, categories []string, similarityThreshold float64) Result {
	mems, err := r.engine.Store.GetRecent(0, categories)
	if err != nil {
		return errResult("internal_error", "failed to scan memories: "+err.Error())
	}
	sort.Slice(mems, func(i, j int) bool { return mems[i].CreatedAt.Before(mems[j].CreatedAt) })

	groups := map[string][]*store.Memory{}
	for _, m := range mems {
		key := dedupeKey(m.Content)
		groups[key] = append(groups[key], m)
	}

	var dupGroups [][]*store.Memory
	for _, g := range groups {
		if len(g) > 1 {
			dupGroups = append(dupGroups, g)
		}
	}

	switch action {
	case "report", "":
		report := make([]map[string]interface{}, 0, len(dupGroups))
		for _, g := range dupGroups {
			ids := make([]string, len(g))
			for i, m := range g {
				ids[i] = m.ID
			}
			report = append(report, map[string]interface{}{"ids": ids, "content": g[0].Content})
		}
		return textWith(fmt.Sprintf("%d duplicate group(s) found", len(dupGroups)), map[string]interface{}{"groups": report})

	case "delete_older":
		var toDelete []string
		for _, g := range dupGroups {
			for _, m := range g[:len(g)-1] {
				toDelete = append(toDelete, m.ID)
			}
		}
		n, err := r.engine.Store.BatchDelete(toDelete)
		if err != nil {
			return errResult("internal_error", "delete failed: "+err.Error())
		}
		return textWith(fmt.Sprintf("deleted %d older duplicates", n), map[string]interface{}{"deleted": n})

	case "merge":
		var toDelete []string
		for _, g := range dupGroups {
			newest := g[len(g)-1]
			_ = r.engine.Store.RecordAccess(newest.ID)
			for _, m := range g[:len(g)-1] {
				toDelete = append(toDelete, m.ID)
			}
		}
		n, err := r.engine.Store.BatchDelete(toDelete)
		if err != nil {
			return errResult("internal_error", "merge failed: "+err.Error())
		}
		return textWith(fmt.Sprintf("merged %d duplicate group(s), removed %d entries", len(dupGroups), n), map[string]interface{}{"deleted": n})

	default:
		return errResult("validation_error", "unknown dedupe action: "+action)
	}
}

// CortexUpdate implements cortex_update: mutate memory metadata.
func (r *Registry) CortexUpdate(memoryID string, importance *float64, categories []string) Result {
	f := store.MemoryFields{Importance: importance}
	if categories != nil {
		f.Categories = categories
	}
	if err := r.engine.Store.UpdateMemoryFields(memoryID, f); err != nil {
		return errResult("not_found", "update failed: "+err.Error())
	}
	return text("memory updated")
}

// CortexEdit implements cortex_edit: mutate content in place, appending or
// replacing, and triggers a hot-tier resync (re-embed belongs to a semantic
// index this store does not maintain for memories, see DESIGN.md).
func (r *Registry) CortexEdit(memoryID string, appendText, replaceText string) Result {
	var newContent string
	if replaceText != "" {
		newContent = replaceText
	} else if appendText != "" {
		mems, err := r.engine.Store.GetRecent(0, nil)
		if err != nil {
			return errResult("internal_error", "lookup failed: "+err.Error())
		}
		found := false
		for _, m := range mems {
			if m.ID == memoryID {
				newContent = m.Content + "\n" + appendText
				found = true
				break
			}
		}
		if !found {
			return errResult("not_found", "memory not found: "+memoryID)
		}
	} else {
		return errResult("validation_error", "one of append or replace is required")
	}
	if err := r.engine.Store.EditMemory(memoryID, newContent); err != nil {
		return errResult("not_found", "edit failed: "+err.Error())
	}
	if r.engine.Index != nil {
		_ = r.engine.Index.DeltaSync()
	}
	return text("memory edited")
}

// CortexMove implements cortex_move: reassign a memory's categories.
func (r *Registry) CortexMove(memoryID string, toCategories []string) Result {
	if len(toCategories) == 0 {
		return errResult("validation_error", "to_categories must not be empty")
	}
	if err := r.engine.Store.UpdateMemoryFields(memoryID, store.MemoryFields{Categories: toCategories}); err != nil {
		return errResult("not_found", "move failed: "+err.Error())
	}
	return text("memory recategorized")
}

// CortexCreateCategory implements cortex_create_category.
func (r *Registry) CortexCreateCategory(name, description string, keywords []string) Result {
	if err := r.engine.Categories.Add(name, description, keywords); err != nil {
		return errResult("conflict", "create category failed: "+err.Error())
	}
	return text("category created: " + name)
}

// CortexListCategories implements cortex_list_categories.
func (r *Registry) CortexListCategories() Result {
	cats := r.engine.Categories.List()
	names := make([]string, len(cats))
	items := make([]map[string]interface{}, len(cats))
	for i, c := range cats {
		names[i] = c.Name
		items[i] = map[string]interface{}{"name": c.Name, "description": c.Description, "keywords": c.Keywords}
	}
	return textWith(strings.Join(names, ", "), map[string]interface{}{"categories": items})
}

func dedupeKey(content string) string {
	c := strings.ToLower(content)
	if len(c) > 100 {
		c = c[:100]
	}
	return c
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
