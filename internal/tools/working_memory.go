package tools

import (
	"fmt"
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// WorkingMemory implements working_memory: a bounded pin set backed by a
// whole-set overwrite (store.SaveWorkingMemory enforces the 10-pin cap and
// unique-label invariant).
func (r *Registry) WorkingMemory(action, content, label string, index int) Result {
	switch action {
	case "view":
		pins, err := r.engine.Store.GetWorkingMemory()
		if err != nil {
			return errResult("internal_error", "view failed: "+err.Error())
		}
		items := make([]map[string]interface{}, len(pins))
		for i, p := range pins {
			items[i] = map[string]interface{}{"content": p.Content, "label": p.Label, "pinned_at": p.PinnedAt}
		}
		return textWith(fmt.Sprintf("%d pinned fact(s)", len(pins)), map[string]interface{}{"pins": items})

	case "pin":
		if content == "" {
			return errResult("validation_error", "content is required to pin")
		}
		pins, err := r.engine.Store.GetWorkingMemory()
		if err != nil {
			return errResult("internal_error", "pin failed: "+err.Error())
		}
		pins = append(pins, store.WorkingMemoryPin{Content: content, Label: label, PinnedAt: time.Now()})
		if err := r.engine.Store.SaveWorkingMemory(pins); err != nil {
			return errResult("validation_error", "pin failed: "+err.Error())
		}
		return text("pinned")

	case "unpin":
		pins, err := r.engine.Store.GetWorkingMemory()
		if err != nil {
			return errResult("internal_error", "unpin failed: "+err.Error())
		}
		var remaining []store.WorkingMemoryPin
		for i, p := range pins {
			if label != "" && p.Label == label {
				continue
			}
			if label == "" && i == index {
				continue
			}
			remaining = append(remaining, p)
		}
		if err := r.engine.Store.SaveWorkingMemory(remaining); err != nil {
			return errResult("internal_error", "unpin failed: "+err.Error())
		}
		return text("unpinned")

	case "clear":
		if err := r.engine.Store.SaveWorkingMemory(nil); err != nil {
			return errResult("internal_error", "clear failed: "+err.Error())
		}
		return text("working memory cleared")

	default:
		return errResult("validation_error", "unknown working_memory action: "+action)
	}
}
