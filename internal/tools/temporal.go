package tools

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/extract"
	"github.com/cortexmind/cortex/internal/store"
)

// ClassifyQuery implements classify_query: runs the same context extraction
// the Pre-Action Gate uses on tool calls against a free-text query, so the
// agent can see what category/risk signals a prompt would trigger.
func (r *Registry) ClassifyQuery(query string) Result {
	ctx := extract.Extract("", map[string]string{"query": query})
	var cats []string
	if r.engine.Categories != nil {
		cats = r.engine.Categories.Detect(query)
	}
	details := map[string]interface{}{
		"keywords":     ctx.Keywords,
		"command_type": ctx.CommandType,
		"risk_level":   ctx.RiskLevel,
		"categories":   cats,
	}
	return textWith(fmt.Sprintf("categories=[%s] risk=%s", strings.Join(cats, ", "), ctx.RiskLevel), details)
}

var relativeHours = map[string]float64{
	"today":     24,
	"yesterday": 48,
	"this week": 24 * 7,
	"last week": 24 * 14,
}

var hoursAgoPattern = regexp.MustCompile(`(\d+)\s*(hour|day|week)s?\s*ago`)

// resolveTimeReference turns a human time phrase into a lookback window
// ending at now. Unrecognized phrases fall back to a 30-day window rather
// than failing the call.
func resolveTimeReference(ref string, now time.Time) (since time.Time) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if hours, ok := relativeHours[ref]; ok {
		return now.Add(-time.Duration(hours) * time.Hour)
	}
	if m := hoursAgoPattern.FindStringSubmatch(ref); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := m[2]
		var mult time.Duration
		switch unit {
		case "hour":
			mult = time.Hour
		case "day":
			mult = 24 * time.Hour
		case "week":
			mult = 7 * 24 * time.Hour
		}
		return now.Add(-time.Duration(n) * mult)
	}
	return now.Add(-30 * 24 * time.Hour)
}

// TemporalSearch implements temporal_search: a content search restricted to
// a time window resolved from a human time reference, re-ranked by recency.
func (r *Registry) TemporalSearch(query, timeReference string, limit int) Result {
	if limit <= 0 {
		limit = 10
	}
	now := time.Now()
	since := resolveTimeReference(timeReference, now)

	mems, err := r.engine.Store.Search(query, nil, 0, 0)
	if err != nil {
		return errResult("internal_error", "search failed: "+err.Error())
	}
	var filtered []*store.Memory
	for _, m := range mems {
		if !m.CreatedAt.Before(since) {
			filtered = append(filtered, m)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	items := make([]map[string]interface{}, len(filtered))
	for i, m := range filtered {
		items[i] = map[string]interface{}{"id": m.ID, "content": m.Content, "created_at": m.CreatedAt}
	}
	return textWith(fmt.Sprintf("%d memory(ies) since %s", len(filtered), since.Format(time.RFC3339)), map[string]interface{}{"items": items})
}

// WhatHappenedBefore implements what_happened_before: anchors on the first
// memory matching an event description, then lists memories in the window
// preceding it.
func (r *Registry) WhatHappenedBefore(event string, hoursBefore int) Result {
	if hoursBefore <= 0 {
		hoursBefore = 24
	}
	matches, err := r.engine.Store.Search(event, nil, 0, 0)
	if err != nil {
		return errResult("internal_error", "anchor search failed: "+err.Error())
	}
	if len(matches) == 0 {
		return text("no memory matches that event")
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	anchor := matches[0]
	windowStart := anchor.CreatedAt.Add(-time.Duration(hoursBefore) * time.Hour)

	all, err := r.engine.Store.GetRecent(0, nil)
	if err != nil {
		return errResult("internal_error", "lookup failed: "+err.Error())
	}
	var preceding []*store.Memory
	for _, m := range all {
		if m.CreatedAt.After(windowStart) && m.CreatedAt.Before(anchor.CreatedAt) {
			preceding = append(preceding, m)
		}
	}
	sort.Slice(preceding, func(i, j int) bool { return preceding[i].CreatedAt.Before(preceding[j].CreatedAt) })
	items := make([]map[string]interface{}, len(preceding))
	for i, m := range preceding {
		items[i] = map[string]interface{}{"id": m.ID, "content": m.Content, "created_at": m.CreatedAt}
	}
	return textWith(fmt.Sprintf("%d memory(ies) preceding anchor %s", len(preceding), anchor.ID), map[string]interface{}{
		"anchor_id": anchor.ID, "items": items,
	})
}

// TemporalPatterns implements temporal_patterns: mines atoms sharing an
// outcome for a recurring subject/action pair, reporting it only once it has
// been observed at least min_observations times.
func (r *Registry) TemporalPatterns(outcome string, minObservations int) Result {
	if minObservations <= 0 {
		minObservations = 2
	}
	atoms, err := r.engine.Store.SearchAtomsByField(store.FieldOutcome, outcome, 1000)
	if err != nil {
		return errResult("internal_error", "atom lookup failed: "+err.Error())
	}
	counts := map[string]int{}
	totalConf := map[string]float64{}
	for _, a := range atoms {
		key := a.Subject + " -> " + a.Action
		counts[key]++
		totalConf[key] += a.Confidence
	}
	type pattern struct {
		Pattern     string  `json:"pattern"`
		Count       int     `json:"count"`
		AvgConf     float64 `json:"avg_confidence"`
	}
	var patterns []pattern
	for k, c := range counts {
		if c >= minObservations {
			patterns = append(patterns, pattern{Pattern: k, Count: c, AvgConf: totalConf[k] / float64(c)})
		}
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Count > patterns[j].Count })

	if len(patterns) == 0 {
		return text("no recurring pattern met the observation threshold")
	}
	var b strings.Builder
	details := make([]map[string]interface{}, len(patterns))
	for i, p := range patterns {
		fmt.Fprintf(&b, "- %s (x%d, %.0f%% avg confidence)\n", p.Pattern, p.Count, p.AvgConf*100)
		details[i] = map[string]interface{}{"pattern": p.Pattern, "count": p.Count, "avg_confidence": p.AvgConf}
	}
	return textWith(b.String(), map[string]interface{}{"patterns": details})
}
