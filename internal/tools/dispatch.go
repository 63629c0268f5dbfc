package tools

import "fmt"

// Dispatch maps a tool name and its raw argument bag to the matching
// Registry method, isolating the host-runtime transport (MCP or otherwise)
// from Go method signatures.
func (r *Registry) Dispatch(name string, args map[string]interface{}) (Result, error) {
	switch name {
	case "cortex_add":
		return r.CortexAdd(str(args, "content"), strSlice(args, "categories"), num(args, "importance")), nil
	case "cortex_stm":
		return r.CortexSTM(int(num(args, "limit")), strSlice(args, "categories")), nil
	case "cortex_stats":
		return r.CortexStats(), nil
	case "cortex_dedupe":
		return r.CortexDedupe(str(args, "action"), strSlice(args, "categories"), num(args, "similarity_threshold")), nil
	case "cortex_update":
		var imp *float64
		if v, ok := args["importance"]; ok {
			f := toFloat(v)
			imp = &f
		}
		return r.CortexUpdate(str(args, "memory_id"), imp, strSlice(args, "categories")), nil
	case "cortex_edit":
		return r.CortexEdit(str(args, "memory_id"), str(args, "append"), str(args, "replace")), nil
	case "cortex_move":
		return r.CortexMove(str(args, "memory_id"), strSlice(args, "to_categories")), nil
	case "cortex_create_category":
		return r.CortexCreateCategory(str(args, "name"), str(args, "description"), strSlice(args, "keywords")), nil
	case "cortex_list_categories":
		return r.CortexListCategories(), nil

	case "atom_create":
		return r.AtomCreate(str(args, "subject"), str(args, "action"), str(args, "outcome"), str(args, "consequences"), num(args, "confidence"), str(args, "source")), nil
	case "atom_search":
		return r.AtomSearch(str(args, "field"), str(args, "query"), int(num(args, "limit"))), nil
	case "atom_find_causes":
		return r.AtomFindCauses(str(args, "atom_id"), str(args, "outcome"), int(num(args, "max_depth"))), nil
	case "atom_link":
		return r.AtomLink(str(args, "from"), str(args, "to"), str(args, "type"), num(args, "strength")), nil
	case "atom_stats":
		return r.AtomStats(), nil
	case "atomize":
		return r.Atomize(str(args, "text"), boolArg(args, "batch_stm"), str(args, "source")), nil
	case "abstract_deeper":
		return r.AbstractDeeper(str(args, "query"), int(num(args, "max_depth"))), nil
	case "classify_query":
		return r.ClassifyQuery(str(args, "query")), nil
	case "temporal_search":
		return r.TemporalSearch(str(args, "query"), str(args, "time_reference"), int(num(args, "limit"))), nil
	case "what_happened_before":
		return r.WhatHappenedBefore(str(args, "event"), int(num(args, "hours_before"))), nil
	case "temporal_patterns":
		return r.TemporalPatterns(str(args, "outcome"), int(num(args, "min_observations"))), nil

	case "working_memory":
		return r.WorkingMemory(str(args, "action"), str(args, "content"), str(args, "label"), int(num(args, "index"))), nil
	case "synapse":
		return r.Synapse(str(args, "action"), str(args, "agent_id"), str(args, "to"), str(args, "subject"),
			str(args, "body"), str(args, "priority"), str(args, "thread_id"), str(args, "message_id"),
			boolArg(args, "include_read"), int(num(args, "limit"))), nil
	case "cortex_session_continue":
		return r.CortexSessionContinue(str(args, "session_id")), nil
	case "cortex_heal":
		return r.CortexHeal(str(args, "action"), str(args, "incident_id"), str(args, "runbook_id"),
			str(args, "note"), int(num(args, "until_hours")), boolArg(args, "confirm")), nil

	default:
		return Result{}, fmt.Errorf("tools: unknown tool %q", name)
	}
}

func str(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func num(args map[string]interface{}, key string) float64 {
	v, ok := args[key]
	if !ok || v == nil {
		return 0
	}
	return toFloat(v)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func strSlice(args map[string]interface{}, key string) []string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
