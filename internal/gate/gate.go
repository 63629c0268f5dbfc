// Package gate implements C8: the Pre-Action Gate that intercepts tool
// calls, races an SOP lookup against a store search under a hard timeout,
// and delegates to the Enforcement Engine for the final verdict.
package gate

import (
	"context"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/enforcement"
	"github.com/cortexmind/cortex/internal/extract"
	"github.com/cortexmind/cortex/internal/sop"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/cortexmind/cortex/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultIntercept is the default set of tool names the gate evaluates at all;
// everything else passes through untouched.
var defaultIntercept = map[string]bool{
	"exec": true, "nodes": true, "browser": true, "message": true,
}

var gateCategories = []string{"process", "technical", "security", "gotchas", "credentials"}

// Result is before_tool_call's return contract.
type Result struct {
	Block       bool
	BlockReason string
}

// Gate wires the SOP enhancer, memory search, tool-call extraction, and
// enforcement rule table together.
type Gate struct {
	sop        *sop.Enhancer
	store      *store.Store
	categories *category.Manager
	enforce    enforcement.Config
	cooldown   *enforcement.Cooldown
	intercept  map[string]bool
	maxLookup  time.Duration
	minConf    float64
	metrics    *telemetry.Recorder
	log        *zap.Logger
}

// New builds a Gate.
func New(s *sop.Enhancer, st *store.Store, cats *category.Manager, enforceCfg enforcement.Config,
	maxLookup time.Duration, minConfidence float64, metrics *telemetry.Recorder, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	cooldownWindow := 5 * time.Minute
	if enforceCfg.CooldownWindow > 0 {
		cooldownWindow = enforceCfg.CooldownWindow
	}
	return &Gate{
		sop: s, store: st, categories: cats, enforce: enforceCfg,
		cooldown: enforcement.NewCooldown(cooldownWindow), intercept: defaultIntercept,
		maxLookup: maxLookup, minConf: minConfidence, metrics: metrics, log: log,
	}
}

// BeforeToolCall implements the before_tool_call hook contract. Internal
// exceptions fail-open (pass) and are logged, never propagated.
func (g *Gate) BeforeToolCall(ctx context.Context, toolName string, params map[string]string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("gate panicked, failing open", zap.Any("recover", r), zap.String("tool", toolName))
			res = Result{}
		}
	}()

	if !g.intercept[toolName] {
		return Result{}
	}

	extracted := extract.Extract(toolName, params)

	if toolName == "exec" && extracted.CommandType == "read_only" {
		g.metric("gate_readonly_passthrough", 1, toolName)
		return Result{}
	}

	paramsStr := paramsToString(params)
	sopMatches, memories := g.raceLookup(ctx, paramsStr, extracted)

	if len(sopMatches) == 0 && len(memories) == 0 {
		g.metric("gate_no_sources", 1, toolName)
		return Result{}
	}

	cats := g.categories.Detect(paramsStr)
	primary := "general"
	if len(cats) > 0 {
		primary = cats[0]
	}

	decision := enforcement.Decide(extracted, primary, toolName,
		enforcement.Knowledge{SOPs: sopMatches, Memories: memories}, g.enforce, g.cooldown, time.Now())

	if decision.Block {
		g.metric("gate_block", 1, toolName)
		return Result{Block: true, BlockReason: decision.Reason}
	}
	return Result{}
}

// raceLookup runs the SOP lookup and store search concurrently, bounded by
// maxLookup; on timeout it degrades to whatever SOP-only result (likely
// cached) is already available and an empty memory list.
func (g *Gate) raceLookup(ctx context.Context, paramsStr string, extracted extract.Context) ([]sop.Match, []*store.Memory) {
	lookupCtx, cancel := context.WithTimeout(ctx, g.maxLookup)
	defer cancel()

	sopCh := make(chan []sop.Match, 1)
	memCh := make(chan []*store.Memory, 1)

	var grp errgroup.Group
	grp.Go(func() error {
		sopCh <- g.sop.FindMatches(paramsStr)
		return nil
	})
	grp.Go(func() error {
		results, err := g.store.Search(strings.Join(extracted.Keywords, " "), gateCategories, g.minConf, 10)
		if err != nil {
			results = nil // search failure degrades silently; timeout/err both yield empty
		}
		memCh <- results
		return nil
	})
	go grp.Wait()

	var sopMatches []sop.Match
	var memories []*store.Memory
	timedOut := false
	for i := 0; i < 2 && !timedOut; i++ {
		select {
		case sopMatches = <-sopCh:
		case memories = <-memCh:
		case <-lookupCtx.Done():
			g.metric("gate_lookup_timeout", 1, "")
			timedOut = true
		}
	}

	return sopMatches, memories
}

func (g *Gate) metric(name string, value float64, toolName string) {
	if g.metrics == nil {
		return
	}
	g.metrics.Record(telemetry.Metric{Type: "cortex", Name: name, Value: value, Context: toolName})
}

func paramsToString(params map[string]string) string {
	var b strings.Builder
	for k, v := range params {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(v)
		b.WriteString(" ")
	}
	return b.String()
}
