// Package runtime wires every component into the host-runtime hook contract:
// before_tool_call, after_tool_call, before_agent_start, agent_end, and
// message_received, serialized per session by the caller.
package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/config"
	"github.com/cortexmind/cortex/internal/gate"
	"github.com/cortexmind/cortex/internal/index"
	"github.com/cortexmind/cortex/internal/inject"
	"github.com/cortexmind/cortex/internal/messaging"
	"github.com/cortexmind/cortex/internal/predictive"
	"github.com/cortexmind/cortex/internal/selfheal"
	"github.com/cortexmind/cortex/internal/session"
	"github.com/cortexmind/cortex/internal/sessionring"
	"github.com/cortexmind/cortex/internal/sop"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/cortexmind/cortex/internal/telemetry"
	"github.com/cortexmind/cortex/internal/transport"
	"github.com/cortexmind/cortex/internal/trust"
	"go.uber.org/zap"
)

// ToolCallResult is before_tool_call's return contract.
type ToolCallResult struct {
	Block       bool
	BlockReason string
}

// pendingCall correlates a before_tool_call decision with the matching
// after_tool_call so the trust gate can apply an outcome.
type pendingCall struct {
	entry *store.DecisionLogEntry
	tier  trust.Tier
}

// Engine is the composition root: every hook method is a thin dispatcher
// over the already-built memory, gate, trust, and self-healing components.
type Engine struct {
	cfg *config.Live
	log *zap.Logger

	Store      *store.Store
	Index      *index.Index
	Ring       *sessionring.Ring
	Categories *category.Manager
	SOP        *sop.Enhancer
	Messaging  *messaging.Facade
	Session    *session.Manager
	Composer   *inject.Composer

	PreActionGate *gate.Gate
	TrustGate     *trust.Gate

	Supervisor      *selfheal.Supervisor
	PollingEngine   *predictive.PollingEngine
	IncidentManager *selfheal.IncidentManager
	Runbooks        *selfheal.Registry
	Executor        *selfheal.Executor

	Bus     *transport.Client
	Broker  *transport.Broker
	Metrics *telemetry.Recorder

	mu      sync.Mutex
	pending map[string]pendingCall // keyed by sessionID, one in-flight gated call at a time

	stop chan struct{}
}

// BeforeToolCall runs the Pre-Action Gate's knowledge-based block, then the
// Trust Gate's tier/EWMA decision, in that order: the pre-action gate's
// SOP/memory match is evaluated first; trust scoring is the second,
// independent line of defense.
func (e *Engine) BeforeToolCall(ctx context.Context, sessionID, toolName string, params map[string]string) ToolCallResult {
	now := time.Now()

	if e.PreActionGate != nil {
		res := e.PreActionGate.BeforeToolCall(ctx, toolName, params)
		if res.Block {
			return ToolCallResult{Block: true, BlockReason: res.BlockReason}
		}
	}

	if e.TrustGate == nil {
		return ToolCallResult{}
	}

	decision, entry, err := e.TrustGate.Evaluate(toolName, params, now)
	if err != nil {
		e.log.Warn("trust gate evaluate failed, failing open", zap.Error(err), zap.String("tool", toolName))
		return ToolCallResult{}
	}

	if entry != nil {
		if err := e.TrustGate.Record(entry, now); err != nil {
			e.log.Warn("trust gate record failed", zap.Error(err))
		}
		e.mu.Lock()
		if e.pending == nil {
			e.pending = map[string]pendingCall{}
		}
		e.pending[sessionID] = pendingCall{entry: entry, tier: trust.Tier(entry.Tier)}
		e.mu.Unlock()
	}

	switch decision {
	case store.DecisionBlock:
		return ToolCallResult{Block: true, BlockReason: "trust gate: category below floor, manual override required"}
	case store.DecisionPause:
		return ToolCallResult{Block: true, BlockReason: "trust gate: action requires explicit confirmation"}
	default:
		return ToolCallResult{}
	}
}

// AfterToolCall resolves the pending trust decision for the session with
// the tool's actual outcome, advancing the category's EWMA score.
func (e *Engine) AfterToolCall(sessionID string, success bool, internalError bool) {
	if e.TrustGate == nil {
		return
	}
	e.mu.Lock()
	pc, ok := e.pending[sessionID]
	if ok {
		delete(e.pending, sessionID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	outcome := store.OutcomePass
	switch {
	case !success && internalError:
		outcome = store.OutcomeToolErrorInternal
	case !success:
		outcome = store.OutcomeToolErrorExternal
	}

	if _, err := e.TrustGate.ApplyOutcome(pc.entry.Category, pc.tier, outcome); err != nil {
		e.log.Warn("trust gate apply outcome failed", zap.Error(err), zap.String("category", pc.entry.Category))
	}
}

// BeforeAgentStart restores cross-session continuity and composes the
// tiered context block for the first turn of an agent run.
func (e *Engine) BeforeAgentStart(ctx context.Context, channel, prompt string, pins []store.WorkingMemoryPin) inject.Result {
	now := time.Now()
	var preamble string
	allPins := pins

	if e.Session != nil {
		restored := e.Session.Restore(channel, now)
		preamble = restored.Preamble()
		allPins = append(append([]store.WorkingMemoryPin{}, pins...), restored.InheritedPins...)
	}

	if e.Composer == nil {
		return inject.Result{PrependContext: preamble}
	}
	return e.Composer.Compose(ctx, prompt, preamble, allPins)
}

// AgentEnd captures the closed session's final state for future restore.
func (e *Engine) AgentEnd(sess *store.SessionState) error {
	if e.Session == nil {
		return nil
	}
	return e.Session.Capture(sess)
}

// MessageReceived mirrors an inbound turn into the active session ring,
// checks it for corrective language against any pending trust decision,
// and, when auto-capture is enabled, stores it as a new memory.
func (e *Engine) MessageReceived(sessionID, text string, now time.Time) {
	if e.Ring != nil {
		e.Ring.Push("user", text)
	}

	if e.TrustGate != nil {
		e.mu.Lock()
		pc, ok := e.pending[sessionID]
		e.mu.Unlock()
		if ok {
			if outcome, matched, err := e.TrustGate.CheckCorrection(pc.entry.Category, text, now); err == nil && matched {
				if _, err := e.TrustGate.ApplyOutcome(pc.entry.Category, pc.tier, outcome); err != nil {
					e.log.Warn("trust gate correction outcome failed", zap.Error(err))
				}
				e.mu.Lock()
				delete(e.pending, sessionID)
				e.mu.Unlock()
			}
		}
	}

	cfg := e.cfg.Get()
	if cfg == nil || !cfg.AutoCapture || e.Store == nil {
		return
	}
	var cats []string
	if e.Categories != nil {
		cats = e.Categories.Detect(text)
	}
	mem := &store.Memory{
		Content:    text,
		Categories: cats,
		Importance: 0.5,
		Confidence: 1.0,
		CreatedAt:  now,
		Source:     store.SourceAutoCapture,
	}
	if err := e.Store.AddMemory(mem); err != nil {
		e.log.Warn("auto-capture add memory failed", zap.Error(err))
		return
	}
	if e.Index != nil {
		_ = e.Index.DeltaSync()
	}
}

// Close shuts down background loops and owned transport/store resources.
func (e *Engine) Close() {
	if e.stop != nil {
		close(e.stop)
	}
	if e.Bus != nil {
		e.Bus.Close()
	}
	if e.Broker != nil {
		e.Broker.Shutdown()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}
