// Package session implements session capture, crash-safe incremental
// updates, and relevance-scored restore with pin inheritance.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/store"
	"go.uber.org/zap"
)

const (
	defaultLookbackWindow  = 14 * 24 * time.Hour
	defaultRelevanceFloor  = 0.25
	defaultTopN            = 3
	defaultMaxInheritedPins = 5
	restoreBudget          = 1500 * time.Millisecond
	confidenceFloor        = 0.3
	confidenceHorizonHours = 168.0
)

// Manager owns session capture, incremental update, and restore.
type Manager struct {
	store       *store.Store
	backupDir   string
	log         *zap.Logger
	lookback    time.Duration
	relevanceFloor float64
	topN        int
	maxPins     int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLookback(d time.Duration) Option    { return func(m *Manager) { m.lookback = d } }
func WithRelevanceFloor(f float64) Option    { return func(m *Manager) { m.relevanceFloor = f } }
func WithTopN(n int) Option                  { return func(m *Manager) { m.topN = n } }
func WithMaxInheritedPins(n int) Option      { return func(m *Manager) { m.maxPins = n } }

// New builds a session Manager. backupDir may be empty to disable JSON mirroring.
func New(s *store.Store, backupDir string, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store: s, backupDir: backupDir, log: log,
		lookback: defaultLookbackWindow, relevanceFloor: defaultRelevanceFloor,
		topN: defaultTopN, maxPins: defaultMaxInheritedPins,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Capture persists the final session_state snapshot and mirrors it to a
// non-blocking JSON backup file.
func (m *Manager) Capture(sess *store.SessionState) error {
	now := time.Now()
	sess.EndTime = &now
	if err := m.store.UpsertSession(sess); err != nil {
		return err
	}
	if m.backupDir != "" {
		go m.mirror(sess)
	}
	return nil
}

// IncrementalUpdate applies a mid-session update to the hot-topic/project/
// learnings surfaces for crash safety, without closing the session.
func (m *Manager) IncrementalUpdate(sess *store.SessionState) error {
	return m.store.UpsertSession(sess)
}

func (m *Manager) mirror(sess *store.SessionState) {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		m.log.Warn("session mirror marshal failed", zap.Error(err))
		return
	}
	path := filepath.Join(m.backupDir, sess.SessionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.log.Warn("session mirror write failed", zap.Error(err), zap.String("path", path))
	}
}

// RecoverDangling marks sessions with end_time = null (crashed) as closed,
// without losing their content, so they are eligible for restore scoring.
func (m *Manager) RecoverDangling() ([]*store.SessionState, error) {
	dangling, err := m.store.ListDanglingSessions()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, s := range dangling {
		s.EndTime = &now
		if err := m.store.UpsertSession(s); err != nil {
			m.log.Warn("recover dangling session failed", zap.Error(err), zap.String("session_id", s.SessionID))
			continue
		}
	}
	return dangling, nil
}

// RestoredContext is the single output struct delivered to the context composer for the L0 preamble.
type RestoredContext struct {
	ColdStart        bool
	PreviousSessionID string
	PendingTasks     []string
	ActiveProjects   []string
	HotTopics        []string
	InheritedPins    []store.WorkingMemoryPin
	Confidence       float64
}

// Restore runs the full crash-detect → score → decay → inherit pipeline,
// falling back to a cold start if it exceeds the hard wall-time budget.
func (m *Manager) Restore(channel string, now time.Time) RestoredContext {
	deadline := time.Now().Add(restoreBudget)
	if _, err := m.RecoverDangling(); err != nil {
		m.log.Warn("recover dangling sessions failed", zap.Error(err))
	}
	if time.Now().After(deadline) {
		return RestoredContext{ColdStart: true}
	}

	candidates, err := m.store.ListRecentSessions(channel, 50)
	if err != nil || len(candidates) == 0 {
		return RestoredContext{ColdStart: true}
	}

	type scored struct {
		sess  *store.SessionState
		score float64
	}
	var ranked []scored
	for _, s := range candidates {
		if now.Sub(sessionEnd(s)) > m.lookback {
			continue
		}
		sc := relevanceScore(s, now)
		if sc >= m.relevanceFloor {
			ranked = append(ranked, scored{s, sc})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > m.topN {
		ranked = ranked[:m.topN]
	}
	if len(ranked) == 0 {
		return RestoredContext{ColdStart: true}
	}
	if time.Now().After(deadline) {
		return RestoredContext{ColdStart: true}
	}

	best := ranked[0].sess
	confidence := confidenceDecay(sessionEnd(best), now)

	pins := inheritPins(ranked, m.maxPins)

	return RestoredContext{
		PreviousSessionID: best.SessionID,
		PendingTasks:      best.PendingTasks,
		ActiveProjects:    best.ActiveProjects,
		HotTopics:         best.HotTopics,
		InheritedPins:     pins,
		Confidence:        confidence,
	}
}

// RestoreFrom forces inheritance from a specific prior session, bypassing
// the relevance-ranking candidate pool cortex_session_continue uses when the
// caller already knows which session to resume.
func (m *Manager) RestoreFrom(sessionID string, now time.Time) (RestoredContext, error) {
	sess, err := m.store.GetSession(sessionID)
	if err != nil {
		return RestoredContext{}, err
	}
	confidence := confidenceDecay(sessionEnd(sess), now)
	ranked := []struct {
		sess  *store.SessionState
		score float64
	}{{sess: sess, score: 1.0}}
	pins := inheritPins(ranked, m.maxPins)
	return RestoredContext{
		PreviousSessionID: sess.SessionID,
		PendingTasks:      sess.PendingTasks,
		ActiveProjects:    sess.ActiveProjects,
		HotTopics:         sess.HotTopics,
		InheritedPins:     pins,
		Confidence:        confidence,
	}, nil
}

func sessionEnd(s *store.SessionState) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return s.StartTime
}

// relevanceScore blends recency, hot-topic presence, and pending-task
// presence. The topic term is 1.0 whenever the session recorded any hot
// topics; the topics themselves are not compared against anything.
func relevanceScore(s *store.SessionState, now time.Time) float64 {
	hours := now.Sub(sessionEnd(s)).Hours()
	recency := 1.0 / (1.0 + hours/24.0)
	topicOverlap := 0.0
	if len(s.HotTopics) > 0 {
		topicOverlap = 1.0
	}
	pending := 0.0
	if len(s.PendingTasks) > 0 {
		pending = 1.0
	}
	return recency*0.40 + topicOverlap*0.35 + pending*0.25
}

func confidenceDecay(end, now time.Time) float64 {
	hours := now.Sub(end).Hours()
	v := 1.0 - (hours/confidenceHorizonHours)*0.4
	if v < confidenceFloor {
		return confidenceFloor
	}
	return v
}

// inheritPins pulls up to maxPins pins from the highest-scoring prior
// session (ranked[0]), deduped by label; CRITICAL-labeled pins from any
// ranked session are kept past maxPins, up to the 10-pin total cap. Sessions
// that fell below the relevance floor are not in ranked and are not consulted.
func inheritPins(ranked []struct {
	sess  *store.SessionState
	score float64
}, maxPins int) []store.WorkingMemoryPin {
	seen := map[string]bool{}
	var out []store.WorkingMemoryPin
	for i, r := range ranked {
		for _, p := range r.sess.WorkingMemory {
			if p.Label != "" && seen[p.Label] {
				continue
			}
			if i > 0 && !isCritical(p) {
				continue
			}
			if len(out) >= maxPins && !isCritical(p) {
				continue
			}
			out = append(out, p)
			if p.Label != "" {
				seen[p.Label] = true
			}
		}
	}
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

func isCritical(p store.WorkingMemoryPin) bool {
	return strings.HasPrefix(strings.ToUpper(p.Label), "CRITICAL")
}

// Preamble renders the one-shot L0 continuity block the context composer injects uncharged.
// Cold starts render an empty string.
func (rc RestoredContext) Preamble() string {
	if rc.ColdStart {
		return ""
	}
	var b strings.Builder
	b.WriteString("Continuing from a previous session.\n")
	if len(rc.PendingTasks) > 0 {
		b.WriteString("Pending tasks: " + strings.Join(rc.PendingTasks, "; ") + "\n")
	}
	if len(rc.ActiveProjects) > 0 {
		b.WriteString("Active projects: " + strings.Join(rc.ActiveProjects, "; ") + "\n")
	}
	if len(rc.HotTopics) > 0 {
		b.WriteString("Hot topics: " + strings.Join(rc.HotTopics, "; ") + "\n")
	}
	if len(rc.InheritedPins) > 0 {
		b.WriteString("Inherited " + strconv.Itoa(len(rc.InheritedPins)) + " pinned fact(s) from prior session.\n")
	}
	return b.String()
}
