package runtime

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/config"
	"github.com/cortexmind/cortex/internal/embedding"
	"github.com/cortexmind/cortex/internal/enforcement"
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

// Build wires every component from a loaded configuration into a running
// Engine: store, transport, embedding, gate/trust, self-healing, and the
// background loops (trust sweep, predictive polling).
func Build(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	sessionsDir := cfg.SessionPersistence.SessionsDir
	if sessionsDir != "" {
		_ = os.MkdirAll(sessionsDir, 0o755)
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "cortex.db"))
	if err != nil {
		return nil, err
	}

	broker, err := transport.StartBroker(cfg.Server.NATSPort)
	if err != nil {
		st.Close()
		return nil, err
	}
	bus, err := transport.NewClient(broker.URL(), "cortex-engine", log)
	if err != nil {
		broker.Shutdown()
		st.Close()
		return nil, err
	}

	var embedder embedding.Provider = embedding.Unavailable{}
	if cfg.Embedding.URL != "" {
		lm := embedding.NewLMStudio(cfg.Embedding.URL, cfg.Embedding.Model)
		embedder = lm
	}

	idx := index.New(st, cfg.HotTierSize)
	if err := idx.Warmup(cfg.HotTierSize); err != nil {
		log.Warn("index warmup failed", zap.Error(err))
	}
	ring := sessionring.New(cfg.EpisodicMemoryTurns, 4000*cfg.EpisodicMemoryTurns)

	cats, err := category.New(st)
	if err != nil {
		return nil, err
	}

	sopDir := filepath.Join(cfg.DataDir, "sops")
	_ = os.MkdirAll(sopDir, 0o755)
	sopEnhancer := sop.New(sopDir, sop.DefaultPatterns(), logWith(log, "sop"))
	if _, err := sop.WatchDir(sopEnhancer, logWith(log, "sop")); err != nil {
		log.Warn("sop directory watch failed", zap.Error(err))
	}

	enforceCfg := enforcement.Config{
		Level:                levelFromInt(cfg.PreActionHooks.EnforcementLevel),
		MinBlockingPriority:  80,
		ConfidenceThresholds: map[string]float64{"routine": cfg.PreActionHooks.ConfidenceThreshold, "critical": 0.8},
		MaxKnowledgeLength:   cfg.PreActionHooks.MaxKnowledgeLength,
		EmergencyBypass:      cfg.PreActionHooks.EmergencyBypass,
		CooldownWindow:       time.Duration(cfg.PreActionHooks.CooldownMinutes) * time.Minute,
	}

	collectors := telemetry.NewCollectors("cortex")
	recorder := telemetry.NewRecorder(collectors, filepath.Join(cfg.DataDir, "events.jsonl"), logWith(log, "telemetry"))

	preActionGate := gate.New(sopEnhancer, st, cats, enforceCfg,
		time.Duration(cfg.PreActionHooks.MaxLookupMs)*time.Millisecond,
		cfg.PreActionHooks.ConfidenceThreshold, recorder, logWith(log, "gate"))

	trustGate := trust.New(st, time.Duration(cfg.Trust.CorrectionWindowMinutes)*time.Minute)

	classifier := inject.NewAtomClassifier(st, 3)
	composer := inject.New(inject.Config{
		RelevanceThreshold:    cfg.RelevanceThreshold,
		MinMatchScore:         cfg.MinMatchScore,
		TruncateOldMemoriesTo: cfg.TruncateOldMemoriesTo,
	}, idx, ring, cats, embedder, classifier)

	sessionMgr := session.New(st, sessionsDir, logWith(log, "session"),
		session.WithLookback(time.Duration(cfg.SessionPersistence.LookbackDays)*24*time.Hour),
		session.WithRelevanceFloor(cfg.SessionPersistence.RelevanceThreshold),
		session.WithMaxInheritedPins(cfg.SessionPersistence.MaxInheritedPins),
	)

	msgFacade := messaging.New(st)

	incidentMgr := selfheal.NewIncidentManager(st, bus, logWith(log, "selfheal"))
	registry, err := selfheal.NewRegistry(st)
	if err != nil {
		return nil, err
	}
	executor := selfheal.NewExecutor(incidentMgr, registry, verifyProbe, selfheal.ExecutorConfig{
		VerificationInterval: time.Duration(cfg.SelfHealing.VerificationIntervalMs) * time.Millisecond,
		MinClearReadings:     cfg.SelfHealing.MinClearReadings,
	}, logWith(log, "selfheal"))
	router := selfheal.NewRouter(msgFacade, bus, nil, cfg.SelfHealing.Tier3SignalChannel, logWith(log, "selfheal"))
	supervisor := selfheal.NewSupervisor(incidentMgr, registry, executor, router, cfg.SelfHealing.DryRunGraduationCount)

	probes := buildProbes(cfg, st)
	pollingEngine := predictive.NewPollingEngine(probes)
	pollingEngine.OnReading(supervisor.OnReading)

	e := &Engine{
		cfg:           config.NewLive(cfg),
		log:           log,
		Store:         st,
		Index:         idx,
		Ring:          ring,
		Categories:    cats,
		SOP:           sopEnhancer,
		Messaging:     msgFacade,
		Session:       sessionMgr,
		Composer:      composer,
		PreActionGate: preActionGate,
		TrustGate:     trustGate,
		Supervisor:      supervisor,
		PollingEngine:   pollingEngine,
		IncidentManager: incidentMgr,
		Runbooks:        registry,
		Executor:        executor,
		Bus:           bus,
		Broker:        broker,
		Metrics:       recorder,
		stop:          make(chan struct{}),
	}

	if cfg.SelfHealing.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		pollingEngine.Start(ctx)
		go func() { <-e.stop; cancel() }()
	}
	go e.sweepLoop(time.Duration(cfg.Trust.OutcomeSweepIntervalMins) * time.Minute)

	return e, nil
}

// verifyProbe is the executor's pre-verify/post-remediation Prober. It has
// no live reading source wired by default (each runbook's own probe
// interval drives detection); a fresh reading is never available synchronously
// here, so it conservatively reports not-clear and lets the runbook proceed.
func verifyProbe(ctx context.Context, anomalyType selfheal.AnomalyType, targetID string) (bool, error) {
	return false, nil
}

func buildProbes(cfg *config.Config, st *store.Store) []predictive.DataSourceAdapter {
	interval := func(key string, fallback time.Duration) time.Duration {
		if ms, ok := cfg.SelfHealing.ProbeIntervalsMs[key]; ok && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
		return fallback
	}
	return []predictive.DataSourceAdapter{
		predictive.NewDiskProbe("disk-data", cfg.DataDir, interval("disk_pressure", 60*time.Second)),
		predictive.NewMemoryProbe("memory-host", "/proc", interval("memory_leak", 60*time.Second)),
		predictive.NewDBIntegrityProbe("db-cortex", st.DB(), interval("db_corruption", 10*time.Minute)),
		predictive.NewLogBloatProbe("log-data", cfg.DataDir, interval("log_bloat", 5*time.Minute)),
	}
}

func (e *Engine) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-t.C:
			if e.TrustGate == nil {
				continue
			}
			n, err := e.TrustGate.Sweep(time.Now())
			if err != nil {
				e.log.Warn("trust sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				e.log.Info("trust sweep resolved expired pending decisions", zap.Int("count", n))
			}
		}
	}
}

func levelFromInt(n int) enforcement.Level {
	switch n {
	case 0:
		return enforcement.LevelDisabled
	case 2:
		return enforcement.LevelCategory
	case 3:
		return enforcement.LevelAdvisory
	default:
		return enforcement.LevelStrict
	}
}

func logWith(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.With(zap.String("component", component))
}
