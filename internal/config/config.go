// Package config loads and hot-reloads the Cortex configuration document,
// a YAML config pattern extended with environment overrides and live reload
// via fsnotify.
package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PreActionHooks gates tool calls before they execute (C8 Pre-Action Gate).
type PreActionHooks struct {
	Enabled             bool `yaml:"enabled"`
	EnforcementLevel    int  `yaml:"enforcementLevel"`
	InterceptTools      []string `yaml:"interceptTools"`
	CooldownMinutes     int  `yaml:"cooldownMinutes"`
	MaxLookupMs         int  `yaml:"maxLookupMs"`
	MaxKnowledgeLength  int  `yaml:"maxKnowledgeLength"`
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"`
	EmergencyBypass     bool `yaml:"emergencyBypass"`
}

// SessionPersistence controls cross-session inheritance.
type SessionPersistence struct {
	Enabled                 bool    `yaml:"enabled"`
	LookbackDays            int     `yaml:"lookback_days"`
	RelevanceThreshold      float64 `yaml:"relevance_threshold"`
	MaxSessionsScored       int     `yaml:"max_sessions_scored"`
	MaxInheritedPins        int     `yaml:"max_inherited_pins"`
	DecayMinFloor           float64 `yaml:"decay_min_floor"`
	CriticalInheritanceDays int     `yaml:"critical_inheritance_days"`
	SessionsDir             string  `yaml:"sessions_dir"`
	Debug                   bool    `yaml:"debug"`
}

// SelfHealing controls the anomaly-to-remediation pipeline.
type SelfHealing struct {
	Enabled                 bool     `yaml:"enabled"`
	Tier3SignalChannel      string   `yaml:"tier3_signal_channel"`
	ConfidenceAutoExecute   float64  `yaml:"confidence_auto_execute"`
	DryRunGraduationCount   int      `yaml:"dry_run_graduation_count"`
	VerificationIntervalMs  int      `yaml:"verification_interval_ms"`
	MinClearReadings        int      `yaml:"min_clear_readings"`
	IncidentDismissWindowMs int      `yaml:"incident_dismiss_window_ms"`
	AutoExecuteWhitelist    []string `yaml:"auto_execute_whitelist"`
	ProbeIntervalsMs        map[string]int `yaml:"probe_intervals_ms"`
	Debug                   bool     `yaml:"debug"`
}

// Trust controls correction-detection and EWMA decay windows.
type Trust struct {
	CorrectionWindowMinutes   int `yaml:"correction_window_minutes"`
	OutcomeSweepIntervalMins  int `yaml:"outcome_sweep_interval_minutes"`
	RetentionDays             int `yaml:"retention_days"`
}

// Server holds the transport/listener ports.
type Server struct {
	Port     int `yaml:"port"`
	NATSPort int `yaml:"nats_port"`
}

// Embedding holds the embedding daemon connection settings.
type Embedding struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// Config is the root Cortex configuration document.
type Config struct {
	Enabled               bool    `yaml:"enabled"`
	AutoCapture           bool    `yaml:"autoCapture"`
	STMFastPath           bool    `yaml:"stmFastPath"`
	TemporalRerank        bool    `yaml:"temporalRerank"`
	TemporalWeight        float64 `yaml:"temporalWeight"`
	ImportanceWeight      float64 `yaml:"importanceWeight"`
	STMCapacity           int     `yaml:"stmCapacity"`
	MinMatchScore         float64 `yaml:"minMatchScore"`
	EpisodicMemoryTurns   int     `yaml:"episodicMemoryTurns"`
	HotTierSize           int     `yaml:"hotTierSize"`
	MaxContextTokens      int     `yaml:"maxContextTokens"`
	RelevanceThreshold    float64 `yaml:"relevanceThreshold"`
	TruncateOldMemoriesTo int     `yaml:"truncateOldMemoriesTo"`
	DeltaSyncEnabled      bool    `yaml:"deltaSyncEnabled"`
	PrefetchEnabled       bool    `yaml:"prefetchEnabled"`

	PreActionHooks     PreActionHooks     `yaml:"preActionHooks"`
	SessionPersistence SessionPersistence `yaml:"session_persistence"`
	SelfHealing        SelfHealing        `yaml:"self_healing"`
	Trust              Trust              `yaml:"trust"`

	Server    Server    `yaml:"server"`
	Embedding Embedding `yaml:"embedding"`
	DataDir   string    `yaml:"data_dir"`
}

// Default returns Cortex's baked-in defaults, used when no config file is
// present and as the base that a loaded document is merged over.
func Default() *Config {
	return &Config{
		Enabled:               true,
		AutoCapture:           true,
		STMFastPath:           true,
		TemporalRerank:        true,
		TemporalWeight:        0.3,
		ImportanceWeight:      0.7,
		STMCapacity:           50,
		MinMatchScore:         0.55,
		EpisodicMemoryTurns:   20,
		HotTierSize:           200,
		MaxContextTokens:      4000,
		RelevanceThreshold:    0.6,
		TruncateOldMemoriesTo: 500,
		DeltaSyncEnabled:      true,
		PrefetchEnabled:       false,

		PreActionHooks: PreActionHooks{
			Enabled:             true,
			EnforcementLevel:    1,
			CooldownMinutes:     15,
			MaxLookupMs:         200,
			MaxKnowledgeLength:  800,
			ConfidenceThreshold: 0.6,
			EmergencyBypass:     false,
		},
		SessionPersistence: SessionPersistence{
			Enabled:                 true,
			LookbackDays:            14,
			RelevanceThreshold:      0.5,
			MaxSessionsScored:       20,
			MaxInheritedPins:        5,
			DecayMinFloor:           0.2,
			CriticalInheritanceDays: 3,
			SessionsDir:             "data/sessions",
		},
		SelfHealing: SelfHealing{
			Enabled:                 true,
			Tier3SignalChannel:      "pagerduty",
			ConfidenceAutoExecute:   0.9,
			DryRunGraduationCount:   3,
			VerificationIntervalMs: 30000,
			MinClearReadings:        2,
			IncidentDismissWindowMs: 3600000,
			ProbeIntervalsMs: map[string]int{
				"disk_pressure": 60000,
				"memory_leak":   60000,
			},
		},
		Trust: Trust{
			CorrectionWindowMinutes:  10,
			OutcomeSweepIntervalMins: 5,
			RetentionDays:            90,
		},
		Server: Server{
			Port:     3001,
			NATSPort: 4223,
		},
		Embedding: Embedding{
			URL:   "http://localhost:1234/v1",
			Model: "qwen2.5-coder-7b-instruct",
		},
		DataDir: "data",
	}
}

// Load reads a YAML config file over Default(), applying godotenv overrides
// for secrets first (embedding API keys, broker URL overrides).
func Load(path string) (*Config, error) {
	if envPath := ".env"; fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	cfg := Default()
	if path != "" && fileExists(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if url := os.Getenv("CORTEX_EMBEDDING_URL"); url != "" {
		cfg.Embedding.URL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks structural invariants on the loaded document.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.NATSPort <= 0 || c.Server.NATSPort > 65535 {
		return fmt.Errorf("invalid nats port: %d", c.Server.NATSPort)
	}
	if c.STMCapacity <= 0 {
		return fmt.Errorf("stmCapacity must be positive")
	}
	if c.PreActionHooks.ConfidenceThreshold < 0 || c.PreActionHooks.ConfidenceThreshold > 1 {
		return fmt.Errorf("preActionHooks.confidenceThreshold must be in [0,1]")
	}
	if c.SelfHealing.ConfidenceAutoExecute < 0 || c.SelfHealing.ConfidenceAutoExecute > 1 {
		return fmt.Errorf("self_healing.confidence_auto_execute must be in [0,1]")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Live wraps a Config behind an atomic pointer so fsnotify-driven reloads
// are visible to readers without locking (watcher.go installs the swap).
type Live struct {
	mu  sync.Mutex
	cur atomic.Pointer[Config]
}

// NewLive seeds a Live holder with an initial config.
func NewLive(initial *Config) *Live {
	l := &Live{}
	l.cur.Store(initial)
	return l
}

// Get returns the current configuration snapshot.
func (l *Live) Get() *Config {
	return l.cur.Load()
}

// Swap installs a newly loaded configuration, serializing concurrent reloads.
func (l *Live) Swap(next *Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cur.Store(next)
}
