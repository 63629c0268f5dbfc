// Package store implements the authoritative persistent layer for Cortex:
// the only component permitted to write memories, atoms, links, messages,
// sessions, categories, incidents, runbooks, trust scores, and decisions.
// Everything else holds read-mostly copies synced from here.
package store

import "time"

// Source identifies how a Memory entered the store.
type Source string

const (
	SourceAgent       Source = "agent"
	SourceAutoCapture Source = "auto-capture"
	SourceImport      Source = "import"
	SourceUser        Source = "user"
)

// Memory is a short-term-memory (STM) entry.
type Memory struct {
	ID              string
	Content         string
	Categories      []string
	Importance      float64
	Confidence      float64
	AccessCount     int
	CreatedAt       time.Time
	LastAccessed    time.Time
	ExpiresAt       *time.Time
	Source          Source
	SourceMessageID string
}

// Atom is a four-facet causal knowledge unit.
type Atom struct {
	ID             string
	Subject        string
	Action         string
	Outcome        string
	Consequences   string
	Confidence     float64
	Source         string
	CreatedAt      time.Time
	ValidationCount int
	SubjectEmbedding      []float32
	ActionEmbedding       []float32
	OutcomeEmbedding      []float32
	ConsequencesEmbedding []float32
}

// LinkType enumerates causal link kinds.
type LinkType string

const (
	LinkCauses     LinkType = "causes"
	LinkEnables    LinkType = "enables"
	LinkPrecedes   LinkType = "precedes"
	LinkCorrelates LinkType = "correlates"
)

// CausalLink is a directed edge between two atoms.
type CausalLink struct {
	FromAtomID string
	ToAtomID   string
	LinkType   LinkType
	Strength   float64
}

// Priority enumerates message priority.
type Priority string

const (
	PriorityInfo   Priority = "info"
	PriorityAction Priority = "action"
	PriorityUrgent Priority = "urgent"
)

// Message is an inter-agent message routed through the Messaging Facade.
type Message struct {
	ID         string
	FromAgent  string
	ToAgent    string // "all" broadcasts
	Subject    string
	Body       string
	Priority   Priority
	ThreadID   string
	SentAt     time.Time
	ReadAt     *time.Time
	AckedAt    *time.Time
	ReadBy     []string
}

// WorkingMemoryPin is a budget-exempt pinned fact surfaced in every turn.
type WorkingMemoryPin struct {
	Content  string
	PinnedAt time.Time
	Label    string
}

// SessionState captures session continuity data.
type SessionState struct {
	SessionID        string
	StartTime        time.Time
	EndTime          *time.Time
	Channel          string
	WorkingMemory    []WorkingMemoryPin
	HotTopics        []string
	ActiveProjects   []string
	PendingTasks     []string
	RecentLearnings  []string
	SOPInteractions  int
	PreviousSessionID string
	ContinuedBy      string
}

// Category describes a keyword-detected memory category.
type Category struct {
	Name        string
	Description string
	Keywords    []string
}

// IncidentState enumerates the self-healing state machine states.
type IncidentState string

const (
	IncidentDetected           IncidentState = "detected"
	IncidentDiagnosing         IncidentState = "diagnosing"
	IncidentRemediating        IncidentState = "remediating"
	IncidentVerifying          IncidentState = "verifying"
	IncidentResolved           IncidentState = "resolved"
	IncidentEscalated          IncidentState = "escalated"
	IncidentSelfResolved       IncidentState = "self_resolved"
	IncidentRemediationFailed  IncidentState = "remediation_failed"
	IncidentDismissed          IncidentState = "dismissed"
)

// Severity enumerates incident severity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AuditEntry is one state transition in an incident's append-only trail.
type AuditEntry struct {
	At        time.Time
	FromState IncidentState
	ToState   IncidentState
	Note      string
}

// Incident is a uniquely-keyed (anomaly_type, target_id) record.
type Incident struct {
	ID               string
	AnomalyType      string
	TargetID         string
	Severity         Severity
	State            IncidentState
	RunbookID        string
	DetectedAt       time.Time
	StateChangedAt   time.Time
	ResolvedAt       *time.Time
	EscalationTier   int
	DismissUntil     *time.Time
	AuditTrail       []AuditEntry
	Details          map[string]string
}

// RunbookMode enumerates execution modes.
type RunbookMode string

const (
	RunbookDryRun      RunbookMode = "dry_run"
	RunbookAutoExecute RunbookMode = "auto_execute"
)

// RunbookRecord is the persisted runtime state layered over a built-in
// RunbookDefinition (see internal/selfheal).
type RunbookRecord struct {
	ID                  string
	Label               string
	AppliesTo           []string
	Mode                RunbookMode
	Confidence          float64
	DryRunCount         int
	AutoApproveWhitelist bool
}

// GateDecision enumerates Pre-Action Gate / Trust Gate outcomes.
type GateDecision string

const (
	DecisionPass  GateDecision = "pass"
	DecisionPause GateDecision = "pause"
	DecisionBlock GateDecision = "block"
)

// Outcome enumerates how a gated action resolved.
type Outcome string

const (
	OutcomePending               Outcome = "pending"
	OutcomePass                  Outcome = "pass"
	OutcomeCorrectedMinor        Outcome = "corrected_minor"
	OutcomeCorrectedSignificant  Outcome = "corrected_significant"
	OutcomeToolErrorInternal     Outcome = "tool_error_internal"
	OutcomeToolErrorExternal     Outcome = "tool_error_external"
	OutcomeDenied                Outcome = "denied"
)

// DecisionLogEntry records a single Pre-Action/Trust gate decision.
type DecisionLogEntry struct {
	DecisionID        string
	Timestamp         time.Time
	ToolName          string
	Category          string
	Tier              int
	GateDecision      GateDecision
	Outcome           Outcome
	ToolParamsSummary string
	ToolParamsHash    string
}

// TrustScore is the per-category EWMA trust record.
type TrustScore struct {
	Category      string
	Tier          int
	CurrentScore  float64
	DecisionCount int
	LastUpdated   time.Time
}
