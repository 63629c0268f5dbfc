package store

import "errors"

// Error taxonomy shared across Cortex. No stack-trace language: callers
// branch on these sentinels with errors.Is, never on message text.
var (
	ErrConfidenceOutOfRange = errors.New("store: confidence out of range [0.1, 1.0]")
	ErrCategoryUnknown      = errors.New("store: category unknown")
	ErrNotFound             = errors.New("store: not found")
	ErrUniqueViolation      = errors.New("store: unique constraint violated")
	ErrRetentionLocked      = errors.New("store: entry locked by retention policy")
)
