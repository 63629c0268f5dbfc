package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Unavailable's methods so callers can
// distinguish "no embedding backend configured" from a transient daemon
// failure and skip the semantic tier rather than fail the whole request.
var ErrUnavailable = errors.New("embedding: provider unavailable")

// Unavailable is the null-object Provider used when no embedding daemon is
// configured or reachable. The context composer and the atom indexer both
// check Available() before attempting semantic work, so Embed/EmbedBatch
// failing here is a defensive backstop, not the primary control path.
type Unavailable struct{}

func (Unavailable) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrUnavailable
}

func (Unavailable) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Dimensions() int {
	return 0
}

func (Unavailable) Available() bool {
	return false
}
