// Package predictive implements a polling engine that fans data source
// adapters out on their own intervals and feeds readings to the self-healing
// classifier, plus the concrete supplemental probes Cortex ships with.
package predictive

import (
	"context"
	"sync"
	"time"

	"github.com/cortexmind/cortex/internal/selfheal"
)

// DataSourceAdapter is one polled health signal. Adapters must never throw
// into the fan-out: a failed poll reports Available=false with an error
// reading rather than propagating an error from Poll.
type DataSourceAdapter interface {
	SourceID() string
	PollInterval() time.Duration
	FreshnessThreshold() time.Duration
	Poll(ctx context.Context) selfheal.Reading
}

// OnReading is invoked with every fresh reading from every adapter.
type OnReading func(selfheal.Reading)

// PollingEngine drives a set of adapters on their own independent tickers.
type PollingEngine struct {
	adapters []DataSourceAdapter
	onReading OnReading
	mu       sync.Mutex
	lastPoll map[string]time.Time
}

// NewPollingEngine builds an engine over the given adapters.
func NewPollingEngine(adapters []DataSourceAdapter) *PollingEngine {
	return &PollingEngine{adapters: adapters, lastPoll: map[string]time.Time{}}
}

// OnReading registers the callback invoked for every reading.
func (e *PollingEngine) OnReading(cb OnReading) {
	e.onReading = cb
}

// Start launches one goroutine per adapter, each polling on its own
// interval until ctx is cancelled.
func (e *PollingEngine) Start(ctx context.Context) {
	for _, a := range e.adapters {
		go e.run(ctx, a)
	}
}

func (e *PollingEngine) run(ctx context.Context, a DataSourceAdapter) {
	ticker := time.NewTicker(a.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx, a)
		}
	}
}

func (e *PollingEngine) poll(ctx context.Context, a DataSourceAdapter) {
	pollCtx, cancel := context.WithTimeout(ctx, a.FreshnessThreshold())
	defer cancel()
	reading := safePoll(pollCtx, a)

	e.mu.Lock()
	e.lastPoll[a.SourceID()] = time.Now()
	e.mu.Unlock()

	if e.onReading != nil {
		e.onReading(reading)
	}
}

// safePoll recovers a panicking adapter into an unavailable reading so one
// broken adapter never takes down the fan-out.
func safePoll(ctx context.Context, a DataSourceAdapter) (r selfheal.Reading) {
	defer func() {
		if rec := recover(); rec != nil {
			r = selfheal.Reading{SourceID: a.SourceID(), Available: false, Error: "adapter_panic"}
		}
	}()
	return a.Poll(ctx)
}

// LastPoll reports when a source was last polled, for freshness dashboards.
func (e *PollingEngine) LastPoll(sourceID string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.lastPoll[sourceID]
	return t, ok
}
