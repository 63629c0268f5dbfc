package predictive

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/selfheal"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	id       string
	interval time.Duration
	panics   bool
}

func (f *fakeAdapter) SourceID() string                 { return f.id }
func (f *fakeAdapter) PollInterval() time.Duration       { return f.interval }
func (f *fakeAdapter) FreshnessThreshold() time.Duration { return time.Second }
func (f *fakeAdapter) Poll(ctx context.Context) selfheal.Reading {
	if f.panics {
		panic("boom")
	}
	return selfheal.Reading{SourceID: f.id, Available: true, Data: map[string]float64{"x": 1}}
}

func TestPollingEnginePanicBecomesUnavailableReading(t *testing.T) {
	a := &fakeAdapter{id: "panicky", interval: 10 * time.Millisecond, panics: true}
	engine := NewPollingEngine([]DataSourceAdapter{a})

	var mu sync.Mutex
	var got []selfheal.Reading
	engine.OnReading(func(r selfheal.Reading) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	engine.Start(ctx)
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	require.False(t, got[0].Available)
	require.Equal(t, "adapter_panic", got[0].Error)
}

func TestPollingEngineDeliversReadings(t *testing.T) {
	a := &fakeAdapter{id: "ok", interval: 10 * time.Millisecond}
	engine := NewPollingEngine([]DataSourceAdapter{a})

	var mu sync.Mutex
	count := 0
	engine.OnReading(func(r selfheal.Reading) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	engine.Start(ctx)
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	require.Greater(t, count, 0)
}
