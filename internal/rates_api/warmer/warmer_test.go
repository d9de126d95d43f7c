package warmer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/langowen/ratesconverter/internal/rates_api/service"
	"github.com/stretchr/testify/assert"
)

type recordingFetcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string]service.Result[string]
	errs    map[string]error
}

func (f *recordingFetcher) LatestRates(ctx context.Context, base string) (service.Result[string], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, base)
	return f.results[base], f.errs[base]
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestWarm_CountsOnlyFetchedCurrencies(t *testing.T) {
	f := &recordingFetcher{
		results: map[string]service.Result[string]{
			"GBP": {Status: service.StatusRateLimited, Message: "Rate limit exceeded for base currency: GBP"},
		},
		errs: map[string]error{"JPY": errors.New("upstream down")},
	}
	w := NewWarmer(f, []string{"USD", "EUR", "GBP", "JPY"}, time.Minute)

	assert.Equal(t, 2, w.warm(context.Background()))
	assert.Equal(t, []string{"USD", "EUR", "GBP", "JPY"}, f.calls)
}

func TestWarm_StopsOnCancelledContext(t *testing.T) {
	f := &recordingFetcher{}
	w := NewWarmer(f, []string{"USD", "EUR"}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, w.warm(ctx))
	assert.Empty(t, f.calls)
}

func TestStart_WarmsImmediatelyAndOnTick(t *testing.T) {
	f := &recordingFetcher{}
	w := NewWarmer(f, []string{"USD"}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	assert.Eventually(t, func() bool { return f.count() >= 3 }, time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("warmer did not stop")
	}
}
