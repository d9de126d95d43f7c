package warmer

import (
	"context"
	"log/slog"
	"time"

	"github.com/langowen/ratesconverter/internal/rates_api/service"
	"github.com/pkg/errors"
)

type LatestFetcher interface {
	LatestRates(ctx context.Context, base string) (service.Result[string], error)
}

// Warmer keeps latest rates for a fixed set of currencies in the cache by
// requesting them on a ticker. Live entries are served from the cache, so
// a tick only reaches upstream for entries that have expired.
type Warmer struct {
	fetcher    LatestFetcher
	currencies []string
	interval   time.Duration
}

func NewWarmer(fetcher LatestFetcher, currencies []string, interval time.Duration) *Warmer {
	return &Warmer{
		fetcher:    fetcher,
		currencies: currencies,
		interval:   interval,
	}
}

func (w *Warmer) Start(ctx context.Context) error {
	const op = "warmer.Start"

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.warm(ctx)

	for {
		select {
		case <-ticker.C:
			w.warm(ctx)

		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		}
	}
}

// warm returns how many currencies came back with rates.
func (w *Warmer) warm(ctx context.Context) int {
	const op = "warmer.warm"

	warmed := 0
	for _, code := range w.currencies {
		if ctx.Err() != nil {
			break
		}

		res, err := w.fetcher.LatestRates(ctx, code)
		switch {
		case err != nil:
			slog.Error("failed to warm latest rates", "op", op, "currency", code, "error", err)
		case res.RateLimited():
			slog.Warn("warming throttled by upstream", "op", op, "currency", code)
		default:
			warmed++
		}
	}

	slog.Debug("latest rates warmed", "op", op, "warmed", warmed, "total", len(w.currencies))
	return warmed
}
