package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/langowen/ratesconverter/internal/entities"
)

// LatestRates returns the provider's latest payload for base verbatim.
func (s *Service) LatestRates(ctx context.Context, base string) (Result[string], error) {
	const op = "service.LatestRates"

	base = entities.NormalizeCurrency(base)
	key := LatestKey(base)

	if cached, found := s.cache.Get(ctx, key); found {
		s.metrics.CacheLookup(opLatest, true)
		s.metrics.FetchOutcome(opLatest, outcomeHit)
		slog.Debug("cache hit", "op", op, "key", key)
		return ok(string(cached), true), nil
	}
	s.metrics.CacheLookup(opLatest, false)
	slog.Debug("cache miss", "op", op, "key", key)

	endpoint := s.endpoint(s.opts.LatestPath, url.Values{"base": {base}})

	resp, err := s.client.Fetch(ctx, endpoint)
	if err != nil {
		return Result[string]{}, s.failed(op, opLatest, &entities.FetchError{Op: op, URL: endpoint, Err: err})
	}

	if resp.RateLimited() {
		msg := fmt.Sprintf("Rate limit exceeded for base currency: %s", base)
		s.throttled(op, opLatest, msg)
		return rateLimited[string](msg), nil
	}

	if !resp.Success() {
		return Result[string]{}, s.failed(op, opLatest, &entities.FetchError{Op: op, URL: endpoint, StatusCode: resp.StatusCode})
	}

	if err := s.cache.Set(ctx, key, []byte(resp.Body), s.opts.LatestTTL); err != nil {
		slog.Error("cache write failed", "op", op, "key", key, "error", err)
	}
	s.metrics.FetchOutcome(opLatest, outcomeFetched)

	return ok(resp.Body, false), nil
}
