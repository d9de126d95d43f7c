package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/langowen/ratesconverter/internal/pagination"
	"github.com/pkg/errors"
)

type HistoricalPage = pagination.Page[entities.DatedRates]

// HistoricalRates serves one page of the range's rate series. The whole
// range is cached, the page is cut on every call.
func (s *Service) HistoricalRates(ctx context.Context, req entities.HistoricalRatesRequest) (Result[HistoricalPage], error) {
	const op = "service.HistoricalRates"

	base := entities.NormalizeCurrency(req.BaseCurrency)
	key := HistoricalKey(base, req.StartDate, req.EndDate)

	if snapshot, found := s.cachedSnapshot(ctx, key); found {
		s.metrics.CacheLookup(opHistorical, true)
		s.metrics.FetchOutcome(opHistorical, outcomeHit)
		slog.Debug("cache hit", "op", op, "key", key)
		return ok(paginate(snapshot, req), true), nil
	}
	s.metrics.CacheLookup(opHistorical, false)
	slog.Debug("cache miss", "op", op, "key", key)

	start := req.StartDate.Format(entities.DateLayout)
	end := req.EndDate.Format(entities.DateLayout)
	endpoint := s.endpoint(start+".."+end, url.Values{"base": {base}})

	resp, err := s.client.Fetch(ctx, endpoint)
	if err != nil {
		return Result[HistoricalPage]{}, s.failed(op, opHistorical, &entities.FetchError{Op: op, URL: endpoint, Err: err})
	}

	if resp.RateLimited() {
		msg := fmt.Sprintf("Rate limit exceeded for historic rates: %s", base)
		s.throttled(op, opHistorical, msg)
		return rateLimited[HistoricalPage](msg), nil
	}

	if !resp.Success() {
		return Result[HistoricalPage]{}, s.failed(op, opHistorical, &entities.FetchError{Op: op, URL: endpoint, StatusCode: resp.StatusCode})
	}

	snapshot, err := decodeSnapshot(resp.Body)
	if err != nil {
		return Result[HistoricalPage]{}, s.failed(op, opHistorical, &entities.FetchError{
			Op:         op,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        err,
		})
	}

	snapshot.StartDate = start
	snapshot.EndDate = end
	if dropped := snapshot.Clamp(); dropped > 0 {
		slog.Warn("upstream returned dates outside the requested range", "op", op, "dropped", dropped)
	}

	if encoded, err := json.Marshal(snapshot); err != nil {
		slog.Error("encode snapshot failed", "op", op, "key", key, "error", err)
	} else if err := s.cache.Set(ctx, key, encoded, s.opts.HistoricalTTL); err != nil {
		slog.Error("cache write failed", "op", op, "key", key, "error", err)
	}
	s.metrics.FetchOutcome(opHistorical, outcomeFetched)

	return ok(paginate(snapshot, req), false), nil
}

// decodeSnapshot requires a base and a rates object. An empty rates object
// is a range without data; a missing or null one is a broken reply.
func decodeSnapshot(body string) (*entities.RateSnapshot, error) {
	var snapshot entities.RateSnapshot
	if err := json.Unmarshal([]byte(body), &snapshot); err != nil {
		return nil, errors.Wrap(entities.ErrMalformedPayload, err.Error())
	}

	if snapshot.Base == "" {
		return nil, errors.Wrap(entities.ErrMalformedPayload, "missing base")
	}
	if snapshot.Rates == nil {
		return nil, errors.Wrap(entities.ErrMalformedPayload, "missing rates")
	}

	return &snapshot, nil
}

// cachedSnapshot treats an undecodable entry as a miss so it gets refetched.
func (s *Service) cachedSnapshot(ctx context.Context, key string) (*entities.RateSnapshot, bool) {
	raw, found := s.cache.Get(ctx, key)
	if !found {
		return nil, false
	}

	var snapshot entities.RateSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &snapshot, true
}

func paginate(snapshot *entities.RateSnapshot, req entities.HistoricalRatesRequest) HistoricalPage {
	return pagination.Paginate(snapshot.Series(), req.Page, req.PageSize)
}
