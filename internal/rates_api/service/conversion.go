package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/langowen/ratesconverter/internal/entities"
)

// Convert forwards the request upstream and returns its payload verbatim.
// Amounts make the key space unbounded, so nothing is cached.
func (s *Service) Convert(ctx context.Context, req entities.ConversionRequest) (Result[string], error) {
	const op = "service.Convert"

	from := entities.NormalizeCurrency(req.FromCurrency)
	to := entities.NormalizeCurrency(req.ToCurrency)

	endpoint := s.endpoint(s.opts.LatestPath, url.Values{
		"amount": {req.Amount.String()},
		"from":   {from},
		"to":     {to},
	})

	resp, err := s.client.Fetch(ctx, endpoint)
	if err != nil {
		return Result[string]{}, s.failed(op, opConversion, &entities.FetchError{Op: op, URL: endpoint, Err: err})
	}

	if resp.RateLimited() {
		msg := fmt.Sprintf("Rate limit exceeded for conversion: %s %s to %s", req.Amount.String(), from, to)
		s.throttled(op, opConversion, msg)
		return rateLimited[string](msg), nil
	}

	if !resp.Success() {
		return Result[string]{}, s.failed(op, opConversion, &entities.FetchError{Op: op, URL: endpoint, StatusCode: resp.StatusCode})
	}

	s.metrics.FetchOutcome(opConversion, outcomeFetched)

	return ok(resp.Body, false), nil
}
