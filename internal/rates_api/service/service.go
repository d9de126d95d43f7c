package service

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/langowen/ratesconverter/internal/metrics"
)

const (
	DefaultLatestTTL     = 10 * time.Minute
	DefaultHistoricalTTL = 30 * time.Minute

	latestKeyPrefix     = "latest-rates:"
	historicalKeyPrefix = "historical-rates:"

	opLatest     = "latest"
	opConversion = "conversion"
	opHistorical = "historical"

	outcomeHit         = "cache_hit"
	outcomeFetched     = "fetched"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"
)

type Options struct {
	BaseURL       string
	LatestPath    string
	LatestTTL     time.Duration
	HistoricalTTL time.Duration
}

type Service struct {
	cache   Cache
	client  Client
	opts    Options
	metrics *metrics.Metrics
}

func NewService(cache Cache, client Client, opts Options, m *metrics.Metrics) *Service {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.LatestPath = strings.Trim(opts.LatestPath, "/")
	if opts.LatestPath == "" {
		opts.LatestPath = "latest"
	}
	if opts.LatestTTL <= 0 {
		opts.LatestTTL = DefaultLatestTTL
	}
	if opts.HistoricalTTL <= 0 {
		opts.HistoricalTTL = DefaultHistoricalTTL
	}

	return &Service{
		cache:   cache,
		client:  client,
		opts:    opts,
		metrics: m,
	}
}

func LatestKey(base string) string {
	return latestKeyPrefix + strings.ToLower(base)
}

// HistoricalKey leaves paging out so one fetch serves every page of a range.
func HistoricalKey(base string, start, end time.Time) string {
	return historicalKeyPrefix + strings.ToLower(base) + ":" +
		start.Format(entities.DateLayout) + ":" + end.Format(entities.DateLayout)
}

func (s *Service) endpoint(path string, query url.Values) string {
	return s.opts.BaseURL + "/" + path + "?" + query.Encode()
}

// failed logs and counts a hard failure before handing it back.
func (s *Service) failed(op, operation string, err *entities.FetchError) error {
	s.metrics.FetchOutcome(operation, outcomeFailed)
	slog.Error("upstream fetch failed",
		"op", op,
		"url", err.URL,
		"status", err.StatusCode,
		"error", err.Err,
	)
	return err
}

func (s *Service) throttled(op, operation, message string) {
	s.metrics.FetchOutcome(operation, outcomeRateLimited)
	slog.Warn(message, "op", op)
}
