package entities

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO date format used by the provider and in cache keys.
const DateLayout = "2006-01-02"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Rates maps a currency code to its rate against the snapshot base.
type Rates map[string]decimal.Decimal

// MarshalJSON writes rates as JSON numbers, the way the provider sends them.
func (r Rates) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	numbers := make(map[string]json.Number, len(r))
	for code, rate := range r {
		numbers[code] = json.Number(rate.String())
	}
	return json.Marshal(numbers)
}

// RateSnapshot is a decoded provider payload for a date range.
// Rates is keyed by ISO date.
type RateSnapshot struct {
	Amount    decimal.Decimal  `json:"amount"`
	Base      string           `json:"base"`
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Rates     map[string]Rates `json:"rates"`
}

// DatedRates is one entry of a rate series.
type DatedRates struct {
	Date  string `json:"date"`
	Rates Rates  `json:"rates"`
}

// Series flattens the snapshot into entries ordered by date.
func (s *RateSnapshot) Series() []DatedRates {
	dates := make([]string, 0, len(s.Rates))
	for d := range s.Rates {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make([]DatedRates, 0, len(dates))
	for _, d := range dates {
		series = append(series, DatedRates{Date: d, Rates: s.Rates[d]})
	}
	return series
}

// Clamp drops dates outside [StartDate, EndDate] and reports how many were dropped.
func (s *RateSnapshot) Clamp() int {
	dropped := 0
	for d := range s.Rates {
		if d < s.StartDate || d > s.EndDate {
			delete(s.Rates, d)
			dropped++
		}
	}
	return dropped
}

type HistoricalRatesRequest struct {
	BaseCurrency string
	StartDate    time.Time
	EndDate      time.Time
	Page         int
	PageSize     int
}

// NewHistoricalRatesRequest fills in the paging defaults.
func NewHistoricalRatesRequest(base string, start, end time.Time) HistoricalRatesRequest {
	return HistoricalRatesRequest{
		BaseCurrency: base,
		StartDate:    start,
		EndDate:      end,
		Page:         DefaultPage,
		PageSize:     DefaultPageSize,
	}
}

type ConversionRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
