package public

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	msgInvalidInput      = "Invalid input."
	msgRatesNotFound     = "Exchange rates not found"
	msgConversionMissing = "Conversion not available"
	msgRestricted        = "Conversion for this currency is not allowed."
	msgUpstreamDown      = "External API error. Please try again later."
	msgInternal          = "Internal server error."
)

type conversionBody struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"fromCurrency" validate:"required,len=3,alpha"`
	ToCurrency   string          `json:"toCurrency" validate:"required,len=3,alpha"`
}

type historicalQuery struct {
	BaseCurrency string `validate:"required,len=3,alpha"`
	StartDate    string `validate:"required,datetime=2006-01-02"`
	EndDate      string `validate:"required,datetime=2006-01-02"`
	Page         int    `validate:"gte=1"`
	PageSize     int    `validate:"gte=1,lte=100"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) GetLatestRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	base := chi.URLParam(r, "baseCurrency")
	if err := s.validate.Var(base, "required,len=3,alpha"); err != nil {
		RespondWithError(w, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	res, err := s.service.LatestRates(ctx, base)
	if err != nil {
		s.respondFetchError(w, r, err, http.StatusBadRequest, msgRatesNotFound)
		return
	}

	if res.RateLimited() {
		RespondWithError(w, http.StatusTooManyRequests, res.Message)
		return
	}

	RespondWithRawJSON(w, http.StatusOK, res.Data)
}

func (s *Server) ConvertCurrency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body conversionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondWithError(w, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	if err := s.validate.Struct(body); err != nil {
		RespondWithError(w, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	if body.Amount.IsNegative() {
		RespondWithError(w, http.StatusBadRequest, msgInvalidInput, "amount must not be negative")
		return
	}

	req := entities.ConversionRequest{
		Amount:       body.Amount,
		FromCurrency: entities.NormalizeCurrency(body.FromCurrency),
		ToCurrency:   entities.NormalizeCurrency(body.ToCurrency),
	}

	if s.isRestricted(req.FromCurrency) || s.isRestricted(req.ToCurrency) {
		RespondWithError(w, http.StatusBadRequest, msgRestricted)
		return
	}

	res, err := s.service.Convert(ctx, req)
	if err != nil {
		s.respondFetchError(w, r, err, http.StatusBadRequest, msgConversionMissing)
		return
	}

	if res.RateLimited() {
		RespondWithError(w, http.StatusTooManyRequests, res.Message)
		return
	}

	RespondWithRawJSON(w, http.StatusOK, res.Data)
}

func (s *Server) GetHistoricalRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := s.parseHistorical(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	res, err := s.service.HistoricalRates(ctx, req)
	if err != nil {
		s.respondFetchError(w, r, err, http.StatusServiceUnavailable, msgUpstreamDown)
		return
	}

	if res.RateLimited() {
		RespondWithError(w, http.StatusTooManyRequests, res.Message)
		return
	}

	RespondWithJSON(w, http.StatusOK, res.Data)
}

func (s *Server) parseHistorical(r *http.Request) (entities.HistoricalRatesRequest, error) {
	q := r.URL.Query()

	query := historicalQuery{
		BaseCurrency: q.Get("baseCurrency"),
		StartDate:    q.Get("startDate"),
		EndDate:      q.Get("endDate"),
		Page:         entities.DefaultPage,
		PageSize:     entities.DefaultPageSize,
	}

	var err error
	if v := q.Get("page"); v != "" {
		if query.Page, err = strconv.Atoi(v); err != nil {
			return entities.HistoricalRatesRequest{}, errors.Wrap(entities.ErrInvalidRequest, "page must be an integer")
		}
	}
	if v := q.Get("pageSize"); v != "" {
		if query.PageSize, err = strconv.Atoi(v); err != nil {
			return entities.HistoricalRatesRequest{}, errors.Wrap(entities.ErrInvalidRequest, "pageSize must be an integer")
		}
	}

	if err := s.validate.Struct(query); err != nil {
		return entities.HistoricalRatesRequest{}, err
	}

	start, _ := time.Parse(entities.DateLayout, query.StartDate)
	end, _ := time.Parse(entities.DateLayout, query.EndDate)
	if start.After(end) {
		return entities.HistoricalRatesRequest{}, errors.Wrap(entities.ErrInvalidRequest, "startDate must not be after endDate")
	}

	return entities.HistoricalRatesRequest{
		BaseCurrency: entities.NormalizeCurrency(query.BaseCurrency),
		StartDate:    start,
		EndDate:      end,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}, nil
}

func (s *Server) isRestricted(code string) bool {
	_, ok := s.restricted[code]
	return ok
}

// respondFetchError maps upstream failures to the endpoint's own status and
// anything else to a plain 500.
func (s *Server) respondFetchError(w http.ResponseWriter, r *http.Request, err error, code int, message string) {
	if errors.Is(err, entities.ErrFetchFailed) {
		RespondWithError(w, code, message)
		return
	}

	slog.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	RespondWithError(w, http.StatusInternalServerError, msgInternal)
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// RespondWithRawJSON writes an already encoded payload unchanged.
func RespondWithRawJSON(w http.ResponseWriter, code int, payload string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if _, err := w.Write([]byte(payload)); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
