package public

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/langowen/ratesconverter/deploy/config"
	"github.com/langowen/ratesconverter/internal/metrics"
	mwLogger "github.com/langowen/ratesconverter/internal/rates_api/ports/http/public/middleware/logger"
	"github.com/langowen/ratesconverter/internal/rates_api/ports/http/public/middleware/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Server     *http.Server
	cfg        *config.Config
	service    Service
	validate   *validator.Validate
	restricted map[string]struct{}
}

func NewServer(server *http.Server, cfg *config.Config, svc Service) *Server {
	restricted := make(map[string]struct{})
	for _, code := range cfg.Split("RestrictedCurrencies") {
		restricted[code] = struct{}{}
	}

	return &Server{
		Server:     server,
		cfg:        cfg,
		service:    svc,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		restricted: restricted,
	}
}

// NewRouter builds the HTTP surface. gatherer backs /metrics.
func NewRouter(ctx context.Context, s *Server, m *metrics.Metrics, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.cfg.HTTPServer.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(mwLogger.New(m))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", s.Health)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			limiter := ratelimit.New(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst)
			go limiter.Cleanup(ctx)
			r.Use(limiter.Middleware)
		}

		r.Get("/currency/latest/{baseCurrency}", s.GetLatestRates)
		r.Post("/conversion/convert", s.ConvertCurrency)
		r.Get("/historicalrates/history", s.GetHistoricalRates)
	})

	return r
}

func StartServer(ctx context.Context, svc Service, cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer) <-chan struct{} {
	serverConfig := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	server := NewServer(serverConfig, cfg, svc)
	server.Server.Handler = NewRouter(ctx, server, m, gatherer)

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}
