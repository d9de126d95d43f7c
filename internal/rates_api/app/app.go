package app

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/langowen/ratesconverter/deploy/config"
	"github.com/langowen/ratesconverter/internal/metrics"
	"github.com/langowen/ratesconverter/internal/rates_api/adapter/api_client/frankfurter"
	"github.com/langowen/ratesconverter/internal/rates_api/adapter/cache/memory"
	"github.com/langowen/ratesconverter/internal/rates_api/adapter/cache/redis"
	"github.com/langowen/ratesconverter/internal/rates_api/ports/http/public"
	"github.com/langowen/ratesconverter/internal/rates_api/service"
	"github.com/langowen/ratesconverter/internal/rates_api/warmer"
	"github.com/prometheus/client_golang/prometheus"
	redisPack "github.com/redis/go-redis/v9"
)

type App struct {
	cfg      *config.Config
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	closers  []io.Closer
}

func NewApp(cfg *config.Config) *App {
	return &App{
		cfg:      cfg,
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
}

func (a *App) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	slog.Info("starting server",
		"port", a.cfg.HTTPServer.Port,
		"upstream", a.cfg.Upstream.BaseURL,
		"cache", a.cfg.Cache.Backend,
	)

	m := metrics.New(a.registry)

	cache := a.initCache(ctx, m)
	slog.Info("Cache initialized", "backend", a.cfg.Cache.Backend)

	client := a.initClient(m)
	slog.Info("Upstream client initialized")

	ratesService := a.initService(cache, client, m)
	slog.Info("Service initialized")

	a.startWarmer(ctx, ratesService)

	serverDone := public.StartServer(ctx, ratesService, a.cfg, m, a.gatherer)
	slog.Info("server started")

	done := make(chan struct{})
	go func() {
		<-serverDone
		a.close()
		close(done)
	}()

	return done
}

func (a *App) initLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}

	var handler slog.Handler
	if strings.EqualFold(a.cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func (a *App) initCache(ctx context.Context, m *metrics.Metrics) service.Cache {
	if a.cfg.Cache.Backend == config.CacheBackendRedis {
		options := &redisPack.Options{
			Addr:     a.cfg.Redis.Host,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		}

		rdStorage, err := redis.InitStorage(ctx, options, a.cfg.Redis.Prefix)
		if err != nil {
			log.Fatalln("Failed to initialize Redis storage", "error", err)
		}
		a.closers = append(a.closers, rdStorage)

		return rdStorage
	}

	memStorage := memory.NewStorage()
	go memStorage.StartJanitor(ctx, a.cfg.Cache.SweepInterval, m.CacheSize)

	return memStorage
}

func (a *App) initClient(m *metrics.Metrics) service.Client {
	httpClient := frankfurter.NewHTTPClient(a.cfg.Upstream.Timeout, m)

	return frankfurter.NewRetrying(
		httpClient,
		a.cfg.Retry.MaxAttempts,
		frankfurter.Linear(a.cfg.Retry.BackoffStep),
		m,
	)
}

func (a *App) initService(cache service.Cache, client service.Client, m *metrics.Metrics) *service.Service {
	return service.NewService(cache, client, service.Options{
		BaseURL:       a.cfg.Upstream.BaseURL,
		LatestPath:    a.cfg.Upstream.LatestPath,
		LatestTTL:     a.cfg.Cache.LatestTTL,
		HistoricalTTL: a.cfg.Cache.HistoricalTTL,
	}, m)
}

func (a *App) startWarmer(ctx context.Context, fetcher warmer.LatestFetcher) {
	currencies := a.cfg.Split("WarmCurrencies")
	if len(currencies) == 0 {
		return
	}

	w := warmer.NewWarmer(fetcher, currencies, a.cfg.Cache.WarmInterval)
	go func() {
		if err := w.Start(ctx); err != nil {
			slog.Info("cache warmer stopped", "reason", err)
		}
	}()
	slog.Info("Cache warmer started", "currencies", currencies)
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Error("Failed to close resource", "error", err)
		}
	}
}
