package main

import (
	"context"
	"io"

	"github.com/memecoin-scanner/internal/adapter"
	"github.com/memecoin-scanner/internal/circuitbreaker"
	"github.com/memecoin-scanner/internal/config"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/metrics"
	"github.com/memecoin-scanner/internal/ratelimit"
	"github.com/memecoin-scanner/internal/render"
	"github.com/memecoin-scanner/internal/retry"
	"github.com/memecoin-scanner/internal/service"
	"github.com/memecoin-scanner/internal/storage"
	"github.com/memecoin-scanner/internal/types"
)

// app wires providers, services and metrics from the effective configuration
type app struct {
	cfg     *config.Config
	metrics *metrics.Registry
	redis   *storage.RedisCache
}

func newApp(cfg *config.Config) *app {
	return &app{cfg: cfg, metrics: metrics.NewRegistry()}
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.WithError(err).Warn("Failed to close Redis connection")
		}
	}
}

func (a *app) criteria() service.Criteria {
	return service.Criteria{
		VolumeThreshold:  a.cfg.Scan.VolumeThreshold,
		MinPriceIncrease: a.cfg.Scan.MinPriceIncrease,
		MaxPriceIncrease: a.cfg.Scan.MaxPriceIncrease,
		MaxListingAge:    a.cfg.Scan.MaxListingAge,
	}
}

// listings builds the CoinMarketCap client, fronted by the Redis metadata cache
// when REDIS_ADDR is set. An unreachable Redis only disables the cache.
func (a *app) listings(ctx context.Context) (service.ListingsProvider, error) {
	cmc, err := adapter.NewCMCClient(&adapter.CMCClientConfig{
		APIKey:      a.cfg.Listings.APIKey,
		BaseURL:     a.cfg.Listings.BaseURL,
		Limit:       a.cfg.Listings.Limit,
		TargetChain: a.cfg.Scan.TargetChain,
		Timeout:     a.cfg.Listings.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if a.cfg.Redis.Addr == "" {
		return cmc, nil
	}

	redis, err := storage.ConnectRedisCache(ctx, &a.cfg.Redis, retry.DefaultConfig())
	if err != nil {
		logging.WithError(err).WithField("addr", a.cfg.Redis.Addr).Warn("Redis unavailable, metadata cache disabled")
		return cmc, nil
	}
	a.redis = redis

	cache := storage.NewMetadataCache(redis, a.cfg.Redis.MetadataTTL)
	return storage.NewCachedListings(cmc, cache, a.cfg.Scan.TargetChain, a.metrics.ObserveCacheLookup), nil
}

// analysis builds the Dune-backed analysis service with its circuit breaker
func (a *app) analysis() (*service.AnalysisService, error) {
	dune, err := adapter.NewDuneClient(&adapter.DuneClientConfig{
		APIKey:       a.cfg.Analytics.APIKey,
		BaseURL:      a.cfg.Analytics.BaseURL,
		MaxRetries:   a.cfg.Analytics.MaxRetries,
		PollInterval: a.cfg.Analytics.PollInterval,
		Timeout:      a.cfg.Analytics.Timeout,
		OnPoll: func(state types.ExecutionState) {
			a.metrics.ObservePoll(string(state))
		},
	})
	if err != nil {
		return nil, err
	}

	breakerCfg := circuitbreaker.DefaultConfig("analytics")
	breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		a.metrics.SetBreakerState(name, string(to))
	}

	return service.NewAnalysisService(service.AnalysisServiceConfig{
		Executor: dune,
		QueryID:  a.cfg.Analytics.QueryID,
		Breaker:  circuitbreaker.NewCircuitBreaker(breakerCfg),
		Metrics:  a.metrics,
	})
}

func (a *app) scanService(ctx context.Context) (*service.ScanService, error) {
	listings, err := a.listings(ctx)
	if err != nil {
		return nil, err
	}

	cfg := service.ScanServiceConfig{
		Listings: listings,
		Limiter:  ratelimit.NewLimiter(a.cfg.Scan.RateLimitInterval),
		Metrics:  a.metrics,
	}

	if a.cfg.Analytics.Enabled {
		analysis, err := a.analysis()
		if err != nil {
			return nil, err
		}
		cfg.Analyzer = analysis
	}

	return service.NewScanService(cfg)
}

func (a *app) renderer(w io.Writer, asJSON bool) service.Renderer {
	if asJSON {
		return render.NewJSONRenderer(w)
	}
	return render.NewTableRenderer(w, a.cfg.Scan.TargetChain)
}

// runScan performs one scan and renders its records
func (a *app) runScan(ctx context.Context, svc *service.ScanService, r service.Renderer) (*service.ScanReport, error) {
	report, err := svc.Run(ctx, a.criteria())
	if err != nil {
		return nil, err
	}
	if err := r.Render(report.Records); err != nil {
		return report, err
	}
	return report, nil
}
