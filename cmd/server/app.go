package main

import (
	"context"
	"time"

	"currency-converter/internal/adapter/cache"
	"currency-converter/internal/adapter/history"
	"currency-converter/internal/adapter/provider"
	"currency-converter/internal/config"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/metrics"
	"currency-converter/internal/service"
	"currency-converter/pkg/logger"
)

// app is the single long-lived engine instance and everything it owns.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	metrics    *metrics.Metrics
	rateCache  *cache.MemoryCache
	aggregator *service.FallbackAggregator
	engine     *service.ConversionEngine
}

func newApp(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *app {
	rateCache := cache.NewMemoryCache(cfg.Cache.TTL, log)
	store := history.NewMemoryStore(cfg.History.Retention, log)

	providers := []ports.RateProvider{
		provider.NewExchangeRateAPI(
			cfg.ExchangeRateAPI.BaseURL,
			cfg.ExchangeRateAPI.APIKey,
			cfg.ExchangeRateAPI.Timeout,
			log,
		),
		provider.NewOpenExchangeRates(
			cfg.OpenExchangeRates.BaseURL,
			cfg.OpenExchangeRates.APIKey,
			cfg.OpenExchangeRates.Timeout,
			log,
		),
	}

	aggregator := service.NewFallbackAggregator(providers, rateCache, cfg.ExchangeRateAPI.Timeout, log, m)

	return &app{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		rateCache:  rateCache,
		aggregator: aggregator,
		engine:     service.NewConversionEngine(aggregator, store, log, m),
	}
}

// sweepCache periodically drops expired rate cache entries. Without a TTL
// the cache never expires and there is nothing to sweep.
func sweepCache(ctx context.Context, c *cache.MemoryCache, ttl time.Duration, log *logger.Logger) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.ClearExpired(ctx)
		case <-ctx.Done():
			log.Info("Stopping cache sweeper")
			return
		}
	}
}
