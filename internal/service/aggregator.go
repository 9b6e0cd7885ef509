package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultProviderTimeout = 10 * time.Second

	// averagePlaces is the scale of a rate averaged over several providers.
	averagePlaces = 6
)

// FallbackAggregator asks every provider for a rate at once and reduces the
// answers to one: nothing on zero successes, the single answer on one, the
// mean on more. Decisions are memoized per pair in the rate cache.
type FallbackAggregator struct {
	providers []ports.RateProvider
	cache     ports.RateCache
	timeout   time.Duration
	flights   singleflight.Group
	now       func() time.Time
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewFallbackAggregator(providers []ports.RateProvider, cache ports.RateCache, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *FallbackAggregator {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &FallbackAggregator{
		providers: providers,
		cache:     cache,
		timeout:   timeout,
		now:       time.Now,
		log:       log.With("component", "aggregator"),
		metrics:   m,
	}
}

// GetRate returns the cached decision for pair, aggregating on a miss.
// Concurrent misses for one pair share a single fan-out.
func (a *FallbackAggregator) GetRate(ctx context.Context, pair model.CurrencyPair) (*model.AggregatedRate, error) {
	if rate, found := a.cache.Get(ctx, pair); found {
		a.metrics.RecordCacheLookup(true)
		return rate, nil
	}
	a.metrics.RecordCacheLookup(false)

	v, err, _ := a.flights.Do(pair.Key(), func() (interface{}, error) {
		if rate, found := a.cache.Get(ctx, pair); found {
			return rate, nil
		}

		// one caller going away must not fail the others sharing this flight
		rate, err := a.Aggregate(context.WithoutCancel(ctx), pair)
		if err != nil {
			return nil, err
		}

		if err := a.cache.Set(ctx, rate); err != nil {
			a.log.Error("Failed to cache aggregated rate", "error", err, "pair", pair.Key())
		}
		return rate, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*model.AggregatedRate), nil
}

// Aggregate performs one uncached fan-out over all providers.
func (a *FallbackAggregator) Aggregate(ctx context.Context, pair model.CurrencyPair) (*model.AggregatedRate, error) {
	a.log.Info("Getting exchange rates from providers", "pair", pair.Key(), "providers", len(a.providers))

	slots := make([]*model.RateQuote, len(a.providers))

	var g errgroup.Group
	for i, provider := range a.providers {
		i, provider := i, provider
		g.Go(func() error {
			quote, err := a.fetch(ctx, provider, pair)
			if err != nil {
				a.log.Warn("Provider failed", "provider", provider.Name(), "pair", pair.Key(), "error", err)
				return nil
			}
			slots[i] = quote
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]*model.RateQuote, 0, len(slots))
	for _, quote := range slots {
		if quote != nil {
			quotes = append(quotes, quote)
		}
	}

	return a.decide(pair, quotes)
}

func (a *FallbackAggregator) fetch(ctx context.Context, provider ports.RateProvider, pair model.CurrencyPair) (quote *model.RateQuote, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			quote, err = nil, fmt.Errorf("%w: %s panicked: %v", ErrProviderFailure, provider.Name(), r)
		}
		a.metrics.RecordProviderCall(provider.Name(), err == nil, time.Since(start).Seconds())
	}()

	quote, err = provider.FetchRate(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailure, provider.Name(), err)
	}
	if quote == nil || !quote.Rate.IsPositive() {
		return nil, fmt.Errorf("%w: %s returned no usable rate", ErrProviderFailure, provider.Name())
	}

	a.log.Debug("Provider rate", "provider", provider.Name(), "pair", pair.Key(), "rate", quote.Rate.String())
	return quote, nil
}

func (a *FallbackAggregator) decide(pair model.CurrencyPair, quotes []*model.RateQuote) (*model.AggregatedRate, error) {
	switch len(quotes) {
	case 0:
		a.metrics.RecordAggregation(metrics.OutcomeFailure)
		return nil, fmt.Errorf("%w for %s", ErrAggregationFailure, pair.Key())

	case 1:
		a.metrics.RecordAggregation(metrics.OutcomeSingle)
		q := quotes[0]
		a.log.Info("Using single provider rate", "pair", pair.Key(), "provider", q.Provider, "rate", q.Rate.String())
		return &model.AggregatedRate{
			Pair:       pair,
			Rate:       q.Rate,
			Provenance: q.Provider,
			Sources:    []string{q.Provider},
			ResolvedAt: a.now(),
		}, nil
	}

	a.metrics.RecordAggregation(metrics.OutcomeAverage)

	sum := decimal.Zero
	sources := make([]string, 0, len(quotes))
	for _, q := range quotes {
		sum = sum.Add(q.Rate)
		sources = append(sources, q.Provider)
	}
	mean := sum.DivRound(decimal.NewFromInt(int64(len(quotes))), averagePlaces)

	a.log.Info("Using average rate", "pair", pair.Key(), "rate", mean.String(), "providers", sources)

	return &model.AggregatedRate{
		Pair:       pair,
		Rate:       mean,
		Provenance: averageLabel(sources),
		Sources:    sources,
		ResolvedAt: a.now(),
	}, nil
}

func averageLabel(sources []string) string {
	return "Average(" + strings.Join(sources, "+") + ")"
}

func (a *FallbackAggregator) Invalidate(ctx context.Context, pair model.CurrencyPair) {
	a.cache.Invalidate(ctx, pair)
}

func (a *FallbackAggregator) ClearCache(ctx context.Context) {
	a.cache.Clear(ctx)
}
