package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"currency-converter/internal/adapter/cache"
	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRateProvider struct {
	mock.Mock
	name string
}

func (m *MockRateProvider) Name() string {
	return m.name
}

func (m *MockRateProvider) FetchRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
	args := m.Called(ctx, pair)
	quote, _ := args.Get(0).(*model.RateQuote)
	return quote, args.Error(1)
}

type stubProvider struct {
	name  string
	fetch func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error)
}

func (s *stubProvider) Name() string {
	return s.name
}

func (s *stubProvider) FetchRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
	return s.fetch(ctx, pair)
}

var usdEur = model.NewCurrencyPair(model.USD, model.EUR)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quoteOf(provider, rate string) *model.RateQuote {
	return &model.RateQuote{Pair: usdEur, Rate: dec(rate), Provider: provider, ObservedAt: time.Now()}
}

func newAggregator(t *testing.T, providers ...ports.RateProvider) (*FallbackAggregator, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewFallbackAggregator(providers, cache.NewMemoryCache(0, logger.Nop()), time.Second, logger.Nop(), m), m
}

func TestFallbackAggregator_Policy(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name           string
		results        map[string]*model.RateQuote
		expectedRate   string
		expectedLabel  string
		expectedSource []string
		expectedError  error
	}{
		{
			name: "both succeed - average",
			results: map[string]*model.RateQuote{
				"A": quoteOf("A", "0.90"),
				"B": quoteOf("B", "0.92"),
			},
			expectedRate:   "0.910000",
			expectedLabel:  "Average(A+B)",
			expectedSource: []string{"A", "B"},
		},
		{
			name: "only first succeeds",
			results: map[string]*model.RateQuote{
				"A": quoteOf("A", "0.90"),
				"B": nil,
			},
			expectedRate:   "0.90",
			expectedLabel:  "A",
			expectedSource: []string{"A"},
		},
		{
			name: "only second succeeds",
			results: map[string]*model.RateQuote{
				"A": nil,
				"B": quoteOf("B", "0.92"),
			},
			expectedRate:   "0.92",
			expectedLabel:  "B",
			expectedSource: []string{"B"},
		},
		{
			name: "mean rounds half up to six places",
			results: map[string]*model.RateQuote{
				"A": quoteOf("A", "0.0000004"),
				"B": quoteOf("B", "0.0000006"),
			},
			expectedRate:   "0.000001",
			expectedLabel:  "Average(A+B)",
			expectedSource: []string{"A", "B"},
		},
		{
			name: "all fail",
			results: map[string]*model.RateQuote{
				"A": nil,
				"B": nil,
			},
			expectedError: ErrAggregationFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			providers := make([]ports.RateProvider, 0, 2)
			mocks := make([]*MockRateProvider, 0, 2)
			for _, name := range []string{"A", "B"} {
				p := &MockRateProvider{name: name}
				if q := tc.results[name]; q != nil {
					p.On("FetchRate", mock.Anything, usdEur).Return(q, nil).Once()
				} else {
					p.On("FetchRate", mock.Anything, usdEur).Return(nil, boom).Once()
				}
				providers = append(providers, p)
				mocks = append(mocks, p)
			}

			agg, _ := newAggregator(t, providers...)
			rate, err := agg.GetRate(context.Background(), usdEur)

			if tc.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Equal(t, "all providers failed for USD/EUR", err.Error())
				assert.Nil(t, rate)
			} else {
				require.NoError(t, err)
				assert.True(t, dec(tc.expectedRate).Equal(rate.Rate), "got %s", rate.Rate)
				assert.Equal(t, tc.expectedLabel, rate.Provenance)
				assert.Equal(t, tc.expectedSource, rate.Sources)
				assert.Equal(t, usdEur, rate.Pair)
			}

			for _, m := range mocks {
				m.AssertExpectations(t)
			}
		})
	}
}

func TestFallbackAggregator_MeanOfThree(t *testing.T) {
	providers := []ports.RateProvider{}
	for _, tc := range []struct{ name, rate string }{{"A", "1"}, {"B", "1"}, {"C", "2"}} {
		p := &MockRateProvider{name: tc.name}
		p.On("FetchRate", mock.Anything, usdEur).Return(quoteOf(tc.name, tc.rate), nil)
		providers = append(providers, p)
	}

	agg, _ := newAggregator(t, providers...)
	rate, err := agg.Aggregate(context.Background(), usdEur)
	require.NoError(t, err)

	assert.Equal(t, "1.333333", rate.Rate.StringFixed(6))
	assert.Equal(t, "Average(A+B+C)", rate.Provenance)
}

func TestFallbackAggregator_CacheIsAuthoritative(t *testing.T) {
	a := &MockRateProvider{name: "A"}
	a.On("FetchRate", mock.Anything, usdEur).Return(quoteOf("A", "0.90"), nil).Once()
	a.On("FetchRate", mock.Anything, usdEur).Return(quoteOf("A", "0.50"), nil)
	b := &MockRateProvider{name: "B"}
	b.On("FetchRate", mock.Anything, usdEur).Return(quoteOf("B", "0.92"), nil).Once()
	b.On("FetchRate", mock.Anything, usdEur).Return(quoteOf("B", "0.50"), nil)

	agg, m := newAggregator(t, a, b)
	ctx := context.Background()

	first, err := agg.GetRate(ctx, usdEur)
	require.NoError(t, err)
	second, err := agg.GetRate(ctx, usdEur)
	require.NoError(t, err)

	assert.True(t, first.Rate.Equal(second.Rate))
	assert.Equal(t, first.Provenance, second.Provenance)
	a.AssertNumberOfCalls(t, "FetchRate", 1)
	b.AssertNumberOfCalls(t, "FetchRate", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateCacheHitsTotal))

	agg.Invalidate(ctx, usdEur)
	third, err := agg.GetRate(ctx, usdEur)
	require.NoError(t, err)
	assert.True(t, dec("0.5").Equal(third.Rate))
}

func TestFallbackAggregator_FailureIsNotCached(t *testing.T) {
	a := &MockRateProvider{name: "A"}
	a.On("FetchRate", mock.Anything, usdEur).Return(nil, errors.New("down")).Once()
	a.On("FetchRate", mock.Anything, usdEur).Return(quoteOf("A", "0.90"), nil).Once()

	agg, _ := newAggregator(t, a)
	ctx := context.Background()

	_, err := agg.GetRate(ctx, usdEur)
	require.ErrorIs(t, err, ErrAggregationFailure)

	rate, err := agg.GetRate(ctx, usdEur)
	require.NoError(t, err)
	assert.Equal(t, "A", rate.Provenance)
	a.AssertExpectations(t)
}

func TestFallbackAggregator_ProvidersRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	barrier := func(name, rate string) *stubProvider {
		return &stubProvider{name: name, fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
			started.Done()
			done := make(chan struct{})
			go func() {
				started.Wait()
				close(done)
			}()
			select {
			case <-done:
				return quoteOf(name, rate), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}}
	}

	agg, _ := newAggregator(t, barrier("A", "0.90"), barrier("B", "0.92"))

	rate, err := agg.Aggregate(context.Background(), usdEur)
	require.NoError(t, err)
	assert.Equal(t, "Average(A+B)", rate.Provenance)
}

func TestFallbackAggregator_SlowProviderTimesOut(t *testing.T) {
	slow := &stubProvider{name: "Slow", fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fast := &stubProvider{name: "Fast", fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
		return quoteOf("Fast", "0.90"), nil
	}}

	m := metrics.NewMetrics(prometheus.NewRegistry())
	agg := NewFallbackAggregator([]ports.RateProvider{slow, fast}, cache.NewMemoryCache(0, logger.Nop()), 50*time.Millisecond, logger.Nop(), m)

	start := time.Now()
	rate, err := agg.GetRate(context.Background(), usdEur)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "Fast", rate.Provenance)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("Slow", metrics.OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AggregationResultsTotal.WithLabelValues(metrics.OutcomeSingle)))
}

func TestFallbackAggregator_PanickingProviderIsAbsorbed(t *testing.T) {
	bad := &stubProvider{name: "Bad", fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
		panic("nil map")
	}}
	zero := &stubProvider{name: "Zero", fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
		return quoteOf("Zero", "0"), nil
	}}
	good := &stubProvider{name: "Good", fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
		return quoteOf("Good", "0.90"), nil
	}}

	agg, _ := newAggregator(t, bad, zero, good)

	rate, err := agg.Aggregate(context.Background(), usdEur)
	require.NoError(t, err)
	assert.Equal(t, "Good", rate.Provenance)
}

func TestFallbackAggregator_ConcurrentMissesShareOneFanOut(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	p := &stubProvider{name: "A", fetch: func(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
		calls.Add(1)
		<-gate
		return quoteOf("A", "0.90"), nil
	}}

	agg, _ := newAggregator(t, p)

	var wg sync.WaitGroup
	results := make([]*model.AggregatedRate, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rate, err := agg.GetRate(context.Background(), usdEur)
			assert.NoError(t, err)
			results[i] = rate
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "A", r.Provenance)
	}
}

func TestFallbackAggregator_NoProviders(t *testing.T) {
	agg, _ := newAggregator(t)

	_, err := agg.GetRate(context.Background(), usdEur)
	assert.ErrorIs(t, err, ErrAggregationFailure)
}
