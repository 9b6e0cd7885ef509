package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
)

// amountPlaces is the scale of every converted amount.
const amountPlaces = 2

// RateSource is satisfied by FallbackAggregator.
type RateSource interface {
	GetRate(ctx context.Context, pair model.CurrencyPair) (*model.AggregatedRate, error)
	ClearCache(ctx context.Context)
}

type ConversionEngine struct {
	rates   RateSource
	history ports.HistoryStore
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

var _ ports.ConversionService = (*ConversionEngine)(nil)

func NewConversionEngine(rates RateSource, history ports.HistoryStore, log *logger.Logger, m *metrics.Metrics) *ConversionEngine {
	return &ConversionEngine{
		rates:   rates,
		history: history,
		now:     time.Now,
		log:     log.With("component", "conversion"),
		metrics: m,
	}
}

func (e *ConversionEngine) Convert(ctx context.Context, amount decimal.Decimal, from, to model.Currency) (result *model.ConversionResult, err error) {
	e.metrics.RecordConversion()
	pair := model.NewCurrencyPair(from, to)

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ConversionError{Amount: amount, Pair: pair, Err: fmt.Errorf("%w: %v", ErrInternal, r)}
			e.log.Error("Currency conversion panicked", "pair", pair.Key(), "panic", r)
		}
	}()

	if !amount.IsPositive() {
		return nil, &ConversionError{Amount: amount, Pair: pair, Err: ErrInvalidAmount}
	}

	if pair.IsIdentity() {
		return &model.ConversionResult{
			Amount:          amount,
			FromCurrency:    pair.Base,
			ToCurrency:      pair.Quote,
			ExchangeRate:    decimal.NewFromInt(1),
			ConvertedAmount: amount,
			Provider:        model.ProvenanceSameCurrency,
			Timestamp:       e.now(),
		}, nil
	}

	rate, err := e.rates.GetRate(ctx, pair)
	if err != nil {
		e.log.Error("Currency conversion failed", "amount", amount.String(), "pair", pair.Key(), "error", err)
		return nil, &ConversionError{Amount: amount, Pair: pair, Err: err}
	}

	now := e.now()
	converted := amount.Mul(rate.Rate).Round(amountPlaces)

	if err := e.history.Record(ctx, pair, now, rate.Rate); err != nil {
		e.log.Warn("Failed to record conversion rate", "pair", pair.Key(), "error", err)
	}

	e.log.Info("Currency conversion successful",
		"amount", amount.String(),
		"pair", pair.Key(),
		"converted", converted.String(),
		"provider", rate.Provenance,
	)

	return &model.ConversionResult{
		Amount:          amount,
		FromCurrency:    pair.Base,
		ToCurrency:      pair.Quote,
		ExchangeRate:    rate.Rate,
		ConvertedAmount: converted,
		Provider:        rate.Provenance,
		Timestamp:       now,
	}, nil
}

// ConvertAsync runs Convert in its own goroutine. The channel yields exactly
// one outcome and is then closed.
func (e *ConversionEngine) ConvertAsync(ctx context.Context, amount decimal.Decimal, from, to model.Currency) <-chan ports.ConversionOutcome {
	out := make(chan ports.ConversionOutcome, 1)
	go func() {
		defer close(out)
		result, err := e.Convert(ctx, amount, from, to)
		out <- ports.ConversionOutcome{Result: result, Err: err}
	}()
	return out
}

func (e *ConversionEngine) GetHistory(ctx context.Context, base model.Currency) (*model.ExchangeRateHistory, error) {
	e.metrics.RecordHistoryRequest()
	return e.history.Query(ctx, base)
}

func (e *ConversionEngine) ClearHistory(ctx context.Context) {
	e.history.Clear(ctx)
}

func (e *ConversionEngine) ClearRateCache(ctx context.Context) {
	e.rates.ClearCache(ctx)
}

func (e *ConversionEngine) AvailablePairs(ctx context.Context) []model.CurrencyPair {
	return e.history.Pairs(ctx)
}

func (e *ConversionEngine) AvailableBaseCurrencies(ctx context.Context) []model.Currency {
	seen := make(map[model.Currency]struct{})
	bases := make([]model.Currency, 0)
	for _, pair := range e.history.Pairs(ctx) {
		if _, ok := seen[pair.Base]; ok {
			continue
		}
		seen[pair.Base] = struct{}{}
		bases = append(bases, pair.Base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases
}

func (e *ConversionEngine) LatestRate(ctx context.Context, from, to model.Currency) (decimal.Decimal, error) {
	rate, _, err := e.history.Latest(ctx, model.NewCurrencyPair(from, to))
	return rate, err
}
