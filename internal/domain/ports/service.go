package ports

import (
	"context"

	"currency-converter/internal/domain/model"

	"github.com/shopspring/decimal"
)

// ConversionOutcome is delivered on the channel returned by ConvertAsync.
type ConversionOutcome struct {
	Result *model.ConversionResult
	Err    error
}

type ConversionService interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to model.Currency) (*model.ConversionResult, error)
	ConvertAsync(ctx context.Context, amount decimal.Decimal, from, to model.Currency) <-chan ConversionOutcome
	GetHistory(ctx context.Context, base model.Currency) (*model.ExchangeRateHistory, error)
	ClearHistory(ctx context.Context)
	ClearRateCache(ctx context.Context)
	AvailablePairs(ctx context.Context) []model.CurrencyPair
	AvailableBaseCurrencies(ctx context.Context) []model.Currency
	LatestRate(ctx context.Context, from, to model.Currency) (decimal.Decimal, error)
}
