package ports

import (
	"context"
	"time"

	"currency-converter/internal/domain/model"

	"github.com/shopspring/decimal"
)

type HistoryStore interface {
	Record(ctx context.Context, pair model.CurrencyPair, at time.Time, rate decimal.Decimal) error
	Query(ctx context.Context, base model.Currency) (*model.ExchangeRateHistory, error)
	Latest(ctx context.Context, pair model.CurrencyPair) (decimal.Decimal, time.Time, error)
	Pairs(ctx context.Context) []model.CurrencyPair
	Clear(ctx context.Context)
}
