package ports

import (
	"context"

	"currency-converter/internal/domain/model"
)

type RateCache interface {
	Get(ctx context.Context, pair model.CurrencyPair) (*model.AggregatedRate, bool)
	Set(ctx context.Context, rate *model.AggregatedRate) error
	Invalidate(ctx context.Context, pair model.CurrencyPair)
	Clear(ctx context.Context)
}
