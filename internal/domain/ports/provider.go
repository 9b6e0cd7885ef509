package ports

import (
	"context"

	"currency-converter/internal/domain/model"
)

// RateProvider fetches the current rate for a pair from one external source.
// Implementations must honour ctx and their own timeout, and must not retry.
type RateProvider interface {
	Name() string
	FetchRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error)
}
