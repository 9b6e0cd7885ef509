package service

import (
	"errors"
	"fmt"

	"currency-converter/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrProviderFailure    = errors.New("provider failure")
	ErrAggregationFailure = errors.New("all providers failed")
	ErrHistoryNotFound    = model.ErrNotFound
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInternal           = errors.New("internal error")
)

// ConversionError is the only error Convert and ConvertAsync return.
type ConversionError struct {
	Amount decimal.Decimal
	Pair   model.CurrencyPair
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("unable to convert %s %s to %s: %v", e.Amount, e.Pair.Base, e.Pair.Quote, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
