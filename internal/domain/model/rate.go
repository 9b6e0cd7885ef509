package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProvenanceSameCurrency labels conversions that never reached a provider.
const ProvenanceSameCurrency = "SAME_CURRENCY"

// RateQuote is one provider's answer for a pair.
type RateQuote struct {
	Pair       CurrencyPair    `json:"pair"`
	Rate       decimal.Decimal `json:"rate"`
	Provider   string          `json:"provider"`
	ObservedAt time.Time       `json:"observed_at"`
}

// AggregatedRate is the consensus decision over all successful quotes.
type AggregatedRate struct {
	Pair       CurrencyPair    `json:"pair"`
	Rate       decimal.Decimal `json:"rate"`
	Provenance string          `json:"provenance"`
	Sources    []string        `json:"sources"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

type ConversionResult struct {
	Amount          decimal.Decimal `json:"amount"`
	FromCurrency    Currency        `json:"from_currency"`
	ToCurrency      Currency        `json:"to_currency"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	Provider        string          `json:"provider"`
	Timestamp       time.Time       `json:"timestamp"`
}
