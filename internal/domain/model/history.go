package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryRow holds every quote currency observed at exactly one instant.
type HistoryRow struct {
	Timestamp time.Time                    `json:"timestamp"`
	Rates     map[Currency]decimal.Decimal `json:"rates"`
}

// ExchangeRateHistory is the consolidated view for one base currency,
// rows ascending by timestamp.
type ExchangeRateHistory struct {
	Base      Currency     `json:"base"`
	Timestamp time.Time    `json:"timestamp"`
	Rates     []HistoryRow `json:"rates"`
}
