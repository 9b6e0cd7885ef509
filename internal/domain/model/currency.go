package model

import (
	"fmt"
	"strings"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	INR Currency = "INR"
)

// Normalize upper-cases and trims a currency code.
func (c Currency) Normalize() Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(string(c))))
}

func (c Currency) String() string {
	return string(c)
}

// CurrencyPair is an ordered (base, quote) pair. Comparable, so usable as a map key.
type CurrencyPair struct {
	Base  Currency `json:"base"`
	Quote Currency `json:"quote"`
}

func NewCurrencyPair(base, quote Currency) CurrencyPair {
	return CurrencyPair{Base: base.Normalize(), Quote: quote.Normalize()}
}

// ParseCurrencyPair reads the "BASE/QUOTE" form produced by Key.
func ParseCurrencyPair(key string) (CurrencyPair, error) {
	base, quote, ok := strings.Cut(key, "/")
	if !ok || base == "" || quote == "" {
		return CurrencyPair{}, fmt.Errorf("malformed currency pair %q", key)
	}
	return NewCurrencyPair(Currency(base), Currency(quote)), nil
}

func (p CurrencyPair) Key() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

func (p CurrencyPair) String() string {
	return p.Key()
}

func (p CurrencyPair) IsIdentity() bool {
	return p.Base == p.Quote
}
