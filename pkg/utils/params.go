package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// QueryOrDefault returns the trimmed query value for key, or def when absent.
func QueryOrDefault(values url.Values, key, def string) string {
	if v := strings.TrimSpace(values.Get(key)); v != "" {
		return v
	}
	return def
}

// ParseAmount reads a decimal amount such as "100" or "12.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}
