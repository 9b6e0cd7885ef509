package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCurrencyPair_Normalizes(t *testing.T) {
	pair := NewCurrencyPair("usd", " eur ")

	assert.Equal(t, USD, pair.Base)
	assert.Equal(t, EUR, pair.Quote)
	assert.Equal(t, "USD/EUR", pair.Key())
	assert.False(t, pair.IsIdentity())
	assert.True(t, NewCurrencyPair("gbp", "GBP").IsIdentity())
}

func TestParseCurrencyPair(t *testing.T) {
	pair, err := ParseCurrencyPair("usd/jpy")
	require.NoError(t, err)
	assert.Equal(t, NewCurrencyPair(USD, JPY), pair)

	for _, bad := range []string{"", "USD", "USD/", "/EUR"} {
		_, err := ParseCurrencyPair(bad)
		assert.Error(t, err, bad)
	}
}
