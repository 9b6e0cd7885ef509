package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usdEur = model.NewCurrencyPair(model.USD, model.EUR)

func TestExchangeRateAPI_FetchRate(t *testing.T) {
	testCases := []struct {
		name      string
		apiKey    string
		wantPath  string
		status    int
		body      string
		wantRate  string
		wantErrIs error
	}{
		{
			name:     "keyless endpoint",
			wantPath: "/latest/USD",
			status:   http.StatusOK,
			body:     `{"base":"USD","date":"2024-03-01","rates":{"EUR":0.92,"GBP":0.79}}`,
			wantRate: "0.92",
		},
		{
			name:     "keyed endpoint",
			apiKey:   "k3y",
			wantPath: "/k3y/latest/USD",
			status:   http.StatusOK,
			body:     `{"result":"success","base_code":"USD","conversion_rates":{"EUR":0.9123}}`,
			wantRate: "0.9123",
		},
		{
			name:      "missing target currency",
			wantPath:  "/latest/USD",
			status:    http.StatusOK,
			body:      `{"base":"USD","rates":{"GBP":0.79}}`,
			wantErrIs: ErrUnsupportedCurrency,
		},
		{
			name:      "non OK status",
			wantPath:  "/latest/USD",
			status:    http.StatusTooManyRequests,
			body:      `{}`,
			wantErrIs: ErrUnexpectedStatus,
		},
		{
			name:      "malformed body",
			wantPath:  "/latest/USD",
			status:    http.StatusOK,
			body:      `{"rates":`,
			wantErrIs: ErrMalformedResponse,
		},
		{
			name:      "error result",
			apiKey:    "bad",
			wantPath:  "/bad/latest/USD",
			status:    http.StatusOK,
			body:      `{"result":"error","error-type":"invalid-key"}`,
			wantErrIs: ErrMalformedResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.wantPath, r.URL.Path)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			p := NewExchangeRateAPI(server.URL, tc.apiKey, time.Second, logger.Nop())
			assert.Equal(t, ExchangeRateAPIName, p.Name())

			quote, err := p.FetchRate(context.Background(), usdEur)
			if tc.wantErrIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErrIs)
				return
			}

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.wantRate).Equal(quote.Rate))
			assert.Equal(t, ExchangeRateAPIName, quote.Provider)
			assert.Equal(t, usdEur, quote.Pair)
		})
	}
}

func TestOpenExchangeRates_FetchRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest.json", r.URL.Path)
		assert.Equal(t, "app-123", r.URL.Query().Get("app_id"))
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		_, _ = w.Write([]byte(`{"base":"USD","timestamp":1709294400,"rates":{"EUR":0.9,"JPY":150.12}}`))
	}))
	defer server.Close()

	p := NewOpenExchangeRates(server.URL, "app-123", time.Second, logger.Nop())

	quote, err := p.FetchRate(context.Background(), usdEur)
	require.NoError(t, err)
	assert.Equal(t, OpenExchangeRatesName, quote.Provider)
	assert.True(t, decimal.RequireFromString("0.9").Equal(quote.Rate))
	assert.Equal(t, time.Unix(1709294400, 0), quote.ObservedAt)

	_, err = p.FetchRate(context.Background(), model.NewCurrencyPair(model.USD, model.INR))
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestProvider_NonPositiveRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"EUR":0}}`))
	}))
	defer server.Close()

	p := NewOpenExchangeRates(server.URL, "", time.Second, logger.Nop())

	_, err := p.FetchRate(context.Background(), usdEur)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewExchangeRateAPI(server.URL, "", 50*time.Millisecond, logger.Nop())

	start := time.Now()
	_, err := p.FetchRate(context.Background(), usdEur)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	c := newHTTPClient("x", "http://example", "", 0, logger.Nop())
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
}
