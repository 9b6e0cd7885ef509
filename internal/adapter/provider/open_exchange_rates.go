package provider

import (
	"context"
	"net/url"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
)

const OpenExchangeRatesName = "OpenExchangeRates"

type OpenExchangeRates struct {
	httpClient
}

type openExchangeRatesResponse struct {
	Base      string                     `json:"base"`
	Timestamp int64                      `json:"timestamp"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

func NewOpenExchangeRates(baseURL, appID string, timeout time.Duration, log *logger.Logger) *OpenExchangeRates {
	return &OpenExchangeRates{
		httpClient: newHTTPClient(OpenExchangeRatesName, baseURL, appID, timeout, log),
	}
}

func (o *OpenExchangeRates) Name() string {
	return o.name
}

func (o *OpenExchangeRates) FetchRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
	o.log.Info("Fetching exchange rate", "pair", pair.Key())

	query := url.Values{}
	query.Set("app_id", o.apiKey)
	query.Set("base", pair.Base.String())
	endpoint := o.baseURL + "/latest.json?" + query.Encode()

	var apiResp openExchangeRatesResponse
	if err := o.getJSON(ctx, endpoint, &apiResp); err != nil {
		return nil, err
	}

	quote, err := o.pickRate(apiResp.Rates, pair)
	if err != nil {
		return nil, err
	}
	if apiResp.Timestamp > 0 {
		quote.ObservedAt = time.Unix(apiResp.Timestamp, 0)
	}
	return quote, nil
}
