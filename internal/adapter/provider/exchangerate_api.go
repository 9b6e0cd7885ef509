package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
)

const ExchangeRateAPIName = "ExchangeRate-API"

// ExchangeRateAPI queries exchangerate-api.com. The keyless v4 endpoint
// answers with "rates"; the keyed v6 endpoint with "conversion_rates".
type ExchangeRateAPI struct {
	httpClient
}

type exchangeRateAPIResponse struct {
	Result          string                     `json:"result,omitempty"`
	Base            string                     `json:"base,omitempty"`
	BaseCode        string                     `json:"base_code,omitempty"`
	Date            string                     `json:"date,omitempty"`
	Rates           map[string]decimal.Decimal `json:"rates,omitempty"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates,omitempty"`
}

func NewExchangeRateAPI(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *ExchangeRateAPI {
	return &ExchangeRateAPI{
		httpClient: newHTTPClient(ExchangeRateAPIName, baseURL, apiKey, timeout, log),
	}
}

func (e *ExchangeRateAPI) Name() string {
	return e.name
}

func (e *ExchangeRateAPI) FetchRate(ctx context.Context, pair model.CurrencyPair) (*model.RateQuote, error) {
	e.log.Info("Fetching exchange rate", "pair", pair.Key())

	endpoint := e.baseURL
	if e.apiKey != "" {
		endpoint += "/" + url.PathEscape(e.apiKey)
	}
	endpoint += "/latest/" + url.PathEscape(pair.Base.String())

	var apiResp exchangeRateAPIResponse
	if err := e.getJSON(ctx, endpoint, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Result != "" && apiResp.Result != "success" {
		return nil, fmt.Errorf("%w: result %q", ErrMalformedResponse, apiResp.Result)
	}

	rates := apiResp.ConversionRates
	if len(rates) == 0 {
		rates = apiResp.Rates
	}

	return e.pickRate(rates, pair)
}
