package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrUnexpectedStatus    = errors.New("provider returned non-OK status")
	ErrUnsupportedCurrency = errors.New("currency not supported")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// httpClient carries what every HTTP-backed provider shares: a bounded
// client, a name for logs, and JSON decoding.
type httpClient struct {
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     *logger.Logger
}

func newHTTPClient(name, baseURL, apiKey string, timeout time.Duration, log *logger.Logger) httpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpClient{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log.With("provider", name),
	}
}

func (c *httpClient) getJSON(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// pickRate extracts the quote currency from a provider's rate table.
func (c *httpClient) pickRate(rates map[string]decimal.Decimal, pair model.CurrencyPair) (*model.RateQuote, error) {
	rate, ok := rates[pair.Quote.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, pair.Quote)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive rate %s for %s", ErrMalformedResponse, rate, pair.Quote)
	}

	c.log.Info("Provider returned rate", "pair", pair.Key(), "rate", rate.String())

	return &model.RateQuote{
		Pair:       pair,
		Rate:       rate,
		Provider:   c.name,
		ObservedAt: time.Now(),
	}, nil
}
