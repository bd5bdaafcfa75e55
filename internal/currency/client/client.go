// Package client fetches exchange rates and the USDC token price from
// external providers.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/paynehq/payne/internal/config"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// RateSource fetches USD-based exchange rates.
type RateSource interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// PriceSource fetches the USDC/USD price.
type PriceSource interface {
	FetchUSDCPrice(ctx context.Context) (float64, error)
}

type exchangeRateResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	ErrorType       string             `json:"error-type"`
}

// ExchangeRateClient talks to the exchangerate-api v6 latest/USD endpoint.
type ExchangeRateClient struct {
	http    *resty.Client
	baseURL string
	apiKey  string
	log     *zap.Logger
}

func NewExchangeRateClient(cfg config.Config, log *zap.Logger) *ExchangeRateClient {
	return &ExchangeRateClient{
		http:    resty.New().SetTimeout(requestTimeout),
		baseURL: cfg.Rates.ExchangeRateBaseURL,
		apiKey:  cfg.Rates.ExchangeRateAPIKey,
		log:     log.Named("currency.exchangerate"),
	}
}

func (c *ExchangeRateClient) FetchRates(ctx context.Context) (map[string]float64, error) {
	var out exchangeRateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("%s/%s/latest/USD", c.baseURL, c.apiKey))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("exchange rate api: status %d", resp.StatusCode())
	}
	if out.Result != "success" {
		return nil, fmt.Errorf("exchange rate api: %s", out.ErrorType)
	}
	if len(out.ConversionRates) == 0 {
		return nil, fmt.Errorf("exchange rate api: empty rate table")
	}
	return out.ConversionRates, nil
}

// USDCPriceClient reads the token price from the configured price endpoint
// (coingecko simple-price format).
type USDCPriceClient struct {
	http *resty.Client
	url  string
	log  *zap.Logger
}

func NewUSDCPriceClient(cfg config.Config, log *zap.Logger) *USDCPriceClient {
	return &USDCPriceClient{
		http: resty.New().SetTimeout(requestTimeout),
		url:  cfg.Rates.USDCPriceURL,
		log:  log.Named("currency.usdcprice"),
	}
}

func (c *USDCPriceClient) FetchUSDCPrice(ctx context.Context) (float64, error) {
	var out map[string]map[string]float64
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.url)
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("usdc price api: status %d", resp.StatusCode())
	}
	price := out["usd-coin"]["usd"]
	if price <= 0 {
		return 0, fmt.Errorf("usdc price api: missing price")
	}
	return price, nil
}
