// Package domain holds exchange rate types and conversion rules.
package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrRateUnavailable     = errors.New("exchange rates unavailable")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Rates is a snapshot of USD-based exchange rates plus the USDC/USD price.
// Rates maps a currency code to units per 1 USD.
type Rates struct {
	Base         string             `json:"base"`
	Rates        map[string]float64 `json:"rates"`
	USDCPriceUSD float64            `json:"usdcPriceUsd"`
	FetchedAt    time.Time          `json:"fetchedAt"`
}

// Rate returns the units-per-USD rate for code.
func (r Rates) Rate(code string) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "USD" {
		return 1, nil
	}
	rate, ok := r.Rates[code]
	if !ok || rate <= 0 {
		return 0, ErrUnsupportedCurrency
	}
	return rate, nil
}

// ToUSD converts an amount in the given currency to USD.
func (r Rates) ToUSD(amount float64, code string) (float64, error) {
	rate, err := r.Rate(code)
	if err != nil {
		return 0, err
	}
	return amount / rate, nil
}

// FromUSD converts a USD amount to the given currency.
func (r Rates) FromUSD(amount float64, code string) (float64, error) {
	rate, err := r.Rate(code)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// ToUSDC converts a USD amount to USDC using the live token price.
func (r Rates) ToUSDC(usdAmount float64) (float64, error) {
	if r.USDCPriceUSD <= 0 {
		return 0, ErrRateUnavailable
	}
	return usdAmount / r.USDCPriceUSD, nil
}

// FromUSDC converts a USDC amount to USD.
func (r Rates) FromUSDC(usdcAmount float64) (float64, error) {
	if r.USDCPriceUSD <= 0 {
		return 0, ErrRateUnavailable
	}
	return usdcAmount * r.USDCPriceUSD, nil
}
