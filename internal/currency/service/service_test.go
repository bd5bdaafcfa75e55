package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/paynehq/payne/internal/currency/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRates struct {
	rates map[string]float64
	err   error
	calls int
}

func (s *stubRates) FetchRates(ctx context.Context) (map[string]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rates, nil
}

type stubPrice struct {
	price float64
	err   error
	calls int
}

func (s *stubPrice) FetchUSDCPrice(ctx context.Context) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func setupService(t *testing.T, rates *stubRates, price *stubPrice) (Service, *clock.FakeClock) {
	t.Helper()

	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticCurrencyConfigHolder(config.CurrencyConfig{
		Supported: []string{"USD", "EUR", "NGN"},
	})

	svc := NewService(ServiceParam{
		Config:   config.Config{Rates: config.RatesConfig{CacheTTL: time.Hour}},
		Currency: holder,
		Rates:    rates,
		Price:    price,
		Log:      zap.NewNop(),
		Clock:    fake,
	})
	return svc, fake
}

func TestRatesFiltersToSupportedCurrencies(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"EUR": 0.9, "NGN": 1500, "JPY": 150}}
	price := &stubPrice{price: 0.999}
	svc, _ := setupService(t, rates, price)

	got, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Base)
	assert.Contains(t, got.Rates, "EUR")
	assert.Contains(t, got.Rates, "NGN")
	assert.NotContains(t, got.Rates, "JPY")
	assert.InDelta(t, 0.999, got.USDCPriceUSD, 1e-9)
}

func TestConversionRoundTrip(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"EUR": 0.9, "NGN": 1500}}
	price := &stubPrice{price: 0.998}
	svc, _ := setupService(t, rates, price)
	ctx := context.Background()

	eur, err := svc.ConvertFromUSD(ctx, 100, "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 90.0, eur, 1e-9)

	got, err := svc.Rates(ctx)
	require.NoError(t, err)
	back, err := got.ToUSD(eur, "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, back, 1e-9)

	usdc, err := svc.USDToUSDC(ctx, 100)
	require.NoError(t, err)
	usd, err := got.FromUSDC(usdc)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, usd, 1e-9)
}

func TestConvertRejectsUnsupportedCurrency(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"EUR": 0.9}}
	svc, _ := setupService(t, rates, &stubPrice{price: 1})

	_, err := svc.ConvertFromUSD(context.Background(), 10, "JPY")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestRatesUnavailable(t *testing.T) {
	rates := &stubRates{err: errors.New("upstream down")}
	svc, _ := setupService(t, rates, &stubPrice{price: 1})

	_, err := svc.Rates(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestCacheFreshnessBoundary(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"EUR": 0.9}}
	price := &stubPrice{price: 1}
	svc, fake := setupService(t, rates, price)
	ctx := context.Background()

	_, err := svc.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rates.calls)

	fake.Advance(time.Hour - time.Second)
	_, err = svc.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rates.calls, "fresh cache must not refetch")

	fake.Advance(time.Second)
	_, err = svc.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rates.calls, "cache expires exactly at the TTL")
}

func TestMissingTokenPriceStillServesFiat(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"EUR": 0.9}}
	price := &stubPrice{err: errors.New("price feed down")}
	svc, _ := setupService(t, rates, price)
	ctx := context.Background()

	got, err := svc.Rates(ctx)
	require.NoError(t, err)
	assert.Contains(t, got.Rates, "EUR")

	_, err = svc.USDToUSDC(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}
