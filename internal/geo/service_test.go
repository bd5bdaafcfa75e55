package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubLookuper struct {
	location Location
	err      error
	calls    int
	lastIP   string
}

func (s *stubLookuper) Lookup(ctx context.Context, ip string) (Location, error) {
	s.calls++
	s.lastIP = ip
	if s.err != nil {
		return Location{}, s.err
	}
	return s.location, nil
}

func setupService(stub *stubLookuper) (Service, *clock.FakeClock) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticCurrencyConfigHolder(config.CurrencyConfig{
		Supported:       []string{"USD", "EUR", "NGN"},
		CountryFallback: map[string]string{"NG": "NGN", "DE": "EUR", "JP": "JPY"},
	})
	svc := NewService(ServiceParam{
		Currency: holder,
		Lookuper: stub,
		Log:      zap.NewNop(),
		Clock:    fake,
	})
	return svc, fake
}

func TestResolveUsesProviderCurrency(t *testing.T) {
	stub := &stubLookuper{location: Location{IP: "203.0.113.9", CountryCode: "DE", Currency: "EUR"}}
	svc, _ := setupService(stub)

	got := svc.Resolve(context.Background(), "203.0.113.9")
	assert.Equal(t, "EUR", got.Currency)
}

func TestResolveFallsBackToCountryTable(t *testing.T) {
	stub := &stubLookuper{location: Location{IP: "203.0.113.9", CountryCode: "NG", Currency: "XXX"}}
	svc, _ := setupService(stub)

	got := svc.Resolve(context.Background(), "203.0.113.9")
	assert.Equal(t, "NGN", got.Currency)
}

func TestResolveDefaultsToUSD(t *testing.T) {
	// JP fallback maps to JPY, which is not an offered currency here.
	stub := &stubLookuper{location: Location{IP: "203.0.113.9", CountryCode: "JP", Currency: "JPY"}}
	svc, _ := setupService(stub)

	got := svc.Resolve(context.Background(), "203.0.113.9")
	assert.Equal(t, "USD", got.Currency)
}

func TestResolveLoopbackUsesPublicResolver(t *testing.T) {
	stub := &stubLookuper{location: Location{IP: "8.8.8.8", CountryCode: "US", Currency: "USD"}}
	svc, _ := setupService(stub)

	svc.Resolve(context.Background(), "127.0.0.1")
	assert.Equal(t, "8.8.8.8", stub.lastIP)

	svc.Resolve(context.Background(), "192.168.1.20")
	assert.Equal(t, "8.8.8.8", stub.lastIP)
}

func TestResolveCachesPerIP(t *testing.T) {
	stub := &stubLookuper{location: Location{IP: "203.0.113.9", CountryCode: "DE", Currency: "EUR"}}
	svc, fake := setupService(stub)
	ctx := context.Background()

	svc.Resolve(ctx, "203.0.113.9")
	svc.Resolve(ctx, "203.0.113.9")
	assert.Equal(t, 1, stub.calls)

	fake.Advance(cacheTTL)
	svc.Resolve(ctx, "203.0.113.9")
	assert.Equal(t, 2, stub.calls)
}

func TestResolveLookupFailure(t *testing.T) {
	stub := &stubLookuper{err: errors.New("provider down")}
	svc, _ := setupService(stub)

	got := svc.Resolve(context.Background(), "203.0.113.9")
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "203.0.113.9", got.IP)
}
