package geo

import (
	"context"
	"sync"
	"time"

	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cacheTTL = time.Hour

// Service resolves the display currency for a visitor. Lookup results are
// cached per IP; failures fall back to USD rather than erroring the page.
type Service interface {
	Resolve(ctx context.Context, ip string) Location
}

type ServiceParam struct {
	fx.In

	Currency *config.CurrencyConfigHolder
	Lookuper Lookuper
	Log      *zap.Logger
	Clock    clock.Clock
}

type cacheEntry struct {
	location Location
	storedAt time.Time
}

type service struct {
	currency *config.CurrencyConfigHolder
	lookuper Lookuper
	log      *zap.Logger
	clock    clock.Clock

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewService(p ServiceParam) Service {
	return &service{
		currency: p.Currency,
		lookuper: p.Lookuper,
		log:      p.Log.Named("geo.service"),
		clock:    p.Clock,
		cache:    map[string]cacheEntry{},
	}
}

func (s *service) Resolve(ctx context.Context, ip string) Location {
	target := normalizeIP(ip)

	s.mu.Lock()
	entry, ok := s.cache[target]
	fresh := ok && s.clock.Now().Sub(entry.storedAt) < cacheTTL
	s.mu.Unlock()
	if fresh {
		return entry.location
	}

	location, err := s.lookuper.Lookup(ctx, target)
	if err != nil {
		s.log.Warn("geo lookup failed", zap.String("ip", target), zap.Error(err))
		return Location{IP: target, Currency: "USD"}
	}

	location.Currency = s.resolveCurrency(location)

	s.mu.Lock()
	s.cache[target] = cacheEntry{location: location, storedAt: s.clock.Now()}
	s.mu.Unlock()

	return location
}

// resolveCurrency prefers the provider's currency when it is an offered
// display currency, then the per-country fallback table, then USD.
func (s *service) resolveCurrency(location Location) string {
	if location.Currency != "" && s.currency.Supports(location.Currency) {
		return location.Currency
	}
	if fallback, ok := s.currency.Get().CountryFallback[location.CountryCode]; ok && s.currency.Supports(fallback) {
		return fallback
	}
	return "USD"
}
