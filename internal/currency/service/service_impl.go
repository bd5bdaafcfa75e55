package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/paynehq/payne/internal/currency/client"
	"github.com/paynehq/payne/internal/currency/domain"
	obsmetrics "github.com/paynehq/payne/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service serves cached exchange rates and currency conversion.
type Service interface {
	// Rates returns the current snapshot, restricted to the supported
	// display currencies, refreshing upstream data when the cache has
	// gone stale.
	Rates(ctx context.Context) (domain.Rates, error)
	// ConvertFromUSD converts a USD amount into a display currency.
	ConvertFromUSD(ctx context.Context, amount float64, code string) (float64, error)
	// USDToUSDC converts a USD amount into USDC at the live token price.
	USDToUSDC(ctx context.Context, usdAmount float64) (float64, error)
}

type ServiceParam struct {
	fx.In

	Config   config.Config
	Currency *config.CurrencyConfigHolder
	Rates    client.RateSource
	Price    client.PriceSource
	Log      *zap.Logger
	Clock    clock.Clock
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	cfg      config.Config
	currency *config.CurrencyConfigHolder
	rates    client.RateSource
	price    client.PriceSource
	log      *zap.Logger
	clock    clock.Clock
	metrics  *obsmetrics.Metrics

	mu     sync.Mutex
	cached *domain.Rates
}

func NewService(p ServiceParam) Service {
	return &service{
		cfg:      p.Config,
		currency: p.Currency,
		rates:    p.Rates,
		price:    p.Price,
		log:      p.Log.Named("currency.service"),
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (s *service) Rates(ctx context.Context) (domain.Rates, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return domain.Rates{}, err
	}

	supported := s.currency.Get().Supported
	filtered := make(map[string]float64, len(supported))
	for _, code := range supported {
		code = strings.ToUpper(strings.TrimSpace(code))
		if rate, ok := snapshot.Rates[code]; ok {
			filtered[code] = rate
		}
	}

	return domain.Rates{
		Base:         snapshot.Base,
		Rates:        filtered,
		USDCPriceUSD: snapshot.USDCPriceUSD,
		FetchedAt:    snapshot.FetchedAt,
	}, nil
}

func (s *service) ConvertFromUSD(ctx context.Context, amount float64, code string) (float64, error) {
	if !s.currency.Supports(code) {
		return 0, domain.ErrUnsupportedCurrency
	}
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snapshot.FromUSD(amount, code)
}

func (s *service) USDToUSDC(ctx context.Context, usdAmount float64) (float64, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snapshot.ToUSDC(usdAmount)
}

// snapshot returns the cached rates, refreshing when older than the
// configured TTL. A failed refresh surfaces ErrRateUnavailable rather than
// silently serving expired data.
func (s *service) snapshot(ctx context.Context) (domain.Rates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	ttl := s.cfg.Rates.CacheTTL
	if s.cached != nil && now.Sub(s.cached.FetchedAt) < ttl {
		return *s.cached, nil
	}

	rates, err := s.rates.FetchRates(ctx)
	if err != nil {
		s.metrics.IncRateRefresh(ctx, "exchange_rate", false)
		s.log.Warn("rate refresh failed", zap.Error(err))
		return domain.Rates{}, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	s.metrics.IncRateRefresh(ctx, "exchange_rate", true)

	price, err := s.price.FetchUSDCPrice(ctx)
	if err != nil {
		s.metrics.IncRateRefresh(ctx, "usdc_price", false)
		// Rates without a token price still serve fiat display; USDC
		// conversion reports unavailable until the next refresh.
		s.log.Warn("usdc price refresh failed", zap.Error(err))
		price = 0
	} else {
		s.metrics.IncRateRefresh(ctx, "usdc_price", true)
	}

	snapshot := domain.Rates{
		Base:         "USD",
		Rates:        rates,
		USDCPriceUSD: price,
		FetchedAt:    now,
	}
	s.cached = &snapshot
	return snapshot, nil
}
