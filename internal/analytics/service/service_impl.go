package service

import (
	"context"
	"time"

	analyticsdomain "github.com/paynehq/payne/internal/analytics/domain"
	"github.com/paynehq/payne/internal/clock"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	"github.com/paynehq/payne/internal/merchantctx"
	"github.com/paynehq/payne/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultWindow is the dashboard preset: the trailing 30 days.
const defaultWindow = 30 * 24 * time.Hour

type SummarizeRequest struct {
	// StartDate and EndDate are YYYY-MM-DD. When both are empty the
	// trailing-30-day preset applies and the summary includes a
	// previous-period comparison.
	StartDate string
	EndDate   string
}

type Service interface {
	Summarize(ctx context.Context, req SummarizeRequest) (analyticsdomain.Summary, error)
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type service struct {
	log      *zap.Logger
	clock    clock.Clock
	invoices repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) Service {
	return &service{
		log:      p.Log.Named("analytics.service"),
		clock:    p.Clock,
		invoices: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

func (s *service) Summarize(ctx context.Context, req SummarizeRequest) (analyticsdomain.Summary, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok {
		return analyticsdomain.Summary{}, invoicedomain.ErrInvalidMerchant
	}

	now := s.clock.Now()

	preset := req.StartDate == "" && req.EndDate == ""
	start, end, err := resolveRange(req, now)
	if err != nil {
		return analyticsdomain.Summary{}, err
	}

	items, err := s.invoices.Find(ctx, &invoicedomain.Invoice{MerchantID: merchantID})
	if err != nil {
		return analyticsdomain.Summary{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item != nil {
			invoices = append(invoices, *item)
		}
	}

	summary := analyticsdomain.Summarize(invoices, start, end, now)

	if preset {
		prev := analyticsdomain.RevenueInRange(invoices, start.Add(-defaultWindow), end.Add(-defaultWindow))
		cmp := analyticsdomain.ComparePeriods(summary.TotalRevenue, prev)
		summary.PeriodComparison = &cmp
	}

	return summary, nil
}

func resolveRange(req SummarizeRequest, now time.Time) (time.Time, time.Time, error) {
	if req.StartDate == "" && req.EndDate == "" {
		return now.Add(-defaultWindow), now, nil
	}

	start, err := invoicedomain.ParseDueDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := invoicedomain.ParseDueDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	// end date is inclusive of the whole day
	return start, end.Add(24*time.Hour - time.Nanosecond), nil
}
