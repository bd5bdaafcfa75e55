package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/clock"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	"github.com/paynehq/payne/internal/merchantctx"
	obsmetrics "github.com/paynehq/payne/internal/observability/metrics"
	"github.com/paynehq/payne/pkg/db"
	"github.com/paynehq/payne/pkg/db/option"
	"github.com/paynehq/payne/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCustomerNameRequired = errors.New("customer_name_required")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidDueDate       = errors.New("invalid_due_date")
)

var invoiceNumberPattern = regexp.MustCompile(`INV-(\d+)`)

// createAttempts bounds the duplicate-number retry loop. The sequence read
// is not transactional with the insert, so concurrent creates can collide;
// the unique index catches it and we regenerate.
const createAttempts = 3

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	invoicerepo  repository.Repository[invoicedomain.Invoice]
	merchantrepo repository.Repository[authdomain.Merchant]
	metrics      *obsmetrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		invoicerepo:  repository.ProvideStore[invoicedomain.Invoice](p.DB),
		merchantrepo: repository.ProvideStore[authdomain.Merchant](p.DB),
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidMerchant
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		return invoicedomain.Invoice{}, ErrCustomerNameRequired
	}
	if req.Amount <= 0 {
		return invoicedomain.Invoice{}, ErrInvalidAmount
	}
	dueDate, err := invoicedomain.ParseDueDate(strings.TrimSpace(req.DueDate))
	if err != nil {
		return invoicedomain.Invoice{}, ErrInvalidDueDate
	}

	merchant, err := s.merchantrepo.FindOne(ctx, &authdomain.Merchant{ID: merchantID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if merchant == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidMerchant
	}

	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := s.NextInvoiceNumber(ctx)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}

		now := s.clock.Now()
		inv := invoicedomain.Invoice{
			ID:              s.genID.Generate(),
			InvoiceNumber:   number,
			CustomerName:    strings.TrimSpace(req.CustomerName),
			AmountMicros:    invoicedomain.AmountToMicros(req.Amount),
			DueDate:         invoicedomain.TruncateToDay(dueDate),
			Status:          invoicedomain.InvoiceStatusPending,
			MerchantID:      merchant.ID,
			MerchantName:    merchant.DisplayName,
			MerchantAddress: merchant.WalletAddress,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := s.invoicerepo.Create(ctx, &inv); err != nil {
			if db.IsDuplicateKeyErr(err) {
				lastErr = err
				continue
			}
			return invoicedomain.Invoice{}, err
		}

		s.metrics.IncInvoiceCreated(ctx)
		s.log.Info("invoice created",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("merchant_id", inv.MerchantID.String()),
			zap.Int64("amount_micros", inv.AmountMicros),
		)
		return inv, nil
	}

	return invoicedomain.Invoice{}, lastErr
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidMerchant
	}

	filter := &invoicedomain.Invoice{MerchantID: merchantID}
	if req.Status != nil && *req.Status == invoicedomain.InvoiceStatusPaid {
		filter.Status = invoicedomain.InvoiceStatusPaid
	}
	// pending and overdue are both stored as pending; the split happens
	// below via DisplayStatus.
	if req.Status != nil && *req.Status != invoicedomain.InvoiceStatusPaid {
		filter.Status = invoicedomain.InvoiceStatusPending
	}

	options := []option.QueryOption{option.WithOrder("created_at DESC")}
	if req.Limit > 0 {
		options = append(options, option.WithLimit(req.Limit))
	}

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	today := s.clock.Now()
	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if req.Status != nil && invoicedomain.DisplayStatus(*item, today) != *req.Status {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{Invoices: invoices}, nil
}

func (s *Service) GetByNumber(ctx context.Context, invoiceNumber string) (invoicedomain.Invoice, error) {
	item, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{InvoiceNumber: strings.TrimSpace(invoiceNumber)})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) MarkPaid(ctx context.Context, invoiceNumber, txHash string) (invoicedomain.Invoice, error) {
	var result invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.invoicerepo.WithTrx(tx)

		item, err := repo.FindOne(ctx, &invoicedomain.Invoice{InvoiceNumber: strings.TrimSpace(invoiceNumber)})
		if err != nil {
			return err
		}
		if item == nil {
			return invoicedomain.ErrNotFound
		}
		if item.Status == invoicedomain.InvoiceStatusPaid {
			return invoicedomain.ErrAlreadyPaid
		}

		now := s.clock.Now()
		if err := repo.Update(ctx, item.ID.String(), map[string]any{
			"status":           invoicedomain.InvoiceStatusPaid,
			"paid_at":          now,
			"transaction_hash": txHash,
			"updated_at":       now,
		}); err != nil {
			return err
		}

		item.Status = invoicedomain.InvoiceStatusPaid
		item.PaidAt = &now
		item.TransactionHash = txHash
		item.UpdatedAt = now
		result = *item
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice marked paid",
		zap.String("invoice_number", result.InvoiceNumber),
		zap.String("transaction_hash", txHash),
	)
	return result, nil
}

// NextInvoiceNumber reads the most recently created invoice and increments
// its numeric suffix. A failed read falls back to a timestamp-derived
// number: availability over guaranteed uniqueness, the unique index is the
// backstop.
func (s *Service) NextInvoiceNumber(ctx context.Context) (string, error) {
	latest, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{},
		option.WithOrder("created_at DESC"),
		option.WithLimit(1),
	)
	if err != nil {
		s.log.Warn("invoice number lookup failed, using timestamp fallback", zap.Error(err))
		return timestampInvoiceNumber(s.clock.Now()), nil
	}

	next := 1
	if latest != nil {
		if m := invoiceNumberPattern.FindStringSubmatch(latest.InvoiceNumber); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				next = n + 1
			}
		}
	}

	return formatInvoiceNumber(next), nil
}

func formatInvoiceNumber(n int) string {
	padded := strconv.Itoa(n)
	for len(padded) < 4 {
		padded = "0" + padded
	}
	return "INV-" + padded
}

func timestampInvoiceNumber(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	return "INV-" + millis
}
