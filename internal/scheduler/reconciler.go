// Package scheduler runs the background payment reconciler: it scans token
// Transfer logs and settles pending invoices whose payment arrived on chain
// without going through the confirm endpoint.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/paynehq/payne/internal/chain"
	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	obsmetrics "github.com/paynehq/payne/internal/observability/metrics"
	"github.com/paynehq/payne/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reconcileJobName = "reconcile_payments"
	jobTimeout       = 30 * time.Second

	// maxBlockSpan caps a single log scan so a long outage does not turn
	// into one giant filter query.
	maxBlockSpan = 5_000
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

// ChainCursor tracks the last block the reconciler has scanned.
type ChainCursor struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null;uniqueIndex"`
	BlockNumber uint64       `gorm:"not null"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ChainCursor) TableName() string { return "chain_cursors" }

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Chain    chain.Client
	Invoices invoicedomain.Service
	GenID    *snowflake.Node
	Clock    clock.Clock
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Reconciler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	chain    chain.Client
	invoices invoicedomain.Service
	genID    *snowflake.Node
	clock    clock.Clock
	metrics  *obsmetrics.Metrics

	cursors     repository.Repository[ChainCursor]
	invoicerepo repository.Repository[invoicedomain.Invoice]
}

func New(p Params) (*Reconciler, error) {
	if p.DB == nil || p.Log == nil || p.Chain == nil || p.Invoices == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Reconciler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "reconciler")),
		cfg:      p.Config,
		chain:    p.Chain,
		invoices: p.Invoices,
		genID:    p.GenID,
		clock:    p.Clock,
		metrics:  p.Metrics,

		cursors:     repository.ProvideStore[ChainCursor](p.DB),
		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}, nil
}

func (r *Reconciler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	r.metrics.IncReconcilerRun(ctx)
	err := fn(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		r.log.Warn("job timed out", zap.String("job", name), zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (r *Reconciler) RunOnce(parent context.Context) error {
	return r.runJob(parent, reconcileJobName, jobTimeout, r.ReconcilePaymentsJob)
}

func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Chain.ReconcileInterval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("reconciler run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ReconcilePaymentsJob scans Transfer logs since the stored cursor and
// settles pending invoices they pay. Each invoice settles at most once; a
// transfer that pays no open invoice is ignored.
func (r *Reconciler) ReconcilePaymentsJob(ctx context.Context) error {
	latest, err := r.chain.LatestBlock(ctx)
	if err != nil {
		if errors.Is(err, chain.ErrNotConfigured) {
			return nil
		}
		return err
	}

	cursor, err := r.loadCursor(ctx, latest)
	if err != nil {
		return err
	}
	if cursor.BlockNumber >= latest {
		return nil
	}

	from := cursor.BlockNumber + 1
	to := latest
	if to-from > maxBlockSpan {
		to = from + maxBlockSpan
	}

	events, err := r.chain.TransferLogs(ctx, from, to)
	if err != nil {
		return err
	}

	if len(events) > 0 {
		if err := r.settleMatches(ctx, events); err != nil {
			return err
		}
	}

	return r.storeCursor(ctx, cursor, to)
}

func (r *Reconciler) settleMatches(ctx context.Context, events []chain.TransferEvent) error {
	pending, err := r.invoicerepo.Find(ctx, &invoicedomain.Invoice{Status: invoicedomain.InvoiceStatusPending})
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var jobErr error
	settled := map[string]bool{}
	for _, event := range events {
		for _, inv := range pending {
			if inv == nil || settled[inv.InvoiceNumber] {
				continue
			}
			if !paysInvoice(event, *inv, r.cfg.Chain.TokenDecimals) {
				continue
			}

			if _, err := r.invoices.MarkPaid(ctx, inv.InvoiceNumber, event.TxHash.Hex()); err != nil {
				if errors.Is(err, invoicedomain.ErrAlreadyPaid) {
					settled[inv.InvoiceNumber] = true
					continue
				}
				jobErr = errors.Join(jobErr, err)
				continue
			}

			settled[inv.InvoiceNumber] = true
			r.metrics.IncReconcilerPaid(ctx)
			r.log.Info("invoice settled by reconciler",
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.String("tx_hash", event.TxHash.Hex()),
				zap.Uint64("block", event.BlockNumber),
			)
			// one transfer settles one invoice
			break
		}
	}
	return jobErr
}

// loadCursor returns the stored cursor, creating one at the current head on
// first run so history is not rescanned.
func (r *Reconciler) loadCursor(ctx context.Context, latest uint64) (*ChainCursor, error) {
	cursor, err := r.cursors.FindOne(ctx, &ChainCursor{Name: reconcileJobName})
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		return cursor, nil
	}

	cursor = &ChainCursor{
		ID:          r.genID.Generate(),
		Name:        reconcileJobName,
		BlockNumber: latest,
		UpdatedAt:   r.clock.Now(),
	}
	if err := r.cursors.Create(ctx, cursor); err != nil {
		return nil, err
	}
	return cursor, nil
}

func (r *Reconciler) storeCursor(ctx context.Context, cursor *ChainCursor, block uint64) error {
	cursor.BlockNumber = block
	return r.cursors.Update(ctx, cursor.ID.String(), map[string]any{
		"block_number": block,
		"updated_at":   r.clock.Now(),
	})
}

func paysInvoice(event chain.TransferEvent, inv invoicedomain.Invoice, decimals int) bool {
	if !common.IsHexAddress(inv.MerchantAddress) || event.Value == nil {
		return false
	}
	if event.To != common.HexToAddress(strings.TrimSpace(inv.MerchantAddress)) {
		return false
	}
	required := chain.BaseUnits(inv.AmountMicros, decimals)
	return event.Value.Cmp(required) >= 0
}
