package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/paynehq/payne/internal/chain"
	"github.com/paynehq/payne/internal/config"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	obsmetrics "github.com/paynehq/payne/internal/observability/metrics"
	paymentdomain "github.com/paynehq/payne/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidTxHash         = errors.New("invalid transaction hash")
	ErrInvalidMerchantWallet = errors.New("invoice has no valid merchant wallet")
)

// Service drives the payment pipeline for an invoice.
type Service interface {
	// Pay transfers the invoice amount from the service's payer account
	// and marks the invoice paid once the transfer is mined.
	Pay(ctx context.Context, invoiceNumber string) (paymentdomain.Result, error)
	// Confirm verifies a wallet-submitted transaction actually pays the
	// invoice, then marks it paid.
	Confirm(ctx context.Context, invoiceNumber, txHash string) (paymentdomain.Result, error)
}

type ServiceParam struct {
	fx.In

	Config   config.Config
	Chain    chain.Client
	Invoices invoicedomain.Service
	Log      *zap.Logger
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	cfg      config.Config
	chain    chain.Client
	invoices invoicedomain.Service
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
}

func NewService(p ServiceParam) Service {
	return &service{
		cfg:      p.Config,
		chain:    p.Chain,
		invoices: p.Invoices,
		log:      p.Log.Named("payment.service"),
		metrics:  p.Metrics,
	}
}

func (s *service) Pay(ctx context.Context, invoiceNumber string) (paymentdomain.Result, error) {
	inv, err := s.invoices.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return paymentdomain.Result{}, err
	}
	if inv.Status == invoicedomain.InvoiceStatusPaid {
		return paymentdomain.Result{}, invoicedomain.ErrAlreadyPaid
	}
	if !common.IsHexAddress(inv.MerchantAddress) {
		return paymentdomain.Result{}, ErrInvalidMerchantWallet
	}

	to := common.HexToAddress(inv.MerchantAddress)
	amount := chain.BaseUnits(inv.AmountMicros, s.cfg.Chain.TokenDecimals)

	txHash, err := s.chain.Transfer(ctx, to, amount)
	if err != nil {
		s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageSubmit), "failed")
		s.log.Warn("payment submit failed",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err),
		)
		return failedResult(inv), paymentdomain.NewError(paymentdomain.StageSubmit, err)
	}
	s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageSubmit), "ok")

	// The transfer is in flight; from here on a failure means the outcome
	// is unknown, never that the payment succeeded.
	if _, err := s.chain.WaitForReceipt(ctx, txHash); err != nil {
		s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageConfirmation), "failed")
		s.log.Warn("payment confirmation failed",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("tx_hash", txHash.Hex()),
			zap.Error(err),
		)
		return failedResult(inv), paymentdomain.NewError(paymentdomain.StageConfirmation, err)
	}
	s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageConfirmation), "ok")

	return s.settle(ctx, inv, txHash.Hex())
}

func (s *service) Confirm(ctx context.Context, invoiceNumber, txHash string) (paymentdomain.Result, error) {
	hash := strings.TrimSpace(txHash)
	if !isTxHash(hash) {
		return paymentdomain.Result{}, ErrInvalidTxHash
	}

	inv, err := s.invoices.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return paymentdomain.Result{}, err
	}
	if inv.Status == invoicedomain.InvoiceStatusPaid {
		if strings.EqualFold(inv.TransactionHash, hash) {
			return paymentdomain.Result{State: paymentdomain.StateSucceeded, TxHash: inv.TransactionHash, Invoice: inv}, nil
		}
		return paymentdomain.Result{}, invoicedomain.ErrAlreadyPaid
	}
	if !common.IsHexAddress(inv.MerchantAddress) {
		return paymentdomain.Result{}, ErrInvalidMerchantWallet
	}

	if _, err := s.chain.WaitForReceipt(ctx, common.HexToHash(hash)); err != nil {
		s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageConfirmation), "failed")
		return failedResult(inv), paymentdomain.NewError(paymentdomain.StageConfirmation, err)
	}

	events, err := s.chain.TransactionTransfers(ctx, common.HexToHash(hash))
	if err != nil {
		s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageConfirmation), "failed")
		return failedResult(inv), paymentdomain.NewError(paymentdomain.StageConfirmation, err)
	}

	if !paysInvoice(events, common.HexToAddress(inv.MerchantAddress), inv.AmountMicros, s.cfg.Chain.TokenDecimals) {
		s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageConfirmation), "mismatch")
		s.log.Warn("confirm rejected, transaction does not pay the invoice",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("tx_hash", hash),
		)
		return paymentdomain.Result{}, chain.ErrPaymentMismatch
	}
	s.metrics.IncPaymentEvent(ctx, string(paymentdomain.StageConfirmation), "ok")

	return s.settle(ctx, inv, hash)
}

// settle records the paid transition. A concurrent settle of the same
// invoice is treated as success.
func (s *service) settle(ctx context.Context, inv invoicedomain.Invoice, txHash string) (paymentdomain.Result, error) {
	paid, err := s.invoices.MarkPaid(ctx, inv.InvoiceNumber, txHash)
	if err != nil {
		if errors.Is(err, invoicedomain.ErrAlreadyPaid) {
			reloaded, lookupErr := s.invoices.GetByNumber(ctx, inv.InvoiceNumber)
			if lookupErr == nil {
				return paymentdomain.Result{State: paymentdomain.StateSucceeded, TxHash: reloaded.TransactionHash, Invoice: reloaded}, nil
			}
		}
		return paymentdomain.Result{}, err
	}
	return paymentdomain.Result{State: paymentdomain.StateSucceeded, TxHash: txHash, Invoice: paid}, nil
}

func failedResult(inv invoicedomain.Invoice) paymentdomain.Result {
	return paymentdomain.Result{State: paymentdomain.StateFailed, Invoice: inv}
}

// paysInvoice reports whether any Transfer event pays the merchant at least
// the invoice amount.
func paysInvoice(events []chain.TransferEvent, merchant common.Address, amountMicros int64, decimals int) bool {
	required := chain.BaseUnits(amountMicros, decimals)
	for _, event := range events {
		if event.To == merchant && event.Value != nil && event.Value.Cmp(required) >= 0 {
			return true
		}
	}
	return false
}

func isTxHash(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
