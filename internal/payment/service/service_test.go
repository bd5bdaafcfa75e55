package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/glebarez/sqlite"
	authdomain "github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/chain"
	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	invoiceservice "github.com/paynehq/payne/internal/invoice/service"
	"github.com/paynehq/payne/internal/merchantctx"
	paymentdomain "github.com/paynehq/payne/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const merchantWallet = "0x9F8e7D6c5B4A39281706F5E4d3C2b1a098765432"

var testTxHash = common.HexToHash("0x" + "ab12" + "00000000000000000000000000000000000000000000000000000000ef34")

type stubChain struct {
	chain.Client

	transferHash common.Hash
	transferErr  error

	receiptErr error

	transfers    []chain.TransferEvent
	transfersErr error
}

func (s *stubChain) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	if s.transferErr != nil {
		return common.Hash{}, s.transferErr
	}
	return s.transferHash, nil
}

func (s *stubChain) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if s.receiptErr != nil {
		return nil, s.receiptErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

func (s *stubChain) TransactionTransfers(ctx context.Context, txHash common.Hash) ([]chain.TransferEvent, error) {
	if s.transfersErr != nil {
		return nil, s.transfersErr
	}
	return s.transfers, nil
}

func setupPayment(t *testing.T, stub *stubChain) (Service, invoicedomain.Invoice) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&authdomain.Merchant{}, &invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	merchant := authdomain.Merchant{
		ID:            node.Generate(),
		Email:         "owner@acme.test",
		DisplayName:   "Acme Studio",
		WalletAddress: merchantWallet,
		PasswordHash:  "x",
	}
	require.NoError(t, gdb.Create(&merchant).Error)

	invoices := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})

	ctx := merchantctx.WithMerchantID(context.Background(), merchant.ID)
	inv, err := invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerName: "Jordan",
		Amount:       150,
		DueDate:      "2026-04-01",
	})
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		Config:   config.Config{Chain: config.ChainConfig{TokenDecimals: 6}},
		Chain:    stub,
		Invoices: invoices,
		Log:      zap.NewNop(),
	})
	return svc, inv
}

func TestPaySucceeds(t *testing.T) {
	stub := &stubChain{transferHash: testTxHash}
	svc, inv := setupPayment(t, stub)

	result, err := svc.Pay(context.Background(), inv.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StateSucceeded, result.State)
	assert.Equal(t, testTxHash.Hex(), result.TxHash)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, result.Invoice.Status)
}

func TestPaySubmitFailure(t *testing.T) {
	stub := &stubChain{transferErr: errors.New("execution reverted: ERC20: transfer amount exceeds balance")}
	svc, inv := setupPayment(t, stub)

	result, err := svc.Pay(context.Background(), inv.InvoiceNumber)
	require.Error(t, err)
	assert.Equal(t, paymentdomain.StateFailed, result.State)

	var payErr *paymentdomain.Error
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, paymentdomain.StageSubmit, payErr.Stage)
	assert.Equal(t, chain.CodeInsufficientFunds, payErr.Code)
}

// A transfer that was submitted but never confirmed must never read as a
// success.
func TestPayReceiptFailureEndsFailed(t *testing.T) {
	stub := &stubChain{transferHash: testTxHash, receiptErr: chain.ErrReceiptTimeout}
	svc, inv := setupPayment(t, stub)

	result, err := svc.Pay(context.Background(), inv.InvoiceNumber)
	require.Error(t, err)
	assert.Equal(t, paymentdomain.StateFailed, result.State)

	var payErr *paymentdomain.Error
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, paymentdomain.StageConfirmation, payErr.Stage)

	reloaded, err := svc.(*service).invoices.GetByNumber(context.Background(), inv.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, reloaded.Status)
}

func TestPayAlreadyPaid(t *testing.T) {
	stub := &stubChain{transferHash: testTxHash}
	svc, inv := setupPayment(t, stub)

	_, err := svc.Pay(context.Background(), inv.InvoiceNumber)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), inv.InvoiceNumber)
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadyPaid)
}

func TestConfirmSucceeds(t *testing.T) {
	stub := &stubChain{
		transfers: []chain.TransferEvent{{
			To:    common.HexToAddress(merchantWallet),
			Value: big.NewInt(150_000_000),
		}},
	}
	svc, inv := setupPayment(t, stub)

	result, err := svc.Confirm(context.Background(), inv.InvoiceNumber, testTxHash.Hex())
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StateSucceeded, result.State)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, result.Invoice.Status)
}

func TestConfirmIsIdempotentForSameHash(t *testing.T) {
	stub := &stubChain{
		transfers: []chain.TransferEvent{{
			To:    common.HexToAddress(merchantWallet),
			Value: big.NewInt(150_000_000),
		}},
	}
	svc, inv := setupPayment(t, stub)
	ctx := context.Background()

	_, err := svc.Confirm(ctx, inv.InvoiceNumber, testTxHash.Hex())
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, inv.InvoiceNumber, testTxHash.Hex())
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StateSucceeded, result.State)
}

func TestConfirmRejectsWrongRecipient(t *testing.T) {
	stub := &stubChain{
		transfers: []chain.TransferEvent{{
			To:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Value: big.NewInt(150_000_000),
		}},
	}
	svc, inv := setupPayment(t, stub)

	_, err := svc.Confirm(context.Background(), inv.InvoiceNumber, testTxHash.Hex())
	assert.ErrorIs(t, err, chain.ErrPaymentMismatch)
}

func TestConfirmRejectsShortPayment(t *testing.T) {
	stub := &stubChain{
		transfers: []chain.TransferEvent{{
			To:    common.HexToAddress(merchantWallet),
			Value: big.NewInt(149_999_999),
		}},
	}
	svc, inv := setupPayment(t, stub)

	_, err := svc.Confirm(context.Background(), inv.InvoiceNumber, testTxHash.Hex())
	assert.ErrorIs(t, err, chain.ErrPaymentMismatch)
}

func TestConfirmRejectsMalformedHash(t *testing.T) {
	svc, inv := setupPayment(t, &stubChain{})

	_, err := svc.Confirm(context.Background(), inv.InvoiceNumber, "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidTxHash)
}
