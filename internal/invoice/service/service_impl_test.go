package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/clock"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	"github.com/paynehq/payne/internal/merchantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (invoicedomain.Service, *gorm.DB, *clock.FakeClock, authdomain.Merchant) {
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
		WalletAddress: "0x9f8e7d6c5b4a39281706f5e4d3c2b1a098765432",
		PasswordHash:  "x",
	}
	require.NoError(t, gdb.Create(&merchant).Error)

	svc := NewService(ServiceParam{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})
	return svc, gdb, fake, merchant
}

func merchantContext(m authdomain.Merchant) context.Context {
	return merchantctx.WithMerchantID(context.Background(), m.ID)
}

func TestCreateInvoice(t *testing.T) {
	svc, _, _, merchant := setupService(t)
	ctx := merchantContext(merchant)

	inv, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerName: "Jordan Lee",
		Amount:       150.25,
		DueDate:      "2026-04-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, int64(150_250_000), inv.AmountMicros)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, inv.Status)
	assert.Equal(t, merchant.DisplayName, inv.MerchantName)
	assert.Equal(t, merchant.WalletAddress, inv.MerchantAddress)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), inv.DueDate)
}

func TestCreateInvoiceSequence(t *testing.T) {
	svc, _, fake, merchant := setupService(t)
	ctx := merchantContext(merchant)

	want := []string{"INV-0001", "INV-0002", "INV-0003"}
	for _, number := range want {
		inv, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
			CustomerName: "Customer",
			Amount:       10,
			DueDate:      "2026-04-01",
		})
		require.NoError(t, err)
		assert.Equal(t, number, inv.InvoiceNumber)
		fake.Advance(time.Second)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc, _, _, merchant := setupService(t)
	ctx := merchantContext(merchant)

	_, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "  ", Amount: 10, DueDate: "2026-04-01"})
	assert.ErrorIs(t, err, ErrCustomerNameRequired)

	_, err = svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "A", Amount: 0, DueDate: "2026-04-01"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "A", Amount: 10, DueDate: "04/01/2026"})
	assert.ErrorIs(t, err, ErrInvalidDueDate)

	_, err = svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{CustomerName: "A", Amount: 10, DueDate: "2026-04-01"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidMerchant)
}

func TestNextInvoiceNumberIgnoresMalformedSuffix(t *testing.T) {
	svc, gdb, _, merchant := setupService(t)
	ctx := merchantContext(merchant)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&invoicedomain.Invoice{
		ID:            node.Generate(),
		InvoiceNumber: "DRAFT-XYZ",
		CustomerName:  "Legacy",
		AmountMicros:  1_000_000,
		DueDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:        invoicedomain.InvoiceStatusPending,
		MerchantID:    merchant.ID,
		MerchantName:  merchant.DisplayName,
	}).Error)

	number, err := svc.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", number)
}

func TestListFiltersByDisplayStatus(t *testing.T) {
	svc, _, fake, merchant := setupService(t)
	ctx := merchantContext(merchant)

	overdue, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "Late", Amount: 10, DueDate: "2026-03-10"})
	require.NoError(t, err)
	fake.Advance(time.Second)
	pending, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "Current", Amount: 20, DueDate: "2026-03-20"})
	require.NoError(t, err)
	fake.Advance(time.Second)
	paid, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "Settled", Amount: 30, DueDate: "2026-03-10"})
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, paid.InvoiceNumber, "0xabc")
	require.NoError(t, err)

	all, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Invoices, 3)

	statusOf := func(s invoicedomain.InvoiceStatus) *invoicedomain.InvoiceStatus { return &s }

	got, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: statusOf(invoicedomain.InvoiceStatusOverdue)})
	require.NoError(t, err)
	require.Len(t, got.Invoices, 1)
	assert.Equal(t, overdue.InvoiceNumber, got.Invoices[0].InvoiceNumber)

	got, err = svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: statusOf(invoicedomain.InvoiceStatusPending)})
	require.NoError(t, err)
	require.Len(t, got.Invoices, 1)
	assert.Equal(t, pending.InvoiceNumber, got.Invoices[0].InvoiceNumber)

	got, err = svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: statusOf(invoicedomain.InvoiceStatusPaid)})
	require.NoError(t, err)
	require.Len(t, got.Invoices, 1)
	assert.Equal(t, paid.InvoiceNumber, got.Invoices[0].InvoiceNumber)
}

func TestListScopedToMerchant(t *testing.T) {
	svc, gdb, _, merchant := setupService(t)
	ctx := merchantContext(merchant)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	other := authdomain.Merchant{
		ID:            node.Generate(),
		Email:         "other@shop.test",
		DisplayName:   "Other Shop",
		WalletAddress: "0x1111111111111111111111111111111111111111",
		PasswordHash:  "x",
	}
	require.NoError(t, gdb.Create(&other).Error)

	_, err = svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "Mine", Amount: 10, DueDate: "2026-04-01"})
	require.NoError(t, err)
	_, err = svc.Create(merchantContext(other), invoicedomain.CreateInvoiceRequest{CustomerName: "Theirs", Amount: 20, DueDate: "2026-04-01"})
	require.NoError(t, err)

	got, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, got.Invoices, 1)
	assert.Equal(t, "Mine", got.Invoices[0].CustomerName)
}

func TestMarkPaid(t *testing.T) {
	svc, _, fake, merchant := setupService(t)
	ctx := merchantContext(merchant)

	inv, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{CustomerName: "Jordan", Amount: 50, DueDate: "2026-04-01"})
	require.NoError(t, err)

	fake.Advance(time.Hour)
	paid, err := svc.MarkPaid(ctx, inv.InvoiceNumber, "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "0xdeadbeef", paid.TransactionHash)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, fake.Now(), paid.PaidAt.UTC())

	_, err = svc.MarkPaid(ctx, inv.InvoiceNumber, "0xother")
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadyPaid)

	reloaded, err := svc.GetByNumber(ctx, inv.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", reloaded.TransactionHash)
}

func TestMarkPaidNotFound(t *testing.T) {
	svc, _, _, merchant := setupService(t)
	_, err := svc.MarkPaid(merchantContext(merchant), "INV-9999", "0xabc")
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestGetByNumberNotFound(t *testing.T) {
	svc, _, _, _ := setupService(t)
	_, err := svc.GetByNumber(context.Background(), "INV-0404")
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}
