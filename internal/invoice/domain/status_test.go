package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayStatus(t *testing.T) {
	today := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	paidAt := today.Add(-time.Hour)

	tests := []struct {
		name    string
		invoice Invoice
		want    InvoiceStatus
	}{
		{
			name:    "pending with future due date",
			invoice: Invoice{Status: InvoiceStatusPending, DueDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)},
			want:    InvoiceStatusPending,
		},
		{
			name:    "pending due today is not overdue",
			invoice: Invoice{Status: InvoiceStatusPending, DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
			want:    InvoiceStatusPending,
		},
		{
			name:    "pending due yesterday is overdue",
			invoice: Invoice{Status: InvoiceStatusPending, DueDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
			want:    InvoiceStatusOverdue,
		},
		{
			name:    "comparison uses dates not timestamps",
			invoice: Invoice{Status: InvoiceStatusPending, DueDate: time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)},
			want:    InvoiceStatusPending,
		},
		{
			name:    "paid wins over overdue",
			invoice: Invoice{Status: InvoiceStatusPaid, PaidAt: &paidAt, DueDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
			want:    InvoiceStatusPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayStatus(tt.invoice, today))
		})
	}
}

func TestAmountConversions(t *testing.T) {
	assert.Equal(t, int64(1_500_000), AmountToMicros(1.5))
	assert.Equal(t, int64(10_000), AmountToMicros(0.01))
	assert.Equal(t, int64(123_456_789), AmountToMicros(123.456789))

	inv := Invoice{AmountMicros: 2_500_000}
	assert.InDelta(t, 2.5, inv.Amount(), 1e-9)
}

func TestPaymentLink(t *testing.T) {
	inv := Invoice{InvoiceNumber: "INV-0042"}
	assert.Equal(t, "https://pay.example.com/pay/INV-0042", inv.PaymentLink("https://pay.example.com"))
	assert.Equal(t, "https://pay.example.com/pay/INV-0042", inv.PaymentLink("https://pay.example.com/"))
}
