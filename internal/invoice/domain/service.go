package domain

import (
	"context"
	"errors"
	"time"
)

type CreateInvoiceRequest struct {
	CustomerName string  `json:"customerName"`
	Amount       float64 `json:"amount"`
	DueDate      string  `json:"dueDate"` // YYYY-MM-DD
}

type ListInvoiceRequest struct {
	// Status filters by display status; accepts pending, paid and the
	// derived overdue.
	Status *InvoiceStatus
	Limit  int
}

type ListInvoiceResponse struct {
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (Invoice, error)
	// MarkPaid transitions pending → paid, recording paidAt and the
	// transaction hash. The only mutation an invoice ever sees.
	MarkPaid(ctx context.Context, invoiceNumber, txHash string) (Invoice, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
}

var (
	ErrNotFound        = errors.New("invoice_not_found")
	ErrAlreadyPaid     = errors.New("invoice_already_paid")
	ErrInvalidMerchant = errors.New("invalid_merchant")
)

// ParseDueDate parses the YYYY-MM-DD due date used across the API surface.
func ParseDueDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}
