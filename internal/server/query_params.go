package server

import (
	"strconv"
	"strings"

	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
)

const maxListLimit = 200

func parseStatusFilter(raw string) (*invoicedomain.InvoiceStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}

	status := invoicedomain.InvoiceStatus(raw)
	switch status {
	case invoicedomain.InvoiceStatusPending,
		invoicedomain.InvoiceStatusPaid,
		invoicedomain.InvoiceStatusOverdue:
		return &status, nil
	default:
		return nil, newValidationError("status", "invalid_status", "status must be pending, paid or overdue")
	}
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func parseSize(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size <= 0 {
		return fallback
	}
	return size
}
