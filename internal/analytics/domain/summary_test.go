package domain

import (
	"testing"
	"time"

	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
)

var (
	now   = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	start = now.Add(-30 * 24 * time.Hour)
)

func paid(customer string, amount float64, paidAt time.Time) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		CustomerName: customer,
		AmountMicros: invoicedomain.AmountToMicros(amount),
		Status:       invoicedomain.InvoiceStatusPaid,
		PaidAt:       &paidAt,
		DueDate:      paidAt,
	}
}

func pending(customer string, amount float64, dueDate time.Time) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		CustomerName: customer,
		AmountMicros: invoicedomain.AmountToMicros(amount),
		Status:       invoicedomain.InvoiceStatusPending,
		DueDate:      dueDate,
	}
}

func TestSummarizeRevenue(t *testing.T) {
	invoices := []invoicedomain.Invoice{
		paid("Alpha", 100, now.Add(-24*time.Hour)),
		paid("Beta", 50, now.Add(-48*time.Hour)),
		paid("Alpha", 25, start.Add(-time.Hour)), // before the window
		pending("Gamma", 40, now.Add(72*time.Hour)),
		pending("Delta", 10, now.Add(-72*time.Hour)), // overdue
	}

	s := Summarize(invoices, start, now, now)

	assert.InDelta(t, 150.0, s.TotalRevenue, 1e-9)
	assert.Equal(t, 2, s.PaidCount)
	assert.InDelta(t, 75.0, s.AverageInvoiceValue, 1e-9)
	assert.InDelta(t, 50.0, s.PendingRevenue, 1e-9)
}

// The paid slice of the distribution counts every paid invoice, while
// revenue respects the range. Matches the dashboard behaviour this service
// replaced; do not "fix" one side without the other.
func TestSummarizeDistributionIgnoresRangeForPaid(t *testing.T) {
	invoices := []invoicedomain.Invoice{
		paid("Alpha", 100, now.Add(-24*time.Hour)),
		paid("Beta", 25, start.Add(-30*24*time.Hour)), // far before the window
		pending("Gamma", 40, now.Add(72*time.Hour)),
		pending("Delta", 10, now.Add(-72*time.Hour)),
	}

	s := Summarize(invoices, start, now, now)

	assert.Equal(t, StatusDistribution{Paid: 2, Pending: 1, Overdue: 1}, s.StatusDistribution)
	assert.InDelta(t, 100.0, s.TotalRevenue, 1e-9)
	assert.Equal(t, 1, s.PaidCount)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, start, now, now)
	assert.Zero(t, s.TotalRevenue)
	assert.Zero(t, s.PaidCount)
	assert.Zero(t, s.AverageInvoiceValue)
	assert.Empty(t, s.TopCustomers)
}

func TestTopCustomers(t *testing.T) {
	invoices := []invoicedomain.Invoice{
		paid("A", 10, now.Add(-time.Hour)),
		paid("B", 30, now.Add(-time.Hour)),
		paid("C", 20, now.Add(-time.Hour)),
		paid("D", 20, now.Add(-time.Hour)), // ties with C, C seen first
		paid("E", 5, now.Add(-time.Hour)),
		paid("F", 1, now.Add(-time.Hour)),
		paid("A", 25, now.Add(-2*time.Hour)),
	}

	s := Summarize(invoices, start, now, now)

	names := make([]string, 0, len(s.TopCustomers))
	for _, c := range s.TopCustomers {
		names = append(names, c.CustomerName)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names)
	assert.InDelta(t, 35.0, s.TopCustomers[0].Revenue, 1e-9)
	assert.Equal(t, 2, s.TopCustomers[0].InvoiceCount)
}

func TestComparePeriods(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		previous  float64
		percent   float64
		direction Direction
	}{
		{"growth", 150, 100, 50, DirectionUp},
		{"decline", 50, 100, 50, DirectionDown},
		{"flat", 100, 100, 0, DirectionFlat},
		{"from zero", 80, 0, 100, DirectionUp},
		{"both zero", 0, 0, 0, DirectionFlat},
		{"rounds", 100, 30, 233, DirectionUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := ComparePeriods(tt.current, tt.previous)
			assert.Equal(t, tt.percent, cmp.PercentChange)
			assert.Equal(t, tt.direction, cmp.Direction)
		})
	}
}
