// Package domain computes revenue summaries over a merchant's invoices.
package domain

import (
	"math"
	"sort"
	"time"

	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
)

const topCustomerLimit = 5

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

type StatusDistribution struct {
	Paid    int `json:"paid"`
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}

type CustomerRevenue struct {
	CustomerName string  `json:"customerName"`
	Revenue      float64 `json:"revenue"`
	InvoiceCount int     `json:"invoiceCount"`
}

type PeriodComparison struct {
	CurrentRevenue  float64   `json:"currentRevenue"`
	PreviousRevenue float64   `json:"previousRevenue"`
	PercentChange   float64   `json:"percentChange"`
	Direction       Direction `json:"direction"`
}

type Summary struct {
	TotalRevenue        float64            `json:"totalRevenue"`
	PaidCount           int                `json:"paidCount"`
	PendingRevenue      float64            `json:"pendingRevenue"`
	AverageInvoiceValue float64            `json:"averageInvoiceValue"`
	StatusDistribution  StatusDistribution `json:"statusDistribution"`
	TopCustomers        []CustomerRevenue  `json:"topCustomers"`
	PeriodComparison    *PeriodComparison  `json:"periodComparison,omitempty"`
}

// Summarize computes the dashboard summary over the given invoices.
// TotalRevenue, PaidCount and TopCustomers consider paid invoices whose
// PaidAt falls in [start, end]. PendingRevenue and the pending/overdue
// distribution cover the whole set regardless of range, and so does the paid
// count in the distribution. That asymmetry matches the dashboard this
// replaced and is locked in by tests.
func Summarize(invoices []invoicedomain.Invoice, start, end, now time.Time) Summary {
	var s Summary

	byCustomer := map[string]*CustomerRevenue{}
	var customerOrder []string

	for _, inv := range invoices {
		switch invoicedomain.DisplayStatus(inv, now) {
		case invoicedomain.InvoiceStatusPaid:
			s.StatusDistribution.Paid++
		case invoicedomain.InvoiceStatusOverdue:
			s.StatusDistribution.Overdue++
			s.PendingRevenue += inv.Amount()
		default:
			s.StatusDistribution.Pending++
			s.PendingRevenue += inv.Amount()
		}

		if !paidInRange(inv, start, end) {
			continue
		}
		s.TotalRevenue += inv.Amount()
		s.PaidCount++

		entry, ok := byCustomer[inv.CustomerName]
		if !ok {
			entry = &CustomerRevenue{CustomerName: inv.CustomerName}
			byCustomer[inv.CustomerName] = entry
			customerOrder = append(customerOrder, inv.CustomerName)
		}
		entry.Revenue += inv.Amount()
		entry.InvoiceCount++
	}

	if s.PaidCount > 0 {
		s.AverageInvoiceValue = s.TotalRevenue / float64(s.PaidCount)
	}

	s.TopCustomers = topCustomers(byCustomer, customerOrder)
	return s
}

// RevenueInRange sums paid invoices whose PaidAt falls in [start, end].
func RevenueInRange(invoices []invoicedomain.Invoice, start, end time.Time) float64 {
	var total float64
	for _, inv := range invoices {
		if paidInRange(inv, start, end) {
			total += inv.Amount()
		}
	}
	return total
}

// ComparePeriods reports current revenue against the previous window.
// Percent change is |delta| / previous * 100, rounded; a previous of zero
// with any current revenue reads as a 100% increase.
func ComparePeriods(current, previous float64) PeriodComparison {
	cmp := PeriodComparison{CurrentRevenue: current, PreviousRevenue: previous}
	switch {
	case previous == 0 && current == 0:
		cmp.PercentChange = 0
		cmp.Direction = DirectionFlat
	case previous == 0:
		cmp.PercentChange = 100
		cmp.Direction = DirectionUp
	default:
		cmp.PercentChange = math.Round(math.Abs(current-previous) / previous * 100)
		switch {
		case current > previous:
			cmp.Direction = DirectionUp
		case current < previous:
			cmp.Direction = DirectionDown
		default:
			cmp.Direction = DirectionFlat
		}
	}
	return cmp
}

func paidInRange(inv invoicedomain.Invoice, start, end time.Time) bool {
	if inv.Status != invoicedomain.InvoiceStatusPaid || inv.PaidAt == nil {
		return false
	}
	paidAt := inv.PaidAt.UTC()
	return !paidAt.Before(start) && !paidAt.After(end)
}

// topCustomers sorts descending by revenue, breaking ties by first
// appearance in the invoice list.
func topCustomers(byCustomer map[string]*CustomerRevenue, order []string) []CustomerRevenue {
	firstSeen := make(map[string]int, len(order))
	for i, name := range order {
		firstSeen[name] = i
	}

	out := make([]CustomerRevenue, 0, len(order))
	for _, name := range order {
		out = append(out, *byCustomer[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return firstSeen[out[i].CustomerName] < firstSeen[out[j].CustomerName]
	})

	if len(out) > topCustomerLimit {
		out = out[:topCustomerLimit]
	}
	return out
}
