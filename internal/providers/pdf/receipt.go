// Package pdf renders paid-invoice receipts.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
)

type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

var ErrInvoiceNotPaid = fmt.Errorf("receipt requires a paid invoice")

// GenerateReceipt renders a payment receipt for a paid invoice.
func (p *Provider) GenerateReceipt(ctx context.Context, inv invoicedomain.Invoice) (io.Reader, error) {
	if inv.Status != invoicedomain.InvoiceStatusPaid || inv.PaidAt == nil {
		return nil, ErrInvoiceNotPaid
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(30,
		text.NewCol(12, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	amount := fmt.Sprintf("%.2f USDC", inv.Amount())
	datePaid := inv.PaidAt.UTC().Format("Jan 2, 2006")

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+inv.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date paid: "+datePaid, props.Text{Top: 4}),
			text.New("Due date: "+inv.DueDate.UTC().Format("Jan 2, 2006"), props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(inv.MerchantName, props.Text{Style: fontstyle.Bold}),
			text.New("Paid to wallet", props.Text{Top: 6, Size: 8}),
			text.New(inv.MerchantAddress, props.Text{Top: 10, Size: 8}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold}),
			text.New(inv.CustomerName, props.Text{Top: 6}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, amount+" paid on "+datePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	if inv.TransactionHash != "" {
		m.AddRow(12,
			text.NewCol(12, "Transaction: "+inv.TransactionHash, props.Text{Size: 8}),
		)
	}

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "", props.Text{}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(6, "Invoice "+inv.InvoiceNumber, props.Text{Size: 9}),
		text.NewCol(3, "", props.Text{}),
		text.NewCol(3, amount, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, amount, props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
