package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	"github.com/paynehq/payne/internal/merchantctx"
)

// InvoiceResponse is the API shape of an invoice: the stored row plus the
// derived display status and the shareable payment link.
type InvoiceResponse struct {
	invoicedomain.Invoice
	Amount        float64                     `json:"amount"`
	DisplayStatus invoicedomain.InvoiceStatus `json:"displayStatus"`
	PaymentLink   string                      `json:"paymentLink"`
}

func (s *Server) invoiceResponse(inv invoicedomain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		Invoice:       inv,
		Amount:        inv.Amount(),
		DisplayStatus: invoicedomain.DisplayStatus(inv, s.clock.Now()),
		PaymentLink:   inv.PaymentLink(s.cfg.PublicOrigin),
	}
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s.invoiceResponse(inv))
}

func (s *Server) ListInvoices(c *gin.Context) {
	status, err := parseStatusFilter(c.Query("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoices := make([]InvoiceResponse, 0, len(resp.Invoices))
	for _, inv := range resp.Invoices {
		invoices = append(invoices, s.invoiceResponse(inv))
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) GetInvoice(c *gin.Context) {
	inv, ok := s.ownedInvoice(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.invoiceResponse(inv))
}

// InvoiceReceipt streams the PDF receipt for a paid invoice.
func (s *Server) InvoiceReceipt(c *gin.Context) {
	inv, ok := s.ownedInvoice(c)
	if !ok {
		return
	}

	reader, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+inv.InvoiceNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ownedInvoice loads the path invoice and hides it from merchants that do
// not own it.
func (s *Server) ownedInvoice(c *gin.Context) (invoicedomain.Invoice, bool) {
	merchantID, ok := merchantctx.MerchantIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return invoicedomain.Invoice{}, false
	}

	inv, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return invoicedomain.Invoice{}, false
	}
	if inv.MerchantID != merchantID {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return invoicedomain.Invoice{}, false
	}
	return inv, true
}
