package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
)

// PublicInvoiceResponse is what the payment page sees: enough to render and
// pay the invoice, nothing merchant-internal.
type PublicInvoiceResponse struct {
	InvoiceNumber   string                      `json:"invoiceNumber"`
	CustomerName    string                      `json:"customerName"`
	Amount          float64                     `json:"amount"`
	AmountMicros    int64                       `json:"amountMicros"`
	DueDate         string                      `json:"dueDate"`
	Status          invoicedomain.InvoiceStatus `json:"status"`
	MerchantName    string                      `json:"merchantName"`
	MerchantAddress string                      `json:"merchantAddress"`
	TransactionHash string                      `json:"transactionHash,omitempty"`
	PaidAt          string                      `json:"paidAt,omitempty"`

	Chain ChainInfo           `json:"chain"`
	Local *LocalAmountPreview `json:"local,omitempty"`
}

// ChainInfo tells the wallet what to send where.
type ChainInfo struct {
	ChainID       int64  `json:"chainId"`
	TokenAddress  string `json:"tokenAddress"`
	TokenDecimals int    `json:"tokenDecimals"`
}

// LocalAmountPreview is the indicative amount in the visitor's currency.
type LocalAmountPreview struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

func (s *Server) PublicInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := PublicInvoiceResponse{
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerName:    inv.CustomerName,
		Amount:          inv.Amount(),
		AmountMicros:    inv.AmountMicros,
		DueDate:         inv.DueDate.UTC().Format("2006-01-02"),
		Status:          invoicedomain.DisplayStatus(inv, s.clock.Now()),
		MerchantName:    inv.MerchantName,
		MerchantAddress: inv.MerchantAddress,
		TransactionHash: inv.TransactionHash,
		Chain: ChainInfo{
			ChainID:       s.cfg.Chain.ChainID,
			TokenAddress:  s.cfg.Chain.TokenAddress,
			TokenDecimals: s.cfg.Chain.TokenDecimals,
		},
		Local: s.localAmount(c, inv.Amount()),
	}
	if inv.PaidAt != nil {
		resp.PaidAt = inv.PaidAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	c.JSON(http.StatusOK, resp)
}

// localAmount converts the USDC amount to the visitor's currency. The
// preview is decorative, so any failure just drops it.
func (s *Server) localAmount(c *gin.Context, amount float64) *LocalAmountPreview {
	location := s.geoSvc.Resolve(c.Request.Context(), c.ClientIP())
	if location.Currency == "" || location.Currency == "USD" {
		return nil
	}

	converted, err := s.currencySvc.ConvertFromUSD(c.Request.Context(), amount, location.Currency)
	if err != nil {
		return nil
	}
	return &LocalAmountPreview{Currency: location.Currency, Amount: converted}
}

// PayInvoice settles the invoice from the service's payer account.
func (s *Server) PayInvoice(c *gin.Context) {
	result, err := s.paymentSvc.Pay(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type ConfirmPaymentRequest struct {
	TxHash string `json:"txHash"`
}

// ConfirmPayment verifies a wallet-submitted transaction pays the invoice
// and marks it paid.
func (s *Server) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.TxHash) == "" {
		AbortWithError(c, newValidationError("tx_hash", "required", "transaction hash is required"))
		return
	}

	result, err := s.paymentSvc.Confirm(c.Request.Context(), c.Param("invoiceNumber"), strings.TrimSpace(req.TxHash))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PaymentQR renders the payment link as a PNG QR code.
func (s *Server) PaymentQR(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("invoiceNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	png, err := s.qrProvider.PaymentLinkPNG(inv.PaymentLink(s.cfg.PublicOrigin), parseSize(c.Query("size"), 0))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
