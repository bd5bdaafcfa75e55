package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/chain"
	currencydomain "github.com/paynehq/payne/internal/currency/domain"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	invoicesvc "github.com/paynehq/payne/internal/invoice/service"
	paymentdomain "github.com/paynehq/payne/internal/payment/domain"
	paymentsvc "github.com/paynehq/payne/internal/payment/service"
	"github.com/paynehq/payne/internal/providers/pdf"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Stage   string            `json:"stage,omitempty"`
	Code    string            `json:"code,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var parseErr *time.ParseError
	if errors.As(err, &parseErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "date",
					Code:    "invalid_date",
					Message: "dates must be YYYY-MM-DD",
				},
			},
		}
	}

	if pErr := asPaymentError(err); pErr != nil {
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_failed",
			Message: pErr.Message,
			Stage:   string(pErr.Stage),
			Code:    string(pErr.Code),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, invoicedomain.ErrInvalidMerchant):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrMerchantExists),
		errors.Is(err, invoicedomain.ErrAlreadyPaid),
		errors.Is(err, pdf.ErrInvoiceNotPaid):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, chain.ErrPaymentMismatch):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "payment_mismatch",
			Message: "transaction does not pay the invoice",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, currencydomain.ErrRateUnavailable),
		errors.Is(err, chain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, invoicedomain.ErrAlreadyPaid):
		return "invoice already paid"
	case errors.Is(err, authdomain.ErrMerchantExists):
		return "merchant already exists"
	case errors.Is(err, pdf.ErrInvoiceNotPaid):
		return "receipt requires a paid invoice"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asPaymentError(err error) *paymentdomain.Error {
	var pErr *paymentdomain.Error
	if errors.As(err, &pErr) && pErr != nil {
		return pErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicesvc.ErrCustomerNameRequired),
		errors.Is(err, invoicesvc.ErrInvalidAmount),
		errors.Is(err, invoicesvc.ErrInvalidDueDate),
		errors.Is(err, authdomain.ErrInvalidWalletAddress),
		errors.Is(err, currencydomain.ErrUnsupportedCurrency),
		errors.Is(err, paymentsvc.ErrInvalidTxHash),
		errors.Is(err, paymentsvc.ErrInvalidMerchantWallet):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, authdomain.ErrMerchantNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, invoicesvc.ErrCustomerNameRequired):
		return "customer_name_required"
	case errors.Is(err, invoicesvc.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, invoicesvc.ErrInvalidDueDate):
		return "invalid_due_date"
	case errors.Is(err, authdomain.ErrInvalidWalletAddress):
		return "invalid_wallet_address"
	case errors.Is(err, currencydomain.ErrUnsupportedCurrency):
		return "unsupported_currency"
	case errors.Is(err, paymentsvc.ErrInvalidTxHash):
		return "invalid_tx_hash"
	case errors.Is(err, paymentsvc.ErrInvalidMerchantWallet):
		return "invalid_merchant_wallet"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "customer_name_required":
		return "customer_name"
	case "invalid_amount":
		return "amount"
	case "invalid_due_date":
		return "due_date"
	case "invalid_wallet_address":
		return "wallet_address"
	case "unsupported_currency":
		return "currency"
	case "invalid_tx_hash":
		return "tx_hash"
	case "invalid_merchant_wallet":
		return "merchant_address"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "customer_name_required":
		return "customer name is required"
	case "invalid_due_date":
		return "due date must be YYYY-MM-DD"
	default:
		return "invalid value"
	}
}
