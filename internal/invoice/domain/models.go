// Package domain contains persistence models and core rules for invoicing.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents stored invoice lifecycle states. Overdue is
// derived from the due date at read time and never persisted.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"

	// InvoiceStatusOverdue only ever appears as a display status.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// USDCDecimals is the token precision: 1 USDC = 10^6 base units.
const USDCDecimals = 6

// Invoice is a request for payment of a fixed USDC amount.
type Invoice struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string            `gorm:"type:text;not null;uniqueIndex" json:"invoiceNumber"`
	CustomerName    string            `gorm:"type:text;not null" json:"customerName"`
	AmountMicros    int64             `gorm:"not null" json:"amountMicros"`
	DueDate         time.Time         `gorm:"not null" json:"dueDate"`
	Status          InvoiceStatus     `gorm:"type:text;not null;default:'pending'" json:"status"`
	PaidAt          *time.Time        `gorm:"" json:"paidAt,omitempty"`
	MerchantID      snowflake.ID      `gorm:"not null;index" json:"merchantId"`
	MerchantName    string            `gorm:"type:text;not null" json:"merchantName"`
	MerchantAddress string            `gorm:"type:text;not null" json:"merchantAddress"`
	TransactionHash string            `gorm:"type:text" json:"transactionHash,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"-"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Amount returns the invoice amount in whole USDC.
func (i Invoice) Amount() float64 {
	return float64(i.AmountMicros) / 1e6
}

// PaymentLink returns the public payment URL for this invoice.
func (i Invoice) PaymentLink(origin string) string {
	return fmt.Sprintf("%s/pay/%s", strings.TrimRight(origin, "/"), i.InvoiceNumber)
}

// AmountToMicros converts a whole-USDC amount to base units, rounding to the
// nearest micro.
func AmountToMicros(amount float64) int64 {
	if amount < 0 {
		return 0
	}
	return int64(amount*1e6 + 0.5)
}
