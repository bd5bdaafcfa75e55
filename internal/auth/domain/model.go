// Package domain contains core types for merchant authentication.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Merchant represents a registered merchant account. The wallet address is
// the chain account invoices are payable to.
type Merchant struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Email         string            `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName   string            `gorm:"type:text;not null" json:"displayName"`
	WalletAddress string            `gorm:"type:text;not null" json:"walletAddress"`
	PasswordHash  string            `gorm:"type:text;not null" json:"-"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"-"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Merchant) TableName() string { return "merchants" }

// Session represents a persisted login session. Only the token hash is
// stored.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	MerchantID       snowflake.ID `gorm:"column:merchant_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
