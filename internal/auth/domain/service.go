package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*Merchant, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	CurrentMerchant(ctx context.Context) (*Merchant, error)
	GetMerchant(ctx context.Context, id snowflake.ID) (*Merchant, error)
}

type SignupRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	DisplayName   string `json:"displayName"`
	WalletAddress string `json:"walletAddress"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	Merchant  *Merchant
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
