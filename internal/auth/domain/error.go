package domain

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	ErrMerchantExists       = errors.New("merchant already exists")
	ErrMerchantNotFound     = errors.New("merchant not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrSessionRevoked       = errors.New("session revoked")
	ErrInvalidSession       = errors.New("invalid session")
)
