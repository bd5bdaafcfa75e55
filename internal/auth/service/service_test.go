package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWallet = "0x9F8e7D6c5B4A39281706F5E4d3C2b1a098765432"

func setupService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Merchant{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	svc := New(ServiceParam{
		Config: config.Config{SessionTTL: 7 * 24 * time.Hour},
		DB:     gdb,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
	})
	return svc, fake
}

func TestSignup(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	merchant, err := svc.Signup(ctx, domain.SignupRequest{
		Email:         "Owner@Acme.Test",
		Password:      "correct-horse",
		DisplayName:   "Acme Studio",
		WalletAddress: testWallet,
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", merchant.Email)
	assert.Equal(t, "Acme Studio", merchant.DisplayName)
	assert.NotEmpty(t, merchant.PasswordHash)
	assert.NotEqual(t, "correct-horse", merchant.PasswordHash)

	_, err = svc.Signup(ctx, domain.SignupRequest{
		Email:         "owner@acme.test",
		Password:      "another-pass",
		WalletAddress: testWallet,
	})
	assert.ErrorIs(t, err, domain.ErrMerchantExists)
}

func TestSignupValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.SignupRequest{Email: "not-an-email", Password: "long-enough", WalletAddress: testWallet})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Signup(ctx, domain.SignupRequest{Email: "a@b.test", Password: "short", WalletAddress: testWallet})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Signup(ctx, domain.SignupRequest{Email: "a@b.test", Password: "long-enough", WalletAddress: "not-an-address"})
	assert.ErrorIs(t, err, domain.ErrInvalidWalletAddress)
}

func TestSignupDefaultsDisplayName(t *testing.T) {
	svc, _ := setupService(t)

	merchant, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:         "studio@acme.test",
		Password:      "long-enough",
		WalletAddress: testWallet,
	})
	require.NoError(t, err)
	assert.Equal(t, "studio", merchant.DisplayName)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, fake := setupService(t)
	ctx := context.Background()

	merchant, err := svc.Signup(ctx, domain.SignupRequest{
		Email:         "owner@acme.test",
		Password:      "correct-horse",
		WalletAddress: testWallet,
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@acme.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, result.Merchant.ID)
	assert.NotEmpty(t, result.RawToken)
	assert.Equal(t, fake.Now().Add(7*24*time.Hour), result.ExpiresAt)

	session, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, session.MerchantID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.SignupRequest{
		Email:         "owner@acme.test",
		Password:      "correct-horse",
		WalletAddress: testWallet,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "owner@acme.test", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "nobody@acme.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateExpiredSession(t *testing.T) {
	svc, fake := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.SignupRequest{
		Email:         "owner@acme.test",
		Password:      "correct-horse",
		WalletAddress: testWallet,
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@acme.test", Password: "correct-horse"})
	require.NoError(t, err)

	fake.Advance(7*24*time.Hour + time.Minute)
	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.SignupRequest{
		Email:         "owner@acme.test",
		Password:      "correct-horse",
		WalletAddress: testWallet,
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@acme.test", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.RawToken))

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)

	assert.ErrorIs(t, svc.Logout(ctx, "bogus-token"), domain.ErrInvalidSession)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("s3cret-passphrase")
	require.NoError(t, err)
	assert.True(t, verifyPassword("s3cret-passphrase", hash))
	assert.False(t, verifyPassword("other", hash))
	assert.False(t, verifyPassword("s3cret-passphrase", "not-a-hash"))
}
