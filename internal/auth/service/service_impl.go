package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/paynehq/payne/internal/merchantctx"
	"github.com/paynehq/payne/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	sessionTokenBytes = 32

	minPasswordLength = 8
)

type ServiceParam struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
}

type Service struct {
	cfg   config.Config
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	merchants repository.Repository[domain.Merchant]
	sessions  repository.Repository[domain.Session]
}

func New(p ServiceParam) domain.Service {
	return &Service{
		cfg:   p.Config,
		log:   p.Log.Named("auth.service"),
		genID: p.GenID,
		clock: p.Clock,

		merchants: repository.ProvideStore[domain.Merchant](p.DB),
		sessions:  repository.ProvideStore[domain.Session](p.DB),
	}
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Merchant, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}

	wallet := strings.TrimSpace(req.WalletAddress)
	if !common.IsHexAddress(wallet) {
		return nil, domain.ErrInvalidWalletAddress
	}
	wallet = common.HexToAddress(wallet).Hex()

	existing, err := s.merchants.FindOne(ctx, &domain.Merchant{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrMerchantExists
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}

	now := s.clock.Now()
	merchant := &domain.Merchant{
		ID:            s.genID.Generate(),
		Email:         email,
		DisplayName:   displayName,
		WalletAddress: wallet,
		PasswordHash:  hashed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.merchants.Create(ctx, merchant); err != nil {
		return nil, err
	}

	s.log.Info("merchant signed up", zap.String("merchant_id", merchant.ID.String()))
	return merchant, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	merchant, err := s.merchants.FindOne(ctx, &domain.Merchant{Email: email})
	if err != nil {
		return nil, err
	}
	if merchant == nil || !verifyPassword(req.Password, merchant.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		MerchantID:       merchant.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(s.cfg.SessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		Merchant:  merchant,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessions.FindOne(ctx, &domain.Session{SessionTokenHash: hashToken(token)})
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrInvalidSession
	}

	now := s.clock.Now()
	return s.sessions.Update(ctx, session.ID.String(), map[string]any{
		"revoked_at": now,
	})
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.FindOne(ctx, &domain.Session{SessionTokenHash: hashToken(token)})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrInvalidSession
	}

	now := s.clock.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	if err := s.sessions.Update(ctx, session.ID.String(), map[string]any{
		"last_seen_at": now,
	}); err != nil {
		return nil, err
	}
	session.LastSeenAt = now

	return session, nil
}

func (s *Service) CurrentMerchant(ctx context.Context) (*domain.Merchant, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return s.GetMerchant(ctx, merchantID)
}

func (s *Service) GetMerchant(ctx context.Context, id snowflake.ID) (*domain.Merchant, error) {
	merchant, err := s.merchants.FindOne(ctx, &domain.Merchant{ID: id})
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrMerchantNotFound
	}
	return merchant, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", argonMemory, argonTime, argonThreads, saltB64, hashB64), nil
}

func verifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var memory uint32
	var timeCost uint32
	var threads uint8
	{
		params := strings.Split(parts[3], ",")
		if len(params) != 3 {
			return false
		}

		m, ok := strings.CutPrefix(params[0], "m=")
		if !ok {
			return false
		}
		t, ok := strings.CutPrefix(params[1], "t=")
		if !ok {
			return false
		}
		p, ok := strings.CutPrefix(params[2], "p=")
		if !ok {
			return false
		}

		m64, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			return false
		}
		t64, err := strconv.ParseUint(t, 10, 32)
		if err != nil {
			return false
		}
		p64, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return false
		}

		memory = uint32(m64)
		timeCost = uint32(t64)
		threads = uint8(p64)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	check := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}
