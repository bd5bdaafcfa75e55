// Package config loads application configuration from the environment.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"os"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	PublicOrigin     string
	AuthCookieSecure bool
	SessionTTL       time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Chain ChainConfig
	Rates RatesConfig
}

// ChainConfig holds the EVM chain and token settings.
type ChainConfig struct {
	RPCURL            string
	ChainID           int64
	TokenAddress      string
	TokenDecimals     int
	PayerPrivateKey   string
	ReceiptTimeout    time.Duration
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
}

// RatesConfig holds the external rate and geolocation endpoints.
type RatesConfig struct {
	ExchangeRateAPIKey  string
	ExchangeRateBaseURL string
	USDCPriceURL        string
	GeoBaseURL          string
	CacheTTL            time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:          getenv("APP_SERVICE", "payne"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		PublicOrigin:     strings.TrimRight(getenv("PUBLIC_ORIGIN", "http://localhost:3000"), "/"),
		AuthCookieSecure: authCookieSecure,
		SessionTTL:       getenvDuration("SESSION_TTL", 7*24*time.Hour),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "payne"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Chain: ChainConfig{
			RPCURL:            getenv("CHAIN_RPC_URL", ""),
			ChainID:           getenvInt64("CHAIN_ID", 84532),
			TokenAddress:      getenv("USDC_TOKEN_ADDRESS", "0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
			TokenDecimals:     getenvInt("USDC_TOKEN_DECIMALS", 6),
			PayerPrivateKey:   strings.TrimSpace(getenv("PAYER_PRIVATE_KEY", "")),
			ReceiptTimeout:    getenvDuration("CHAIN_RECEIPT_TIMEOUT", 2*time.Minute),
			ReconcileEnabled:  getenvBool("CHAIN_RECONCILE_ENABLED", true),
			ReconcileInterval: getenvDuration("CHAIN_RECONCILE_INTERVAL", time.Minute),
		},

		Rates: RatesConfig{
			ExchangeRateAPIKey:  strings.TrimSpace(getenv("EXCHANGE_RATE_API_KEY", "")),
			ExchangeRateBaseURL: getenv("EXCHANGE_RATE_BASE_URL", "https://v6.exchangerate-api.com/v6"),
			USDCPriceURL:        getenv("USDC_PRICE_URL", "https://api.coingecko.com/api/v3/simple/price?ids=usd-coin&vs_currencies=usd"),
			GeoBaseURL:          getenv("GEO_BASE_URL", "http://ip-api.com/json"),
			CacheTTL:            getenvDuration("RATE_CACHE_TTL", time.Hour),
		},
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCurrencyConfigHolder),
)

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
