package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CurrencyConfig lists the display currencies offered to visitors and the
// country fallbacks used when geolocation does not return a currency.
type CurrencyConfig struct {
	Supported       []string          `mapstructure:"supported"`
	CountryFallback map[string]string `mapstructure:"countryFallback"`
}

func DefaultCurrencyConfig() CurrencyConfig {
	return CurrencyConfig{
		Supported: []string{
			"USD", "EUR", "GBP", "NGN", "KES", "UGX", "TZS", "GHS", "ZAR",
			"INR", "BRL", "MXN", "PHP", "IDR", "VND", "JPY", "CNY", "CAD", "AUD",
		},
		CountryFallback: map[string]string{
			"US": "USD", "GB": "GBP", "NG": "NGN", "KE": "KES", "UG": "UGX",
			"TZ": "TZS", "GH": "GHS", "ZA": "ZAR", "IN": "INR", "BR": "BRL",
			"MX": "MXN", "PH": "PHP", "ID": "IDR", "VN": "VND", "JP": "JPY",
			"CN": "CNY", "CA": "CAD", "AU": "AUD", "DE": "EUR", "FR": "EUR",
			"ES": "EUR", "IT": "EUR", "NL": "EUR", "PT": "EUR", "IE": "EUR",
		},
	}
}

// CurrencyConfigHolder serves the active currency config and hot-reloads it
// when the backing file changes.
type CurrencyConfigHolder struct {
	current atomic.Value // holds CurrencyConfig
}

func NewCurrencyConfigHolder() (*CurrencyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("currency")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/payne/config")
	v.AddConfigPath("/etc/payne")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultCurrencyConfig()
		v.SetDefault("currency.supported", defaults.Supported)
		v.SetDefault("currency.countryFallback", defaults.CountryFallback)
	}

	var cfg CurrencyConfig
	if err := v.UnmarshalKey("currency", &cfg); err != nil {
		return nil, err
	}
	if err := validateCurrencyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CurrencyConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CurrencyConfig
		if err := v.UnmarshalKey("currency", &updated); err != nil {
			log.Printf("[currency-config] reload failed: %v", err)
			return
		}
		if err := validateCurrencyConfig(updated); err != nil {
			log.Printf("[currency-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[currency-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCurrencyConfigHolder wraps a fixed config, without file watching.
func NewStaticCurrencyConfigHolder(cfg CurrencyConfig) *CurrencyConfigHolder {
	holder := &CurrencyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CurrencyConfigHolder) Get() CurrencyConfig {
	return h.current.Load().(CurrencyConfig)
}

// Supports reports whether code is an offered display currency.
func (h *CurrencyConfigHolder) Supports(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range h.Get().Supported {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

func validateCurrencyConfig(cfg CurrencyConfig) error {
	if len(cfg.Supported) == 0 {
		return errors.New("currency.supported cannot be empty")
	}
	for _, c := range cfg.Supported {
		if strings.TrimSpace(c) == "" {
			return errors.New("currency.supported contains an empty code")
		}
	}
	return nil
}
