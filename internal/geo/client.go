// Package geo resolves a visitor's country and display currency from their
// IP address.
package geo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/paynehq/payne/internal/config"
	"go.uber.org/zap"
)

// ipAPIFields selects status, message, country, countryCode, currency and
// query from the ip-api response.
const ipAPIFields = "8413187"

const lookupTimeout = 5 * time.Second

// Location is a resolved visitor location.
type Location struct {
	IP          string `json:"ip"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Currency    string `json:"currency"`
}

// Lookuper answers IP geolocation queries.
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Currency    string `json:"currency"`
	Query       string `json:"query"`
}

// IPAPIClient queries the ip-api.com JSON endpoint.
type IPAPIClient struct {
	http    *resty.Client
	baseURL string
	log     *zap.Logger
}

func NewIPAPIClient(cfg config.Config, log *zap.Logger) *IPAPIClient {
	return &IPAPIClient{
		http: resty.New().
			SetTimeout(lookupTimeout).
			SetHeader("User-Agent", "Payne App/1.0"),
		baseURL: strings.TrimRight(cfg.Rates.GeoBaseURL, "/"),
		log:     log.Named("geo.ipapi"),
	}
}

func (c *IPAPIClient) Lookup(ctx context.Context, ip string) (Location, error) {
	var out ipAPIResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("fields", ipAPIFields).
		SetResult(&out).
		Get(fmt.Sprintf("%s/%s", c.baseURL, ip))
	if err != nil {
		return Location{}, err
	}
	if resp.IsError() {
		return Location{}, fmt.Errorf("geo lookup: status %d", resp.StatusCode())
	}
	if out.Status != "success" {
		return Location{}, fmt.Errorf("geo lookup: %s", out.Message)
	}
	return Location{
		IP:          out.Query,
		Country:     out.Country,
		CountryCode: strings.ToUpper(out.CountryCode),
		Currency:    strings.ToUpper(out.Currency),
	}, nil
}

// normalizeIP maps loopback and private addresses to a public resolver IP
// so local development still yields a plausible location.
func normalizeIP(ip string) string {
	trimmed := strings.TrimSpace(ip)
	parsed := net.ParseIP(trimmed)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "8.8.8.8"
	}
	return trimmed
}
