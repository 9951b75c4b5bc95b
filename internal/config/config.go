// Package config collects everything the process reads from the
// environment. Values come with development defaults so a bare `go run`
// works against local Mongo; only the provider credentials have no default,
// and their absence is surfaced when a handshake is initiated rather than
// at startup.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the resolved process configuration.
type Config struct {
	Port        string
	AppURL      string // public base URL of this service, used for the OAuth callback
	FrontendURL string // where handshake results redirect to

	MongoURI      string
	MongoDatabase string
	RedisAddr     string // optional; empty means in-process locking only

	ShopifyAPIKey    string
	ShopifyAPISecret string
	ShopifyScopes    string

	SyncPageSize int
	SyncTimeout  time.Duration // overall budget for one sync pass
	HTTPTimeout  time.Duration // per remote call

	DefaultVATRate decimal.Decimal // applied when a member state is missing from the rate table
	TaxConvention  string          // "inclusive" or "exclusive"
}

// Load reads the environment and applies defaults.
func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		AppURL:      getenv("APP_URL", "http://localhost:8080"),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:5173"),

		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGODB_DATABASE", "ioss_reporter"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),

		ShopifyAPIKey:    os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret: os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyScopes:    getenv("SHOPIFY_SCOPES", "read_orders"),

		SyncPageSize: getenvInt("SYNC_PAGE_SIZE", 250),
		SyncTimeout:  getenvDuration("SYNC_TIMEOUT", 3*time.Minute),
		HTTPTimeout:  getenvDuration("HTTP_TIMEOUT", 30*time.Second),

		DefaultVATRate: getenvDecimal("DEFAULT_VAT_RATE", decimal.NewFromInt(21)),
		TaxConvention:  getenv("TAX_CONVENTION", "inclusive"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getenvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}
