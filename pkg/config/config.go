// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Policy    PolicyConfig
	Fees      FeeConfig
	Providers []ProviderConfig
	Retention RetentionConfig
	Alerts    AlertConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// PolicyConfig holds the tier escalation thresholds in USD-normalized
// amounts. Transactions below BasicMax require basic verification,
// amounts in [BasicMax, EnhancedMin) require advanced, and amounts at or
// above EnhancedMin require enhanced verification.
type PolicyConfig struct {
	BasicMax    decimal.Decimal
	EnhancedMin decimal.Decimal
}

// FeeConfig holds the fee schedule and the regulator-derived ceilings,
// all in integer basis points.
type FeeConfig struct {
	MarketplaceBp    int64
	DefaultRoyaltyBp int64
	PlatformBp       int64
	GasEstimateBp    int64

	MaxMarketplaceBp int64
	MaxRoyaltyBp     int64
	MaxPlatformBp    int64
	MaxGasBp         int64
	MaxTotalBp       int64

	// MarketplaceAdvisoryBp is the soft threshold above which the fee
	// review emits a competitiveness recommendation.
	MarketplaceAdvisoryBp int64
}

// ProviderConfig describes one identity verification provider in the
// gateway's ordered fallback chain.
type ProviderConfig struct {
	Name      string
	URL       string
	APIKey    string
	Timeout   time.Duration
	Certified bool
}

type RetentionConfig struct {
	// Window is the minimum period a transaction report stays queryable
	// before it becomes eligible for purge.
	Window time.Duration
	// SweepInterval enables the optional background retention sweep when
	// non-zero. Purging remains an explicit monitor operation.
	SweepInterval time.Duration
}

type AlertConfig struct {
	Enabled   bool
	SMTPHost  string
	SMTPPort  int
	Username  string
	Password  string
	From      string
	Recipient string
	UseTLS    bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "3005"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Policy: PolicyConfig{
			BasicMax:    getEnvDecimal("KYC_BASIC_MAX_USD", "500"),
			EnhancedMin: getEnvDecimal("KYC_ENHANCED_MIN_USD", "3000"),
		},
		Fees: FeeConfig{
			MarketplaceBp:    getEnvInt64("FEE_MARKETPLACE_BP", 300),
			DefaultRoyaltyBp: getEnvInt64("FEE_DEFAULT_ROYALTY_BP", 250),
			PlatformBp:       getEnvInt64("FEE_PLATFORM_BP", 100),
			GasEstimateBp:    getEnvInt64("FEE_GAS_ESTIMATE_BP", 50),

			MaxMarketplaceBp: getEnvInt64("FEE_MAX_MARKETPLACE_BP", 300),
			MaxRoyaltyBp:     getEnvInt64("FEE_MAX_ROYALTY_BP", 1000),
			MaxPlatformBp:    getEnvInt64("FEE_MAX_PLATFORM_BP", 200),
			MaxGasBp:         getEnvInt64("FEE_MAX_GAS_BP", 100),
			MaxTotalBp:       getEnvInt64("FEE_MAX_TOTAL_BP", 1300),

			MarketplaceAdvisoryBp: getEnvInt64("FEE_MARKETPLACE_ADVISORY_BP", 200),
		},
		Providers: loadProviders(),
		Retention: RetentionConfig{
			Window:        getEnvDuration("RETENTION_WINDOW", 5*365*24*time.Hour),
			SweepInterval: getEnvDuration("RETENTION_SWEEP_INTERVAL", 0),
		},
		Alerts: AlertConfig{
			Enabled:   getEnvBool("ALERTS_ENABLED", false),
			SMTPHost:  getEnv("ALERTS_SMTP_HOST", ""),
			SMTPPort:  getEnvInt("ALERTS_SMTP_PORT", 587),
			Username:  getEnv("ALERTS_SMTP_USERNAME", ""),
			Password:  getEnv("ALERTS_SMTP_PASSWORD", ""),
			From:      getEnv("ALERTS_FROM", ""),
			Recipient: getEnv("ALERTS_RECIPIENT", ""),
			UseTLS:    getEnvBool("ALERTS_SMTP_TLS", true),
		},
	}
}

// loadProviders reads the ordered provider chain. VERIFY_PROVIDERS is a
// comma-separated list of names; each name has its own VERIFY_<NAME>_*
// variables. Order in the list is fallback order.
func loadProviders() []ProviderConfig {
	names := strings.Split(getEnv("VERIFY_PROVIDERS", "static"), ",")
	providers := make([]ProviderConfig, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		prefix := "VERIFY_" + strings.ToUpper(name)
		providers = append(providers, ProviderConfig{
			Name:      name,
			URL:       getEnv(prefix+"_URL", ""),
			APIKey:    getEnv(prefix+"_API_KEY", ""),
			Timeout:   getEnvDuration(prefix+"_TIMEOUT", 10*time.Second),
			Certified: getEnvBool(prefix+"_CERTIFIED", false),
		})
	}
	return providers
}

// Helpers

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(def)
	return d
}
