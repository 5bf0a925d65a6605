package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is assembled once at process start and passed explicitly to every component.
type Config struct {
	Env string

	Trendyol TrendyolConfig
	DB       DatabaseConfig
	Redis    RedisConfig
	Sync     SyncConfig
}

// TrendyolConfig contains credentials and endpoint settings for the Trendyol
// integration API.
type TrendyolConfig struct {
	SellerID          int64
	APIKey            string
	APISecret         string
	APIToken          string // base64(apiKey:apiSecret) unless provided explicitly
	BaseURL           string
	UserAgent         string
	StoreFrontCode    string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side pacing
}

// DatabaseConfig contains PostgreSQL connection parameters. URL takes
// precedence over the discrete fields when set.
type DatabaseConfig struct {
	URL         string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
	Migrations  string
}

// RedisConfig contains Redis connection parameters. Redis is optional; an
// empty Host disables the run lock and the last-run summary.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// SyncConfig holds the defaults for the sync command-line flags.
type SyncConfig struct {
	ProductPageSize          int
	ProductMaxPages          int
	ShipmentPageSize         int
	ShipmentMaxPages         int
	ShipmentLookbackHours    int
	ShipmentStatus           string
	ShipmentOrderByField     string
	ShipmentOrderByDirection string
	LockTTL                  time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Missing .env is fine; production relies on real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Env = getEnv("ENV", "development")

	// Trendyol
	rawSellerID := strings.TrimSpace(os.Getenv("TRENDYOL_SELLER_ID"))
	if rawSellerID == "" {
		return nil, errors.New("missing required environment variable: TRENDYOL_SELLER_ID")
	}
	sellerID, err := strconv.ParseInt(rawSellerID, 10, 64)
	if err != nil || sellerID <= 0 {
		return nil, fmt.Errorf("invalid TRENDYOL_SELLER_ID %q: must be a positive integer", rawSellerID)
	}

	cfg.Trendyol = TrendyolConfig{
		SellerID:       sellerID,
		APIKey:         getEnv("TRENDYOL_API_KEY", ""),
		APISecret:      getEnv("TRENDYOL_API_SECRET", ""),
		APIToken:       getEnv("TRENDYOL_API_TOKEN", ""),
		BaseURL:        strings.TrimRight(getEnv("TRENDYOL_BASE_URL", "https://apigw.trendyol.com"), "/"),
		UserAgent:      getEnv("TRENDYOL_USER_AGENT", fmt.Sprintf("%d - SelfIntegration", sellerID)),
		StoreFrontCode: getEnv("TRENDYOL_STOREFRONT_CODE", "SA"),
	}
	if cfg.Trendyol.APIToken == "" {
		if cfg.Trendyol.APIKey == "" || cfg.Trendyol.APISecret == "" {
			return nil, errors.New("trendyol credentials incomplete: set TRENDYOL_API_KEY and TRENDYOL_API_SECRET (or TRENDYOL_API_TOKEN)")
		}
		cfg.Trendyol.APIToken = BasicToken(cfg.Trendyol.APIKey, cfg.Trendyol.APISecret)
	}
	if cfg.Trendyol.Timeout, err = parseDurationEnv("TRENDYOL_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid TRENDYOL_TIMEOUT: %w", err)
	}
	if cfg.Trendyol.RequestsPerSecond, err = parseFloatEnv("TRENDYOL_REQUESTS_PER_SECOND", 0); err != nil {
		return nil, fmt.Errorf("invalid TRENDYOL_REQUESTS_PER_SECOND: %w", err)
	}

	// Database
	cfg.DB = DatabaseConfig{
		URL:         getEnv("DATABASE_URL", ""),
		Host:        getEnv("DB_HOST", ""),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", ""),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", ""),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),
		Migrations:  getEnv("DB_MIGRATIONS_SOURCE", "file://migrations"),
	}
	if cfg.DB.URL == "" && (cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "") {
		return nil, errors.New("database configuration incomplete: set DATABASE_URL or DB_HOST, DB_USER and DB_NAME")
	}

	// Redis (optional)
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Sync flag defaults
	cfg.Sync = SyncConfig{
		ProductPageSize:          getEnvInt("TRENDYOL_PAGE_SIZE", 100),
		ProductMaxPages:          getEnvInt("TRENDYOL_MAX_PAGES", 10),
		ShipmentPageSize:         getEnvInt("TRENDYOL_SHIPMENT_PAGE_SIZE", 200),
		ShipmentMaxPages:         getEnvInt("TRENDYOL_SHIPMENT_MAX_PAGES", 20),
		ShipmentLookbackHours:    getEnvInt("TRENDYOL_SHIPMENT_LOOKBACK_HOURS", 24),
		ShipmentStatus:           getEnv("TRENDYOL_SHIPMENT_PACKAGE_STATUS", ""),
		ShipmentOrderByField:     getEnv("TRENDYOL_ORDER_BY_FIELD", "PackageLastModifiedDate"),
		ShipmentOrderByDirection: strings.ToUpper(getEnv("TRENDYOL_ORDER_BY_DIRECTION", "DESC")),
	}
	if cfg.Sync.LockTTL, err = parseDurationEnv("SYNC_LOCK_TTL", "30m"); err != nil {
		return nil, fmt.Errorf("invalid SYNC_LOCK_TTL: %w", err)
	}

	return cfg, nil
}

// BasicToken builds the HTTP Basic credential for the Trendyol API.
func BasicToken(apiKey, apiSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(apiKey + ":" + apiSecret))
}

// DSN returns the PostgreSQL connection string for the configuration.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// getEnv returns the trimmed value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseFloatEnv(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("must be >= 0")
	}
	return f, nil
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
