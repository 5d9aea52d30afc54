package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	TokenTTL            time.Duration
	FinnhubAPIKey       string
	FinnhubBaseURL      string // empty means the public Finnhub endpoint
	QuoteRateLimit      int    // requests per second towards the provider
	QuoteTimeout        time.Duration
	MarketCacheTTL      time.Duration
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	AdminUsername       string // seeded at startup when set together with AdminPassword
	AdminPassword       string
	AdminEmail          string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("QUOTE_RATE_LIMIT", 25)
	v.SetDefault("QUOTE_TIMEOUT", "10s")
	v.SetDefault("MARKET_CACHE_TTL", "10m")

	env := v.GetString("APP_ENV")
	if env == "" {
		env = v.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		FinnhubAPIKey:       v.GetString("FINNHUB_API_KEY"),
		FinnhubBaseURL:      strings.TrimRight(strings.TrimSpace(v.GetString("FINNHUB_BASE_URL")), "/"),
		QuoteRateLimit:      v.GetInt("QUOTE_RATE_LIMIT"),
		QuoteTimeout:        v.GetDuration("QUOTE_TIMEOUT"),
		MarketCacheTTL:      v.GetDuration("MARKET_CACHE_TTL"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		AdminUsername:       strings.TrimSpace(v.GetString("ADMIN_USERNAME")),
		AdminPassword:       v.GetString("ADMIN_PASSWORD"),
		AdminEmail:          strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
	}, nil
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
