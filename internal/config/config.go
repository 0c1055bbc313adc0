/**
 * @description
 * This package handles the configuration management for the ledger service. It uses the
 * Viper library to read configuration from environment variables (and an optional .env
 * file), providing a single Config value that is injected into every component.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 * - github.com/rs/zerolog: Structured warnings for coerced values.
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	StoreDriver                string `mapstructure:"STORE_DRIVER"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	DBMaxConns                 int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns                 int32  `mapstructure:"DB_MIN_CONNS"`
	JWTSecret                  string `mapstructure:"JWT_SECRET"`
	JWTIssuer                  string `mapstructure:"JWT_ISSUER"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	LedgerEventsExchange       string `mapstructure:"LEDGER_EVENTS_EXCHANGE"`
	IdentityEventsExchange     string `mapstructure:"IDENTITY_EVENTS_EXCHANGE"`
	UserEventsQueue            string `mapstructure:"USER_EVENTS_QUEUE"`
	RazorpayKeyID              string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret          string `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayAPIBaseURL         string `mapstructure:"RAZORPAY_API_BASE_URL"`
	CORSAllowedOrigins         string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ViewRateLimitPerMinute     int    `mapstructure:"VIEW_RATE_LIMIT_PER_MINUTE"`
	APIRateLimitPerMinute      int    `mapstructure:"API_RATE_LIMIT_PER_MINUTE"`
	SubscriptionExpirySchedule string `mapstructure:"SUBSCRIPTION_EXPIRY_SCHEDULE"`
	LogLevel                   string `mapstructure:"LOG_LEVEL"`
	LogFormat                  string `mapstructure:"LOG_FORMAT"`
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("DB_MIN_CONNS", 2)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "viewcoin:rate_limit")
	viper.SetDefault("LEDGER_EVENTS_EXCHANGE", "viewcoin.events")
	viper.SetDefault("IDENTITY_EVENTS_EXCHANGE", "viewcoin.identity")
	viper.SetDefault("USER_EVENTS_QUEUE", "ledger-service.user-registered")
	viper.SetDefault("RAZORPAY_API_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("VIEW_RATE_LIMIT_PER_MINUTE", 0)
	viper.SetDefault("API_RATE_LIMIT_PER_MINUTE", 300)
	viper.SetDefault("SUBSCRIPTION_EXPIRY_SCHEDULE", "@every 15m")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("DB_MAX_CONNS")
	_ = viper.BindEnv("DB_MIN_CONNS")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_ISSUER")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("LEDGER_EVENTS_EXCHANGE")
	_ = viper.BindEnv("IDENTITY_EVENTS_EXCHANGE")
	_ = viper.BindEnv("USER_EVENTS_QUEUE")
	_ = viper.BindEnv("RAZORPAY_KEY_ID")
	_ = viper.BindEnv("RAZORPAY_KEY_SECRET")
	_ = viper.BindEnv("RAZORPAY_API_BASE_URL")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("VIEW_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("API_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("SUBSCRIPTION_EXPIRY_SCHEDULE")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("LOG_FORMAT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Str("component", "config").Err(err).Msg("failed to read config file; using environment values")
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	switch config.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return config, fmt.Errorf("unsupported STORE_DRIVER %q", config.StoreDriver)
	}
	if config.StoreDriver == StoreDriverPostgres && strings.TrimSpace(config.DatabaseURL) == "" {
		return config, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
	}

	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	if config.JWTSecret == "" {
		return config, fmt.Errorf("JWT_SECRET is required")
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "viewcoin:rate_limit"
	}
	config.RazorpayAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.RazorpayAPIBaseURL), "/")

	if config.ViewRateLimitPerMinute < 0 {
		log.Warn().Str("component", "config").Int("limit", config.ViewRateLimitPerMinute).Msg("negative view rate limit configured; coercing to zero")
		config.ViewRateLimitPerMinute = 0
	}
	if config.APIRateLimitPerMinute < 0 {
		log.Warn().Str("component", "config").Int("limit", config.APIRateLimitPerMinute).Msg("negative api rate limit configured; coercing to zero")
		config.APIRateLimitPerMinute = 0
	}
	if config.DBMinConns > config.DBMaxConns {
		config.DBMinConns = config.DBMaxConns
	}

	return
}
