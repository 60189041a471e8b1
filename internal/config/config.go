/**
 * @description
 * Configuration management for the wallet-service and the bank simulator. Values are read
 * with Viper from an optional .env file and the process environment, then normalised so the
 * rest of the service can rely on sane, non-empty settings.
 *
 * @dependencies
 * - github.com/spf13/viper: Configuration loading and environment binding.
 */

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	BankModeEmbedded = "embedded"
	BankModeRemote   = "remote"
)

// Config holds all the configuration variables for the wallet-service.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	StoreDriver              string `mapstructure:"STORE_DRIVER"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix           string `mapstructure:"REDIS_KEY_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	EventsExchange           string `mapstructure:"EVENTS_EXCHANGE"`
	UserEventsQueue          string `mapstructure:"USER_EVENTS_QUEUE"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	InternalAPIKey           string `mapstructure:"INTERNAL_API_KEY"`
	CORSAllowedOrigins       string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	DefaultCurrency          string `mapstructure:"DEFAULT_CURRENCY"`
	PaymentHandleDomain      string `mapstructure:"PAYMENT_HANDLE_DOMAIN"`
	PINMaxAttempts           int    `mapstructure:"PIN_MAX_ATTEMPTS"`
	PINLockoutSeconds        int    `mapstructure:"PIN_LOCKOUT_SECONDS"`
	IdempotencyTTLMinutes    int    `mapstructure:"IDEMPOTENCY_TTL_MINUTES"`
	BankMode                 string `mapstructure:"BANK_MODE"`
	BankSimURL               string `mapstructure:"BANK_SIM_URL"`
	BankSimAPIKey            string `mapstructure:"BANK_SIM_API_KEY"`
	BankSimPort              string `mapstructure:"BANK_SIM_PORT"`
	BankSimLatencyMS         int    `mapstructure:"BANK_SIM_LATENCY_MS"`
	BankSimSeedAccounts      string `mapstructure:"BANK_SIM_SEED_ACCOUNTS"`
	BankSimLedger            string `mapstructure:"BANK_SIM_LEDGER"`
	IntentSweepSchedule      string `mapstructure:"INTENT_SWEEP_SCHEDULE"`
	IntentStaleAfterSeconds  int    `mapstructure:"INTENT_STALE_AFTER_SECONDS"`
	TransactionEventsEnabled bool   `mapstructure:"TRANSACTION_EVENTS_ENABLED"`
}

// LoadConfig reads configuration from the optional .env file in path and the environment.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("REDIS_KEY_PREFIX", "wallet")
	viper.SetDefault("EVENTS_EXCHANGE", "wallet_events")
	viper.SetDefault("USER_EVENTS_QUEUE", "wallet_service.user_created")
	viper.SetDefault("DEFAULT_CURRENCY", "INR")
	viper.SetDefault("PAYMENT_HANDLE_DOMAIN", "wallet")
	viper.SetDefault("PIN_MAX_ATTEMPTS", 5)
	viper.SetDefault("PIN_LOCKOUT_SECONDS", 900)
	viper.SetDefault("IDEMPOTENCY_TTL_MINUTES", 1440)
	viper.SetDefault("BANK_MODE", BankModeEmbedded)
	viper.SetDefault("BANK_SIM_PORT", "8090")
	viper.SetDefault("BANK_SIM_LATENCY_MS", 300)
	viper.SetDefault("BANK_SIM_LEDGER", "memory")
	viper.SetDefault("INTENT_SWEEP_SCHEDULE", "@every 1m")
	viper.SetDefault("INTENT_STALE_AFTER_SECONDS", 120)
	viper.SetDefault("TRANSACTION_EVENTS_ENABLED", true)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "WALLET_REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("USER_EVENTS_QUEUE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "WALLET_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("DEFAULT_CURRENCY")
	_ = viper.BindEnv("PAYMENT_HANDLE_DOMAIN")
	_ = viper.BindEnv("PIN_MAX_ATTEMPTS")
	_ = viper.BindEnv("PIN_LOCKOUT_SECONDS")
	_ = viper.BindEnv("IDEMPOTENCY_TTL_MINUTES")
	_ = viper.BindEnv("BANK_MODE")
	_ = viper.BindEnv("BANK_SIM_URL")
	_ = viper.BindEnv("BANK_SIM_API_KEY")
	_ = viper.BindEnv("BANK_SIM_PORT")
	_ = viper.BindEnv("BANK_SIM_LATENCY_MS")
	_ = viper.BindEnv("BANK_SIM_SEED_ACCOUNTS")
	_ = viper.BindEnv("BANK_SIM_LEDGER")
	_ = viper.BindEnv("INTENT_SWEEP_SCHEDULE")
	_ = viper.BindEnv("INTENT_STALE_AFTER_SECONDS")
	_ = viper.BindEnv("TRANSACTION_EVENTS_ENABLED")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("WALLET_SERVICE_INTERNAL_API_KEY"))
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	switch config.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		log.Printf("level=warn component=config msg=\"unknown STORE_DRIVER; falling back to postgres\" value=%q", config.StoreDriver)
		config.StoreDriver = StoreDriverPostgres
	}

	config.BankMode = strings.ToLower(strings.TrimSpace(config.BankMode))
	switch config.BankMode {
	case BankModeEmbedded, BankModeRemote:
	default:
		log.Printf("level=warn component=config msg=\"unknown BANK_MODE; falling back to embedded\" value=%q", config.BankMode)
		config.BankMode = BankModeEmbedded
	}
	config.BankSimURL = strings.TrimRight(strings.TrimSpace(config.BankSimURL), "/")
	if config.BankMode == BankModeRemote && config.BankSimURL == "" {
		log.Printf("level=warn component=config msg=\"BANK_MODE=remote without BANK_SIM_URL; falling back to embedded\"")
		config.BankMode = BankModeEmbedded
	}
	config.BankSimLedger = strings.ToLower(strings.TrimSpace(config.BankSimLedger))
	if config.BankSimLedger != "redis" {
		config.BankSimLedger = "memory"
	}

	config.DefaultCurrency = strings.ToUpper(strings.TrimSpace(config.DefaultCurrency))
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "INR"
	}
	config.PaymentHandleDomain = strings.Trim(strings.ToLower(strings.TrimSpace(config.PaymentHandleDomain)), "@")
	if config.PaymentHandleDomain == "" {
		config.PaymentHandleDomain = "wallet"
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisKeyPrefix = strings.TrimSpace(config.RedisKeyPrefix)
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = "wallet"
	}

	if config.PINMaxAttempts <= 0 {
		config.PINMaxAttempts = 5
	}
	if config.PINLockoutSeconds <= 0 {
		config.PINLockoutSeconds = 900
	}
	if config.IdempotencyTTLMinutes <= 0 {
		config.IdempotencyTTLMinutes = 1440
	}
	if config.BankSimLatencyMS < 0 {
		log.Printf("level=warn component=config msg=\"negative bank simulator latency configured; coercing to zero\" latency_ms=%d", config.BankSimLatencyMS)
		config.BankSimLatencyMS = 0
	}
	if strings.TrimSpace(config.IntentSweepSchedule) == "" {
		config.IntentSweepSchedule = "@every 1m"
	}
	if config.IntentStaleAfterSeconds <= 0 {
		config.IntentStaleAfterSeconds = 120
	}

	return
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS into a list, defaulting to "*".
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SeedAccountNumbers parses BANK_SIM_SEED_ACCOUNTS entries of the form "number:balance".
func (c Config) SeedAccountNumbers() map[string]int64 {
	seeds := make(map[string]int64)
	for _, entry := range strings.Split(c.BankSimSeedAccounts, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		number, balance, _ := strings.Cut(entry, ":")
		number = strings.TrimSpace(number)
		if number == "" {
			continue
		}
		amount, parseErr := strconv.ParseInt(strings.TrimSpace(balance), 10, 64)
		if balance != "" && (parseErr != nil || amount < 0) {
			log.Printf("level=warn component=config msg=\"invalid seed balance; using zero\" account=%s value=%q", number, balance)
			amount = 0
		}
		seeds[number] = amount
	}
	return seeds
}

func (c Config) PINLockout() time.Duration {
	return time.Duration(c.PINLockoutSeconds) * time.Second
}

func (c Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLMinutes) * time.Minute
}

func (c Config) BankSimLatency() time.Duration {
	return time.Duration(c.BankSimLatencyMS) * time.Millisecond
}

func (c Config) IntentStaleAfter() time.Duration {
	return time.Duration(c.IntentStaleAfterSeconds) * time.Second
}
