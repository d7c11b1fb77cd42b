package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	LogLevel     string
	DatabasePath string

	// Coins traded by every account, e.g. "BTC,ETH,SOL"
	Coins []string

	// Trading cycle
	CycleIntervalSeconds int
	DefaultFeeRate       float64

	// Live exchange (optional - accounts fall back to simulated execution)
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool

	// AI decision provider
	AdvisorURL    string
	AdvisorAPIKey string

	// Telegram notifications (optional)
	TelegramToken  string
	TelegramChatID int64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8080),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabasePath:         getEnv("DATABASE_PATH", "./data/alphapilot.db"),
		Coins:                getEnvAsList("COINS", "BTC,ETH,SOL"),
		CycleIntervalSeconds: getEnvAsInt("CYCLE_INTERVAL_SECONDS", 180),
		DefaultFeeRate:       getEnvAsFloat("DEFAULT_FEE_RATE", 0.001),
		BinanceAPIKey:        getEnv("BINANCE_API_KEY", ""),
		BinanceSecretKey:     getEnv("BINANCE_SECRET_KEY", ""),
		BinanceTestnet:       getEnvAsBool("BINANCE_TESTNET", true),
		AdvisorURL:           getEnv("ADVISOR_URL", ""),
		AdvisorAPIKey:        getEnv("ADVISOR_API_KEY", ""),
		TelegramToken:        getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID:       getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if len(c.Coins) == 0 {
		return fmt.Errorf("COINS must list at least one coin")
	}

	if c.CycleIntervalSeconds < 10 {
		return fmt.Errorf("CYCLE_INTERVAL_SECONDS must be at least 10")
	}

	if c.DefaultFeeRate < 0 || c.DefaultFeeRate >= 1 {
		return fmt.Errorf("DEFAULT_FEE_RATE must be in [0, 1)")
	}

	// Note: Binance credentials are optional - accounts without them run in
	// simulated execution regardless of their configured environment.

	return nil
}

// ExchangeConfigured reports whether live exchange credentials are present
func (c *Config) ExchangeConfigured() bool {
	return c.BinanceAPIKey != "" && c.BinanceSecretKey != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)

	var items []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, strings.ToUpper(item))
		}
	}
	return items
}
