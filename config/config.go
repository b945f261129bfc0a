package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// HTTP server configuration
	ListenAddr string

	// Database configuration
	DatabaseURL string

	// Staking configuration
	WelcomeBonus decimal.Decimal // tokens granted on profile creation
	MinStake     decimal.Decimal // platform minimum per stake
	MaxStake     decimal.Decimal // platform maximum per stake

	// Chain oracle configuration
	OracleURL string // empty disables reconciliation

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Best effort; real deployments set envs directly
	_ = godotenv.Load()

	config := &Config{
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OracleURL:   os.Getenv("ORACLE_URL"),
		Environment: os.Getenv("ENVIRONMENT"),

		// Staking defaults
		WelcomeBonus: decimal.NewFromInt(10),
		MinStake:     decimal.RequireFromString("0.1"),
		MaxStake:     decimal.NewFromInt(1000),
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}

	// Override defaults if environment variables are set
	if bonus := os.Getenv("WELCOME_BONUS"); bonus != "" {
		if parsed, err := decimal.NewFromString(bonus); err == nil {
			config.WelcomeBonus = parsed
		}
	}
	if min := os.Getenv("MIN_STAKE"); min != "" {
		if parsed, err := decimal.NewFromString(min); err == nil {
			config.MinStake = parsed
		}
	}
	if max := os.Getenv("MAX_STAKE"); max != "" {
		if parsed, err := decimal.NewFromString(max); err == nil {
			config.MaxStake = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
