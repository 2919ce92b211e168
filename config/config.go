package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"tambola/game"
)

// Config holds all application configuration
type Config struct {
	// Server
	ListenAddr string
	JWTSecret  string

	// Database
	DatabaseURL string

	// Game settings
	WelcomeBonus     float64 // points credited on signup
	TicketPriceMin   float64
	TicketPriceMax   float64
	MaxTicketsPerBuy int
	DefaultMinPlayers int
	DefaultMaxPlayers int
	AutoCallInterval time.Duration

	// Per-room default prize table; rooms may override at creation.
	PrizePercents game.PrizePercents

	// Environment is "development", "production" or "test"
	Environment string
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

func load() (*Config, error) {
	config := &Config{
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Game defaults
		WelcomeBonus:      50,
		TicketPriceMin:    1,
		TicketPriceMax:    1000,
		MaxTicketsPerBuy:  10,
		DefaultMinPlayers: 2,
		DefaultMaxPlayers: 50,
		AutoCallInterval:  5 * time.Second,
		PrizePercents:     game.DefaultPercents(),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":8001"
	}

	if bonus := os.Getenv("WELCOME_BONUS"); bonus != "" {
		if parsed, err := strconv.ParseFloat(bonus, 64); err == nil {
			config.WelcomeBonus = parsed
		}
	}
	if interval := os.Getenv("AUTO_CALL_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.AutoCallInterval = parsed
		}
	}
	if minPrice := os.Getenv("TICKET_PRICE_MIN"); minPrice != "" {
		if parsed, err := strconv.ParseFloat(minPrice, 64); err == nil {
			config.TicketPriceMin = parsed
		}
	}
	if maxPrice := os.Getenv("TICKET_PRICE_MAX"); maxPrice != "" {
		if parsed, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			config.TicketPriceMax = parsed
		}
	}

	// PRIZE_PERCENTS is a csv in prize precedence order, e.g. "10,10,10,10,10,50".
	if percents := os.Getenv("PRIZE_PERCENTS"); percents != "" {
		parsed, err := ParsePercents(percents)
		if err != nil {
			return nil, fmt.Errorf("invalid PRIZE_PERCENTS: %w", err)
		}
		config.PrizePercents = parsed
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	}

	return config, nil
}

// ParsePercents parses a csv prize table given in precedence order
// (early_five, top_line, middle_line, bottom_line, four_corners, full_house)
// and validates that it sums to 100.
func ParsePercents(csv string) (game.PrizePercents, error) {
	parts := strings.Split(csv, ",")
	if len(parts) != len(game.PrizeOrder) {
		return nil, fmt.Errorf("expected %d values, got %d", len(game.PrizeOrder), len(parts))
	}
	table := make(game.PrizePercents, len(parts))
	for i, part := range parts {
		pct, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", part)
		}
		table[game.PrizeOrder[i]] = pct
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
