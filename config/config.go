package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"guildwatch/database"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Remote game API configuration
	APIBaseURL string
	APIKey     string

	// Messaging configuration
	NATSServers string // Optional, event bridging disabled when empty

	// Monitor configuration
	PollInterval    time.Duration // How often the reset cycle monitor ticks
	SyncInterval    time.Duration // How often rosters are reconciled
	CacheTTL        time.Duration // Remote API response cache lifetime
	TicketThreshold int64         // Daily ticket count a member must reach

	// Environment
	Environment string // "development" or "production"
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
	config := &Config{
		// Discord
		DiscordToken: os.Getenv("DISCORD_TOKEN"),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Remote game API
		APIBaseURL: os.Getenv("GAME_API_BASE_URL"),
		APIKey:     os.Getenv("GAME_API_KEY"),

		// Messaging
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Monitor settings with defaults
		PollInterval:    time.Minute,
		SyncInterval:    time.Hour,
		CacheTTL:        2 * time.Minute,
		TicketThreshold: 600,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if interval := os.Getenv("POLL_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.PollInterval = time.Duration(parsed) * time.Second
		}
	}
	if interval := os.Getenv("SYNC_INTERVAL_MINUTES"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SyncInterval = time.Duration(parsed) * time.Minute
		}
	}
	if ttl := os.Getenv("CACHE_TTL_SECONDS"); ttl != "" {
		if parsed, err := strconv.Atoi(ttl); err == nil && parsed > 0 {
			config.CacheTTL = time.Duration(parsed) * time.Second
		}
	}
	if threshold := os.Getenv("TICKET_THRESHOLD"); threshold != "" {
		if parsed, err := strconv.ParseInt(threshold, 10, 64); err == nil && parsed > 0 {
			config.TicketThreshold = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.APIBaseURL == "" {
			return nil, fmt.Errorf("GAME_API_BASE_URL is required")
		}
	}

	return config, nil
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// GetDatabaseURL constructs the full database URL by combining base URL
// and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}
