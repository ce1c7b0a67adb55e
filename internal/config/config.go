package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KirkDiggler/applebot/internal/clients/discordapi"
)

// ConfigError is a custom error type for configuration errors
type ConfigError string

// Error implements the error interface
func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingEmail           ConfigError = "DISCORD_EMAIL is required"
	ErrMissingPassword        ConfigError = "DISCORD_PASSWORD is required"
	ErrInvalidAPIURL          ConfigError = "DISCORD_API_URL must be an absolute http(s) URL"
	ErrInvalidHeartbeatMargin ConfigError = "HEARTBEAT_MARGIN must be a positive duration"
	ErrInvalidRedisDB         ConfigError = "REDIS_DB must be a non-negative integer"
)

// Config holds everything the bot reads from the environment
type Config struct {
	Discord DiscordConfig
	Redis   RedisConfig
}

// DiscordConfig describes the Discord account and gateway behaviour
type DiscordConfig struct {
	Email    string
	Password string

	// OwnerID is elevated everywhere; empty disables the override
	OwnerID string

	APIURL string
	Game   string

	// HeartbeatMargin is zero only when unset, which means the platform
	// default; an explicit value must be positive
	HeartbeatMargin time.Duration
}

// RedisConfig describes the optional session history store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	discord, err := loadDiscordConfig()
	if err != nil {
		return nil, err
	}

	redis, err := LoadRedis()
	if err != nil {
		return nil, err
	}

	return &Config{Discord: discord, Redis: redis}, nil
}

func loadDiscordConfig() (DiscordConfig, error) {
	cfg := DiscordConfig{
		Email:    strings.TrimSpace(os.Getenv("DISCORD_EMAIL")),
		Password: os.Getenv("DISCORD_PASSWORD"),
		OwnerID:  strings.TrimSpace(os.Getenv("DISCORD_OWNER_ID")),
		APIURL:   getEnvOrDefault("DISCORD_API_URL", discordapi.DefaultBaseURL),
		Game:     strings.TrimSpace(os.Getenv("DISCORD_GAME")),
	}

	if cfg.Email == "" {
		return DiscordConfig{}, ErrMissingEmail
	}

	if cfg.Password == "" {
		return DiscordConfig{}, ErrMissingPassword
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return DiscordConfig{}, fmt.Errorf("%w: %q", ErrInvalidAPIURL, cfg.APIURL)
	}

	// unset leaves zero, which means the platform default
	margin, err := parseDurationEnv("HEARTBEAT_MARGIN", 0)
	if err != nil || (margin <= 0 && strings.TrimSpace(os.Getenv("HEARTBEAT_MARGIN")) != "") {
		return DiscordConfig{}, fmt.Errorf("%w: %q", ErrInvalidHeartbeatMargin, os.Getenv("HEARTBEAT_MARGIN"))
	}
	cfg.HeartbeatMargin = margin

	return cfg, nil
}

// LoadRedis reads only the session history store settings, for commands
// that never log in to Discord
func LoadRedis() (RedisConfig, error) {
	db, err := parseIntEnv("REDIS_DB", 0)
	if err != nil || db < 0 {
		return RedisConfig{}, fmt.Errorf("%w: %q", ErrInvalidRedisDB, os.Getenv("REDIS_DB"))
	}

	return RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
