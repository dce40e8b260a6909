// Package config manages application configuration
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"

	// Durable client-state store
	DatabaseURL string

	// Upstream operations API
	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// Security
	SecretKey       string // For local session JWT signing
	SessionDuration time.Duration

	// Incoming-order alert polling
	AlertPollInterval time.Duration

	// Allowed browser origins for the dashboard UI
	AllowedOrigins []string
}

// Load reads configuration from config.yaml (optional) with CHOPDESK_* env
// overrides and sensible defaults.
func Load() *Config {
	v := viper.New()

	v.SetDefault("port", "8090")
	v.SetDefault("environment", "development")
	v.SetDefault("database.url", "chopdesk.db")
	v.SetDefault("upstream.base_url", "https://api.example.com/v1")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("auth.secret_key", "dev-secret-key-change-in-production")
	v.SetDefault("auth.session_duration", 24*time.Hour)
	v.SetDefault("alerts.poll_interval", 30*time.Second)
	v.SetDefault("allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHOPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config.yaml is fine; defaults and env cover everything.
	_ = v.ReadInConfig()

	return &Config{
		Port:              v.GetString("port"),
		Environment:       v.GetString("environment"),
		DatabaseURL:       v.GetString("database.url"),
		UpstreamBaseURL:   v.GetString("upstream.base_url"),
		UpstreamTimeout:   v.GetDuration("upstream.timeout"),
		SecretKey:         v.GetString("auth.secret_key"),
		SessionDuration:   v.GetDuration("auth.session_duration"),
		AlertPollInterval: v.GetDuration("alerts.poll_interval"),
		AllowedOrigins:    v.GetStringSlice("allowed_origins"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
