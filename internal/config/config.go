package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the gateway.
type Config struct {
	AppName    string
	AppEnv     string
	AppVersion string
	AppPort    string

	GenerationURL string
	UploadsURL    string
	EvaluationURL string
	AnalyticsURL  string

	BackendTimeout time.Duration
	BackendRetries int

	RedisURL            string
	NATSURL             string
	NotificationChannel string
	StreamKeepAlive     time.Duration

	JWTSecret string

	SavedCacheTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PRAXIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Praxis Gateway")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.port", "8080")
	v.SetDefault("generation.url", "http://localhost:8001")
	v.SetDefault("uploads.url", "http://localhost:8002")
	v.SetDefault("evaluation.url", "http://localhost:8003")
	v.SetDefault("analytics.url", "http://localhost:8004")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.retries", 2)
	v.SetDefault("notification.channel", "praxis:notifications")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("saved.cache_ttl", "5m")

	backendTimeout, err := time.ParseDuration(v.GetString("backend.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid backend timeout: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("stream.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid stream keepalive: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("saved.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid saved cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppVersion:          v.GetString("app.version"),
		AppPort:             v.GetString("app.port"),
		GenerationURL:       v.GetString("generation.url"),
		UploadsURL:          v.GetString("uploads.url"),
		EvaluationURL:       v.GetString("evaluation.url"),
		AnalyticsURL:        v.GetString("analytics.url"),
		BackendTimeout:      backendTimeout,
		BackendRetries:      v.GetInt("backend.retries"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		NotificationChannel: v.GetString("notification.channel"),
		StreamKeepAlive:     keepAlive,
		JWTSecret:           v.GetString("jwt.secret"),
		SavedCacheTTL:       cacheTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.BackendRetries < 0 {
		cfg.BackendRetries = 0
	}

	return cfg, nil
}
