package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	JWTRefreshSecret    string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	ResetLinkBase       string
	ResetTokenTTL       time.Duration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	StatsCacheTTL       time.Duration
	MaxUploadMB         int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// MaxUploadBytes converts the configured upload cap into bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RIMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "RIMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("reset.link_base", "http://localhost:3000/reset-password")
	v.SetDefault("reset.token_ttl", "1h")
	v.SetDefault("cloudinary.folder", "rims")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("max_upload_mb", 10)

	accessTTL, err := parseDuration(v, "jwt.access_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt access ttl: %w", err)
	}

	refreshTTL, err := parseDuration(v, "jwt.refresh_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt refresh ttl: %w", err)
	}

	resetTTL, err := parseDuration(v, "reset.token_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid reset token ttl: %w", err)
	}

	statsTTL, err := parseDuration(v, "stats.cache_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTRefreshSecret:    v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:      accessTTL,
		RefreshTokenTTL:     refreshTTL,
		ResetLinkBase:       v.GetString("reset.link_base"),
		ResetTokenTTL:       resetTTL,
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		StatsCacheTTL:       statsTTL,
		MaxUploadMB:         v.GetInt("max_upload_mb"),
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be configured")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be configured")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, fmt.Errorf("value missing")
	}

	return time.ParseDuration(raw)
}
