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
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	RedisChannel           string
	NATSURL                string
	JWTSecret              string
	JWTTTL                 time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	ProgressCacheTTL       time.Duration
	RetryAttempts          int
	RetryDelay             time.Duration
	SweepSchedule          string
	BadgeLockTTL           time.Duration
	EventKeepAlive         time.Duration
	AuthRateLimit          int
	CORSOrigins            []string
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
	v.SetEnvPrefix("SYNCMIND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SyncMind API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("redis.channel", "syncmind")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("cloudinary.folder", "syncmind/resources")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("progress.cache_ttl", "2m")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", "1s")
	v.SetDefault("sweep.schedule", "@every 1m")
	v.SetDefault("badge.lock_ttl", "10s")
	v.SetDefault("events.keepalive", "30s")
	v.SetDefault("auth.rate_limit", 10)
	v.SetDefault("cors.origins", "*")

	durations := map[string]time.Duration{}
	for _, key := range []string{"jwt.ttl", "progress.cache_ttl", "retry.delay", "badge.lock_ttl", "events.keepalive"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		RedisChannel:           v.GetString("redis.channel"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 durations["jwt.ttl"],
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		ProgressCacheTTL:       durations["progress.cache_ttl"],
		RetryAttempts:          v.GetInt("retry.attempts"),
		RetryDelay:             durations["retry.delay"],
		SweepSchedule:          strings.TrimSpace(v.GetString("sweep.schedule")),
		BadgeLockTTL:           durations["badge.lock_ttl"],
		EventKeepAlive:         durations["events.keepalive"],
		AuthRateLimit:          v.GetInt("auth.rate_limit"),
		CORSOrigins:            splitList(v.GetString("cors.origins")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
