// Package config loads runtime settings from .env, flags and the
// environment.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// Gemini
	APIKey string
	Model  string

	// Generation
	BatchWidth    int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryBaseMS   int

	// State bounds
	SessionsMax int
	HistoryMax  int

	// Persistence
	DatabaseDSN string
	FileDir     string

	Publish PublishConfig
}

type PublishConfig struct {
	Enabled    bool
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicBase string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:          *port,
		Env:           env,
		APIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:         firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.0-flash"),
		BatchWidth:    envInt("BATCH_WIDTH", 3),
		JobTimeout:    time.Duration(envInt("JOB_TIMEOUT_SECONDS", 30)) * time.Second,
		RetryAttempts: envInt("RETRY_ATTEMPTS", 3),
		RetryBaseMS:   envInt("RETRY_BASE_MS", 300),
		SessionsMax:   envInt("SESSIONS_MAX", 10),
		HistoryMax:    envInt("HISTORY_MAX", 100),
		DatabaseDSN:   strings.TrimSpace(os.Getenv("DATABASE_DSN")),
		FileDir:       strings.TrimSpace(os.Getenv("STATE_DIR")),
		Publish:       loadPublishConfig(env),
	}, nil
}

func loadPublishConfig(env string) PublishConfig {
	endpoint := resolvePublishEndpoint(env)
	return PublishConfig{
		Enabled:    endpoint != "",
		Endpoint:   endpoint,
		Region:     firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLISH_S3_REGION")), "us-east-1"),
		AccessKey:  firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLISH_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey:  firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLISH_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:     firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLISH_S3_BUCKET")), "pagesmith-sites"),
		UseSSL:     resolvePublishUseSSL(env),
		PublicBase: strings.TrimSpace(os.Getenv("PUBLISH_PUBLIC_BASE")),
	}
}

func resolvePublishEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLISH_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("PUBLISH_S3_ENDPOINT"))
}

func resolvePublishUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("PUBLISH_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
