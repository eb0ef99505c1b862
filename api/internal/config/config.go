package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	Port             string `env:"PORT" default:"8080"`
	WebhookURL       string `env:"WEBHOOK_URL"`

	// WebAppURL — где опубликовано мини-приложение; AdminURL — внешний адрес этого сервера.
	WebAppURL   string `env:"WEBAPP_URL"`
	AdminURL    string `env:"ADMIN_URL" default:"http://localhost:8080"`
	CORSOrigins string `env:"CORS_ORIGINS" default:"*"`

	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresUser     string `env:"POSTGRES_USER" default:"photocrop"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresHost     string `env:"PGHOST" default:"db"`
	PostgresPort     string `env:"PGPORT" default:"5432"`
	PostgresDB       string `env:"POSTGRES_DB" default:"photocrop"`

	RedisURL      string        `env:"REDIS_URL"`
	PhotoCacheTTL time.Duration `env:"PHOTO_CACHE_TTL" default:"24h"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return errors.New("missing required env TELEGRAM_BOT_TOKEN")
	}
	if cfg.PhotoCacheTTL <= 0 {
		return errors.New("PHOTO_CACHE_TTL must be positive")
	}
	if cfg.WebAppURL != "" {
		if u, err := url.Parse(cfg.WebAppURL); err != nil || u.Scheme != "https" {
			return fmt.Errorf("WEBAPP_URL must be an https URL, got %q", cfg.WebAppURL)
		}
	}
	return nil
}

// DSN — DATABASE_URL, если задан, иначе собирается из POSTGRES_* / PG*.
func (c *Config) DSN() string {
	if v := strings.TrimSpace(c.DatabaseURL); v != "" {
		return v
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// APIBase — база API, которую получает мини-приложение.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.AdminURL, "/") + "/api"
}

func (c *Config) AllowOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SafeDSNSummary — DSN без пароля, для логов.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
