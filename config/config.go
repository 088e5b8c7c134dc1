package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr       = ":8989"
	defaultJournalPath    = "tracking.db"
	defaultMaxConcurrent  = 4
	defaultMaxUploadBytes = 32 << 20
)

type Config struct {
	HTTPAddr      string
	TelegramToken string // Пусто: бот не запускается

	JournalPath string // Пусто: журнал отключён

	MaxConcurrentRequests int64
	MaxUploadBytes        int64

	LogLevel  slog.Level
	LogFormat string // text или json
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:      getenv("HTTP_ADDR", defaultHTTPAddr),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "text")),
	}

	// JOURNAL_PATH="" явно отключает журнал, отсутствие переменной включает путь по умолчанию
	if v, ok := os.LookupEnv("JOURNAL_PATH"); ok {
		cfg.JournalPath = v
	} else {
		cfg.JournalPath = defaultJournalPath
	}

	var err error
	if cfg.MaxConcurrentRequests, err = positiveInt("MAX_CONCURRENT_REQUESTS", defaultMaxConcurrent); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = positiveInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want text or json", cfg.LogFormat)
	}

	return cfg, nil
}

// NewLogger строит логгер по LOG_LEVEL и LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", key, v)
	}
	return n, nil
}
