package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
)

// DefaultAckMessage - ответ пользователю после приёма отчёта
const DefaultAckMessage = "Report submitted. Thank you for helping protect our planet."

// Config - структура для хранения конфигурации приложения
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Webhook Config
	WebhookURL     string        `env:"REPORT_WEBHOOK_URL"`
	WebhookSecret  string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`

	// Report Config
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"25MB"`
	AckMessage    string `env:"ACK_MESSAGE"`

	// Web Config
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	StaticRoot       string   `env:"STATIC_ROOT" envDefault:"./web"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	maxUpload, err := getEnvAsSize("MAX_UPLOAD_SIZE", 25*units.MiB)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		WebhookURL:       strings.TrimSpace(os.Getenv("REPORT_WEBHOOK_URL")),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:   getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		MaxUploadSize:    maxUpload,
		AckMessage:       getEnv("ACK_MESSAGE", DefaultAckMessage),
		CORSAllowOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		StaticRoot:       getEnv("STATIC_ROOT", "./web"),
	}

	if cfg.WebhookTimeout <= 0 {
		return nil, fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %s", cfg.WebhookTimeout)
	}

	return cfg, nil
}

// ForwardingEnabled сообщает, задан ли адрес пересылки отчётов
func (c *Config) ForwardingEnabled() bool {
	return c.WebhookURL != ""
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}

// getEnvAsSize разбирает размер вида "25MB" или "512KiB"; 0 отключает ограничение
func getEnvAsSize(key string, defaultValue int64) (int64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue, nil
	}
	size, err := units.RAMInBytes(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if size < 0 {
		return 0, fmt.Errorf("invalid %s %q: negative size", key, value)
	}
	return size, nil
}

// getEnvAsList возвращает список значений, разделённых запятыми
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
