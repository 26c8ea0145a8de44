// Пакет config — загрузка и валидация конфигурации Intake Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Intake Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальный размер пула подключений
	DBMaxConns int32
	// Минимальный размер пула подключений
	DBMinConns int32
	// Максимальное время жизни подключения в пуле
	DBConnMaxLifetime time.Duration

	// --- Приём файлов ---

	// Общий секрет для HMAC-проверки загрузок.
	// Загружается один раз при старте, после этого не меняется.
	UploadSecret string
	// Директория staging для принятых файлов
	StagingDir string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64

	// --- Downstream ---

	// Имя канала pg_notify для сигнала downstream-конвейеру
	NotifyChannel string

	// --- topologymetrics ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// IM_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("IM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("IM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("IM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// IM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("IM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("IM_LOG_LEVEL: %w", err)
	}

	// IM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("IM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("IM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// IM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("IM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// IM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("IM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("IM_DB_PORT: %w", err)
	}

	// IM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("IM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// IM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("IM_DB_USER")
	if err != nil {
		return nil, err
	}

	// IM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("IM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// IM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("IM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("IM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// IM_DB_MAX_CONNS — максимум подключений в пуле (по умолчанию 10)
	maxConns, err := getEnvInt("IM_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("IM_DB_MAX_CONNS: %w", err)
	}
	if maxConns < 1 {
		return nil, fmt.Errorf("IM_DB_MAX_CONNS: значение должно быть положительным")
	}
	cfg.DBMaxConns = int32(maxConns)

	// IM_DB_MIN_CONNS — минимум подключений в пуле (по умолчанию 2)
	minConns, err := getEnvInt("IM_DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("IM_DB_MIN_CONNS: %w", err)
	}
	if minConns < 0 || minConns > maxConns {
		return nil, fmt.Errorf("IM_DB_MIN_CONNS: значение должно быть в диапазоне 0-%d", maxConns)
	}
	cfg.DBMinConns = int32(minConns)

	// IM_DB_CONN_MAX_LIFETIME — время жизни подключения (по умолчанию 30m)
	cfg.DBConnMaxLifetime, err = getEnvDuration("IM_DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("IM_DB_CONN_MAX_LIFETIME: %w", err)
	}

	// --- Приём файлов ---

	// IM_UPLOAD_SECRET — обязательный
	cfg.UploadSecret, err = getEnvRequired("IM_UPLOAD_SECRET")
	if err != nil {
		return nil, err
	}

	// IM_STAGING_DIR — обязательный
	cfg.StagingDir, err = getEnvRequired("IM_STAGING_DIR")
	if err != nil {
		return nil, err
	}

	// IM_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 64 MB)
	cfg.MaxFileSize, err = getEnvInt64("IM_MAX_FILE_SIZE", 67108864)
	if err != nil {
		return nil, fmt.Errorf("IM_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("IM_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// --- Downstream ---

	// IM_NOTIFY_CHANNEL — канал pg_notify (по умолчанию forecast_uploads)
	cfg.NotifyChannel = getEnvDefault("IM_NOTIFY_CHANNEL", "forecast_uploads")

	// --- topologymetrics ---

	// IM_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию goforecast)
	cfg.DephealthGroup = getEnvDefault("IM_DEPHEALTH_GROUP", "goforecast")

	// IM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("IM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// IM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("IM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL для метрик dephealth.
// Пароль не включается.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
