// Пакет config — загрузка и валидация конфигурации Media Library
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

// Config содержит все параметры конфигурации Media Library.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории данных (library.json, playback_stats.json)
	DataDir string
	// Путь к корневой директории дискового кэша (audio/, image/)
	CacheDir string
	// Максимальный размер файла импорта в байтах
	MaxImportSize int64
	// Ёмкость in-memory слоя кэша изображений (количество записей)
	ImageMemEntries int
	// Таймаут одной сетевой загрузки кэша
	FetchTimeout time.Duration
	// Интервал фонового сэмплера метрик
	MetricsInterval time.Duration
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// ML_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("ML_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("ML_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("ML_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// ML_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("ML_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// ML_CACHE_DIR — обязательный
	cfg.CacheDir, err = getEnvRequired("ML_CACHE_DIR")
	if err != nil {
		return nil, err
	}

	// ML_MAX_IMPORT_SIZE — лимит файла импорта (по умолчанию 32 MiB)
	maxImportSize, err := getEnvInt64("ML_MAX_IMPORT_SIZE", 32<<20)
	if err != nil {
		return nil, fmt.Errorf("ML_MAX_IMPORT_SIZE: %w", err)
	}
	if maxImportSize <= 0 {
		return nil, fmt.Errorf("ML_MAX_IMPORT_SIZE: значение должно быть положительным")
	}
	cfg.MaxImportSize = maxImportSize

	// ML_IMAGE_MEM_ENTRIES — ёмкость LRU изображений (по умолчанию 200)
	imageMemEntries, err := getEnvInt("ML_IMAGE_MEM_ENTRIES", 200)
	if err != nil {
		return nil, fmt.Errorf("ML_IMAGE_MEM_ENTRIES: %w", err)
	}
	if imageMemEntries <= 0 {
		return nil, fmt.Errorf("ML_IMAGE_MEM_ENTRIES: значение должно быть положительным")
	}
	cfg.ImageMemEntries = imageMemEntries

	// ML_FETCH_TIMEOUT — таймаут загрузки кэша (по умолчанию 2m)
	cfg.FetchTimeout, err = getEnvDuration("ML_FETCH_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ML_FETCH_TIMEOUT: %w", err)
	}

	// ML_METRICS_INTERVAL — интервал сэмплера метрик (по умолчанию 1m)
	cfg.MetricsInterval, err = getEnvDuration("ML_METRICS_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ML_METRICS_INTERVAL: %w", err)
	}

	// ML_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ML_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ML_LOG_LEVEL: %w", err)
	}

	// ML_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ML_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ML_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// ML_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ML_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 2m, 1h)", val)
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
