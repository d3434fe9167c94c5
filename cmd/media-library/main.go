// Точка входа Media Library — локального хранилища каталога медиа,
// избранного и дискового кэша.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bigkaa/gomedialib/internal/api/handlers"
	"github.com/bigkaa/gomedialib/internal/cache"
	"github.com/bigkaa/gomedialib/internal/config"
	"github.com/bigkaa/gomedialib/internal/importer"
	"github.com/bigkaa/gomedialib/internal/server"
	"github.com/bigkaa/gomedialib/internal/service"
	"github.com/bigkaa/gomedialib/internal/stats"
	"github.com/bigkaa/gomedialib/internal/storage/library"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Media Library запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("cache_dir", cfg.CacheDir),
	)

	// --- Инициализация компонентов ---

	// 1. Каталог и избранное
	store := library.New(filepath.Join(cfg.DataDir, "library.json"), logger)
	if err := store.Load(); err != nil {
		logger.Error("Ошибка загрузки библиотеки", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Статистика воспроизведения
	statsStore := stats.New(filepath.Join(cfg.DataDir, "playback_stats.json"), logger)

	// 3. Дисковый кэш
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}

	audioDir := filepath.Join(cfg.CacheDir, "audio")
	audioCache, err := cache.NewAudioCache(audioDir, httpClient, cache.NewNotifier(), logger)
	if err != nil {
		logger.Error("Ошибка инициализации аудио-кэша", slog.String("error", err.Error()))
		os.Exit(1)
	}

	imageDir := filepath.Join(cfg.CacheDir, "image")
	imageCache, err := cache.NewImageCache(imageDir, cfg.ImageMemEntries, httpClient, logger)
	if err != nil {
		logger.Error("Ошибка инициализации кэша изображений", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Реконсилятор импорта
	reconciler := importer.New(store, logger)

	// 5. Фоновый сэмплер метрик
	metricsSvc := service.NewMetricsService(store, map[string]string{
		"audio": audioDir,
		"image": imageDir,
	}, cfg.MetricsInterval, logger)
	metricsSvc.Start(context.Background())

	// 6. Handlers
	h := server.Handlers{
		Media:     handlers.NewMediaHandler(store, reconciler, cfg.MaxImportSize),
		Favorites: handlers.NewFavoritesHandler(store),
		Cache:     handlers.NewCacheHandler(audioCache, imageCache),
		Stats:     handlers.NewStatsHandler(statsStore),
		System:    handlers.NewSystemHandler(cfg, store, getDiskUsage),
		Health:    handlers.NewHealthHandler(cfg.DataDir, cfg.CacheDir),
	}

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, h)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")
	metricsSvc.Stop()

	logger.Info("Media Library остановлен")
}
