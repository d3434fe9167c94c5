// Пакет server — HTTP-сервер Media Library с graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/gomedialib/internal/api/handlers"
	"github.com/bigkaa/gomedialib/internal/api/middleware"
	"github.com/bigkaa/gomedialib/internal/config"
)

// Handlers — доменные обработчики, монтируемые на роутер.
type Handlers struct {
	Media     *handlers.MediaHandler
	Favorites *handlers.FavoritesHandler
	Cache     *handlers.CacheHandler
	Stats     *handlers.StatsHandler
	System    *handlers.SystemHandler
	Health    *handlers.HealthHandler
}

// Server — HTTP-сервер Media Library.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics — вне /api/v1, проверяются оркестратором напрямую
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", h.System.GetInfo)

		// Каталог. Идентификаторы записей — URL, передаются в query.
		r.Route("/media", func(r chi.Router) {
			r.Get("/", h.Media.ListMedia)
			r.Delete("/", h.Media.DeleteMedia)
			r.Get("/detail", h.Media.GetMediaDetail)
			r.Post("/import", h.Media.ImportMedia)
			r.Get("/export", h.Media.ExportMedia)
		})

		// Избранное
		r.Route("/favorites", func(r chi.Router) {
			r.Get("/groups", h.Favorites.ListGroups)
			r.Post("/groups", h.Favorites.CreateGroup)
			r.Delete("/groups/{groupId}", h.Favorites.DeleteGroup)
			r.Get("/groups/{groupId}/items", h.Favorites.ListItems)
			r.Post("/groups/{groupId}/items", h.Favorites.AddItem)
			r.Delete("/groups/{groupId}/items", h.Favorites.RemoveItem)
			r.Post("/move", h.Favorites.MoveItem)
			r.Get("/lookup", h.Favorites.Lookup)
		})

		// Кэш
		r.Route("/cache", func(r chi.Router) {
			r.Post("/resolve", h.Cache.ResolveAudio)
			r.Get("/contains", h.Cache.Contains)
			r.Get("/image", h.Cache.GetImage)
		})

		// Статистика воспроизведения
		r.Route("/stats", func(r chi.Router) {
			r.Post("/playback", h.Stats.RecordPlayback)
			r.Get("/summary", h.Stats.GetSummary)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
