// system.go — обработчик GET /api/v1/info (информация о Media Library).
// Публичный endpoint для service discovery и мониторинга.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/gomedialib/internal/config"
	"github.com/bigkaa/gomedialib/internal/storage/library"
)

// DiskUsageFunc возвращает total, used, available в байтах для пути.
// Платформозависимая реализация передаётся из main.
type DiskUsageFunc func(path string) (total, used, available int64, err error)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg       *config.Config
	store     *library.Store
	diskUsage DiskUsageFunc
	startedAt time.Time
}

// NewSystemHandler создаёт обработчик системных endpoints.
// diskUsage может быть nil — тогда секция disk опускается.
func NewSystemHandler(cfg *config.Config, store *library.Store, diskUsage DiskUsageFunc) *SystemHandler {
	return &SystemHandler{
		cfg:       cfg,
		store:     store,
		diskUsage: diskUsage,
		startedAt: time.Now(),
	}
}

// GetInfo обрабатывает GET /api/v1/info.
// Возвращает версию, размеры каталога и избранного, занятость диска
// в директории кэша.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"service":        "media-library",
		"version":        config.Version,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"library": map[string]any{
			"media_total":          h.store.CountMedia(""),
			"favorite_groups":      h.store.CountGroups(),
			"favorite_items_total": h.store.CountFavoriteItems(),
		},
	}

	if h.diskUsage != nil {
		total, used, available, err := h.diskUsage(h.cfg.CacheDir)
		if err == nil {
			resp["disk"] = map[string]any{
				"total_bytes":     total,
				"used_bytes":      used,
				"available_bytes": available,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
