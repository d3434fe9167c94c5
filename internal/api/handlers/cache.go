// cache.go — HTTP handlers дискового кэша: resolve аудио-источника,
// проверка наличия, выдача закэшированного изображения.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	apierrors "github.com/bigkaa/gomedialib/internal/api/errors"
	"github.com/bigkaa/gomedialib/internal/cache"
	"github.com/bigkaa/gomedialib/internal/domain/model"
)

// CacheHandler — обработчик endpoints кэша.
type CacheHandler struct {
	audio *cache.AudioCache
	image *cache.ImageCache
}

// NewCacheHandler создаёт обработчик кэша.
func NewCacheHandler(audio *cache.AudioCache, image *cache.ImageCache) *CacheHandler {
	return &CacheHandler{audio: audio, image: image}
}

// ResolveAudio обрабатывает POST /api/v1/cache/resolve.
// Тело: {"url": "...", "format": "...", "media_type": "...", "media_id": "..."}.
// Ответ: {"url": "...", "cached": bool} — локальный путь при попадании
// или успешной загрузке, исходный URL при любой ошибке.
func (h *CacheHandler) ResolveAudio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL       string `json:"url"`
		Format    string `json:"format"`
		MediaType string `json:"media_type"`
		MediaID   string `json:"media_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}
	if req.URL == "" {
		apierrors.ValidationError(w, "Поле url обязательно")
		return
	}

	mediaType := model.MediaType(req.MediaType)
	if req.MediaType == "" {
		mediaType = model.TypeAudio
	} else if !mediaType.IsValid() {
		apierrors.ValidationError(w, fmt.Sprintf("Недопустимый тип медиа: %s", req.MediaType))
		return
	}

	resolved := h.audio.Resolve(r.Context(), req.URL, req.Format, mediaType, req.MediaID)

	writeJSON(w, http.StatusOK, map[string]any{
		"url":    resolved,
		"cached": resolved != req.URL,
	})
}

// Contains обрабатывает GET /api/v1/cache/contains?url=...&flavor=audio|image.
// Проверяет только дисковый слой, без обращения к сети.
func (h *CacheHandler) Contains(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		apierrors.ValidationError(w, "Параметр url обязателен")
		return
	}

	flavor := r.URL.Query().Get("flavor")
	var cached bool
	switch flavor {
	case "", "audio":
		cached = h.audio.IsCached(sourceURL)
	case "image":
		cached = h.image.IsCached(sourceURL)
	default:
		apierrors.ValidationError(w, fmt.Sprintf("Недопустимый flavor: %s", flavor))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":    sourceURL,
		"cached": cached,
	})
}

// GetImage обрабатывает GET /api/v1/cache/image?url=...
// Возвращает байты изображения из кэша (память → диск → сеть).
// При сбое загрузки клиент перенаправляется на исходный URL.
func (h *CacheHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		apierrors.ValidationError(w, "Параметр url обязателен")
		return
	}

	data, err := h.image.Image(r.Context(), sourceURL)
	if err != nil {
		// Исходный URL — последний рубеж: пусть клиент попробует сам
		http.Redirect(w, r, sourceURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
