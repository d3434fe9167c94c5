// media.go — HTTP handlers каталога медиа.
// List, Detail, Delete, Import (CSV/JSON), Export.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/bigkaa/gomedialib/internal/api/errors"
	"github.com/bigkaa/gomedialib/internal/domain/model"
	"github.com/bigkaa/gomedialib/internal/importer"
	"github.com/bigkaa/gomedialib/internal/storage/library"
)

// Значения по умолчанию и лимиты пагинации списка.
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// MediaHandler — обработчик endpoints каталога.
type MediaHandler struct {
	store         *library.Store
	reconciler    *importer.Reconciler
	maxImportSize int64
}

// NewMediaHandler создаёт обработчик каталога.
// maxImportSize — лимит размера файла импорта в байтах.
func NewMediaHandler(store *library.Store, reconciler *importer.Reconciler, maxImportSize int64) *MediaHandler {
	return &MediaHandler{
		store:         store,
		reconciler:    reconciler,
		maxImportSize: maxImportSize,
	}
}

// ListMedia обрабатывает GET /api/v1/media.
// Фильтры: type (audio|video), q (подстрока в title/subtitle).
// Пагинация: page (с 1), page_size (1..500).
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var typeFilter model.MediaType
	if raw := q.Get("type"); raw != "" {
		typeFilter = model.MediaType(raw)
		if !typeFilter.IsValid() {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимый тип медиа: %s", raw))
			return
		}
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			apierrors.ValidationError(w, "Параметр page должен быть целым числом от 1")
			return
		}
		page = v
	}

	pageSize := defaultPageSize
	if raw := q.Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxPageSize {
			apierrors.ValidationError(w, fmt.Sprintf("Параметр page_size должен быть от 1 до %d", maxPageSize))
			return
		}
		pageSize = v
	}

	items := h.store.ListMedia(typeFilter, q.Get("q"))
	total := len(items)

	// Страница за пределами результата — пустой список, не ошибка
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, model.MediaListResponse{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items[start:end],
	})
}

// GetMediaDetail обрабатывает GET /api/v1/media/detail?id=...
// Идентификатор записи — канонический URL, поэтому передаётся
// в query, а не в пути.
func (h *MediaHandler) GetMediaDetail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		apierrors.ValidationError(w, "Параметр id обязателен")
		return
	}

	detail, err := h.store.Detail(id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Медиа %s не найдено", id))
			return
		}
		apierrors.InternalError(w, "Ошибка чтения каталога")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// DeleteMedia обрабатывает DELETE /api/v1/media?id=...
// Удаление идемпотентно: отсутствующий id также даёт 204.
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		apierrors.ValidationError(w, "Параметр id обязателен")
		return
	}

	if err := h.store.DeleteMedia(id); err != nil {
		apierrors.InternalError(w, "Ошибка удаления записи каталога")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportMedia обрабатывает POST /api/v1/media/import?format=csv|json.
// Тело запроса — сырой файл импорта. Формат определяется параметром
// format, при его отсутствии — по Content-Type.
func (h *MediaHandler) ImportMedia(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(ct, "json"):
			format = "json"
		case strings.Contains(ct, "csv"):
			format = "csv"
		default:
			apierrors.ValidationError(w, "Формат импорта не определён: укажите ?format=csv или ?format=json")
			return
		}
	}
	if format != "csv" && format != "json" {
		apierrors.ValidationError(w, fmt.Sprintf("Недопустимый формат импорта: %s", format))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxImportSize)
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Файл импорта превышает лимит %d байт", h.maxImportSize))
			return
		}
		apierrors.ValidationError(w, "Ошибка чтения тела запроса")
		return
	}

	var report *model.ImportReport
	if format == "csv" {
		report, err = h.reconciler.ImportCSV(data)
	} else {
		report, err = h.reconciler.ImportJSON(data)
	}
	if err != nil {
		var missingCol *importer.MissingColumnError
		var unreadable *importer.UnreadableInputError
		switch {
		case errors.As(err, &missingCol):
			apierrors.MissingColumn(w, missingCol.Error())
		case errors.As(err, &unreadable):
			apierrors.UnreadableInput(w, unreadable.Error())
		default:
			apierrors.InternalError(w, "Ошибка применения импорта")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ExportMedia обрабатывает GET /api/v1/media/export.
// Возвращает агрегат библиотеки как скачиваемый JSON-файл,
// пригодный для повторного импорта.
func (h *MediaHandler) ExportMedia(w http.ResponseWriter, _ *http.Request) {
	data, err := h.store.ExportJSON()
	if err != nil {
		apierrors.InternalError(w, "Ошибка выгрузки библиотеки")
		return
	}

	filename := "media-library-" + time.Now().UTC().Format("20060102-150405") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
