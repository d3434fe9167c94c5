// stats.go — HTTP handlers статистики воспроизведения.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/gomedialib/internal/api/errors"
	"github.com/bigkaa/gomedialib/internal/stats"
)

// defaultTrendDays — глубина посуточного тренда по умолчанию.
const defaultTrendDays = 7

// StatsHandler — обработчик endpoints статистики.
type StatsHandler struct {
	store *stats.Store
}

// NewStatsHandler создаёт обработчик статистики.
func NewStatsHandler(store *stats.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// RecordPlayback обрабатывает POST /api/v1/stats/playback.
// Тело: {"seconds": N}. Неположительные значения отклоняются.
func (h *StatsHandler) RecordPlayback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}
	if req.Seconds <= 0 {
		apierrors.ValidationError(w, "Поле seconds должно быть положительным")
		return
	}

	if err := h.store.RecordPlayback(req.Seconds, time.Now()); err != nil {
		apierrors.InternalError(w, "Ошибка записи статистики")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSummary обрабатывает GET /api/v1/stats/summary?days=N.
// Возвращает суммарное время воспроизведения и посуточный тренд
// за последние days дней (по умолчанию 7, максимум 366).
func (h *StatsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	days := defaultTrendDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 366 {
			apierrors.ValidationError(w, "Параметр days должен быть от 1 до 366")
			return
		}
		days = v
	}

	writeJSON(w, http.StatusOK, stats.Summary{
		TotalSeconds: h.store.TotalSeconds(),
		Daily:        h.store.DailyTrend(days, time.Now()),
	})
}
