// favorites.go — HTTP handlers избранного: группы, элементы,
// перемещение между группами, обратный поиск принадлежности.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gomedialib/internal/api/errors"
	"github.com/bigkaa/gomedialib/internal/domain/model"
	"github.com/bigkaa/gomedialib/internal/storage/library"
)

// FavoritesHandler — обработчик endpoints избранного.
type FavoritesHandler struct {
	store *library.Store
}

// NewFavoritesHandler создаёт обработчик избранного.
func NewFavoritesHandler(store *library.Store) *FavoritesHandler {
	return &FavoritesHandler{store: store}
}

// ListGroups обрабатывает GET /api/v1/favorites/groups.
func (h *FavoritesHandler) ListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": h.store.ListGroups(),
	})
}

// CreateGroup обрабатывает POST /api/v1/favorites/groups.
// Тело: {"name": "...", "media_type": "audio|video"}.
// Новая группа вставляется в начало списка.
func (h *FavoritesHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		MediaType string `json:"media_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}

	group, err := h.store.CreateGroup(req.Name, model.MediaType(req.MediaType))
	if err != nil {
		if errors.Is(err, library.ErrInvalidArgument) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		apierrors.InternalError(w, "Ошибка создания группы")
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

// DeleteGroup обрабатывает DELETE /api/v1/favorites/groups/{groupId}.
// Удаление идемпотентно: отсутствующая группа также даёт 204.
func (h *FavoritesHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	if err := h.store.DeleteGroup(groupID); err != nil {
		apierrors.InternalError(w, "Ошибка удаления группы")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListItems обрабатывает GET /api/v1/favorites/groups/{groupId}/items.
// Неизвестная группа даёт пустой список, не ошибку.
func (h *FavoritesHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	items := h.store.ListItems(groupID)

	writeJSON(w, http.StatusOK, model.FavoriteListResponse{
		GroupID: groupID,
		Total:   len(items),
		Items:   items,
	})
}

// AddItem обрабатывает POST /api/v1/favorites/groups/{groupId}/items.
// Тело: {"media_id": "..."}. Повторное добавление идемпотентно (200),
// несовпадение типа медиа и группы — 409.
func (h *FavoritesHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	var req struct {
		MediaID string `json:"media_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}
	if req.MediaID == "" {
		apierrors.ValidationError(w, "Поле media_id обязательно")
		return
	}

	item, err := h.store.AddItem(groupID, req.MediaID)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			apierrors.NotFound(w, err.Error())
		case errors.Is(err, library.ErrConflict):
			apierrors.Conflict(w, err.Error())
		default:
			apierrors.InternalError(w, "Ошибка добавления в избранное")
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// RemoveItem обрабатывает DELETE /api/v1/favorites/groups/{groupId}/items?media_id=...
// Удаление идемпотентно: отсутствующий элемент также даёт 204.
func (h *FavoritesHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	mediaID := r.URL.Query().Get("media_id")
	if mediaID == "" {
		apierrors.ValidationError(w, "Параметр media_id обязателен")
		return
	}

	if err := h.store.RemoveItem(groupID, mediaID); err != nil {
		apierrors.InternalError(w, "Ошибка удаления из избранного")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveItem обрабатывает POST /api/v1/favorites/move.
// Тело: {"media_id": "...", "from_group_id": "...", "to_group_id": "..."}.
// Перемещение атомарно: валидация целевой группы выполняется до
// удаления из исходной.
func (h *FavoritesHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaID     string `json:"media_id"`
		FromGroupID string `json:"from_group_id"`
		ToGroupID   string `json:"to_group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}
	if req.MediaID == "" || req.FromGroupID == "" || req.ToGroupID == "" {
		apierrors.ValidationError(w, "Поля media_id, from_group_id и to_group_id обязательны")
		return
	}

	item, err := h.store.MoveItem(req.MediaID, req.FromGroupID, req.ToGroupID)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			apierrors.NotFound(w, err.Error())
		case errors.Is(err, library.ErrConflict):
			apierrors.Conflict(w, err.Error())
		default:
			apierrors.InternalError(w, "Ошибка перемещения элемента избранного")
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Lookup обрабатывает GET /api/v1/favorites/lookup?media_id=...
// Возвращает первую (в порядке списка групп) группу, содержащую медиа.
func (h *FavoritesHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	mediaID := r.URL.Query().Get("media_id")
	if mediaID == "" {
		apierrors.ValidationError(w, "Параметр media_id обязателен")
		return
	}

	groupID, found := h.store.IsFavorite(mediaID)
	resp := map[string]any{
		"media_id": mediaID,
		"favorite": found,
	}
	if found {
		resp["group_id"] = groupID
	}

	writeJSON(w, http.StatusOK, resp)
}
