// favorites.go — операции над группами избранного и их элементами.
// Инвариант: каждый элемент группы имеет media_type, совпадающий
// с типом группы; count группы — всегда длина её списка элементов.
package library

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/gomedialib/internal/domain/model"
)

// ListGroups возвращает группы избранного (новые первыми).
// Count каждой группы вычисляется из длины её списка элементов.
func (s *Store) ListGroups() []model.FavoriteGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]model.FavoriteGroup, 0, len(s.state.FavoriteGroups))
	for _, g := range s.state.FavoriteGroups {
		g.Count = len(s.state.FavoriteItemsByGroup[g.ID])
		groups = append(groups, g)
	}
	return groups
}

// CreateGroup создаёт группу избранного и вставляет её в начало списка.
// Имя обрезается; пустое после trim имя — ErrInvalidArgument.
func (s *Store) CreateGroup(name string, mediaType model.MediaType) (model.FavoriteGroup, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.FavoriteGroup{}, fmt.Errorf("имя группы не может быть пустым: %w", ErrInvalidArgument)
	}
	if !mediaType.IsValid() {
		return model.FavoriteGroup{}, fmt.Errorf("недопустимый тип медиа %q: %w", mediaType, ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group := model.FavoriteGroup{
		ID:        newGroupID(),
		Name:      trimmed,
		MediaType: mediaType,
	}

	snap := s.snapshotLocked()
	s.state.FavoriteGroups = append([]model.FavoriteGroup{group}, s.state.FavoriteGroups...)
	s.state.FavoriteItemsByGroup[group.ID] = []model.FavoriteListItem{}

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return model.FavoriteGroup{}, err
	}

	s.logger.Info("Группа избранного создана",
		slog.String("group_id", group.ID),
		slog.String("name", group.Name),
		slog.String("media_type", string(group.MediaType)),
	)
	return group, nil
}

// DeleteGroup удаляет группу и каскадно её список элементов.
// Отсутствующая группа — no-op.
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()

	found := false
	kept := s.state.FavoriteGroups[:0]
	for _, g := range s.state.FavoriteGroups {
		if g.ID == id {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return nil
	}

	s.state.FavoriteGroups = kept
	delete(s.state.FavoriteItemsByGroup, id)

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return err
	}

	s.logger.Info("Группа избранного удалена", slog.String("group_id", id))
	return nil
}

// ListItems возвращает элементы группы (новые первыми).
// Неизвестная группа даёт пустой список — как и пустая группа.
func (s *Store) ListItems(groupID string) []model.FavoriteListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.state.FavoriteItemsByGroup[groupID]
	out := make([]model.FavoriteListItem, len(items))
	copy(out, items)
	return out
}

// AddItem добавляет запись каталога в группу избранного.
// Ошибки: ErrNotFound — неизвестная группа или запись;
// ErrConflict — тип записи не совпадает с типом группы.
// Повторное добавление идемпотентно: возвращается существующий
// элемент, список не меняется. Новый элемент вставляется в начало.
func (s *Store) AddItem(groupID, mediaID string) (model.FavoriteListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groupLocked(groupID)
	if !ok {
		return model.FavoriteListItem{}, fmt.Errorf("группа %s: %w", groupID, ErrNotFound)
	}

	pos, ok := s.index[mediaID]
	if !ok {
		return model.FavoriteListItem{}, fmt.Errorf("медиа %s: %w", mediaID, ErrNotFound)
	}
	rec := &s.state.MediaRecords[pos]

	if rec.Type != group.MediaType {
		return model.FavoriteListItem{}, fmt.Errorf("медиа %s имеет тип %s, группа %s требует %s: %w",
			mediaID, rec.Type, groupID, group.MediaType, ErrConflict)
	}

	items := s.state.FavoriteItemsByGroup[groupID]
	for _, item := range items {
		if item.MediaID == mediaID {
			return item, nil
		}
	}

	snap := s.snapshotLocked()
	item := model.BuildFavoriteItem(rec)
	s.state.FavoriteItemsByGroup[groupID] = append([]model.FavoriteListItem{item}, items...)

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return model.FavoriteListItem{}, err
	}

	s.logger.Debug("Элемент добавлен в избранное",
		slog.String("group_id", groupID),
		slog.String("media_id", mediaID),
	)
	return item, nil
}

// RemoveItem убирает запись из группы. Отсутствующий элемент — no-op.
func (s *Store) RemoveItem(groupID, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.state.FavoriteItemsByGroup[groupID]
	if !ok {
		return nil
	}

	snap := s.snapshotLocked()

	kept := items[:0]
	removed := false
	for _, item := range items {
		if item.MediaID == mediaID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return nil
	}

	s.state.FavoriteItemsByGroup[groupID] = kept

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return err
	}

	s.logger.Debug("Элемент убран из избранного",
		slog.String("group_id", groupID),
		slog.String("media_id", mediaID),
	)
	return nil
}

// MoveItem переносит запись из одной группы в другую одной
// персистируемой транзакцией. Валидация целевой группы и записи —
// до каких-либо изменений: ErrNotFound / ErrConflict.
func (s *Store) MoveItem(mediaID, fromGroupID, toGroupID string) (model.FavoriteListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	toGroup, ok := s.groupLocked(toGroupID)
	if !ok {
		return model.FavoriteListItem{}, fmt.Errorf("группа %s: %w", toGroupID, ErrNotFound)
	}

	pos, ok := s.index[mediaID]
	if !ok {
		return model.FavoriteListItem{}, fmt.Errorf("медиа %s: %w", mediaID, ErrNotFound)
	}
	rec := &s.state.MediaRecords[pos]

	if rec.Type != toGroup.MediaType {
		return model.FavoriteListItem{}, fmt.Errorf("медиа %s имеет тип %s, группа %s требует %s: %w",
			mediaID, rec.Type, toGroupID, toGroup.MediaType, ErrConflict)
	}

	snap := s.snapshotLocked()

	// Убираем из исходной группы (отсутствие — no-op)
	if items, ok := s.state.FavoriteItemsByGroup[fromGroupID]; ok {
		kept := items[:0]
		for _, item := range items {
			if item.MediaID != mediaID {
				kept = append(kept, item)
			}
		}
		s.state.FavoriteItemsByGroup[fromGroupID] = kept
	}

	// Добавляем в целевую группу идемпотентно
	items := s.state.FavoriteItemsByGroup[toGroupID]
	var moved model.FavoriteListItem
	exists := false
	for _, item := range items {
		if item.MediaID == mediaID {
			moved = item
			exists = true
			break
		}
	}
	if !exists {
		moved = model.BuildFavoriteItem(rec)
		s.state.FavoriteItemsByGroup[toGroupID] = append([]model.FavoriteListItem{moved}, items...)
	}

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return model.FavoriteListItem{}, err
	}

	s.logger.Debug("Элемент перенесён между группами",
		slog.String("media_id", mediaID),
		slog.String("from", fromGroupID),
		slog.String("to", toGroupID),
	)
	return moved, nil
}

// IsFavorite возвращает id первой группы, содержащей запись,
// и false, если запись не находится ни в одной группе.
func (s *Store) IsFavorite(mediaID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Порядок обхода групп детерминирован списком групп, не картой
	for _, g := range s.state.FavoriteGroups {
		for _, item := range s.state.FavoriteItemsByGroup[g.ID] {
			if item.MediaID == mediaID {
				return g.ID, true
			}
		}
	}
	return "", false
}

// groupLocked ищет группу по id. Вызывается с захваченным mu.
func (s *Store) groupLocked(id string) (model.FavoriteGroup, bool) {
	for _, g := range s.state.FavoriteGroups {
		if g.ID == id {
			return g, true
		}
	}
	return model.FavoriteGroup{}, false
}
