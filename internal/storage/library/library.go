// Пакет library — единственный источник истины каталога медиа
// и индекса избранного.
//
// Весь агрегат LibraryState загружается один раз при старте
// (Load) и защищён одним sync.RWMutex: никакие две мутации
// не перемежают свои циклы read-modify-write. Каждая мутация
// персистирует агрегат атомарно (statefile) до возврата управления.
//
// In-memory индекс id → позиция записи перестраивается после
// каждого структурного изменения и даёт O(1) поиск без обращения
// к диску.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bigkaa/gomedialib/internal/domain/model"
	"github.com/bigkaa/gomedialib/internal/storage/statefile"
)

// Сигнальные ошибки операций каталога. Проверяются через errors.Is.
var (
	// ErrNotFound — неизвестный media id или group id
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — тип медиа не совпадает с типом группы
	ErrConflict = errors.New("тип медиа не совпадает с типом группы")
	// ErrInvalidArgument — некорректный аргумент (пустое имя группы)
	ErrInvalidArgument = errors.New("некорректный аргумент")
)

// Идентификаторы и имена групп, создаваемых при первом запуске.
const (
	seedAudioGroupID   = "g_audio"
	seedAudioGroupName = "My Audios"
	seedVideoGroupID   = "g_video"
	seedVideoGroupName = "My Videos"
)

// Store — владелец агрегата LibraryState.
type Store struct {
	mu     sync.RWMutex
	path   string
	state  *model.LibraryState
	index  map[string]int // media id → позиция в state.MediaRecords
	logger *slog.Logger
}

// New создаёт Store для файла состояния path.
// Перед использованием необходимо вызвать Load.
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		state:  model.NewLibraryState(),
		index:  make(map[string]int),
		logger: logger.With(slog.String("component", "library")),
	}
}

// Load загружает состояние с диска. Отсутствие файла — первый запуск:
// создаются две группы по умолчанию и состояние сразу персистируется.
// После загрузки выполняется сверка ссылочной целостности: висячие
// элементы избранного и списки несуществующих групп удаляются.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := statefile.Exists(s.path)
	if err != nil {
		return fmt.Errorf("ошибка проверки файла состояния: %w", err)
	}
	if !exists {
		s.seedLocked()
		s.rebuildIndexLocked()
		if err := s.persistLocked(); err != nil {
			return fmt.Errorf("ошибка сохранения начального состояния: %w", err)
		}
		s.logger.Info("Создано начальное состояние библиотеки",
			slog.String("path", s.path),
		)
		return nil
	}

	state := model.NewLibraryState()
	if err := statefile.Read(s.path, state); err != nil {
		return fmt.Errorf("ошибка загрузки состояния библиотеки: %w", err)
	}
	if state.FavoriteItemsByGroup == nil {
		state.FavoriteItemsByGroup = make(map[string][]model.FavoriteListItem)
	}
	s.state = state
	s.rebuildIndexLocked()

	repaired := s.reconcileLocked()
	if repaired > 0 {
		s.logger.Warn("Сверка состояния устранила несогласованности",
			slog.Int("repaired", repaired),
		)
		if err := s.persistLocked(); err != nil {
			return fmt.Errorf("ошибка сохранения после сверки: %w", err)
		}
	}

	s.logger.Info("Состояние библиотеки загружено",
		slog.Int("media_records", len(s.state.MediaRecords)),
		slog.Int("favorite_groups", len(s.state.FavoriteGroups)),
		slog.String("path", s.path),
	)
	return nil
}

// seedLocked создаёт группы по умолчанию. Вызывается с захваченным mu.
func (s *Store) seedLocked() {
	s.state = model.NewLibraryState()
	s.state.FavoriteGroups = []model.FavoriteGroup{
		{ID: seedAudioGroupID, Name: seedAudioGroupName, MediaType: model.TypeAudio},
		{ID: seedVideoGroupID, Name: seedVideoGroupName, MediaType: model.TypeVideo},
	}
	s.state.FavoriteItemsByGroup[seedAudioGroupID] = []model.FavoriteListItem{}
	s.state.FavoriteItemsByGroup[seedVideoGroupID] = []model.FavoriteListItem{}
}

// rebuildIndexLocked перестраивает индекс id → позиция.
// Вызывается с захваченным mu после каждого структурного изменения.
func (s *Store) rebuildIndexLocked() {
	s.index = make(map[string]int, len(s.state.MediaRecords))
	for i := range s.state.MediaRecords {
		s.index[s.state.MediaRecords[i].ID] = i
	}
}

// reconcileLocked устраняет висячие ссылки после внешнего
// повреждения файла состояния: элементы избранного без записи
// в каталоге и списки элементов несуществующих групп.
// Возвращает количество устранённых несогласованностей.
func (s *Store) reconcileLocked() int {
	repaired := 0

	knownGroups := make(map[string]bool, len(s.state.FavoriteGroups))
	for _, g := range s.state.FavoriteGroups {
		knownGroups[g.ID] = true
	}

	for groupID, items := range s.state.FavoriteItemsByGroup {
		if !knownGroups[groupID] {
			delete(s.state.FavoriteItemsByGroup, groupID)
			repaired++
			continue
		}
		kept := items[:0]
		for _, item := range items {
			if _, ok := s.index[item.MediaID]; ok {
				kept = append(kept, item)
			} else {
				repaired++
			}
		}
		s.state.FavoriteItemsByGroup[groupID] = kept
	}

	// Группа без списка элементов — допустимо после ручной правки файла
	for _, g := range s.state.FavoriteGroups {
		if _, ok := s.state.FavoriteItemsByGroup[g.ID]; !ok {
			s.state.FavoriteItemsByGroup[g.ID] = []model.FavoriteListItem{}
		}
	}

	return repaired
}

// persistLocked атомарно записывает агрегат на диск.
// Вызывается с захваченным mu до возврата из мутирующей операции.
func (s *Store) persistLocked() error {
	if err := statefile.Write(s.path, s.state); err != nil {
		return fmt.Errorf("ошибка персистентности библиотеки: %w", err)
	}
	return nil
}

// snapshotLocked делает копию агрегата перед мутацией. При сбое
// персистентности мутация откатывается из снимка (rollbackLocked) —
// память никогда не расходится с диском. Слайсы копируются: мутации
// переписывают их backing-массивы на месте.
func (s *Store) snapshotLocked() *model.LibraryState {
	snap := &model.LibraryState{
		MediaRecords:         make([]model.MediaRecord, len(s.state.MediaRecords)),
		FavoriteGroups:       make([]model.FavoriteGroup, len(s.state.FavoriteGroups)),
		FavoriteItemsByGroup: make(map[string][]model.FavoriteListItem, len(s.state.FavoriteItemsByGroup)),
	}
	copy(snap.MediaRecords, s.state.MediaRecords)
	copy(snap.FavoriteGroups, s.state.FavoriteGroups)
	for groupID, items := range s.state.FavoriteItemsByGroup {
		cp := make([]model.FavoriteListItem, len(items))
		copy(cp, items)
		snap.FavoriteItemsByGroup[groupID] = cp
	}
	return snap
}

// rollbackLocked восстанавливает агрегат из снимка и перестраивает индекс.
func (s *Store) rollbackLocked(snap *model.LibraryState) {
	s.state = snap
	s.rebuildIndexLocked()
}

// --- Каталог ---

// ListMedia возвращает проекции записей каталога с опциональной
// фильтрацией. typeFilter — точное совпадение типа ("" — без фильтра).
// keyword — регистронезависимое вхождение подстроки в title ИЛИ
// subtitle. Пагинация не выполняется — это забота edge-слоя.
func (s *Store) ListMedia(typeFilter model.MediaType, keyword string) []model.MediaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(keyword))

	items := make([]model.MediaItem, 0, len(s.state.MediaRecords))
	for i := range s.state.MediaRecords {
		rec := &s.state.MediaRecords[i]
		if typeFilter != "" && rec.Type != typeFilter {
			continue
		}
		if needle != "" {
			title := strings.ToLower(rec.Title)
			subtitle := strings.ToLower(rec.Subtitle)
			if !strings.Contains(title, needle) && !strings.Contains(subtitle, needle) {
				continue
			}
		}
		items = append(items, rec.Item())
	}
	return items
}

// Detail возвращает детальную проекцию записи.
// Возвращает ErrNotFound, если id отсутствует в индексе.
func (s *Store) Detail(id string) (model.MediaDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return model.MediaDetail{}, fmt.Errorf("медиа %s: %w", id, ErrNotFound)
	}
	return s.state.MediaRecords[pos].Detail(), nil
}

// Record возвращает копию канонической записи каталога.
func (s *Store) Record(id string) (model.MediaRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return model.MediaRecord{}, false
	}
	return s.state.MediaRecords[pos], true
}

// DeleteMedia удаляет запись каталога. Отсутствующий id — no-op,
// не ошибка. Удаление каскадно убирает запись из списков всех групп
// избранного; индекс перестраивается, агрегат персистируется.
func (s *Store) DeleteMedia(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return nil
	}

	snap := s.snapshotLocked()

	s.state.MediaRecords = append(s.state.MediaRecords[:pos], s.state.MediaRecords[pos+1:]...)

	for groupID, items := range s.state.FavoriteItemsByGroup {
		kept := items[:0]
		for _, item := range items {
			if item.MediaID != id {
				kept = append(kept, item)
			}
		}
		s.state.FavoriteItemsByGroup[groupID] = kept
	}

	s.rebuildIndexLocked()

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return err
	}

	s.logger.Info("Запись каталога удалена", slog.String("media_id", id))
	return nil
}

// ApplyImport выполняет merge батча записей против текущего индекса:
// существующий id перезаписывается (updated), новый добавляется в конец
// (inserted). Батч заранее дедуплицирован реконсилятором импорта.
//
// Если изменения были: индекс перестраивается, денормализованные
// элементы избранного с затронутыми id перегенерируются из свежих
// записей, агрегат персистируется один раз. Нулевой батч ничего
// не записывает.
func (s *Store) ApplyImport(records []model.MediaRecord) (inserted, updated int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	touched := make(map[string]bool, len(records))

	for i := range records {
		rec := records[i]
		if pos, ok := s.index[rec.ID]; ok {
			s.state.MediaRecords[pos] = rec
			updated++
		} else {
			s.state.MediaRecords = append(s.state.MediaRecords, rec)
			s.index[rec.ID] = len(s.state.MediaRecords) - 1
			inserted++
		}
		touched[rec.ID] = true
	}

	if inserted == 0 && updated == 0 {
		return 0, 0, nil
	}

	s.rebuildIndexLocked()
	s.refreshFavoritesLocked(touched)

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(snap)
		return 0, 0, err
	}

	s.logger.Info("Импорт применён к каталогу",
		slog.Int("inserted", inserted),
		slog.Int("updated", updated),
	)
	return inserted, updated, nil
}

// refreshFavoritesLocked перегенерирует элементы избранного,
// ссылающиеся на затронутые записи. Обновление происходит в той же
// транзакции персистентности, что и мутация каталога — никакой
// отложенной согласованности.
//
// Если повторный импорт сменил тип записи и он больше не совпадает
// с типом группы, элемент выбывает из группы: инвариант
// «тип элемента равен типу группы» держится и на пути импорта,
// а не только в AddItem.
func (s *Store) refreshFavoritesLocked(touched map[string]bool) {
	groupTypes := make(map[string]model.MediaType, len(s.state.FavoriteGroups))
	for _, g := range s.state.FavoriteGroups {
		groupTypes[g.ID] = g.MediaType
	}

	for groupID, items := range s.state.FavoriteItemsByGroup {
		kept := items[:0]
		changed := false
		for _, item := range items {
			if !touched[item.MediaID] {
				kept = append(kept, item)
				continue
			}
			pos, ok := s.index[item.MediaID]
			if !ok {
				kept = append(kept, item)
				continue
			}
			rec := &s.state.MediaRecords[pos]
			if rec.Type != groupTypes[groupID] {
				changed = true
				continue
			}
			kept = append(kept, model.BuildFavoriteItem(rec))
			changed = true
		}
		if changed {
			s.state.FavoriteItemsByGroup[groupID] = kept
		}
	}
}

// ExportJSON возвращает агрегат в том же формате, что и файл
// состояния: pretty JSON, пригодный для повторного импорта.
func (s *Store) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statefile.Marshal(s.state)
}

// --- Счётчики для метрик ---

// CountMedia возвращает количество записей каталога указанного типа
// ("" — всего).
func (s *Store) CountMedia(typeFilter model.MediaType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if typeFilter == "" {
		return len(s.state.MediaRecords)
	}
	count := 0
	for i := range s.state.MediaRecords {
		if s.state.MediaRecords[i].Type == typeFilter {
			count++
		}
	}
	return count
}

// CountGroups возвращает количество групп избранного.
func (s *Store) CountGroups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.FavoriteGroups)
}

// CountFavoriteItems возвращает суммарное количество элементов
// во всех группах.
func (s *Store) CountFavoriteItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, items := range s.state.FavoriteItemsByGroup {
		total += len(items)
	}
	return total
}

// newGroupID генерирует непрозрачный идентификатор группы: "g_" + 8 hex.
func newGroupID() string {
	return "g_" + uuid.New().String()[:8]
}
