package library

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigkaa/gomedialib/internal/domain/model"
	"github.com/bigkaa/gomedialib/internal/storage/statefile"
)

// testLogger создаёт логгер для тестов (только ошибки).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestStore создаёт и загружает Store во временной директории.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "library.json"), testLogger())
	if err := s.Load(); err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}
	return s
}

// testRecord создаёт запись каталога с заданным id.
func testRecord(id string, mediaType model.MediaType) model.MediaRecord {
	return model.MediaRecord{
		ID:         id,
		URL:        id,
		Type:       mediaType,
		Title:      "Track " + id,
		Status:     model.StatusReady,
		Format:     "mp3",
		DurationMS: 180000,
	}
}

// TestLoad_FirstRunSeedsDefaultGroups проверяет создание групп
// по умолчанию при первом запуске.
func TestLoad_FirstRunSeedsDefaultGroups(t *testing.T) {
	s := newTestStore(t)

	groups := s.ListGroups()
	if len(groups) != 2 {
		t.Fatalf("ожидалось 2 группы по умолчанию, получено %d", len(groups))
	}
	if groups[0].ID != seedAudioGroupID || groups[0].Name != seedAudioGroupName {
		t.Errorf("первая группа: ожидалось %s/%s, получено %s/%s",
			seedAudioGroupID, seedAudioGroupName, groups[0].ID, groups[0].Name)
	}
	if groups[1].ID != seedVideoGroupID || groups[1].MediaType != model.TypeVideo {
		t.Errorf("вторая группа: ожидалось %s/video, получено %s/%s",
			seedVideoGroupID, groups[1].ID, groups[1].MediaType)
	}

	// Начальное состояние персистировано
	exists, err := statefile.Exists(s.path)
	if err != nil {
		t.Fatalf("ошибка проверки файла состояния: %v", err)
	}
	if !exists {
		t.Error("файл состояния должен быть создан при первом запуске")
	}
}

// TestLoad_ReloadPreservesState проверяет, что повторная загрузка
// видит данные предыдущего экземпляра.
func TestLoad_ReloadPreservesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")

	s1 := New(path, testLogger())
	if err := s1.Load(); err != nil {
		t.Fatalf("ошибка первой загрузки: %v", err)
	}
	if _, _, err := s1.ApplyImport([]model.MediaRecord{
		testRecord("https://cdn.example.com/a.mp3", model.TypeAudio),
	}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}

	s2 := New(path, testLogger())
	if err := s2.Load(); err != nil {
		t.Fatalf("ошибка повторной загрузки: %v", err)
	}
	if s2.CountMedia("") != 1 {
		t.Errorf("ожидалась 1 запись после перезагрузки, получено %d", s2.CountMedia(""))
	}
	if _, ok := s2.Record("https://cdn.example.com/a.mp3"); !ok {
		t.Error("запись не найдена после перезагрузки")
	}
}

// TestApplyImport_InsertThenUpdate проверяет merge: первый импорт
// даёт inserted, повторный тех же id — updated.
func TestApplyImport_InsertThenUpdate(t *testing.T) {
	s := newTestStore(t)

	batch := []model.MediaRecord{
		testRecord("https://cdn.example.com/a.mp3", model.TypeAudio),
		testRecord("https://cdn.example.com/b.mp3", model.TypeAudio),
	}

	inserted, updated, err := s.ApplyImport(batch)
	if err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}
	if inserted != 2 || updated != 0 {
		t.Errorf("первый импорт: ожидалось inserted=2 updated=0, получено %d/%d", inserted, updated)
	}

	batch[0].Title = "Обновлённый заголовок"
	inserted, updated, err = s.ApplyImport(batch)
	if err != nil {
		t.Fatalf("ошибка повторного импорта: %v", err)
	}
	if inserted != 0 || updated != 2 {
		t.Errorf("повторный импорт: ожидалось inserted=0 updated=2, получено %d/%d", inserted, updated)
	}

	rec, ok := s.Record("https://cdn.example.com/a.mp3")
	if !ok || rec.Title != "Обновлённый заголовок" {
		t.Errorf("запись не перезаписана: %+v", rec)
	}
	if s.CountMedia("") != 2 {
		t.Errorf("дубликаты в каталоге: ожидалось 2 записи, получено %d", s.CountMedia(""))
	}
}

// TestApplyImport_RefreshesFavorites проверяет перегенерацию
// денормализованных элементов избранного при обновлении записи.
func TestApplyImport_RefreshesFavorites(t *testing.T) {
	s := newTestStore(t)
	id := "https://cdn.example.com/a.mp3"

	if _, _, err := s.ApplyImport([]model.MediaRecord{testRecord(id, model.TypeAudio)}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}
	if _, err := s.AddItem(seedAudioGroupID, id); err != nil {
		t.Fatalf("ошибка добавления в избранное: %v", err)
	}

	rec := testRecord(id, model.TypeAudio)
	rec.Title = "Новый заголовок"
	if _, _, err := s.ApplyImport([]model.MediaRecord{rec}); err != nil {
		t.Fatalf("ошибка повторного импорта: %v", err)
	}

	items := s.ListItems(seedAudioGroupID)
	if len(items) != 1 {
		t.Fatalf("ожидался 1 элемент избранного, получено %d", len(items))
	}
	if items[0].Title != "Новый заголовок" {
		t.Errorf("элемент избранного не перегенерирован: %q", items[0].Title)
	}
}

// TestListMedia_Filters проверяет фильтрацию по типу и подстроке.
func TestListMedia_Filters(t *testing.T) {
	s := newTestStore(t)

	a := testRecord("https://cdn.example.com/morning.mp3", model.TypeAudio)
	a.Title = "Morning Jazz"
	b := testRecord("https://cdn.example.com/evening.mp4", model.TypeVideo)
	b.Title = "Evening Show"
	b.Subtitle = "Jazz night"
	if _, _, err := s.ApplyImport([]model.MediaRecord{a, b}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}

	if got := len(s.ListMedia("", "")); got != 2 {
		t.Errorf("без фильтров: ожидалось 2, получено %d", got)
	}
	if got := len(s.ListMedia(model.TypeAudio, "")); got != 1 {
		t.Errorf("фильтр по типу: ожидалось 1, получено %d", got)
	}
	// Подстрока ищется в title И subtitle, регистронезависимо
	if got := len(s.ListMedia("", "JAZZ")); got != 2 {
		t.Errorf("поиск по подстроке: ожидалось 2, получено %d", got)
	}
	if got := len(s.ListMedia(model.TypeVideo, "jazz")); got != 1 {
		t.Errorf("тип+подстрока: ожидалось 1, получено %d", got)
	}
	if got := len(s.ListMedia("", "отсутствует")); got != 0 {
		t.Errorf("несовпадающая подстрока: ожидалось 0, получено %d", got)
	}
}

// TestDetail_NotFound проверяет ErrNotFound для неизвестного id.
func TestDetail_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Detail("https://cdn.example.com/missing.mp3")
	if err == nil {
		t.Fatal("ожидалась ошибка для неизвестного id")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено: %v", err)
	}
}

// TestDeleteMedia_CascadesFromAllGroups проверяет каскадное удаление
// записи из всех групп избранного.
func TestDeleteMedia_CascadesFromAllGroups(t *testing.T) {
	s := newTestStore(t)
	id := "https://cdn.example.com/a.mp3"

	if _, _, err := s.ApplyImport([]model.MediaRecord{testRecord(id, model.TypeAudio)}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}

	extra, err := s.CreateGroup("Вторая группа", model.TypeAudio)
	if err != nil {
		t.Fatalf("ошибка создания группы: %v", err)
	}
	if _, err := s.AddItem(seedAudioGroupID, id); err != nil {
		t.Fatalf("ошибка добавления в первую группу: %v", err)
	}
	if _, err := s.AddItem(extra.ID, id); err != nil {
		t.Fatalf("ошибка добавления во вторую группу: %v", err)
	}

	if err := s.DeleteMedia(id); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	if _, ok := s.Record(id); ok {
		t.Error("запись должна быть удалена из каталога")
	}
	if got := len(s.ListItems(seedAudioGroupID)); got != 0 {
		t.Errorf("первая группа: ожидалось 0 элементов, получено %d", got)
	}
	if got := len(s.ListItems(extra.ID)); got != 0 {
		t.Errorf("вторая группа: ожидалось 0 элементов, получено %d", got)
	}
}

// TestDeleteMedia_MissingIsNoop проверяет, что удаление
// несуществующей записи — не ошибка.
func TestDeleteMedia_MissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteMedia("https://cdn.example.com/missing.mp3"); err != nil {
		t.Errorf("удаление несуществующей записи не должно возвращать ошибку: %v", err)
	}
}

// TestLoad_ReconcileRemovesDanglingItems проверяет сверку: висячие
// элементы избранного удаляются при загрузке повреждённого файла.
func TestLoad_ReconcileRemovesDanglingItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")

	// Состояние с элементом избранного без записи в каталоге
	// и списком элементов несуществующей группы
	state := model.NewLibraryState()
	state.FavoriteGroups = []model.FavoriteGroup{
		{ID: "g_audio", Name: "My Audios", MediaType: model.TypeAudio},
	}
	state.FavoriteItemsByGroup["g_audio"] = []model.FavoriteListItem{
		{ID: "dangling", MediaID: "https://cdn.example.com/ghost.mp3", MediaType: model.TypeAudio},
	}
	state.FavoriteItemsByGroup["g_ghost"] = []model.FavoriteListItem{}
	if err := statefile.Write(path, state); err != nil {
		t.Fatalf("ошибка подготовки файла: %v", err)
	}

	s := New(path, testLogger())
	if err := s.Load(); err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}

	if got := len(s.ListItems("g_audio")); got != 0 {
		t.Errorf("висячий элемент должен быть удалён, осталось %d", got)
	}

	// Исправленное состояние персистировано
	var onDisk model.LibraryState
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("ошибка разбора файла: %v", err)
	}
	if len(onDisk.FavoriteItemsByGroup["g_audio"]) != 0 {
		t.Error("сверка должна персистировать исправленное состояние")
	}
	if _, ok := onDisk.FavoriteItemsByGroup["g_ghost"]; ok {
		t.Error("список несуществующей группы должен быть удалён")
	}
}

// TestExportJSON_Roundtrip проверяет, что экспорт читается обратно
// как состояние библиотеки.
func TestExportJSON_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.ApplyImport([]model.MediaRecord{
		testRecord("https://cdn.example.com/a.mp3", model.TypeAudio),
	}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}

	data, err := s.ExportJSON()
	if err != nil {
		t.Fatalf("ошибка экспорта: %v", err)
	}

	var state model.LibraryState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("экспорт не разбирается как состояние: %v", err)
	}
	if len(state.MediaRecords) != 1 {
		t.Errorf("ожидалась 1 запись в экспорте, получено %d", len(state.MediaRecords))
	}
	if len(state.FavoriteGroups) != 2 {
		t.Errorf("ожидалось 2 группы в экспорте, получено %d", len(state.FavoriteGroups))
	}
}

// TestApplyImport_TypeChangeEvictsFromGroup проверяет, что повторный
// импорт, сменивший тип записи, выводит элемент из группы прежнего
// типа: инвариант «тип элемента равен типу группы» держится
// и на пути импорта.
func TestApplyImport_TypeChangeEvictsFromGroup(t *testing.T) {
	s := newTestStore(t)
	id := "https://cdn.example.com/a.mp3"

	if _, _, err := s.ApplyImport([]model.MediaRecord{testRecord(id, model.TypeAudio)}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}
	if _, err := s.AddItem(seedAudioGroupID, id); err != nil {
		t.Fatalf("ошибка добавления в избранное: %v", err)
	}

	// Тот же URL, но теперь видео
	rec := testRecord(id, model.TypeVideo)
	rec.Format = "mp4"
	if _, _, err := s.ApplyImport([]model.MediaRecord{rec}); err != nil {
		t.Fatalf("ошибка повторного импорта: %v", err)
	}

	got, ok := s.Record(id)
	if !ok || got.Type != model.TypeVideo {
		t.Fatalf("запись должна смениться на video: %+v", got)
	}
	for _, item := range s.ListItems(seedAudioGroupID) {
		if item.MediaID == id {
			t.Errorf("в аудио-группе остался элемент типа %s (media_id=%s)", got.Type, id)
		}
	}
	if _, found := s.IsFavorite(id); found {
		t.Error("запись не должна числиться в избранном после смены типа")
	}

	// Совпадающий тип элемент не трогает
	if _, err := s.AddItem(seedVideoGroupID, id); err != nil {
		t.Fatalf("ошибка добавления в видео-группу: %v", err)
	}
	rec.Title = "Обновлённое название"
	if _, _, err := s.ApplyImport([]model.MediaRecord{rec}); err != nil {
		t.Fatalf("ошибка повторного импорта: %v", err)
	}
	items := s.ListItems(seedVideoGroupID)
	if len(items) != 1 || items[0].Title != "Обновлённое название" {
		t.Errorf("элемент совпадающего типа должен обновиться на месте: %+v", items)
	}
}

// TestPersistFailure_RollsBackMemory проверяет, что при сбое записи
// на диск мутация откатывается: память не расходится с диском.
func TestPersistFailure_RollsBackMemory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := New(filepath.Join(dir, "library.json"), testLogger())
	if err := s.Load(); err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}
	id := "https://cdn.example.com/a.mp3"
	if _, _, err := s.ApplyImport([]model.MediaRecord{testRecord(id, model.TypeAudio)}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}

	// Директория данных недоступна для записи — персистентность падает
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("ошибка chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })

	if _, err := s.AddItem(seedAudioGroupID, id); err == nil {
		t.Fatal("ожидалась ошибка персистентности")
	}
	if got := len(s.ListItems(seedAudioGroupID)); got != 0 {
		t.Errorf("несохранённый элемент должен откатиться: %d", got)
	}

	ghost := "https://cdn.example.com/ghost.mp3"
	if _, _, err := s.ApplyImport([]model.MediaRecord{testRecord(ghost, model.TypeAudio)}); err == nil {
		t.Fatal("ожидалась ошибка персистентности импорта")
	}
	if _, ok := s.Record(ghost); ok {
		t.Error("несохранённая запись должна откатиться")
	}
	if got := s.CountMedia(""); got != 1 {
		t.Errorf("каталог должен остаться прежним: %d записей", got)
	}

	// После восстановления диска операция проходит
	if err := os.Chmod(dir, 0o750); err != nil {
		t.Fatalf("ошибка chmod: %v", err)
	}
	if _, err := s.AddItem(seedAudioGroupID, id); err != nil {
		t.Fatalf("операция после восстановления диска: %v", err)
	}
	if got := len(s.ListItems(seedAudioGroupID)); got != 1 {
		t.Errorf("ожидался 1 элемент, получено %d", got)
	}
}

// TestLoad_StatErrorIsNotFirstRun проверяет, что недоступный файл
// состояния — ошибка загрузки, а не первый запуск: существующее
// состояние не затирается начальным.
func TestLoad_StatErrorIsNotFirstRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "library.json")

	s1 := New(path, testLogger())
	if err := s1.Load(); err != nil {
		t.Fatalf("ошибка первой загрузки: %v", err)
	}
	if _, _, err := s1.ApplyImport([]model.MediaRecord{testRecord("https://cdn.example.com/a.mp3", model.TypeAudio)}); err != nil {
		t.Fatalf("ошибка импорта: %v", err)
	}

	// Без бита x stat внутри директории невозможен
	if err := os.Chmod(dir, 0o600); err != nil {
		t.Fatalf("ошибка chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })

	s2 := New(path, testLogger())
	if err := s2.Load(); err == nil {
		t.Fatal("ожидалась ошибка загрузки при недоступном файле состояния")
	}

	// Состояние на диске не тронуто
	if err := os.Chmod(dir, 0o750); err != nil {
		t.Fatalf("ошибка chmod: %v", err)
	}
	s3 := New(path, testLogger())
	if err := s3.Load(); err != nil {
		t.Fatalf("ошибка повторной загрузки: %v", err)
	}
	if got := s3.CountMedia(""); got != 1 {
		t.Errorf("существующее состояние затёрто: %d записей", got)
	}
}
