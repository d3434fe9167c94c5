package statefile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

// TestWriteAndRead проверяет запись и чтение документа состояния.
func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	doc := testDoc{Name: "библиотека", Count: 42, Tags: []string{"a", "b"}}

	if err := Write(path, doc); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	var got testDoc
	if err := Read(path, &got); err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}

	if got.Name != doc.Name {
		t.Errorf("Name: ожидалось %q, получено %q", doc.Name, got.Name)
	}
	if got.Count != doc.Count {
		t.Errorf("Count: ожидалось %d, получено %d", doc.Count, got.Count)
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags: ожидалось 2 тега, получено %d", len(got.Tags))
	}
}

// TestWrite_AtomicNoTmpFile проверяет, что temp файл не остаётся после записи.
func TestWrite_AtomicNoTmpFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	if err := Write(path, testDoc{Name: "x"}); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("временный файл не должен существовать после атомарной записи")
	}
}

// TestWrite_CreatesParentDir проверяет создание родительской директории.
func TestWrite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "state.json")

	if err := Write(path, testDoc{Name: "x"}); err != nil {
		t.Fatalf("ошибка записи во вложенную директорию: %v", err)
	}

	exists, err := Exists(path)
	if err != nil {
		t.Fatalf("ошибка проверки: %v", err)
	}
	if !exists {
		t.Error("файл должен существовать после записи")
	}
}

// TestWrite_OverwriteExisting проверяет перезапись существующего файла.
func TestWrite_OverwriteExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	if err := Write(path, testDoc{Name: "первая", Count: 1}); err != nil {
		t.Fatalf("ошибка первой записи: %v", err)
	}
	if err := Write(path, testDoc{Name: "вторая", Count: 2}); err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}

	var got testDoc
	if err := Read(path, &got); err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if got.Name != "вторая" || got.Count != 2 {
		t.Errorf("документ не перезаписан: %+v", got)
	}
}

// TestRead_NotFound проверяет ошибку при чтении несуществующего файла.
func TestRead_NotFound(t *testing.T) {
	var got testDoc
	if err := Read("/nonexistent/path/state.json", &got); err == nil {
		t.Error("ожидалась ошибка для несуществующего файла")
	}
}

// TestRead_InvalidJSON проверяет ошибку при невалидном JSON.
func TestRead_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o640); err != nil {
		t.Fatalf("ошибка создания файла: %v", err)
	}

	var got testDoc
	if err := Read(path, &got); err == nil {
		t.Error("ожидалась ошибка для невалидного JSON")
	}
}

// TestExists проверяет определение наличия файла состояния.
func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	exists, err := Exists(path)
	if err != nil {
		t.Fatalf("отсутствие файла не должно быть ошибкой: %v", err)
	}
	if exists {
		t.Error("файл ещё не создан")
	}

	if err := Write(path, testDoc{}); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	exists, err = Exists(path)
	if err != nil {
		t.Fatalf("ошибка проверки: %v", err)
	}
	if !exists {
		t.Error("файл должен существовать")
	}
}

// TestExists_StatError проверяет, что недоступность файла (нет прав
// на директорию) возвращается ошибкой, а не принимается за отсутствие.
func TestExists_StatError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "state.json")
	if err := Write(path, testDoc{Name: "x"}); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	// Без бита x stat внутри директории невозможен
	if err := os.Chmod(dir, 0o600); err != nil {
		t.Fatalf("ошибка chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })

	if _, err := Exists(path); err == nil {
		t.Error("ожидалась ошибка stat для недоступной директории")
	}
}

// TestMarshal_PrettyJSON проверяет, что Marshal даёт отформатированный JSON.
func TestMarshal_PrettyJSON(t *testing.T) {
	data, err := Marshal(testDoc{Name: "x", Count: 1})
	if err != nil {
		t.Fatalf("ошибка сериализации: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("пустой результат сериализации")
	}
	// Pretty JSON содержит переводы строк
	if bytes.IndexByte(data, '\n') < 0 {
		t.Error("ожидался отформатированный JSON с переводами строк")
	}
}
