// Пакет statefile — атомарная запись и чтение JSON-документов состояния.
// Библиотека хранит весь агрегат в одном файле (library.json), поэтому
// запись обязана быть атомарной на уровне файловой системы:
// temp файл → fsync → rename. Падение между мутацией и персистентностью
// никогда не оставляет полузаписанный файл.
package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Write атомарно сериализует v в JSON и записывает в path.
// Документ форматируется с отступами для diff-friendly хранения.
// Паттерн: JSON → temp файл → fsync → atomic rename.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации состояния: %w", err)
	}

	// Создаём директорию если не существует
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Read читает и десериализует JSON-документ из path в v.
// Возвращает os.ErrNotExist (обёрнутую), если файл отсутствует —
// вызывающий код решает, считать ли это первым запуском.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка десериализации %s: %w", path, err)
	}

	return nil
}

// Exists проверяет наличие файла состояния. Ошибка stat, отличная
// от «не существует» (нет прав, недоступная директория), возвращается
// вызывающему: её нельзя путать с первым запуском — иначе существующее
// состояние будет затёрто начальным.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("ошибка проверки %s: %w", path, err)
}

// Marshal сериализует v так же, как Write — с отступами.
// Используется для экспорта библиотеки без записи на диск.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации состояния: %w", err)
	}
	return data, nil
}
