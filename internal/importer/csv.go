// csv.go — разбор табличного входа импорта.
// Полный RFC-4180 разбор (кавычки, запятые и переводы строк внутри
// полей, удвоенные кавычки, \n и \r\n) делает encoding/csv;
// поверх него — нормализация заголовка и маппинг колонок на поля.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// urlColumnAliases — принимаемые имена колонки источника URL
// (после нормализации заголовка).
var urlColumnAliases = []string{"url", "media_url", "source_url"}

// rawRow — сырая строка импорта до доменного преобразования.
// Строковые поля не обрезаны; Tags может прийти либо готовым
// списком (JSON), либо строкой с разделителями (CSV/JSON).
type rawRow struct {
	url        string
	title      string
	subtitle   string
	mediaType  string
	duration   string
	durationMS string
	thumbURL   string
	format     string
	status     string
	tagsText   string
	tagsList   []string
	hasTagList bool
}

// normalizeHeader приводит имя колонки к канонической форме:
// обрезка, удаление BOM, нижний регистр, "-" и пробел → "_".
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// parseCSV разбирает CSV-файл в сырые строки импорта.
// Первая строка — обязательный заголовок. Неизвестные колонки
// игнорируются. Отсутствие URL-колонки — MissingColumnError
// до обработки каких-либо строк данных.
func parseCSV(data []byte) ([]rawRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	// Строки с разным числом полей допустимы: хвостовые пустые
	// колонки часто теряются при ручном редактировании
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &UnreadableInputError{Reason: "файл пуст, заголовочная строка обязательна"}
		}
		return nil, &UnreadableInputError{Reason: err.Error()}
	}

	// Колонка → индекс после нормализации имён
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}

	urlIdx := -1
	for _, alias := range urlColumnAliases {
		if idx, ok := columns[alias]; ok {
			urlIdx = idx
			break
		}
	}
	if urlIdx < 0 {
		return nil, &MissingColumnError{Aliases: urlColumnAliases}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []rawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &UnreadableInputError{Reason: err.Error()}
		}
		if urlIdx >= len(record) {
			// Строка короче заголовка и не дотягивает до URL-колонки
			rows = append(rows, rawRow{})
			continue
		}

		rows = append(rows, rawRow{
			url:       record[urlIdx],
			title:     field(record, "title"),
			subtitle:  field(record, "subtitle"),
			mediaType: field(record, "type"),
			duration:  field(record, "duration"),
			durationMS: firstNonEmpty(
				field(record, "duration_ms"),
				field(record, "durationms"),
			),
			thumbURL: firstNonEmpty(
				field(record, "thumb_url"),
				field(record, "thumburl"),
			),
			format:   field(record, "format"),
			status:   field(record, "status"),
			tagsText: field(record, "tags"),
		})
	}

	return rows, nil
}

// firstNonEmpty возвращает первое непустое значение.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
