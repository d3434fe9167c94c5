// json.go — разбор структурного входа импорта.
// Принимаются две формы: голый массив записей или объект
// {"items": [...]}. Скалярные значения полей могут приходить
// строкой, целым или дробным числом — flexString коерсит их
// в строку явным union-декодером, без рефлексии.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flexString — строковое поле, принимающее string, int и float.
// Числа сохраняются в исходном текстовом виде ("90", "90.5"),
// что позволяет дальнейшему разбору длительности работать
// одинаково для обоих представлений.
type flexString string

// UnmarshalJSON реализует lossy-but-permissive декодирование скаляра.
func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	// Число: проверяем валидность и сохраняем исходный текст
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("значение не является строкой или числом: %s", string(trimmed))
	}
	*f = flexString(n.String())
	return nil
}

// flexTags — поле тегов: либо нативный список, либо строка
// с разделителями.
type flexTags struct {
	list    []string
	text    string
	hasList bool
}

// UnmarshalJSON принимает массив скаляров или одиночный скаляр.
func (t *flexTags) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		t.list = make([]string, 0, len(items))
		for _, item := range items {
			t.list = append(t.list, string(item))
		}
		t.hasList = true
		return nil
	}

	var s flexString
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return err
	}
	t.text = string(s)
	return nil
}

// importRecord — распознаваемые поля одной записи импорта.
// Дублирующиеся написания (duration_ms/durationMS, thumb_url/thumbURL)
// принимаются отдельными полями; приоритет у snake_case.
type importRecord struct {
	URL          flexString `json:"url"`
	Title        flexString `json:"title"`
	Subtitle     flexString `json:"subtitle"`
	Type         flexString `json:"type"`
	Duration     flexString `json:"duration"`
	DurationMS   flexString `json:"duration_ms"`
	DurationMSCC flexString `json:"durationMS"`
	ThumbURL     flexString `json:"thumb_url"`
	ThumbURLCC   flexString `json:"thumbURL"`
	Format       flexString `json:"format"`
	Status       flexString `json:"status"`
	Tags         flexTags   `json:"tags"`
}

// parseJSON разбирает JSON-файл в сырые строки импорта.
// Ни одна из двух принимаемых форм — UnreadableInputError.
func parseJSON(data []byte) ([]rawRow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &UnreadableInputError{Reason: "файл пуст"}
	}

	var records []importRecord

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &UnreadableInputError{Reason: err.Error()}
		}
	case '{':
		var wrapper struct {
			Items []importRecord `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, &UnreadableInputError{Reason: err.Error()}
		}
		if wrapper.Items == nil {
			return nil, &UnreadableInputError{Reason: "объект не содержит списка items"}
		}
		records = wrapper.Items
	default:
		return nil, &UnreadableInputError{Reason: "ожидался JSON-массив или объект с ключом items"}
	}

	rows := make([]rawRow, 0, len(records))
	for _, rec := range records {
		row := rawRow{
			url:        string(rec.URL),
			title:      string(rec.Title),
			subtitle:   string(rec.Subtitle),
			mediaType:  string(rec.Type),
			duration:   string(rec.Duration),
			durationMS: firstNonEmpty(string(rec.DurationMS), string(rec.DurationMSCC)),
			thumbURL:   firstNonEmpty(string(rec.ThumbURL), string(rec.ThumbURLCC)),
			format:     string(rec.Format),
			status:     string(rec.Status),
		}
		if rec.Tags.hasList {
			row.tagsList = rec.Tags.list
			row.hasTagList = true
		} else {
			row.tagsText = rec.Tags.text
		}
		rows = append(rows, row)
	}

	return rows, nil
}
