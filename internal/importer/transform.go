// transform.go — преобразование сырой строки импорта в запись каталога.
// Все эвристики разрешения полей собраны здесь: валидация URL
// с percent-escape retry, вывод типа, разбор длительности, теги,
// fallback'и заголовка и формата.
package importer

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/bigkaa/gomedialib/internal/domain/model"
)

// Вывод типа по расширению файла.
var (
	videoExtensions = map[string]bool{
		"mp4": true, "mov": true, "mkv": true, "webm": true, "m4v": true,
	}
	audioExtensions = map[string]bool{
		"mp3": true, "m4a": true, "aac": true, "flac": true, "wav": true, "ogg": true,
	}
)

// buildRecord преобразует сырую строку в запись каталога.
// Возвращает ok=false, если строку следует пропустить
// (невалидный URL). Канонический URL становится id записи.
func buildRecord(row rawRow) (model.MediaRecord, bool) {
	canonical, parsed, ok := resolveURL(row.url)
	if !ok {
		return model.MediaRecord{}, false
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))

	rec := model.MediaRecord{
		ID:         canonical,
		URL:        canonical,
		Type:       resolveType(row.mediaType, ext),
		Title:      resolveTitle(row.title, parsed),
		Subtitle:   strings.TrimSpace(row.subtitle),
		Status:     resolveStatus(row.status),
		Tags:       resolveTags(row),
		Format:     resolveFormat(row.format, ext),
		DurationMS: resolveDuration(row.durationMS, row.duration),
		ThumbURL:   strings.TrimSpace(row.thumbURL),
	}
	return rec, true
}

// resolveURL валидирует URL источника. Строка обрезается; если она
// не разбирается как абсолютный URL — выполняется percent-escape
// и повторная попытка. Канонизация (порядок query-параметров,
// регистр кодирования) сознательно НЕ выполняется: семантически
// эквивалентные, но по-разному закодированные URL остаются
// разными записями.
func resolveURL(raw string) (string, *url.URL, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil, false
	}

	if u, err := url.Parse(trimmed); err == nil && u.IsAbs() && u.Host != "" {
		return trimmed, u, true
	}

	escaped := percentEscape(trimmed)
	if u, err := url.Parse(escaped); err == nil && u.IsAbs() && u.Host != "" {
		return escaped, u, true
	}

	return "", nil, false
}

// percentEscape кодирует байты, недопустимые в URL, сохраняя
// зарезервированные разделители (и уже закодированные
// последовательности — знак процента не трогается).
func percentEscape(s string) string {
	const keep = ":/?#[]@!$&'()*+,;=-._~%"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(keep, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

// resolveType выводит тип медиа: явное поле (вхождение
// "video"/"audio"/"music", однобуквенные "v"/"a"), затем расширение
// файла, затем audio по умолчанию.
func resolveType(explicit, ext string) model.MediaType {
	v := strings.ToLower(strings.TrimSpace(explicit))
	switch {
	case v == "v" || strings.Contains(v, "video"):
		return model.TypeVideo
	case v == "a" || strings.Contains(v, "audio") || strings.Contains(v, "music"):
		return model.TypeAudio
	}

	switch {
	case videoExtensions[ext]:
		return model.TypeVideo
	case audioExtensions[ext]:
		return model.TypeAudio
	}

	return model.TypeAudio
}

// resolveDuration разбирает длительность в миллисекунды.
// Приоритет у колонки миллисекунд; иначе — секунды (десятичные)
// или текст вида H:MM:SS / MM:SS. Отрицательные значения
// прижимаются к 0, неразбираемые дают 0.
func resolveDuration(msField, secField string) int {
	if ms := strings.TrimSpace(msField); ms != "" {
		if f, err := strconv.ParseFloat(ms, 64); err == nil {
			return clampDuration(int(f))
		}
		return 0
	}

	sec := strings.TrimSpace(secField)
	if sec == "" {
		return 0
	}

	if strings.Contains(sec, ":") {
		return clampDuration(parseColonTime(sec))
	}

	if f, err := strconv.ParseFloat(sec, 64); err == nil {
		return clampDuration(int(math.Round(f * 1000)))
	}
	return 0
}

// parseColonTime разбирает "H:MM:SS" или "MM:SS" в миллисекунды.
// Неразбираемый сегмент обнуляет результат.
func parseColonTime(s string) int {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total * 1000
}

// clampDuration прижимает отрицательную длительность к нулю.
func clampDuration(ms int) int {
	if ms < 0 {
		return 0
	}
	return ms
}

// resolveTags строит список тегов: нативный список или строка
// с разделителями (",", ";", "|"). Теги обрезаются и
// дедуплицируются с сохранением порядка вставки,
// регистрозависимо.
func resolveTags(row rawRow) []string {
	var source []string
	if row.hasTagList {
		source = row.tagsList
	} else if text := strings.TrimSpace(row.tagsText); text != "" {
		source = strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ';' || r == '|'
		})
	}

	if len(source) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(source))
	tags := make([]string, 0, len(source))
	for _, tag := range source {
		t := strings.TrimSpace(tag)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// resolveTitle выбирает заголовок: явное поле, последний сегмент
// пути URL без расширения, затем "Untitled".
func resolveTitle(explicit string, u *url.URL) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}

	base := path.Base(u.Path)
	if base == "/" || base == "." {
		base = ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}
	if base != "" {
		return base
	}

	return "Untitled"
}

// resolveFormat выбирает формат: явное поле в нижнем регистре,
// расширение файла, затем "unknown".
func resolveFormat(explicit, ext string) string {
	if f := strings.ToLower(strings.TrimSpace(explicit)); f != "" {
		return f
	}
	if ext != "" {
		return ext
	}
	return "unknown"
}

// resolveStatus возвращает статус записи, по умолчанию "ready".
func resolveStatus(explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	return model.StatusReady
}
