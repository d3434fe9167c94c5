// Пакет model — доменные модели Media Library.
// MediaRecord — каноническая запись каталога, формат library.json.
// MediaItem и MediaDetail — read-проекции для API-ответов.
package model

// MediaType — тип медиа-записи.
type MediaType string

const (
	// TypeAudio — аудио-запись
	TypeAudio MediaType = "audio"
	// TypeVideo — видео-запись
	TypeVideo MediaType = "video"
)

// IsValid проверяет, что тип — один из поддерживаемых.
func (t MediaType) IsValid() bool {
	return t == TypeAudio || t == TypeVideo
}

// StatusReady — статус записи по умолчанию.
const StatusReady = "ready"

// MediaRecord — каноническая запись каталога.
// ID детерминированно выводится из URL источника (канонический
// абсолютный URL и есть естественный ключ): два импорта одного
// URL схлопываются в одну запись.
type MediaRecord struct {
	// ID — канонический абсолютный URL источника
	ID string `json:"id"`

	// URL — локатор ресурса (аудио или видео)
	URL string `json:"url"`

	// Type — тип медиа (audio, video)
	Type MediaType `json:"type"`

	// Title — название записи
	Title string `json:"title"`

	// Subtitle — подзаголовок (исполнитель, автор), опционально
	Subtitle string `json:"subtitle,omitempty"`

	// Status — свободный статус записи (по умолчанию "ready")
	Status string `json:"status"`

	// Tags — упорядоченный набор тегов без дубликатов, опционально
	Tags []string `json:"tags,omitempty"`

	// Format — формат источника в нижнем регистре ("mp3", "mp4", "unknown")
	Format string `json:"format"`

	// DurationMS — длительность в миллисекундах, >= 0
	DurationMS int `json:"duration_ms"`

	// ThumbURL — локатор обложки, опционально
	ThumbURL string `json:"thumb_url,omitempty"`
}

// Item возвращает списочную проекцию записи.
func (r *MediaRecord) Item() MediaItem {
	return MediaItem{
		ID:         r.ID,
		Type:       r.Type,
		Title:      r.Title,
		DurationMS: r.DurationMS,
		ThumbURL:   r.ThumbURL,
		Status:     r.Status,
	}
}

// Detail возвращает детальную проекцию записи с источником воспроизведения.
func (r *MediaRecord) Detail() MediaDetail {
	return MediaDetail{
		ID:         r.ID,
		Type:       r.Type,
		Title:      r.Title,
		DurationMS: r.DurationMS,
		Status:     r.Status,
		ThumbURL:   r.ThumbURL,
		Sources: []MediaSource{
			{
				Format:  r.Format,
				Quality: "source",
				URL:     r.URL,
			},
		},
	}
}

// MediaItem — списочная проекция записи каталога.
type MediaItem struct {
	ID         string    `json:"id"`
	Type       MediaType `json:"type"`
	Title      string    `json:"title"`
	DurationMS int       `json:"duration_ms"`
	ThumbURL   string    `json:"thumb_url,omitempty"`
	Status     string    `json:"status"`
}

// MediaSource — источник воспроизведения записи.
type MediaSource struct {
	Format  string `json:"format"`
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// MediaDetail — детальная проекция записи каталога.
type MediaDetail struct {
	ID         string        `json:"id"`
	Type       MediaType     `json:"type"`
	Title      string        `json:"title"`
	DurationMS int           `json:"duration_ms"`
	Status     string        `json:"status"`
	ThumbURL   string        `json:"thumb_url,omitempty"`
	Sources    []MediaSource `json:"sources"`
}

// MediaListResponse — пагинированный ответ списка записей.
type MediaListResponse struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
	Items    []MediaItem `json:"items"`
}

// ImportReport — итог одного вызова импорта.
// Skipped никогда не пересекается с Inserted/Updated.
type ImportReport struct {
	// Inserted — количество новых записей
	Inserted int `json:"inserted"`
	// Updated — количество перезаписанных существующих записей
	Updated int `json:"updated"`
	// Skipped — количество пропущенных строк (невалидный URL,
	// дубликат в пределах батча)
	Skipped int `json:"skipped"`
}
