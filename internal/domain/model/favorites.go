// favorites.go — модели избранного: группы и денормализованные элементы.
package model

// FavoriteGroup — именованная коллекция избранного с фиксированным
// типом медиа. Count — производное поле: длина списка элементов
// группы, никогда не хранится как самостоятельный счётчик.
type FavoriteGroup struct {
	// ID — непрозрачный сгенерированный идентификатор ("g_" + 8 hex)
	ID string `json:"id"`

	// Name — непустое имя группы (после trim)
	Name string `json:"name"`

	// MediaType — обязательный тип элементов группы
	MediaType MediaType `json:"media_type"`

	// Count — количество элементов группы (вычисляется при чтении)
	Count int `json:"count"`
}

// FavoriteListItem — денормализованная display-проекция MediaRecord
// в контексте группы. Перегенерируется из свежей записи каталога
// при каждом импорте, затрагивающем её media_id, чтобы не устаревать.
type FavoriteListItem struct {
	ID         string    `json:"id"`
	MediaID    string    `json:"media_id"`
	MediaType  MediaType `json:"media_type"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle,omitempty"`
	DurationMS int       `json:"duration_ms"`
	ThumbURL   string    `json:"thumb_url,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// BuildFavoriteItem строит элемент избранного из записи каталога.
func BuildFavoriteItem(rec *MediaRecord) FavoriteListItem {
	return FavoriteListItem{
		ID:         rec.ID,
		MediaID:    rec.ID,
		MediaType:  rec.Type,
		Title:      rec.Title,
		Subtitle:   rec.Subtitle,
		DurationMS: rec.DurationMS,
		ThumbURL:   rec.ThumbURL,
		Tags:       rec.Tags,
	}
}

// FavoriteListResponse — ответ списка элементов группы.
// Список отдаётся целиком: группы избранного на порядки меньше
// каталога, пагинация здесь не нужна.
type FavoriteListResponse struct {
	GroupID string             `json:"group_id"`
	Total   int                `json:"total"`
	Items   []FavoriteListItem `json:"items"`
}
