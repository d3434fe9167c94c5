// state.go — LibraryState: durable-агрегат каталога.
// Сериализуется целиком в library.json и загружается один раз
// при старте процесса.
package model

// LibraryState — полное состояние библиотеки: записи каталога,
// группы избранного и элементы групп. Персистируется как единый
// атомарный документ.
type LibraryState struct {
	// MediaRecords — записи каталога в порядке добавления
	MediaRecords []MediaRecord `json:"media_records"`

	// FavoriteGroups — группы избранного (новые первыми)
	FavoriteGroups []FavoriteGroup `json:"favorite_groups"`

	// FavoriteItemsByGroup — элементы групп: group_id → список
	// (новые первыми)
	FavoriteItemsByGroup map[string][]FavoriteListItem `json:"favorite_items_by_group"`
}

// NewLibraryState возвращает пустое состояние с инициализированной картой.
func NewLibraryState() *LibraryState {
	return &LibraryState{
		FavoriteItemsByGroup: make(map[string][]FavoriteListItem),
	}
}
