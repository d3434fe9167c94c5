// Пакет cache — контентно-адресуемый дисковый кэш медиа-ресурсов
// с single-flight семантикой загрузки.
//
// keys.go — схема ключей: детерминированное отображение удалённого
// URL в безопасное имя файла на диске.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// Расширения по умолчанию для имён файлов кэша.
const (
	// DefaultAudioExt — fallback-расширение аудио-кэша
	DefaultAudioExt = "bin"
	// DefaultImageExt — fallback-расширение кэша изображений
	DefaultImageExt = "img"
)

// FileName вычисляет имя файла кэша для URL: hex(SHA-256(строка URL))
// + расширение пути URL (или defaultExt, если расширения нет).
//
// Детерминировано: одинаковая строка URL всегда даёт одно имя,
// независимо от запуска процесса. Канонизация НЕ выполняется:
// два семантически эквивалентных URL, различающихся кодированием
// или порядком query-параметров, дают разные записи кэша.
func FileName(rawURL, defaultExt string) string {
	digest := sha256.Sum256([]byte(rawURL))
	hexDigest := hex.EncodeToString(digest[:])

	ext := defaultExt
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); e != "" {
			ext = e
		}
	}

	return hexDigest + "." + ext
}
