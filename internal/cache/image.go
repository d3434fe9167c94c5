// image.go — кэш изображений (обложек): память → диск → сеть.
//
// В отличие от аудио-кэша, поверх диска есть ограниченный по числу
// записей in-memory LRU-слой: обложки маленькие, читаются часто
// и выгодно держать байты декодированными в памяти.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// imageFlight — общий результат одной загрузки изображения.
type imageFlight struct {
	done chan struct{}
	data []byte
	err  error
}

// ImageCache — двухуровневый кэш изображений.
type ImageCache struct {
	dir    string
	client *http.Client
	logger *slog.Logger
	mem    *lru.Cache[string, []byte]

	// mu защищает только таблицу in-flight
	mu       sync.Mutex
	inflight map[string]*imageFlight
}

// NewImageCache создаёт кэш изображений в директории dir
// с in-memory слоем на memEntries записей.
func NewImageCache(dir string, memEntries int, client *http.Client, logger *slog.Logger) (*ImageCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию кэша изображений %s: %w", dir, err)
	}

	mem, err := lru.New[string, []byte](memEntries)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать LRU-кэш на %d записей: %w", memEntries, err)
	}

	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}

	return &ImageCache{
		dir:      dir,
		client:   client,
		logger:   logger.With(slog.String("component", "image_cache")),
		mem:      mem,
		inflight: make(map[string]*imageFlight),
	}, nil
}

// Image возвращает байты изображения: память → диск → single-flight
// загрузка. Сбой загрузки возвращается ошибкой и не мемоизируется —
// следующий вызов повторит попытку.
func (c *ImageCache) Image(ctx context.Context, sourceURL string) ([]byte, error) {
	if data, ok := c.mem.Get(sourceURL); ok {
		cacheHitsTotal.WithLabelValues("image", "memory").Inc()
		return data, nil
	}

	localPath := filepath.Join(c.dir, FileName(sourceURL, DefaultImageExt))
	if data, err := os.ReadFile(localPath); err == nil {
		cacheHitsTotal.WithLabelValues("image", "disk").Inc()
		c.mem.Add(sourceURL, data)
		return data, nil
	}
	cacheMissesTotal.WithLabelValues("image").Inc()

	c.mu.Lock()
	if f, ok := c.inflight[sourceURL]; ok {
		c.mu.Unlock()
		<-f.done
		return f.data, f.err
	}

	f := &imageFlight{done: make(chan struct{})}
	c.inflight[sourceURL] = f
	c.mu.Unlock()

	f.data, f.err = c.download(ctx, sourceURL, localPath)

	c.mu.Lock()
	delete(c.inflight, sourceURL)
	c.mu.Unlock()
	close(f.done)

	return f.data, f.err
}

// download загружает изображение, атомарно пишет его на диск
// и заполняет in-memory слой.
func (c *ImageCache) download(ctx context.Context, sourceURL, localPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		cacheDownloadsTotal.WithLabelValues("image", "error").Inc()
		return nil, fmt.Errorf("ошибка построения запроса: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cacheDownloadsTotal.WithLabelValues("image", "error").Inc()
		return nil, fmt.Errorf("ошибка загрузки %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cacheDownloadsTotal.WithLabelValues("image", "error").Inc()
		return nil, fmt.Errorf("сервер ответил статусом %d для %s", resp.StatusCode, sourceURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		cacheDownloadsTotal.WithLabelValues("image", "error").Inc()
		return nil, fmt.Errorf("ошибка чтения тела ответа: %w", err)
	}

	if err := writeAtomic(localPath, bytes.NewReader(data)); err != nil {
		// Диск не записался — изображение всё равно пригодно,
		// но следующий вызов снова пойдёт в сеть
		c.logger.Warn("Не удалось записать изображение на диск",
			slog.String("url", sourceURL),
			slog.String("error", err.Error()),
		)
	}

	c.mem.Add(sourceURL, data)
	cacheDownloadsTotal.WithLabelValues("image", "success").Inc()

	c.logger.Debug("Изображение закэшировано",
		slog.String("url", sourceURL),
		slog.Int("bytes", len(data)),
	)
	return data, nil
}

// IsCached проверяет наличие изображения на диске.
func (c *ImageCache) IsCached(sourceURL string) bool {
	localPath := filepath.Join(c.dir, FileName(sourceURL, DefaultImageExt))
	_, err := os.Stat(localPath)
	return err == nil
}

// Dir возвращает директорию кэша изображений.
func (c *ImageCache) Dir() string {
	return c.dir
}
