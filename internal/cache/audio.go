// audio.go — кэш аудио-источников: resolve удалённого URL
// в локальный файл с single-flight загрузкой.
//
// Контракт: Resolve всегда возвращает пригодный к воспроизведению
// URL — локальный путь при успехе, исходный удалённый URL при любой
// ошибке. Сбой загрузки не мемоизируется: слот in-flight очищается
// и следующий вызов повторяет попытку.
package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gomedialib/internal/domain/model"
)

// Prometheus метрики кэша
var (
	// cacheHitsTotal — попадания в кэш (память или диск).
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ml_cache_hits_total",
		Help: "Общее количество попаданий в кэш",
	}, []string{"flavor", "layer"})

	// cacheMissesTotal — промахи кэша, приведшие к загрузке.
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ml_cache_misses_total",
		Help: "Общее количество промахов кэша",
	}, []string{"flavor"})

	// cacheDownloadsTotal — завершённые загрузки по результату.
	cacheDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ml_cache_downloads_total",
		Help: "Общее количество сетевых загрузок кэша",
	}, []string{"flavor", "result"})
)

// defaultFetchTimeout — таймаут одной загрузки, если клиент не задан.
const defaultFetchTimeout = 2 * time.Minute

// flight — общий для всех ожидающих результат одной загрузки.
// Вставка в таблицу in-flight и ожидание атомарны относительно mu.
type flight struct {
	done      chan struct{}
	localPath string
	err       error
}

// AudioCache — дисковый кэш аудио-файлов.
type AudioCache struct {
	dir      string
	client   *http.Client
	notifier *Notifier
	logger   *slog.Logger

	// mu защищает только таблицу in-flight, никогда не удерживается
	// на время загрузки
	mu       sync.Mutex
	inflight map[string]*flight
}

// NewAudioCache создаёт аудио-кэш в директории dir.
// client может быть nil — будет использован клиент с таймаутом
// по умолчанию.
func NewAudioCache(dir string, client *http.Client, notifier *Notifier, logger *slog.Logger) (*AudioCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию аудио-кэша %s: %w", dir, err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &AudioCache{
		dir:      dir,
		client:   client,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "audio_cache")),
		inflight: make(map[string]*flight),
	}, nil
}

// Notifier возвращает рассылку событий успешного кэширования.
func (c *AudioCache) Notifier() *Notifier {
	return c.notifier
}

// Resolve возвращает локальный путь к закэшированному ресурсу
// или исходный URL, если кэширование неприменимо или не удалось.
//
// Не кэшируются: не-аудио, file://-источники (уже локальные)
// и m3u8-манифесты (многосегментный стриминговый протокол,
// непригодный для однофайлового кэша).
//
// mediaID, если непустой, подсаливает ключ single-flight таблицы.
// Конкурентные вызовы с одним ключом наблюдают ровно одну загрузку
// и получают один результат.
func (c *AudioCache) Resolve(ctx context.Context, sourceURL, format string, mediaType model.MediaType, mediaID string) string {
	if mediaType != model.TypeAudio {
		return sourceURL
	}

	u, err := url.Parse(sourceURL)
	if err != nil || !u.IsAbs() {
		return sourceURL
	}
	if u.Scheme == "file" {
		return sourceURL
	}
	if strings.ToLower(format) == "m3u8" || strings.EqualFold(strings.TrimPrefix(path.Ext(u.Path), "."), "m3u8") {
		return sourceURL
	}

	key := sourceURL
	if mediaID != "" {
		key = mediaID + "-" + sourceURL
	}

	c.mu.Lock()
	if f, ok := c.inflight[key]; ok {
		// Присоединяемся к существующей загрузке
		c.mu.Unlock()
		<-f.done
		if f.err != nil {
			return sourceURL
		}
		return f.localPath
	}

	f := &flight{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	f.localPath, f.err = c.fetch(ctx, sourceURL)

	// Слот очищается всегда: успех читается с диска, сбой
	// не мемоизируется и следующий вызов повторит загрузку
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(f.done)

	if f.err != nil {
		c.logger.Warn("Загрузка в аудио-кэш не удалась, возвращаем исходный URL",
			slog.String("url", sourceURL),
			slog.String("error", f.err.Error()),
		)
		return sourceURL
	}
	return f.localPath
}

// fetch выполняет дисковую проверку и, при промахе, сетевую загрузку
// с атомарной записью: temp файл → fsync → rename (затирая
// устаревший неполный файл).
func (c *AudioCache) fetch(ctx context.Context, sourceURL string) (string, error) {
	localPath := filepath.Join(c.dir, FileName(sourceURL, DefaultAudioExt))

	if _, err := os.Stat(localPath); err == nil {
		cacheHitsTotal.WithLabelValues("audio", "disk").Inc()
		return localPath, nil
	}
	cacheMissesTotal.WithLabelValues("audio").Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		cacheDownloadsTotal.WithLabelValues("audio", "error").Inc()
		return "", fmt.Errorf("ошибка построения запроса: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cacheDownloadsTotal.WithLabelValues("audio", "error").Inc()
		return "", fmt.Errorf("ошибка загрузки %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cacheDownloadsTotal.WithLabelValues("audio", "error").Inc()
		return "", fmt.Errorf("сервер ответил статусом %d для %s", resp.StatusCode, sourceURL)
	}

	if err := writeAtomic(localPath, resp.Body); err != nil {
		cacheDownloadsTotal.WithLabelValues("audio", "error").Inc()
		return "", err
	}

	cacheDownloadsTotal.WithLabelValues("audio", "success").Inc()
	c.notifier.publish(sourceURL)

	c.logger.Debug("Аудио-ресурс закэширован",
		slog.String("url", sourceURL),
		slog.String("path", localPath),
	)
	return localPath, nil
}

// IsCached проверяет наличие ресурса в дисковом кэше.
func (c *AudioCache) IsCached(sourceURL string) bool {
	localPath := filepath.Join(c.dir, FileName(sourceURL, DefaultAudioExt))
	_, err := os.Stat(localPath)
	return err == nil
}

// Dir возвращает директорию аудио-кэша.
func (c *AudioCache) Dir() string {
	return c.dir
}

// writeAtomic записывает поток в path атомарно:
// temp файл → fsync → rename. При ошибке temp файл удаляется.
func writeAtomic(path string, r io.Reader) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
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
