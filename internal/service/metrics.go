// Пакет service — фоновые процессы Media Library.
//
// metrics.go — периодический сэмплер бизнес-метрик: размеры каталога
// и избранного, занятость дискового кэша. Только наблюдение — кэш
// сознательно не имеет вытеснения и лимита на диске, сэмплер никогда
// ничего не удаляет.
//
// Запускается как горутина с периодическим тикером (ML_METRICS_INTERVAL).
package service

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gomedialib/internal/domain/model"
	"github.com/bigkaa/gomedialib/internal/storage/library"
)

// Prometheus метрики библиотеки и кэша
var (
	// mediaTotal — количество записей каталога по типу (gauge).
	mediaTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ml_media_total",
		Help: "Текущее количество записей каталога",
	}, []string{"type"})

	// favoriteGroupsTotal — количество групп избранного (gauge).
	favoriteGroupsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ml_favorite_groups_total",
		Help: "Текущее количество групп избранного",
	})

	// favoriteItemsTotal — суммарное количество элементов избранного (gauge).
	favoriteItemsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ml_favorite_items_total",
		Help: "Суммарное количество элементов во всех группах избранного",
	})

	// cacheFilesTotal — количество файлов в дисковом кэше (gauge).
	cacheFilesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ml_cache_files_total",
		Help: "Текущее количество файлов в дисковом кэше",
	}, []string{"flavor"})

	// cacheBytes — занятость дискового кэша в байтах (gauge).
	cacheBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ml_cache_bytes",
		Help: "Объём дискового кэша в байтах",
	}, []string{"flavor"})
)

// MetricsService — фоновый сэмплер бизнес-метрик.
type MetricsService struct {
	store     *library.Store
	cacheDirs map[string]string // flavor → директория
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex // защита от параллельного RunOnce
	running bool
	cancel  context.CancelFunc
}

// NewMetricsService создаёт сэмплер метрик.
// cacheDirs — отображение flavor ("audio", "image") на директорию кэша.
func NewMetricsService(
	store *library.Store,
	cacheDirs map[string]string,
	interval time.Duration,
	logger *slog.Logger,
) *MetricsService {
	return &MetricsService{
		store:     store,
		cacheDirs: cacheDirs,
		interval:  interval,
		logger:    logger.With(slog.String("component", "metrics_sampler")),
	}
}

// Start запускает фоновую горутину сэмплера с периодическим тикером.
// Первый замер выполняется сразу.
func (ms *MetricsService) Start(ctx context.Context) {
	msCtx, cancel := context.WithCancel(ctx)
	ms.cancel = cancel

	go ms.run(msCtx)

	ms.logger.Info("Сэмплер метрик запущен",
		slog.String("interval", ms.interval.String()),
	)
}

// Stop останавливает фоновый процесс.
func (ms *MetricsService) Stop() {
	if ms.cancel != nil {
		ms.cancel()
	}
	ms.logger.Info("Сэмплер метрик остановлен")
}

// run — основной цикл фоновой горутины.
func (ms *MetricsService) run(ctx context.Context) {
	ms.RunOnce()

	ticker := time.NewTicker(ms.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.RunOnce()
		}
	}
}

// RunOnce выполняет один замер. Защищён от параллельного запуска.
func (ms *MetricsService) RunOnce() {
	ms.mu.Lock()
	if ms.running {
		ms.mu.Unlock()
		return
	}
	ms.running = true
	ms.mu.Unlock()

	defer func() {
		ms.mu.Lock()
		ms.running = false
		ms.mu.Unlock()
	}()

	mediaTotal.WithLabelValues(string(model.TypeAudio)).Set(float64(ms.store.CountMedia(model.TypeAudio)))
	mediaTotal.WithLabelValues(string(model.TypeVideo)).Set(float64(ms.store.CountMedia(model.TypeVideo)))
	favoriteGroupsTotal.Set(float64(ms.store.CountGroups()))
	favoriteItemsTotal.Set(float64(ms.store.CountFavoriteItems()))

	for flavor, dir := range ms.cacheDirs {
		files, bytes := measureDir(dir)
		cacheFilesTotal.WithLabelValues(flavor).Set(float64(files))
		cacheBytes.WithLabelValues(flavor).Set(float64(bytes))
	}
}

// measureDir считает файлы и суммарный размер директории кэша.
// Временные файлы незавершённых загрузок (.tmp) не учитываются.
func measureDir(dir string) (files int, bytes int64) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".tmp" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files++
		bytes += info.Size()
		return nil
	})
	return files, bytes
}
