// Пакет stats — персистентная статистика воспроизведения.
//
// Хранит суммарное время воспроизведения и посуточные суммы
// (ключ дня — "2006-01-02") в одном JSON-документе, который
// атомарно переписывается при каждой записи.
package stats

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/gomedialib/internal/storage/statefile"
)

// dayKeyLayout — формат ключа дня.
const dayKeyLayout = "2006-01-02"

// document — персистируемый формат статистики.
type document struct {
	// TotalSeconds — суммарное время воспроизведения
	TotalSeconds int `json:"total_seconds"`
	// DailySeconds — время воспроизведения по дням
	DailySeconds map[string]int `json:"daily_seconds"`
}

// DailyPlayback — время воспроизведения за один день.
type DailyPlayback struct {
	// Day — ключ дня ("2006-01-02")
	Day string `json:"day"`
	// Seconds — секунды воспроизведения за день
	Seconds int `json:"seconds"`
}

// Summary — сводка статистики для API.
type Summary struct {
	TotalSeconds int             `json:"total_seconds"`
	Daily        []DailyPlayback `json:"daily"`
}

// Store — потокобезопасное хранилище статистики воспроизведения.
type Store struct {
	mu     sync.RWMutex
	path   string
	doc    document
	logger *slog.Logger
}

// New создаёт хранилище статистики для файла path.
// Отсутствующий или нечитаемый файл даёт пустую статистику:
// потеря истории прослушивания не критична для работы библиотеки.
func New(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		doc:    document{DailySeconds: make(map[string]int)},
		logger: logger.With(slog.String("component", "stats")),
	}

	// Потеря истории прослушивания не критична: и ошибка stat,
	// и нечитаемый файл дают пустую статистику с предупреждением
	exists, err := statefile.Exists(path)
	if err != nil {
		s.logger.Warn("Файл статистики недоступен, начинаем с пустой",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	} else if exists {
		var doc document
		if err := statefile.Read(path, &doc); err != nil {
			s.logger.Warn("Файл статистики нечитаем, начинаем с пустой",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		} else {
			if doc.DailySeconds == nil {
				doc.DailySeconds = make(map[string]int)
			}
			s.doc = doc
		}
	}

	return s
}

// RecordPlayback добавляет seconds к суммарной и посуточной
// статистике и персистирует документ. Неположительные значения
// игнорируются.
func (s *Store) RecordPlayback(seconds int, at time.Time) error {
	if seconds <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TotalSeconds += seconds
	s.doc.DailySeconds[at.Format(dayKeyLayout)] += seconds

	if err := statefile.Write(s.path, s.doc); err != nil {
		return fmt.Errorf("ошибка персистентности статистики: %w", err)
	}
	return nil
}

// TotalSeconds возвращает суммарное время воспроизведения.
func (s *Store) TotalSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.TotalSeconds
}

// DailyTrend возвращает посуточные суммы за последние days дней,
// заканчивая днём end (старые первыми). Дни без воспроизведения
// присутствуют с нулём.
func (s *Store) DailyTrend(days int, end time.Time) []DailyPlayback {
	if days <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	trend := make([]DailyPlayback, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		day := endDay.AddDate(0, 0, -offset)
		key := day.Format(dayKeyLayout)
		trend = append(trend, DailyPlayback{
			Day:     key,
			Seconds: s.doc.DailySeconds[key],
		})
	}
	return trend
}

// MonthlyTotals возвращает суммы по месяцам указанного года:
// месяц (1-12) → секунды.
func (s *Store) MonthlyTotals(year int) map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[int]int)
	for key, seconds := range s.doc.DailySeconds {
		day, err := time.Parse(dayKeyLayout, key)
		if err != nil {
			continue
		}
		if day.Year() != year {
			continue
		}
		totals[int(day.Month())] += seconds
	}
	return totals
}

// YearlyTotals возвращает суммы по годам: год → секунды.
func (s *Store) YearlyTotals() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[int]int)
	for key, seconds := range s.doc.DailySeconds {
		day, err := time.Parse(dayKeyLayout, key)
		if err != nil {
			continue
		}
		totals[day.Year()] += seconds
	}
	return totals
}
