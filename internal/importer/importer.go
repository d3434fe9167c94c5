// Пакет importer — реконсилятор bulk-импорта каталога.
//
// Принимает табличный (CSV) или структурный (JSON) файл, нормализует
// разнородные написания полей, дедуплицирует по каноническому id
// и выполняет insert-or-update merge против каталога.
//
// Конвейер одного вызова:
//
//	parse → normalize → transform → dedupe-in-batch → merge → report
//
// Ошибки уровня парсинга (нечитаемый файл, отсутствие URL-колонки)
// прерывают импорт целиком до обработки строк. Ошибки уровня строки
// считаются в skipped и батч не прерывают.
package importer

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gomedialib/internal/domain/model"
	"github.com/bigkaa/gomedialib/internal/storage/library"
)

// Prometheus метрики импорта
var (
	// importRunsTotal — количество вызовов импорта по формату и исходу.
	importRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ml_import_runs_total",
		Help: "Общее количество вызовов импорта",
	}, []string{"format", "result"})

	// importRowsTotal — количество обработанных строк по исходу.
	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ml_import_rows_total",
		Help: "Общее количество строк импорта по результату обработки",
	}, []string{"result"})
)

// MissingColumnError — в CSV отсутствует колонка источника URL.
// Импорт прерывается до обработки какой-либо строки.
type MissingColumnError struct {
	// Aliases — принимаемые имена колонки
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("отсутствует обязательная колонка URL (принимаются: %v)", e.Aliases)
}

// UnreadableInputError — файл не читается как текст или JSON
// не соответствует ни одной из принимаемых форм.
type UnreadableInputError struct {
	Reason string
}

func (e *UnreadableInputError) Error() string {
	return fmt.Sprintf("нечитаемый входной файл: %s", e.Reason)
}

// Reconciler — реконсилятор импорта.
type Reconciler struct {
	store  *library.Store
	logger *slog.Logger
}

// New создаёт реконсилятор импорта поверх каталога.
func New(store *library.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger.With(slog.String("component", "importer")),
	}
}

// ImportCSV импортирует табличный файл.
// Заголовочная строка обязательна и нормализуется перед поиском
// колонок; отсутствие URL-колонки — MissingColumnError.
func (r *Reconciler) ImportCSV(data []byte) (*model.ImportReport, error) {
	rows, err := parseCSV(data)
	if err != nil {
		importRunsTotal.WithLabelValues("csv", "error").Inc()
		return nil, err
	}
	report, err := r.merge(rows)
	if err != nil {
		importRunsTotal.WithLabelValues("csv", "error").Inc()
		return nil, err
	}
	importRunsTotal.WithLabelValues("csv", "success").Inc()
	r.logReport("csv", report)
	return report, nil
}

// ImportJSON импортирует структурный файл: либо голый список записей,
// либо объект со списком под ключом "items". Скалярные значения
// полей принимаются как строка, целое или дробное число.
func (r *Reconciler) ImportJSON(data []byte) (*model.ImportReport, error) {
	rows, err := parseJSON(data)
	if err != nil {
		importRunsTotal.WithLabelValues("json", "error").Inc()
		return nil, err
	}
	report, err := r.merge(rows)
	if err != nil {
		importRunsTotal.WithLabelValues("json", "error").Inc()
		return nil, err
	}
	importRunsTotal.WithLabelValues("json", "success").Inc()
	r.logReport("json", report)
	return report, nil
}

// merge преобразует сырые строки в записи каталога, дедуплицирует
// в пределах батча (первое вхождение выигрывает) и применяет merge
// к каталогу. Либо все чистые изменения батча коммитятся вместе,
// либо (при нуле изменений) ничего не записывается.
func (r *Reconciler) merge(rows []rawRow) (*model.ImportReport, error) {
	report := &model.ImportReport{}

	seen := make(map[string]bool, len(rows))
	batch := make([]model.MediaRecord, 0, len(rows))

	for _, row := range rows {
		rec, ok := buildRecord(row)
		if !ok {
			report.Skipped++
			importRowsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		if seen[rec.ID] {
			report.Skipped++
			importRowsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		seen[rec.ID] = true
		batch = append(batch, rec)
	}

	inserted, updated, err := r.store.ApplyImport(batch)
	if err != nil {
		return nil, fmt.Errorf("ошибка применения импорта: %w", err)
	}

	report.Inserted = inserted
	report.Updated = updated
	importRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	importRowsTotal.WithLabelValues("updated").Add(float64(updated))

	return report, nil
}

func (r *Reconciler) logReport(format string, report *model.ImportReport) {
	r.logger.Info("Импорт завершён",
		slog.String("format", format),
		slog.Int("inserted", report.Inserted),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
	)
}
