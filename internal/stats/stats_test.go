package stats

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testLogger создаёт логгер для тестов (только ошибки).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestRecordPlayback_Accumulates проверяет накопление суммарной
// и посуточной статистики.
func TestRecordPlayback_Accumulates(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), testLogger())
	day := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	if err := s.RecordPlayback(120, day); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if err := s.RecordPlayback(60, day); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if got := s.TotalSeconds(); got != 180 {
		t.Errorf("суммарное время: ожидалось 180, получено %d", got)
	}

	trend := s.DailyTrend(1, day)
	if len(trend) != 1 || trend[0].Seconds != 180 {
		t.Errorf("посуточная сумма: %+v", trend)
	}
}

// TestRecordPlayback_IgnoresNonPositive проверяет игнорирование
// нулевых и отрицательных значений.
func TestRecordPlayback_IgnoresNonPositive(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), testLogger())
	now := time.Now()

	if err := s.RecordPlayback(0, now); err != nil {
		t.Errorf("ноль не должен возвращать ошибку: %v", err)
	}
	if err := s.RecordPlayback(-5, now); err != nil {
		t.Errorf("отрицательное значение не должно возвращать ошибку: %v", err)
	}
	if got := s.TotalSeconds(); got != 0 {
		t.Errorf("статистика не должна меняться: %d", got)
	}
}

// TestPersistAndReload проверяет, что статистика переживает
// перезапуск (новый экземпляр читает тот же файл).
func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	day := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	s1 := New(path, testLogger())
	if err := s1.RecordPlayback(300, day); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	s2 := New(path, testLogger())
	if got := s2.TotalSeconds(); got != 300 {
		t.Errorf("после перезапуска: ожидалось 300, получено %d", got)
	}
	trend := s2.DailyTrend(1, day)
	if len(trend) != 1 || trend[0].Seconds != 300 {
		t.Errorf("посуточная статистика потеряна: %+v", trend)
	}
}

// TestNew_CorruptFileStartsEmpty проверяет, что нечитаемый файл
// даёт пустую статистику, а не падение.
func TestNew_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o640); err != nil {
		t.Fatalf("ошибка подготовки файла: %v", err)
	}

	s := New(path, testLogger())
	if got := s.TotalSeconds(); got != 0 {
		t.Errorf("ожидалась пустая статистика, получено %d", got)
	}
}

// TestDailyTrend_ZeroFilledOldFirst проверяет порядок (старые первыми)
// и нулевое заполнение дней без воспроизведения.
func TestDailyTrend_ZeroFilledOldFirst(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), testLogger())
	end := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	if err := s.RecordPlayback(100, end.AddDate(0, 0, -2)); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if err := s.RecordPlayback(50, end); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	trend := s.DailyTrend(3, end)
	if len(trend) != 3 {
		t.Fatalf("ожидалось 3 дня, получено %d", len(trend))
	}
	want := []struct {
		day     string
		seconds int
	}{
		{"2026-03-08", 100},
		{"2026-03-09", 0},
		{"2026-03-10", 50},
	}
	for i, w := range want {
		if trend[i].Day != w.day || trend[i].Seconds != w.seconds {
			t.Errorf("день %d: ожидалось {%s %d}, получено {%s %d}",
				i, w.day, w.seconds, trend[i].Day, trend[i].Seconds)
		}
	}
}

// TestDailyTrend_NonPositiveDays проверяет пустой результат
// для неположительного окна.
func TestDailyTrend_NonPositiveDays(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), testLogger())
	if got := s.DailyTrend(0, time.Now()); got != nil {
		t.Errorf("ожидался nil для days=0, получено %+v", got)
	}
}

// TestMonthlyTotals проверяет агрегацию по месяцам одного года.
func TestMonthlyTotals(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), testLogger())

	records := []struct {
		at      time.Time
		seconds int
	}{
		{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 10},
		{time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), 20},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 40},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 999},
	}
	for _, r := range records {
		if err := s.RecordPlayback(r.seconds, r.at); err != nil {
			t.Fatalf("ошибка записи: %v", err)
		}
	}

	totals := s.MonthlyTotals(2026)
	if totals[1] != 30 {
		t.Errorf("январь: ожидалось 30, получено %d", totals[1])
	}
	if totals[3] != 40 {
		t.Errorf("март: ожидалось 40, получено %d", totals[3])
	}
	if len(totals) != 2 {
		t.Errorf("чужой год не должен попадать в выборку: %+v", totals)
	}
}

// TestYearlyTotals проверяет агрегацию по годам.
func TestYearlyTotals(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), testLogger())

	if err := s.RecordPlayback(100, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if err := s.RecordPlayback(200, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	totals := s.YearlyTotals()
	if totals[2025] != 100 || totals[2026] != 200 {
		t.Errorf("суммы по годам: %+v", totals)
	}
}
