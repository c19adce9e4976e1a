package store

import (
	"path/filepath"
	"testing"
	"time"

	"FiscalSentinel/internal/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemoryStore(),
	}
}

func TestMetricRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.GetMetric("gdp")
			if err != nil {
				t.Fatalf("get on empty store: %v", err)
			}
			if rec != nil {
				t.Fatal("expected nil record for unknown key")
			}

			if err := s.PutMetric("gdp", 29184.9, "FRED"); err != nil {
				t.Fatalf("put metric: %v", err)
			}
			rec, err = s.GetMetric("gdp")
			if err != nil {
				t.Fatalf("get metric: %v", err)
			}
			if rec == nil {
				t.Fatal("expected record after put")
			}
			if rec.Value != 29184.9 || rec.Source != "FRED" {
				t.Errorf("got %+v", rec)
			}
			if rec.Timestamp.IsZero() {
				t.Error("put must stamp the record")
			}
		})
	}
}

func TestMetricOverwriteIsMonotonic(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.PutMetric("debt", 36000, "FRED"); err != nil {
				t.Fatal(err)
			}
			first, _ := s.GetMetric("debt")
			if err := s.PutMetric("debt", 36100, "FRED"); err != nil {
				t.Fatal(err)
			}
			second, _ := s.GetMetric("debt")
			if second.Value != 36100 {
				t.Errorf("overwrite lost: %v", second.Value)
			}
			if second.Timestamp.Before(first.Timestamp) {
				t.Error("timestamp decreased across writes")
			}
		})
	}
}

func TestSeriesRoundTrip(t *testing.T) {
	rows := []model.Point{
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Value: 4.51},
		{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Value: 4.55},
		{Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), Value: 4.48},
	}
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.PutSeries("us-10y", rows); err != nil {
				t.Fatalf("put series: %v", err)
			}
			rec, err := s.GetSeries("us-10y")
			if err != nil {
				t.Fatalf("get series: %v", err)
			}
			if rec == nil || len(rec.Rows) != 3 {
				t.Fatalf("expected 3 rows, got %+v", rec)
			}
			if !rec.Rows[1].Date.Equal(rows[1].Date) || rec.Rows[1].Value != rows[1].Value {
				t.Errorf("row mismatch: %+v", rec.Rows[1])
			}

			// Idempotent replace: same rows, only LastRefreshed may move.
			if err := s.PutSeries("us-10y", rows); err != nil {
				t.Fatalf("second put: %v", err)
			}
			again, _ := s.GetSeries("us-10y")
			if len(again.Rows) != len(rec.Rows) {
				t.Errorf("replace changed row count: %d -> %d", len(rec.Rows), len(again.Rows))
			}
			for i := range again.Rows {
				if again.Rows[i] != rec.Rows[i] {
					t.Errorf("row %d changed: %+v -> %+v", i, rec.Rows[i], again.Rows[i])
				}
			}
		})
	}
}

func TestEmptySeriesTreatedAsAbsent(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.PutSeries("empty", nil); err != nil {
				t.Fatalf("put empty series: %v", err)
			}
			rec, err := s.GetSeries("empty")
			if err != nil {
				t.Fatalf("get empty series: %v", err)
			}
			if rec != nil {
				t.Errorf("empty stored series must read as absent, got %+v", rec)
			}
		})
	}
}

func TestCorruptSeriesTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.db.Exec(
		`INSERT INTO series_cache (id, rows_json, last_refreshed) VALUES (?,?,?)`,
		"bad", "{not json", time.Now().Unix(),
	); err != nil {
		t.Fatal(err)
	}
	rec, err := s.GetSeries("bad")
	if err != nil {
		t.Fatalf("corrupt row must not error: %v", err)
	}
	if rec != nil {
		t.Errorf("corrupt row must read as absent, got %+v", rec)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutMetric("yield_10y", 4.42, "yahoo"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	rec, err := s2.GetMetric("yield_10y")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Value != 4.42 {
		t.Errorf("value did not survive reopen: %+v", rec)
	}
}
