package store

import "FiscalSentinel/internal/model"

// Store persists metric and series records. Each key/id is an independent
// unit of storage: a failed or partial write to one record never corrupts
// another. Get methods return (nil, nil) when the record is absent.
type Store interface {
	// GetMetric returns the stored record for key, or nil. It never fetches.
	GetMetric(key string) (*model.MetricRecord, error)
	// PutMetric overwrites the record for key with the current wall-clock
	// timestamp. Idempotent under retry.
	PutMetric(key string, value float64, source string) error

	// GetSeries returns the stored series for id, or nil. Empty or corrupt
	// stored rows are reported as absent, not as an error.
	GetSeries(id string) (*model.SeriesRecord, error)
	// PutSeries replaces the full series for id and stamps LastRefreshed.
	// Rows must already be sorted ascending and de-duplicated by date.
	PutSeries(id string, rows []model.Point) error

	Close() error
}
