package store

import (
	"sync"
	"time"

	"FiscalSentinel/internal/model"
)

// MemoryStore is an in-process Store used when no database is configured
// and in tests. Contents do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	metrics map[string]model.MetricRecord
	series  map[string]model.SeriesRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		metrics: make(map[string]model.MetricRecord),
		series:  make(map[string]model.SeriesRecord),
	}
}

func (m *MemoryStore) GetMetric(key string) (*model.MetricRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.metrics[key]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (m *MemoryStore) PutMetric(key string, value float64, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics[key] = model.MetricRecord{
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
		Source:    source,
	}
	return nil
}

func (m *MemoryStore) GetSeries(id string) (*model.SeriesRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.series[id]
	if !ok || len(rec.Rows) == 0 {
		return nil, nil
	}
	out := model.SeriesRecord{
		ID:            rec.ID,
		Rows:          append([]model.Point(nil), rec.Rows...),
		LastRefreshed: rec.LastRefreshed,
	}
	return &out, nil
}

func (m *MemoryStore) PutSeries(id string, rows []model.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.series[id] = model.SeriesRecord{
		ID:            id,
		Rows:          append([]model.Point(nil), rows...),
		LastRefreshed: time.Now(),
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
