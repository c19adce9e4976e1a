package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"FiscalSentinel/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists metric and series records to a SQLite database so
// cached values survive process restarts.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads don't block refresh writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metric_cache (
			key       TEXT PRIMARY KEY,
			value     REAL,
			timestamp INTEGER NOT NULL,
			source    TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS series_cache (
			id             TEXT PRIMARY KEY,
			rows_json      TEXT,
			last_refreshed INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// GetMetric returns the stored record for key, or nil when absent.
func (s *SQLiteStore) GetMetric(key string) (*model.MetricRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		value  float64
		ts     int64
		source string
	)
	err := s.db.QueryRow(
		`SELECT value, timestamp, source FROM metric_cache WHERE key = ?`, key,
	).Scan(&value, &ts, &source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metric %s: %w", key, err)
	}
	return &model.MetricRecord{
		Key:       key,
		Value:     value,
		Timestamp: time.Unix(ts, 0),
		Source:    source,
	}, nil
}

// PutMetric overwrites the record for key with the current timestamp.
func (s *SQLiteStore) PutMetric(key string, value float64, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO metric_cache (key, value, timestamp, source) VALUES (?,?,?,?)`,
		key, value, time.Now().Unix(), source,
	)
	if err != nil {
		return fmt.Errorf("put metric %s: %w", key, err)
	}
	return nil
}

// GetSeries returns the stored series for id. Empty or undecodable rows are
// treated as a cache miss so a cold or damaged cache never blocks startup.
func (s *SQLiteStore) GetSeries(id string) (*model.SeriesRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rowsJSON string
		refresh  int64
	)
	err := s.db.QueryRow(
		`SELECT rows_json, last_refreshed FROM series_cache WHERE id = ?`, id,
	).Scan(&rowsJSON, &refresh)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", id, err)
	}

	var rows []model.Point
	if err := json.Unmarshal([]byte(rowsJSON), &rows); err != nil {
		log.Printf("[WARN] series cache for %s is corrupt, treating as absent: %v", id, err)
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &model.SeriesRecord{
		ID:            id,
		Rows:          rows,
		LastRefreshed: time.Unix(refresh, 0),
	}, nil
}

// PutSeries replaces the full series for id and stamps LastRefreshed.
func (s *SQLiteStore) PutSeries(id string, rows []model.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode series %s: %w", id, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO series_cache (id, rows_json, last_refreshed) VALUES (?,?,?)`,
		id, string(rowsJSON), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put series %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
