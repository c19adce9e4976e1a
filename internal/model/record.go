package model

import "time"

// Point is a single dated observation in a time series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MetricRecord is a cached single-value fact.
type MetricRecord struct {
	Key       string
	Value     float64
	Timestamp time.Time
	Source    string
}

// SeriesRecord is a cached time series. Rows are ordered strictly
// ascending by date and contain at most one row per date.
type SeriesRecord struct {
	ID            string
	Rows          []Point
	LastRefreshed time.Time
}

// Empty reports whether the record holds no observations.
func (r *SeriesRecord) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Last returns the most recent observation.
func (r *SeriesRecord) Last() (Point, bool) {
	if r.Empty() {
		return Point{}, false
	}
	return r.Rows[len(r.Rows)-1], true
}
