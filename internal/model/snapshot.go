package model

import "time"

// CountrySnapshot holds the best-effort resolved metrics for one country.
// Metrics absent from the map could not be resolved at all; keys present in
// Stale were served from an expired cache entry after a failed refresh.
type CountrySnapshot struct {
	Country   string
	Currency  string
	Metrics   map[string]float64
	Stale     map[string]bool
	FetchedAt time.Time
	Errors    []string
}

// NewCountrySnapshot creates an empty snapshot for the given country.
func NewCountrySnapshot(country, currency string) *CountrySnapshot {
	return &CountrySnapshot{
		Country:  country,
		Currency: currency,
		Metrics:  make(map[string]float64),
		Stale:    make(map[string]bool),
	}
}

// Get returns the resolved value for name, if any.
func (s *CountrySnapshot) Get(name string) (float64, bool) {
	v, ok := s.Metrics[name]
	return v, ok
}

// Has reports whether every named metric resolved.
func (s *CountrySnapshot) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := s.Metrics[n]; !ok {
			return false
		}
	}
	return true
}
