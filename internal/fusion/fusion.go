package fusion

import (
	"math"
	"sort"
	"time"

	"FiscalSentinel/internal/freshness"
	"FiscalSentinel/internal/model"
	"FiscalSentinel/internal/store"
)

// CombineFunc computes one composite value from the aligned contributor
// values, given in contributor order. A false result drops the row.
type CombineFunc func(values []float64) (float64, bool)

// LinearCombine returns a CombineFunc applying fixed coefficients:
// sum(coeffs[i] * values[i]). Coefficients carry unit conversions and sign.
func LinearCombine(coeffs []float64) CombineFunc {
	return func(values []float64) (float64, bool) {
		if len(values) != len(coeffs) {
			return 0, false
		}
		var sum float64
		for i, v := range values {
			sum += coeffs[i] * v
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return 0, false
		}
		return sum, true
	}
}

// Ratio returns a CombineFunc dividing contributor num by contributor den.
// Rows where the denominator is zero are dropped, not replaced.
func Ratio(num, den int) CombineFunc {
	return func(values []float64) (float64, bool) {
		if num >= len(values) || den >= len(values) || values[den] == 0 {
			return 0, false
		}
		r := values[num] / values[den]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0, false
		}
		return r, true
	}
}

// asOf returns the contributor's most recent value at a date <= d.
func asOf(rows []model.Point, d time.Time) (float64, bool) {
	// First index strictly after d; the observation before it is the as-of value.
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Date.After(d) })
	if i == 0 {
		return 0, false
	}
	return rows[i-1].Value, true
}

// Fuse aligns the contributors onto the reference calendar with an as-of
// join (last value carried forward, no interpolation) and combines the
// aligned values. Reference dates where any contributor has no observation
// yet are dropped, producing a warm-up gap instead of fabricated values.
// An empty reference or contributor yields an empty result.
func Fuse(ref *model.SeriesRecord, contributors []*model.SeriesRecord, combine CombineFunc) []model.Point {
	if ref.Empty() {
		return nil
	}
	for _, c := range contributors {
		if c.Empty() {
			return nil
		}
	}

	out := make([]model.Point, 0, len(ref.Rows))
	values := make([]float64, len(contributors))
	for _, refRow := range ref.Rows {
		aligned := true
		for i, c := range contributors {
			v, ok := asOf(c.Rows, refRow.Date)
			if !ok {
				aligned = false
				break
			}
			values[i] = v
		}
		if !aligned {
			continue
		}
		if v, ok := combine(values); ok {
			out = append(out, model.Point{Date: refRow.Date, Value: v})
		}
	}
	return out
}

// Engine regenerates cached composite series from stored contributors.
// A composite's cache entry goes stale under the same freshness rule as any
// fetched series, but is refreshed by re-running the fusion, never by a
// direct provider call.
type Engine struct {
	store    store.Store
	windows  freshness.Windows
	category string
	now      func() time.Time
}

// NewEngine creates an Engine caching composites under the given category's
// freshness window.
func NewEngine(st store.Store, w freshness.Windows) *Engine {
	return &Engine{store: st, windows: w, category: freshness.CategoryMacro, now: time.Now}
}

// Fuse returns the cached composite when fresh, otherwise re-fuses it from
// the stored contributor series and writes the result through. Missing or
// empty contributors yield an empty composite, not an error; only storage
// failures are returned.
func (e *Engine) Fuse(id, refID string, contributorIDs []string, combine CombineFunc) (*model.SeriesRecord, error) {
	maxAge := e.windows.MaxAge(e.category)

	cached, err := e.store.GetSeries(id)
	if err != nil {
		return nil, err
	}
	if cached != nil && freshness.IsFreshAt(e.now(), cached.LastRefreshed, maxAge) {
		return cached, nil
	}

	ref, err := e.store.GetSeries(refID)
	if err != nil {
		return nil, err
	}
	contributors := make([]*model.SeriesRecord, len(contributorIDs))
	for i, cid := range contributorIDs {
		c, err := e.store.GetSeries(cid)
		if err != nil {
			return nil, err
		}
		contributors[i] = c
	}

	rows := Fuse(ref, contributors, combine)
	if len(rows) == 0 {
		// Nothing to cache; serve whatever was cached before, stale or not.
		if cached != nil {
			return cached, nil
		}
		return &model.SeriesRecord{ID: id}, nil
	}

	if err := e.store.PutSeries(id, rows); err != nil {
		return nil, err
	}
	return e.store.GetSeries(id)
}
