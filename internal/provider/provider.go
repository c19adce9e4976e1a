package provider

import (
	"context"
	"errors"
	"time"

	"FiscalSentinel/internal/model"
)

// Provider failure vocabulary. Transport-level failures are reported as
// ordinary wrapped errors; these sentinels mark the structural cases the
// orchestrator treats specially.
var (
	// ErrNoData means the provider answered but had nothing usable.
	ErrNoData = errors.New("provider returned no data")
	// ErrMalformedLocalFact means a local fact file field failed to parse.
	ErrMalformedLocalFact = errors.New("malformed local fact")
)

// ScalarProvider fetches the latest value of a single indicator.
type ScalarProvider interface {
	FetchScalar(ctx context.Context, id string) (float64, error)
	Name() string
}

// SeriesProvider fetches a windowed time series, ordered ascending by date.
type SeriesProvider interface {
	FetchSeries(ctx context.Context, id, period string) ([]model.Point, error)
	Name() string
}

// periodStart maps a chart period label ("6mo", "1y", ...) to the start of
// its observation window. Unknown labels get the widest supported window.
func periodStart(now time.Time, period string) time.Time {
	switch period {
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "1y":
		return now.AddDate(-1, 0, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	default:
		return now.AddDate(-10, 0, 0)
	}
}
