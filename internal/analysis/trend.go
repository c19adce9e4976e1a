package analysis

import (
	"errors"
	"fmt"
	"time"

	"FiscalSentinel/internal/model"
)

// MinTrendPoints is the fewest observations a regression will accept.
const MinTrendPoints = 10

var (
	// ErrInsufficientHistory means too few points to fit a trend.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrTrendImproving means the fitted slope is flat or falling, so the
	// ratio never reaches the ceiling.
	ErrTrendImproving = errors.New("trend is improving")
)

// DayZero is the projected date the interest/revenue ratio hits 1.0:
// every tax dollar consumed by interest.
type DayZero struct {
	Date           time.Time
	YearsRemaining float64
	Slope          float64 // ratio change per day
}

// ProjectDayZero fits a least-squares line through the ratio history and
// solves for ratio = 1.0. History rows must be ascending by date; values
// are ratios as decimals.
func ProjectDayZero(history []model.Point, now time.Time) (*DayZero, error) {
	if len(history) < MinTrendPoints {
		return nil, fmt.Errorf("%w: %d points, need %d", ErrInsufficientHistory, len(history), MinTrendPoints)
	}

	// Regress ratio against days since the first observation. Centering on
	// the first date keeps x small enough that the normal equations stay
	// well-conditioned in float64.
	origin := history[0].Date
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(history))
	for _, p := range history {
		x := p.Date.Sub(origin).Hours() / 24
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil, fmt.Errorf("%w: degenerate dates", ErrInsufficientHistory)
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	if slope <= 0 {
		return nil, fmt.Errorf("%w: slope %.6g per day", ErrTrendImproving, slope)
	}

	// Solve 1.0 = slope*x + intercept for days past the origin.
	xZero := (1.0 - intercept) / slope
	date := origin.Add(time.Duration(xZero * 24 * float64(time.Hour)))
	years := date.Sub(now).Hours() / 24 / 365.25
	if years < 0 {
		years = 0
	}
	return &DayZero{Date: date, YearsRemaining: years, Slope: slope}, nil
}
