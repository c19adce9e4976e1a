package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"FiscalSentinel/internal/model"
)

// quarterly returns n quarterly ratio observations starting at 0.10 and
// rising by step per quarter.
func quarterly(n int, start, step float64) []model.Point {
	rows := make([]model.Point, n)
	d := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = model.Point{Date: d.AddDate(0, 3*i, 0), Value: start + step*float64(i)}
	}
	return rows
}

func TestProjectDayZeroLinear(t *testing.T) {
	// 0.01 per quarter from 0.10: the ratio hits 1.0 ninety quarters after
	// the first observation.
	rows := quarterly(20, 0.10, 0.01)
	now := rows[len(rows)-1].Date

	dz, err := ProjectDayZero(rows, now)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	expected := rows[0].Date.AddDate(0, 3*90, 0)
	if diff := dz.Date.Sub(expected); math.Abs(diff.Hours()) > 24*40 {
		// Quarter lengths are uneven, allow some drift around the target.
		t.Errorf("day zero %s, want near %s", dz.Date.Format("2006-01-02"), expected.Format("2006-01-02"))
	}
	if dz.YearsRemaining < 15 || dz.YearsRemaining > 20 {
		t.Errorf("years remaining = %.1f, want roughly 17-18", dz.YearsRemaining)
	}
	if dz.Slope <= 0 {
		t.Errorf("slope = %v, want positive", dz.Slope)
	}
}

func TestProjectDayZeroInsufficientHistory(t *testing.T) {
	_, err := ProjectDayZero(quarterly(9, 0.10, 0.01), time.Now())
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
	_, err = ProjectDayZero(nil, time.Now())
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("nil history: expected ErrInsufficientHistory, got %v", err)
	}
}

func TestProjectDayZeroImprovingTrend(t *testing.T) {
	_, err := ProjectDayZero(quarterly(12, 0.30, -0.005), time.Now())
	if !errors.Is(err, ErrTrendImproving) {
		t.Errorf("falling ratio: expected ErrTrendImproving, got %v", err)
	}
	_, err = ProjectDayZero(quarterly(12, 0.25, 0), time.Now())
	if !errors.Is(err, ErrTrendImproving) {
		t.Errorf("flat ratio: expected ErrTrendImproving, got %v", err)
	}
}

func TestProjectDayZeroAlreadyPassed(t *testing.T) {
	rows := quarterly(12, 0.90, 0.02) // crosses 1.0 within the sample
	now := rows[len(rows)-1].Date.AddDate(5, 0, 0)

	dz, err := ProjectDayZero(rows, now)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if dz.YearsRemaining != 0 {
		t.Errorf("past day zero should clamp to 0 years, got %.2f", dz.YearsRemaining)
	}
}
