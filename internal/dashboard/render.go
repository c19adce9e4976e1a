package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"FiscalSentinel/internal/analysis"
	"FiscalSentinel/internal/config"
	"FiscalSentinel/internal/model"
)

// markers appended to metric lines.
const (
	markStale       = " (stale)"
	markUnavailable = "N/A"
)

// FormatCountryReport renders one country's fiscal and monetary panels as a
// text frame. Absent metrics print N/A; metrics served from an expired cache
// carry a stale marker. Derived figures are only printed when every input
// resolved.
func FormatCountryReport(country config.Country, snap *model.CountrySnapshot, th config.Thresholds) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== %s | %s ===\n", country.Code, snap.FetchedAt.Format("2006-01-02 15:04")))

	// Fiscal panel
	b.WriteString("-- Fiscal --\n")
	writeMetric(&b, snap, "Total Debt", model.MetricTotalDebt, func(v float64) string {
		return fmt.Sprintf("%s B %s", humanize.CommafWithDigits(v, 0), snap.Currency)
	})

	if snap.Has(model.MetricTotalDebt, model.MetricGDP) {
		debt, _ := snap.Get(model.MetricTotalDebt)
		gdp, _ := snap.Get(model.MetricGDP)
		ratio := analysis.DebtToGDPRatio(debt, gdp)
		status := analysis.DebtGDPStatus(ratio, country.Emerging)
		b.WriteString(fmt.Sprintf("Debt/GDP: %.1f%% [%s]\n", ratio, status))
	}
	if snap.Has(model.MetricInterestPayments, model.MetricTaxReceipts) {
		interest, _ := snap.Get(model.MetricInterestPayments)
		taxes, _ := snap.Get(model.MetricTaxReceipts)
		ratio := analysis.InterestRevenueRatio(interest, taxes)
		status := analysis.InterestRatioStatus(ratio, th.InterestRevWarning, th.InterestRevCritical)
		b.WriteString(fmt.Sprintf("Interest/Revenue: %.1f%% [%s]\n", ratio*100, status))
	}
	if snap.Has(model.MetricTotalDebt, model.MetricYield10Y) {
		debt, _ := snap.Get(model.MetricTotalDebt)
		y10, _ := snap.Get(model.MetricYield10Y)
		cost := analysis.DaysOfInterest(debt, y10)
		b.WriteString(fmt.Sprintf("Daily Interest Cost: %s B %s\n", humanize.CommafWithDigits(cost, 2), snap.Currency))
	}

	// Monetary panel
	b.WriteString("-- Monetary --\n")
	writeMetric(&b, snap, "10Y Yield", model.MetricYield10Y, percent)
	writeMetric(&b, snap, "Inflation (YoY)", model.MetricInflationYoY, percent)
	if snap.Has(model.MetricYield10Y, model.MetricInflationYoY) {
		y10, _ := snap.Get(model.MetricYield10Y)
		inf, _ := snap.Get(model.MetricInflationYoY)
		b.WriteString(fmt.Sprintf("Real Yield: %+.2f%%\n", analysis.RealYield(y10, inf)))
	}
	if fx, ok := snap.Get(model.MetricFXRate); ok {
		b.WriteString(fmt.Sprintf("USD/%s: %.2f%s\n", snap.Currency, fx, staleMark(snap, model.MetricFXRate)))
	}

	// Alerts
	if alerts := CollectAlerts(country, snap, th); len(alerts) > 0 {
		b.WriteString("ALERTS: " + strings.Join(alerts, " | ") + "\n")
	} else {
		b.WriteString("System Status: STABLE\n")
	}

	if len(snap.Errors) > 0 {
		b.WriteString(fmt.Sprintf("degraded: %d advisory error(s)\n", len(snap.Errors)))
	}
	return b.String()
}

// CollectAlerts evaluates the alert conditions that apply to the snapshot.
func CollectAlerts(country config.Country, snap *model.CountrySnapshot, th config.Thresholds) []string {
	var alerts []string
	if snap.Has(model.MetricInterestPayments, model.MetricTaxReceipts) {
		interest, _ := snap.Get(model.MetricInterestPayments)
		taxes, _ := snap.Get(model.MetricTaxReceipts)
		ratio := analysis.InterestRevenueRatio(interest, taxes)
		if analysis.InterestRatioStatus(ratio, th.InterestRevWarning, th.InterestRevCritical) == model.StatusCritical {
			alerts = append(alerts, fmt.Sprintf("CRITICAL: DEBT SPIRAL (Int/Rev %.1f%%)", ratio*100))
		}
	}
	if y10, ok := snap.Get(model.MetricYield10Y); ok {
		if analysis.BondVigilante(y10, th.Yield10YVigilante) {
			alerts = append(alerts, fmt.Sprintf("CRITICAL: BOND VIGILANTE (10Y %.2f%%)", y10))
		} else if y10 >= th.Yield10YWarning {
			alerts = append(alerts, fmt.Sprintf("WARNING: 10Y YIELD ELEVATED (%.2f%%)", y10))
		}
	}
	if snap.Has(model.MetricYield10Y, model.MetricGDPGrowth) {
		y10, _ := snap.Get(model.MetricYield10Y)
		g, _ := snap.Get(model.MetricGDPGrowth)
		if analysis.GrowthSpreadStatus(analysis.GrowthSpread(y10, g)) == model.StatusCritical {
			alerts = append(alerts, "CRITICAL: r > g (debt compounding faster than growth)")
		}
	}
	if snap.Has(model.MetricYield10Y, model.MetricYieldShort) {
		y10, _ := snap.Get(model.MetricYield10Y)
		ys, _ := snap.Get(model.MetricYieldShort)
		if analysis.YieldCurveStatus(analysis.YieldSpread(y10, ys)) == model.StatusCritical {
			alerts = append(alerts, "WARNING: YIELD CURVE INVERTED")
		}
	}
	return alerts
}

// FormatGlobalGrid renders the multi-country comparison table, one row per
// snapshot.
func FormatGlobalGrid(countries []config.Country, snaps []*model.CountrySnapshot, th config.Thresholds) string {
	var b strings.Builder
	b.WriteString("Global Sovereign Debt Monitor\n")
	b.WriteString(fmt.Sprintf("%-8s %-10s %-10s %-12s %s\n", "Country", "10Y Yield", "Debt/GDP", "Int/Revenue", "Status"))

	for i, snap := range snaps {
		y10s, dgs, irs := markUnavailable, markUnavailable, markUnavailable
		status := "STABLE"

		if y10, ok := snap.Get(model.MetricYield10Y); ok {
			y10s = fmt.Sprintf("%.2f%%", y10) + staleMark(snap, model.MetricYield10Y)
			if analysis.BondVigilante(y10, th.Yield10YVigilante) {
				status = string(model.StatusCritical)
			}
		}
		if snap.Has(model.MetricTotalDebt, model.MetricGDP) {
			debt, _ := snap.Get(model.MetricTotalDebt)
			gdp, _ := snap.Get(model.MetricGDP)
			dgs = fmt.Sprintf("%.1f%%", analysis.DebtToGDPRatio(debt, gdp))
		}
		if snap.Has(model.MetricInterestPayments, model.MetricTaxReceipts) {
			interest, _ := snap.Get(model.MetricInterestPayments)
			taxes, _ := snap.Get(model.MetricTaxReceipts)
			ratio := analysis.InterestRevenueRatio(interest, taxes)
			irs = fmt.Sprintf("%.1f%%", ratio*100)
			if analysis.InterestRatioStatus(ratio, th.InterestRevWarning, th.InterestRevCritical) == model.StatusCritical {
				status = string(model.StatusCritical)
			}
		}

		code := snap.Country
		if i < len(countries) {
			code = countries[i].Code
		}
		b.WriteString(fmt.Sprintf("%-8s %-10s %-10s %-12s %s\n", code, y10s, dgs, irs, status))
	}
	return b.String()
}

// FormatLiquidity renders the net liquidity composite: latest level, the
// change over the lookback, and the refresh stamp.
func FormatLiquidity(rec *model.SeriesRecord) string {
	if rec.Empty() {
		return "Net Liquidity: " + markUnavailable + "\n"
	}
	var b strings.Builder
	last, _ := rec.Last()
	b.WriteString(fmt.Sprintf("Net Liquidity: %s B USD (as of %s)\n",
		humanize.CommafWithDigits(last.Value, 1), last.Date.Format("2006-01-02")))

	if len(rec.Rows) > 1 {
		first := rec.Rows[0]
		delta := last.Value - first.Value
		b.WriteString(fmt.Sprintf("Change since %s: %+.1f B\n", first.Date.Format("2006-01-02"), delta))
	}
	if !rec.LastRefreshed.IsZero() {
		b.WriteString(fmt.Sprintf("refreshed %s\n", rec.LastRefreshed.Format(time.RFC3339)))
	}
	return b.String()
}

// FormatDayZero renders the regression projection, degrading to the reason
// when no projection is possible.
func FormatDayZero(dz *analysis.DayZero, err error) string {
	if err != nil {
		return fmt.Sprintf("Day Zero Projection: %s (%v)\n", markUnavailable, err)
	}
	return fmt.Sprintf("Day Zero Projection: %s (%.1f years, slope %.2g/day)\n",
		dz.Date.Format("2006-01-02"), dz.YearsRemaining, dz.Slope)
}

// FormatChart renders a series as a compact sparkline-style text block with
// first/last values, enough for log-friendly frames.
func FormatChart(title string, rec *model.SeriesRecord) string {
	if rec.Empty() {
		return fmt.Sprintf("%s: %s\n", title, markUnavailable)
	}
	first := rec.Rows[0]
	last, _ := rec.Last()
	return fmt.Sprintf("%s: %s %.2f -> %s %.2f (%d points)\n",
		title, first.Date.Format("2006-01-02"), first.Value,
		last.Date.Format("2006-01-02"), last.Value, len(rec.Rows))
}

func writeMetric(b *strings.Builder, snap *model.CountrySnapshot, label, name string, format func(float64) string) {
	v, ok := snap.Get(name)
	if !ok {
		b.WriteString(fmt.Sprintf("%s: %s\n", label, markUnavailable))
		return
	}
	b.WriteString(fmt.Sprintf("%s: %s%s\n", label, format(v), staleMark(snap, name)))
}

func percent(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func staleMark(snap *model.CountrySnapshot, name string) string {
	if snap.Stale[name] {
		return markStale
	}
	return ""
}
