package analysis

import (
	"math"

	"FiscalSentinel/internal/model"
)

// Debt/GDP alert thresholds in percent. Emerging markets carry lower
// tolerances than developed ones.
const (
	DebtGDPWarnDeveloped = 100.0
	DebtGDPCritDeveloped = 120.0
	DebtGDPWarnEmerging  = 70.0
	DebtGDPCritEmerging  = 90.0
)

// InterestRevenueRatio is annual interest expense over annual tax revenue,
// as a decimal (0.18 means 18 cents of every tax dollar go to interest).
// A zero denominator yields +Inf.
func InterestRevenueRatio(interestExpense, taxRevenue float64) float64 {
	if taxRevenue == 0 {
		return math.Inf(1)
	}
	return interestExpense / taxRevenue
}

// DebtToGDPRatio is total debt over GDP in percent, both in the same unit.
func DebtToGDPRatio(totalDebt, gdp float64) float64 {
	if gdp == 0 {
		return math.Inf(1)
	}
	return totalDebt / gdp * 100
}

// GrowthSpread is r minus g: the 10Y yield less the GDP growth rate, in
// percentage points. Positive means debt compounds faster than the economy.
func GrowthSpread(bondYield, gdpGrowth float64) float64 {
	return bondYield - gdpGrowth
}

// RealYield is the nominal yield less realized inflation (YoY CPI).
func RealYield(nominalYield, inflationRate float64) float64 {
	return nominalYield - inflationRate
}

// YieldSpread is the long yield less the short yield (10Y - 3M).
// Negative means the curve is inverted.
func YieldSpread(longYield, shortYield float64) float64 {
	return longYield - shortYield
}

// DaysOfInterest is the daily interest cost implied by the debt stock and
// an average rate in percent, in the debt's unit.
func DaysOfInterest(totalDebt, avgRate float64) float64 {
	return totalDebt * (avgRate / 100) / 365
}

// MarketRealYield is the nominal 10Y less the 5Y breakeven inflation rate:
// the real return investors are pricing, rather than realized inflation.
func MarketRealYield(nominal10Y, breakeven5Y float64) float64 {
	return nominal10Y - breakeven5Y
}

// FedRateExpectation decomposes the 10Y yield into the market's implied
// policy-rate path by stripping the term premium.
func FedRateExpectation(nominal10Y, termPremium float64) float64 {
	return nominal10Y - termPremium
}

// InterestRatioStatus maps the interest/revenue ratio against configured
// decimal thresholds.
func InterestRatioStatus(ratio, warning, critical float64) model.AlertStatus {
	switch {
	case ratio >= critical:
		return model.StatusCritical
	case ratio >= warning:
		return model.StatusWarning
	}
	return model.StatusSafe
}

// GrowthSpreadStatus: a positive r-g spread is critical, there is no
// warning band.
func GrowthSpreadStatus(spread float64) model.AlertStatus {
	if spread > 0 {
		return model.StatusCritical
	}
	return model.StatusSafe
}

// YieldCurveStatus: an inverted curve is critical.
func YieldCurveStatus(spread float64) model.AlertStatus {
	if spread < 0 {
		return model.StatusCritical
	}
	return model.StatusSafe
}

// DebtGDPStatus maps a debt/GDP percentage to a status with the tolerance
// band appropriate to the market class.
func DebtGDPStatus(ratio float64, emerging bool) model.AlertStatus {
	warn, crit := DebtGDPWarnDeveloped, DebtGDPCritDeveloped
	if emerging {
		warn, crit = DebtGDPWarnEmerging, DebtGDPCritEmerging
	}
	switch {
	case ratio >= crit:
		return model.StatusCritical
	case ratio >= warn:
		return model.StatusWarning
	}
	return model.StatusSafe
}

// BondVigilante reports whether the 10Y yield has spiked past the configured
// threshold.
func BondVigilante(bondYield, threshold float64) bool {
	return bondYield > threshold
}

// CurrencyRisk reports whether the FX rate has breached the crisis threshold
// (quoted as local currency per USD, higher is weaker).
func CurrencyRisk(fxRate, threshold float64) bool {
	return fxRate > threshold
}
