package model

// AlertStatus classifies a metric against its thresholds.
type AlertStatus string

const (
	StatusSafe     AlertStatus = "SAFE"
	StatusWarning  AlertStatus = "WARNING"
	StatusCritical AlertStatus = "CRITICAL"
)

// Standard metric names shared between config, collection, and rendering.
const (
	MetricTotalDebt        = "total_debt"
	MetricInterestPayments = "interest_payments"
	MetricTaxReceipts      = "tax_receipts"
	MetricGDP              = "gdp"
	MetricGDPGrowth        = "gdp_growth"
	MetricInflationYoY     = "inflation_yoy"
	MetricYield10Y         = "yield_10y"
	MetricYieldShort       = "yield_short"
	MetricFXRate           = "fx_rate"
)
