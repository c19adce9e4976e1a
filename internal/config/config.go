package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Country describes one monitored sovereign: which FRED series, market
// tickers, and local fact keys feed each named metric.
type Country struct {
	Code     string `yaml:"code"`
	Currency string `yaml:"currency"`
	Emerging bool   `yaml:"emerging"`

	// metric name -> FRED series id (slow macro facts)
	FredSeries map[string]string `yaml:"fred_series"`
	// metric name -> Yahoo ticker (live quotes)
	Tickers map[string]string `yaml:"tickers"`
	// metric name -> key in the local fact file
	FactKeys map[string]string `yaml:"fact_keys"`
}

// Contributor is one input to a composite series. Coefficients carry unit
// conversions (e.g. millions -> billions) and sign.
type Contributor struct {
	Series      string  `yaml:"series"`
	Coefficient float64 `yaml:"coefficient"`
}

// Composite describes a derived series built by fusing cached contributors
// with a fixed linear combination.
type Composite struct {
	ID           string        `yaml:"id"`
	Reference    string        `yaml:"reference"`
	Contributors []Contributor `yaml:"contributors"`
}

// Duration wraps time.Duration so YAML values like "10m" or "24h" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Thresholds are the alert cut-offs applied to resolved metrics. Interest
// ratio thresholds are decimals; yield thresholds are percentages.
type Thresholds struct {
	InterestRevWarning  float64 `yaml:"interest_rev_warning"`
	InterestRevCritical float64 `yaml:"interest_rev_critical"`
	Yield10YWarning     float64 `yaml:"yield_10y_warning"`
	Yield10YVigilante   float64 `yaml:"yield_10y_vigilante"`
}

// Config holds all application configuration.
type Config struct {
	Fred struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"fred"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Facts struct {
		Path string `yaml:"path"`
	} `yaml:"facts"`
	Schedule struct {
		MacroCron  string `yaml:"macro_cron"`
		MarketCron string `yaml:"market_cron"`
	} `yaml:"schedule"`
	Freshness struct {
		MacroMaxAge  Duration `yaml:"macro_max_age"`
		MarketMaxAge Duration `yaml:"market_max_age"`
		LocalMaxAge  Duration `yaml:"local_max_age"`
	} `yaml:"freshness"`
	Thresholds  Thresholds  `yaml:"thresholds"`
	ChartPeriod string      `yaml:"chart_period"`
	Countries   []Country   `yaml:"countries"`
	Composites  []Composite `yaml:"composites"`
	Proxy       string      `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		cfg.Fred.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("FACTS_PATH"); v != "" {
		cfg.Facts.Path = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_MACRO"); v != "" {
		cfg.Schedule.MacroCron = v
	}
	if v := os.Getenv("CRON_MARKET"); v != "" {
		cfg.Schedule.MarketCron = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/sentinel.db"
	}
	if c.Facts.Path == "" {
		c.Facts.Path = "data/sa_fiscal.json"
	}
	// Macro facts move quarterly; refresh early each morning.
	if c.Schedule.MacroCron == "" {
		c.Schedule.MacroCron = "0 0 6 * * *"
	}
	// Live quotes refresh every ten minutes.
	if c.Schedule.MarketCron == "" {
		c.Schedule.MarketCron = "0 */10 * * * *"
	}
	if c.Freshness.MacroMaxAge == 0 {
		c.Freshness.MacroMaxAge = Duration(24 * time.Hour)
	}
	if c.Freshness.MarketMaxAge == 0 {
		c.Freshness.MarketMaxAge = Duration(10 * time.Minute)
	}
	if c.Freshness.LocalMaxAge == 0 {
		c.Freshness.LocalMaxAge = Duration(45 * 24 * time.Hour)
	}
	if c.Thresholds.InterestRevWarning == 0 {
		c.Thresholds.InterestRevWarning = 0.18
	}
	if c.Thresholds.InterestRevCritical == 0 {
		c.Thresholds.InterestRevCritical = 0.20
	}
	if c.Thresholds.Yield10YWarning == 0 {
		c.Thresholds.Yield10YWarning = 4.5
	}
	if c.Thresholds.Yield10YVigilante == 0 {
		c.Thresholds.Yield10YVigilante = 5.0
	}
	if c.ChartPeriod == "" {
		c.ChartPeriod = "6mo"
	}
	if len(c.Countries) == 0 {
		c.Countries = DefaultCountries()
	}
	if len(c.Composites) == 0 {
		c.Composites = DefaultComposites()
	}
}

// DefaultCountries returns the built-in US and SA metric sets.
func DefaultCountries() []Country {
	return []Country{
		{
			Code:     "US",
			Currency: "USD",
			FredSeries: map[string]string{
				"total_debt":        "GFDEBTN",         // Federal Debt: Total Public Debt (quarterly)
				"interest_payments": "A091RC1Q027SBEA", // Federal Gov Interest Payments (quarterly)
				"tax_receipts":      "W006RC1Q027SBEA", // Federal Gov Tax Receipts (quarterly)
				"gdp":               "GDP",
			},
			Tickers: map[string]string{
				"yield_10y": "^TNX",
			},
		},
		{
			Code:     "SA",
			Currency: "ZAR",
			Emerging: true,
			Tickers: map[string]string{
				"fx_rate": "ZAR=X",
			},
			FactKeys: map[string]string{
				"total_debt":        "debt_zar_billions",
				"tax_receipts":      "annual_revenue_zar_billions",
				"interest_payments": "annual_interest_expense_zar_billions",
				"gdp_growth":        "gdp_growth_forecast_pct",
				"yield_10y":         "bond_yield_10y_static",
			},
		},
	}
}

// DefaultComposites returns the standing net-liquidity composite: Fed
// balance sheet (millions) minus Treasury General Account and overnight
// reverse repo (both billions), on the balance-sheet calendar.
func DefaultComposites() []Composite {
	return []Composite{
		{
			ID:        "net-liquidity",
			Reference: "WALCL",
			Contributors: []Contributor{
				{Series: "WALCL", Coefficient: 0.001},
				{Series: "WTREGEN", Coefficient: -1},
				{Series: "RRPONTSYD", Coefficient: -1},
			},
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Countries) == 0 {
		return fmt.Errorf("at least one country is required")
	}
	for _, country := range c.Countries {
		if country.Code == "" {
			return fmt.Errorf("country code is required")
		}
	}
	for _, comp := range c.Composites {
		if comp.ID == "" || comp.Reference == "" {
			return fmt.Errorf("composite id and reference are required")
		}
		if len(comp.Contributors) < 2 {
			return fmt.Errorf("composite %s needs at least two contributors", comp.ID)
		}
	}
	if c.Thresholds.InterestRevWarning >= c.Thresholds.InterestRevCritical {
		return fmt.Errorf("interest_rev_warning must be below interest_rev_critical")
	}
	return nil
}
