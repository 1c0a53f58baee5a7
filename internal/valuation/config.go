package valuation

// MomentumThreshold is the yoy growth (%) both recent months must exceed
// for a below-cheap stock to be red rather than orange.
const MomentumThreshold = 5.0

// Config holds the valuation windows
type Config struct {
	// LookbackYears is the number of yearly multiples used for the bands
	LookbackYears int `yaml:"lookback_years" validate:"gte=1"`
	// MinHistoryYears is the minimum number of distinct fiscal years of quarterly data
	MinHistoryYears int `yaml:"min_history_years" validate:"gte=1"`
	// ProfitWindowYears is the number of trailing years that must all be profitable
	ProfitWindowYears int `yaml:"profit_window_years" validate:"gte=1"`
	// MarginQuarters is the number of recent quarters used for the net margin
	MarginQuarters int `yaml:"margin_quarters" validate:"gte=1"`
	// GrowthMonths is the number of recent months averaged for revenue growth
	GrowthMonths int `yaml:"growth_months" validate:"gte=2"`
	// AllowMissingYears judges only the profit-window years that have rows
	AllowMissingYears bool `yaml:"allow_missing_years"`
}

// DefaultConfig returns the standard windows
func DefaultConfig() Config {
	return Config{
		LookbackYears:     5,
		MinHistoryYears:   4,
		ProfitWindowYears: 5,
		MarginQuarters:    4,
		GrowthMonths:      6,
		AllowMissingYears: false,
	}
}

// WithDefaults fills zero fields from DefaultConfig
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.LookbackYears == 0 {
		c.LookbackYears = d.LookbackYears
	}
	if c.MinHistoryYears == 0 {
		c.MinHistoryYears = d.MinHistoryYears
	}
	if c.ProfitWindowYears == 0 {
		c.ProfitWindowYears = d.ProfitWindowYears
	}
	if c.MarginQuarters == 0 {
		c.MarginQuarters = d.MarginQuarters
	}
	if c.GrowthMonths == 0 {
		c.GrowthMonths = d.GrowthMonths
	}
	return c
}
