package models

// Settings field names as persisted in the key-value config store.
const (
	FieldTaxRate               = "tax_rate"
	FieldTraderShare           = "trader_share"
	FieldInvestorShare         = "investor_share"
	FieldAutoRemoveDayTrades   = "auto_remove_day_trades"
	FieldEnableSP500Comparison = "enable_sp500_comparison"
)

// Hard defaults applied when neither a client override nor a global value exists.
const (
	DefaultTaxRate       = 0.25
	DefaultTraderShare   = 0.40
	DefaultInvestorShare = 0.60
)

// Settings is the resolved configuration for one scope. TraderShare and
// InvestorShare always sum to 1; setting one recomputes the other.
type Settings struct {
	TaxRate               float64 `json:"tax_rate"`
	TraderShare           float64 `json:"trader_share"`
	InvestorShare         float64 `json:"investor_share"`
	AutoRemoveDayTrades   bool    `json:"auto_remove_day_trades"`
	EnableSP500Comparison bool    `json:"enable_sp500_comparison"`
}

// DefaultSettings returns the hard-default configuration.
func DefaultSettings() Settings {
	return Settings{
		TaxRate:               DefaultTaxRate,
		TraderShare:           DefaultTraderShare,
		InvestorShare:         DefaultInvestorShare,
		AutoRemoveDayTrades:   true,
		EnableSP500Comparison: true,
	}
}

// SettingsUpdate carries a partial update; nil fields are left untouched.
type SettingsUpdate struct {
	TaxRate               *float64 `json:"tax_rate,omitempty"`
	TraderShare           *float64 `json:"trader_share,omitempty"`
	InvestorShare         *float64 `json:"investor_share,omitempty"`
	AutoRemoveDayTrades   *bool    `json:"auto_remove_day_trades,omitempty"`
	EnableSP500Comparison *bool    `json:"enable_sp500_comparison,omitempty"`
}
