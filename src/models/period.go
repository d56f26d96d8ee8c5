package models

// PeriodStats is one aggregated period (calendar month or 14-day bucket)
// of trading activity, produced by the period aggregator.
type PeriodStats struct {
	Period           string  `json:"period"` // "YYYY-MM" or "YYYY-MM-DD/YYYY-MM-DD"
	Label            string  `json:"period_label"`
	TotalPL          float64 `json:"total_pl"`
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	WinRate          float64 `json:"win_rate"`
	AvgWinPct        float64 `json:"avg_win_pct"`
	AvgLossPct       float64 `json:"avg_loss_pct"`
	ClientCapital    float64 `json:"client_capital"` // period capital denominator
	ReturnPct        float64 `json:"return_pct"`
	CumulativeReturn float64 `json:"cumulative_return"` // additive, not compounded
}

// PositionStats is one aggregated period measured against total position
// size rather than pooled capital, used for the daily and weekly series.
type PositionStats struct {
	Period            string  `json:"period"`
	Label             string  `json:"period_label"`
	TotalPL           float64 `json:"total_pl"`
	TotalPositionSize float64 `json:"total_position_size"`
	TotalTrades       int     `json:"total_trades"`
	WinningTrades     int     `json:"winning_trades"`
	WinRate           float64 `json:"win_rate"`
	ReturnPct         float64 `json:"return_pct"`
	CumulativeReturn  float64 `json:"cumulative_return"` // compounded, in percent
}

// PeriodBreakdown is one step of a client's reconciled capital ledger.
// Consecutive rows chain: the next period's starting capital equals this
// period's ending capital.
type PeriodBreakdown struct {
	Period                    string  `json:"period"`
	Label                     string  `json:"period_label"`
	StartingCapital           float64 `json:"starting_capital"`
	Contributions             float64 `json:"contributions"`
	Withdrawals               float64 `json:"withdrawals"`
	NetContributions          float64 `json:"net_contributions"`
	CapitalAfterContributions float64 `json:"capital_after_contributions"`
	ReturnPct                 float64 `json:"return_pct"`
	ProfitAfterTax            float64 `json:"profit_after_tax"`
	InvestorShare             float64 `json:"investor_share"`
	TraderShare               float64 `json:"trader_share"`
	EndingCapital             float64 `json:"ending_capital"`
}

// CapitalFlow is the full reconciled picture for one client: the monthly
// and biweekly ledgers are computed by independent walks and may disagree
// slightly at period boundaries.
type CapitalFlow struct {
	StartingCapital    float64           `json:"starting_capital"`
	CurrentCapital     float64           `json:"current_capital"`
	TotalContributions float64           `json:"total_contributions"`
	TotalWithdrawals   float64           `json:"total_withdrawals"`
	TotalReturns       float64           `json:"total_returns"`
	MonthlyBreakdown   []PeriodBreakdown `json:"monthly_breakdown"`
	BiweeklyBreakdown  []PeriodBreakdown `json:"biweekly_breakdown"`
}

// StrategySummary is the all-time aggregate over the (optionally filtered)
// trade set.
type StrategySummary struct {
	TotalTrades       int     `json:"total_trades"`
	WinningTrades     int     `json:"winning_trades"`
	LosingTrades      int     `json:"losing_trades"`
	WinRate           float64 `json:"win_rate"`
	TotalPL           float64 `json:"total_pl"`
	TotalPositionSize float64 `json:"total_position_size"`
	AvgWinner         float64 `json:"avg_winner"`
	AvgLoser          float64 `json:"avg_loser"`
	AvgWinnerPct      float64 `json:"avg_winner_pct"`
	AvgLoserPct       float64 `json:"avg_loser_pct"`
	OverallReturn     float64 `json:"overall_return"`
	CumulativeReturn  float64 `json:"cumulative_return"`
}

// BenchmarkPoint is one month of the external index return series.
type BenchmarkPoint struct {
	Month            string  `json:"month"` // "YYYY-MM"
	ReturnPct        float64 `json:"return_pct"`
	CumulativeReturn float64 `json:"cumulative_return"`
}
