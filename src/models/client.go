package models

import "time"

// Capital movement types. The movement log is append-only; rows are never
// mutated after creation, only filtered and summed.
const (
	MovementContribution = "contribution"
	MovementWithdrawal   = "withdrawal"
)

// Client is one capital account. ClientID doubles as the auth username.
type Client struct {
	ClientID            string     `json:"client_id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	StartingCapital     float64    `json:"starting_capital"`
	InvestmentStartDate *time.Time `json:"investment_start_date,omitempty"`
	Active              bool       `json:"active"`
	PasswordHash        string     `json:"-"`
}

// CapitalMovement is a single contribution or withdrawal on a client account.
type CapitalMovement struct {
	ID       string    `json:"id"`
	ClientID string    `json:"client_id"`
	Date     time.Time `json:"date"`
	Type     string    `json:"type"` // "contribution" or "withdrawal"
	Amount   float64   `json:"amount"`
	Notes    string    `json:"notes"`
}

// MonthlyCapitalOverride is an admin-set denominator for one calendar
// month's return calculation, replacing the computed pooled default.
// At most one override exists per month.
type MonthlyCapitalOverride struct {
	Month        string  `json:"month"` // "YYYY-MM"
	TotalCapital float64 `json:"total_capital"`
	Notes        string  `json:"notes"`
}

// ImportRecord is one row of the trade-import history.
type ImportRecord struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	FileSize         int64     `json:"file_size"`
	ImportedCount    int       `json:"imported_count"`
	DuplicateCount   int       `json:"duplicate_count"`
	DayTradesRemoved int       `json:"day_trades_removed"`
	CreatedAt        time.Time `json:"created_at"`
}
