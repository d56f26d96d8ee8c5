package services

import (
	"errors"
	"io"
	"time"

	"github.com/username/fundfolio/backend/src/models"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// Common service errors.
var (
	ErrParsingFailed    = errors.New("csv parsing failed")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
)

// ImportSummary reports what happened to one uploaded trade log. Duplicate
// and removed rows are counted, never errors: importing the same file twice
// must leave the trade store unchanged.
type ImportSummary struct {
	Imported         int `json:"imported"`
	Duplicates       int `json:"duplicates"`
	DayTradesRemoved int `json:"day_trades_removed"`
	SkippedRows      int `json:"skipped_rows"`
}

// TradeService owns the trade store: imports, listings, and removals.
type TradeService interface {
	ImportTrades(fileReader io.Reader, source, filename string, filesize int64) (*ImportSummary, error)
	ListTrades() ([]models.Trade, error)
	DeleteAllTrades() error
	RemoveTradesByReturnPct(stock string, targetReturnPct, tolerance float64) (int, error)
	ImportHistory() ([]models.ImportRecord, error)
}

// ClientService owns the client directory, the append-only capital
// movement log, and the monthly capital override table.
type ClientService interface {
	ListClients(includeInactive bool) ([]models.Client, error)
	GetClient(clientID string) (*models.Client, error)
	UpsertClient(client models.Client, password string) error
	DeleteClient(clientID string) error

	AddMovement(movement models.CapitalMovement) (*models.CapitalMovement, error)
	ListMovements(clientID string) ([]models.CapitalMovement, error)

	SetMonthlyOverride(override models.MonthlyCapitalOverride) error
	DeleteMonthlyOverride(month string) error
	ListMonthlyOverrides() ([]models.MonthlyCapitalOverride, error)
}

// SettingsService is the two-tier configuration resolver: client override
// falls back field-by-field to global, then to hard defaults.
type SettingsService interface {
	Resolve(clientID string) (models.Settings, error)
	GetGlobal() (models.Settings, error)
	UpdateGlobal(update models.SettingsUpdate) (models.Settings, error)
	UpdateClient(clientID string, update models.SettingsUpdate) (models.Settings, error)
	ListClientOverrides() (map[string]map[string]string, error)
	DeleteClientOverrides(clientID string) error
}

// CapitalFlowService computes the period return series and the reconciled
// per-client capital ledgers.
type CapitalFlowService interface {
	MonthlyReturns(clientID string) ([]models.PeriodStats, error)
	BiweeklyReturns(clientID string) ([]models.PeriodStats, error)
	DailyReturns() ([]models.PositionStats, error)
	WeeklyReturns() ([]models.PositionStats, error)
	Summary(clientID string) (models.StrategySummary, error)
	CapitalFlow(clientID string) (*models.CapitalFlow, error)
	InvalidateCache()
}

// BenchmarkService fetches the external market-index monthly return series.
// It is optional by contract: failures degrade to an empty series.
type BenchmarkService interface {
	MonthlyReturns() ([]models.BenchmarkPoint, error)
}
