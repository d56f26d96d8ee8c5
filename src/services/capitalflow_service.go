// backend/src/services/capitalflow_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/processors"
	"github.com/username/fundfolio/backend/src/utils"
)

const (
	ckMonthlyReturns  = "res_monthly_returns_client_%s"
	ckBiweeklyReturns = "res_biweekly_returns_client_%s"
	ckDailyReturns    = "res_daily_returns"
	ckWeeklyReturns   = "res_weekly_returns"
	ckSummary         = "res_summary_client_%s"
	ckCapitalFlow     = "res_capital_flow_client_%s"
)

type capitalFlowServiceImpl struct {
	db              *sql.DB
	settingsService SettingsService
	reportCache     *cache.Cache
}

func NewCapitalFlowService(db *sql.DB, settingsService SettingsService, reportCache *cache.Cache) CapitalFlowService {
	return &capitalFlowServiceImpl{
		db:              db,
		settingsService: settingsService,
		reportCache:     reportCache,
	}
}

// snapshot is one consistent read of everything a reconciliation needs.
// The aggregation re-reads the full trade set and movement log on every
// call; sqlite serializes writers, so each query sees a stable view.
type snapshot struct {
	trades    []models.Trade
	clients   []models.Client
	movements []models.CapitalMovement
	overrides []models.MonthlyCapitalOverride
}

func (s *capitalFlowServiceImpl) loadSnapshot() (*snapshot, error) {
	snap := &snapshot{}

	rows, err := s.db.Query(`
		SELECT id, buy_date, sell_date, stock, buy_price, sell_price, quantity
		FROM trades ORDER BY sell_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying trades: %w", err)
	}
	snap.trades, err = scanTrades(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT client_id, name, email, starting_capital, investment_start_date, active, password_hash
		FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("error querying clients: %w", err)
	}
	snap.clients, err = scanClients(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT id, client_id, date, type, amount, notes FROM capital_movements ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying capital movements: %w", err)
	}
	for rows.Next() {
		var m models.CapitalMovement
		var date string
		if err := rows.Scan(&m.ID, &m.ClientID, &date, &m.Type, &m.Amount, &m.Notes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning capital movement: %w", err)
		}
		if m.Date, err = time.Parse("2006-01-02", date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error parsing stored movement date %q: %w", date, err)
		}
		snap.movements = append(snap.movements, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT month, total_capital, notes FROM monthly_capital`)
	if err != nil {
		return nil, fmt.Errorf("error querying monthly capital overrides: %w", err)
	}
	for rows.Next() {
		var o models.MonthlyCapitalOverride
		if err := rows.Scan(&o.Month, &o.TotalCapital, &o.Notes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning monthly capital override: %w", err)
		}
		snap.overrides = append(snap.overrides, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	return snap, nil
}

func (snap *snapshot) resolver() processors.CapitalResolver {
	return processors.CapitalResolver{
		Clients:   snap.clients,
		Movements: snap.movements,
		Overrides: snap.overrides,
	}
}

// clientTrades applies the client's investment start date filter, when a
// client is given.
func (snap *snapshot) clientTrades(clientID string) []models.Trade {
	if clientID == "" {
		return snap.trades
	}
	for _, c := range snap.clients {
		if c.ClientID == clientID {
			return processors.FilterFromStartDate(snap.trades, c.InvestmentStartDate)
		}
	}
	return snap.trades
}

func (s *capitalFlowServiceImpl) periodReturns(clientID string, g processors.Granularity, cacheKey string) ([]models.PeriodStats, error) {
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.PeriodStats), nil
	}
	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	stats := processors.AggregatePeriods(snap.clientTrades(clientID), g, snap.resolver())
	s.reportCache.Set(cacheKey, stats, DefaultCacheExpiration)
	return stats, nil
}

func (s *capitalFlowServiceImpl) MonthlyReturns(clientID string) ([]models.PeriodStats, error) {
	return s.periodReturns(clientID, processors.GranularityMonthly, fmt.Sprintf(ckMonthlyReturns, clientID))
}

func (s *capitalFlowServiceImpl) BiweeklyReturns(clientID string) ([]models.PeriodStats, error) {
	return s.periodReturns(clientID, processors.GranularityBiweekly, fmt.Sprintf(ckBiweeklyReturns, clientID))
}

func (s *capitalFlowServiceImpl) DailyReturns() ([]models.PositionStats, error) {
	if cached, found := s.reportCache.Get(ckDailyReturns); found {
		return cached.([]models.PositionStats), nil
	}
	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	stats := processors.AggregateByPositionSize(snap.trades, processors.GranularityDaily)
	s.reportCache.Set(ckDailyReturns, stats, DefaultCacheExpiration)
	return stats, nil
}

func (s *capitalFlowServiceImpl) WeeklyReturns() ([]models.PositionStats, error) {
	if cached, found := s.reportCache.Get(ckWeeklyReturns); found {
		return cached.([]models.PositionStats), nil
	}
	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	stats := processors.AggregateByPositionSize(snap.trades, processors.GranularityWeekly)
	s.reportCache.Set(ckWeeklyReturns, stats, DefaultCacheExpiration)
	return stats, nil
}

func (s *capitalFlowServiceImpl) Summary(clientID string) (models.StrategySummary, error) {
	cacheKey := fmt.Sprintf(ckSummary, clientID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(models.StrategySummary), nil
	}
	snap, err := s.loadSnapshot()
	if err != nil {
		return models.StrategySummary{}, err
	}
	summary := processors.Summarize(snap.clientTrades(clientID), snap.resolver())
	s.reportCache.Set(cacheKey, summary, DefaultCacheExpiration)
	return summary, nil
}

// CapitalFlow produces the reconciled capital ledger for one client. The
// monthly and biweekly ledgers are built by two independent walks over the
// same anchor; they can disagree slightly at period boundaries, which is
// accepted. Returns nil when the client does not exist so the caller can
// render "no account".
func (s *capitalFlowServiceImpl) CapitalFlow(clientID string) (*models.CapitalFlow, error) {
	cacheKey := fmt.Sprintf(ckCapitalFlow, clientID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.CapitalFlow), nil
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}

	var client *models.Client
	for i := range snap.clients {
		if snap.clients[i].ClientID == clientID {
			client = &snap.clients[i]
			break
		}
	}
	if client == nil {
		logger.L.Debug("CapitalFlow requested for unknown client", "clientID", clientID)
		return nil, nil
	}

	settings, err := s.settingsService.Resolve(clientID)
	if err != nil {
		return nil, err
	}

	var clientMovements []models.CapitalMovement
	var totalContributions, totalWithdrawals float64
	for _, m := range snap.movements {
		if m.ClientID != clientID {
			continue
		}
		clientMovements = append(clientMovements, m)
		switch m.Type {
		case models.MovementContribution:
			totalContributions += m.Amount
		case models.MovementWithdrawal:
			totalWithdrawals += m.Amount
		}
	}

	trades := snap.clientTrades(clientID)
	resolver := snap.resolver()

	monthly := processors.BuildLedger(processors.LedgerInput{
		Client:      *client,
		Movements:   clientMovements,
		Periods:     processors.AggregatePeriods(trades, processors.GranularityMonthly, resolver),
		Granularity: processors.GranularityMonthly,
		Settings:    settings,
	})
	biweekly := processors.BuildLedger(processors.LedgerInput{
		Client:      *client,
		Movements:   clientMovements,
		Periods:     processors.AggregatePeriods(trades, processors.GranularityBiweekly, resolver),
		Granularity: processors.GranularityBiweekly,
		Settings:    settings,
	})

	// The headline figures follow the monthly walk when it has periods,
	// falling back to the biweekly one.
	current := monthly.CurrentCapital
	totalReturns := monthly.TotalReturns
	if len(monthly.Breakdown) == 0 && len(biweekly.Breakdown) > 0 {
		current = biweekly.CurrentCapital
		totalReturns = biweekly.TotalReturns
	}

	flow := &models.CapitalFlow{
		StartingCapital:    client.StartingCapital,
		CurrentCapital:     utils.RoundFloat(current, 2),
		TotalContributions: utils.RoundFloat(totalContributions, 2),
		TotalWithdrawals:   utils.RoundFloat(totalWithdrawals, 2),
		TotalReturns:       utils.RoundFloat(totalReturns, 2),
		MonthlyBreakdown:   monthly.Breakdown,
		BiweeklyBreakdown:  biweekly.Breakdown,
	}

	s.reportCache.Set(cacheKey, flow, DefaultCacheExpiration)
	return flow, nil
}

// InvalidateCache flushes every computed report. Called by any service
// that mutates trades, movements, clients, overrides, or settings.
func (s *capitalFlowServiceImpl) InvalidateCache() {
	s.reportCache.Flush()
}
