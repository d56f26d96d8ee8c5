// backend/src/services/trade_service.go
package services

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/parsers"
)

type tradeServiceImpl struct {
	db              *sql.DB
	settingsService SettingsService
	flowService     CapitalFlowService
}

func NewTradeService(db *sql.DB, settingsService SettingsService, flowService CapitalFlowService) TradeService {
	return &tradeServiceImpl{
		db:              db,
		settingsService: settingsService,
		flowService:     flowService,
	}
}

// ImportTrades parses an uploaded trade log and merges it into the trade
// store inside one database transaction. Duplicates (rows whose six-field
// signature matches an existing trade, or a repeat within the same batch)
// are dropped and counted. Day trades are removed when the global
// configuration says so. Nothing is written if any step fails.
func (s *tradeServiceImpl) ImportTrades(fileReader io.Reader, source, filename string, filesize int64) (*ImportSummary, error) {
	startTime := time.Now()
	logger.L.Info("ImportTrades START", "source", source, "filename", filename)

	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	parsed, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	settings, err := s.settingsService.Resolve("")
	if err != nil {
		return nil, fmt.Errorf("resolving settings for import: %w", err)
	}

	summary := &ImportSummary{SkippedRows: parsed.SkippedRows}

	trades := parsed.Trades
	if settings.AutoRemoveDayTrades {
		kept := trades[:0]
		for _, t := range trades {
			if t.IsDayTrade() {
				summary.DayTradesRemoved++
				continue
			}
			kept = append(kept, t)
		}
		trades = kept
		if summary.DayTradesRemoved > 0 {
			logger.L.Info("Removed day trades from import", "count", summary.DayTradesRemoved)
		}
	}

	// Deduplicate within the batch itself, keeping the first occurrence.
	seen := map[string]bool{}
	unique := trades[:0]
	for _, t := range trades {
		h := t.HashID()
		if seen[h] {
			summary.Duplicates++
			continue
		}
		seen[h] = true
		unique = append(unique, t)
	}
	trades = unique

	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO trades
		(buy_date, sell_date, stock, buy_price, sell_price, quantity, hash_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(
			t.BuyDate.Format("2006-01-02"),
			t.SellDate.Format("2006-01-02"),
			t.Stock, t.BuyPrice, t.SellPrice, t.Quantity,
			t.HashID(),
		)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate trade on import", "stock", t.Stock, "hash_id", t.HashID())
				summary.Duplicates++
				continue
			}
			return nil, fmt.Errorf("error inserting trade (%s): %w", t.Stock, err)
		}
		summary.Imported++
	}

	_, err = dbTx.Exec(`
		INSERT INTO imports_history (filename, file_size, imported_count, duplicate_count, day_trades_removed)
		VALUES (?, ?, ?, ?, ?)`,
		filename, filesize, summary.Imported, summary.Duplicates, summary.DayTradesRemoved,
	)
	if err != nil {
		return nil, fmt.Errorf("error recording import history: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing trade import: %w", err)
	}

	s.flowService.InvalidateCache()
	logger.L.Info("ImportTrades END",
		"imported", summary.Imported,
		"duplicates", summary.Duplicates,
		"dayTradesRemoved", summary.DayTradesRemoved,
		"skippedRows", summary.SkippedRows,
		"durationMs", time.Since(startTime).Milliseconds())
	return summary, nil
}

func scanTrades(rows *sql.Rows) ([]models.Trade, error) {
	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var buyDate, sellDate string
		if err := rows.Scan(&t.ID, &buyDate, &sellDate, &t.Stock, &t.BuyPrice, &t.SellPrice, &t.Quantity); err != nil {
			return nil, fmt.Errorf("error scanning trade row: %w", err)
		}
		var err error
		if t.BuyDate, err = time.Parse("2006-01-02", buyDate); err != nil {
			return nil, fmt.Errorf("error parsing stored buy date %q: %w", buyDate, err)
		}
		if t.SellDate, err = time.Parse("2006-01-02", sellDate); err != nil {
			return nil, fmt.Errorf("error parsing stored sell date %q: %w", sellDate, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *tradeServiceImpl) ListTrades() ([]models.Trade, error) {
	rows, err := s.db.Query(`
		SELECT id, buy_date, sell_date, stock, buy_price, sell_price, quantity
		FROM trades
		ORDER BY sell_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (s *tradeServiceImpl) DeleteAllTrades() error {
	if _, err := s.db.Exec(`DELETE FROM trades`); err != nil {
		return fmt.Errorf("error deleting trades: %w", err)
	}
	s.flowService.InvalidateCache()
	return nil
}

// RemoveTradesByReturnPct deletes trades for one stock whose per-trade
// return lands within ±tolerance of the target. Used to strip erroneous
// outlier rows from bad exports.
func (s *tradeServiceImpl) RemoveTradesByReturnPct(stock string, targetReturnPct, tolerance float64) (int, error) {
	trades, err := s.ListTrades()
	if err != nil {
		return 0, err
	}

	var ids []any
	for _, t := range trades {
		if !strings.EqualFold(t.Stock, stock) {
			continue
		}
		pct := t.ReturnPct()
		if pct >= targetReturnPct-tolerance && pct <= targetReturnPct+tolerance {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := s.db.Exec(`DELETE FROM trades WHERE id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return 0, fmt.Errorf("error removing trades for %s: %w", stock, err)
	}
	removed, _ := res.RowsAffected()
	s.flowService.InvalidateCache()
	logger.L.Info("Removed trades by return percentage", "stock", stock, "target", targetReturnPct, "removed", removed)
	return int(removed), nil
}

func (s *tradeServiceImpl) ImportHistory() ([]models.ImportRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, filename, file_size, imported_count, duplicate_count, day_trades_removed, created_at
		FROM imports_history
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying import history: %w", err)
	}
	defer rows.Close()

	var records []models.ImportRecord
	for rows.Next() {
		var r models.ImportRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Filename, &r.FileSize, &r.ImportedCount, &r.DuplicateCount, &r.DayTradesRemoved, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning import history row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = ts
		} else if ts, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			r.CreatedAt = ts
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
