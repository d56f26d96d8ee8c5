// backend/src/services/settings_service.go
package services

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
)

// The config store is two-level key-value: scope "global" or a client_id,
// one row per field. Per-client lookup falls back field-by-field to global,
// never wholesale.
const globalScope = "global"

type settingsServiceImpl struct {
	db *sql.DB
}

func NewSettingsService(db *sql.DB) SettingsService {
	return &settingsServiceImpl{db: db}
}

func (s *settingsServiceImpl) loadScope(scope string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT field, value FROM config_entries WHERE scope = ?`, scope)
	if err != nil {
		return nil, fmt.Errorf("error querying config scope %s: %w", scope, err)
	}
	defer rows.Close()

	entries := map[string]string{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("error scanning config entry: %w", err)
		}
		entries[field] = value
	}
	return entries, rows.Err()
}

func resolveFloat(field string, layers []map[string]string, fallback float64) float64 {
	for _, layer := range layers {
		if raw, ok := layer[field]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return v
			}
		}
	}
	return fallback
}

func resolveBool(field string, layers []map[string]string, fallback bool) bool {
	for _, layer := range layers {
		if raw, ok := layer[field]; ok {
			if v, err := strconv.ParseBool(raw); err == nil {
				return v
			}
		}
	}
	return fallback
}

// Resolve returns the effective settings for a client, falling back
// field-by-field: client override, then global, then hard default. An empty
// clientID resolves the global scope. The day-trade and benchmark toggles
// are global-only.
func (s *settingsServiceImpl) Resolve(clientID string) (models.Settings, error) {
	global, err := s.loadScope(globalScope)
	if err != nil {
		return models.Settings{}, err
	}

	layers := []map[string]string{global}
	if clientID != "" {
		clientLayer, err := s.loadScope(clientID)
		if err != nil {
			return models.Settings{}, err
		}
		layers = []map[string]string{clientLayer, global}
	}

	defaults := models.DefaultSettings()
	return models.Settings{
		TaxRate:               resolveFloat(models.FieldTaxRate, layers, defaults.TaxRate),
		TraderShare:           resolveFloat(models.FieldTraderShare, layers, defaults.TraderShare),
		InvestorShare:         resolveFloat(models.FieldInvestorShare, layers, defaults.InvestorShare),
		AutoRemoveDayTrades:   resolveBool(models.FieldAutoRemoveDayTrades, []map[string]string{global}, defaults.AutoRemoveDayTrades),
		EnableSP500Comparison: resolveBool(models.FieldEnableSP500Comparison, []map[string]string{global}, defaults.EnableSP500Comparison),
	}, nil
}

func (s *settingsServiceImpl) GetGlobal() (models.Settings, error) {
	return s.Resolve("")
}

func validateRate(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be between 0 and 1", ErrValidationFailed, name)
	}
	return nil
}

func (s *settingsServiceImpl) setEntry(tx *sql.Tx, scope, field, value string) error {
	_, err := tx.Exec(`
		INSERT INTO config_entries (scope, field, value)
		VALUES (?, ?, ?)
		ON CONFLICT(scope, field) DO UPDATE SET value = excluded.value`,
		scope, field, value)
	if err != nil {
		return fmt.Errorf("error writing config entry %s/%s: %w", scope, field, err)
	}
	return nil
}

// applyUpdate writes a partial update to one scope. Setting either share
// recomputes its complement in the same transaction so trader_share +
// investor_share == 1 holds at all times.
func (s *settingsServiceImpl) applyUpdate(scope string, update models.SettingsUpdate, allowToggles bool) error {
	if update.TaxRate != nil {
		if err := validateRate("tax_rate", *update.TaxRate); err != nil {
			return err
		}
	}
	if update.TraderShare != nil {
		if err := validateRate("trader_share", *update.TraderShare); err != nil {
			return err
		}
	}
	if update.InvestorShare != nil {
		if err := validateRate("investor_share", *update.InvestorShare); err != nil {
			return err
		}
	}
	if update.TraderShare != nil && update.InvestorShare != nil && *update.TraderShare+*update.InvestorShare != 1 {
		return fmt.Errorf("%w: trader_share and investor_share must sum to 1", ErrValidationFailed)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning settings update: %w", err)
	}
	defer tx.Rollback()

	fmtFloat := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	if update.TaxRate != nil {
		if err := s.setEntry(tx, scope, models.FieldTaxRate, fmtFloat(*update.TaxRate)); err != nil {
			return err
		}
	}
	if update.TraderShare != nil {
		if err := s.setEntry(tx, scope, models.FieldTraderShare, fmtFloat(*update.TraderShare)); err != nil {
			return err
		}
		if err := s.setEntry(tx, scope, models.FieldInvestorShare, fmtFloat(1-*update.TraderShare)); err != nil {
			return err
		}
	} else if update.InvestorShare != nil {
		if err := s.setEntry(tx, scope, models.FieldInvestorShare, fmtFloat(*update.InvestorShare)); err != nil {
			return err
		}
		if err := s.setEntry(tx, scope, models.FieldTraderShare, fmtFloat(1-*update.InvestorShare)); err != nil {
			return err
		}
	}
	if allowToggles {
		if update.AutoRemoveDayTrades != nil {
			if err := s.setEntry(tx, scope, models.FieldAutoRemoveDayTrades, strconv.FormatBool(*update.AutoRemoveDayTrades)); err != nil {
				return err
			}
		}
		if update.EnableSP500Comparison != nil {
			if err := s.setEntry(tx, scope, models.FieldEnableSP500Comparison, strconv.FormatBool(*update.EnableSP500Comparison)); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing settings update: %w", err)
	}
	return nil
}

func (s *settingsServiceImpl) UpdateGlobal(update models.SettingsUpdate) (models.Settings, error) {
	if err := s.applyUpdate(globalScope, update, true); err != nil {
		return models.Settings{}, err
	}
	logger.L.Info("Global settings updated")
	return s.GetGlobal()
}

func (s *settingsServiceImpl) UpdateClient(clientID string, update models.SettingsUpdate) (models.Settings, error) {
	if clientID == "" || clientID == globalScope {
		return models.Settings{}, fmt.Errorf("%w: invalid client scope", ErrValidationFailed)
	}
	if err := s.applyUpdate(clientID, update, false); err != nil {
		return models.Settings{}, err
	}
	logger.L.Info("Client settings updated", "clientID", clientID)
	return s.Resolve(clientID)
}

// ListClientOverrides returns the raw per-client override entries keyed by
// client ID, for the admin configuration view.
func (s *settingsServiceImpl) ListClientOverrides() (map[string]map[string]string, error) {
	rows, err := s.db.Query(`SELECT scope, field, value FROM config_entries WHERE scope != ? ORDER BY scope ASC`, globalScope)
	if err != nil {
		return nil, fmt.Errorf("error querying client config overrides: %w", err)
	}
	defer rows.Close()

	overrides := map[string]map[string]string{}
	for rows.Next() {
		var scope, field, value string
		if err := rows.Scan(&scope, &field, &value); err != nil {
			return nil, fmt.Errorf("error scanning config override: %w", err)
		}
		if overrides[scope] == nil {
			overrides[scope] = map[string]string{}
		}
		overrides[scope][field] = value
	}
	return overrides, rows.Err()
}

func (s *settingsServiceImpl) DeleteClientOverrides(clientID string) error {
	if clientID == "" || clientID == globalScope {
		return fmt.Errorf("%w: invalid client scope", ErrValidationFailed)
	}
	if _, err := s.db.Exec(`DELETE FROM config_entries WHERE scope = ?`, clientID); err != nil {
		return fmt.Errorf("error deleting config overrides for %s: %w", clientID, err)
	}
	return nil
}
