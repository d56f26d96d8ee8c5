// backend/src/services/client_service.go
package services

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/security"
	"github.com/username/fundfolio/backend/src/security/validation"
)

var monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

type clientServiceImpl struct {
	db          *sql.DB
	flowService CapitalFlowService
}

func NewClientService(db *sql.DB, flowService CapitalFlowService) ClientService {
	return &clientServiceImpl{db: db, flowService: flowService}
}

func scanClients(rows *sql.Rows) ([]models.Client, error) {
	var clients []models.Client
	for rows.Next() {
		var c models.Client
		var startDate sql.NullString
		var active int
		if err := rows.Scan(&c.ClientID, &c.Name, &c.Email, &c.StartingCapital, &startDate, &active, &c.PasswordHash); err != nil {
			return nil, fmt.Errorf("error scanning client row: %w", err)
		}
		c.Active = active != 0
		if startDate.Valid && startDate.String != "" {
			if ts, err := time.Parse("2006-01-02", startDate.String); err == nil {
				c.InvestmentStartDate = &ts
			}
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *clientServiceImpl) ListClients(includeInactive bool) ([]models.Client, error) {
	query := `
		SELECT client_id, name, email, starting_capital, investment_start_date, active, password_hash
		FROM clients`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY client_id ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error querying clients: %w", err)
	}
	defer rows.Close()
	return scanClients(rows)
}

// GetClient returns nil (not an error) when no such client exists, so
// callers can render an empty state.
func (s *clientServiceImpl) GetClient(clientID string) (*models.Client, error) {
	rows, err := s.db.Query(`
		SELECT client_id, name, email, starting_capital, investment_start_date, active, password_hash
		FROM clients WHERE client_id = ?`, clientID)
	if err != nil {
		return nil, fmt.Errorf("error querying client %s: %w", clientID, err)
	}
	defer rows.Close()

	clients, err := scanClients(rows)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, nil
	}
	return &clients[0], nil
}

// UpsertClient creates or replaces a client record keyed by client_id. An
// empty password leaves the stored hash untouched on update.
func (s *clientServiceImpl) UpsertClient(client models.Client, password string) error {
	if client.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", ErrValidationFailed)
	}
	client.Name = validation.SanitizeText(client.Name)
	client.Email = validation.SanitizeText(client.Email)

	passwordHash := client.PasswordHash
	if password != "" {
		hash, err := security.HashPassword(password)
		if err != nil {
			return fmt.Errorf("error hashing client password: %w", err)
		}
		passwordHash = hash
	} else if passwordHash == "" {
		if existing, err := s.GetClient(client.ClientID); err == nil && existing != nil {
			passwordHash = existing.PasswordHash
		}
	}

	var startDate any
	if client.InvestmentStartDate != nil {
		startDate = client.InvestmentStartDate.Format("2006-01-02")
	}

	active := 0
	if client.Active {
		active = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO clients (client_id, name, email, starting_capital, investment_start_date, active, password_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			starting_capital = excluded.starting_capital,
			investment_start_date = excluded.investment_start_date,
			active = excluded.active,
			password_hash = excluded.password_hash`,
		client.ClientID, client.Name, client.Email, client.StartingCapital, startDate, active, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("error upserting client %s: %w", client.ClientID, err)
	}

	s.flowService.InvalidateCache()
	logger.L.Info("Client upserted", "clientID", client.ClientID, "active", client.Active)
	return nil
}

// DeleteClient hard-deletes a client and cascades to its capital movements
// and per-client configuration, in one transaction.
func (s *clientServiceImpl) DeleteClient(clientID string) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning delete transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.Exec(`DELETE FROM clients WHERE client_id = ?`, clientID)
	if err != nil {
		return fmt.Errorf("error deleting client %s: %w", clientID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	if _, err := dbTx.Exec(`DELETE FROM capital_movements WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("error deleting movements for client %s: %w", clientID, err)
	}
	if _, err := dbTx.Exec(`DELETE FROM config_entries WHERE scope = ?`, clientID); err != nil {
		return fmt.Errorf("error deleting config for client %s: %w", clientID, err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing client delete: %w", err)
	}
	s.flowService.InvalidateCache()
	logger.L.Info("Client deleted with cascading data", "clientID", clientID)
	return nil
}

// AddMovement appends one contribution or withdrawal to the capital
// movement log. The log is append-only: rows are never updated or deleted
// outside a client cascade.
func (s *clientServiceImpl) AddMovement(movement models.CapitalMovement) (*models.CapitalMovement, error) {
	if movement.Type != models.MovementContribution && movement.Type != models.MovementWithdrawal {
		return nil, fmt.Errorf("%w: movement type must be %q or %q", ErrValidationFailed, models.MovementContribution, models.MovementWithdrawal)
	}
	if movement.Amount < 0 {
		return nil, fmt.Errorf("%w: movement amount must be >= 0", ErrValidationFailed)
	}
	client, err := s.GetClient(movement.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client %s", ErrNotFound, movement.ClientID)
	}

	movement.ID = uuid.New().String()
	movement.Notes = validation.SanitizeText(movement.Notes)

	_, err = s.db.Exec(`
		INSERT INTO capital_movements (id, client_id, date, type, amount, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		movement.ID, movement.ClientID, movement.Date.Format("2006-01-02"), movement.Type, movement.Amount, movement.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("error inserting capital movement: %w", err)
	}

	s.flowService.InvalidateCache()
	logger.L.Info("Capital movement recorded", "clientID", movement.ClientID, "type", movement.Type, "amount", movement.Amount)
	return &movement, nil
}

// ListMovements returns movements for one client, or the whole log when
// clientID is empty.
func (s *clientServiceImpl) ListMovements(clientID string) ([]models.CapitalMovement, error) {
	query := `SELECT id, client_id, date, type, amount, notes FROM capital_movements`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying capital movements: %w", err)
	}
	defer rows.Close()

	var movements []models.CapitalMovement
	for rows.Next() {
		var m models.CapitalMovement
		var date string
		if err := rows.Scan(&m.ID, &m.ClientID, &date, &m.Type, &m.Amount, &m.Notes); err != nil {
			return nil, fmt.Errorf("error scanning capital movement: %w", err)
		}
		if m.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("error parsing stored movement date %q: %w", date, err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// SetMonthlyOverride upserts the explicit capital denominator for one
// calendar month. Setting a new value for an existing month replaces it.
func (s *clientServiceImpl) SetMonthlyOverride(override models.MonthlyCapitalOverride) error {
	if !monthKeyRe.MatchString(override.Month) {
		return fmt.Errorf("%w: month must be formatted YYYY-MM", ErrValidationFailed)
	}
	override.Notes = validation.SanitizeText(override.Notes)

	_, err := s.db.Exec(`
		INSERT INTO monthly_capital (month, total_capital, notes)
		VALUES (?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET
			total_capital = excluded.total_capital,
			notes = excluded.notes`,
		override.Month, override.TotalCapital, override.Notes,
	)
	if err != nil {
		return fmt.Errorf("error setting monthly capital override for %s: %w", override.Month, err)
	}
	s.flowService.InvalidateCache()
	logger.L.Info("Monthly capital override set", "month", override.Month, "totalCapital", override.TotalCapital)
	return nil
}

func (s *clientServiceImpl) DeleteMonthlyOverride(month string) error {
	res, err := s.db.Exec(`DELETE FROM monthly_capital WHERE month = ?`, month)
	if err != nil {
		return fmt.Errorf("error deleting monthly capital override for %s: %w", month, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	s.flowService.InvalidateCache()
	return nil
}

func (s *clientServiceImpl) ListMonthlyOverrides() ([]models.MonthlyCapitalOverride, error) {
	rows, err := s.db.Query(`SELECT month, total_capital, notes FROM monthly_capital ORDER BY month ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying monthly capital overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.MonthlyCapitalOverride
	for rows.Next() {
		var o models.MonthlyCapitalOverride
		if err := rows.Scan(&o.Month, &o.TotalCapital, &o.Notes); err != nil {
			return nil, fmt.Errorf("error scanning monthly capital override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
