// backend/src/handlers/client_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/security"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type ClientHandler struct {
	clientService services.ClientService
}

func NewClientHandler(clientService services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

type clientPayload struct {
	ClientID            string  `json:"client_id"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	StartingCapital     float64 `json:"starting_capital"`
	InvestmentStartDate string  `json:"investment_start_date"`
	Active              *bool   `json:"active"`
	Password            string  `json:"password"`
}

func (p clientPayload) toClient() (models.Client, error) {
	client := models.Client{
		ClientID:        p.ClientID,
		Name:            p.Name,
		Email:           p.Email,
		StartingCapital: p.StartingCapital,
		Active:          true,
	}
	if p.Active != nil {
		client.Active = *p.Active
	}
	if p.InvestmentStartDate != "" {
		ts, err := time.Parse("2006-01-02", p.InvestmentStartDate)
		if err != nil {
			return models.Client{}, errors.New("investment_start_date must be formatted YYYY-MM-DD")
		}
		client.InvestmentStartDate = &ts
	}
	return client, nil
}

func (h *ClientHandler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	clients, err := h.clientService.ListClients(includeInactive)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list clients", "error", err)
		utils.SendJSONError(w, "Failed to list clients", http.StatusInternalServerError)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	utils.SendJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) HandleUpsertClient(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var payload clientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	// PUT /clients/{clientID} carries the ID in the path.
	if pathID := chi.URLParam(r, "clientID"); pathID != "" {
		payload.ClientID = pathID
	}

	client, err := payload.toClient()
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.clientService.UpsertClient(client, payload.Password); err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctxLogger.Error("Failed to upsert client", "clientID", client.ClientID, "error", err)
		utils.SendJSONError(w, "Failed to save client", http.StatusInternalServerError)
		return
	}

	saved, err := h.clientService.GetClient(client.ClientID)
	if err != nil || saved == nil {
		utils.SendJSON(w, http.StatusOK, client)
		return
	}
	utils.SendJSON(w, http.StatusOK, saved)
}

func (h *ClientHandler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if err := h.clientService.DeleteClient(clientID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Client not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete client", "clientID", clientID, "error", err)
		utils.SendJSONError(w, "Failed to delete client", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Client deleted"})
}

type movementPayload struct {
	ClientID string  `json:"client_id"`
	Date     string  `json:"date"`
	Type     string  `json:"type"`
	Amount   float64 `json:"amount"`
	Notes    string  `json:"notes"`
}

func (h *ClientHandler) HandleAddMovement(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var payload movementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		utils.SendJSONError(w, "date must be formatted YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	movement, err := h.clientService.AddMovement(models.CapitalMovement{
		ClientID: payload.ClientID,
		Date:     date,
		Type:     payload.Type,
		Amount:   payload.Amount,
		Notes:    payload.Notes,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Client not found", http.StatusNotFound)
			return
		}
		ctxLogger.Error("Failed to record capital movement", "clientID", payload.ClientID, "error", err)
		utils.SendJSONError(w, "Failed to record movement", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusCreated, movement)
}

// HandleListMovements returns movements for the requested client. Non-admin
// callers are pinned to their own movement log regardless of the query
// parameter.
func (h *ClientHandler) HandleListMovements(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")

	identity, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if identity.Role != security.RoleAdmin {
		clientID = identity.ClientID
	}

	movements, err := h.clientService.ListMovements(clientID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list capital movements", "clientID", clientID, "error", err)
		utils.SendJSONError(w, "Failed to list movements", http.StatusInternalServerError)
		return
	}
	if movements == nil {
		movements = []models.CapitalMovement{}
	}
	utils.SendJSON(w, http.StatusOK, movements)
}

type overridePayload struct {
	TotalCapital float64 `json:"total_capital"`
	Notes        string  `json:"notes"`
}

func (h *ClientHandler) HandleListMonthlyOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.clientService.ListMonthlyOverrides()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list monthly capital overrides", "error", err)
		utils.SendJSONError(w, "Failed to list monthly capital", http.StatusInternalServerError)
		return
	}
	if overrides == nil {
		overrides = []models.MonthlyCapitalOverride{}
	}
	utils.SendJSON(w, http.StatusOK, overrides)
}

func (h *ClientHandler) HandleSetMonthlyOverride(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")

	var payload overridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	err := h.clientService.SetMonthlyOverride(models.MonthlyCapitalOverride{
		Month:        month,
		TotalCapital: payload.TotalCapital,
		Notes:        payload.Notes,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to set monthly capital override", "month", month, "error", err)
		utils.SendJSONError(w, "Failed to set monthly capital", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Monthly capital set", "month": month})
}

func (h *ClientHandler) HandleDeleteMonthlyOverride(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if err := h.clientService.DeleteMonthlyOverride(month); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "No override for that month", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete monthly capital override", "month", month, "error", err)
		utils.SendJSONError(w, "Failed to delete monthly capital", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Monthly capital removed", "month": month})
}
