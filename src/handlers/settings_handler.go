// backend/src/handlers/settings_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type SettingsHandler struct {
	settingsService services.SettingsService
	flowService     services.CapitalFlowService
}

func NewSettingsHandler(settingsService services.SettingsService, flowService services.CapitalFlowService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		flowService:     flowService,
	}
}

func (h *SettingsHandler) HandleGetGlobal(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetGlobal()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load global settings", "error", err)
		utils.SendJSONError(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, settings)
}

// HandleUpdateGlobal applies a partial update to the global scope. Every
// report is recomputed on the next request since rates change the ledgers.
func (h *SettingsHandler) HandleUpdateGlobal(w http.ResponseWriter, r *http.Request) {
	var update models.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	settings, err := h.settingsService.UpdateGlobal(update)
	if err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update global settings", "error", err)
		utils.SendJSONError(w, "Failed to update settings", http.StatusInternalServerError)
		return
	}

	h.flowService.InvalidateCache()
	utils.SendJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	settings, err := h.settingsService.Resolve(clientID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to resolve client settings", "clientID", clientID, "error", err)
		utils.SendJSONError(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var update models.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	settings, err := h.settingsService.UpdateClient(clientID, update)
	if err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update client settings", "clientID", clientID, "error", err)
		utils.SendJSONError(w, "Failed to update settings", http.StatusInternalServerError)
		return
	}

	h.flowService.InvalidateCache()
	utils.SendJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) HandleDeleteClientOverrides(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if err := h.settingsService.DeleteClientOverrides(clientID); err != nil {
		if errors.Is(err, services.ErrValidationFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete client settings overrides", "clientID", clientID, "error", err)
		utils.SendJSONError(w, "Failed to delete settings overrides", http.StatusInternalServerError)
		return
	}
	h.flowService.InvalidateCache()
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Client settings overrides removed"})
}
