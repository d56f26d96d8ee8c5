// backend/src/handlers/capitalflow_handler.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/security"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type CapitalFlowHandler struct {
	flowService      services.CapitalFlowService
	benchmarkService services.BenchmarkService
}

func NewCapitalFlowHandler(flowService services.CapitalFlowService, benchmarkService services.BenchmarkService) *CapitalFlowHandler {
	return &CapitalFlowHandler{
		flowService:      flowService,
		benchmarkService: benchmarkService,
	}
}

// scopedClientID resolves the client_id query parameter against the caller:
// admins may request any client (or the pooled view with no parameter),
// everyone else is pinned to their own ID.
func scopedClientID(r *http.Request) (string, bool) {
	identity, ok := GetIdentityFromContext(r.Context())
	if !ok {
		return "", false
	}
	if identity.Role == security.RoleAdmin {
		return r.URL.Query().Get("client_id"), true
	}
	return identity.ClientID, true
}

func (h *CapitalFlowHandler) sendPeriodStats(w http.ResponseWriter, r *http.Request, stats []models.PeriodStats, err error) {
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute period returns", "error", err)
		utils.SendJSONError(w, "Failed to compute returns", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []models.PeriodStats{}
	}
	utils.SendJSON(w, http.StatusOK, stats)
}

func (h *CapitalFlowHandler) HandleMonthlyReturns(w http.ResponseWriter, r *http.Request) {
	clientID, ok := scopedClientID(r)
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	stats, err := h.flowService.MonthlyReturns(clientID)
	h.sendPeriodStats(w, r, stats, err)
}

func (h *CapitalFlowHandler) HandleBiweeklyReturns(w http.ResponseWriter, r *http.Request) {
	clientID, ok := scopedClientID(r)
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	stats, err := h.flowService.BiweeklyReturns(clientID)
	h.sendPeriodStats(w, r, stats, err)
}

func (h *CapitalFlowHandler) sendPositionStats(w http.ResponseWriter, r *http.Request, stats []models.PositionStats, err error) {
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute position-size returns", "error", err)
		utils.SendJSONError(w, "Failed to compute returns", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []models.PositionStats{}
	}
	utils.SendJSON(w, http.StatusOK, stats)
}

func (h *CapitalFlowHandler) HandleDailyReturns(w http.ResponseWriter, r *http.Request) {
	stats, err := h.flowService.DailyReturns()
	h.sendPositionStats(w, r, stats, err)
}

func (h *CapitalFlowHandler) HandleWeeklyReturns(w http.ResponseWriter, r *http.Request) {
	stats, err := h.flowService.WeeklyReturns()
	h.sendPositionStats(w, r, stats, err)
}

// HandleCapitalFlow returns the reconciled capital ledger for one client.
// Clients may only read their own.
func (h *CapitalFlowHandler) HandleCapitalFlow(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	identity, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if identity.Role != security.RoleAdmin && identity.ClientID != clientID {
		logger.FromContext(r.Context()).Warn("Capital flow access denied", "requested", clientID)
		utils.SendJSONError(w, "access denied", http.StatusForbidden)
		return
	}

	flow, err := h.flowService.CapitalFlow(clientID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute capital flow", "clientID", clientID, "error", err)
		utils.SendJSONError(w, "Failed to compute capital flow", http.StatusInternalServerError)
		return
	}
	if flow == nil {
		utils.SendJSONError(w, "Client not found", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, http.StatusOK, flow)
}

// HandleBenchmark serves the external index monthly return series. The
// series is best-effort and may be empty.
func (h *CapitalFlowHandler) HandleBenchmark(w http.ResponseWriter, r *http.Request) {
	points, err := h.benchmarkService.MonthlyReturns()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to fetch benchmark series", "error", err)
		utils.SendJSONError(w, "Failed to fetch benchmark series", http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []models.BenchmarkPoint{}
	}
	utils.SendJSON(w, http.StatusOK, points)
}
