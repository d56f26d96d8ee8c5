// backend/src/handlers/trade_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/fundfolio/backend/src/config"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/security/validation"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type TradeHandler struct {
	tradeService services.TradeService
	flowService  services.CapitalFlowService
}

func NewTradeHandler(tradeService services.TradeService, flowService services.CapitalFlowService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		flowService:  flowService,
	}
}

// HandleImport accepts a multipart trade log upload and merges it into the
// trade store. The source form field selects the parser.
func (h *TradeHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to process upload or file too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = "tradelog"
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		ctxLogger.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		ctxLogger.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateFileContent(file); err != nil {
		ctxLogger.Warn("File content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctxLogger.Info("Processing trade import", "source", source, "filename", fileHeader.Filename)

	summary, err := h.tradeService.ImportTrades(file, source, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		if errors.Is(err, services.ErrParsingFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctxLogger.Error("Trade import failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "Failed to import trades", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, http.StatusOK, summary)
}

func (h *TradeHandler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.tradeService.ListTrades()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list trades", "error", err)
		utils.SendJSONError(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	utils.SendJSON(w, http.StatusOK, trades)
}

func (h *TradeHandler) HandleDeleteAllTrades(w http.ResponseWriter, r *http.Request) {
	if err := h.tradeService.DeleteAllTrades(); err != nil {
		logger.FromContext(r.Context()).Error("Failed to delete trades", "error", err)
		utils.SendJSONError(w, "Failed to delete trades", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "All trades deleted"})
}

type removeByReturnRequest struct {
	Stock           string   `json:"stock"`
	TargetReturnPct float64  `json:"target_return_pct"`
	Tolerance       *float64 `json:"tolerance"`
}

// HandleRemoveByReturn strips outlier rows: trades for one stock whose
// per-trade return lands within tolerance of the target percentage.
func (h *TradeHandler) HandleRemoveByReturn(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req removeByReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Stock == "" {
		utils.SendJSONError(w, "stock is required", http.StatusBadRequest)
		return
	}
	tolerance := 0.01
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}
	if tolerance < 0 {
		utils.SendJSONError(w, "tolerance must be >= 0", http.StatusBadRequest)
		return
	}

	removed, err := h.tradeService.RemoveTradesByReturnPct(req.Stock, req.TargetReturnPct, tolerance)
	if err != nil {
		ctxLogger.Error("Failed to remove trades by return", "stock", req.Stock, "error", err)
		utils.SendJSONError(w, "Failed to remove trades", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HandleSummary returns the all-time strategy aggregate. Admin only; a
// client-scoped summary goes through the returns routes.
func (h *TradeHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.flowService.Summary("")
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute summary", "error", err)
		utils.SendJSONError(w, "Failed to compute summary", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, summary)
}

func (h *TradeHandler) HandleImportHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.tradeService.ImportHistory()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list import history", "error", err)
		utils.SendJSONError(w, "Failed to list import history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.ImportRecord{}
	}
	utils.SendJSON(w, http.StatusOK, records)
}
