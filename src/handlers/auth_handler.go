// backend/src/handlers/auth_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/fundfolio/backend/src/config"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/security"
	"github.com/username/fundfolio/backend/src/services"
	"github.com/username/fundfolio/backend/src/utils"
)

type AuthHandler struct {
	authService   *security.AuthService
	clientService services.ClientService
}

func NewAuthHandler(authService *security.AuthService, clientService services.ClientService) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		clientService: clientService,
	}
}

type loginRequest struct {
	ClientID string `json:"client_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
}

// HandleLogin verifies a client's password and issues a signed token. The
// role is admin when the client ID is configured as an administrator.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" || req.Password == "" {
		utils.SendJSONError(w, "client_id and password are required", http.StatusBadRequest)
		return
	}

	client, err := h.clientService.GetClient(req.ClientID)
	if err != nil {
		ctxLogger.Error("Login: failed to load client", "clientID", req.ClientID, "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	if client == nil || !client.Active || client.PasswordHash == "" {
		ctxLogger.Warn("Login: unknown or inactive client", "clientID", req.ClientID)
		utils.SendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := security.CheckPassword(client.PasswordHash, req.Password); err != nil {
		ctxLogger.Warn("Login: password mismatch", "clientID", req.ClientID)
		utils.SendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	role := security.RoleClient
	for _, adminID := range config.Cfg.AdminClientIDs {
		if adminID == client.ClientID {
			role = security.RoleAdmin
			break
		}
	}

	token, err := h.authService.IssueToken(client.ClientID, role)
	if err != nil {
		ctxLogger.Error("Login: failed to issue token", "clientID", req.ClientID, "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Login successful", "clientID", client.ClientID, "role", role)
	utils.SendJSON(w, http.StatusOK, loginResponse{Token: token, ClientID: client.ClientID, Role: role})
}
