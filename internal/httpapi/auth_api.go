package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmkolesov/snaprate/internal/auth"
	"github.com/dmkolesov/snaprate/internal/logging"
)

// AuthAPI handles Telegram identity endpoints
type AuthAPI struct {
	authService *auth.Service
	logger      *logging.Logger
}

// NewAuthAPI creates a new auth API handler
func NewAuthAPI(authService *auth.Service, logger *logging.Logger) *AuthAPI {
	return &AuthAPI{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers auth routes on the given mux
func (api *AuthAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/auth/telegram", corsMiddleware(api.handleTelegramLogin))
}

func (api *AuthAPI) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params struct {
		InitData string `json:"initData"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&params); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if params.InitData == "" {
		api.writeError(w, http.StatusBadRequest, "invalid_request", "initData is required")
		return
	}

	response, err := api.authService.LoginWithInitData(r.Context(), params.InitData)
	if err != nil {
		if authErr, ok := err.(*auth.AuthError); ok {
			status := http.StatusUnauthorized
			if authErr.Code == "auth_disabled" {
				status = http.StatusNotImplemented
			}
			api.writeError(w, status, authErr.Code, authErr.Message)
			return
		}
		api.logger.Error("Telegram login failed", logging.WithField("error", err.Error()))
		api.writeError(w, http.StatusInternalServerError, "internal_error", "telegram login failed")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *AuthAPI) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
