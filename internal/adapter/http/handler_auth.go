package http

import (
	"net/http"

	"github.com/contractflow/contractflow/internal/adapter/http/middleware"
	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/usecase"
	"github.com/gorilla/mux"
)

// AuthHandler serves login and the current actor's account
type AuthHandler struct {
	auth   *usecase.AuthUseCase
	authMW *middleware.AuthMiddleware
	logger logger.Logger
}

func NewAuthHandler(auth *usecase.AuthUseCase, authMW *middleware.AuthMiddleware, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, authMW: authMW, logger: log}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/auth/change-password", h.authMW.RequireAuth(h.ChangePassword)).Methods(http.MethodPost)
	router.HandleFunc("/auth/me", h.authMW.RequireAuth(h.Me)).Methods(http.MethodGet)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		response.UnprocessableEntity(w, "username and password are required")
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "Login successful", result)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if err := h.auth.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Current user", middleware.ActorFromContext(r.Context()))
}
