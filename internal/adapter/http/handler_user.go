package http

import (
	"net/http"

	"github.com/contractflow/contractflow/internal/adapter/http/middleware"
	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/usecase"
	"github.com/gorilla/mux"
)

// UserHandler serves actor administration
type UserHandler struct {
	actors *usecase.ActorUseCase
	authMW *middleware.AuthMiddleware
	logger logger.Logger
}

func NewUserHandler(actors *usecase.ActorUseCase, authMW *middleware.AuthMiddleware, log logger.Logger) *UserHandler {
	return &UserHandler{actors: actors, authMW: authMW, logger: log}
}

// RegisterRoutes registers user management routes. The use case checks the
// role again.
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.authMW.RequireAdmin(h.List)).Methods(http.MethodGet)
	router.HandleFunc("/users", h.authMW.RequireAdmin(h.Create)).Methods(http.MethodPost)
	router.HandleFunc("/users/{id}", h.authMW.RequireAdmin(h.Update)).Methods(http.MethodPut)
	router.HandleFunc("/users/{id}", h.authMW.RequireAdmin(h.Delete)).Methods(http.MethodDelete)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actors, err := h.actors.List(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "Users retrieved successfully", actors)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateActorRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.actors.Create(r.Context(), middleware.ActorFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusCreated, "User created successfully", created)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req usecase.UpdateActorRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Role != nil {
		role, err := domain.ParseRole(string(*req.Role))
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		req.Role = &role
	}

	updated, err := h.actors.Update(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "User updated successfully", updated)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.actors.Delete(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}
