package http

import (
	"fmt"
	"net/http"

	"github.com/contractflow/contractflow/internal/adapter/http/middleware"
	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/usecase"
	"github.com/gorilla/mux"
)

// transitionRoutes maps the path suffix of each workflow endpoint to its action
var transitionRoutes = map[string]domain.Action{
	"submit":              domain.ActionSubmit,
	"withdraw-by-creator": domain.ActionWithdrawCreator,
	"approve-finance":     domain.ActionApproveFinance,
	"reject-finance":      domain.ActionRejectFinance,
	"withdraw-by-finance": domain.ActionWithdrawFinance,
	"approve-admin":       domain.ActionApproveAdmin,
	"reject-admin":        domain.ActionRejectAdmin,
	"terminate":           domain.ActionTerminate,
}

// ContractHandler handles HTTP requests for contracts and their workflow
type ContractHandler struct {
	engine  *usecase.ContractEngine
	queries *usecase.ContractQueryService
	authMW  *middleware.AuthMiddleware
	logger  logger.Logger
}

func NewContractHandler(engine *usecase.ContractEngine, queries *usecase.ContractQueryService, authMW *middleware.AuthMiddleware, log logger.Logger) *ContractHandler {
	return &ContractHandler{engine: engine, queries: queries, authMW: authMW, logger: log}
}

// RegisterRoutes registers contract routes
func (h *ContractHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/contracts", h.authMW.RequireAuth(h.List)).Methods(http.MethodGet)
	router.HandleFunc("/contracts", h.authMW.RequireAuth(h.Create)).Methods(http.MethodPost)
	router.HandleFunc("/contracts/{id}", h.authMW.RequireAuth(h.Get)).Methods(http.MethodGet)
	router.HandleFunc("/contracts/{id}", h.authMW.RequireAuth(h.Edit)).Methods(http.MethodPut)
	router.HandleFunc("/contracts/{id}", h.authMW.RequireAuth(h.Delete)).Methods(http.MethodDelete)
	router.HandleFunc("/contracts/{id}/operations", h.authMW.RequireAuth(h.Operations)).Methods(http.MethodGet)
	router.HandleFunc("/contracts/{id}/pdf", h.authMW.RequireAuth(h.ExportPDF)).Methods(http.MethodGet)

	for suffix, action := range transitionRoutes {
		router.HandleFunc("/contracts/{id}/"+suffix, h.authMW.RequireAuth(h.Transition(action))).Methods(http.MethodPost)
	}
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := contractFilterFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.queries.List(r.Context(), middleware.ActorFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]contractResponse, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, toContractResponse(c))
	}
	response.Success(w, http.StatusOK, "Contracts retrieved successfully", pageResponse{
		Items: items,
		Total: result.Total,
		Skip:  result.Skip,
		Limit: result.Limit,
	})
}

func contractFilterFromQuery(r *http.Request) (domain.ContractFilter, error) {
	var filter domain.ContractFilter
	var err error

	if filter.Skip, filter.Limit, err = queryPage(r); err != nil {
		return filter, err
	}
	if kw := queryString(r, "keyword"); kw != nil {
		filter.Keyword = *kw
	}
	if raw := queryString(r, "status_filter"); raw != nil {
		status, err := domain.ParseStatus(*raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if filter.SignDateFrom, err = queryDate(r, "sign_date_from"); err != nil {
		return filter, err
	}
	if filter.SignDateTo, err = queryDate(r, "sign_date_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var status domain.ContractStatus
	if req.Status != nil {
		parsed, err := domain.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		status = parsed
	}

	fields, err := req.fields()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	contract, err := h.engine.Create(r.Context(), middleware.ActorFromContext(r.Context()), usecase.CreateContractRequest{
		Fields: fields,
		Status: status,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusCreated, "Contract created successfully", toContractResponse(contract))
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	contract, err := h.queries.Get(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "Contract retrieved successfully", toContractResponse(contract))
}

func (h *ContractHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	contract, err := h.engine.Edit(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "Contract updated successfully", toContractResponse(contract))
}

func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}

// Transition returns the handler of one workflow endpoint. The body is
// optional and may carry a remark.
func (h *ContractHandler) Transition(action domain.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remarkRequest
		if err := decodeJSON(r, &req, true); err != nil {
			writeError(w, r, h.logger, err)
			return
		}

		contract, err := h.engine.Run(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"], action, req.Remark)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		response.Success(w, http.StatusOK, "Contract updated successfully", toContractResponse(contract))
	}
}

func (h *ContractHandler) Operations(w http.ResponseWriter, r *http.Request) {
	logs, err := h.queries.ContractLogs(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "Operations retrieved successfully", logs)
}

func (h *ContractHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	data, contentType, contract, err := h.queries.ExportDocument(r.Context(), middleware.ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	name := contract.ContractNo
	if name == "" {
		name = contract.ID
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(fmt.Sprintf("contract_%s.pdf", name)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// OperationHandler serves the global audit feed
type OperationHandler struct {
	queries *usecase.ContractQueryService
	authMW  *middleware.AuthMiddleware
	logger  logger.Logger
}

func NewOperationHandler(queries *usecase.ContractQueryService, authMW *middleware.AuthMiddleware, log logger.Logger) *OperationHandler {
	return &OperationHandler{queries: queries, authMW: authMW, logger: log}
}

// RegisterRoutes registers the operation feed route
func (h *OperationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/operations", h.authMW.RequireAdmin(h.Feed)).Methods(http.MethodGet)
}

func (h *OperationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := queryPage(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filter := domain.OperationLogFilter{
		ContractID: queryString(r, "contract_id"),
		ActorID:    queryString(r, "user_id"),
		Skip:       skip,
		Limit:      limit,
	}

	result, err := h.queries.OperationFeed(r.Context(), middleware.ActorFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, "Operations retrieved successfully", pageResponse{
		Items: result.Items,
		Total: result.Total,
		Skip:  result.Skip,
		Limit: result.Limit,
	})
}
