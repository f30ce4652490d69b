package role

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

// HandlerImpl handles HTTP requests for role management.
type HandlerImpl struct {
	roleService Service
	logger      *slog.Logger
}

func NewHandlerImpl(roleService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		roleService: roleService,
		logger:      logger,
	}
}

func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := api.ParsePageParams(r)

	roles, total, err := h.roleService.List(ctx, page)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ListResponse[types.Role]{
		Data:     roles,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "roleCode")

	role, err := h.roleService.Get(ctx, code)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var params types.CreateRoleParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.roleService.Create(ctx, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, role)
}

func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "roleCode")

	var params types.UpdateRoleParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.roleService.Update(ctx, code, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "roleCode")

	if err := h.roleService.Delete(ctx, code); err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
