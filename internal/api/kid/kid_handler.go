package kid

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var (
	allowedSortFields = map[string]string{
		"id":         "id",
		"firstname":  "firstname",
		"birthdate":  "birthdate",
		"created_at": "created_at",
	}
	allowedFilterFields = map[string]string{
		"firstname": "firstname",
		"parent_id": "parent_id",
	}
)

// HandlerImpl handles HTTP requests for kid profiles.
type HandlerImpl struct {
	kidService Service
	logger     *slog.Logger
}

func NewHandlerImpl(kidService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		kidService: kidService,
		logger:     logger,
	}
}

func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	page := api.ParsePageParams(r)
	sorts, err := api.ParseSort(r, allowedSortFields)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := api.ParseFilter(r, allowedFilterFields)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	kids, total, err := h.kidService.List(ctx, caller, filter, sorts, page)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ListResponse[types.Kid]{
		Data:     kids,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseKidID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid kid id")
		return
	}

	kid, err := h.kidService.Get(ctx, caller, id)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, kid)
}

func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateKidParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	kid, err := h.kidService.Create(ctx, caller, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "Kid created via API", slog.Int64("kid_id", kid.ID))
	api.WriteJSONResponse(w, r, http.StatusCreated, kid)
}

func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseKidID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid kid id")
		return
	}

	var params types.UpdateKidParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	kid, err := h.kidService.Update(ctx, caller, id, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, kid)
}

func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseKidID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid kid id")
		return
	}

	hard := api.ParseBoolFlag(r, "hardDelete")
	if err := h.kidService.Delete(ctx, caller, id, hard); err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func parseKidID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "kidID"), 10, 64)
}
