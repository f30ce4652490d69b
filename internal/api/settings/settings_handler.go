package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var (
	allowedSortFields = map[string]string{
		"key":        "key",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	allowedFilterFields = map[string]string{
		"key": "key",
	}
)

// HandlerImpl handles HTTP requests for configuration records.
type HandlerImpl struct {
	configService Service
	logger        *slog.Logger
}

func NewHandlerImpl(configService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		configService: configService,
		logger:        logger,
	}
}

func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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

	configs, total, err := h.configService.List(ctx, filter, sorts, page)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ListResponse[types.AppConfig]{
		Data:     configs,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "configKey")

	config, err := h.configService.Get(ctx, key)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, config)
}

func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var params types.CreateAppConfigParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	config, err := h.configService.Create(ctx, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, config)
}

func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "configKey")

	var params types.UpdateAppConfigParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	config, err := h.configService.Update(ctx, key, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, config)
}

func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "configKey")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	hard := api.ParseBoolFlag(r, "hardDelete")
	if err := h.configService.Delete(ctx, key, hard, caller); err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
