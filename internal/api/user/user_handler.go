package user

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

// Whitelists mapping external field names to database columns; anything else
// in sort/filter is rejected up front.
var (
	allowedSortFields = map[string]string{
		"id":         "id",
		"firstname":  "firstname",
		"lastname":   "lastname",
		"email":      "email",
		"status":     "status",
		"created_at": "created_at",
	}
	allowedFilterFields = map[string]string{
		"email":     "email",
		"phone":     "phone",
		"status":    "status",
		"role_code": "role_code",
	}
)

// HandlerImpl handles HTTP requests for user management.
type HandlerImpl struct {
	userService Service
	logger      *slog.Logger
}

func NewHandlerImpl(userService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
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

	caller, _ := auth.CallerFromContext(ctx)
	includeDeleted := api.ParseBoolFlag(r, "includeDeleted") && caller.IsAdmin()

	users, total, err := h.userService.List(ctx, filter, sorts, page, includeDeleted)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ListResponse[types.User]{
		Data:     users,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseUserID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.Get(ctx, id)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Create"))

	var params types.CreateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Create(ctx, params)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	l.InfoContext(ctx, "User created via admin API", slog.Int64("user_id", user.ID))
	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseUserID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	var params types.UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.userService.Update(ctx, id, params, caller)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseUserID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	hard := api.ParseBoolFlag(r, "hardDelete")
	if err := h.userService.Delete(ctx, id, hard, caller); err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func parseUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}
