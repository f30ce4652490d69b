package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth/gothic"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

// HandlerImpl handles HTTP requests for login, verification and contact
// changes, using the AuthService.
type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Login dispatches on the request type: "email" answers with an access token
// immediately, "phone" opens an OTP challenge.
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Type {
	case "email":
		if req.Email == "" || req.Password == "" {
			api.ErrorResponse(w, r, http.StatusBadRequest, "email and password are required")
			return
		}
		result, err := h.authService.LoginEmail(ctx, req.Email, req.Password)
		if err != nil {
			api.ErrorFromErr(w, r, err)
			return
		}
		l.InfoContext(ctx, "Email login succeeded", slog.Int64("user_id", result.ID))
		api.WriteJSONResponse(w, r, http.StatusOK, result)

	case "phone":
		if req.Phone == "" {
			api.ErrorResponse(w, r, http.StatusBadRequest, "phone is required")
			return
		}
		challenge, err := h.authService.LoginPhone(ctx, req.Phone)
		if err != nil {
			api.ErrorFromErr(w, r, err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusCreated, challenge)

	default:
		api.ErrorResponse(w, r, http.StatusBadRequest, "type must be email or phone")
	}
}

// VerifyOTP completes a phone login challenge.
func (h *HandlerImpl) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyOTP"))

	var req OTPVerifyRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.OTPToken == "" || req.OTPCode == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "otp_token and otp_code are required")
		return
	}

	result, err := h.authService.VerifyOTP(ctx, req.OTPToken, req.OTPCode)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	l.InfoContext(ctx, "OTP verification succeeded", slog.Int64("user_id", result.ID))
	api.WriteJSONResponse(w, r, http.StatusCreated, result)
}

// SocialBegin redirects the browser to the federated provider named in the
// URL.
func (h *HandlerImpl) SocialBegin(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	gothic.BeginAuthHandler(w, r)
}

// SocialCallback completes the provider round-trip and answers with the same
// login result the other flows produce.
func (h *HandlerImpl) SocialCallback(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "SocialCallback"))

	provider := chi.URLParam(r, "provider")
	providerUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		l.WarnContext(ctx, "Federated login failed", slog.String("provider", provider), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "federated login failed")
		return
	}

	result, err := h.authService.GetOrCreateUserFromProvider(ctx, provider, providerUser)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	l.InfoContext(ctx, "Federated login succeeded",
		slog.Int64("user_id", result.ID), slog.String("provider", provider))
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// withProvider makes the chi URL parameter visible to gothic, which reads the
// provider name from the request context.
func withProvider(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), gothic.ProviderParamKey, chi.URLParam(r, "provider"))
	return r.WithContext(ctx)
}

// RequestContactChange opens an OTP challenge bound to the caller's new email
// or phone.
func (h *HandlerImpl) RequestContactChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := CallerFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ContactChangeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	challenge, err := h.authService.RequestContactChange(ctx, caller.UserID, req.NewEmail, req.NewPhone)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, challenge)
}

// ConfirmContactChange applies the change once the code checks out.
func (h *HandlerImpl) ConfirmContactChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req OTPVerifyRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.OTPToken == "" || req.OTPCode == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "otp_token and otp_code are required")
		return
	}

	if err := h.authService.ConfirmContactChange(ctx, req.OTPToken, req.OTPCode); err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "contact updated"})
}
