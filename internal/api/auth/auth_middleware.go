package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/littlesteps-app/backoffice/app/observability/metrics"
	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

// Define typed context keys
type contextKey string

const UserIDKey contextKey = "userID"
const RoleCodeKey contextKey = "roleCode"
const ClientKey contextKey = "client"

// APITokenHeader carries the client token identifying the calling
// application/environment, distinct from the user's bearer token.
const APITokenHeader = "api-token"

// RequireClientToken fails closed when the api-token header is absent or
// does not verify. Applied to every API route, public ones included.
func RequireClientToken(logger *slog.Logger, tokens *Tokens) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "RequireClientToken"))

			raw := r.Header.Get(APITokenHeader)
			if raw == "" {
				l.WarnContext(ctx, "Missing api-token header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "api token required")
				return
			}

			claims, err := tokens.VerifyClientToken(raw)
			if err != nil {
				l.WarnContext(ctx, "Client token verification failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid api token")
				return
			}

			ctx = context.WithValue(ctx, ClientKey, claims.Client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate is middleware to validate JWT access tokens. It attaches the
// decoded identity to the request context for the authorization guard and
// handlers. Routes outside the group it wraps are public.
func Authenticate(logger *slog.Logger, tokens *Tokens) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.WarnContext(ctx, "Missing Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				l.WarnContext(ctx, "Invalid Authorization header format")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := tokens.VerifyAccessToken(headerParts[1])
			if err != nil {
				l.WarnContext(ctx, "Token parsing/validation failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleCodeKey, claims.RoleCode)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper functions to get claims from context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func GetRoleCodeFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleCodeKey).(string)
	return role, ok
}

func GetClientFromContext(ctx context.Context) (string, bool) {
	client, ok := ctx.Value(ClientKey).(string)
	return client, ok
}

// CallerFromContext bundles the identity the Authenticate middleware attached.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return Caller{}, false
	}
	role, ok := GetRoleCodeFromContext(ctx)
	if !ok {
		return Caller{}, false
	}
	return Caller{UserID: userID, RoleCode: role}, true
}

// Rule is the declarative authorization requirement a route registers in the
// router. OwnerParam names a URL parameter that must equal the caller's user
// id; Resource/Action name a required permission. OwnerParam wins when both
// are set; an empty Rule allows any authenticated caller.
type Rule struct {
	Resource   string
	Action     string
	OwnerParam string
}

// Require evaluates a route's Rule against the authenticated identity.
// Runs AFTER the Authenticate middleware.
func Require(logger *slog.Logger, roles RoleSource, rule Rule) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Require"))

			caller, ok := CallerFromContext(ctx)
			if !ok {
				l.ErrorContext(ctx, "Identity missing from context; Authenticate must run first")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			// Ownership check takes precedence over the permission check.
			if rule.OwnerParam != "" {
				if caller.IsAdmin() {
					next.ServeHTTP(w, r)
					return
				}
				param := chi.URLParam(r, rule.OwnerParam)
				if param != strconv.FormatInt(caller.UserID, 10) {
					l.WarnContext(ctx, "Ownership check failed",
						slog.Int64("user_id", caller.UserID),
						slog.String("param", rule.OwnerParam),
						slog.String("value", param))
					metrics.Get().AuthzDenialsTotal.Add(ctx, 1)
					api.ErrorResponse(w, r, http.StatusForbidden, "forbidden")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if rule.Resource != "" {
				if caller.IsAdmin() {
					next.ServeHTTP(w, r)
					return
				}
				role, err := roles.GetByCode(ctx, caller.RoleCode)
				if err != nil {
					l.WarnContext(ctx, "Role lookup failed, denying",
						slog.String("role_code", caller.RoleCode), slog.Any("error", err))
					metrics.Get().AuthzDenialsTotal.Add(ctx, 1)
					api.ErrorResponse(w, r, http.StatusForbidden, "forbidden")
					return
				}
				if !PermissionAllows(role.Permissions, rule.Resource, rule.Action) {
					l.WarnContext(ctx, "Permission check failed",
						slog.String("role_code", caller.RoleCode),
						slog.String("resource", rule.Resource),
						slog.String("action", rule.Action))
					metrics.Get().AuthzDenialsTotal.Add(ctx, 1)
					api.ErrorResponse(w, r, http.StatusForbidden, "forbidden")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PermissionAllows is the pure decision function: a permission entry matches
// when its resource is "*" or equal AND its action set contains "*" or the
// requested action.
func PermissionAllows(perms []types.Permission, resource, action string) bool {
	for _, p := range perms {
		if p.Resource != "*" && p.Resource != resource {
			continue
		}
		for _, a := range p.Action {
			if a == "*" || a == action {
				return true
			}
		}
	}
	return false
}
