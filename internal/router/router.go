package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/api/kid"
	"github.com/littlesteps-app/backoffice/internal/api/role"
	"github.com/littlesteps-app/backoffice/internal/api/settings"
	"github.com/littlesteps-app/backoffice/internal/api/user"
)

// Config bundles the dependencies the router mounts.
type Config struct {
	Logger        *slog.Logger
	Tokens        *auth.Tokens
	Roles         auth.RoleSource
	AuthHandler   *auth.HandlerImpl
	UserHandler   *user.HandlerImpl
	KidHandler    *kid.HandlerImpl
	ConfigHandler *settings.HandlerImpl
	RoleHandler   *role.HandlerImpl
}

// Setup mounts every route. Authorization is declared per route: ownership
// rules name the URL parameter that must match the caller, permission rules
// name the resource/action the caller's role must grant.
func Setup(r chi.Router, cfg Config) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.APITokenHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		api.WriteJSONResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	require := func(rule auth.Rule) func(http.Handler) http.Handler {
		return auth.Require(cfg.Logger, cfg.Roles, rule)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Every API route, login included, needs a valid client token.
		r.Use(auth.RequireClientToken(cfg.Logger, cfg.Tokens))

		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/otp", cfg.AuthHandler.VerifyOTP)
			r.Get("/auth/{provider}", cfg.AuthHandler.SocialBegin)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.SocialCallback)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(cfg.Logger, cfg.Tokens))

			r.Post("/auth/change-contact", cfg.AuthHandler.RequestContactChange)
			r.Post("/auth/change-contact/confirm", cfg.AuthHandler.ConfirmContactChange)

			r.Route("/users", func(r chi.Router) {
				r.With(require(auth.Rule{Resource: "user", Action: "list"})).
					Get("/", cfg.UserHandler.List)
				r.With(require(auth.Rule{Resource: "user", Action: "create"})).
					Post("/", cfg.UserHandler.Create)

				// A user may always read, edit and delete themselves; anyone
				// else needs to be admin.
				r.Route("/{userID}", func(r chi.Router) {
					r.With(require(auth.Rule{OwnerParam: "userID"})).
						Get("/", cfg.UserHandler.Get)
					r.With(require(auth.Rule{OwnerParam: "userID"})).
						Put("/", cfg.UserHandler.Update)
					r.With(require(auth.Rule{OwnerParam: "userID"})).
						Delete("/", cfg.UserHandler.Delete)
				})
			})

			r.Route("/kids", func(r chi.Router) {
				r.With(require(auth.Rule{Resource: "kid", Action: "list"})).
					Get("/", cfg.KidHandler.List)
				r.With(require(auth.Rule{Resource: "kid", Action: "create"})).
					Post("/", cfg.KidHandler.Create)
				r.Route("/{kidID}", func(r chi.Router) {
					r.With(require(auth.Rule{Resource: "kid", Action: "read"})).
						Get("/", cfg.KidHandler.Get)
					r.With(require(auth.Rule{Resource: "kid", Action: "update"})).
						Put("/", cfg.KidHandler.Update)
					r.With(require(auth.Rule{Resource: "kid", Action: "delete"})).
						Delete("/", cfg.KidHandler.Delete)
				})
			})

			r.Route("/configs", func(r chi.Router) {
				r.With(require(auth.Rule{Resource: "config", Action: "list"})).
					Get("/", cfg.ConfigHandler.List)
				r.With(require(auth.Rule{Resource: "config", Action: "create"})).
					Post("/", cfg.ConfigHandler.Create)
				r.Route("/{configKey}", func(r chi.Router) {
					r.With(require(auth.Rule{Resource: "config", Action: "read"})).
						Get("/", cfg.ConfigHandler.Get)
					r.With(require(auth.Rule{Resource: "config", Action: "update"})).
						Put("/", cfg.ConfigHandler.Update)
					r.With(require(auth.Rule{Resource: "config", Action: "delete"})).
						Delete("/", cfg.ConfigHandler.Delete)
				})
			})

			r.Route("/roles", func(r chi.Router) {
				r.With(require(auth.Rule{Resource: "role", Action: "list"})).
					Get("/", cfg.RoleHandler.List)
				r.With(require(auth.Rule{Resource: "role", Action: "create"})).
					Post("/", cfg.RoleHandler.Create)
				r.Route("/{roleCode}", func(r chi.Router) {
					r.With(require(auth.Rule{Resource: "role", Action: "read"})).
						Get("/", cfg.RoleHandler.Get)
					r.With(require(auth.Rule{Resource: "role", Action: "update"})).
						Put("/", cfg.RoleHandler.Update)
					r.With(require(auth.Rule{Resource: "role", Action: "delete"})).
						Delete("/", cfg.RoleHandler.Delete)
				})
			})
		})
	})
}
