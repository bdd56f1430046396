package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/claim-workflow/internal/auth"
	"github.com/frahmantamala/claim-workflow/internal/claim"
	"github.com/frahmantamala/claim-workflow/internal/notification"
	"github.com/frahmantamala/claim-workflow/internal/transport/middleware"
	"github.com/frahmantamala/claim-workflow/internal/user"
)

// Handlers bundles the feature handlers the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Claim        *claim.Handler
	Notification *notification.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Everything below requires a valid token.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetMe)
			pr.Get("/users/managers", h.User.ListManagers)
			pr.Get("/users/finance-admins", h.User.ListFinanceAdmins)

			pr.Route("/claims", func(cr chi.Router) {
				cr.Post("/", h.Claim.CreateClaim)
				cr.Get("/", h.Claim.ListOwnClaims)
				cr.Get("/{uid}", h.Claim.GetClaim)
				cr.Patch("/{uid}", h.Claim.UpdateClaim)

				cr.Post("/{uid}/items", h.Claim.AddItem)
				cr.Put("/{uid}/items/{itemUID}", h.Claim.UpdateItem)
				cr.Delete("/{uid}/items/{itemUID}", h.Claim.DeleteItem)
				cr.Post("/{uid}/items/{itemUID}/receipt", h.Claim.AttachReceipt)

				cr.Post("/{uid}/export", h.Claim.ExportPDF)
				cr.Post("/{uid}/signed", h.Claim.UploadSignedPDF)

				// Rejection is an approver action.
				cr.Group(func(ar chi.Router) {
					ar.Use(h.Auth.RequireAnyRole(user.RoleProf, user.RoleDepartmentManager, user.RoleHeadOfInstitute, user.RoleFinanceAdmin))
					ar.Post("/{uid}/reject", h.Claim.RejectClaim)
				})
			})

			pr.Group(func(ar chi.Router) {
				ar.Use(h.Auth.RequireAnyRole(user.RoleFinanceAdmin))
				ar.Post("/notifications/flush", h.Notification.FlushDigests)
			})
		})
	})
}
