// internal/app/features/assignments/routes.go
package assignments

import (
	"github.com/go-chi/chi/v5"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/domain/models"
)

// Routes is mounted under /api/assignments.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/assignable", h.ServeAssignable)
	r.Post("/", h.HandleAssign)
	return r
}

// StatusRoutes registers the lifecycle moves on the reports router.
func StatusRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleWorker, models.RoleAdmin))
		r.Post("/{id}/start", h.HandleStart)
		r.Post("/{id}/resolve", h.HandleResolve)
	})
}
