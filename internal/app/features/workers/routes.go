// internal/app/features/workers/routes.go
package workers

import (
	"github.com/go-chi/chi/v5"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/domain/models"
)

// Routes is mounted under /api/workers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin))
		r.Get("/", h.ServeList)
		r.Post("/", h.HandleCreate)
		r.Get("/stream", h.ServeStream)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin, models.RoleWorker))
		r.Get("/{id}", h.ServeWorker)
		r.Get("/{id}/tasks", h.ServeTasks)
	})
	return r
}
