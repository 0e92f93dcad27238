// internal/app/features/reports/routes.go
package reports

import (
	"github.com/go-chi/chi/v5"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/domain/models"
)

// Routes is mounted under /api/reports. Status moves live in the
// assignments feature.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.With(auth.RequireRole(models.RoleUser)).Post("/", h.HandleCreate)
	r.With(auth.RequireRole(models.RoleUser)).Get("/mine", h.ServeMine)
	r.With(auth.RequireRole(models.RoleAdmin)).Get("/stats", h.ServeStats)

	r.Get("/{id}", h.ServeReport)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
