// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/go-chi/chi/v5"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/domain/models"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/me", h.ServeMine)
	r.Patch("/me", h.HandleUpdate)
	return r
}
