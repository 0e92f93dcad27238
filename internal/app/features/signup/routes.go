// internal/app/features/signup/routes.go
package signup

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleOrganization)
	r.Post("/register", h.HandleCitizen)
	return r
}
