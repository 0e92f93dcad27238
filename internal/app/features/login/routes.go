// internal/app/features/login/routes.go
package login

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/wastehub/wastehub/internal/app/system/respond"
)

// Routes mounts POST / with a per-IP limit of perMinute attempts. A
// non-positive limit disables it.
func Routes(h *Handler, perMinute int) chi.Router {
	r := chi.NewRouter()
	if perMinute > 0 {
		r.Use(httprate.Limit(perMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				respond.ErrorCode(w, r, http.StatusTooManyRequests, "rate_limited", "too many sign-in attempts; try again shortly")
			})))
	}
	r.Post("/", h.HandleLogin)
	return r
}
