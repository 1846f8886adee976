// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes builds the subrouter mounted at /health. The single route answers
// readiness probes: the memory backend reports ok outright, the mongo
// backend only after a bounded ping.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
