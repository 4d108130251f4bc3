package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the portal router. Valid submissions are sent to
// submitted without blocking.
func (p *Portal) buildRouter(submitted chan<- Result) http.Handler {
	r := chi.NewRouter()

	r.Use(p.requestIDMiddleware)
	r.Use(p.loggingMiddleware)
	r.Use(p.recoveryMiddleware)
	r.Use(p.bodySizeLimitMiddleware)

	r.Get("/", p.handleForm)
	r.Post("/save", p.handleSave(submitted))
	r.Get("/healthz", p.handleHealth)

	return r
}
