// Package router wires the student handlers into a chi router.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qapabilities/students-api/internal/http/handlers/student"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Service     student.Service
	Validator   student.Validator
	MaxPageSize int

	// Gatherer backs /metrics. Nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer

	// RequestTimeout bounds each API request. Zero means 30s.
	RequestTimeout time.Duration
}

// New builds the HTTP handler.
//
// Route table:
//
//	GET    /api/students              → paginated list
//	POST   /api/students              → create
//	GET    /api/students/{id}         → get one
//	PUT    /api/students/{id}         → update
//	DELETE /api/students/{id}         → soft delete
//	GET    /api/students/{id}/exists  → existence check
//	GET    /metrics                   → Prometheus scrape
func New(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/students", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Get("/", student.GetList(d.Service, d.MaxPageSize))
		r.Post("/", student.New(d.Service, d.Validator))
		r.Get("/{id}", student.GetByID(d.Service))
		r.Put("/{id}", student.Update(d.Service, d.Validator))
		r.Delete("/{id}", student.Delete(d.Service))
		r.Get("/{id}/exists", student.Exists(d.Service))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
