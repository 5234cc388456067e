package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", app.Metrics.Handler())

	r.Post("/api/v1/frames", app.RunHandler)
	r.Get("/api/v1/frames", app.ListHandler)
	r.Delete("/api/v1/frames", app.ResetHandler)

	return r
}
