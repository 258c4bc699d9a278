package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinova/clinova/internal/masterdata/medicines"
	"github.com/clinova/clinova/internal/masterdata/suppliers"
	"github.com/clinova/clinova/internal/observability"
	"github.com/clinova/clinova/internal/stockimport"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ImportHandler    *stockimport.Handler
	SuppliersHandler *suppliers.Handler
	MedicinesHandler *medicines.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Clinova defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/stock-import", params.ImportHandler.MountRoutes)
	if params.SuppliersHandler != nil {
		r.Route("/masterdata/suppliers", params.SuppliersHandler.MountRoutes)
	}
	if params.MedicinesHandler != nil {
		r.Route("/masterdata/medicines", params.MedicinesHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
