package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deskbridge/internal/webui"
)

// RouterOptions controls cross-cutting router behaviour.
type RouterOptions struct {
	AllowedOrigins []string
}

// Routes constructs the chi router containing the full HTTP surface.
func (a *API) Routes(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.Limit(100, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/campuses", a.handleCampuses)
		r.Get("/buildings", a.handleBuildings)
		r.Get("/locations", a.handleLocations)
		r.Get("/makes", a.handleMakes)
		r.Get("/models", a.handleModels)
		r.Get("/device-types", a.handleDeviceTypes)
		r.Get("/templates", a.handleTemplates)
		r.Get("/stockrooms", a.handleStockRooms)
		r.Post("/cache/clear", a.handleCacheClear)

		r.Get("/assets/search", a.handleAssetSearch)
		r.Post("/assets", a.handleBulkAssets)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", a.handleQueueList)
			r.Post("/", a.handleQueueAdd)
			r.Delete("/{id}", a.handleQueueRemove)
			r.Post("/submit", a.handleQueueSubmit)
			r.Get("/defaults", a.handleQueueDefaults)
		})

		r.Get("/audit", a.handleAuditRecent)
	})

	r.Handle("/*", webui.Handler())

	return r
}
