package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sifthq/docsift/internal/api"
	"github.com/sifthq/docsift/internal/api/handlers"
	"github.com/sifthq/docsift/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
	AdminHandler  *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", cfg.SearchHandler.Query)
	r.Post("/answer", cfg.SearchHandler.Answer)

	r.Post("/rebuild", cfg.AdminHandler.Rebuild)
	r.Get("/chunks", cfg.AdminHandler.Chunks)
	r.Get("/documents", cfg.AdminHandler.Documents)
	r.Get("/status", cfg.AdminHandler.Status)

	return r
}
