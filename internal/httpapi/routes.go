package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dartopia/darts-server/internal/registry"
	"github.com/dartopia/darts-server/internal/ws"
)

func SetupRoutes(r *registry.Registry, origins []string, log *zap.Logger) http.Handler {
	router := chi.NewRouter()

	router.Post("/games", CreateGame(r))
	router.Get("/games/{id}", GetGame(r))
	router.Post("/games/{id}/start", StartGame(r))
	router.Post("/games/{id}/throws", ReportThrow(r))
	router.Delete("/games/{id}", RemoveGame(r))
	router.Get("/healthz", Healthz)
	router.Get("/ws", ws.Handler(r, origins, log))
	return router
}
