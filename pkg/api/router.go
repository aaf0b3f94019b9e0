package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

// OwnerHeader carries the identity of the caller.
const OwnerHeader = "X-Owner-ID"

func (s *Server) routes() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(s.config.RequestTimeout))

	router.Get("/health", s.health)

	if s.signer != nil {
		router.Get(object.BlobPath+"{token}", s.serveBlob)
	}

	router.Route("/api/v1", func(api chi.Router) {
		api.Use(requireOwner)
		if s.limiter != nil {
			api.Use(rateLimit(s.limiter))
		}
		api.Use(limitBody(s.config.MaxRequestBytes))

		api.Route("/files", func(files chi.Router) {
			files.Get("/", s.listFiles)
			files.Post("/", s.uploadFiles)
			files.Put("/rename", s.renameFile)
			files.Post("/trash", s.trashFile)
		})

		api.Route("/trash", func(trash chi.Router) {
			trash.Get("/", s.listTrash)
			trash.Delete("/", s.purgeFile)
			trash.Post("/restore", s.restoreFile)
			trash.Post("/empty", s.emptyTrash)
			trash.Get("/download", s.trashDownload)
		})

		api.Post("/folders", s.createFolder)
		api.Get("/usage", s.usage)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusNotFound, "route not found", "")
	})

	return router
}
