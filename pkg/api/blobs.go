package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// serveBlob handles GET /blobs/{token}, the target of URLs presigned by the
// memory and filesystem object stores. The token is the only credential.
func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request) {
	key, err := s.signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		logger.Debug("API: rejected blob token: %v", err)
		sendError(w, http.StatusForbidden, "invalid or expired link", "")
		return
	}

	if statter, ok := s.objects.(object.Statter); ok {
		info, err := statter.Stat(r.Context(), key)
		if err != nil {
			s.blobError(w, key, err)
			return
		}
		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}

	body, err := s.objects.Get(r.Context(), key)
	if err != nil {
		s.blobError(w, key, err)
		return
	}
	defer func() { _ = body.Close() }()

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", object.DefaultContentType)
	}
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logger.Debug("API: blob copy for '%s' aborted: %v", key, err)
	}
}

func (s *Server) blobError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, object.ErrObjectNotFound) {
		sendError(w, http.StatusNotFound, "object not found", drive.KindNotFound)
		return
	}
	logger.Error("API: failed to read blob '%s': %v", key, err)
	sendError(w, http.StatusBadGateway, "failed to read object", drive.KindObjectStore)
}
