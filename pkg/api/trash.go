package api

import (
	"net/http"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// listTrash handles GET /api/v1/trash
func (s *Server) listTrash(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListTrash(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "", entries)
}

// restoreFile handles POST /api/v1/trash/restore
func (s *Server) restoreFile(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.Restore(r.Context(), ownerFrom(r.Context()), req.Path); err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "restored", nil)
}

// purgeFile handles DELETE /api/v1/trash?path=
func (s *Server) purgeFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		sendError(w, http.StatusBadRequest, "path is required", drive.KindInvalidArgument)
		return
	}

	if err := s.service.Purge(r.Context(), ownerFrom(r.Context()), path); err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "permanently deleted", nil)
}

type purgeFailureView struct {
	Key    string `json:"key"`
	FileID string `json:"fileId"`
	Error  string `json:"error"`
}

type emptyTrashView struct {
	Purged   int                `json:"purged"`
	Failures []purgeFailureView `json:"failures"`
}

// emptyTrash handles POST /api/v1/trash/empty. Individual failures do not
// fail the request; they are reported in the body.
func (s *Server) emptyTrash(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.EmptyTrash(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		sendDriveError(w, err)
		return
	}

	view := emptyTrashView{Purged: res.Purged, Failures: make([]purgeFailureView, 0, len(res.Failures))}
	for _, f := range res.Failures {
		view.Failures = append(view.Failures, purgeFailureView{Key: f.Key, FileID: f.FileID, Error: f.Err.Error()})
	}
	sendSuccess(w, http.StatusOK, "trash emptied", view)
}

// trashDownload handles GET /api/v1/trash/download?path=
func (s *Server) trashDownload(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		sendError(w, http.StatusBadRequest, "path is required", drive.KindInvalidArgument)
		return
	}

	url, err := s.service.TrashURL(r.Context(), ownerFrom(r.Context()), path)
	if err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "", map[string]string{"url": url})
}
