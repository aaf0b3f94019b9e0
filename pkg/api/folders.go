package api

import (
	"net/http"
	"time"
)

type createFolderRequest struct {
	Name       string `json:"name" validate:"required"`
	ParentPath string `json:"parentPath"`
}

type folderView struct {
	FolderID       string    `json:"folderId"`
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	ParentPath     string    `json:"parentPath"`
	ParentFolderID *string   `json:"parentFolderId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// createFolder handles POST /api/v1/folders
func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	f, err := s.service.CreateFolder(r.Context(), ownerFrom(r.Context()), req.Name, req.ParentPath)
	if err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusCreated, "folder created", folderView{
		FolderID:       f.FolderID,
		Name:           f.Name,
		Path:           f.Path(),
		ParentPath:     f.ParentPath,
		ParentFolderID: f.ParentFolderID,
		CreatedAt:      f.CreatedAt,
	})
}

// usage handles GET /api/v1/usage
func (s *Server) usage(w http.ResponseWriter, r *http.Request) {
	u, err := s.service.Usage(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "", u)
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, http.StatusOK, "DittoDrive API is healthy", nil)
}
