package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// fileView is the client representation of a file record.
type fileView struct {
	FileID      string    `json:"fileId"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	FolderID    string    `json:"folderId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	URL         string    `json:"url,omitempty"`
}

func newFileView(r *metadata.FileRecord) fileView {
	return fileView{
		FileID:      r.FileID,
		Key:         r.ObjectKey,
		Name:        r.DisplayName,
		Size:        r.Size,
		ContentType: r.ContentType,
		FolderID:    r.FolderID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		URL:         r.CachedURL,
	}
}

// listFiles handles GET /api/v1/files?path=
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	l, err := s.service.List(r.Context(), ownerFrom(r.Context()), r.URL.Query().Get("path"))
	if err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "", l)
}

// uploadFiles handles POST /api/v1/files with multipart field "files" and
// optional form values "folderId" and "fileId" (single-file uploads only).
//
// Files are uploaded in order; the first failure aborts the request and the
// files already stored stay stored.
func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, "request body too large", drive.KindInvalidArgument)
			return
		}
		sendError(w, http.StatusBadRequest, "invalid multipart form", drive.KindInvalidArgument)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		sendError(w, http.StatusBadRequest, "no files provided", drive.KindInvalidArgument)
		return
	}

	fileID := r.FormValue("fileId")
	if fileID != "" && len(headers) > 1 {
		sendError(w, http.StatusBadRequest, "fileId requires a single file", drive.KindInvalidArgument)
		return
	}

	owner := ownerFrom(r.Context())
	uploaded := make([]fileView, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			sendError(w, http.StatusBadRequest, err.Error(), drive.KindInvalidArgument)
			return
		}

		rec, err := s.service.Upload(r.Context(), drive.UploadRequest{
			OwnerID:     owner,
			Name:        fh.Filename,
			Data:        data,
			ContentType: fh.Header.Get("Content-Type"),
			FolderID:    r.FormValue("folderId"),
			FileID:      fileID,
		})
		if err != nil {
			sendDriveError(w, err)
			return
		}
		uploaded = append(uploaded, newFileView(rec))
	}

	sendSuccess(w, http.StatusCreated, fmt.Sprintf("%d file(s) uploaded", len(uploaded)), uploaded)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
	}
	return data, nil
}

type renameRequest struct {
	OldPath string `json:"oldPath" validate:"required"`
	NewName string `json:"newName" validate:"required"`
}

// renameFile handles PUT /api/v1/files/rename
func (s *Server) renameFile(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.service.Rename(r.Context(), ownerFrom(r.Context()), req.OldPath, req.NewName)
	if err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "file renamed", res)
}

type pathRequest struct {
	Path string `json:"path" validate:"required"`
}

// trashFile handles POST /api/v1/files/trash
func (s *Server) trashFile(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.Trash(r.Context(), ownerFrom(r.Context()), req.Path); err != nil {
		sendDriveError(w, err)
		return
	}
	sendSuccess(w, http.StatusOK, "moved to trash", nil)
}
