package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/service"
	"github.com/sakif/owners-club/internal/storage"
)

// multipartOverhead is headroom for the multipart envelope around the file.
const multipartOverhead = 64 << 10

// UploadHandler accepts image uploads as multipart/form-data with the image
// in the "file" field.
type UploadHandler struct {
	images   *service.ImageService
	maxBytes int64
	logger   *slog.Logger
}

func NewUploadHandler(images *service.ImageService, maxBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{images: images, maxBytes: maxBytes, logger: logger}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// HandleMemberUpload stores a car photo for the signed-in member.
//
// HTTP: POST /api/uploads
func (h *UploadHandler) HandleMemberUpload(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, storage.PrefixOwners)
}

// HandleAdminUpload stores a post cover or site asset. ?prefix= picks the
// location and defaults to posts.
//
// HTTP: POST /api/admin/uploads?prefix=site
func (h *UploadHandler) HandleAdminUpload(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = storage.PrefixPosts
	}
	h.upload(w, r, prefix)
}

// HandleAdminDelete removes an uploaded file by its public URL.
//
// HTTP: DELETE /api/admin/uploads?url=/uploads/posts/abc.png
func (h *UploadHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.images.Remove(r.Context(), r.URL.Query().Get("url")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, prefix string) {
	userID, _ := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, apperror.ValidationFailed("file",
				fmt.Sprintf("image must be %d MB or smaller", h.maxBytes>>20)))
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, apperror.ValidationFailed("file", "choose an image to upload"))
		default:
			writeError(w, apperror.ValidationFailed("file", "expected a multipart form upload"))
		}
		return
	}
	defer file.Close()

	url, err := h.images.Upload(r.Context(), userID, prefix, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
