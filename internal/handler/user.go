package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/auth"
	"github.com/dmarukhin/tasknote-api/internal/blob"
	"github.com/dmarukhin/tasknote-api/internal/directory"
	"github.com/dmarukhin/tasknote-api/pkg/respond"
)

// UserHandler serves the caller's directory profile. Profile pictures
// go straight to the blob store; they are not part of the image
// registry because nothing dedups or audit-logs them.
type UserHandler struct {
	directory *directory.Client
	blob      blob.Store
	logger    *zap.Logger
}

func NewUserHandler(dir *directory.Client, blobStore blob.Store, logger *zap.Logger) *UserHandler {
	return &UserHandler{directory: dir, blob: blobStore, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.directory.GetUser(r.Context(), ident.Subject)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			respond.Error(w, r, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("directory lookup failed", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) UpdatePicture(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "expected multipart form data")
		return
	}
	f, fh, err := r.FormFile("picture")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "picture file is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		respond.Error(w, r, http.StatusBadRequest, "picture file is empty")
		return
	}

	_, url, err := h.blob.Upload(r.Context(), bytes.NewReader(data), int64(len(data)), fh.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("picture upload failed", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.directory.SetUserPicture(r.Context(), ident.Subject, url); err != nil {
		h.logger.Error("directory picture update failed", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respond.JSON(w, r, http.StatusOK, map[string]string{"picture": url})
}
