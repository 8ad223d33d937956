package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printshelf/printshelf/internal/gateway"
	"github.com/printshelf/printshelf/internal/model"
	"github.com/printshelf/printshelf/internal/service"
)

// FileHandler serves the model and image file endpoints.
type FileHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(svc *service.Service, logger *slog.Logger) *FileHandler {
	return &FileHandler{svc: svc, logger: logger}
}

// ListModels returns the ungrouped model listing (cached).
func (h *FileHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	files, err := h.svc.ListUngroupedModels(r.Context(), sess.AccessToken)
	if err != nil {
		h.logger.Error("list models failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to list 3MF files")
		return
	}
	if files == nil {
		files = []model.FileInfo{}
	}
	respondJSON(w, http.StatusOK, files)
}

// StreamModel pipes a model object's bytes to the response.
func (h *FileHandler) StreamModel(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	name := chi.URLParam(r, "name")

	rc, err := h.svc.OpenModel(r.Context(), sess.AccessToken, name)
	if err != nil {
		h.logger.Error("open model failed", slog.String("name", name), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to stream file")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; all we can do is log.
		h.logger.Warn("model stream interrupted", slog.String("name", name), slog.Any("error", err))
	}
}

// DeleteModel removes a model and its output folder, if any.
func (h *FileHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	name := chi.URLParam(r, "name")

	if err := h.svc.DeleteModel(r.Context(), sess.AccessToken, name); err != nil {
		h.logger.Error("delete model failed", slog.String("name", name), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	respondJSON(w, http.StatusOK, "Deleted "+name)
}

// RenameModel renames a model via copy-then-delete.
func (h *FileHandler) RenameModel(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	name := chi.URLParam(r, "name")

	var body struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewName == "" {
		respondError(w, http.StatusBadRequest, "Missing newName")
		return
	}

	if err := h.svc.RenameModel(r.Context(), sess.AccessToken, name, body.NewName); err != nil {
		var pending *gateway.DeletePendingError
		if errors.As(err, &pending) {
			// Distinguishable outcome: the copy exists, the original is
			// still there. The client can reconcile instead of retrying
			// blindly.
			h.logger.Error("rename left delete pending",
				slog.String("old", pending.Pending), slog.String("new", pending.Copied), slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "Rename incomplete: copy created, original not deleted")
			return
		}
		h.logger.Error("rename model failed", slog.String("name", name), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to rename file")
		return
	}
	respondJSON(w, http.StatusOK, "Renamed "+name+" to "+body.NewName)
}

// ListImages returns all images. Never cached.
func (h *FileHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	files, err := h.svc.ListImages(r.Context(), sess.AccessToken)
	if err != nil {
		h.logger.Error("list images failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to list images")
		return
	}
	if files == nil {
		files = []model.FileInfo{}
	}
	respondJSON(w, http.StatusOK, files)
}

// StreamImage pipes an image object's bytes to the response. Image names
// may contain slashes (folder prefixes), so the route uses a wildcard.
func (h *FileHandler) StreamImage(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	name := chi.URLParam(r, "*")

	rc, err := h.svc.OpenImage(r.Context(), sess.AccessToken, name)
	if err != nil {
		h.logger.Error("open image failed", slog.String("name", name), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to stream image")
		return
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("image stream interrupted", slog.String("name", name), slog.Any("error", err))
	}
}

// DeleteImage removes a single image object.
func (h *FileHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	name := chi.URLParam(r, "*")

	if err := h.svc.DeleteImage(r.Context(), sess.AccessToken, name); err != nil {
		h.logger.Error("delete image failed", slog.String("name", name), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to delete image")
		return
	}
	respondJSON(w, http.StatusOK, "Deleted "+name)
}
