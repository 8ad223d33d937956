package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/printshelf/printshelf/internal/model"
	"github.com/printshelf/printshelf/internal/service"
)

// GroupHandler serves the group commit endpoint.
type GroupHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(svc *service.Service, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{svc: svc, logger: logger}
}

// Commit runs the group commit workflow.
func (h *GroupHandler) Commit(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	var req model.GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ThreeMfName == "" {
		respondError(w, http.StatusBadRequest, "Missing threeMfName")
		return
	}

	folder, err := h.svc.CommitGroup(r.Context(), sess.AccessToken, req)
	if err != nil {
		h.logger.Error("group commit failed", slog.String("model", req.ThreeMfName), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to create group")
		return
	}
	respondJSON(w, http.StatusOK, "Created group: "+folder)
}
