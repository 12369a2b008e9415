package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/keyword-service/internal/delivery/http/request"
	"github.com/user/keyword-service/internal/delivery/http/response"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
	"github.com/user/keyword-service/internal/usecase"
)

type Handler struct {
	runManager *usecase.RunManager
}

func NewHandler(runManager *usecase.RunManager) *Handler {
	return &Handler{
		runManager: runManager,
	}
}

func (h *Handler) HandleSubmitProject(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Seeds) == 0 {
		h.writeJSONError(w, "At least one seed keyword is required", http.StatusBadRequest)
		return
	}
	focus := entity.Intent(req.ContentFocus)
	if req.ContentFocus == "" {
		focus = entity.IntentInformational
	}

	project := &entity.Project{
		Name:         req.Name,
		Seeds:        req.Seeds,
		Geo:          req.Geo,
		Language:     req.Language,
		ContentFocus: focus,
	}

	projectID, err := h.runManager.Submit(r.Context(), project, usecase.RunOptions{
		Resume: req.Resume,
		Force:  req.Force,
	})
	if err != nil {
		if errors.Is(err, repository.ErrRunInProgress) {
			h.writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Failed to submit project", "name", req.Name, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.SubmitProjectResponse{
		Status:    "success",
		Message:   "Project submitted for keyword research",
		ProjectID: projectID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.writeJSONError(w, "project_id query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.runManager.Status(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "No run found for the given project", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get run status", "project_id", projectID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.ProjectStatusResponse{
		ProjectID: status.ProjectID,
		Running:   status.Running,
		Stage:     string(status.Stage),
		Error:     status.Error,
	}
	if !status.SavedAt.IsZero() {
		resp.SavedAt = &status.SavedAt
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.writeJSONError(w, "project_id query parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.runManager.Result(projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "No finished run for the given project", http.StatusNotFound)
			return
		}
		slog.Error("Run finished with error", "project_id", projectID, "error", err)
		h.writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := response.RunResultResponse{
		ProjectID:   result.ProjectID,
		RunID:       result.RunID,
		Keywords:    result.Keywords,
		Topics:      result.Topics,
		Pages:       result.Pages,
		Links:       result.Links,
		Reports:     result.Reports,
		CompletedAt: result.CompletedAt,
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.writeJSONError(w, "project_id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.runManager.Cancel(projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "No active run for the given project", http.StatusNotFound)
			return
		}
		slog.Error("Failed to cancel run", "project_id", projectID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
