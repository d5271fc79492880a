package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/profdeck/canvas-grader/internal/service/grading"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req models.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CourseID == 0 || req.AssignmentID == 0 {
		writeError(w, http.StatusBadRequest, "course_id and assignment_id are required")
		return
	}

	ctx := r.Context()
	response, err := h.gradingService.StartRun(ctx, req.CourseID, req.AssignmentID)
	if err != nil {
		h.handleGradingError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"data":    response,
	})
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.gradingService.Progress())
}

func (h *Handler) GetPendingGrades(w http.ResponseWriter, r *http.Request) {
	table, err := h.gradingService.ReviewTable()
	if err != nil {
		h.handleGradingError(w, err)
		return
	}

	writeSuccess(w, table)
}

func (h *Handler) EditScore(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")
	if index == "" {
		writeError(w, http.StatusBadRequest, "Entry index is required")
		return
	}

	n, err := strconv.Atoi(index)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Entry index must be a number")
		return
	}

	var req models.EditScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.gradingService.EditScore(n, req.Score); err != nil {
		h.handleGradingError(w, err)
		return
	}

	table, err := h.gradingService.ReviewTable()
	if err != nil {
		h.handleGradingError(w, err)
		return
	}

	writeSuccess(w, table)
}

func (h *Handler) CommitGrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response, err := h.gradingService.Commit(ctx)
	if err != nil {
		h.handleGradingError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) CancelReview(w http.ResponseWriter, r *http.Request) {
	h.gradingService.Cancel()

	writeSuccess(w, map[string]interface{}{
		"message": "Pending grades discarded",
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := getIntQueryParam(r, "limit", 20)

	ctx := r.Context()
	runs, err := h.gradingService.RunHistory(ctx, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get grade run history")
		writeError(w, http.StatusInternalServerError, "Failed to get grade run history")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) GetRunDetail(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	ctx := r.Context()
	run, results, err := h.gradingService.RunDetail(ctx, runID)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to get grade run")
		writeError(w, http.StatusInternalServerError, "Failed to get grade run")
		return
	}

	if run == nil {
		writeError(w, http.StatusNotFound, "Grade run not found")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"run":     run,
		"results": results,
	})
}

func (h *Handler) handleGradingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, grading.ErrRunInProgress) || errors.Is(err, grading.ErrAlreadyActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, grading.ErrNoPendingSet) || errors.Is(err, grading.ErrEmptySet):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, grading.ErrNotReviewing):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Grading service error")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
