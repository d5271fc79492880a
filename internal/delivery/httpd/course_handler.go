package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/profdeck/canvas-grader/internal/models"
)

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	courses, err := h.canvasClient.GetCourses(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get courses")
		writeError(w, http.StatusBadGateway, "Failed to get courses")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"courses": courses,
		"total":   len(courses),
	})
}

func (h *Handler) GetStudents(w http.ResponseWriter, r *http.Request) {
	courseID, ok := getInt64URLParam(r, "courseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	ctx := r.Context()
	students, err := h.canvasClient.GetStudents(ctx, courseID)
	if err != nil {
		h.logger.Error().Err(err).Int64("course_id", courseID).Msg("Failed to get students")
		writeError(w, http.StatusBadGateway, "Failed to get students")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"students": students,
		"total":    len(students),
	})
}

func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	courseID, ok := getInt64URLParam(r, "courseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	ctx := r.Context()
	assignments, err := h.canvasClient.GetAssignments(ctx, courseID)
	if err != nil {
		h.logger.Error().Err(err).Int64("course_id", courseID).Msg("Failed to get assignments")
		writeError(w, http.StatusBadGateway, "Failed to get assignments")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"assignments": assignments,
		"total":       len(assignments),
	})
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	courseID, ok := getInt64URLParam(r, "courseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if name, _ := req["name"].(string); name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx := r.Context()
	assignment, err := h.canvasClient.CreateAssignment(ctx, courseID, req)
	if err != nil {
		h.logger.Error().Err(err).Int64("course_id", courseID).Msg("Failed to create assignment")
		writeError(w, http.StatusBadGateway, "Failed to create assignment")
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	courseID, ok := getInt64URLParam(r, "courseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	assignmentID, ok := getInt64URLParam(r, "assignmentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	assignment, err := h.canvasClient.UpdateAssignment(ctx, courseID, assignmentID, req)
	if err != nil {
		h.logger.Error().Err(err).Int64("assignment_id", assignmentID).Msg("Failed to update assignment")
		writeError(w, http.StatusBadGateway, "Failed to update assignment")
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	courseID, ok := getInt64URLParam(r, "courseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	assignmentID, ok := getInt64URLParam(r, "assignmentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	courseName := r.URL.Query().Get("course_name")
	assignmentName := r.URL.Query().Get("assignment_name")

	ctx := r.Context()
	subs, err := h.gradingService.ListSubmissions(ctx, courseID, assignmentID, courseName, assignmentName)
	if err != nil {
		h.logger.Error().Err(err).Int64("assignment_id", assignmentID).Msg("Failed to get submissions")
		writeError(w, http.StatusBadGateway, "Failed to get submissions")
		return
	}

	previews := make([]models.SubmissionPreview, 0, len(subs))
	for _, s := range subs {
		previews = append(previews, models.NewSubmissionPreview(s))
	}

	writeSuccess(w, map[string]interface{}{
		"submissions": subs,
		"previews":    previews,
		"total":       len(subs),
	})
}
