package httpd

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/profdeck/canvas-grader/internal/service/canvas"
	"github.com/profdeck/canvas-grader/internal/service/grading"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	canvasClient   canvas.Client
	gradingService *grading.Service
	logger         zerolog.Logger
}

func NewHandler(
	canvasClient canvas.Client,
	gradingService *grading.Service,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		canvasClient:   canvasClient,
		gradingService: gradingService,
		logger:         logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/courses", func(r chi.Router) {
			r.Get("/", h.GetCourses)
			r.Get("/{courseID}/students", h.GetStudents)
			r.Get("/{courseID}/assignments", h.GetAssignments)
			r.Post("/{courseID}/assignments", h.CreateAssignment)
			r.Put("/{courseID}/assignments/{assignmentID}", h.UpdateAssignment)
			r.Get("/{courseID}/assignments/{assignmentID}/submissions", h.GetSubmissions)
		})

		api.Route("/grading", func(r chi.Router) {
			r.Post("/runs", h.StartRun)
			r.Get("/progress", h.GetProgress)
			r.Get("/pending", h.GetPendingGrades)
			r.Patch("/pending/{index}", h.EditScore)
			r.Post("/commit", h.CommitGrades)
			r.Post("/cancel", h.CancelReview)
			r.Get("/history", h.GetHistory)
			r.Get("/history/{runID}", h.GetRunDetail)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "canvas-grader",
		"timestamp": time.Now().UTC(),
	}

	if user, err := h.canvasClient.VerifyConnection(ctx); err != nil {
		response["canvas"] = "unreachable"
		h.logger.Warn().Err(err).Msg("Canvas connection check failed")
	} else {
		response["canvas"] = "connected"
		response["user"] = user
	}

	writeJSON(w, http.StatusOK, response)
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getInt64URLParam(r *http.Request, key string) (int64, bool) {
	value := chi.URLParam(r, key)
	if value == "" {
		return 0, false
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
