package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"eldt-progress-service/internal/app"
	"eldt-progress-service/internal/domain"
)

// Handler exposes the progress and scoring use cases as a thin JSON surface.
// Auth, CORS, and content delivery live in front of this service and are not
// handled here.
type Handler struct {
	service *app.ProgressService
}

func NewHandler(service *app.ProgressService) *Handler {
	return &Handler{service: service}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /quizzes/{quizID}/questions", h.handleQuestions)
	mux.HandleFunc("GET /users/{userID}/quizzes/{quizID}/progress", h.handleGetProgress)
	mux.HandleFunc("PUT /users/{userID}/quizzes/{quizID}/progress", h.handleSaveProgress)
	mux.HandleFunc("DELETE /users/{userID}/quizzes/{quizID}/progress", h.handleDeleteProgress)
	mux.HandleFunc("POST /users/{userID}/quizzes/{quizID}/reset", h.handleResetProgress)
	mux.HandleFunc("POST /users/{userID}/quizzes/{quizID}/submit", h.handleSubmitQuiz)
	mux.HandleFunc("GET /users/{userID}/courses/{courseID}/summary", h.handleCourseSummary)
	mux.HandleFunc("POST /users/{userID}/courses/{courseID}/submit", h.handleSubmitCourse)
}

type saveProgressRequest struct {
	CurrentQuestion int               `json:"currentQuestion"`
	Answers         map[string]string `json:"answers"`
}

type submitQuizRequest struct {
	Answers map[string]string `json:"answers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quizID")
	if !ok {
		return
	}
	questions, err := h.service.GetQuestions(r.Context(), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, quizID, ok := userQuizIDs(w, r)
	if !ok {
		return
	}
	rec, err := h.service.GetProgress(r.Context(), userID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	userID, quizID, ok := userQuizIDs(w, r)
	if !ok {
		return
	}
	var req saveProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	rec, err := h.service.SaveProgress(r.Context(), userID, quizID, req.CurrentQuestion, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDeleteProgress(w http.ResponseWriter, r *http.Request) {
	userID, quizID, ok := userQuizIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProgress(r.Context(), userID, quizID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	userID, quizID, ok := userQuizIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.ResetProgress(r.Context(), userID, quizID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, quizID, ok := userQuizIDs(w, r)
	if !ok {
		return
	}
	var req submitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := h.service.SubmitQuiz(r.Context(), userID, quizID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCourseSummary(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := userCourseIDs(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CourseSummary(r.Context(), userID, courseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSubmitCourse(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := userCourseIDs(w, r)
	if !ok {
		return
	}
	summary, result, err := h.service.SubmitCourse(r.Context(), userID, courseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Summary domain.CourseSummary `json:"summary"`
		Result  domain.CourseResult  `json:"result"`
	}{summary, result})
}

func userQuizIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return 0, 0, false
	}
	quizID, ok := pathID(w, r, "quizID")
	if !ok {
		return 0, 0, false
	}
	return userID, quizID, true
}

func userCourseIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return 0, 0, false
	}
	courseID, ok := pathID(w, r, "courseID")
	if !ok {
		return 0, 0, false
	}
	return userID, courseID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProgressNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrNotAssigned):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store timeout, retry the request"})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporary failure, retry the request"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
