package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eldt-progress-service/internal/app"
	"eldt-progress-service/internal/domain"
	"eldt-progress-service/internal/infra/memory"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	quiz := domain.Quiz{
		ID:        1,
		SectionID: 1,
		Questions: []domain.Question{
			{ID: 10, Text: "minimum tread depth on a steer tire", Choices: []domain.Choice{
				{ID: 1, Label: "a", Text: "4/32 inch", Correct: true},
				{ID: 2, Label: "b", Text: "2/32 inch"},
			}},
			{ID: 11, Text: "service brake check", Choices: []domain.Choice{
				{ID: 3, Label: "a", Text: "at highway speed"},
				{ID: 4, Label: "b", Text: "at about 5 mph", Correct: true},
			}},
		},
	}
	content := memory.NewStaticContentStore(
		map[int64]domain.Quiz{1: quiz},
		map[int64][]domain.Section{1: {{ID: 1, Name: "Vehicle Inspection", Number: 1, QuizID: 1}}},
	)
	content.Assign(7, 1, 42)

	service := app.NewProgressService(
		memory.NewAnswerKeyCache(content, time.Minute),
		content,
		memory.NewProgressStore(),
		content,
		memory.NewResultStore(),
		app.DefaultPassPolicy(),
	)

	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQuestionsEndpointHidesAnswers(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/quizzes/1/questions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), `"correct":true`) {
		t.Fatalf("response leaks correct choices: %s", rec.Body)
	}

	var questions []domain.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &questions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

func TestProgressLifecycleOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/users/7/quizzes/1/progress", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any save, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPut, "/users/7/quizzes/1/progress",
		`{"currentQuestion":1,"answers":{"10":"a"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, mux, http.MethodGet, "/users/7/quizzes/1/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var stored domain.ProgressRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.CurrentQuestion != 1 || stored.Score != 1 || stored.IsCompleted {
		t.Fatalf("unexpected record %+v", stored)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/users/7/quizzes/1/progress", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/users/7/quizzes/1/progress", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSubmitQuizOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/users/7/quizzes/1/submit",
		`{"answers":{"10":"a","11":"b"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	var result domain.QuizResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Score != 2 || result.Percentage != 100 || !result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestResetOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/users/7/quizzes/1/submit",
		`{"answers":{"10":"a","11":"b"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodPost, "/users/7/quizzes/1/reset", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset: status %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/users/7/quizzes/1/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get after reset: status %d", rec.Code)
	}
	var stored domain.ProgressRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Score != 0 || stored.IsCompleted || stored.CurrentQuestion != 0 {
		t.Fatalf("reset record not zeroed: %+v", stored)
	}
}

func TestCourseSummaryAndSubmitOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/users/7/quizzes/1/submit",
		`{"answers":{"10":"a","11":"x"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit quiz: status %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/users/7/courses/1/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d, body %s", rec.Code, rec.Body)
	}
	var summary domain.CourseSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalScore != 1 || summary.TotalQuestions != 2 || summary.OverallPercentage != 50 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec = doJSON(t, mux, http.MethodPost, "/users/7/courses/1/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit course: status %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		Summary domain.CourseSummary `json:"summary"`
		Result  domain.CourseResult  `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result.UserAssignedCourseID != 42 || out.Result.Passed {
		t.Fatalf("unexpected result %+v", out.Result)
	}
}

func TestSubmitCourseWithoutAssignment(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/users/8/courses/1/submit", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unassigned user, got %d", rec.Code)
	}
}

func TestBadPathParameters(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/users/abc/quizzes/1/progress", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodPut, "/users/7/quizzes/1/progress", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid body, got %d", rec.Code)
	}
}
