package app_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"eldt-progress-service/internal/app"
	"eldt-progress-service/internal/domain"
	"eldt-progress-service/internal/infra/memory"
)

func TestSaveProgressIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t)

	answers := map[string]string{"10": "a", "11": "b"}
	first, err := svc.SaveProgress(ctx, 1, 3, 2, answers)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := svc.SaveProgress(ctx, 1, 3, 2, answers)
	if err != nil {
		t.Fatalf("save again: %v", err)
	}

	if stores.progress.Len() != 1 {
		t.Fatalf("expected one record, got %d", stores.progress.Len())
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("records differ:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestSaveProgressReconcilesAndScores(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	// legacy positional keys for questions 10 and 11
	rec, err := svc.SaveProgress(ctx, 1, 3, 2, map[string]string{"0": "a", "1": "x"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	answers, err := rec.Answers()
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if answers["10"] != "a" || answers["11"] != "x" {
		t.Fatalf("expected canonical keys, got %v", answers)
	}
	if rec.Score != 1 {
		t.Fatalf("expected score 1, got %d", rec.Score)
	}
	if rec.TotalQuestions != 3 || rec.ProgressPercentage != 67 {
		t.Fatalf("expected 2/3 progress, got %+v", rec)
	}
	if rec.IsCompleted {
		t.Fatalf("two of three questions is not completion")
	}
}

func TestSubmitQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t)

	result, err := svc.SubmitQuiz(ctx, 1, 3, map[string]string{"10": "a", "11": "x", "12": "c"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 2 || result.TotalQuestions != 3 || result.Percentage != 67 {
		t.Fatalf("expected 2/3 = 67%%, got %+v", result)
	}
	if result.Passed {
		t.Fatalf("67%% must not pass the 70%% quiz threshold")
	}

	rec, err := stores.progress.Get(ctx, 1, 3)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !rec.IsCompleted || rec.ProgressPercentage != 100 {
		t.Fatalf("submit must force completion, got %+v", rec)
	}
	if rec.CurrentQuestion != 3 || rec.TotalQuestions != 3 || rec.Score != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestSubmitQuizRetryYieldsSameRecord(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t)

	answers := map[string]string{"10": "a", "11": "b", "12": "c"}
	if _, err := svc.SubmitQuiz(ctx, 1, 3, answers); err != nil {
		t.Fatalf("submit: %v", err)
	}
	first, _ := stores.progress.Get(ctx, 1, 3)

	if _, err := svc.SubmitQuiz(ctx, 1, 3, answers); err != nil {
		t.Fatalf("retry: %v", err)
	}
	second, _ := stores.progress.Get(ctx, 1, 3)

	if stores.progress.Len() != 1 {
		t.Fatalf("retry must not duplicate rows, got %d", stores.progress.Len())
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("retry changed the record:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestSubmitQuizUnknownQuiz(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SubmitQuiz(context.Background(), 1, 999, map[string]string{})
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestResetAndDeleteAreEquivalent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	seed := func() {
		if _, err := svc.SubmitQuiz(ctx, 1, 3, map[string]string{"10": "a", "11": "b", "12": "c"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	seed()
	if err := svc.DeleteProgress(ctx, 1, 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetProgress(ctx, 1, 3); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Fatalf("expected no record after delete, got %v", err)
	}

	seed()
	if err := svc.ResetProgress(ctx, 1, 3); err != nil {
		t.Fatalf("reset: %v", err)
	}
	rec, err := svc.GetProgress(ctx, 1, 3)
	if err != nil {
		t.Fatalf("get after reset: %v", err)
	}
	if rec.Score != 0 || rec.IsCompleted || rec.CurrentQuestion != 0 || rec.ProgressPercentage != 0 {
		t.Fatalf("reset record not zeroed: %+v", rec)
	}
	answers, err := rec.Answers()
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("expected empty answers after reset, got %v", answers)
	}
}

func TestGetQuestionsStripsCorrectness(t *testing.T) {
	svc, _ := newTestService(t)

	questions, err := svc.GetQuestions(context.Background(), 3)
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	for _, q := range questions {
		for _, c := range q.Choices {
			if c.Correct {
				t.Fatalf("question %d leaks the correct choice", q.ID)
			}
		}
	}
}

// testStores bundles the in-memory fakes behind a service under test.
type testStores struct {
	content  *memory.StaticContentStore
	progress *memory.ProgressStore
	results  *memory.ResultStore
}

// newTestService wires a service over two courses:
//   - course 1: two sections with 10-question quizzes (1 and 2)
//   - course 2: zero sections
//
// plus quiz 3, a standalone 3-question quiz with identifiers 10, 11, 12 and
// correct labels a, b, c.
func newTestService(t *testing.T) (*app.ProgressService, testStores) {
	t.Helper()

	quizzes := map[int64]domain.Quiz{
		1: tenQuestionQuiz(1, 101, "a"),
		2: tenQuestionQuiz(2, 201, "b"),
		3: {
			ID:        3,
			SectionID: 3,
			Questions: []domain.Question{
				{ID: 10, Text: "q10", Choices: []domain.Choice{
					{ID: 1, Label: "a", Text: "right", Correct: true},
					{ID: 2, Label: "b", Text: "wrong"},
				}},
				{ID: 11, Text: "q11", Choices: []domain.Choice{
					{ID: 3, Label: "a", Text: "wrong"},
					{ID: 4, Label: "b", Text: "right", Correct: true},
				}},
				{ID: 12, Text: "q12", Choices: []domain.Choice{
					{ID: 5, Label: "b", Text: "wrong"},
					{ID: 6, Label: "c", Text: "right", Correct: true},
				}},
			},
		},
	}
	sections := map[int64][]domain.Section{
		1: {
			{ID: 1, Name: "Basic Operation", Number: 1, QuizID: 1},
			{ID: 2, Name: "Safe Operating Procedures", Number: 2, QuizID: 2},
		},
		2: {},
	}

	content := memory.NewStaticContentStore(quizzes, sections)
	content.Assign(1, 1, 77)

	stores := testStores{
		content:  content,
		progress: memory.NewProgressStore(),
		results:  memory.NewResultStore(),
	}
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := app.NewProgressService(
		memory.NewAnswerKeyCache(content, time.Minute),
		content,
		stores.progress,
		content,
		stores.results,
		app.DefaultPassPolicy(),
		app.WithClock(func() time.Time { return fixed }),
	)
	return svc, stores
}

// tenQuestionQuiz builds a quiz with ten questions whose identifiers start at
// base and whose correct label is the same for every question.
func tenQuestionQuiz(id, base int64, correct string) domain.Quiz {
	quiz := domain.Quiz{ID: id, SectionID: id}
	for i := int64(0); i < 10; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:   base + i,
			Text: "question",
			Choices: []domain.Choice{
				{ID: base*10 + i*2, Label: "a", Text: "first", Correct: correct == "a"},
				{ID: base*10 + i*2 + 1, Label: "b", Text: "second", Correct: correct == "b"},
			},
		})
	}
	return quiz
}
