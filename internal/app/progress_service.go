package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"eldt-progress-service/internal/domain"
)

// AnswerKeyRepository loads the ordered correct-choice set for a quiz
// (from cache or backing store).
type AnswerKeyRepository interface {
	GetAnswerKey(ctx context.Context, quizID int64) ([]domain.KeyEntry, error)
}

// ContentRepository serves the question delivery read path.
type ContentRepository interface {
	GetQuestionsWithChoices(ctx context.Context, quizID int64) ([]domain.Question, error)
}

// ProgressRepository abstracts how progress records are stored (in-memory,
// Postgres, etc). Upsert must be atomic on the (user, quiz) unique key with
// last-write-wins semantics.
type ProgressRepository interface {
	Get(ctx context.Context, userID, quizID int64) (domain.ProgressRecord, error)
	Upsert(ctx context.Context, rec domain.ProgressRecord) error
	Delete(ctx context.Context, userID, quizID int64) error
	List(ctx context.Context) ([]domain.ProgressRecord, error)
}

// CourseRepository reads course structure and assignments.
type CourseRepository interface {
	ListActiveSections(ctx context.Context, courseID int64) ([]domain.Section, error)
	GetAssignment(ctx context.Context, userID, courseID int64) (int64, error)
}

// ResultRepository appends immutable final-submission records.
type ResultRepository interface {
	Append(ctx context.Context, res domain.CourseResult) (domain.CourseResult, error)
}

// PassPolicy carries the two passing thresholds. The source material used 70
// for a single quiz and 80 for a course; they stay separately configurable
// until product settles on one.
type PassPolicy struct {
	QuizPercent   int
	CoursePercent int
}

// DefaultPassPolicy mirrors the thresholds the course content references.
func DefaultPassPolicy() PassPolicy {
	return PassPolicy{QuizPercent: 70, CoursePercent: 80}
}

// ProgressService contains the quiz progress and scoring use cases.
type ProgressService struct {
	keys     AnswerKeyRepository
	content  ContentRepository
	progress ProgressRepository
	courses  CourseRepository
	results  ResultRepository
	policy   PassPolicy
	timeout  time.Duration
	now      func() time.Time
}

// Option customizes a ProgressService.
type Option func(*ProgressService)

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ProgressService) { s.now = now }
}

// WithStoreTimeout bounds every store-touching operation. Zero disables it.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *ProgressService) { s.timeout = d }
}

func NewProgressService(
	keys AnswerKeyRepository,
	content ContentRepository,
	progress ProgressRepository,
	courses CourseRepository,
	results ResultRepository,
	policy PassPolicy,
	opts ...Option,
) *ProgressService {
	s := &ProgressService{
		keys:     keys,
		content:  content,
		progress: progress,
		courses:  courses,
		results:  results,
		policy:   policy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProgressService) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetProgress returns the stored record for a (user, quiz) pair, or
// domain.ErrProgressNotFound when the user has not started the quiz.
func (s *ProgressService) GetProgress(ctx context.Context, userID, quizID int64) (domain.ProgressRecord, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	return s.progress.Get(ctx, userID, quizID)
}

// GetQuestions returns a quiz's questions with correctness flags stripped,
// for delivery to clients.
func (s *ProgressService) GetQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	questions, err := s.content.GetQuestionsWithChoices(ctx, quizID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		for j := range questions[i].Choices {
			questions[i].Choices[j].Correct = false
		}
	}
	return questions, nil
}

// SaveProgress upserts an in-flight attempt. Answers are reconciled to
// canonical keys and the score recomputed before persisting, so a save never
// stores a stale or legacy-keyed map. Calling it twice with the same input
// yields the same record.
func (s *ProgressService) SaveProgress(ctx context.Context, userID, quizID int64, currentQuestion int, answers map[string]string) (domain.ProgressRecord, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	key, err := s.keys.GetAnswerKey(ctx, quizID)
	if err != nil {
		return domain.ProgressRecord{}, err
	}

	total := len(key)
	if currentQuestion < 0 {
		currentQuestion = 0
	}
	if currentQuestion > total {
		currentQuestion = total
	}

	rec, err := s.buildRecord(userID, quizID, key, answers)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	rec.CurrentQuestion = currentQuestion
	rec.ProgressPercentage = domain.Percentage(currentQuestion, total)
	rec.IsCompleted = total > 0 && currentQuestion >= total

	if err := s.progress.Upsert(ctx, rec); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("save progress: %w", err)
	}
	return rec, nil
}

// SubmitQuiz is a specialized upsert: completion forced, progress at 100%,
// pointer at the last question, score recomputed from the final answer set in
// the same write. Retrying with the same answers produces the same record.
func (s *ProgressService) SubmitQuiz(ctx context.Context, userID, quizID int64, answers map[string]string) (domain.QuizResult, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	key, err := s.keys.GetAnswerKey(ctx, quizID)
	if err != nil {
		return domain.QuizResult{}, err
	}

	rec, err := s.buildRecord(userID, quizID, key, answers)
	if err != nil {
		return domain.QuizResult{}, err
	}
	rec.CurrentQuestion = rec.TotalQuestions
	rec.ProgressPercentage = 100
	rec.IsCompleted = true

	if err := s.progress.Upsert(ctx, rec); err != nil {
		return domain.QuizResult{}, fmt.Errorf("submit quiz: %w", err)
	}

	pct := domain.Percentage(rec.Score, rec.TotalQuestions)
	return domain.QuizResult{
		QuizID:         quizID,
		Score:          rec.Score,
		TotalQuestions: rec.TotalQuestions,
		Percentage:     pct,
		Passed:         pct >= s.policy.QuizPercent,
	}, nil
}

// ResetProgress rewrites every mutable field of the record to its initial
// state. The resulting visible state is indistinguishable from a fresh
// attempt, matching DeleteProgress followed by a first save.
func (s *ProgressService) ResetProgress(ctx context.Context, userID, quizID int64) error {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	rec := domain.ProgressRecord{
		UserID:     userID,
		QuizID:     quizID,
		RawAnswers: json.RawMessage(`{}`),
		ModifiedOn: s.now().UTC(),
	}
	if err := s.progress.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// DeleteProgress removes the record outright.
func (s *ProgressService) DeleteProgress(ctx context.Context, userID, quizID int64) error {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	if err := s.progress.Delete(ctx, userID, quizID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// buildRecord reconciles and scores a raw answer set into a record ready for
// upsert. Shared by save and submit so the two paths cannot diverge.
func (s *ProgressService) buildRecord(userID, quizID int64, key []domain.KeyEntry, answers map[string]string) (domain.ProgressRecord, error) {
	canonical := domain.CanonicalAnswerMap(key, answers)
	score, inconsistent := domain.ScoreAnswers(key, domain.ReconcileAnswers(key, answers))
	if len(inconsistent) > 0 {
		log.Printf("quiz %d: questions %v have no single correct choice, scoring no credit", quizID, inconsistent)
	}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("encode answers: %w", err)
	}
	return domain.ProgressRecord{
		UserID:         userID,
		QuizID:         quizID,
		TotalQuestions: len(key),
		RawAnswers:     raw,
		Score:          score,
		ModifiedOn:     s.now().UTC(),
	}, nil
}
