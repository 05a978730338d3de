package memory

import (
	"context"
	"sort"

	"eldt-progress-service/internal/domain"
)

// AnswerKeyLoader fetches a quiz's answer key from a backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, quizID int64) ([]domain.KeyEntry, error)
}

// StaticContentStore serves course content from in-memory maps (useful for
// tests and for running without Postgres).
type StaticContentStore struct {
	quizzes     map[int64]domain.Quiz
	sections    map[int64][]domain.Section
	assignments map[int64]map[int64]int64
}

func NewStaticContentStore(quizzes map[int64]domain.Quiz, sections map[int64][]domain.Section) *StaticContentStore {
	return &StaticContentStore{
		quizzes:     quizzes,
		sections:    sections,
		assignments: make(map[int64]map[int64]int64),
	}
}

// Assign records a (user, course) assignment with the given row ID.
func (s *StaticContentStore) Assign(userID, courseID, assignmentID int64) {
	if s.assignments[userID] == nil {
		s.assignments[userID] = make(map[int64]int64)
	}
	s.assignments[userID][courseID] = assignmentID
}

func (s *StaticContentStore) LoadAnswerKey(_ context.Context, quizID int64) ([]domain.KeyEntry, error) {
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return domain.AnswerKeyOf(sortedByID(quiz)), nil
}

func (s *StaticContentStore) GetQuestionsWithChoices(_ context.Context, quizID int64) ([]domain.Question, error) {
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return sortedByID(quiz).Questions, nil
}

func (s *StaticContentStore) ListActiveSections(_ context.Context, courseID int64) ([]domain.Section, error) {
	sections, ok := s.sections[courseID]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	ordered := make([]domain.Section, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
	return ordered, nil
}

func (s *StaticContentStore) GetAssignment(_ context.Context, userID, courseID int64) (int64, error) {
	if id, ok := s.assignments[userID][courseID]; ok {
		return id, nil
	}
	return 0, domain.ErrNotAssigned
}

// sortedByID returns a copy of the quiz with questions in ascending ID
// order, the order every positional lookup depends on.
func sortedByID(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	quiz.Questions = questions
	return quiz
}
