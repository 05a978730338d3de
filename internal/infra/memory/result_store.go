package memory

import (
	"context"
	"sync"

	"eldt-progress-service/internal/domain"
)

// ResultStore is an in-memory, append-only implementation of
// app.ResultRepository.
type ResultStore struct {
	mu      sync.Mutex
	nextID  int64
	results []domain.CourseResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{nextID: 1}
}

func (s *ResultStore) Append(_ context.Context, res domain.CourseResult) (domain.CourseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res.ID = s.nextID
	s.nextID++
	s.results = append(s.results, res)
	return res, nil
}

// All returns a snapshot of appended results, oldest first.
func (s *ResultStore) All() []domain.CourseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CourseResult, len(s.results))
	copy(out, s.results)
	return out
}
