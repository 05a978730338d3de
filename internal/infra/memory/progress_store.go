package memory

import (
	"context"
	"sync"

	"eldt-progress-service/internal/domain"
)

type progressKey struct {
	userID int64
	quizID int64
}

// ProgressStore is an in-memory implementation of app.ProgressRepository.
// Writes are last-write-wins under the lock, matching the unique-key upsert
// the Postgres store performs.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[progressKey]domain.ProgressRecord
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records: make(map[progressKey]domain.ProgressRecord),
	}
}

func (s *ProgressStore) Get(_ context.Context, userID, quizID int64) (domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[progressKey{userID, quizID}]
	if !ok {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	return rec, nil
}

func (s *ProgressStore) Upsert(_ context.Context, rec domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[progressKey{rec.UserID, rec.QuizID}] = rec
	return nil
}

func (s *ProgressStore) Delete(_ context.Context, userID, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, progressKey{userID, quizID})
	return nil
}

func (s *ProgressStore) List(_ context.Context) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.ProgressRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	return records, nil
}

// Len reports the number of stored records; tests use it to prove upserts
// never duplicate rows.
func (s *ProgressStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
