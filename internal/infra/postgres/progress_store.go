package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eldt-progress-service/internal/domain"
	"github.com/uptrace/bun"
)

type progressRow struct {
	bun.BaseModel `bun:"table:user_quiz_progress_tracker"`

	ID                 int64           `bun:"id,pk,autoincrement"`
	UserID             int64           `bun:"user_id"`
	QuizID             int64           `bun:"quiz_id"`
	CurrentQuestion    int             `bun:"current_question"`
	TotalQuestions     int             `bun:"total_questions"`
	ProgressPercentage int             `bun:"progress_percentage"`
	UserAnswers        json.RawMessage `bun:"user_answers,type:jsonb"`
	IsCompleted        bool            `bun:"is_completed"`
	Score              int             `bun:"score"`
	ModifiedOn         time.Time       `bun:"modified_on"`
}

// ProgressStore persists progress records in Postgres. Upsert is a single
// INSERT ... ON CONFLICT statement on the (user_id, quiz_id) unique key, so
// concurrent writers cannot create duplicate rows and the later write wins.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) Get(ctx context.Context, userID, quizID int64) (domain.ProgressRecord, error) {
	row := new(progressRow)
	err := s.db.NewSelect().
		Model(row).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("get progress: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ProgressStore) Upsert(ctx context.Context, rec domain.ProgressRecord) error {
	row := fromDomain(rec)
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, quiz_id) DO UPDATE").
		Set("current_question = EXCLUDED.current_question").
		Set("total_questions = EXCLUDED.total_questions").
		Set("progress_percentage = EXCLUDED.progress_percentage").
		Set("user_answers = EXCLUDED.user_answers").
		Set("is_completed = EXCLUDED.is_completed").
		Set("score = EXCLUDED.score").
		Set("modified_on = EXCLUDED.modified_on").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Delete(ctx context.Context, userID, quizID int64) error {
	_, err := s.db.NewDelete().
		Model((*progressRow)(nil)).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	var rows []progressRow
	if err := s.db.NewSelect().Model(&rows).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	records := make([]domain.ProgressRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func (r *progressRow) toDomain() domain.ProgressRecord {
	return domain.ProgressRecord{
		UserID:             r.UserID,
		QuizID:             r.QuizID,
		CurrentQuestion:    r.CurrentQuestion,
		TotalQuestions:     r.TotalQuestions,
		ProgressPercentage: r.ProgressPercentage,
		RawAnswers:         r.UserAnswers,
		IsCompleted:        r.IsCompleted,
		Score:              r.Score,
		ModifiedOn:         r.ModifiedOn,
	}
}

func fromDomain(rec domain.ProgressRecord) *progressRow {
	answers := rec.RawAnswers
	if len(answers) == 0 {
		answers = json.RawMessage(`{}`)
	}
	return &progressRow{
		UserID:             rec.UserID,
		QuizID:             rec.QuizID,
		CurrentQuestion:    rec.CurrentQuestion,
		TotalQuestions:     rec.TotalQuestions,
		ProgressPercentage: rec.ProgressPercentage,
		UserAnswers:        answers,
		IsCompleted:        rec.IsCompleted,
		Score:              rec.Score,
		ModifiedOn:         rec.ModifiedOn,
	}
}
