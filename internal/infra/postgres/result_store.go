package postgres

import (
	"context"
	"fmt"
	"time"

	"eldt-progress-service/internal/domain"
	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results"`

	ID                   int64     `bun:"id,pk,autoincrement"`
	UserAssignedCourseID int64     `bun:"user_assigned_course_id"`
	TotalScore           int       `bun:"total_score"`
	TotalQuestions       int       `bun:"total_questions"`
	Percentage           int       `bun:"percentage"`
	Passed               bool      `bun:"passed"`
	SubmittedOn          time.Time `bun:"submitted_on"`
}

// ResultStore appends final course submissions. Rows are insert-only; there
// is no update path.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Append(ctx context.Context, res domain.CourseResult) (domain.CourseResult, error) {
	row := &resultRow{
		UserAssignedCourseID: res.UserAssignedCourseID,
		TotalScore:           res.TotalScore,
		TotalQuestions:       res.TotalQuestions,
		Percentage:           res.Percentage,
		Passed:               res.Passed,
		SubmittedOn:          res.SubmittedOn,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return domain.CourseResult{}, fmt.Errorf("append result: %w", err)
	}
	res.ID = row.ID
	return res, nil
}
