package postgres

import (
	"context"
	"errors"
	"fmt"

	"eldt-progress-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ContentStore reads course content (questions, choices, sections,
// assignments) from Postgres. This subsystem never writes content; it is
// mutated only by separate content-management tooling, so every query hits
// the live rows rather than a snapshot.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

// LoadAnswerKey returns the ordered correct-choice set for a quiz. Questions
// with zero or multiple correct choices come back with an empty label.
func (s *ContentStore) LoadAnswerKey(ctx context.Context, quizID int64) ([]domain.KeyEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT qq.id, COALESCE(qmc.choice_name, '')
		FROM quiz_questions qq
		LEFT JOIN quiz_multiple_choices qmc
			ON qmc.question_id = qq.id AND qmc.is_correct AND qmc.active
		WHERE qq.quiz_id = $1 AND qq.active
		ORDER BY qq.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	var key []domain.KeyEntry
	seen := make(map[int64]int)
	for rows.Next() {
		var questionID int64
		var label string
		if err := rows.Scan(&questionID, &label); err != nil {
			return nil, fmt.Errorf("scan answer key: %w", err)
		}
		seen[questionID]++
		if seen[questionID] > 1 {
			// several correct choices; blank the label so scoring gives no credit
			key[len(key)-1].CorrectLabel = ""
			continue
		}
		key = append(key, domain.KeyEntry{QuestionID: questionID, CorrectLabel: label})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read answer key: %w", err)
	}

	if len(key) == 0 {
		return key, s.checkQuizExists(ctx, quizID)
	}
	return key, nil
}

// GetQuestionsWithChoices returns a quiz's questions with their choices,
// ordered ascending by identifier.
func (s *ContentStore) GetQuestionsWithChoices(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT qq.id, qq.question_name,
		       COALESCE(qmc.id, 0), COALESCE(qmc.choice_name, ''),
		       COALESCE(qmc.choice_description, ''), COALESCE(qmc.is_correct, false)
		FROM quiz_questions qq
		LEFT JOIN quiz_multiple_choices qmc
			ON qmc.question_id = qq.id AND qmc.active
		WHERE qq.quiz_id = $1 AND qq.active
		ORDER BY qq.id, qmc.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			questionID int64
			text       string
			choice     domain.Choice
		)
		if err := rows.Scan(&questionID, &text, &choice.ID, &choice.Label, &choice.Text, &choice.Correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(questions) == 0 || questions[len(questions)-1].ID != questionID {
			questions = append(questions, domain.Question{ID: questionID, Text: text})
		}
		if choice.ID != 0 {
			last := &questions[len(questions)-1]
			last.Choices = append(last.Choices, choice)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	if len(questions) == 0 {
		return questions, s.checkQuizExists(ctx, quizID)
	}
	return questions, nil
}

// ListActiveSections returns a course's active sections with their active
// quiz, ordered by section number.
func (s *ContentStore) ListActiveSections(ctx context.Context, courseID int64) ([]domain.Section, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cs.id, cs.section_name, cs.section_number, COALESCE(q.id, 0)
		FROM course_sections cs
		LEFT JOIN quizzes q ON q.section_id = cs.id AND q.active
		WHERE cs.course_id = $1 AND cs.active
		ORDER BY cs.section_number`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []domain.Section
	for rows.Next() {
		var sec domain.Section
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Number, &sec.QuizID); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sections: %w", err)
	}

	if len(sections) == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1 AND active)`, courseID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check course: %w", err)
		}
		if !exists {
			return nil, domain.ErrCourseNotFound
		}
	}
	return sections, nil
}

// GetAssignment resolves the user's active assignment row for a course.
func (s *ContentStore) GetAssignment(ctx context.Context, userID, courseID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM user_assigned_courses
		WHERE user_id = $1 AND course_id = $2 AND active`, userID, courseID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotAssigned
	}
	if err != nil {
		return 0, fmt.Errorf("get assignment: %w", err)
	}
	return id, nil
}

func (s *ContentStore) checkQuizExists(ctx context.Context, quizID int64) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1 AND active)`, quizID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check quiz: %w", err)
	}
	if !exists {
		return domain.ErrQuizNotFound
	}
	return nil
}
