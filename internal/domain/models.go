package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Choice is one selectable option for a question. Label is the short key
// students submit ("a", "b", ...); at most one choice per question carries
// Correct = true.
type Choice struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question models an MCQ question. Its ordinal position within a quiz is
// derived from ascending ID order and never stored.
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// Quiz is the question set belonging to one course section. Questions are
// ordered ascending by ID.
type Quiz struct {
	ID        int64      `json:"id"`
	SectionID int64      `json:"sectionId"`
	Questions []Question `json:"questions"`
}

// KeyEntry pairs a question with its single correct choice label. An empty
// label marks a question whose key is inconsistent (zero or multiple correct
// choices); such questions never score credit.
type KeyEntry struct {
	QuestionID   int64
	CorrectLabel string
}

// Section is one unit of a course, ordered for display by Number.
type Section struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
	QuizID int64  `json:"quizId"`
}

// ProgressRecord is the resumable attempt state for one (user, quiz) pair.
// RawAnswers keeps the stored JSON untouched so a malformed payload survives
// loading and degrades at parse time instead of failing the read.
type ProgressRecord struct {
	UserID             int64           `json:"userId"`
	QuizID             int64           `json:"quizId"`
	CurrentQuestion    int             `json:"currentQuestion"`
	TotalQuestions     int             `json:"totalQuestions"`
	ProgressPercentage int             `json:"progressPercentage"`
	RawAnswers         json.RawMessage `json:"userAnswers"`
	IsCompleted        bool            `json:"isCompleted"`
	Score              int             `json:"score"`
	ModifiedOn         time.Time       `json:"modifiedOn"`
}

// Answers parses the stored answer map. A missing or null payload yields an
// empty map; invalid JSON is an error the caller decides how to degrade.
func (r ProgressRecord) Answers() (map[string]string, error) {
	if len(r.RawAnswers) == 0 {
		return map[string]string{}, nil
	}
	var answers map[string]string
	if err := json.Unmarshal(r.RawAnswers, &answers); err != nil {
		return nil, fmt.Errorf("parse stored answers: %w", err)
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return answers, nil
}

// QuizResult is the outcome of submitting one quiz attempt.
type QuizResult struct {
	QuizID         int64 `json:"quizId"`
	Score          int   `json:"score"`
	TotalQuestions int   `json:"totalQuestions"`
	Percentage     int   `json:"percentage"`
	Passed         bool  `json:"passed"`
}

// SectionResult is one section's recomputed score inside a course summary.
type SectionResult struct {
	SectionID      int64  `json:"sectionId"`
	Name           string `json:"name"`
	Number         int    `json:"number"`
	QuizID         int64  `json:"quizId"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Percentage     int    `json:"percentage"`
	Completed      bool   `json:"completed"`
}

// CourseSummary folds all section scores of a course into one completion and
// pass/fail view.
type CourseSummary struct {
	CourseID                   int64           `json:"courseId"`
	TotalScore                 int             `json:"totalScore"`
	TotalQuestions             int             `json:"totalQuestions"`
	OverallPercentage          int             `json:"overallPercentage"`
	SectionsCompleted          int             `json:"sectionsCompleted"`
	TotalSections              int             `json:"totalSections"`
	SectionsProgressPercentage int             `json:"sectionsProgressPercentage"`
	Passed                     bool            `json:"passed"`
	Sections                   []SectionResult `json:"sections"`
}

// CourseResult is the immutable record of a final course submission, linked
// to the user's course assignment. Appended once, never updated.
type CourseResult struct {
	ID                   int64     `json:"id"`
	UserAssignedCourseID int64     `json:"userAssignedCourseId"`
	TotalScore           int       `json:"totalScore"`
	TotalQuestions       int       `json:"totalQuestions"`
	Percentage           int       `json:"percentage"`
	Passed               bool      `json:"passed"`
	SubmittedOn          time.Time `json:"submittedOn"`
}

// AnswerKeyOf derives the ordered answer key from a quiz's questions. A
// question with zero or several correct choices yields an empty label.
func AnswerKeyOf(quiz Quiz) []KeyEntry {
	key := make([]KeyEntry, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		label := ""
		correct := 0
		for _, c := range q.Choices {
			if c.Correct {
				correct++
				label = c.Label
			}
		}
		if correct != 1 {
			label = ""
		}
		key = append(key, KeyEntry{QuestionID: q.ID, CorrectLabel: label})
	}
	return key
}
