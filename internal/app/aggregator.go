package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"eldt-progress-service/internal/domain"
)

// CourseSummary folds every active section of a course into one completion
// and pass/fail view. Section scores are recomputed from the stored answer
// maps against the live answer key on every call; the stored score column is
// never trusted, so drift between the two self-heals on read.
func (s *ProgressService) CourseSummary(ctx context.Context, userID, courseID int64) (domain.CourseSummary, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	sections, err := s.courses.ListActiveSections(ctx, courseID)
	if err != nil {
		return domain.CourseSummary{}, fmt.Errorf("list sections: %w", err)
	}

	summary := domain.CourseSummary{
		CourseID:      courseID,
		TotalSections: len(sections),
		Sections:      make([]domain.SectionResult, 0, len(sections)),
	}
	for _, sec := range sections {
		res, err := s.sectionResult(ctx, userID, sec)
		if err != nil {
			return domain.CourseSummary{}, err
		}
		summary.Sections = append(summary.Sections, res)
		summary.TotalScore += res.Score
		summary.TotalQuestions += res.TotalQuestions
		if res.Completed {
			summary.SectionsCompleted++
		}
	}

	summary.OverallPercentage = domain.Percentage(summary.TotalScore, summary.TotalQuestions)
	summary.SectionsProgressPercentage = domain.Percentage(summary.SectionsCompleted, summary.TotalSections)
	summary.Passed = summary.TotalQuestions > 0 && summary.OverallPercentage >= s.policy.CoursePercent
	return summary, nil
}

// SubmitCourse records the final course submission: it verifies the user's
// assignment, computes the aggregate, and appends an immutable result row.
func (s *ProgressService) SubmitCourse(ctx context.Context, userID, courseID int64) (domain.CourseSummary, domain.CourseResult, error) {
	assignmentID, err := s.courses.GetAssignment(ctx, userID, courseID)
	if err != nil {
		return domain.CourseSummary{}, domain.CourseResult{}, err
	}

	summary, err := s.CourseSummary(ctx, userID, courseID)
	if err != nil {
		return domain.CourseSummary{}, domain.CourseResult{}, err
	}

	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	result, err := s.results.Append(ctx, domain.CourseResult{
		UserAssignedCourseID: assignmentID,
		TotalScore:           summary.TotalScore,
		TotalQuestions:       summary.TotalQuestions,
		Percentage:           summary.OverallPercentage,
		Passed:               summary.Passed,
		SubmittedOn:          s.now().UTC(),
	})
	if err != nil {
		return domain.CourseSummary{}, domain.CourseResult{}, fmt.Errorf("append result: %w", err)
	}
	return summary, result, nil
}

// sectionResult recomputes one section's score. Recompute failures (missing
// quiz, unparseable stored answers) degrade the section to zero rather than
// failing the whole aggregate; store failures propagate.
func (s *ProgressService) sectionResult(ctx context.Context, userID int64, sec domain.Section) (domain.SectionResult, error) {
	res := domain.SectionResult{
		SectionID: sec.ID,
		Name:      sec.Name,
		Number:    sec.Number,
		QuizID:    sec.QuizID,
	}

	key, err := s.keys.GetAnswerKey(ctx, sec.QuizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		log.Printf("section %d: quiz %d has no answer key, counting as zero: %v", sec.ID, sec.QuizID, err)
		return res, nil
	}
	if err != nil {
		return domain.SectionResult{}, fmt.Errorf("answer key for quiz %d: %w", sec.QuizID, err)
	}
	res.TotalQuestions = len(key)

	rec, err := s.progress.Get(ctx, userID, sec.QuizID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return res, nil
	}
	if err != nil {
		return domain.SectionResult{}, fmt.Errorf("progress for quiz %d: %w", sec.QuizID, err)
	}
	res.Completed = rec.IsCompleted

	answers, err := rec.Answers()
	if err != nil {
		log.Printf("user %d quiz %d: %v, counting section as zero", userID, sec.QuizID, err)
		return res, nil
	}

	score, inconsistent := domain.ScoreAnswers(key, domain.ReconcileAnswers(key, answers))
	if len(inconsistent) > 0 {
		log.Printf("quiz %d: questions %v have no single correct choice, scoring no credit", sec.QuizID, inconsistent)
	}
	res.Score = score
	res.Percentage = domain.Percentage(score, res.TotalQuestions)
	return res, nil
}
