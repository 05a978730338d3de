package domain

import "math"

// ScoreAnswers counts the questions whose reconciled answer equals the
// correct label; both must be non-empty. Unanswered questions count as
// incorrect. Questions without a usable key are returned as inconsistent so
// the caller can log them; they never score credit.
func ScoreAnswers(key []KeyEntry, reconciled map[int64]string) (score int, inconsistent []int64) {
	for _, entry := range key {
		if entry.CorrectLabel == "" {
			inconsistent = append(inconsistent, entry.QuestionID)
			continue
		}
		if chosen, ok := reconciled[entry.QuestionID]; ok && chosen == entry.CorrectLabel {
			score++
		}
	}
	return score, inconsistent
}

// Percentage is round(score/total*100); a zero-question total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
