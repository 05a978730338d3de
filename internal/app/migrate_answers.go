package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"eldt-progress-service/internal/domain"
)

// LegacyAnswerMigrator rewrites progress records whose answer maps are keyed
// by zero-based positions into the canonical identifier-keyed form. It is a
// one-shot batch: idempotent (a canonical map reconciles to itself) and
// restartable after a partial run.
type LegacyAnswerMigrator struct {
	progress  ProgressRepository
	keys      AnswerKeyRepository
	threshold int
	now       func() time.Time
}

// MigrationStats summarizes one batch run.
type MigrationStats struct {
	Scanned  int
	Migrated int
	Skipped  int
	Failed   int
}

func NewLegacyAnswerMigrator(progress ProgressRepository, keys AnswerKeyRepository, threshold int) *LegacyAnswerMigrator {
	if threshold <= 0 {
		threshold = domain.DefaultLegacyIndexThreshold
	}
	return &LegacyAnswerMigrator{
		progress:  progress,
		keys:      keys,
		threshold: threshold,
		now:       time.Now,
	}
}

// Run scans every progress record and rewrites the ones matching the legacy
// heuristic. Per-record failures are logged and counted but do not abort the
// batch; only a failed scan does.
func (m *LegacyAnswerMigrator) Run(ctx context.Context) (MigrationStats, error) {
	stats := MigrationStats{}

	records, err := m.progress.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list progress records: %w", err)
	}

	for _, rec := range records {
		stats.Scanned++

		answers, err := rec.Answers()
		if err != nil {
			log.Printf("migrate answers: user %d quiz %d: %v, skipping", rec.UserID, rec.QuizID, err)
			stats.Failed++
			continue
		}
		if !domain.IsLegacyAnswerMap(answers, m.threshold) {
			stats.Skipped++
			continue
		}

		key, err := m.keys.GetAnswerKey(ctx, rec.QuizID)
		if errors.Is(err, domain.ErrQuizNotFound) {
			log.Printf("migrate answers: quiz %d no longer resolves, skipping user %d", rec.QuizID, rec.UserID)
			stats.Skipped++
			continue
		}
		if err != nil {
			log.Printf("migrate answers: answer key for quiz %d: %v", rec.QuizID, err)
			stats.Failed++
			continue
		}

		updated, err := rewriteRecord(rec, key, answers, m.now().UTC())
		if err != nil {
			log.Printf("migrate answers: user %d quiz %d: %v", rec.UserID, rec.QuizID, err)
			stats.Failed++
			continue
		}
		if err := m.progress.Upsert(ctx, updated); err != nil {
			log.Printf("migrate answers: rewrite user %d quiz %d: %v", rec.UserID, rec.QuizID, err)
			stats.Failed++
			continue
		}
		stats.Migrated++
	}

	log.Printf("legacy answer migration: scanned=%d migrated=%d skipped=%d failed=%d",
		stats.Scanned, stats.Migrated, stats.Skipped, stats.Failed)
	return stats, nil
}

// rewriteRecord re-keys the answer map and refreshes the score snapshot
// against the live key. All other fields are preserved.
func rewriteRecord(rec domain.ProgressRecord, key []domain.KeyEntry, answers map[string]string, now time.Time) (domain.ProgressRecord, error) {
	canonical := domain.CanonicalAnswerMap(key, answers)
	raw, err := json.Marshal(canonical)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("encode answers: %w", err)
	}

	score, _ := domain.ScoreAnswers(key, domain.ReconcileAnswers(key, answers))
	rec.RawAnswers = raw
	rec.Score = score
	rec.TotalQuestions = len(key)
	rec.ModifiedOn = now
	return rec, nil
}
