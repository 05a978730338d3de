package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_init.sql
var initSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(initSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS quiz_results;
				DROP TABLE IF EXISTS user_quiz_progress_tracker;
				DROP TABLE IF EXISTS user_assigned_courses;
				DROP TABLE IF EXISTS quiz_multiple_choices;
				DROP TABLE IF EXISTS quiz_questions;
				DROP TABLE IF EXISTS quizzes;
				DROP TABLE IF EXISTS course_sections;
				DROP TABLE IF EXISTS courses`)
			return err
		},
	)
}
