package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz or its question set could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrProgressNotFound is returned when no progress record exists for a (user, quiz) pair.
	ErrProgressNotFound = errors.New("progress record not found")
	// ErrCourseNotFound indicates the course or its sections could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrNotAssigned is returned when a user submits a course they are not assigned to.
	ErrNotAssigned = errors.New("user not assigned to course")
)
