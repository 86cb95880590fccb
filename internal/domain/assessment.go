package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assessment groups questions into a gradeable set
type Assessment struct {
	ID               uuid.UUID
	Title            string
	Description      string
	Subject          string
	Difficulty       Difficulty
	QuestionIDs      []uuid.UUID
	TimeLimitMinutes int
	IsActive         bool
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AssessmentResult records one graded submission
type AssessmentResult struct {
	ID             uuid.UUID
	AssessmentID   uuid.UUID
	UserID         uuid.UUID
	Score          int
	TotalQuestions int
	CorrectAnswers int
	TimeTakenSecs  int
	SubmittedAt    time.Time
}

// Percentage returns the score as a 0-100 percentage.
func (r *AssessmentResult) Percentage() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.CorrectAnswers) / float64(r.TotalQuestions) * 100
}
