package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType identifies how a question is answered and graded
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionFillBlank      QuestionType = "fill_blank"
)

// Difficulty bands questions for adaptive selection
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// AnswerOption is one selectable choice on a multiple-choice question
type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a persisted question-bank entry
type Question struct {
	ID            uuid.UUID
	Text          string
	Type          QuestionType
	Subject       string
	Difficulty    Difficulty
	Options       []AnswerOption
	CorrectAnswer string
	Explanation   string
	Hints         []string
	Tags          []string
	Points        int
	CreatedBy     uuid.UUID
	TimesAnswered int
	TimesCorrect  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CheckAnswer grades a submitted answer against the question.
// Multiple choice compares option ids exactly; everything else compares
// trimmed, case-insensitive text.
func (q *Question) CheckAnswer(answer string) bool {
	if q.Type == QuestionMultipleChoice {
		return answer == q.CorrectAnswer
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}

// QuestionFilter narrows question listings
type QuestionFilter struct {
	Subject    string
	Difficulty Difficulty
	Type       QuestionType
	Limit      int
}
