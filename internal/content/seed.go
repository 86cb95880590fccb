package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/idfs-labs/starguide/internal/domain"
)

// seedFile is the on-disk question bank format
type seedFile struct {
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Text          string       `yaml:"text"`
	Type          string       `yaml:"type"`
	Subject       string       `yaml:"subject"`
	Difficulty    string       `yaml:"difficulty"`
	Options       []seedOption `yaml:"options"`
	CorrectAnswer string       `yaml:"correct_answer"`
	Explanation   string       `yaml:"explanation"`
	Hints         []string     `yaml:"hints"`
	Tags          []string     `yaml:"tags"`
	Points        int          `yaml:"points"`
}

type seedOption struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// SeedFromFile loads a YAML question bank and inserts every entry.
// Returns the number of questions created.
func SeedFromFile(ctx context.Context, repo Repository, path string, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	created := 0
	for i, sq := range file.Questions {
		q, err := sq.toDomain()
		if err != nil {
			return created, fmt.Errorf("question %d: %w", i, err)
		}
		if err := repo.CreateQuestion(ctx, q); err != nil {
			return created, fmt.Errorf("question %d: %w", i, err)
		}
		created++
	}

	logger.Info("question bank seeded", "path", path, "created", created)
	return created, nil
}

func (sq seedQuestion) toDomain() (*domain.Question, error) {
	if sq.Text == "" || sq.Subject == "" || sq.CorrectAnswer == "" {
		return nil, fmt.Errorf("missing required fields")
	}

	qtype := domain.QuestionType(sq.Type)
	switch qtype {
	case domain.QuestionMultipleChoice, domain.QuestionTrueFalse,
		domain.QuestionShortAnswer, domain.QuestionFillBlank:
	case "":
		qtype = domain.QuestionMultipleChoice
	default:
		return nil, fmt.Errorf("unknown question type %q", sq.Type)
	}

	difficulty := domain.Difficulty(sq.Difficulty)
	switch difficulty {
	case domain.DifficultyBeginner, domain.DifficultyIntermediate,
		domain.DifficultyAdvanced, domain.DifficultyExpert:
	case "":
		difficulty = domain.DifficultyBeginner
	default:
		return nil, fmt.Errorf("unknown difficulty %q", sq.Difficulty)
	}

	options := make([]domain.AnswerOption, 0, len(sq.Options))
	for _, o := range sq.Options {
		options = append(options, domain.AnswerOption{ID: o.ID, Text: o.Text})
	}
	if qtype == domain.QuestionMultipleChoice && len(options) < 2 {
		return nil, fmt.Errorf("multiple choice needs at least 2 options")
	}

	points := sq.Points
	if points <= 0 {
		points = defaultQuestionPoints
	}

	now := time.Now()
	return &domain.Question{
		ID:            uuid.New(),
		Text:          sq.Text,
		Type:          qtype,
		Subject:       sq.Subject,
		Difficulty:    difficulty,
		Options:       options,
		CorrectAnswer: sq.CorrectAnswer,
		Explanation:   sq.Explanation,
		Hints:         sq.Hints,
		Tags:          sq.Tags,
		Points:        points,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
