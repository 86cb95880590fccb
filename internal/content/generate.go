package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/llm"
)

const (
	maxGeneratedQuestions     = 20
	defaultGeneratedQuestions = 5
	aiGeneratedTag            = "ai-generated"
)

// ChatModel produces completions for question generation
type ChatModel interface {
	ChatCompletion(ctx context.Context, model string, messages []llm.Message, opts llm.ChatOptions) *llm.ChatResult
}

// Generator drafts question-bank entries with an AI model and stores them
// for teacher review. Generated questions are tagged so they can be told
// apart from hand-written ones.
type Generator struct {
	chat   ChatModel
	repo   Repository
	cache  *CachedLister
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a question generator
func NewGenerator(chat ChatModel, repo Repository, cache *CachedLister, logger *slog.Logger) *Generator {
	return &Generator{
		chat:   chat,
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateInput tunes one generation run
type GenerateInput struct {
	Subject    string
	Difficulty domain.Difficulty
	Type       domain.QuestionType
	Count      int
	Model      string
	CreatedBy  uuid.UUID
}

const generateSystemPrompt = "You write quiz questions for an educational " +
	"platform. Reply with a JSON array only, no prose and no code fences."

// generatedQuestion is the shape the model is asked to emit
type generatedQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Tags          []string `json:"tags"`
}

// Generate asks the model for count questions and stores the valid ones.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) ([]domain.Question, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Difficulty == "" {
		in.Difficulty = domain.DifficultyIntermediate
	}
	if in.Type == "" {
		in.Type = domain.QuestionMultipleChoice
	}
	count := in.Count
	if count <= 0 {
		count = defaultGeneratedQuestions
	}
	if count > maxGeneratedQuestions {
		count = maxGeneratedQuestions
	}

	result := g.chat.ChatCompletion(ctx, in.Model, []llm.Message{
		{Role: llm.RoleUser, Content: buildGeneratePrompt(in.Subject, in.Difficulty, in.Type, count)},
	}, llm.ChatOptions{
		System:      generateSystemPrompt,
		Temperature: 0.7,
	})
	if result.Degraded {
		return nil, fmt.Errorf("question generation unavailable: %s", result.Response)
	}

	drafts, err := parseGeneratedQuestions(result.Response)
	if err != nil {
		g.logger.Warn("unparseable generation response",
			"subject", in.Subject,
			"model", result.Model,
			"error", err,
		)
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}

	now := g.now()
	questions := make([]domain.Question, 0, len(drafts))
	for _, d := range drafts {
		q, ok := g.buildQuestion(d, in, now)
		if !ok {
			continue
		}
		if err := g.repo.CreateQuestion(ctx, q); err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("model produced no usable questions")
	}
	g.cache.Invalidate()

	g.logger.Info("questions generated",
		"subject", in.Subject,
		"difficulty", in.Difficulty,
		"requested", count,
		"stored", len(questions),
		"model", result.Model,
	)
	return questions, nil
}

func buildGeneratePrompt(subject string, difficulty domain.Difficulty, qType domain.QuestionType, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d %s-difficulty %s questions about %s.\n", count, difficulty, qType, subject)
	b.WriteString("Each array element must have these fields:\n")
	b.WriteString(`"text", "correct_answer", "explanation", "tags"`)
	if qType == domain.QuestionMultipleChoice {
		b.WriteString(`, and "options" with exactly four answer texts; ` +
			`"correct_answer" must repeat one of them verbatim`)
	}
	b.WriteString(".")
	return b.String()
}

// parseGeneratedQuestions decodes the model's reply, tolerating the code
// fences models add despite instructions.
func parseGeneratedQuestions(raw string) ([]generatedQuestion, error) {
	raw = strings.TrimSpace(raw)
	if after, found := strings.CutPrefix(raw, "```json"); found {
		raw = after
	} else if after, found := strings.CutPrefix(raw, "```"); found {
		raw = after
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")

	var drafts []generatedQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

// buildQuestion validates one draft and shapes it for the question bank.
// Drafts the model got wrong are skipped rather than failing the run.
func (g *Generator) buildQuestion(d generatedQuestion, in GenerateInput, now time.Time) (*domain.Question, bool) {
	if strings.TrimSpace(d.Text) == "" || strings.TrimSpace(d.CorrectAnswer) == "" {
		return nil, false
	}

	q := &domain.Question{
		ID:            uuid.New(),
		Text:          strings.TrimSpace(d.Text),
		Type:          in.Type,
		Subject:       in.Subject,
		Difficulty:    in.Difficulty,
		CorrectAnswer: strings.TrimSpace(d.CorrectAnswer),
		Explanation:   strings.TrimSpace(d.Explanation),
		Tags:          append(d.Tags, aiGeneratedTag),
		Points:        defaultQuestionPoints,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if in.Type == domain.QuestionMultipleChoice {
		if len(d.Options) < 2 {
			return nil, false
		}
		correctID := ""
		for i, text := range d.Options {
			id := string(rune('a' + i))
			q.Options = append(q.Options, domain.AnswerOption{ID: id, Text: text})
			if strings.EqualFold(strings.TrimSpace(text), q.CorrectAnswer) {
				correctID = id
			}
		}
		if correctID == "" {
			return nil, false
		}
		q.CorrectAnswer = correctID
	}

	return q, true
}
