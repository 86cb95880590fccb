package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/content"
	"github.com/idfs-labs/starguide/internal/domain"
)

// ContentHandler handles question bank and assessment endpoints
type ContentHandler struct {
	contentService *content.Service
	generator      *content.Generator
}

// NewContentHandler creates a new content handler. generator may be nil
// when no AI provider is configured.
func NewContentHandler(contentService *content.Service, generator *content.Generator) *ContentHandler {
	return &ContentHandler{contentService: contentService, generator: generator}
}

// QuestionRequest is the request body for creating a question
type QuestionRequest struct {
	Text          string                `json:"text"`
	Type          string                `json:"type"`
	Subject       string                `json:"subject"`
	Difficulty    string                `json:"difficulty"`
	Options       []domain.AnswerOption `json:"options,omitempty"`
	CorrectAnswer string                `json:"correct_answer"`
	Explanation   string                `json:"explanation,omitempty"`
	Hints         []string              `json:"hints,omitempty"`
	Tags          []string              `json:"tags,omitempty"`
	Points        int                   `json:"points,omitempty"`
}

// QuestionResponse is the question shape returned to clients. The correct
// answer and explanation are only included for the question's owner or a
// moderator.
type QuestionResponse struct {
	ID            string                `json:"id"`
	Text          string                `json:"text"`
	Type          string                `json:"type"`
	Subject       string                `json:"subject"`
	Difficulty    string                `json:"difficulty"`
	Options       []domain.AnswerOption `json:"options,omitempty"`
	CorrectAnswer string                `json:"correct_answer,omitempty"`
	Explanation   string                `json:"explanation,omitempty"`
	Hints         []string              `json:"hints,omitempty"`
	Tags          []string              `json:"tags,omitempty"`
	Points        int                   `json:"points"`
	TimesAnswered int                   `json:"times_answered"`
	TimesCorrect  int                   `json:"times_correct"`
}

func toQuestionResponse(q *domain.Question, viewer *domain.User) QuestionResponse {
	resp := QuestionResponse{
		ID:            q.ID.String(),
		Text:          q.Text,
		Type:          string(q.Type),
		Subject:       q.Subject,
		Difficulty:    string(q.Difficulty),
		Options:       q.Options,
		Hints:         q.Hints,
		Tags:          q.Tags,
		Points:        q.Points,
		TimesAnswered: q.TimesAnswered,
		TimesCorrect:  q.TimesCorrect,
	}
	if viewer != nil && (viewer.CanModerate() || viewer.ID == q.CreatedBy) {
		resp.CorrectAnswer = q.CorrectAnswer
		resp.Explanation = q.Explanation
	}
	return resp
}

// CreateQuestion adds a question to the bank. Restricted to moderators.
func (h *ContentHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}
	if !user.CanModerate() {
		Forbidden(w, r, "only teachers may create questions")
		return
	}

	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	q, err := h.contentService.CreateQuestion(r.Context(), content.CreateQuestionInput{
		Text:          req.Text,
		Type:          domain.QuestionType(req.Type),
		Subject:       req.Subject,
		Difficulty:    domain.Difficulty(req.Difficulty),
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Hints:         req.Hints,
		Tags:          req.Tags,
		Points:        req.Points,
		CreatedBy:     user.ID,
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toQuestionResponse(q, user))
}

// GenerateQuestionsRequest is the request body for AI question generation
type GenerateQuestionsRequest struct {
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty,omitempty"`
	Type       string `json:"type,omitempty"`
	Count      int    `json:"count,omitempty"`
	Model      string `json:"model,omitempty"`
}

// GenerateQuestions drafts new bank entries with an AI model. Restricted
// to moderators, same as hand-written creation.
func (h *ContentHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}
	if !user.CanModerate() {
		Forbidden(w, r, "only teachers may generate questions")
		return
	}
	if h.generator == nil {
		WriteError(w, r, http.StatusServiceUnavailable,
			NewAPIError("GENERATION_UNAVAILABLE", "no AI provider configured"))
		return
	}

	var req GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	questions, err := h.generator.Generate(r.Context(), content.GenerateInput{
		Subject:    req.Subject,
		Difficulty: domain.Difficulty(req.Difficulty),
		Type:       domain.QuestionType(req.Type),
		Count:      req.Count,
		Model:      req.Model,
		CreatedBy:  user.ID,
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]QuestionResponse, 0, len(questions))
	for i := range questions {
		out = append(out, toQuestionResponse(&questions[i], user))
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"questions": out,
		"count":     len(out),
	})
}

// GetQuestion returns a single question
func (h *ContentHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid question id")
		return
	}

	q, err := h.contentService.GetQuestion(r.Context(), id)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toQuestionResponse(q, user))
}

// ListQuestions returns questions matching the query filters
func (h *ContentHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	questions, err := h.contentService.ListQuestions(r.Context(), domain.QuestionFilter{
		Subject:    r.URL.Query().Get("subject"),
		Difficulty: domain.Difficulty(r.URL.Query().Get("difficulty")),
		Type:       domain.QuestionType(r.URL.Query().Get("type")),
		Limit:      limit,
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]QuestionResponse, 0, len(questions))
	for i := range questions {
		out = append(out, toQuestionResponse(&questions[i], user))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"questions": out,
		"count":     len(out),
	})
}

// AssessmentRequest is the request body for creating an assessment
type AssessmentRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Subject          string   `json:"subject"`
	Difficulty       string   `json:"difficulty"`
	QuestionIDs      []string `json:"question_ids"`
	TimeLimitMinutes int      `json:"time_limit_minutes,omitempty"`
}

// AssessmentResponse is the assessment shape returned to clients
type AssessmentResponse struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Subject          string   `json:"subject"`
	Difficulty       string   `json:"difficulty"`
	QuestionIDs      []string `json:"question_ids"`
	TimeLimitMinutes int      `json:"time_limit_minutes"`
	IsActive         bool     `json:"is_active"`
}

func toAssessmentResponse(a *domain.Assessment) AssessmentResponse {
	ids := make([]string, 0, len(a.QuestionIDs))
	for _, id := range a.QuestionIDs {
		ids = append(ids, id.String())
	}
	return AssessmentResponse{
		ID:               a.ID.String(),
		Title:            a.Title,
		Description:      a.Description,
		Subject:          a.Subject,
		Difficulty:       string(a.Difficulty),
		QuestionIDs:      ids,
		TimeLimitMinutes: a.TimeLimitMinutes,
		IsActive:         a.IsActive,
	}
}

// CreateAssessment builds an assessment from existing questions.
// Restricted to moderators.
func (h *ContentHandler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}
	if !user.CanModerate() {
		Forbidden(w, r, "only teachers may create assessments")
		return
	}

	var req AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	questionIDs := make([]uuid.UUID, 0, len(req.QuestionIDs))
	for _, raw := range req.QuestionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, r, "invalid question id: "+raw)
			return
		}
		questionIDs = append(questionIDs, id)
	}

	a, err := h.contentService.CreateAssessment(r.Context(), content.CreateAssessmentInput{
		Title:            req.Title,
		Description:      req.Description,
		Subject:          req.Subject,
		Difficulty:       domain.Difficulty(req.Difficulty),
		QuestionIDs:      questionIDs,
		TimeLimitMinutes: req.TimeLimitMinutes,
		CreatedBy:        user.ID,
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toAssessmentResponse(a))
}

// GetAssessment returns a single assessment
func (h *ContentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid assessment id")
		return
	}

	a, err := h.contentService.GetAssessment(r.Context(), id)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toAssessmentResponse(a))
}

// ListAssessments returns active assessments
func (h *ContentHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	assessments, err := h.contentService.ListAssessments(r.Context(), r.URL.Query().Get("subject"), limit)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]AssessmentResponse, 0, len(assessments))
	for i := range assessments {
		out = append(out, toAssessmentResponse(&assessments[i]))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"assessments": out,
		"count":       len(out),
	})
}

// SubmitRequest is the request body for an assessment submission
type SubmitRequest struct {
	Answers       []content.QuestionAnswer `json:"answers"`
	TimeTakenSecs int                      `json:"time_taken_seconds,omitempty"`
}

// ResultResponse is a graded submission
type ResultResponse struct {
	ID             string  `json:"id"`
	AssessmentID   string  `json:"assessment_id"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	Percentage     float64 `json:"percentage"`
	TimeTakenSecs  int     `json:"time_taken_seconds"`
	XPEarned       int     `json:"xp_earned"`
}

func toResultResponse(res *domain.AssessmentResult) ResultResponse {
	return ResultResponse{
		ID:             res.ID.String(),
		AssessmentID:   res.AssessmentID.String(),
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		CorrectAnswers: res.CorrectAnswers,
		Percentage:     res.Percentage(),
		TimeTakenSecs:  res.TimeTakenSecs,
		XPEarned:       res.Score * 2,
	}
}

// SubmitAssessment grades a submission and returns the result
func (h *ContentHandler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid assessment id")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	result, err := h.contentService.SubmitAssessment(r.Context(), id, user.ID, req.Answers, req.TimeTakenSecs)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toResultResponse(result))
}

// ListResults returns the authenticated user's recent results
func (h *ContentHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.contentService.ListResults(r.Context(), user.ID, limit)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]ResultResponse, 0, len(results))
	for i := range results {
		out = append(out, toResultResponse(&results[i]))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"results": out,
		"count":   len(out),
	})
}
