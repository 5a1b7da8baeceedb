package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"quizdeck-service/internal/domain"
	"quizdeck-service/internal/genai"
	"go.uber.org/zap"
)

// TextGenerator produces free-form question text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// DraftHandler authors quiz drafts from AI-generated questions. Only
// creator accounts may author; the resulting draft is visible to its
// creator alone until published.
type DraftHandler struct {
	sessions  UserResolver
	generator TextGenerator
	log       *zap.Logger
}

func NewDraftHandler(sessions UserResolver, generator TextGenerator, log *zap.Logger) *DraftHandler {
	return &DraftHandler{sessions: sessions, generator: generator, log: log}
}

type draftRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Type       string `json:"type"`
}

// ServeDraft generates a draft quiz for the authenticated creator and
// returns it as JSON.
func (h *DraftHandler) ServeDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := r.URL.Query().Get("session")
	if token == "" {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	user, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}
	if !user.IsCreator {
		http.Error(w, "creator account required", http.StatusForbidden)
		return
	}

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		http.Error(w, "topic required", http.StatusBadRequest)
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Type == "" {
		req.Type = string(domain.MultipleChoice)
	}
	qtype := domain.QuestionType(req.Type)
	if qtype != domain.MultipleChoice && qtype != domain.TrueFalse {
		http.Error(w, "unsupported question type", http.StatusBadRequest)
		return
	}

	text, err := h.generator.GenerateText(r.Context(), genai.BuildPrompt(req.Topic, req.Difficulty, req.Count, qtype))
	if err != nil {
		h.log.Warn("generate text failed", zap.String("topic", req.Topic), zap.Error(err))
		http.Error(w, "question generation unavailable", http.StatusBadGateway)
		return
	}
	questions, err := genai.ParseQuestions(text, qtype)
	if err != nil {
		h.log.Warn("parse generated text failed", zap.String("topic", req.Topic), zap.Error(err))
		http.Error(w, "question generation unavailable", http.StatusBadGateway)
		return
	}

	draft := domain.Quiz{
		Title:       fmt.Sprintf("%s quiz", req.Topic),
		Description: fmt.Sprintf("AI-generated %s questions about %s", req.Difficulty, req.Topic),
		Difficulty:  req.Difficulty,
		IsDraft:     true,
		Creator:     user.Username,
		Questions:   questions,
	}
	if err := draft.Validate(); err != nil {
		h.log.Warn("generated draft invalid", zap.String("topic", req.Topic), zap.Error(err))
		http.Error(w, "question generation unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(draft)
}
