package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	middleware "github.com/insightlabs-ai/docinsight/internal/api/middlewares"
	"github.com/insightlabs-ai/docinsight/internal/models"
	"github.com/insightlabs-ai/docinsight/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// ChatRequest carries the query plus the caller-owned conversation history.
type ChatRequest struct {
	Query   string               `json:"query"`
	History []models.ChatMessage `json:"history,omitempty"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := middleware.UserIDFromContext(ctx); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.chat.Answer(ctx, req.History, req.Query)
	if err != nil {
		http.Error(w, fmt.Sprintf("chat failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
