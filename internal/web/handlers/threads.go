package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/thread"
)

// Threads handles the chat thread management endpoints.
type Threads struct {
	store  *thread.Store
	logger log.Logger
}

// NewThreads creates the threads handler.
func NewThreads(store *thread.Store, logger log.Logger) *Threads {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Threads{store: store, logger: logger}
}

// RegisterRoutes registers thread routes on the given mux.
func (h *Threads) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/chatbot/threads", h.list)
	mux.HandleFunc("POST /api/chatbot/threads", h.create)
	mux.HandleFunc("GET /api/chatbot/threads/{threadId}", h.get)
	mux.HandleFunc("DELETE /api/chatbot/threads/{threadId}", h.delete)
}

// threadSummary is the wire shape for thread listings.
type threadSummary struct {
	ThreadID     uuid.UUID `json:"threadId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// threadMessage is the wire shape for messages in a thread.
type threadMessage struct {
	Role      thread.Role `json:"role"`
	Content   string      `json:"content"`
	Name      *string     `json:"name,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func summarize(t thread.Thread) threadSummary {
	return threadSummary{
		ThreadID:     t.ID,
		Title:        t.Title,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		MessageCount: t.MessageCount,
	}
}

func toWireMessages(messages []thread.Message) []threadMessage {
	out := make([]threadMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, threadMessage{
			Role:      m.Role,
			Content:   m.Content,
			Name:      m.ToolName,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

func (h *Threads) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	threads, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list threads failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to load threads")
		return
	}

	payload := make([]threadSummary, 0, len(threads))
	for _, t := range threads {
		payload = append(payload, summarize(t))
	}
	WriteJSON(w, http.StatusOK, payload)
}

func (h *Threads) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	// An empty or invalid body simply means no title.
	_ = json.NewDecoder(r.Body).Decode(&body)

	created, err := h.store.Create(r.Context(), userID, strings.TrimSpace(body.Title))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create thread failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to create thread")
		return
	}
	WriteJSON(w, http.StatusCreated, summarize(*created))
}

func (h *Threads) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("threadId"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "Thread not found")
		return
	}

	t, err := h.store.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Thread not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "load thread failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to load thread")
		return
	}

	messages, err := h.store.Messages(r.Context(), t.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load thread messages failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to load thread")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"threadId":  t.ID,
		"title":     t.Title,
		"createdAt": t.CreatedAt,
		"updatedAt": t.UpdatedAt,
		"messages":  toWireMessages(messages),
	})
}

func (h *Threads) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("threadId"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "Thread not found")
		return
	}

	if err := h.store.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Thread not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "delete thread failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to delete thread")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Thread deleted"})
}
