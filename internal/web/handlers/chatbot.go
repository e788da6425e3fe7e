package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planit/planit/internal/chatbot"
	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/thread"
	"github.com/planit/planit/internal/web/sse"
)

// SSETimeout caps how long one streaming chat turn may run.
const SSETimeout = 5 * time.Minute

// Chatbot handles the chat message endpoints.
type Chatbot struct {
	bot     *chatbot.Chatbot
	threads *thread.Store
	logger  log.Logger
}

// NewChatbot creates the chat handler.
func NewChatbot(bot *chatbot.Chatbot, threads *thread.Store, logger log.Logger) *Chatbot {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Chatbot{bot: bot, threads: threads, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *Chatbot) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chatbot/message", h.message)
	mux.HandleFunc("POST /api/chatbot/stream", h.stream)
}

type chatRequest struct {
	ThreadID *uuid.UUID `json:"threadId"`
	Message  string     `json:"message"`
}

// prepareTurn validates the request and loads the existing thread, if
// any, together with its history. A nil thread means a new one must be
// created once the turn succeeds.
func (h *Chatbot) prepareTurn(w http.ResponseWriter, r *http.Request) (userID string, req chatRequest, t *thread.Thread, history []thread.Message, ok bool) {
	userID, ok = requireUser(w, r)
	if !ok {
		return "", chatRequest{}, nil, nil, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return "", chatRequest{}, nil, nil, false
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "Message is required")
		return "", chatRequest{}, nil, nil, false
	}

	if req.ThreadID != nil {
		var err error
		t, err = h.threads.Get(r.Context(), userID, *req.ThreadID)
		if err != nil {
			if errors.Is(err, thread.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "Thread not found")
				return "", chatRequest{}, nil, nil, false
			}
			h.logger.ErrorContext(r.Context(), "load thread failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to send message")
			return "", chatRequest{}, nil, nil, false
		}
		history, err = h.threads.Messages(r.Context(), t.ID)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "load thread messages failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to send message")
			return "", chatRequest{}, nil, nil, false
		}
	}
	return userID, req, t, history, true
}

// persistTurn stores the user message, any tool exchanges, and the
// assistant response. The thread is created here when the turn started
// without one, so failed generations never leave empty threads behind.
func (h *Chatbot) persistTurn(ctx context.Context, userID, message string, t *thread.Thread, result *chatbot.Result) (*thread.Thread, error) {
	if t == nil {
		created, err := h.threads.Create(ctx, userID, "")
		if err != nil {
			return nil, err
		}
		t = created
	}

	messages := []thread.Message{{Role: thread.RoleUser, Content: message}}
	for _, ex := range result.ToolExchanges {
		call, err := json.Marshal(ex.Call)
		if err != nil {
			return nil, err
		}
		name := ex.Call.Name
		callID := ex.Call.ID
		messages = append(messages, thread.Message{
			Role:       thread.RoleTool,
			Content:    string(call),
			ToolName:   &name,
			ToolCallID: &callID,
		})
	}
	messages = append(messages, thread.Message{Role: thread.RoleAssistant, Content: result.Response})

	if err := h.threads.AppendMessages(ctx, t.ID, messages); err != nil {
		return nil, err
	}

	if t.Title == thread.DefaultTitle {
		title := thread.TitleFromMessage(message)
		if err := h.threads.SetTitle(ctx, userID, t.ID, title); err != nil {
			h.logger.ErrorContext(ctx, "update thread title failed", "thread_id", t.ID, "error", err)
		} else {
			t.Title = title
		}
	}
	return t, nil
}

func (h *Chatbot) message(w http.ResponseWriter, r *http.Request) {
	userID, req, t, history, ok := h.prepareTurn(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	result, err := h.bot.Respond(ctx, userID, history, req.Message)
	if err != nil {
		h.writeChatError(ctx, w, err)
		return
	}

	t, err = h.persistTurn(ctx, userID, req.Message, t, result)
	if err != nil {
		h.logger.ErrorContext(ctx, "persist chat turn failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	stored, err := h.threads.Messages(ctx, t.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "load thread messages failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"threadId":         t.ID,
		"title":            t.Title,
		"messages":         toWireMessages(stored),
		"assistantMessage": result.Response,
	})
}

func (h *Chatbot) stream(w http.ResponseWriter, r *http.Request) {
	userID, req, t, history, ok := h.prepareTurn(w, r)
	if !ok {
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sse upgrade failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), SSETimeout)
	defer cancel()

	result, err := h.bot.Stream(ctx, userID, history, req.Message, func(ev chatbot.Event) error {
		return writer.WriteJSON(ctx, ev)
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "streaming turn failed", "error", err)
		h.writeStreamError(ctx, writer)
		return
	}

	t, err = h.persistTurn(ctx, userID, req.Message, t, result)
	if err != nil {
		h.logger.ErrorContext(ctx, "persist chat turn failed", "error", err)
		h.writeStreamError(ctx, writer)
		return
	}

	if err := writer.WriteJSON(ctx, map[string]any{
		"type":     chatbot.EventDone,
		"threadId": t.ID,
		"title":    t.Title,
	}); err != nil {
		h.logger.DebugContext(ctx, "client gone before done frame", "error", err)
	}
}

func (h *Chatbot) writeStreamError(ctx context.Context, writer *sse.Writer) {
	err := writer.WriteJSON(ctx, chatbot.Event{
		Type:    chatbot.EventError,
		Message: "Streaming failed",
	})
	if err != nil {
		h.logger.DebugContext(ctx, "client gone before error frame", "error", err)
	}
}

func (h *Chatbot) writeChatError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatbot.ErrEmptyMessage):
		WriteError(w, http.StatusBadRequest, "Message is required")
	case errors.Is(err, chatbot.ErrModelNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "Chatbot is not configured")
	default:
		h.logger.ErrorContext(ctx, "chat turn failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to send message")
	}
}
