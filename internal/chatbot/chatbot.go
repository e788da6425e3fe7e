// Package chatbot implements the Plan-It assistant: a bounded
// tool-calling loop around a Gemini model with task tools executed
// against the internal API.
package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/thread"
)

const (
	// DefaultMaxTurns bounds how many tool rounds one chat turn may take.
	DefaultMaxTurns = 5
	// DefaultHistoryWindow bounds how many stored messages are replayed.
	DefaultHistoryWindow = 100

	// FallbackResponseMessage is emitted on streams that end without text.
	FallbackResponseMessage = "I'm sorry, I couldn't come up with a response. Please try again."
)

// Config assembles a Chatbot.
type Config struct {
	// Model may be nil when no API key is configured; chat turns then
	// fail with ErrModelNotConfigured.
	Model         Model
	Registry      *Registry
	Executor      *Executor
	Logger        log.Logger
	MaxTurns      int
	HistoryWindow int

	// RateLimiter throttles model calls (nil = default 10 req/s, burst 30).
	RateLimiter *rate.Limiter
	RetryConfig RetryConfig
}

// Chatbot drives chat turns: it assembles history, calls the model,
// executes requested tools, and loops until the model answers in text.
//
// Chatbot is safe for concurrent use.
type Chatbot struct {
	model          Model
	registry       *Registry
	executor       *Executor
	logger         log.Logger
	maxTurns       int
	historyWindow  int
	limiter        *rate.Limiter
	retryConfig    RetryConfig
	circuitBreaker *breaker
}

// New creates a Chatbot from cfg.
func New(cfg Config) (*Chatbot, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	window := cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	return &Chatbot{
		model:          cfg.Model,
		registry:       cfg.Registry,
		executor:       cfg.Executor,
		logger:         logger,
		maxTurns:       maxTurns,
		historyWindow:  window,
		limiter:        limiter,
		retryConfig:    retryConfig,
		circuitBreaker: newBreaker(),
	}, nil
}

// Ready reports whether a model is configured.
func (c *Chatbot) Ready() bool {
	return c.model != nil
}

// Respond runs one chat turn to completion and returns the assistant's
// final text plus any tool exchanges that happened along the way.
func (c *Chatbot) Respond(ctx context.Context, userID string, history []thread.Message, message string) (*Result, error) {
	contents, err := c.prepare(history, message)
	if err != nil {
		return nil, err
	}

	var result Result
	for turn := 0; ; turn++ {
		resp, err := c.generate(ctx, contents)
		if err != nil {
			return nil, err
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return nil, ErrEmptyResponse
			}
			result.Response = text
			return &result, nil
		}

		if turn >= c.maxTurns {
			c.logger.WarnContext(ctx, "tool loop exhausted",
				"user_id", userID, "turns", turn, "pending_calls", len(calls))
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return nil, ErrToolLoopExceeded
			}
			result.Response = text
			return &result, nil
		}

		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			contents = append(contents, resp.Candidates[0].Content)
		}

		responses, err := c.runTools(ctx, userID, calls, &result, nil)
		if err != nil {
			return nil, err
		}
		contents = append(contents, genai.NewContentFromParts(responses, genai.RoleUser))
	}
}

// Stream runs one chat turn, emitting text chunks and tool activity
// through emit as they happen. The returned Result carries the full
// response text for persistence; emit never receives done or error
// events, those belong to the transport layer.
func (c *Chatbot) Stream(ctx context.Context, userID string, history []thread.Message, message string, emit EmitFunc) (*Result, error) {
	contents, err := c.prepare(history, message)
	if err != nil {
		return nil, err
	}

	var (
		result  Result
		allText strings.Builder
	)
	for turn := 0; ; turn++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		if err := c.circuitBreaker.allow(); err != nil {
			return nil, fmt.Errorf("service unavailable: %w", err)
		}

		var (
			roundText strings.Builder
			calls     []*genai.FunctionCall
			streamErr error
		)
		for chunk, err := range c.model.GenerateContentStream(ctx, contents) {
			if err != nil {
				streamErr = err
				break
			}
			if text := chunk.Text(); text != "" {
				roundText.WriteString(text)
				allText.WriteString(text)
				if err := emit(Event{Type: EventText, Content: text}); err != nil {
					return nil, fmt.Errorf("emit text: %w", err)
				}
			}
			calls = append(calls, chunk.FunctionCalls()...)
		}
		if streamErr != nil {
			c.circuitBreaker.record(false)
			return nil, fmt.Errorf("generate content stream: %w", streamErr)
		}
		c.circuitBreaker.record(true)

		if len(calls) == 0 || turn >= c.maxTurns {
			if turn >= c.maxTurns && len(calls) > 0 {
				c.logger.WarnContext(ctx, "tool loop exhausted",
					"user_id", userID, "turns", turn, "pending_calls", len(calls))
			}
			text := strings.TrimSpace(allText.String())
			if text == "" {
				if err := emit(Event{Type: EventText, Content: FallbackResponseMessage}); err != nil {
					return nil, fmt.Errorf("emit fallback: %w", err)
				}
				text = FallbackResponseMessage
			}
			result.Response = text
			return &result, nil
		}

		parts := make([]*genai.Part, 0, len(calls)+1)
		if roundText.Len() > 0 {
			parts = append(parts, genai.NewPartFromText(roundText.String()))
		}
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionCall: call})
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		responses, err := c.runTools(ctx, userID, calls, &result, emit)
		if err != nil {
			return nil, err
		}
		contents = append(contents, genai.NewContentFromParts(responses, genai.RoleUser))
	}
}

// prepare validates the inputs and assembles the model contents for a
// new turn. It runs before any external call.
func (c *Chatbot) prepare(history []thread.Message, message string) ([]*genai.Content, error) {
	if c.model == nil {
		return nil, ErrModelNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	contents := AssembleHistory(history, c.historyWindow)
	return append(contents, genai.NewContentFromText(message, genai.RoleUser)), nil
}

func (c *Chatbot) generate(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := c.circuitBreaker.allow(); err != nil {
		c.logger.WarnContext(ctx, "circuit breaker rejected request",
			"state", string(c.circuitBreaker.current()))
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	resp, err := c.generateWithRetry(ctx, contents)
	if err != nil {
		c.circuitBreaker.record(false)
		return nil, err
	}

	c.circuitBreaker.record(true)
	return resp, nil
}

// runTools executes every call the model requested and returns one
// function response part per call, in order. Tool failures surface as
// error-valued results; they never abort the turn. When emit is
// non-nil, a tool_call and tool_result event is emitted per call.
func (c *Chatbot) runTools(ctx context.Context, userID string, calls []*genai.FunctionCall, result *Result, emit EmitFunc) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(calls))
	for _, call := range calls {
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		toolCall := ToolCall{ID: id, Name: call.Name, Arguments: call.Args}

		if emit != nil {
			if err := emit(Event{Type: EventToolCall, ToolCall: &toolCall}); err != nil {
				return nil, fmt.Errorf("emit tool call: %w", err)
			}
		}

		var out map[string]any
		if kind, known := KindFromName(call.Name); !known {
			out = errorResult("Unknown tool")
		} else if err := c.registry.ValidateArgs(kind, call.Args); err != nil {
			c.logger.WarnContext(ctx, "tool arguments rejected",
				"tool", call.Name, "error", err)
			out = errorResult(err.Error())
		} else {
			out = c.executor.Execute(ctx, userID, call.Name, call.Args)
		}

		result.ToolExchanges = append(result.ToolExchanges, ToolExchange{Call: toolCall, Result: out})

		if emit != nil {
			if err := emit(Event{Type: EventToolResult, ToolResult: &ToolResult{ID: id, Result: out}}); err != nil {
				return nil, fmt.Errorf("emit tool result: %w", err)
			}
		}

		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: out,
		}})
	}
	return parts, nil
}
