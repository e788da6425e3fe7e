package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/planit/planit/internal/log"
)

const (
	// searchResultLimit caps how many tasks a search returns to the model.
	searchResultLimit = 10
	// descriptionLimit caps the description length in search results.
	descriptionLimit = 100
	// suggestionLimit caps how many priority recommendations are returned.
	suggestionLimit = 5
	// farFutureDays stands in for "no due date" when scoring.
	farFutureDays = 999

	executorTimeout = 10 * time.Second

	// UserIDHeader carries the caller's identity on internal API calls.
	UserIDHeader = "X-User-ID"
)

// Executor runs tool calls against the task API on behalf of a user.
// Execution never returns a Go error to the caller: failures are
// reported inside the result map under an "error" key so the model can
// react to them in conversation.
type Executor struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
	now     func() time.Time
}

// NewExecutor creates an executor calling the task API at baseURL.
// A nil client gets a default with a request timeout.
func NewExecutor(baseURL string, client *http.Client, logger log.Logger) *Executor {
	if client == nil {
		client = &http.Client{Timeout: executorTimeout}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Executor{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
		now:     time.Now,
	}
}

// Execute runs the named tool with args for userID. Unknown tools and
// downstream failures produce an error-valued result, never an error.
func (e *Executor) Execute(ctx context.Context, userID, name string, args map[string]any) map[string]any {
	kind, ok := KindFromName(name)
	if !ok {
		e.logger.WarnContext(ctx, "unknown tool requested", "tool", name)
		return errorResult("Unknown tool")
	}

	start := time.Now()
	var result map[string]any
	switch kind {
	case KindSearchTasks:
		result = e.searchTasks(ctx, userID, args)
	case KindTaskStats:
		result = e.taskStats(ctx, userID)
	case KindSuggestPriorities:
		result = e.suggestPriorities(ctx, userID)
	}

	e.logger.DebugContext(ctx, "tool executed",
		"tool", kind, "user_id", userID, "duration", time.Since(start))
	return result
}

func errorResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// apiTask mirrors the task representation served by the internal API.
type apiTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

func (e *Executor) searchTasks(ctx context.Context, userID string, args map[string]any) map[string]any {
	params := url.Values{}
	if q, ok := args["query"].(string); ok && q != "" {
		params.Set("q", q)
	}
	if s, ok := args["status"].(string); ok && s != "" {
		params.Set("status", s)
	}
	if p, ok := args["priority"].(string); ok && p != "" {
		params.Set("priority", p)
	}

	var tasks []apiTask
	if err := e.getJSON(ctx, userID, "/api/tasks?"+params.Encode(), &tasks); err != nil {
		e.logger.WarnContext(ctx, "search_tasks fetch failed", "error", err)
		return errorResult("Failed to fetch tasks")
	}

	found := len(tasks)
	if len(tasks) > searchResultLimit {
		tasks = tasks[:searchResultLimit]
	}

	results := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"description": truncate(t.Description, descriptionLimit),
			"status":      t.Status,
			"priority":    t.Priority,
			"dueDate":     t.DueDate,
		})
	}

	return map[string]any{
		"found": found,
		"tasks": results,
	}
}

func (e *Executor) taskStats(ctx context.Context, userID string) map[string]any {
	var stats map[string]any
	if err := e.getJSON(ctx, userID, "/api/tasks/stats", &stats); err != nil {
		e.logger.WarnContext(ctx, "get_task_stats fetch failed", "error", err)
		return errorResult("Failed to fetch task stats")
	}
	return stats
}

func (e *Executor) suggestPriorities(ctx context.Context, userID string) map[string]any {
	var tasks []apiTask
	if err := e.getJSON(ctx, userID, "/api/tasks", &tasks); err != nil {
		e.logger.WarnContext(ctx, "suggest_priorities fetch failed", "error", err)
		return errorResult("Failed to fetch tasks")
	}

	now := e.now()

	type scored struct {
		task         apiTask
		score        int
		daysUntilDue int
	}

	var candidates []scored
	for _, t := range tasks {
		if t.Status == "completed" {
			continue
		}

		daysUntilDue := farFutureDays
		if t.DueDate != nil {
			daysUntilDue = int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))
		}

		score := 0
		switch t.Priority {
		case "high":
			score += 10
		case "medium":
			score += 5
		default:
			score += 2
		}

		switch {
		case daysUntilDue < 0:
			score += 20
		case daysUntilDue <= 1:
			score += 15
		case daysUntilDue <= 3:
			score += 10
		}

		candidates = append(candidates, scored{task: t, score: score, daysUntilDue: daysUntilDue})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > suggestionLimit {
		candidates = candidates[:suggestionLimit]
	}

	recommendations := make([]map[string]any, 0, len(candidates))
	for _, c := range candidates {
		recommendations = append(recommendations, map[string]any{
			"title":    c.task.Title,
			"priority": c.task.Priority,
			"status":   c.task.Status,
			"dueDate":  c.task.DueDate,
			"reason":   suggestionReason(c.daysUntilDue, c.task.Priority),
		})
	}

	return map[string]any{"recommendations": recommendations}
}

func suggestionReason(daysUntilDue int, priority string) string {
	switch {
	case daysUntilDue < 0:
		return "Overdue!"
	case daysUntilDue <= 1:
		return "Due very soon"
	case priority == "high":
		return "High priority"
	default:
		return "Needs attention"
	}
}

// getJSON performs an internal API GET with the user's identity and
// decodes the JSON response into out.
func (e *Executor) getJSON(ctx context.Context, userID, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(UserIDHeader, userID)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
