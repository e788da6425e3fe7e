package chatbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planit/planit/internal/log"
)

// fakeTaskAPI serves canned task lists and records the requests it saw.
type fakeTaskAPI struct {
	tasks      []map[string]any
	stats      map[string]any
	statusCode int

	lastPath   string
	lastQuery  string
	lastUserID string
}

func (f *fakeTaskAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.URL.Path
		f.lastQuery = r.URL.RawQuery
		f.lastUserID = r.Header.Get(UserIDHeader)

		if f.statusCode != 0 {
			w.WriteHeader(f.statusCode)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tasks":
			_ = json.NewEncoder(w).Encode(f.tasks)
		case "/api/tasks/stats":
			_ = json.NewEncoder(w).Encode(f.stats)
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestExecutor(t *testing.T, api *fakeTaskAPI) *Executor {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	return NewExecutor(server.URL, server.Client(), log.NewNop())
}

func isoDate(daysFromNow int) string {
	return time.Now().AddDate(0, 0, daysFromNow).UTC().Format(time.RFC3339)
}

func taskJSON(id, title, status, priority string, due *string) map[string]any {
	m := map[string]any{
		"id": id, "title": title, "description": "",
		"status": status, "priority": priority,
	}
	if due != nil {
		m["dueDate"] = *due
	}
	return m
}

func TestExecuteUnknownTool(t *testing.T) {
	executor := newTestExecutor(t, &fakeTaskAPI{})
	out := executor.Execute(context.Background(), "user-1", "make_coffee", nil)
	assert.Equal(t, map[string]any{"error": "Unknown tool"}, out)
}

func TestSearchTasksPassesFiltersAndIdentity(t *testing.T) {
	api := &fakeTaskAPI{tasks: []map[string]any{}}
	executor := newTestExecutor(t, api)

	out := executor.Execute(context.Background(), "user-42", "search_tasks", map[string]any{
		"query": "milk", "status": "pending", "priority": "low",
	})

	assert.Equal(t, "/api/tasks", api.lastPath)
	assert.Contains(t, api.lastQuery, "q=milk")
	assert.Contains(t, api.lastQuery, "status=pending")
	assert.Contains(t, api.lastQuery, "priority=low")
	assert.Equal(t, "user-42", api.lastUserID)
	assert.Equal(t, 0, out["found"])
}

func TestSearchTasksCapsResultsAndTruncatesDescriptions(t *testing.T) {
	longDescription := strings.Repeat("x", 250)
	var tasks []map[string]any
	for i := 0; i < 15; i++ {
		task := taskJSON("id", "title", "pending", "medium", nil)
		task["description"] = longDescription
		tasks = append(tasks, task)
	}
	executor := newTestExecutor(t, &fakeTaskAPI{tasks: tasks})

	out := executor.Execute(context.Background(), "user-1", "search_tasks", nil)

	assert.Equal(t, 15, out["found"])
	results, ok := out["tasks"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, results, 10)
	assert.Len(t, results[0]["description"], 100)
}

func TestSearchTasksAPIFailure(t *testing.T) {
	executor := newTestExecutor(t, &fakeTaskAPI{statusCode: http.StatusInternalServerError})
	out := executor.Execute(context.Background(), "user-1", "search_tasks", nil)
	assert.Equal(t, "Failed to fetch tasks", out["error"])
}

func TestTaskStatsPassthrough(t *testing.T) {
	api := &fakeTaskAPI{stats: map[string]any{
		"totalTasks": float64(4), "pendingTasks": float64(2), "overdueTasks": float64(1),
	}}
	executor := newTestExecutor(t, api)

	out := executor.Execute(context.Background(), "user-1", "get_task_stats", nil)

	assert.Equal(t, "/api/tasks/stats", api.lastPath)
	assert.Equal(t, "user-1", api.lastUserID)
	assert.Equal(t, float64(4), out["totalTasks"])
	assert.Equal(t, float64(1), out["overdueTasks"])
}

func TestSuggestPrioritiesScoring(t *testing.T) {
	overdue := isoDate(-2)
	tomorrow := isoDate(1)
	nextWeek := isoDate(7)

	api := &fakeTaskAPI{tasks: []map[string]any{
		taskJSON("t1", "Done already", "completed", "high", &overdue),
		taskJSON("t2", "Low but overdue", "pending", "low", &overdue),
		taskJSON("t3", "High due tomorrow", "pending", "high", &tomorrow),
		taskJSON("t4", "High next week", "pending", "high", &nextWeek),
		taskJSON("t5", "Medium no due date", "pending", "medium", nil),
	}}
	executor := newTestExecutor(t, api)

	out := executor.Execute(context.Background(), "user-1", "suggest_priorities", nil)
	recs, ok := out["recommendations"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, recs, 4, "completed tasks are excluded")

	// high+due tomorrow = 25 beats low+overdue = 22.
	assert.Equal(t, "High due tomorrow", recs[0]["title"])
	assert.Equal(t, "Due very soon", recs[0]["reason"])
	assert.Equal(t, "Low but overdue", recs[1]["title"])
	assert.Equal(t, "Overdue!", recs[1]["reason"])
	assert.Equal(t, "High next week", recs[2]["title"])
	assert.Equal(t, "High priority", recs[2]["reason"])
	assert.Equal(t, "Medium no due date", recs[3]["title"])
	assert.Equal(t, "Needs attention", recs[3]["reason"])
}

func TestSuggestPrioritiesCapsAtFive(t *testing.T) {
	var tasks []map[string]any
	for i := 0; i < 8; i++ {
		tasks = append(tasks, taskJSON("id", "task", "pending", "high", nil))
	}
	executor := newTestExecutor(t, &fakeTaskAPI{tasks: tasks})

	out := executor.Execute(context.Background(), "user-1", "suggest_priorities", nil)
	recs, ok := out["recommendations"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, recs, 5)
}

func TestExecutorUnreachableAPI(t *testing.T) {
	executor := NewExecutor("http://127.0.0.1:1", &http.Client{Timeout: time.Second}, log.NewNop())

	out := executor.Execute(context.Background(), "user-1", "get_task_stats", nil)
	assert.Equal(t, "Failed to fetch task stats", out["error"])
}
