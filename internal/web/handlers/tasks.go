package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/points"
	"github.com/planit/planit/internal/task"
)

const (
	onTimeCompletionPoints = 10
	missedDeadlinePenalty  = -5
)

// Tasks handles the task CRUD and statistics endpoints.
type Tasks struct {
	store  *task.Store
	points *points.Store
	logger log.Logger
	now    func() time.Time
}

// TasksConfig assembles a Tasks handler.
type TasksConfig struct {
	Store  *task.Store
	Points *points.Store // Optional: nil disables point awards
	Logger log.Logger
}

// NewTasks creates the tasks handler.
func NewTasks(cfg TasksConfig) *Tasks {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Tasks{
		store:  cfg.Store,
		points: cfg.Points,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterRoutes registers task routes on the given mux.
func (h *Tasks) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.list)
	mux.HandleFunc("POST /api/tasks", h.create)
	mux.HandleFunc("GET /api/tasks/stats", h.stats)
	mux.HandleFunc("GET /api/tasks/{id}", h.get)
	mux.HandleFunc("PUT /api/tasks/{id}", h.update)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.delete)
}

// taskPayload is the request body for create and update.
type taskPayload struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    task.Priority `json:"priority"`
	Status      task.Status   `json:"status"`
	DueDate     *time.Time    `json:"dueDate"`
	StartTime   *string       `json:"startTime"`
	EndTime     *string       `json:"endTime"`
}

func (h *Tasks) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter := task.Filter{
		Query:    r.URL.Query().Get("q"),
		Status:   task.Status(r.URL.Query().Get("status")),
		Priority: task.Priority(r.URL.Query().Get("priority")),
	}

	tasks, err := h.store.List(r.Context(), userID, filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list tasks failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error fetching tasks")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (h *Tasks) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		WriteError(w, http.StatusBadRequest, "Title is required")
		return
	}

	t := &task.Task{
		UserID:      userID,
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		Status:      payload.Status,
		DueDate:     payload.DueDate,
		StartTime:   payload.StartTime,
		EndTime:     payload.EndTime,
	}
	if err := h.store.Create(r.Context(), t); err != nil {
		h.logger.ErrorContext(r.Context(), "create task failed", "error", err)
		WriteError(w, http.StatusBadRequest, "Error creating task")
		return
	}
	WriteJSON(w, http.StatusCreated, t)
}

func (h *Tasks) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	t, err := h.store.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Task not found or unauthorized")
			return
		}
		h.logger.ErrorContext(r.Context(), "get task failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error fetching task")
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (h *Tasks) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	existing, err := h.store.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Task not found or unauthorized")
			return
		}
		h.logger.ErrorContext(r.Context(), "load task failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error updating task")
		return
	}

	// An overdue task being marked completed stays overdue; the
	// deadline was already missed.
	finalStatus := payload.Status
	if payload.Status == task.StatusCompleted && existing.Status == task.StatusOverdue {
		finalStatus = task.StatusOverdue
	}

	updated := &task.Task{
		ID:          existing.ID,
		UserID:      userID,
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		Status:      finalStatus,
		DueDate:     payload.DueDate,
		StartTime:   payload.StartTime,
		EndTime:     payload.EndTime,
		CreatedAt:   existing.CreatedAt,
	}
	if err := h.store.Update(r.Context(), updated); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Task not found or unauthorized")
			return
		}
		h.logger.ErrorContext(r.Context(), "update task failed", "error", err)
		WriteError(w, http.StatusBadRequest, "Error updating task")
		return
	}

	h.syncCompletionLog(r, userID, existing, payload.Status, updated)
	h.applyPointRules(r, userID, existing, updated)

	WriteJSON(w, http.StatusOK, updated)
}

// syncCompletionLog keeps the persistent completion log in step with
// status changes. The log outlives task deletion, so the activity
// heatmap still shows past work. Requested is the status the client
// asked for; an overdue task marked completed logs a completion even
// though its stored status stays overdue. Failures are logged and
// swallowed; the task update already succeeded.
func (h *Tasks) syncCompletionLog(r *http.Request, userID string, before *task.Task, requested task.Status, after *task.Task) {
	ctx := r.Context()
	switch {
	case requested == task.StatusCompleted && before.Status != task.StatusCompleted:
		if err := h.store.RecordCompletion(ctx, userID, after.ID, after.Title, h.now()); err != nil {
			h.logger.ErrorContext(ctx, "record completion failed", "error", err, "task_id", after.ID)
		}
	case requested != task.StatusCompleted:
		if err := h.store.RemoveCompletion(ctx, userID, after.ID); err != nil {
			h.logger.ErrorContext(ctx, "remove completion failed", "error", err, "task_id", after.ID)
		}
	}
}

// applyPointRules awards or deducts points for status transitions.
// Point failures are logged and swallowed; the task update already
// succeeded.
func (h *Tasks) applyPointRules(r *http.Request, userID string, before, after *task.Task) {
	if h.points == nil || before.Status == after.Status {
		return
	}
	ctx := r.Context()

	switch after.Status {
	case task.StatusCompleted:
		if before.DueDate == nil {
			return
		}
		if h.now().After(endOfDay(*before.DueDate)) {
			return
		}
		_, err := h.points.Award(ctx, userID, points.ActivityTaskCompletedOnTime, onTimeCompletionPoints,
			fmt.Sprintf("Task completed on time: %s", after.Title))
		if err != nil {
			h.logger.ErrorContext(ctx, "award on-time completion failed", "error", err)
		}
	case task.StatusOverdue:
		_, err := h.points.Award(ctx, userID, points.ActivityMissedDeadline, missedDeadlinePenalty,
			fmt.Sprintf("Missed deadline: %s", after.Title))
		if err != nil {
			h.logger.ErrorContext(ctx, "apply missed deadline penalty failed", "error", err)
		}
	case task.StatusPending:
		// Resetting a task to pending after its deadline passed still
		// counts as a miss.
		if before.DueDate == nil || !h.now().After(endOfDay(*before.DueDate)) {
			return
		}
		_, err := h.points.Award(ctx, userID, points.ActivityMissedDeadline, missedDeadlinePenalty,
			fmt.Sprintf("Missed deadline: %s", after.Title))
		if err != nil {
			h.logger.ErrorContext(ctx, "apply missed deadline penalty failed", "error", err)
		}
	}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func (h *Tasks) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.store.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Task not found or unauthorized")
			return
		}
		h.logger.ErrorContext(r.Context(), "delete task failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error deleting task")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func (h *Tasks) stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.store.Stats(r.Context(), userID, h.now())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "task stats failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error fetching task stats")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
