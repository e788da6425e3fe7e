// Package task provides the task domain model and its PostgreSQL store.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Priority levels for a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status values for a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// Task is a single to-do item owned by one user.
// StartTime and EndTime use "HH:mm" 24-hour format when set.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	StartTime   *string    `json:"startTime"`
	EndTime     *string    `json:"endTime"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Filter narrows a task listing. Zero values mean "no filter".
type Filter struct {
	// Query matches case-insensitively against title and description.
	Query    string
	Status   Status
	Priority Priority
}

// Stats aggregates task counts for one user.
type Stats struct {
	TotalTasks      int `json:"totalTasks"`
	PendingTasks    int `json:"pendingTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	CompletedTasks  int `json:"completedTasks"`
	OverdueTasks    int `json:"overdueTasks"`
	HighPriority    int `json:"highPriority"`
	MediumPriority  int `json:"mediumPriority"`
	LowPriority     int `json:"lowPriority"`
}

// ComputeStats aggregates counts over tasks. A task is overdue when its
// due date falls on a day before now's day and it is not completed;
// comparison happens at day granularity so a task due later today is
// not overdue.
func ComputeStats(tasks []Task, now time.Time) Stats {
	today := truncateToDay(now)

	var s Stats
	s.TotalTasks = len(tasks)
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			s.PendingTasks++
		case StatusInProgress:
			s.InProgressTasks++
		case StatusCompleted:
			s.CompletedTasks++
		}

		if t.DueDate != nil && t.Status != StatusCompleted {
			if truncateToDay(*t.DueDate).Before(today) {
				s.OverdueTasks++
			}
		}

		switch t.Priority {
		case PriorityHigh:
			s.HighPriority++
		case PriorityMedium:
			s.MediumPriority++
		case PriorityLow:
			s.LowPriority++
		}
	}
	return s
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
