// Package points tracks the gamification point balance per user.
package points

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType labels why points were granted or deducted.
type ActivityType string

const (
	ActivitySignupBonus         ActivityType = "signup_bonus"
	ActivityDailyCheckin        ActivityType = "daily_checkin"
	ActivityTaskCompletedOnTime ActivityType = "task_completed_on_time"
	ActivityMissedDeadline      ActivityType = "missed_deadline"
)

// DailyCheckinPoints is awarded once per calendar day.
const DailyCheckinPoints = 1

// Activity is one point transaction. Amount is positive for rewards and
// negative for penalties.
type Activity struct {
	ID          uuid.UUID    `json:"id"`
	UserID      string       `json:"userId"`
	Type        ActivityType `json:"type"`
	Amount      int          `json:"amount"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Balance is a user's current total with recent activity.
type Balance struct {
	Points     int        `json:"points"`
	Activities []Activity `json:"activities"`
}

// sameDay reports whether a and b fall on the same UTC calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
