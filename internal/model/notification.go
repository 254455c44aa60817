package model

import "time"

// Notification types.
const (
	NotifyTaskAssigned   = "TASK_ASSIGNED"
	NotifyTaskCompleted  = "TASK_COMPLETED"
	NotifyRewardRedeemed = "REWARD_REDEEMED"
	NotifySystem         = "SYSTEM"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Data      *string   `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}
