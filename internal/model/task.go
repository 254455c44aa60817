package model

import "time"

// Schedule types for task templates.
const (
	ScheduleDaily     = "daily"
	ScheduleWeekly    = "weekly"
	ScheduleRecurring = "recurring"
)

// Task is a reusable chore template. Instances reference it by id, so
// editing a template never rewrites history.
type Task struct {
	ID                        int64  `json:"id"`
	Name                      string `json:"name"`
	Description               string `json:"description"`
	BasePoints                int    `json:"base_points"`
	AssignedRoleID            *int64 `json:"assigned_role_id"`
	ScheduleType              string `json:"schedule_type"`
	DefaultDueTime            string `json:"default_due_time"`
	RecurrenceMinDays         *int   `json:"recurrence_min_days"`
	RecurrenceMaxDays         *int   `json:"recurrence_max_days"`
	RequiresPhotoVerification bool   `json:"requires_photo_verification"`
}

// TaskInstance statuses. Instances only move forward; COMPLETED and
// REJECTED are terminal.
const (
	StatusPending   = "PENDING"
	StatusInReview  = "IN_REVIEW"
	StatusCompleted = "COMPLETED"
	StatusRejected  = "REJECTED"
)

// TaskInstance is one concrete due occurrence of a Task.
type TaskInstance struct {
	ID                 int64      `json:"id"`
	TaskID             int64      `json:"task_id"`
	UserID             int64      `json:"user_id"`
	DueTime            time.Time  `json:"due_time"`
	Status             string     `json:"status"`
	CompletedAt        *time.Time `json:"completed_at"`
	CompletionPhotoURL *string    `json:"completion_photo_url"`
	Task               *Task      `json:"task,omitempty"`
	User               *User      `json:"user,omitempty"`
}

// Terminal reports whether the instance can no longer transition.
func (ti *TaskInstance) Terminal() bool {
	return ti.Status == StatusCompleted || ti.Status == StatusRejected
}
