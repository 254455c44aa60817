package model

import "time"

type User struct {
	ID                  int64      `json:"id"`
	Nickname            string     `json:"nickname"`
	RoleID              int64      `json:"role_id"`
	CurrentPoints       int        `json:"current_points"`
	LifetimePoints      int        `json:"lifetime_points"`
	CurrentGoalRewardID *int64     `json:"current_goal_reward_id"`
	PreferredLanguage   *string    `json:"preferred_language"`
	CurrentStreak       int        `json:"current_streak"`
	LastTaskDate        *time.Time `json:"last_task_date"`
	Role                *Role      `json:"role,omitempty"`
}
