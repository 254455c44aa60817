package model

// Role groups family members and carries the point multiplier applied
// when a member of the role completes a task.
type Role struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	MultiplierValue float64 `json:"multiplier_value"`
}
