package model

type Reward struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CostPoints  int    `json:"cost_points"`
	Description string `json:"description"`
	TierLevel   int    `json:"tier_level"`
}
