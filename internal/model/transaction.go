package model

import "time"

// Transaction types. EARN entries are positive, REDEEM and PENALTY
// entries are negative.
const (
	TxEarn    = "EARN"
	TxRedeem  = "REDEEM"
	TxPenalty = "PENALTY"
)

// Transaction is one immutable ledger entry. The sum of a user's
// AwardedPoints always equals their current balance; corrections are
// new compensating entries, never edits.
type Transaction struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	Type                string    `json:"type"`
	BasePointsValue     int       `json:"base_points_value"`
	MultiplierUsed      float64   `json:"multiplier_used"`
	AwardedPoints       int       `json:"awarded_points"`
	Description         string    `json:"description"`
	ReferenceInstanceID *int64    `json:"reference_instance_id"`
	RedemptionGroupID   *string   `json:"redemption_group_id"`
	Timestamp           time.Time `json:"timestamp"`
}
