// Package ledger owns the append-only transaction log. Every point
// balance change in the system goes through Record: the entry insert
// and the balance update commit or roll back together, so a
// transaction row never exists without its matching balance delta.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chorespec/chorespec/internal/model"
)

// ErrUnknownAccount is returned when the entry's user does not exist.
var ErrUnknownAccount = errors.New("unknown account")

// ErrOverdraft is returned when applying the entry would drive the
// user's balance negative. Callers are expected to validate balances
// first; this is the invariant's last line of defense.
var ErrOverdraft = errors.New("balance would go negative")

// Entry describes one ledger record to append.
type Entry struct {
	UserID              int64
	Type                string
	BasePointsValue     int
	MultiplierUsed      float64
	AwardedPoints       int
	Description         string
	ReferenceInstanceID *int64
	RedemptionGroupID   *string
	Timestamp           time.Time
}

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Begin starts a database transaction for a multi-entry commit.
func (l *Ledger) Begin() (*sql.Tx, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// Record appends the entry and applies its balance delta inside tx.
// EARN entries also raise lifetime_points; REDEEM and PENALTY entries
// leave it untouched. The caller owns commit/rollback.
func (l *Ledger) Record(tx *sql.Tx, e Entry) (*model.Transaction, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, e.UserID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check account: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("user %d: %w", e.UserID, ErrUnknownAccount)
	}

	lifetimeDelta := 0
	if e.Type == model.TxEarn && e.AwardedPoints > 0 {
		lifetimeDelta = e.AwardedPoints
	}

	// The WHERE clause enforces the non-negative balance invariant
	// atomically with the update itself.
	res, err := tx.Exec(
		`UPDATE users SET current_points = current_points + ?, lifetime_points = lifetime_points + ?
		WHERE id = ? AND current_points + ? >= 0`,
		e.AwardedPoints, lifetimeDelta, e.UserID, e.AwardedPoints,
	)
	if err != nil {
		return nil, fmt.Errorf("apply balance delta: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user %d: %w", e.UserID, ErrOverdraft)
	}

	var refID sql.NullInt64
	if e.ReferenceInstanceID != nil {
		refID = sql.NullInt64{Int64: *e.ReferenceInstanceID, Valid: true}
	}
	var groupID sql.NullString
	if e.RedemptionGroupID != nil {
		groupID = sql.NullString{String: *e.RedemptionGroupID, Valid: true}
	}

	result, err := tx.Exec(
		`INSERT INTO transactions (user_id, type, base_points_value, multiplier_used,
			awarded_points, description, reference_instance_id, redemption_group_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Type, e.BasePointsValue, e.MultiplierUsed,
		e.AwardedPoints, e.Description, refID, groupID, e.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &model.Transaction{
		ID:                  id,
		UserID:              e.UserID,
		Type:                e.Type,
		BasePointsValue:     e.BasePointsValue,
		MultiplierUsed:      e.MultiplierUsed,
		AwardedPoints:       e.AwardedPoints,
		Description:         e.Description,
		ReferenceInstanceID: e.ReferenceInstanceID,
		RedemptionGroupID:   e.RedemptionGroupID,
		Timestamp:           e.Timestamp,
	}, nil
}

// Balance reads a user's balances inside tx, so redemption validation
// sees the same snapshot the commit will apply against.
func (l *Ledger) Balance(tx *sql.Tx, userID int64) (current, lifetime int, err error) {
	err = tx.QueryRow(
		`SELECT current_points, lifetime_points FROM users WHERE id = ?`, userID,
	).Scan(&current, &lifetime)
	if err == sql.ErrNoRows {
		return 0, 0, fmt.Errorf("user %d: %w", userID, ErrUnknownAccount)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read balance: %w", err)
	}
	return current, lifetime, nil
}
