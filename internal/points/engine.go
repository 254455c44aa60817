// Package points implements the completion and redemption engine: the
// task instance state machine, role-weighted point awards, and single
// and split reward redemption. All writes go through the ledger inside
// one database transaction, so balances and the audit trail can never
// drift apart.
package points

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chorespec/chorespec/internal/ledger"
	"github.com/chorespec/chorespec/internal/model"
)

type Engine struct {
	db     *sql.DB
	ledger *ledger.Ledger
	now    func() time.Time
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{
		db:     db,
		ledger: ledger.New(db),
		now:    time.Now,
	}
}

// CompletionResult reports a successful completion.
type CompletionResult struct {
	Instance      *model.TaskInstance `json:"instance"`
	Transaction   *model.Transaction  `json:"transaction"`
	UserID        int64               `json:"user_id"`
	AwardedPoints int                 `json:"awarded_points"`
}

// Receipt is returned by single-payer redemption.
type Receipt struct {
	TransactionID   int64  `json:"transaction_id"`
	RewardName      string `json:"reward_name"`
	PointsSpent     int    `json:"points_spent"`
	RemainingPoints int    `json:"remaining_points"`
}

// Contribution is one account's share of a split redemption.
type Contribution struct {
	UserID int64 `json:"user_id"`
	Points int   `json:"points"`
}

// ContributionReceipt records one contributor's committed share.
type ContributionReceipt struct {
	UserID        int64 `json:"user_id"`
	Points        int   `json:"points"`
	TransactionID int64 `json:"transaction_id"`
}

// SplitReceipt is returned by split redemption. GroupID ties the
// individual REDEEM transactions together for display and audit.
type SplitReceipt struct {
	GroupID       string                `json:"group_id"`
	RewardName    string                `json:"reward_name"`
	CostPoints    int                   `json:"cost_points"`
	Contributions []ContributionReceipt `json:"contributions"`
}

// award computes the points for a completion. Half-integer results
// round away from zero: 9 points at x1.5 awards 14.
func award(basePoints int, multiplier float64) int {
	return int(math.Round(float64(basePoints) * multiplier))
}

// Complete finalizes a PENDING instance that needs no photo review.
// actingUserID may name a different family member than the assignee
// (claiming an open task); the actor earns the points. Exactly one
// concurrent caller wins the transition; the rest get
// ErrAlreadyTerminal.
func (e *Engine) Complete(instanceID int64, actingUserID *int64) (*CompletionResult, error) {
	tx, err := e.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	instance, task, err := e.loadInstanceAndTask(tx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if task.RequiresPhotoVerification {
		return nil, ErrReviewRequired
	}

	actor := instance.UserID
	if actingUserID != nil {
		actor = *actingUserID
	}

	result, err := e.finalize(tx, instance, task, actor, model.StatusPending)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return result, nil
}

// SubmitForReview moves a photo-verified instance from PENDING to
// IN_REVIEW, recording the photo and claiming the instance for the
// actor. Points are not awarded until an admin approves.
func (e *Engine) SubmitForReview(instanceID int64, actingUserID *int64, photoURL string) (*model.TaskInstance, error) {
	tx, err := e.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	instance, task, err := e.loadInstanceAndTask(tx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !task.RequiresPhotoVerification {
		return nil, ErrReviewNotRequired
	}

	actor := instance.UserID
	if actingUserID != nil {
		actor = *actingUserID
	}

	res, err := tx.Exec(
		`UPDATE task_instances SET status = ?, user_id = ?, completion_photo_url = ?
		WHERE id = ? AND status = ?`,
		model.StatusInReview, actor, photoURL, instanceID, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("submit for review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlreadyTerminal
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review submission: %w", err)
	}

	instance.Status = model.StatusInReview
	instance.UserID = actor
	instance.CompletionPhotoURL = &photoURL
	return instance, nil
}

// Approve finalizes an IN_REVIEW instance, awarding points to the
// member who submitted it.
func (e *Engine) Approve(instanceID int64) (*CompletionResult, error) {
	tx, err := e.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	instance, task, err := e.loadInstanceAndTask(tx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if instance.Status != model.StatusInReview {
		return nil, ErrNotInReview
	}

	result, err := e.finalize(tx, instance, task, instance.UserID, model.StatusInReview)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return result, nil
}

// Reject closes an IN_REVIEW instance without points. Terminal: a
// fresh instance comes from the next scheduling cycle, not a revival.
func (e *Engine) Reject(instanceID int64) (*model.TaskInstance, error) {
	tx, err := e.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	instance, _, err := e.loadInstanceAndTask(tx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if instance.Status != model.StatusInReview {
		return nil, ErrNotInReview
	}

	res, err := tx.Exec(
		`UPDATE task_instances SET status = ? WHERE id = ? AND status = ?`,
		model.StatusRejected, instanceID, model.StatusInReview,
	)
	if err != nil {
		return nil, fmt.Errorf("reject instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlreadyTerminal
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rejection: %w", err)
	}

	instance.Status = model.StatusRejected
	return instance, nil
}

// finalize performs the guarded transition into COMPLETED, records the
// EARN entry, updates the actor's streak, and closes sibling instances
// of recurring tasks. Runs inside the caller's transaction.
func (e *Engine) finalize(tx *sql.Tx, instance *model.TaskInstance, task *model.Task, actor int64, fromStatus string) (*CompletionResult, error) {
	now := e.now().UTC()

	var multiplier float64
	err := tx.QueryRow(
		`SELECT r.multiplier_value FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = ?`,
		actor,
	).Scan(&multiplier)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", actor, ledger.ErrUnknownAccount)
	}
	if err != nil {
		return nil, fmt.Errorf("load actor multiplier: %w", err)
	}

	// The status guard makes the check-and-transition atomic: exactly
	// one concurrent completion survives it.
	res, err := tx.Exec(
		`UPDATE task_instances SET status = ?, completed_at = ?, user_id = ?
		WHERE id = ? AND status = ?`,
		model.StatusCompleted, now, actor, instance.ID, fromStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("transition instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlreadyTerminal
	}

	awarded := award(task.BasePoints, multiplier)
	entry, err := e.ledger.Record(tx, ledger.Entry{
		UserID:              actor,
		Type:                model.TxEarn,
		BasePointsValue:     task.BasePoints,
		MultiplierUsed:      multiplier,
		AwardedPoints:       awarded,
		Description:         task.Name,
		ReferenceInstanceID: &instance.ID,
		Timestamp:           now,
	})
	if err != nil {
		return nil, err
	}

	if err := e.updateStreak(tx, actor, now); err != nil {
		return nil, err
	}

	// Completing a recurring task closes everyone else's pending copy
	// without points, so the cooldown applies family-wide.
	if task.ScheduleType == model.ScheduleRecurring {
		_, err := tx.Exec(
			`UPDATE task_instances SET status = ?, completed_at = ?
			WHERE task_id = ? AND id != ? AND status = ?`,
			model.StatusCompleted, now, task.ID, instance.ID, model.StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("close sibling instances: %w", err)
		}
	}

	instance.Status = model.StatusCompleted
	instance.CompletedAt = &now
	instance.UserID = actor

	return &CompletionResult{
		Instance:      instance,
		Transaction:   entry,
		UserID:        actor,
		AwardedPoints: awarded,
	}, nil
}

// updateStreak bumps the streak when the user was last active
// yesterday, resets it after a gap, and leaves it alone within a day.
func (e *Engine) updateStreak(tx *sql.Tx, userID int64, now time.Time) error {
	var lastDate sql.NullString
	var streak int
	err := tx.QueryRow(
		`SELECT last_task_date, current_streak FROM users WHERE id = ?`, userID,
	).Scan(&lastDate, &streak)
	if err != nil {
		return fmt.Errorf("load streak: %w", err)
	}

	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	switch {
	case lastDate.Valid && lastDate.String == today:
		return nil
	case lastDate.Valid && lastDate.String == yesterday:
		streak++
	default:
		streak = 1
	}

	if _, err := tx.Exec(
		`UPDATE users SET current_streak = ?, last_task_date = ? WHERE id = ?`,
		streak, today, userID,
	); err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

// Redeem spends a single account's points on a reward. The balance
// check and the debit happen in one transaction, so two concurrent
// redemptions cannot both pass against a stale read.
func (e *Engine) Redeem(rewardID, userID int64) (*Receipt, error) {
	tx, err := e.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	reward, err := e.loadReward(tx, rewardID)
	if err != nil {
		return nil, err
	}

	current, _, err := e.ledger.Balance(tx, userID)
	if err != nil {
		return nil, err
	}
	if current < reward.CostPoints {
		return nil, &InsufficientPointsError{UserID: userID, Requested: reward.CostPoints, Available: current}
	}

	groupID := uuid.NewString()
	entry, err := e.ledger.Record(tx, ledger.Entry{
		UserID:            userID,
		Type:              model.TxRedeem,
		BasePointsValue:   reward.CostPoints,
		MultiplierUsed:    1.0,
		AwardedPoints:     -reward.CostPoints,
		Description:       reward.Name,
		RedemptionGroupID: &groupID,
		Timestamp:         e.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := e.clearGoal(tx, userID, rewardID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}

	return &Receipt{
		TransactionID:   entry.ID,
		RewardName:      reward.Name,
		PointsSpent:     reward.CostPoints,
		RemainingPoints: current - reward.CostPoints,
	}, nil
}

// RedeemSplit spends a reward's cost across several accounts.
// Validation order: accounts exist, each share fits its balance, and
// the shares sum to the exact cost. All debits commit together or not
// at all; accounts are debited in ascending user id order.
func (e *Engine) RedeemSplit(rewardID int64, contributions []Contribution) (*SplitReceipt, error) {
	if len(contributions) == 0 {
		return nil, ErrNoContributions
	}

	tx, err := e.ledger.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	reward, err := e.loadReward(tx, rewardID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(contributions))
	total := 0
	for _, c := range contributions {
		if seen[c.UserID] {
			return nil, fmt.Errorf("user %d: %w", c.UserID, ErrDuplicateContributor)
		}
		seen[c.UserID] = true

		if c.Points < 0 {
			return nil, fmt.Errorf("user %d: %w", c.UserID, ErrNegativeContribution)
		}

		current, _, err := e.ledger.Balance(tx, c.UserID)
		if err != nil {
			return nil, err
		}
		if c.Points > current {
			return nil, &InsufficientPointsError{UserID: c.UserID, Requested: c.Points, Available: current}
		}
		total += c.Points
	}
	if total != reward.CostPoints {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrSplitMismatch, total, reward.CostPoints)
	}

	ordered := make([]Contribution, len(contributions))
	copy(ordered, contributions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	groupID := uuid.NewString()
	now := e.now().UTC()
	txIDs := make(map[int64]int64, len(ordered))
	for _, c := range ordered {
		if c.Points == 0 {
			continue
		}
		entry, err := e.ledger.Record(tx, ledger.Entry{
			UserID:            c.UserID,
			Type:              model.TxRedeem,
			BasePointsValue:   reward.CostPoints,
			MultiplierUsed:    1.0,
			AwardedPoints:     -c.Points,
			Description:       reward.Name,
			RedemptionGroupID: &groupID,
			Timestamp:         now,
		})
		if err != nil {
			return nil, err
		}
		txIDs[c.UserID] = entry.ID

		if err := e.clearGoal(tx, c.UserID, rewardID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit split redemption: %w", err)
	}

	receipt := &SplitReceipt{
		GroupID:    groupID,
		RewardName: reward.Name,
		CostPoints: reward.CostPoints,
	}
	for _, c := range contributions {
		if c.Points == 0 {
			continue
		}
		receipt.Contributions = append(receipt.Contributions, ContributionReceipt{
			UserID:        c.UserID,
			Points:        c.Points,
			TransactionID: txIDs[c.UserID],
		})
	}
	return receipt, nil
}

func (e *Engine) loadInstanceAndTask(tx *sql.Tx, instanceID int64) (*model.TaskInstance, *model.Task, error) {
	var ti model.TaskInstance
	var completedAt sql.NullTime
	var photo sql.NullString
	err := tx.QueryRow(
		`SELECT id, task_id, user_id, due_time, status, completed_at, completion_photo_url
		FROM task_instances WHERE id = ?`,
		instanceID,
	).Scan(&ti.ID, &ti.TaskID, &ti.UserID, &ti.DueTime, &ti.Status, &completedAt, &photo)
	if err == sql.ErrNoRows {
		return nil, nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load instance: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		ti.CompletedAt = &t
	}
	if photo.Valid {
		ti.CompletionPhotoURL = &photo.String
	}

	var task model.Task
	var roleID sql.NullInt64
	var minDays, maxDays sql.NullInt64
	var photoRequired int
	err = tx.QueryRow(
		`SELECT id, name, description, base_points, assigned_role_id, schedule_type,
			default_due_time, recurrence_min_days, recurrence_max_days, requires_photo_verification
		FROM tasks WHERE id = ?`,
		ti.TaskID,
	).Scan(&task.ID, &task.Name, &task.Description, &task.BasePoints, &roleID,
		&task.ScheduleType, &task.DefaultDueTime, &minDays, &maxDays, &photoRequired)
	if err != nil {
		return nil, nil, fmt.Errorf("load task: %w", err)
	}
	if roleID.Valid {
		task.AssignedRoleID = &roleID.Int64
	}
	task.RequiresPhotoVerification = photoRequired != 0

	return &ti, &task, nil
}

func (e *Engine) loadReward(tx *sql.Tx, rewardID int64) (*model.Reward, error) {
	var r model.Reward
	err := tx.QueryRow(
		`SELECT id, name, cost_points, description, tier_level FROM rewards WHERE id = ?`,
		rewardID,
	).Scan(&r.ID, &r.Name, &r.CostPoints, &r.Description, &r.TierLevel)
	if err == sql.ErrNoRows {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reward: %w", err)
	}
	return &r, nil
}

// clearGoal drops the user's goal when they just redeemed it.
func (e *Engine) clearGoal(tx *sql.Tx, userID, rewardID int64) error {
	_, err := tx.Exec(
		`UPDATE users SET current_goal_reward_id = NULL
		WHERE id = ? AND current_goal_reward_id = ?`,
		userID, rewardID,
	)
	if err != nil {
		return fmt.Errorf("clear goal: %w", err)
	}
	return nil
}
