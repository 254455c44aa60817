package points

import (
	"errors"
	"fmt"
)

// Validation and conflict errors surfaced by the engine. Handlers map
// these onto HTTP status codes; nothing here is ever swallowed.
var (
	ErrInstanceNotFound = errors.New("task instance not found")
	ErrRewardNotFound   = errors.New("reward not found")

	// ErrAlreadyTerminal means the instance is COMPLETED or REJECTED.
	// Completing twice fails loudly rather than silently succeeding, so
	// a double award can never happen.
	ErrAlreadyTerminal = errors.New("task instance already finalized")

	// ErrReviewRequired means the task needs photo verification and the
	// instance has not been approved yet.
	ErrReviewRequired = errors.New("photo review required before completion")

	// ErrReviewNotRequired means submit-review was called on a task
	// that completes directly.
	ErrReviewNotRequired = errors.New("task does not require photo review")

	// ErrNotInReview means approve/reject was called on an instance
	// that is not waiting for review.
	ErrNotInReview = errors.New("task instance is not in review")

	// ErrSplitMismatch means the split contributions do not sum to the
	// reward's exact cost.
	ErrSplitMismatch = errors.New("split contributions must sum to the reward cost")

	ErrNoContributions      = errors.New("at least one contribution is required")
	ErrDuplicateContributor = errors.New("duplicate contributor in split")
	ErrNegativeContribution = errors.New("contribution points must be >= 0")
)

// InsufficientPointsError names the account that cannot cover its
// share, so split failures point at the offending user.
type InsufficientPointsError struct {
	UserID    int64
	Requested int
	Available int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("user %d has %d points, needs %d", e.UserID, e.Available, e.Requested)
}
