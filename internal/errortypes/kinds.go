package errortypes

import (
	"errors"
	"fmt"
)

// Sentinel errors for the grouping core. Callers match them with errors.Is;
// the AppError wrappers added by the organizer keep them reachable.
var (
	// Malformed numeric input. Always fixable by the caller.
	ErrInvalidVector     = errors.New("invalid vector")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmptyInput        = errors.New("empty input")
	ErrInvalidParameter  = errors.New("invalid parameter")

	// Referential failures.
	ErrItemNotFound        = errors.New("item not found")
	ErrTargetGroupNotFound = errors.New("target group not found")
	ErrNoItems             = errors.New("no items")

	// Internal consistency violations.
	ErrNoValidMembers    = errors.New("no valid members")
	ErrPartitionUnusable = errors.New("partition unusable")
	ErrLostDuringRebuild = errors.New("item lost during rebuild")
)

// DimensionMismatchError reports two vectors of different lengths.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrDimensionMismatch) hold.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// InvalidVectorError names the item whose vector could not be used.
type InvalidVectorError struct {
	ItemID string
	Reason string
	Err    error
}

func (e *InvalidVectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid vector for item %q: %s: %v", e.ItemID, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid vector for item %q: %s", e.ItemID, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidVector) hold.
func (e *InvalidVectorError) Is(target error) bool {
	return target == ErrInvalidVector
}

func (e *InvalidVectorError) Unwrap() error {
	return e.Err
}
