package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

type OverlapCounter interface {
	CountOverlapping(ctx context.Context, carID uuid.UUID, w reservation.Window, statuses []reservation.Status) (int, error)
}

// ConflictDetector answers whether a car is already taken for a window.
// To be race free HasConflict must run in the transaction that inserts the hold.
type ConflictDetector struct {
	store OverlapCounter
}

func NewConflictDetector(store OverlapCounter) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// HasConflict reports whether any blocking reservation of carID overlaps [start, end).
func (d *ConflictDetector) HasConflict(ctx context.Context, carID uuid.UUID, start, end time.Time) (bool, error) {
	w := reservation.Window{Start: start.UTC(), End: end.UTC()}
	if w.Empty() {
		return false, internaltypes.InvalidInput("time window is empty")
	}
	n, err := d.store.CountOverlapping(ctx, carID, w, reservation.BlockingStatuses)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
