package reservation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

const (
	// SlotDuration is the fixed length of every driving slot.
	SlotDuration = 2 * time.Hour
	// DefaultHoldDuration is how long a temporary hold lives before the sweeper expires it.
	DefaultHoldDuration = 30 * time.Minute
)

type Package string

const (
	PackageBase    Package = "base_package"
	PackagePremium Package = "premium_package"
)

type Trace string

const (
	TracePublicSession    Trace = "public_session"
	TraceTrackday         Trace = "trackday"
	TraceGPTrack          Trace = "gp_track"
	TraceSpaFrancorchamps Trace = "spa_francochamps"
)

type Customer struct {
	FullName    string
	Email       string
	PhoneNumber string
	Comment     string
}

type Extras struct {
	ExtraDriver     bool
	VideoRecord     bool
	ExcessReduction bool
}

type Reservation struct {
	ID          uuid.UUID
	CarID       uuid.UUID
	Window      Window
	Laps        int
	PriceForLap float64
	VoucherID   *uuid.UUID
	Package     Package
	Trace       Trace
	Customer    Customer
	Extras      Extras
	Status      Status

	BookedAt           time.Time
	HoldPlacedAt       time.Time
	HoldExpiresAt      *time.Time
	PaymentInitiatedAt *time.Time
	PaymentCompletedAt *time.Time
	CanceledAt         *time.Time
	CancellationReason string

	// CalendarEventID is empty until the booking has an entry in the external calendar.
	CalendarEventID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewHold builds a reservation in TEMPORARY_HOLD placed at now.
func NewHold(id, carID uuid.UUID, w Window, now time.Time, holdFor time.Duration) Reservation {
	expires := now.Add(holdFor)
	return Reservation{
		ID:            id,
		CarID:         carID,
		Window:        w,
		Status:        StatusTemporaryHold,
		BookedAt:      now,
		HoldPlacedAt:  now,
		HoldExpiresAt: &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Expired reports whether the hold or payment deadline passed strictly before now.
func (r Reservation) Expired(now time.Time) bool {
	return r.HoldExpiresAt != nil && r.HoldExpiresAt.Before(now)
}

// Apply moves r to target and stamps the timestamps that belong to it.
// reason is required for CANCELLED and recorded for every failure status.
func (r *Reservation) Apply(target Status, now time.Time, reason string) error {
	reason = strings.TrimSpace(reason)
	if target == StatusCancelled && reason == "" {
		return internaltypes.InvalidInput("cancellation reason is required")
	}
	next, err := Transition(r.Status, target)
	if err != nil {
		return err
	}

	switch next {
	case StatusPendingPayment:
		r.PaymentInitiatedAt = &now
	case StatusConfirmed:
		r.PaymentCompletedAt = &now
		if r.HoldExpiresAt != nil && r.HoldExpiresAt.After(now) {
			r.HoldExpiresAt = &now
		}
	case StatusExpired, StatusPaymentFailed, StatusCancelled:
		r.CanceledAt = &now
		r.CancellationReason = reason
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}
