package reservation

import "github.com/hristiyandudev55/nurblifebg/internal/internaltypes"

type Status string

const (
	StatusTemporaryHold  Status = "TEMPORARY_HOLD"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusExpired        Status = "EXPIRED"
	StatusPaymentFailed  Status = "PAYMENT_FAILED"
	StatusCancelled      Status = "CANCELLED"
)

// transitions lists the legal targets of each non-terminal status.
// Terminal statuses have no entry.
var transitions = map[Status][]Status{
	StatusTemporaryHold: {
		StatusPendingPayment,
		StatusConfirmed,
		StatusExpired,
		StatusCancelled,
	},
	StatusPendingPayment: {
		StatusConfirmed,
		StatusExpired,
		StatusPaymentFailed,
		StatusCancelled,
	},
}

// BlockingStatuses hold their slot against other reservations of the same car.
var BlockingStatuses = []Status{StatusTemporaryHold, StatusPendingPayment, StatusConfirmed}

func (s Status) Valid() bool {
	switch s {
	case StatusTemporaryHold, StatusPendingPayment, StatusConfirmed,
		StatusExpired, StatusPaymentFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	_, ok := transitions[s]
	return s.Valid() && !ok
}

// Blocks reports whether a reservation in this status occupies its slot.
func (s Status) Blocks() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// CanTransition reports whether current -> target is legal.
func CanTransition(current, target Status) bool {
	for _, t := range transitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

// Transition returns target when current -> target is legal and an
// InvalidStatusTransition error otherwise.
func Transition(current, target Status) (Status, error) {
	if !CanTransition(current, target) {
		return current, internaltypes.InvalidStatusTransition(string(current), string(target))
	}
	return target, nil
}
