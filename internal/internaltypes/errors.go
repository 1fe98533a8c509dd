package internaltypes

import (
	"errors"
	"fmt"
)

// Kind tags an Error. Callers branch on the kind rather than on concrete types.
type Kind int

const (
	KindUnknown Kind = iota
	KindResourceUnavailable
	KindInvalidStatusTransition
	KindNotFound
	KindVoucherInvalid
	KindExternalServiceFailure
	KindInvalidInput
	KindTransient
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindResourceUnavailable:
		return "resource_unavailable"
	case KindInvalidStatusTransition:
		return "invalid_status_transition"
	case KindNotFound:
		return "not_found"
	case KindVoucherInvalid:
		return "voucher_invalid"
	case KindExternalServiceFailure:
		return "external_service_failure"
	case KindInvalidInput:
		return "invalid_input"
	case KindTransient:
		return "transient"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is the single error shape returned by the reservation core.
// Only the fields relevant to Kind are populated.
type Error struct {
	Kind Kind

	ResourceType string // ResourceUnavailable
	Detail       string // ResourceUnavailable, InvalidInput
	Current      string // InvalidStatusTransition
	Target       string // InvalidStatusTransition
	Resource     string // NotFound
	ID           string // NotFound
	Reason       string // VoucherInvalid
	Service      string // ExternalServiceFailure

	Err error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindResourceUnavailable:
		msg = fmt.Sprintf("%s unavailable: %s", e.ResourceType, e.Detail)
	case KindInvalidStatusTransition:
		msg = fmt.Sprintf("invalid status transition from %s to %s", e.Current, e.Target)
	case KindNotFound:
		msg = fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	case KindVoucherInvalid:
		msg = "voucher invalid: " + e.Reason
	case KindExternalServiceFailure:
		msg = e.Service + " service failure"
	case KindInvalidInput:
		msg = "invalid input: " + e.Detail
	case KindTransient:
		msg = "transient failure, retry later"
	case KindUnauthorized:
		msg = "unauthorized"
	default:
		msg = "unknown error"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so sentinel-style checks like
// errors.Is(err, ErrUnauthorized) keep working.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.ResourceType == "" && t.Resource == "" && t.Current == ""
}

func ResourceUnavailable(resourceType, detail string) *Error {
	return &Error{Kind: KindResourceUnavailable, ResourceType: resourceType, Detail: detail}
}

func InvalidStatusTransition(current, target string) *Error {
	return &Error{Kind: KindInvalidStatusTransition, Current: current, Target: target}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: id}
}

// ReservationNotFound is NotFound for the reservation aggregate.
func ReservationNotFound(id string) *Error {
	return NotFound("reservation", id)
}

func VoucherInvalid(reason string) *Error {
	return &Error{Kind: KindVoucherInvalid, Reason: reason}
}

func ExternalServiceFailure(service string, err error) *Error {
	return &Error{Kind: KindExternalServiceFailure, Service: service, Err: err}
}

func InvalidInput(detail string) *Error {
	return &Error{Kind: KindInvalidInput, Detail: detail}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// As is errors.As specialised to *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
