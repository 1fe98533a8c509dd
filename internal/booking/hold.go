package booking

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/track"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/metrics"
)

const (
	originRequest = "request"
	originSweeper = "sweeper"

	reasonHoldExpired    = "Hold period expired"
	reasonPaymentExpired = "Payment window expired"
	reasonPaymentFailed  = "Payment failed"
)

type PlaceHoldInput struct {
	CarID       uuid.UUID
	Start       time.Time
	Laps        int
	PriceForLap float64
	VoucherCode string
	Package     reservation.Package
	Trace       reservation.Trace
	Customer    reservation.Customer
	Extras      reservation.Extras
}

func (in PlaceHoldInput) validate() error {
	switch {
	case in.CarID == uuid.Nil:
		return internaltypes.InvalidInput("car id is required")
	case in.Start.IsZero():
		return internaltypes.InvalidInput("time window is empty")
	case in.Laps < 1:
		return internaltypes.InvalidInput("laps must be at least 1")
	case in.PriceForLap < 0:
		return internaltypes.InvalidInput("price must not be negative")
	case strings.TrimSpace(in.Customer.FullName) == "":
		return internaltypes.InvalidInput("full name is required")
	case strings.TrimSpace(in.Customer.PhoneNumber) == "":
		return internaltypes.InvalidInput("phone number is required")
	}
	if _, err := mail.ParseAddress(in.Customer.Email); err != nil {
		return internaltypes.InvalidInput("email is invalid")
	}
	return nil
}

// PlaceHold reserves the car for the 2h window starting at in.Start.
// The car row lock, the conflict check and the insert share one transaction, so of
// two overlapping requests for the same car at most one succeeds.
func (s *Service) PlaceHold(ctx context.Context, in PlaceHoldInput) (reservation.Reservation, error) {
	if err := in.validate(); err != nil {
		return reservation.Reservation{}, err
	}
	w := reservation.NewWindow(in.Start)

	var voucherID *uuid.UUID
	if strings.TrimSpace(in.VoucherCode) != "" {
		v, err := s.guard.Validate(ctx, in.VoucherCode)
		if err != nil {
			metrics.HoldsRejected.WithLabelValues("voucher").Inc()
			return reservation.Reservation{}, err
		}
		voucherID = &v.ID
	}

	if err := s.checkTrack(ctx, w); err != nil {
		metrics.HoldsRejected.WithLabelValues("track").Inc()
		return reservation.Reservation{}, err
	}

	pkg := in.Package
	if pkg == "" {
		pkg = reservation.PackageBase
	}
	id := uuid.New()

	var res reservation.Reservation
	err := s.inTx(ctx, func(ctx context.Context) error {
		c, err := s.carStore.GetForUpdate(ctx, in.CarID)
		if err != nil {
			if internaltypes.KindOf(err) == internaltypes.KindNotFound {
				return internaltypes.ResourceUnavailable("Car", "the selected car does not exist")
			}
			return err
		}
		if c.Withdrawn {
			return internaltypes.ResourceUnavailable("Car", "the selected car is not available for booking")
		}

		conflict, err := s.conflicts.HasConflict(ctx, in.CarID, w.Start, w.End)
		if err != nil {
			return err
		}
		if conflict {
			return internaltypes.ResourceUnavailable("Car", "the selected car is already reserved for an overlapping time slot")
		}

		r := reservation.NewHold(id, in.CarID, w, s.clock.Now(), s.holdDuration)
		r.Laps = in.Laps
		r.PriceForLap = in.PriceForLap
		r.VoucherID = voucherID
		r.Package = pkg
		r.Trace = in.Trace
		r.Customer = in.Customer
		r.Extras = in.Extras
		if err := s.store.Insert(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		if internaltypes.KindOf(err) == internaltypes.KindResourceUnavailable {
			metrics.HoldsRejected.WithLabelValues("car").Inc()
		}
		return reservation.Reservation{}, err
	}

	metrics.HoldsPlaced.Inc()
	s.log.Info("hold placed", "reservation_id", res.ID, "car_id", res.CarID,
		"window_start", res.Window.Start, "hold_expires_at", res.HoldExpiresAt)
	s.publish(ctx, res)
	return res, nil
}

// checkTrack rejects windows on dates the track calendar reports as closed.
// A missing or failing provider counts as unknown and is decided by the unknown policy.
func (s *Service) checkTrack(ctx context.Context, w reservation.Window) error {
	date := w.Start.In(s.trackLoc).Format(time.DateOnly)
	a := track.Availability{Date: date, Status: track.StatusUnknown}
	if s.track != nil {
		got, err := s.track.TrackStatus(ctx, date)
		if err != nil {
			s.log.Warn("track status unavailable", "date", date, "error", err)
		} else {
			a = got
		}
	}
	if !s.unknownPolicy.Allows(a) {
		detail := a.Message
		if detail == "" {
			detail = "the track is not open on " + date
		}
		return internaltypes.ResourceUnavailable("Track", detail)
	}
	return nil
}

// ConfirmHold turns a TEMPORARY_HOLD into a CONFIRMED booking. Any attached voucher
// is redeemed in the same transaction. The calendar is notified after commit and
// its failure does not fail the confirmation.
func (s *Service) ConfirmHold(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	return s.confirm(ctx, id, reservation.StatusTemporaryHold)
}

// CompletePayment confirms a reservation whose payment was initiated.
func (s *Service) CompletePayment(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	return s.confirm(ctx, id, reservation.StatusPendingPayment)
}

func (s *Service) confirm(ctx context.Context, id uuid.UUID, from reservation.Status) (reservation.Reservation, error) {
	var res reservation.Reservation
	err := s.inTx(ctx, func(ctx context.Context) error {
		r, err := s.store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != from {
			return internaltypes.InvalidStatusTransition(string(r.Status), string(reservation.StatusConfirmed))
		}
		now := s.clock.Now()
		if err := r.Apply(reservation.StatusConfirmed, now, ""); err != nil {
			return err
		}

		if r.VoucherID != nil {
			v, err := s.vouchers.GetForUpdate(ctx, *r.VoucherID)
			if err != nil {
				if internaltypes.KindOf(err) == internaltypes.KindNotFound {
					return internaltypes.VoucherInvalid("invalid voucher code")
				}
				return err
			}
			if err := v.Redeem(now); err != nil {
				return err
			}
			if err := s.vouchers.SaveRedemption(ctx, v); err != nil {
				return err
			}
		}

		if err := s.store.SaveTransition(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return reservation.Reservation{}, err
	}

	s.committed(ctx, res, originRequest)
	if eventID, ok := s.notifyCalendar(ctx, res); ok {
		res.CalendarEventID = eventID
	}
	return res, nil
}

// InitiatePayment moves a hold to PENDING_PAYMENT. The payment deadline stays
// the hold deadline.
func (s *Service) InitiatePayment(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.StatusPendingPayment, "")
}

// FailPayment records a failed payment signal for a PENDING_PAYMENT reservation.
func (s *Service) FailPayment(ctx context.Context, id uuid.UUID, reason string) (reservation.Reservation, error) {
	if strings.TrimSpace(reason) == "" {
		reason = reasonPaymentFailed
	}
	return s.transition(ctx, id, reservation.StatusPaymentFailed, reason)
}

// CancelReservation cancels any non-terminal reservation. reason is required.
func (s *Service) CancelReservation(ctx context.Context, id uuid.UUID, reason string) (reservation.Reservation, error) {
	if strings.TrimSpace(reason) == "" {
		return reservation.Reservation{}, internaltypes.InvalidInput("cancellation reason is required")
	}
	return s.transition(ctx, id, reservation.StatusCancelled, reason)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target reservation.Status, reason string) (reservation.Reservation, error) {
	var res reservation.Reservation
	err := s.inTx(ctx, func(ctx context.Context) error {
		r, err := s.store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Apply(target, s.clock.Now(), reason); err != nil {
			return err
		}
		if err := s.store.SaveTransition(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return reservation.Reservation{}, err
	}
	s.committed(ctx, res, originRequest)
	return res, nil
}

func (s *Service) committed(ctx context.Context, r reservation.Reservation, origin string) {
	metrics.Transitions.WithLabelValues(string(r.Status), origin).Inc()
	s.log.Info("reservation transitioned", "reservation_id", r.ID, "status", r.Status, "origin", origin)
	s.publish(ctx, r)
}

// notifyCalendar creates the external calendar entry for a confirmed booking.
// It never returns an error; failures are left to the calendar sync task.
func (s *Service) notifyCalendar(ctx context.Context, r reservation.Reservation) (string, bool) {
	if s.calendar == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.calendarTimeout)
	defer cancel()

	eventID, err := s.createEvent(ctx, r)
	if err != nil {
		metrics.CalendarFailures.Inc()
		s.log.Warn("calendar notification failed", "reservation_id", r.ID, "error", err)
		return "", false
	}
	return eventID, true
}

func (s *Service) createEvent(ctx context.Context, r reservation.Reservation) (string, error) {
	c, err := s.cars.Get(ctx, r.CarID)
	if err != nil {
		s.log.Warn("car lookup for calendar failed", "car_id", r.CarID, "error", err)
		c = car.Car{ID: r.CarID}
	}
	eventID, err := s.calendar.Notify(ctx, r, c)
	if err != nil {
		return "", err
	}
	if err := s.store.SetCalendarEventID(ctx, r.ID, eventID); err != nil {
		s.log.Error("storing calendar event id failed", "reservation_id", r.ID, "event_id", eventID, "error", err)
	}
	return eventID, nil
}
