package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/track"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
)

func (s *Service) GetReservation(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.store.Get(ctx, id)
}

func (s *Service) ListReservations(ctx context.Context, f reservations.ListFilter) ([]reservation.Reservation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, internaltypes.InvalidInput("unknown status " + string(f.Status))
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.store.List(ctx, f)
}

// DeleteReservation removes a reservation row. Administrative only.
func (s *Service) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("reservation deleted", "reservation_id", id)
	return nil
}

// TrackDay is the track calendar's answer for a date plus whether holds are accepted.
type TrackDay struct {
	track.Availability
	Bookable bool `json:"bookable"`
}

func (s *Service) TrackAvailability(ctx context.Context, date string) (TrackDay, error) {
	if _, err := time.ParseInLocation(time.DateOnly, date, s.trackLoc); err != nil {
		return TrackDay{}, internaltypes.InvalidInput("date must be YYYY-MM-DD")
	}
	a := track.Availability{Date: date, Status: track.StatusUnknown, Message: "No information available for this date."}
	if s.track != nil {
		var err error
		a, err = s.track.TrackStatus(ctx, date)
		if err != nil {
			return TrackDay{}, internaltypes.ExternalServiceFailure("track calendar", err)
		}
	}
	return TrackDay{Availability: a, Bookable: s.unknownPolicy.Allows(a)}, nil
}

// CarAvailability reports whether the car is free for the slot starting at hour
// (HH:MM, track local time) on date.
func (s *Service) CarAvailability(ctx context.Context, carID uuid.UUID, date, hour string) (bool, error) {
	w, err := reservation.SlotAt(date, hour, s.trackLoc)
	if err != nil {
		return false, internaltypes.InvalidInput("date must be YYYY-MM-DD and hour HH:MM")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	c, err := s.cars.Get(ctx, carID)
	if err != nil {
		return false, err
	}
	if c.Withdrawn {
		return false, nil
	}
	conflict, err := s.conflicts.HasConflict(ctx, carID, w.Start, w.End)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

func (s *Service) AddCar(ctx context.Context, c car.Car) (car.Car, error) {
	c.Make = strings.TrimSpace(c.Make)
	c.Model = strings.TrimSpace(c.Model)
	if c.Make == "" || c.Model == "" {
		return car.Car{}, internaltypes.InvalidInput("make and model are required")
	}
	if c.HP < 0 || c.PriceForLap < 0 {
		return car.Car{}, internaltypes.InvalidInput("hp and price must not be negative")
	}
	now := s.clock.Now()
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = now, now

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.carStore.Create(ctx, c); err != nil {
		return car.Car{}, err
	}
	return c, nil
}

func (s *Service) Car(ctx context.Context, id uuid.UUID) (car.Car, error) {
	return s.cars.Get(ctx, id)
}

func (s *Service) Cars(ctx context.Context) ([]car.Car, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.carStore.List(ctx)
}

// SetCarWithdrawn takes a car out of (or back into) the bookable fleet.
// Existing reservations are untouched.
func (s *Service) SetCarWithdrawn(ctx context.Context, id uuid.UUID, withdrawn bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	err := s.carStore.SetWithdrawn(ctx, id, withdrawn)
	s.cars.Invalidate(id)
	return err
}

const issueAttempts = 3

// IssueVoucher creates an ACTIVE voucher with a fresh random code.
// A zero validity means voucher.DefaultValidity.
func (s *Service) IssueVoucher(ctx context.Context, amount int, validity time.Duration) (voucher.Voucher, error) {
	if amount <= 0 {
		return voucher.Voucher{}, internaltypes.InvalidInput("amount must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var err error
	for i := 0; i < issueAttempts; i++ {
		var code string
		if code, err = voucher.GenerateCode(); err != nil {
			return voucher.Voucher{}, err
		}
		v := voucher.New(code, amount, s.clock.Now(), validity)
		if err = s.vouchers.Create(ctx, v); err == nil {
			s.log.Info("voucher issued", "voucher_id", v.ID, "amount", amount)
			return v, nil
		}
		// a code collision is reported as invalid input; try another code
		if internaltypes.KindOf(err) != internaltypes.KindInvalidInput {
			return voucher.Voucher{}, err
		}
	}
	return voucher.Voucher{}, err
}

// ValidateVoucher checks a code without consuming it.
func (s *Service) ValidateVoucher(ctx context.Context, code string) (voucher.Voucher, error) {
	return s.guard.Validate(ctx, code)
}
