package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/metrics"
)

// SweepResult counts what one expiry pass did.
type SweepResult struct {
	Expired       int `json:"expired"`
	PaymentFailed int `json:"payment_failed"`
	// Skipped rows were locked by another transaction or no longer expired.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RunExpirySweep expires every hold and pending payment whose deadline has passed.
// Each row is locked and re-checked in its own transaction; rows locked by an
// in-flight request are left for the next run. Safe to run concurrently.
func (s *Service) RunExpirySweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	lctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	ids, err := s.store.ExpiredCandidates(lctx, s.clock.Now(), s.batchSize)
	cancel()
	if err != nil {
		return res, fmt.Errorf("list expired reservations: %w", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		r, changed, err := s.expireOne(ctx, id)
		switch {
		case err != nil:
			res.Failed++
			s.log.Error("expiring reservation failed", "reservation_id", id, "error", err)
		case !changed:
			res.Skipped++
			metrics.SweepRowsSkipped.Inc()
		case r.Status == reservation.StatusExpired:
			res.Expired++
			s.committed(ctx, r, originSweeper)
		case r.Status == reservation.StatusPaymentFailed:
			res.PaymentFailed++
			s.committed(ctx, r, originSweeper)
		}
	}

	if len(ids) > 0 {
		s.log.Info("expiry sweep finished", "candidates", len(ids), "expired", res.Expired,
			"payment_failed", res.PaymentFailed, "skipped", res.Skipped, "failed", res.Failed)
	}
	return res, nil
}

// CleanupExpired is the on-demand form of the expiry sweep.
func (s *Service) CleanupExpired(ctx context.Context) (SweepResult, error) {
	return s.RunExpirySweep(ctx)
}

func (s *Service) expireOne(ctx context.Context, id uuid.UUID) (res reservation.Reservation, changed bool, err error) {
	err = s.inTx(ctx, func(ctx context.Context) error {
		changed = false
		r, ok, err := s.store.GetForUpdateSkipLocked(ctx, id)
		if err != nil || !ok {
			return err
		}
		now := s.clock.Now()
		if !r.Expired(now) {
			return nil
		}

		var target reservation.Status
		var reason string
		switch r.Status {
		case reservation.StatusTemporaryHold:
			target, reason = reservation.StatusExpired, reasonHoldExpired
		case reservation.StatusPendingPayment:
			target, reason = reservation.StatusPaymentFailed, reasonPaymentExpired
		default:
			return nil
		}
		if err := r.Apply(target, now, reason); err != nil {
			return err
		}
		if err := s.store.SaveTransition(ctx, r); err != nil {
			return err
		}
		res, changed = r, true
		return nil
	})
	return res, changed, err
}

// SyncResult counts what one calendar sync pass did.
type SyncResult struct {
	Created int `json:"created"`
	// Linked rows already had a remote event and only needed its id stored.
	Linked int `json:"linked"`
	Failed int `json:"failed"`
}

// SyncCalendar creates external calendar entries for confirmed reservations that
// lack one. Failures are counted and retried on the next pass.
func (s *Service) SyncCalendar(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	if s.calendar == nil {
		return res, nil
	}

	lctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	pending, err := s.store.PendingCalendarSync(lctx, s.batchSize)
	cancel()
	if err != nil {
		return res, fmt.Errorf("list unsynced reservations: %w", err)
	}

	for _, r := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		cctx, cancel := context.WithTimeout(ctx, s.calendarTimeout)
		linked, err := s.syncOne(cctx, r)
		cancel()
		switch {
		case err != nil:
			res.Failed++
			metrics.CalendarFailures.Inc()
			s.log.Warn("calendar sync failed", "reservation_id", r.ID, "error", err)
		case linked:
			res.Linked++
		default:
			res.Created++
		}
	}

	if len(pending) > 0 {
		s.log.Info("calendar sync finished", "pending", len(pending), "created", res.Created,
			"linked", res.Linked, "failed", res.Failed)
	}
	return res, nil
}

func (s *Service) syncOne(ctx context.Context, r reservation.Reservation) (linked bool, err error) {
	eventID, found, err := s.calendar.FindEvent(ctx, r.ID)
	if err != nil {
		return false, err
	}
	if found {
		return true, s.store.SetCalendarEventID(ctx, r.ID, eventID)
	}
	_, err = s.createEvent(ctx, r)
	return false, err
}
