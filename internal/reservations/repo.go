package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/db"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

const columns = `id,car_id,window_start,window_end,laps,price_for_lap,voucher_id,package,trace,
full_name,email,phone_number,comment,extra_driver,video_record,excess_reduction,status,
booked_at,hold_placed_at,hold_expires_at,payment_initiated_at,payment_completed_at,canceled_at,
cancellation_reason,calendar_event_id,created_at,updated_at`

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// WithTx exposes the underlying transaction scope so callers can group repository calls.
func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

func (r *Repo) Insert(ctx context.Context, res reservation.Reservation) error {
	err := r.db.Exec(ctx, `
INSERT INTO reservations(`+columns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		res.ID, res.CarID, res.Window.Start, res.Window.End, res.Laps, res.PriceForLap, res.VoucherID,
		string(res.Package), string(res.Trace), res.Customer.FullName, res.Customer.Email,
		res.Customer.PhoneNumber, res.Customer.Comment, res.Extras.ExtraDriver, res.Extras.VideoRecord,
		res.Extras.ExcessReduction, string(res.Status), res.BookedAt, res.HoldPlacedAt, res.HoldExpiresAt,
		res.PaymentInitiatedAt, res.PaymentCompletedAt, res.CanceledAt, res.CancellationReason,
		res.CalendarEventID, res.CreatedAt, res.UpdatedAt,
	)
	if db.IsExclusionViolation(err) {
		return internaltypes.ResourceUnavailable("Car", "the selected car is already reserved for an overlapping time slot")
	}
	return err
}

// CountOverlapping counts reservations of carID in one of statuses whose window overlaps w.
func (r *Repo) CountOverlapping(ctx context.Context, carID uuid.UUID, w reservation.Window, statuses []reservation.Status) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
SELECT count(*)
FROM reservations
WHERE car_id=$1
  AND window_start < $3
  AND window_end > $2
  AND status = ANY($4)`,
		carID, w.Start, w.End, statusStrings(statuses),
	).Scan(&n)
	return n, err
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	return r.getOne(ctx, id, ``)
}

// GetForUpdate loads and row-locks the reservation; it must run inside WithTx.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	return r.getOne(ctx, id, ` FOR UPDATE`)
}

// GetForUpdateSkipLocked is GetForUpdate that gives up immediately when another
// transaction holds the row. ok is false when the row is locked or gone.
func (r *Repo) GetForUpdateSkipLocked(ctx context.Context, id uuid.UUID) (res reservation.Reservation, ok bool, err error) {
	res, err = r.getOne(ctx, id, ` FOR UPDATE SKIP LOCKED`)
	if internaltypes.KindOf(err) == internaltypes.KindNotFound {
		return reservation.Reservation{}, false, nil
	}
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	return res, true, nil
}

func (r *Repo) getOne(ctx context.Context, id uuid.UUID, lock string) (reservation.Reservation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+columns+` FROM reservations WHERE id=$1`+lock, id)
	res, err := scan(row)
	if err != nil {
		if db.IsNotFound(err) {
			return reservation.Reservation{}, internaltypes.ReservationNotFound(id.String())
		}
		return reservation.Reservation{}, fmt.Errorf("db: %w", err)
	}
	return res, nil
}

// SaveTransition persists the status and lifecycle timestamps of res.
func (r *Repo) SaveTransition(ctx context.Context, res reservation.Reservation) error {
	n, err := r.db.ExecCount(ctx, `
UPDATE reservations
SET status=$2, hold_expires_at=$3, payment_initiated_at=$4, payment_completed_at=$5,
    canceled_at=$6, cancellation_reason=$7, updated_at=$8
WHERE id=$1`,
		res.ID, string(res.Status), res.HoldExpiresAt, res.PaymentInitiatedAt, res.PaymentCompletedAt,
		res.CanceledAt, res.CancellationReason, res.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return internaltypes.ReservationNotFound(res.ID.String())
	}
	return nil
}

// ExpiredCandidates returns ids of holds and pending payments whose deadline is before now.
// No locks are taken; callers re-check each row under its own lock.
func (r *Repo) ExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
SELECT id
FROM reservations
WHERE status IN ('TEMPORARY_HOLD','PENDING_PAYMENT')
  AND hold_expires_at < $1
ORDER BY hold_expires_at ASC
LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PendingCalendarSync returns confirmed reservations without an external calendar entry.
func (r *Repo) PendingCalendarSync(ctx context.Context, limit int) ([]reservation.Reservation, error) {
	return r.list(ctx, `
SELECT `+columns+`
FROM reservations
WHERE status='CONFIRMED' AND calendar_event_id=''
ORDER BY payment_completed_at ASC
LIMIT $1`, limit)
}

func (r *Repo) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return r.db.Exec(ctx, `UPDATE reservations SET calendar_event_id=$2 WHERE id=$1`, id, eventID)
}

type ListFilter struct {
	Status reservation.Status
	CarID  uuid.UUID
	Limit  int
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]reservation.Reservation, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var carID *uuid.UUID
	if f.CarID != uuid.Nil {
		carID = &f.CarID
	}
	return r.list(ctx, `
SELECT `+columns+`
FROM reservations
WHERE ($1 = '' OR status = $1)
  AND ($2::uuid IS NULL OR car_id = $2)
ORDER BY window_start DESC
LIMIT $3`, string(f.Status), carID, f.Limit)
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.db.ExecCount(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return internaltypes.ReservationNotFound(id.String())
	}
	return nil
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]reservation.Reservation, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		res, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scan(row db.Row) (reservation.Reservation, error) {
	var (
		res              reservation.Reservation
		pkg, trace, stat string
	)
	err := row.Scan(
		&res.ID, &res.CarID, &res.Window.Start, &res.Window.End, &res.Laps, &res.PriceForLap, &res.VoucherID,
		&pkg, &trace, &res.Customer.FullName, &res.Customer.Email, &res.Customer.PhoneNumber,
		&res.Customer.Comment, &res.Extras.ExtraDriver, &res.Extras.VideoRecord, &res.Extras.ExcessReduction,
		&stat, &res.BookedAt, &res.HoldPlacedAt, &res.HoldExpiresAt, &res.PaymentInitiatedAt,
		&res.PaymentCompletedAt, &res.CanceledAt, &res.CancellationReason, &res.CalendarEventID,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return reservation.Reservation{}, err
	}
	res.Package = reservation.Package(pkg)
	res.Trace = reservation.Trace(trace)
	res.Status = reservation.Status(stat)
	return res, nil
}

func statusStrings(ss []reservation.Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
