package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/track"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
	"github.com/hristiyandudev55/nurblifebg/internal/events"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
)

type memTxKey struct{}

// memStore is an in-memory store for reservations, cars and vouchers.
// Transactions are fully serialized and roll back on error, which is enough to
// reproduce the locking behaviour the service relies on.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	reservations map[uuid.UUID]reservation.Reservation
	cars         map[uuid.UUID]car.Car
	vouchers     map[uuid.UUID]voucher.Voucher

	// lockedElsewhere simulates rows held by a transaction outside the test.
	lockedElsewhere map[uuid.UUID]bool
	// failTx makes the next n transactions fail with a serialization error.
	failTx  int
	txCalls int
}

func newMemStore() *memStore {
	return &memStore{
		reservations:    map[uuid.UUID]reservation.Reservation{},
		cars:            map[uuid.UUID]car.Car{},
		vouchers:        map[uuid.UUID]voucher.Voucher{},
		lockedElsewhere: map[uuid.UUID]bool{},
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.txCalls++
	if m.failTx > 0 {
		m.failTx--
		m.mu.Unlock()
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	}
	resSnap := cloneMap(m.reservations)
	carSnap := cloneMap(m.cars)
	vSnap := cloneMap(m.vouchers)
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.reservations, m.cars, m.vouchers = resSnap, carSnap, vSnap
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) Insert(_ context.Context, r reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[r.ID] = r
	return nil
}

func (m *memStore) CountOverlapping(_ context.Context, carID uuid.UUID, w reservation.Window, statuses []reservation.Status) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reservations {
		if r.CarID != carID || !r.Window.Overlaps(w) {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return reservation.Reservation{}, internaltypes.ReservationNotFound(id.String())
	}
	return r, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id uuid.UUID) (reservation.Reservation, error) {
	return m.Get(ctx, id)
}

func (m *memStore) GetForUpdateSkipLocked(ctx context.Context, id uuid.UUID) (reservation.Reservation, bool, error) {
	m.mu.Lock()
	locked := m.lockedElsewhere[id]
	m.mu.Unlock()
	if locked {
		return reservation.Reservation{}, false, nil
	}
	r, err := m.Get(ctx, id)
	if internaltypes.KindOf(err) == internaltypes.KindNotFound {
		return reservation.Reservation{}, false, nil
	}
	return r, err == nil, err
}

func (m *memStore) SaveTransition(_ context.Context, r reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reservations[r.ID]
	if !ok {
		return internaltypes.ReservationNotFound(r.ID.String())
	}
	cur.Status = r.Status
	cur.HoldExpiresAt = r.HoldExpiresAt
	cur.PaymentInitiatedAt = r.PaymentInitiatedAt
	cur.PaymentCompletedAt = r.PaymentCompletedAt
	cur.CanceledAt = r.CanceledAt
	cur.CancellationReason = r.CancellationReason
	cur.UpdatedAt = r.UpdatedAt
	m.reservations[r.ID] = cur
	return nil
}

func (m *memStore) ExpiredCandidates(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range m.reservations {
		if (r.Status == reservation.StatusTemporaryHold || r.Status == reservation.StatusPendingPayment) && r.Expired(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(*out[j].HoldExpiresAt) })
	ids := make([]uuid.UUID, 0, len(out))
	for i, r := range out {
		if i == limit {
			break
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m *memStore) PendingCalendarSync(_ context.Context, limit int) ([]reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range m.reservations {
		if r.Status == reservation.StatusConfirmed && r.CalendarEventID == "" && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SetCalendarEventID(_ context.Context, id uuid.UUID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reservations[id]
	r.CalendarEventID = eventID
	m.reservations[id] = r
	return nil
}

func (m *memStore) List(_ context.Context, f reservations.ListFilter) ([]reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range m.reservations {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return internaltypes.ReservationNotFound(id.String())
	}
	delete(m.reservations, id)
	return nil
}

func (m *memStore) reservation(id uuid.UUID) reservation.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[id]
}

func (m *memStore) put(r reservation.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[r.ID] = r
}

// carStore and voucherStore views share the same maps and transaction.

type memCars struct{ *memStore }

func (c memCars) Create(_ context.Context, v car.Car) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cars[v.ID] = v
	return nil
}

func (c memCars) Get(_ context.Context, id uuid.UUID) (car.Car, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cars[id]
	if !ok {
		return car.Car{}, internaltypes.NotFound("car", id.String())
	}
	return v, nil
}

func (c memCars) GetForUpdate(ctx context.Context, id uuid.UUID) (car.Car, error) {
	return c.Get(ctx, id)
}

func (c memCars) List(_ context.Context) ([]car.Car, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]car.Car, 0, len(c.cars))
	for _, v := range c.cars {
		out = append(out, v)
	}
	return out, nil
}

func (c memCars) SetWithdrawn(_ context.Context, id uuid.UUID, withdrawn bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cars[id]
	if !ok {
		return internaltypes.NotFound("car", id.String())
	}
	v.Withdrawn = withdrawn
	c.cars[id] = v
	return nil
}

type memVouchers struct{ *memStore }

func (v memVouchers) Create(_ context.Context, in voucher.Voucher) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, existing := range v.vouchers {
		if existing.Code == in.Code {
			return internaltypes.InvalidInput("voucher code already exists")
		}
	}
	v.vouchers[in.ID] = in
	return nil
}

func (v memVouchers) GetByCode(_ context.Context, code string) (voucher.Voucher, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, existing := range v.vouchers {
		if existing.Code == code {
			return existing, nil
		}
	}
	return voucher.Voucher{}, internaltypes.NotFound("voucher", code)
}

func (v memVouchers) GetForUpdate(_ context.Context, id uuid.UUID) (voucher.Voucher, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	existing, ok := v.vouchers[id]
	if !ok {
		return voucher.Voucher{}, internaltypes.NotFound("voucher", id.String())
	}
	return existing, nil
}

func (v memVouchers) SaveRedemption(_ context.Context, in voucher.Voucher) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vouchers[in.ID] = in
	return nil
}

type fakeTrack struct {
	days map[string]track.Availability
	err  error
}

func (f *fakeTrack) TrackStatus(_ context.Context, date string) (track.Availability, error) {
	if f.err != nil {
		return track.Availability{}, f.err
	}
	if a, ok := f.days[date]; ok {
		return a, nil
	}
	return track.Availability{Date: date, Status: track.StatusUnknown}, nil
}

type fakeCalendar struct {
	mu       sync.Mutex
	err      error
	notified []uuid.UUID
	existing map[uuid.UUID]string
}

func (f *fakeCalendar) Notify(_ context.Context, r reservation.Reservation, _ car.Car) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.notified = append(f.notified, r.ID)
	return "evt-" + r.ID.String()[:8], nil
}

func (f *fakeCalendar) FindEvent(_ context.Context, id uuid.UUID) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	eventID, ok := f.existing[id]
	return eventID, ok, nil
}

func (f *fakeCalendar) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notified)
}

// stalledBroker never acknowledges and only returns once ctx is done.
type stalledBroker struct {
	mu          sync.Mutex
	sent        []events.Event
	hadDeadline bool
}

func (b *stalledBroker) Publish(ctx context.Context, e events.Event) error {
	_, ok := ctx.Deadline()
	b.mu.Lock()
	b.sent = append(b.sent, e)
	b.hadDeadline = ok
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}
