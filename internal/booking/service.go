package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/cars"
	"github.com/hristiyandudev55/nurblifebg/internal/clock"
	"github.com/hristiyandudev55/nurblifebg/internal/db"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/track"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
	"github.com/hristiyandudev55/nurblifebg/internal/events"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/logger"
	"github.com/hristiyandudev55/nurblifebg/internal/metrics"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
	"github.com/hristiyandudev55/nurblifebg/internal/vouchers"
)

// ReservationStore is the transactional reservation storage. Methods called with a
// context returned by WithTx run inside that transaction.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Insert(ctx context.Context, r reservation.Reservation) error
	CountOverlapping(ctx context.Context, carID uuid.UUID, w reservation.Window, statuses []reservation.Status) (int, error)
	Get(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	GetForUpdateSkipLocked(ctx context.Context, id uuid.UUID) (reservation.Reservation, bool, error)
	SaveTransition(ctx context.Context, r reservation.Reservation) error
	ExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	PendingCalendarSync(ctx context.Context, limit int) ([]reservation.Reservation, error)
	SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error
	List(ctx context.Context, f reservations.ListFilter) ([]reservation.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CarStore interface {
	Create(ctx context.Context, c car.Car) error
	Get(ctx context.Context, id uuid.UUID) (car.Car, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (car.Car, error)
	List(ctx context.Context) ([]car.Car, error)
	SetWithdrawn(ctx context.Context, id uuid.UUID, withdrawn bool) error
}

type VoucherStore interface {
	Create(ctx context.Context, v voucher.Voucher) error
	GetByCode(ctx context.Context, code string) (voucher.Voucher, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (voucher.Voucher, error)
	SaveRedemption(ctx context.Context, v voucher.Voucher) error
}

// TrackStatusProvider answers whether the track is open on a track-local date (YYYY-MM-DD).
type TrackStatusProvider interface {
	TrackStatus(ctx context.Context, date string) (track.Availability, error)
}

// CalendarNotifier mirrors confirmed reservations into an external calendar.
type CalendarNotifier interface {
	Notify(ctx context.Context, r reservation.Reservation, c car.Car) (eventID string, err error)
	FindEvent(ctx context.Context, reservationID uuid.UUID) (eventID string, found bool, err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

const (
	defaultOperationTimeout = 10 * time.Second
	defaultCalendarTimeout  = 5 * time.Second
	defaultPublishTimeout   = 2 * time.Second
	defaultTxAttempts       = 3
	defaultTxBackoff        = 50 * time.Millisecond
	defaultCarCacheSize     = 256
	defaultBatchSize        = 200
)

// Service implements the reservation lifecycle: holds, confirmation, cancellation
// and the periodic expiry and calendar passes.
type Service struct {
	store     ReservationStore
	carStore  CarStore
	cars      *cars.Cache
	vouchers  VoucherStore
	guard     *vouchers.Guard
	conflicts *ConflictDetector

	track         TrackStatusProvider
	unknownPolicy track.UnknownPolicy
	trackLoc      *time.Location
	calendar      CalendarNotifier
	events        EventPublisher

	clock clock.Clock
	log   *logger.Logger

	holdDuration    time.Duration
	opTimeout       time.Duration
	calendarTimeout time.Duration
	publishTimeout  time.Duration
	txAttempts      int
	txBackoff       time.Duration
	carCacheSize    int
	batchSize       int
}

type Option func(*Service)

// WithHoldDuration overrides how long a new hold lives.
func WithHoldDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

// WithOperationTimeout bounds each transactional operation including its retries.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithTxRetry sets how often a transaction failing with a transient error is retried.
func WithTxRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.txAttempts = attempts
		}
		if backoff > 0 {
			s.txBackoff = backoff
		}
	}
}

// WithTrackStatus enables the track-open check. loc is the track's timezone,
// used to derive the calendar date of a slot.
func WithTrackStatus(p TrackStatusProvider, policy track.UnknownPolicy, loc *time.Location) Option {
	return func(s *Service) {
		s.track = p
		if policy != "" {
			s.unknownPolicy = policy
		}
		if loc != nil {
			s.trackLoc = loc
		}
	}
}

func WithCalendar(n CalendarNotifier) Option {
	return func(s *Service) { s.calendar = n }
}

func WithEvents(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithPublishTimeout bounds how long a request waits on the event broker after commit.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithCarCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.carCacheSize = n
		}
	}
}

// WithBatchSize limits how many rows one sweep or calendar sync pass handles.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func NewService(store ReservationStore, carStore CarStore, voucherStore VoucherStore, clk clock.Clock, log *logger.Logger, opts ...Option) (*Service, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:           store,
		carStore:        carStore,
		vouchers:        voucherStore,
		conflicts:       NewConflictDetector(store),
		unknownPolicy:   track.UnknownAsOpen,
		trackLoc:        time.UTC,
		events:          events.Nop{},
		clock:           clk,
		log:             log,
		holdDuration:    reservation.DefaultHoldDuration,
		opTimeout:       defaultOperationTimeout,
		calendarTimeout: defaultCalendarTimeout,
		publishTimeout:  defaultPublishTimeout,
		txAttempts:      defaultTxAttempts,
		txBackoff:       defaultTxBackoff,
		carCacheSize:    defaultCarCacheSize,
		batchSize:       defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := cars.NewCache(carStore, s.carCacheSize)
	if err != nil {
		return nil, err
	}
	s.cars = cache
	s.guard = vouchers.NewGuard(voucherStore, clk)
	return s, nil
}

// inTx runs fn in a transaction under the operation timeout, retrying transient
// database failures. Exhausted retries and timeouts surface as Transient.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	err := db.Retry(ctx, s.txAttempts, s.txBackoff, func() error {
		return s.store.WithTx(ctx, fn)
	})
	if err == nil {
		return nil
	}
	if db.IsTransient(err) {
		metrics.TxRetriesExhausted.Inc()
		return internaltypes.Transient(err)
	}
	if errors.Is(err, context.DeadlineExceeded) && internaltypes.KindOf(err) == internaltypes.KindUnknown {
		return internaltypes.Transient(err)
	}
	return err
}

// publish sends a lifecycle event after commit, bounded by the publish timeout.
// Failures are logged only.
func (s *Service) publish(ctx context.Context, r reservation.Reservation) {
	e := events.New(r, s.clock.Now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.Warn("event publish failed", "event_type", e.Type, "reservation_id", r.ID, "error", err)
	}
}
