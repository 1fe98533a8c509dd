package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/hristiyandudev55/nurblifebg/internal/auth"
	"github.com/hristiyandudev55/nurblifebg/internal/booking"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/logger"
	"github.com/hristiyandudev55/nurblifebg/internal/metrics"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
)

// Service is the reservation core as seen by the HTTP layer.
type Service interface {
	PlaceHold(ctx context.Context, in booking.PlaceHoldInput) (reservation.Reservation, error)
	ConfirmHold(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	InitiatePayment(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	CompletePayment(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	FailPayment(ctx context.Context, id uuid.UUID, reason string) (reservation.Reservation, error)
	CancelReservation(ctx context.Context, id uuid.UUID, reason string) (reservation.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	ListReservations(ctx context.Context, f reservations.ListFilter) ([]reservation.Reservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	RunExpirySweep(ctx context.Context) (booking.SweepResult, error)
	SyncCalendar(ctx context.Context) (booking.SyncResult, error)
	TrackAvailability(ctx context.Context, date string) (booking.TrackDay, error)
	CarAvailability(ctx context.Context, carID uuid.UUID, date, hour string) (bool, error)
	AddCar(ctx context.Context, c car.Car) (car.Car, error)
	Car(ctx context.Context, id uuid.UUID) (car.Car, error)
	Cars(ctx context.Context) ([]car.Car, error)
	SetCarWithdrawn(ctx context.Context, id uuid.UUID, withdrawn bool) error
	IssueVoucher(ctx context.Context, amount int, validity time.Duration) (voucher.Voucher, error)
	ValidateVoucher(ctx context.Context, code string) (voucher.Voucher, error)
}

type Server struct {
	svc            Service
	auth           *auth.Store
	log            *logger.Logger
	validate       *Validator
	idem           IdempotencyStore
	requestTimeout time.Duration
	ping           func(ctx context.Context) error
}

type Option func(*Server)

func WithIdempotency(store IdempotencyStore) Option {
	return func(s *Server) { s.idem = store }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithHealthCheck makes /healthz report 503 while ping fails.
func WithHealthCheck(ping func(ctx context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

func New(svc Service, authStore *auth.Store, log *logger.Logger, opts ...Option) (*Server, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{svc: svc, auth: authStore, log: log, validate: v, requestTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	r := httprouter.New()
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.HandlerFunc(http.MethodGet, "/healthz", s.handleHealth)
	r.Handler(http.MethodGet, "/metrics", metrics.Handler())

	r.HandlerFunc(http.MethodGet, "/api/v1/track-availability/:date", s.handleTrackAvailability)
	r.HandlerFunc(http.MethodGet, "/api/v1/car-availability/:car_id/:date/:hour", s.handleCarAvailability)
	r.HandlerFunc(http.MethodGet, "/api/v1/cars", s.handleListCars)
	r.HandlerFunc(http.MethodGet, "/api/v1/cars/:id", s.handleGetCar)
	r.Handler(http.MethodPost, "/api/v1/reservations", Idempotency(s.idem, s.log)(http.HandlerFunc(s.handlePlaceHold)))
	r.HandlerFunc(http.MethodGet, "/api/v1/reservations/:id", s.handleGetReservation)
	r.HandlerFunc(http.MethodPut, "/api/v1/reservations/:id/confirm", s.handleConfirm)
	r.HandlerFunc(http.MethodPost, "/api/v1/reservations/:id/payment", s.handleInitiatePayment)
	r.HandlerFunc(http.MethodPost, "/api/v1/reservations/:id/payment/complete", s.handleCompletePayment)
	r.HandlerFunc(http.MethodPost, "/api/v1/reservations/:id/payment/fail", s.handleFailPayment)
	r.HandlerFunc(http.MethodPost, "/api/v1/reservations/:id/cancel", s.handleCancel)
	r.HandlerFunc(http.MethodGet, "/api/v1/vouchers/:code", s.handleCheckVoucher)

	r.HandlerFunc(http.MethodPost, "/admin/login", s.handleLogin)
	r.HandlerFunc(http.MethodPost, "/admin/logout", s.handleLogout)
	admin := func(method, path string, h http.HandlerFunc) {
		r.Handler(method, path, s.auth.RequireAdmin(h))
	}
	admin(http.MethodGet, "/admin/reservations", s.handleListReservations)
	admin(http.MethodDelete, "/admin/reservations/:id", s.handleDeleteReservation)
	admin(http.MethodPost, "/admin/sweep", s.handleSweep)
	admin(http.MethodPost, "/admin/calendar-sync", s.handleCalendarSync)
	admin(http.MethodPost, "/admin/vouchers", s.handleIssueVoucher)
	admin(http.MethodPost, "/admin/cars", s.handleAddCar)
	admin(http.MethodPut, "/admin/cars/:id/withdrawn", s.handleSetWithdrawn)

	return chain(r,
		RequestLogging(s.log),
		Recovery(s.log),
		RequestTimeout(s.requestTimeout),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			logger.FromContext(r.Context(), s.log).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const maxBody = 1 << 20

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internaltypes.InvalidInput("request body is required")
		}
		return internaltypes.InvalidInput("malformed JSON body")
	}
	return s.validate.Struct(dst)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, internaltypes.InvalidInput(name + " must be a UUID")
	}
	return id, nil
}

func param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// Start serves h on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, h http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
