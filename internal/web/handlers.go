package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/booking"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/logger"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
)

func (s *Server) handleTrackAvailability(w http.ResponseWriter, r *http.Request) {
	day, err := s.svc.TrackAvailability(r.Context(), param(r, "date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) handleCarAvailability(w http.ResponseWriter, r *http.Request) {
	carID, err := uuidParam(r, "car_id")
	if err != nil {
		writeError(w, err)
		return
	}
	date, hour := param(r, "date"), param(r, "hour")
	free, err := s.svc.CarAvailability(r.Context(), carID, date, hour)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"car_id":    carID,
		"date":      date,
		"hour":      hour,
		"available": free,
	})
}

func (s *Server) handleListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.svc.Cars(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]carResponse, 0, len(cars))
	for _, c := range cars {
		out = append(out, toCarResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCar(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.svc.Car(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCarResponse(c))
}

func (s *Server) handlePlaceHold(w http.ResponseWriter, r *http.Request) {
	var req placeHoldRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := booking.PlaceHoldInput{
		CarID:       uuid.MustParse(req.CarID),
		Start:       req.StartTime,
		Laps:        req.Laps,
		PriceForLap: req.PriceForLap,
		VoucherCode: strings.TrimSpace(req.VoucherCode),
		Package:     reservation.Package(req.Package),
		Trace:       reservation.Trace(req.Trace),
		Customer: reservation.Customer{
			FullName:    strings.TrimSpace(req.FullName),
			Email:       strings.TrimSpace(req.Email),
			PhoneNumber: digitsOnly(req.PhoneNumber),
			Comment:     req.Comment,
		},
		Extras: reservation.Extras{
			ExtraDriver:     req.ExtraDriver,
			VideoRecord:     req.VideoRecord,
			ExcessReduction: req.ExcessReduction,
		},
	}
	res, err := s.svc.PlaceHold(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/reservations/"+res.ID.String())
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.GetReservation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// transitionHandler adapts a lifecycle operation keyed by the :id route param.
func (s *Server) transitionHandler(op func(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := op(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.transitionHandler(s.svc.ConfirmHold)(w, r)
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	s.transitionHandler(s.svc.InitiatePayment)(w, r)
}

func (s *Server) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	s.transitionHandler(s.svc.CompletePayment)(w, r)
}

func (s *Server) handleFailPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	// the reason is optional, so an empty body is accepted
	var req reasonRequest
	if r.ContentLength != 0 {
		if err := s.decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	res, err := s.svc.FailPayment(r.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req cancelRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.CancelReservation(r.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

func (s *Server) handleCheckVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.ValidateVoucher(r.Context(), param(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	adminID, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if internaltypes.KindOf(err) == internaltypes.KindUnauthorized {
			logger.FromContext(r.Context(), s.log).Warn("admin login rejected", "username", req.Username)
		}
		writeError(w, err)
		return
	}
	if err := s.auth.SetSession(w, r, adminID); err != nil {
		writeError(w, err)
		return
	}
	logger.FromContext(r.Context(), s.log).Info("admin logged in", "admin_id", adminID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := reservations.ListFilter{Status: reservation.Status(strings.ToUpper(q.Get("status")))}
	if raw := q.Get("car_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, internaltypes.InvalidInput("car_id must be a UUID"))
			return
		}
		f.CarID = id
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, internaltypes.InvalidInput("limit must be a positive integer"))
			return
		}
		f.Limit = n
	}
	list, err := s.svc.ListReservations(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]reservationResponse, 0, len(list))
	for _, res := range list {
		out = append(out, toReservationResponse(res))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.DeleteReservation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.RunExpirySweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCalendarSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SyncCalendar(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIssueVoucher(w http.ResponseWriter, r *http.Request) {
	var req issueVoucherRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.IssueVoucher(r.Context(), req.Amount, time.Duration(req.ValidityDays)*24*time.Hour)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherResponse(v))
}

func (s *Server) handleAddCar(w http.ResponseWriter, r *http.Request) {
	var req addCarRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.svc.AddCar(r.Context(), car.Car{Make: req.Make, Model: req.Model, HP: req.HP, PriceForLap: req.PriceForLap})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCarResponse(c))
}

func (s *Server) handleSetWithdrawn(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req withdrawnRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.SetCarWithdrawn(r.Context(), id, *req.Withdrawn); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
