package web

import (
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
)

type placeHoldRequest struct {
	CarID           string    `json:"car_id" validate:"required,uuid"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	Laps            int       `json:"laps" validate:"required,min=1,max=50"`
	PriceForLap     float64   `json:"price_for_lap" validate:"gte=0"`
	VoucherCode     string    `json:"voucher_code" validate:"omitempty,alphanum,len=10"`
	Package         string    `json:"package" validate:"omitempty,oneof=base_package premium_package"`
	Trace           string    `json:"trace" validate:"omitempty,oneof=public_session trackday gp_track spa_francochamps"`
	FullName        string    `json:"full_name" validate:"required,max=100"`
	Email           string    `json:"email" validate:"required,email"`
	PhoneNumber     string    `json:"phone_number" validate:"required,phone10"`
	Comment         string    `json:"comment" validate:"max=500"`
	ExtraDriver     bool      `json:"extra_driver"`
	VideoRecord     bool      `json:"video_record"`
	ExcessReduction bool      `json:"excess_reduction"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type issueVoucherRequest struct {
	Amount       int `json:"amount" validate:"required,min=1"`
	ValidityDays int `json:"validity_days" validate:"omitempty,min=1,max=3650"`
}

type addCarRequest struct {
	Make        string `json:"make" validate:"required,max=50"`
	Model       string `json:"model" validate:"required,max=50"`
	HP          int    `json:"hp" validate:"gte=0"`
	PriceForLap int    `json:"price_for_lap" validate:"gte=0"`
}

type withdrawnRequest struct {
	Withdrawn *bool `json:"withdrawn" validate:"required"`
}

type reservationResponse struct {
	ID                 uuid.UUID          `json:"id"`
	CarID              uuid.UUID          `json:"car_id"`
	StartTime          time.Time          `json:"start_time"`
	EndTime            time.Time          `json:"end_time"`
	Laps               int                `json:"laps"`
	PriceForLap        float64            `json:"price_for_lap"`
	VoucherID          *uuid.UUID         `json:"voucher_id,omitempty"`
	Package            string             `json:"package"`
	Trace              string             `json:"trace,omitempty"`
	FullName           string             `json:"full_name"`
	Email              string             `json:"email"`
	PhoneNumber        string             `json:"phone_number"`
	Comment            string             `json:"comment,omitempty"`
	ExtraDriver        bool               `json:"extra_driver"`
	VideoRecord        bool               `json:"video_record"`
	ExcessReduction    bool               `json:"excess_reduction"`
	Status             reservation.Status `json:"status"`
	BookedAt           time.Time          `json:"booked_at"`
	HoldPlacedAt       time.Time          `json:"hold_placed_at"`
	HoldExpiresAt      *time.Time         `json:"hold_expires_at,omitempty"`
	PaymentInitiatedAt *time.Time         `json:"payment_initiated_at,omitempty"`
	PaymentCompletedAt *time.Time         `json:"payment_completed_at,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
	CalendarEventID    string             `json:"calendar_event_id,omitempty"`
}

func toReservationResponse(r reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID:                 r.ID,
		CarID:              r.CarID,
		StartTime:          r.Window.Start,
		EndTime:            r.Window.End,
		Laps:               r.Laps,
		PriceForLap:        r.PriceForLap,
		VoucherID:          r.VoucherID,
		Package:            string(r.Package),
		Trace:              string(r.Trace),
		FullName:           r.Customer.FullName,
		Email:              r.Customer.Email,
		PhoneNumber:        r.Customer.PhoneNumber,
		Comment:            r.Customer.Comment,
		ExtraDriver:        r.Extras.ExtraDriver,
		VideoRecord:        r.Extras.VideoRecord,
		ExcessReduction:    r.Extras.ExcessReduction,
		Status:             r.Status,
		BookedAt:           r.BookedAt,
		HoldPlacedAt:       r.HoldPlacedAt,
		HoldExpiresAt:      r.HoldExpiresAt,
		PaymentInitiatedAt: r.PaymentInitiatedAt,
		PaymentCompletedAt: r.PaymentCompletedAt,
		CanceledAt:         r.CanceledAt,
		CancellationReason: r.CancellationReason,
		CalendarEventID:    r.CalendarEventID,
	}
}

type carResponse struct {
	ID          uuid.UUID `json:"id"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	HP          int       `json:"hp"`
	PriceForLap int       `json:"price_for_lap"`
	Withdrawn   bool      `json:"withdrawn"`
}

func toCarResponse(c car.Car) carResponse {
	return carResponse{ID: c.ID, Make: c.Make, Model: c.Model, HP: c.HP, PriceForLap: c.PriceForLap, Withdrawn: c.Withdrawn}
}

type voucherResponse struct {
	ID        uuid.UUID      `json:"id"`
	Code      string         `json:"code"`
	Amount    int            `json:"amount"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Status    voucher.Status `json:"status"`
	UsedOn    *time.Time     `json:"used_on,omitempty"`
}

func toVoucherResponse(v voucher.Voucher) voucherResponse {
	return voucherResponse{ID: v.ID, Code: v.Code, Amount: v.Amount, IssuedAt: v.IssuedAt, ExpiresAt: v.ExpiresAt, Status: v.Status, UsedOn: v.UsedOn}
}
