package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/track"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

const (
	// TimeZone is the zone events are written and read in.
	TimeZone = "Europe/Berlin"

	bookingColor        = "11"
	reservationProperty = "reservation_id"
	serviceName         = "calendar"
)

type lister interface {
	ListEvents(ctx context.Context, calendarID string, q ListQuery) ([]Event, error)
}

type inserter interface {
	lister
	InsertEvent(ctx context.Context, calendarID string, e Event) (Event, error)
}

// Track reads the public track calendar to tell open days from closed ones.
type Track struct {
	api        lister
	calendarID string
	loc        *time.Location
}

func NewTrack(api lister, calendarID string, loc *time.Location) *Track {
	if loc == nil {
		loc = time.UTC
	}
	return &Track{api: api, calendarID: calendarID, loc: loc}
}

// TrackStatus classifies date (YYYY-MM-DD, track local) from that day's events.
func (t *Track) TrackStatus(ctx context.Context, date string) (track.Availability, error) {
	day, err := time.ParseInLocation(time.DateOnly, date, t.loc)
	if err != nil {
		return track.Availability{}, internaltypes.InvalidInput("date must be YYYY-MM-DD")
	}
	events, err := t.api.ListEvents(ctx, t.calendarID, ListQuery{
		TimeMin:  day,
		TimeMax:  day.AddDate(0, 0, 1),
		TimeZone: t.loc.String(),
	})
	if err != nil {
		return track.Availability{}, internaltypes.ExternalServiceFailure(serviceName, err)
	}

	entries := make([]track.Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, track.Entry{
			Summary: e.Summary,
			Start:   t.clock(e.Start),
			End:     t.clock(e.End),
		})
	}
	return track.Classify(date, entries), nil
}

// clock renders a timed boundary as HH:MM in the track zone; all-day boundaries are empty.
func (t *Track) clock(et EventTime) string {
	if et.DateTime == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339, et.DateTime)
	if err != nil {
		return ""
	}
	return ts.In(t.loc).Format("15:04")
}

// Bookings mirrors confirmed reservations into the operator's calendar.
type Bookings struct {
	api        inserter
	calendarID string
}

func NewBookings(api inserter, calendarID string) *Bookings {
	return &Bookings{api: api, calendarID: calendarID}
}

// Notify creates the calendar entry for r and returns its event id.
func (b *Bookings) Notify(ctx context.Context, r reservation.Reservation, c car.Car) (string, error) {
	e, err := b.api.InsertEvent(ctx, b.calendarID, BookingEvent(r, c))
	if err != nil {
		return "", internaltypes.ExternalServiceFailure(serviceName, err)
	}
	return e.ID, nil
}

// FindEvent looks up an entry previously created for the reservation.
func (b *Bookings) FindEvent(ctx context.Context, reservationID uuid.UUID) (string, bool, error) {
	events, err := b.api.ListEvents(ctx, b.calendarID, ListQuery{
		PrivateProperty: reservationProperty + "=" + reservationID.String(),
		MaxResults:      1,
	})
	if err != nil {
		return "", false, internaltypes.ExternalServiceFailure(serviceName, err)
	}
	if len(events) == 0 {
		return "", false, nil
	}
	return events[0].ID, true, nil
}

// BookingEvent renders the calendar entry for a confirmed reservation. The
// reservation id is stored as a private property so the entry can be found again.
func BookingEvent(r reservation.Reservation, c car.Car) Event {
	desc := fmt.Sprintf("Booking ID: %s\nLaps: %d\nPackage: %s\nContact: %s, %s",
		r.ID, r.Laps, r.Package, r.Customer.Email, contactPhone(r.Customer.PhoneNumber))
	if r.Trace != "" {
		desc += "\nTrace: " + string(r.Trace)
	}
	return Event{
		Summary:     fmt.Sprintf("Booking: %s - %s", c.Name(), r.Customer.FullName),
		Description: desc,
		Start:       EventTime{DateTime: r.Window.Start.Format(time.RFC3339), TimeZone: TimeZone},
		End:         EventTime{DateTime: r.Window.End.Format(time.RFC3339), TimeZone: TimeZone},
		ColorID:     bookingColor,
		ExtendedProperties: &ExtendedProperties{
			Private: map[string]string{reservationProperty: r.ID.String()},
		},
	}
}

// customers are mostly local or German
var phoneRegions = []string{"BG", "DE"}

// contactPhone renders a customer number in E.164 for the event description.
// Numbers that do not parse are shown as entered.
func contactPhone(phone string) string {
	for _, region := range phoneRegions {
		n, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsPossibleNumber(n) {
			return phonenumbers.Format(n, phonenumbers.E164)
		}
	}
	return phone
}
