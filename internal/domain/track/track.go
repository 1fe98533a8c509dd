package track

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusUnknown Status = "unknown"
)

// Availability is what the track calendar says about one local date.
type Availability struct {
	Date        string   `json:"date"`
	Status      Status   `json:"status"`
	OpenWindows []string `json:"times,omitempty"`
	Message     string   `json:"message"`
}

// UnknownPolicy decides whether a date with no usable calendar data accepts bookings.
type UnknownPolicy string

const (
	UnknownAsOpen   UnknownPolicy = "open"
	UnknownAsClosed UnknownPolicy = "closed"
)

func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch UnknownPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case UnknownAsOpen:
		return UnknownAsOpen, nil
	case UnknownAsClosed:
		return UnknownAsClosed, nil
	}
	return "", fmt.Errorf("unknown track policy %q (want open or closed)", s)
}

// Allows reports whether a hold may be placed on a date with availability a.
func (p UnknownPolicy) Allows(a Availability) bool {
	switch a.Status {
	case StatusOpen:
		return true
	case StatusClosed:
		return false
	default:
		return p != UnknownAsClosed
	}
}

const (
	closedMarker = "Nürburgring Closed"
	openMarker   = "Tourist Drives"
)

// Entry is the part of a calendar event the classifier looks at.
type Entry struct {
	Summary string
	Start   string // HH:MM, empty for all-day events
	End     string
}

// Classify derives the availability of date from the calendar entries on that day.
// A closure marker wins over opening hours.
func Classify(date string, entries []Entry) Availability {
	if len(entries) == 0 {
		return Availability{Date: date, Status: StatusUnknown, Message: "No information available for this date."}
	}
	for _, e := range entries {
		if strings.Contains(e.Summary, closedMarker) {
			return Availability{Date: date, Status: StatusClosed, Message: "The track is closed on this date."}
		}
	}

	var windows []string
	open := false
	for _, e := range entries {
		if !strings.Contains(e.Summary, openMarker) {
			continue
		}
		open = true
		if e.Start != "" && e.End != "" {
			windows = append(windows, e.Start+"-"+e.End)
		}
	}
	if open {
		return Availability{
			Date:        date,
			Status:      StatusOpen,
			OpenWindows: windows,
			Message:     "The track is open during the following hours: " + strings.Join(windows, ", "),
		}
	}
	return Availability{Date: date, Status: StatusUnknown, Message: "No clear information available for this date."}
}
