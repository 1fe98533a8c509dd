package reservation

import "time"

// Window is a half-open driving slot [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the fixed-length slot starting at start.
func NewWindow(start time.Time) Window {
	start = start.UTC()
	return Window{Start: start, End: start.Add(SlotDuration)}
}

func (w Window) Empty() bool {
	return w.Start.IsZero() || !w.End.After(w.Start)
}

// Overlaps reports whether w and o share any instant. Windows that only touch
// at an edge, like [10:00,12:00) and [12:00,14:00), do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// SlotAt combines a track-local date and HH:MM into a window.
func SlotAt(date, hour string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hour, loc)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(start), nil
}
