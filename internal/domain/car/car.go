package car

import (
	"time"

	"github.com/google/uuid"
)

type Car struct {
	ID          uuid.UUID
	Make        string
	Model       string
	HP          int
	PriceForLap int
	Withdrawn   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Name is the human label used in calendar entries.
func (c Car) Name() string {
	if c.Make == "" && c.Model == "" {
		return "Unknown Car"
	}
	return c.Make + " " + c.Model
}
