package user

import "time"

// Admin is an operator allowed to use the administrative API.
type Admin struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}
