package voucher

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusUsed    Status = "USED"
	StatusExpired Status = "EXPIRED"
)

const (
	DefaultValidity = 180 * 24 * time.Hour
	CodeLength      = 10
)

type Voucher struct {
	ID        uuid.UUID
	Code      string
	Amount    int
	IssuedAt  time.Time
	ExpiresAt *time.Time
	Status    Status
	UsedOn    *time.Time
}

// New issues an ACTIVE voucher. A zero validity means DefaultValidity.
func New(code string, amount int, issuedAt time.Time, validity time.Duration) Voucher {
	if validity <= 0 {
		validity = DefaultValidity
	}
	expires := issuedAt.Add(validity)
	return Voucher{
		ID:        uuid.New(),
		Code:      code,
		Amount:    amount,
		IssuedAt:  issuedAt,
		ExpiresAt: &expires,
		Status:    StatusActive,
	}
}

// Check reports why v cannot be redeemed at now, or nil if it can.
// An expiry equal to now is still valid.
func (v Voucher) Check(now time.Time) error {
	if v.Status == StatusUsed {
		return internaltypes.VoucherInvalid("voucher has already been used")
	}
	if v.Status == StatusExpired || (v.ExpiresAt != nil && v.ExpiresAt.Before(now)) {
		return internaltypes.VoucherInvalid("voucher has expired")
	}
	return nil
}

// Redeem marks v USED. UsedOn is set iff the status is USED.
func (v *Voucher) Redeem(now time.Time) error {
	if err := v.Check(now); err != nil {
		return err
	}
	v.Status = StatusUsed
	v.UsedOn = &now
	return nil
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a random alphanumeric code of CodeLength characters.
func GenerateCode() (string, error) {
	b := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
