package vouchers

import (
	"context"
	"strings"

	"github.com/hristiyandudev55/nurblifebg/internal/clock"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

type Finder interface {
	GetByCode(ctx context.Context, code string) (voucher.Voucher, error)
}

// Guard validates voucher codes without consuming them.
type Guard struct {
	vouchers Finder
	clock    clock.Clock
}

func NewGuard(f Finder, clk clock.Clock) *Guard {
	return &Guard{vouchers: f, clock: clk}
}

// Validate returns the voucher for code, or a VoucherInvalid error when the code
// is unknown, already used or expired.
func (g *Guard) Validate(ctx context.Context, code string) (voucher.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return voucher.Voucher{}, internaltypes.VoucherInvalid("invalid voucher code")
	}
	v, err := g.vouchers.GetByCode(ctx, code)
	if err != nil {
		if internaltypes.KindOf(err) == internaltypes.KindNotFound {
			return voucher.Voucher{}, internaltypes.VoucherInvalid("invalid voucher code")
		}
		return voucher.Voucher{}, err
	}
	if err := v.Check(g.clock.Now()); err != nil {
		return voucher.Voucher{}, err
	}
	return v, nil
}
