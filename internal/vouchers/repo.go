package vouchers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/db"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/voucher"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

const columns = `id,code,amount,issued_at,expires_at,status,used_on`

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Create(ctx context.Context, v voucher.Voucher) error {
	err := r.db.Exec(ctx, `INSERT INTO vouchers(`+columns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		v.ID, v.Code, v.Amount, v.IssuedAt, v.ExpiresAt, string(v.Status), v.UsedOn)
	if db.IsUniqueViolation(err) {
		return internaltypes.InvalidInput("voucher code already exists")
	}
	return err
}

func (r *Repo) GetByCode(ctx context.Context, code string) (voucher.Voucher, error) {
	return r.getOne(ctx, `WHERE code=$1`, code)
}

// GetForUpdate row-locks the voucher so two confirmations cannot both redeem it.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (voucher.Voucher, error) {
	return r.getOne(ctx, `WHERE id=$1 FOR UPDATE`, id)
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (voucher.Voucher, error) {
	var (
		v      voucher.Voucher
		status string
	)
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM vouchers `+where, arg).
		Scan(&v.ID, &v.Code, &v.Amount, &v.IssuedAt, &v.ExpiresAt, &status, &v.UsedOn)
	if err != nil {
		if db.IsNotFound(err) {
			return voucher.Voucher{}, internaltypes.NotFound("voucher", fmt.Sprint(arg))
		}
		return voucher.Voucher{}, fmt.Errorf("db: %w", err)
	}
	v.Status = voucher.Status(status)
	return v, nil
}

// SaveRedemption persists the status and used_on of v.
func (r *Repo) SaveRedemption(ctx context.Context, v voucher.Voucher) error {
	return r.db.Exec(ctx, `UPDATE vouchers SET status=$2, used_on=$3 WHERE id=$1`, v.ID, string(v.Status), v.UsedOn)
}
