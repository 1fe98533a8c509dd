package cars

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hristiyandudev55/nurblifebg/internal/db"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

const columns = `id,make,model,hp,price_for_lap,withdrawn,created_at,updated_at`

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Create(ctx context.Context, c car.Car) error {
	return r.db.Exec(ctx, `
INSERT INTO cars(id,make,model,hp,price_for_lap,withdrawn,created_at,updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Make, c.Model, c.HP, c.PriceForLap, c.Withdrawn, c.CreatedAt, c.UpdatedAt)
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (car.Car, error) {
	return r.getOne(ctx, id, ``)
}

// GetForUpdate row-locks the car. Holds for the same car serialise on this lock.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (car.Car, error) {
	return r.getOne(ctx, id, ` FOR UPDATE`)
}

func (r *Repo) getOne(ctx context.Context, id uuid.UUID, lock string) (car.Car, error) {
	var c car.Car
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM cars WHERE id=$1`+lock, id).
		Scan(&c.ID, &c.Make, &c.Model, &c.HP, &c.PriceForLap, &c.Withdrawn, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return car.Car{}, internaltypes.NotFound("car", id.String())
		}
		return car.Car{}, fmt.Errorf("db: %w", err)
	}
	return c, nil
}

func (r *Repo) List(ctx context.Context) ([]car.Car, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM cars ORDER BY make, model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []car.Car
	for rows.Next() {
		var c car.Car
		if err := rows.Scan(&c.ID, &c.Make, &c.Model, &c.HP, &c.PriceForLap, &c.Withdrawn, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) SetWithdrawn(ctx context.Context, id uuid.UUID, withdrawn bool) error {
	n, err := r.db.ExecCount(ctx, `UPDATE cars SET withdrawn=$2, updated_at=now() WHERE id=$1`, id, withdrawn)
	if err != nil {
		return err
	}
	if n == 0 {
		return internaltypes.NotFound("car", id.String())
	}
	return nil
}
