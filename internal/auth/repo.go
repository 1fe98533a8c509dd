package auth

import (
	"context"

	"github.com/hristiyandudev55/nurblifebg/internal/db"
	"github.com/hristiyandudev55/nurblifebg/internal/domain/user"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

// Repo stores admins in Postgres.
type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Create(ctx context.Context, username string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO admins(username, password_bcrypt) VALUES ($1,$2) RETURNING id`,
		username, string(passwordHash),
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, internaltypes.InvalidInput("admin " + username + " already exists")
	}
	return id, err
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (user.Admin, error) {
	var (
		a    user.Admin
		hash string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_bcrypt, created_at FROM admins WHERE username=$1`, username,
	).Scan(&a.ID, &a.Username, &hash, &a.CreatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return user.Admin{}, internaltypes.NotFound("admin", username)
		}
		return user.Admin{}, err
	}
	a.PasswordHash = []byte(hash)
	return a, nil
}
