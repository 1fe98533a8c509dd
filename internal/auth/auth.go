package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/user"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

// Admins is the credential storage behind the admin session.
type Admins interface {
	Create(ctx context.Context, username string, passwordHash []byte) (int64, error)
	GetByUsername(ctx context.Context, username string) (user.Admin, error)
}

type Store struct {
	sc     *securecookie.SecureCookie
	admins Admins
}

type ctxKey string

const adminIDKey ctxKey = "adminID"

const (
	cookieName = "nurblife_admin"
	sessionTTL = 12 * time.Hour
)

func NewStore(admins Admins, hashKey, blockKey []byte) *Store {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, admins: admins}
}

func HashPassword(pw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
}

func CheckPassword(hash []byte, pw string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(pw)) == nil
}

func (s *Store) CreateAdmin(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return 0, internaltypes.InvalidInput("username is required and password must have at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.admins.Create(ctx, username, hash)
}

// Authenticate returns the admin id for valid credentials and ErrUnauthorized otherwise.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	a, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if internaltypes.KindOf(err) == internaltypes.KindNotFound {
			return 0, internaltypes.ErrUnauthorized
		}
		return 0, err
	}
	if !CheckPassword(a.PasswordHash, password) {
		return 0, internaltypes.ErrUnauthorized
	}
	return a.ID, nil
}

type Session struct {
	AdminID int64
	Issued  time.Time
}

type cookieValue struct {
	AdminID int64 `json:"aid"`
	Issued  int64 `json:"iat"`
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, adminID int64) error {
	if adminID <= 0 {
		return errors.New("invalid admin id")
	}
	encoded, err := s.sc.Encode(cookieName, cookieValue{AdminID: adminID, Issued: time.Now().Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/admin",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var v cookieValue
	if err := s.sc.Decode(cookieName, c.Value, &v); err != nil {
		return Session{}, false
	}
	if v.AdminID <= 0 {
		return Session{}, false
	}
	return Session{AdminID: v.AdminID, Issued: time.Unix(v.Issued, 0)}, true
}

// RequireAdmin rejects requests without a valid admin session with a JSON 401.
func (s *Store) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"admin session required"}` + "\n"))
			return
		}
		ctx := context.WithValue(r.Context(), adminIDKey, sess.AdminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(adminIDKey).(int64)
	return id, ok
}
