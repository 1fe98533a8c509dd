package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hristiyandudev55/nurblifebg/internal/logger"
)

const idempotencyHeader = "Idempotency-Key"

type CachedResponse struct {
	StatusCode int         `json:"status"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// IdempotencyStore remembers responses to requests carrying an Idempotency-Key.
type IdempotencyStore interface {
	// Begin claims key. It returns the stored response when the key completed
	// before, or inFlight when another request holds the claim.
	Begin(ctx context.Context, key string) (cached *CachedResponse, inFlight bool, err error)
	Complete(ctx context.Context, key string, resp *CachedResponse) error
	// Abandon drops the claim so the request can be retried with the same key.
	Abandon(ctx context.Context, key string) error
}

const processing = "PROCESSING"

// RedisIdempotency keeps claims and responses in Redis. A claim expires after
// lockTTL so a crashed request does not block its key forever.
type RedisIdempotency struct {
	client  redis.UniversalClient
	lockTTL time.Duration
	ttl     time.Duration
}

func NewRedisIdempotency(client redis.UniversalClient, lockTTL, ttl time.Duration) *RedisIdempotency {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotency{client: client, lockTTL: lockTTL, ttl: ttl}
}

func idemKey(key string) string { return "idempotency:" + key }

func (s *RedisIdempotency) Begin(ctx context.Context, key string) (*CachedResponse, bool, error) {
	val, err := s.client.Get(ctx, idemKey(key)).Result()
	switch {
	case err == nil:
		if val == processing {
			return nil, true, nil
		}
		var cached CachedResponse
		if err := json.Unmarshal([]byte(val), &cached); err != nil {
			return nil, false, err
		}
		return &cached, false, nil
	case !errors.Is(err, redis.Nil):
		return nil, false, err
	}

	acquired, err := s.client.SetNX(ctx, idemKey(key), processing, s.lockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	return nil, !acquired, nil
}

func (s *RedisIdempotency) Complete(ctx context.Context, key string, resp *CachedResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idemKey(key), b, s.ttl).Err()
}

func (s *RedisIdempotency) Abandon(ctx context.Context, key string) error {
	return s.client.Del(ctx, idemKey(key)).Err()
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Only 2xx responses are stored; other outcomes release the key. When the store
// is unreachable requests pass through unprotected.
func Idempotency(store IdempotencyStore, log *logger.Logger) middleware {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || len(key) > 200 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			cached, inFlight, err := store.Begin(ctx, key)
			if err != nil {
				log.Warn("idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if inFlight {
				writeJSON(w, http.StatusConflict, ErrorResponse{Code: "request_in_progress", Message: "a request with this Idempotency-Key is in progress"})
				return
			}
			if cached != nil {
				for k, vs := range cached.Headers {
					for _, v := range vs {
						w.Header().Add(k, v)
					}
				}
				w.Header().Set("X-Idempotency-Hit", "true")
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)
				return
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			// the claim must be settled even if the request context is gone
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if cw.status >= 200 && cw.status < 300 {
				headers := http.Header{}
				if ct := w.Header().Get("Content-Type"); ct != "" {
					headers.Set("Content-Type", ct)
				}
				err = store.Complete(sctx, key, &CachedResponse{StatusCode: cw.status, Headers: headers, Body: cw.body.Bytes()})
			} else {
				err = store.Abandon(sctx, key)
			}
			if err != nil {
				log.Warn("idempotency store update failed", "error", err)
			}
		})
	}
}
