package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hristiyandudev55/nurblifebg/internal/auth"
	"github.com/hristiyandudev55/nurblifebg/internal/booking"
	"github.com/hristiyandudev55/nurblifebg/internal/calendar"
	"github.com/hristiyandudev55/nurblifebg/internal/cars"
	"github.com/hristiyandudev55/nurblifebg/internal/clock"
	"github.com/hristiyandudev55/nurblifebg/internal/config"
	"github.com/hristiyandudev55/nurblifebg/internal/db"
	"github.com/hristiyandudev55/nurblifebg/internal/events"
	"github.com/hristiyandudev55/nurblifebg/internal/logger"
	"github.com/hristiyandudev55/nurblifebg/internal/migrate"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
	"github.com/hristiyandudev55/nurblifebg/internal/vouchers"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg      config.Config
	log      *logger.Logger
	db       *db.DB
	svc      *booking.Service
	admins   *auth.Repo
	producer *events.Producer
	redis    redis.UniversalClient
}

type bootstrapOptions struct {
	migrate bool
	// sideChannels enables Kafka and Redis, which only the long-running server needs.
	sideChannels bool
}

func bootstrap(ctx context.Context, opts bootstrapOptions) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "nurblife"})

	d, err := db.Open(ctx, cfg.DatabaseURL, db.WithLockTimeout(cfg.LockTimeout))
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if opts.migrate {
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, err
		}
	}

	a := &app{cfg: cfg, log: log, db: d, admins: auth.NewRepo(d)}

	svcOpts := []booking.Option{
		booking.WithHoldDuration(cfg.HoldDuration),
		booking.WithOperationTimeout(cfg.OperationTimeout),
		booking.WithTxRetry(cfg.TxMaxAttempts, 0),
		booking.WithCarCacheSize(cfg.CarCacheSize),
		booking.WithPublishTimeout(cfg.PublishTimeout),
	}

	var trackStatus booking.TrackStatusProvider
	if cfg.CalendarAccessToken != "" {
		client := calendar.NewClient(cfg.CalendarBaseURL, cfg.CalendarAccessToken)
		if cfg.CalendarTrackID != "" {
			trackStatus = calendar.NewTrack(client, cfg.CalendarTrackID, cfg.TrackLocation)
		}
		if cfg.CalendarEnabled() {
			svcOpts = append(svcOpts, booking.WithCalendar(calendar.NewBookings(client, cfg.CalendarBookingsID)))
		}
	}
	svcOpts = append(svcOpts, booking.WithTrackStatus(trackStatus, cfg.TrackUnknownPolicy, cfg.TrackLocation))

	if opts.sideChannels {
		if len(cfg.KafkaBrokers) > 0 {
			a.producer = events.NewProducer(events.Config{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaTopic,
				BatchTimeout: cfg.KafkaBatchTimeout,
				Async:        cfg.KafkaAsync,
			})
			svcOpts = append(svcOpts, booking.WithEvents(a.producer))
			log.Info("publishing reservation events", "topic", cfg.KafkaTopic)
		}
		if cfg.RedisAddr != "" {
			a.redis = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		}
	}

	a.svc, err = booking.NewService(
		reservations.NewRepo(d),
		cars.NewRepo(d),
		vouchers.NewRepo(d),
		clock.NewSystem(),
		log,
		svcOpts...,
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("closing kafka producer", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}
