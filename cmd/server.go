package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hristiyandudev55/nurblifebg/internal/auth"
	"github.com/hristiyandudev55/nurblifebg/internal/scheduler"
	"github.com/hristiyandudev55/nurblifebg/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the reservation API, the expiry sweeper and the calendar sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx, bootstrapOptions{migrate: migrateUp, sideChannels: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireCookieKeys(); err != nil {
				return err
			}

			sched := scheduler.New(a.log,
				scheduler.Task{
					Name:     "expiry-sweep",
					Interval: a.cfg.SweepInterval,
					Run: func(ctx context.Context) error {
						_, err := a.svc.RunExpirySweep(ctx)
						return err
					},
				},
				scheduler.Task{
					Name:     "calendar-sync",
					Interval: a.cfg.CalendarSyncInterval,
					Run: func(ctx context.Context) error {
						_, err := a.svc.SyncCalendar(ctx)
						return err
					},
				},
			)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			opts := []web.Option{
				web.WithRequestTimeout(a.cfg.RequestTimeout),
				web.WithHealthCheck(a.db.Ping),
			}
			if a.redis != nil {
				opts = append(opts, web.WithIdempotency(web.NewRedisIdempotency(a.redis, 30*time.Second, 24*time.Hour)))
			}
			ws, err := web.New(a.svc, auth.NewStore(a.admins, a.cfg.CookieHashKey, a.cfg.CookieBlockKey), a.log, opts...)
			if err != nil {
				return err
			}
			return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
