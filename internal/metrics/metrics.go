package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HoldsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nurblife_holds_placed_total",
		Help: "Temporary holds created.",
	})
	HoldsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nurblife_holds_rejected_total",
		Help: "Hold requests rejected, by reason.",
	}, []string{"reason"})
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nurblife_reservation_transitions_total",
		Help: "Reservation status transitions, by target status and origin (request or sweeper).",
	}, []string{"to", "origin"})
	SweepRowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nurblife_sweep_rows_skipped_total",
		Help: "Expired rows left for the next sweep because another transaction held the lock.",
	})
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nurblife_scheduler_task_runs_total",
		Help: "Background task runs, by task and result.",
	}, []string{"task", "result"})
	CalendarFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nurblife_calendar_failures_total",
		Help: "Failed calendar notifications; the periodic sync retries them.",
	})
	TxRetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nurblife_tx_retries_exhausted_total",
		Help: "Operations that gave up after retrying transient database errors.",
	})
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nurblife_event_publish_failures_total",
		Help: "Lifecycle events that could not be published.",
	})
	CarCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nurblife_car_cache_lookups_total",
		Help: "Car cache lookups, by result (hit or miss).",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
