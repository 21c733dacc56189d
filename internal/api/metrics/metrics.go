// Package metrics defines and registers all custom Prometheus metrics for the
// taskboard API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import and
// exposed by the /metrics route next to the echoprometheus HTTP metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ratelimit"
)

const namespace = "taskboard"

// ── Admission metrics ─────────────────────────────────────────────────────────

// RateLimitDecisionsTotal counts admission decisions.
// Labels:
//   - policy: "read", "create", "update", "delete" or "login"
//   - result: "allowed" or "denied"
//   - degraded: "true" when the shared store failed and local counters decided
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Total number of rate limit decisions, by policy and result.",
	},
	[]string{"policy", "result", "degraded"},
)

// RateLimitSweptTotal counts expired windows reclaimed by the sweep.
var RateLimitSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_swept_total",
		Help:      "Total number of expired rate limit windows removed by the sweep.",
	},
)

// AuthorizationDenialsTotal counts refused requests.
// Label:
//   - reason: "not authenticated", "role too low", "target is protected", ...
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests refused by the permission evaluator.",
	},
	[]string{"reason"},
)

// ── Write path metrics ───────────────────────────────────────────────────────

// WriteConfirmationsTotal counts how writes were confirmed.
// Labels:
//   - entity: "user", "project" or "task"
//   - action: "create", "update" or "delete"
//   - outcome: "acked", "reconciled" (ack missing, re-read matched) or "failed"
var WriteConfirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "write_confirmations_total",
		Help:      "Total number of confirmed or failed writes, by entity, action and outcome.",
	},
	[]string{"entity", "action", "outcome"},
)

// CascadeDeletesTotal counts project deletes.
// Label:
//   - outcome: "acked" or "failed"
var CascadeDeletesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cascade_deletes_total",
		Help:      "Total number of project deletes, by outcome.",
	},
	[]string{"outcome"},
)

// CascadeTasksRemovedTotal counts tasks removed as part of project deletes.
var CascadeTasksRemovedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cascade_tasks_removed_total",
		Help:      "Total number of tasks removed by project deletes.",
	},
)

// ── Activity metrics ─────────────────────────────────────────────────────────

// ActivityQueueDepth tracks the number of entries waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ActivityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_queue_depth",
		Help:      "Current number of activity entries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ActivityDroppedTotal counts entries dropped because a worker queue was full.
var ActivityDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_dropped_total",
		Help:      "Total number of activity entries dropped on a full queue.",
	},
)

// ActivityWriteDuration measures how long persisting one entry takes.
// Label:
//   - result: "ok" or "error"
var ActivityWriteDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "activity_write_duration_seconds",
		Help:      "Duration of activity entry persistence.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"result"},
)

// ObserveRateLimit is a ratelimit.Observer feeding RateLimitDecisionsTotal.
func ObserveRateLimit(policy string, res ratelimit.Result, degraded bool) {
	result := "allowed"
	if !res.Allowed {
		result = "denied"
	}
	RateLimitDecisionsTotal.WithLabelValues(policy, result, strconv.FormatBool(degraded)).Inc()
}

// Mutations implements ports.MutationObserver.
type Mutations struct{}

func (Mutations) Confirmed(entity domain.EntityKind, action domain.Action, outcome string) {
	WriteConfirmationsTotal.WithLabelValues(string(entity), string(action), outcome).Inc()
}

func (Mutations) Cascaded(outcome string, tasks int64) {
	CascadeDeletesTotal.WithLabelValues(outcome).Inc()
	CascadeTasksRemovedTotal.Add(float64(tasks))
}
