package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sagaOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_saga_outcomes_total",
			Help: "Finished sagas by name and outcome",
		},
		[]string{"saga", "outcome"},
	)

	compensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_saga_compensations_total",
			Help: "Compensation attempts by step and result",
		},
		[]string{"step", "result"},
	)

	deadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_compensation_dead_letters_total",
			Help: "Compensation commands moved to the dead letter queue",
		},
		[]string{"command"},
	)

	expirySweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_expiry_sweeps_total",
			Help: "Expiry sweeps by result",
		},
		[]string{"result"},
	)

	expiredTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_expired_total",
			Help: "Tickets removed by the expiry sweep",
		},
	)

	seatClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_claims_total",
			Help: "Seat state transitions by operation and status",
		},
		[]string{"operation", "status"},
	)

	downstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "downstream_request_duration_seconds",
			Help:    "Duration of calls to other services",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
)

const (
	OutcomeCompleted   = "completed"
	OutcomeCompensated = "compensated"
	OutcomeEscalated   = "escalated"

	ResultOK     = "ok"
	ResultFailed = "failed"
)

func TrackSagaOutcome(saga, outcome string) {
	sagaOutcomes.WithLabelValues(saga, outcome).Inc()
}

func TrackCompensation(step, result string) {
	compensations.WithLabelValues(step, result).Inc()
}

func TrackDeadLetter(command string) {
	deadLetters.WithLabelValues(command).Inc()
}

func TrackExpirySweep(result string, expired int) {
	expirySweeps.WithLabelValues(result).Inc()
	expiredTickets.Add(float64(expired))
}

func TrackSeatClaim(operation, status string) {
	seatClaims.WithLabelValues(operation, status).Inc()
}

func TrackDownstream(service, status string, took time.Duration) {
	downstreamDuration.WithLabelValues(service, status).Observe(took.Seconds())
}
