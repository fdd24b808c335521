package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outing_sweep_runs_total",
		Help: "State sweeps by outcome",
	}, []string{"outcome"}) // outcome=success|failure|skipped

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outing_sweep_duration_seconds",
		Help:    "Duration of a state sweep",
		Buckets: prometheus.DefBuckets,
	})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outing_state_transitions_total",
		Help: "Outing state changes by target state and origin",
	}, []string{"to", "origin"}) // origin=sweep|command

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outing_commands_total",
		Help: "Manual outing commands by outcome",
	}, []string{"command", "outcome"}) // outcome=ok|rejected|error

	remindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outing_reminders_sent_total",
		Help: "Reminder messages emitted",
	})

	notificationsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outing_notifications_stored_total",
		Help: "Notifications written by the consumer per action",
	}, []string{"action"})
)

func ObserveSweep(outcome string, d time.Duration) {
	sweepRuns.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		sweepDuration.Observe(d.Seconds())
	}
}

func RecordTransition(to, origin string) {
	stateTransitions.WithLabelValues(to, origin).Inc()
}

func RecordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

func AddReminders(n int) {
	remindersSent.Add(float64(n))
}

func AddNotifications(action string, n int) {
	notificationsStored.WithLabelValues(action).Add(float64(n))
}
