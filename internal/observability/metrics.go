package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	passes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadron",
			Subsystem: "pass",
			Name:      "total",
			Help:      "Reaction passes by result.",
		},
		[]string{"result"},
	)
	passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "squadron",
			Subsystem: "pass",
			Name:      "duration_seconds",
			Help:      "Reaction pass duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		},
		[]string{"result"},
	)
	reactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadron",
			Subsystem: "reaction",
			Name:      "evaluated_total",
			Help:      "Reactions evaluated, by service and whether the trigger fired.",
		},
		[]string{"service", "fired"},
	)
	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadron",
			Subsystem: "action",
			Name:      "total",
			Help:      "Action outcomes within reaction passes.",
		},
		[]string{"action", "outcome"},
	)
	actionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "squadron",
			Subsystem: "action",
			Name:      "duration_seconds",
			Help:      "Action command duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 9),
		},
		[]string{"action"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(passes, passDuration, reactions, actions, actionDuration)
	})
}

func RecordPass(result string, duration time.Duration) {
	RegisterMetrics()
	passes.WithLabelValues(result).Inc()
	passDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func RecordReaction(service string, fired bool) {
	RegisterMetrics()
	reactions.WithLabelValues(service, strconv.FormatBool(fired)).Inc()
}

// RecordAction counts one action outcome; duration is observed only for commands that ran.
func RecordAction(action, outcome string, duration time.Duration) {
	RegisterMetrics()
	actions.WithLabelValues(action, outcome).Inc()
	if duration > 0 {
		actionDuration.WithLabelValues(action).Observe(duration.Seconds())
	}
}

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
