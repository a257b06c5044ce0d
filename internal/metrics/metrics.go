package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges and counters exported on /metrics.
var (
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deenup_queue_depth",
		Help: "Number of players currently waiting in the matchmaking queue.",
	})

	MatchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deenup_matches_started_total",
		Help: "Matches created from a successful pairing.",
	})

	MatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deenup_matches_completed_total",
		Help: "Matches that ran to finalization.",
	})

	MatchesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deenup_matches_abandoned_total",
		Help: "Matches ended early by a player leaving.",
	})

	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deenup_answers_total",
		Help: "Answers accepted by the session engine, by correctness.",
	}, []string{"correct"})

	QueueTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deenup_queue_timeouts_total",
		Help: "Queue entries evicted after exceeding the wait timeout.",
	})
)
