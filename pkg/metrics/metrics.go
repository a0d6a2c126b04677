package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters exposed on /metrics
var (
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insightminer",
		Name:      "downloads_total",
		Help:      "Download requests by final result.",
	}, []string{"result"})

	FallbackActivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "insightminer",
		Name:      "fallback_activations_total",
		Help:      "Raw-protocol fallback downloads attempted.",
	})

	DuplicatesBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "insightminer",
		Name:      "duplicates_blocked_total",
		Help:      "Downloads discarded because their fingerprint was already known.",
	})

	QueueProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insightminer",
		Name:      "queue_processed_total",
		Help:      "Queue drain outcomes per item.",
	}, []string{"result"})

	SessionLogins = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "insightminer",
		Name:      "session_logins_total",
		Help:      "Fresh logins performed because no valid session existed.",
	})
)

// Result label values
const (
	ResultSuccess   = "success"
	ResultDuplicate = "duplicate"
	ResultFailure   = "failure"
)
