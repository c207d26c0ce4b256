package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatrelay",
		Name:      "messages_appended_total",
		Help:      "Messages written to session logs.",
	}, []string{"author"})

	completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatrelay",
		Name:      "completions_total",
		Help:      "Completion gateway calls by outcome.",
	}, []string{"provider", "outcome"})

	completionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chatrelay",
		Name:      "completion_duration_seconds",
		Help:      "Completion gateway call latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider"})
)
