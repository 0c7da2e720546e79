package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoiceTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceqa_turns_total",
		Help: "Voice webhook turns handled, by route and outcome",
	}, []string{"route", "outcome"})

	AnswerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voiceqa_answer_latency_seconds",
		Help:    "Latency of answer backend calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 12, 20},
	}, []string{"result"})

	AnswerCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceqa_answer_cache_total",
		Help: "Answer cache lookups by result",
	}, []string{"result"})

	BreakerStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceqa_breaker_state_changes_total",
		Help: "Answer backend circuit breaker transitions",
	}, []string{"to"})

	TurnRecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voiceqa_turn_records_dropped_total",
		Help: "Turn log records dropped because the recorder queue was full",
	})

	TurnRecordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voiceqa_turn_records_failed_total",
		Help: "Turn log records the recorder failed to process",
	})
)
