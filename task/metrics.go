package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sentencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mmt",
		Subsystem: "decoder",
		Name:      "sentences_total",
		Help:      "Translation tasks run, by outcome",
	}, []string{"status"})

	decodeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mmt",
		Subsystem: "decoder",
		Name:      "decode_seconds",
		Help:      "Time spent searching one sentence",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
	})

	stageSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mmt",
		Subsystem: "decoder",
		Name:      "output_stage_seconds",
		Help:      "Time spent in each output stage",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
	}, []string{"stage"})
)
