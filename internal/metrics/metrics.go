package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surroundsense_pipelines_total",
		Help: "Total number of pipeline invocations, by terminal status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "surroundsense_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surroundsense_frames_sampled_total",
		Help: "Total number of frames sampled across all invocations",
	})

	FramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surroundsense_frames_dropped_total",
		Help: "Total number of frames dropped due to conversion failures",
	})
)
