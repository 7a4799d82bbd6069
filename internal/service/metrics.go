package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_sync_operations_total",
			Help: "Task mutations by operation and final state",
		},
		[]string{"op", "state"},
	)
	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_store_request_duration_seconds",
			Help:    "Latency of task store calls issued by the sync layer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(syncOperations)
	prometheus.MustRegister(storeDuration)
}
