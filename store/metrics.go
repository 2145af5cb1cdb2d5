package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var upsertDurationMillis = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "proposer_follower",
		Subsystem: "store",
		Name:      "upsert_duration_millis",
		Help:      "Duration of block upserts in milliseconds",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
	},
	[]string{"status"},
)

func observeUpsert(err error, t0 time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	upsertDurationMillis.WithLabelValues(status).Observe(float64(time.Since(t0).Milliseconds()))
}
