package algod

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var algodRequestCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "proposer_follower",
		Subsystem: "algod_client",
		Name:      "request_total",
		Help:      "Total number of algod requests",
	},
	[]string{"status", "method"},
)

var algodRequestDurationMillis = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "proposer_follower",
		Subsystem: "algod_client",
		Name:      "request_duration_millis",
		Help:      "Duration of algod requests in milliseconds",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"status", "method"},
)

func observeRequest(status string, method string, t0 time.Time) {
	algodRequestCount.WithLabelValues(status, method).Inc()
	algodRequestDurationMillis.WithLabelValues(status, method).Observe(float64(time.Since(t0).Milliseconds()))
}

func observeRequestCode(statusCode int, method string, t0 time.Time) {
	observeRequest(strconv.Itoa(statusCode), method, t0)
}

func observeRequestErr(err error, method string, t0 time.Time) {
	observeRequest(errorToStatus(err), method, t0)
}

func errorToStatus(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	status := "unknown_error"
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			status = "timeout"
		} else {
			status = "connection_refused"
		}
	}
	return status
}
