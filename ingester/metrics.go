package ingester

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latestBlockNumberGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "proposer_follower",
	Name:      "latest_block_number",
	Help:      "The latest known block number for the chain",
})

var ingestedBlockNumberGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "proposer_follower",
	Name:      "ingested_block_number",
	Help:      "The highest block number ingested so far",
})

var stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "proposer_follower",
	Name:      "state",
	Help:      "Follower state: 0 starting, 1 catching up, 2 at head, 3 backoff",
})

var blockFailureCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "proposer_follower",
		Name:      "block_failures_total",
		Help:      "Number of failed attempts to ingest a block, by kind of failure",
	},
	[]string{"kind"},
)

func observeLatestBlockNumber(n int64) {
	latestBlockNumberGauge.Set(float64(n))
}

func observeIngestedBlockNumber(n int64) {
	ingestedBlockNumberGauge.Set(float64(n))
}

func observeState(s State) {
	stateGauge.Set(float64(s))
}

func observeBlockFailure(kind string) {
	blockFailureCount.WithLabelValues(kind).Inc()
}
