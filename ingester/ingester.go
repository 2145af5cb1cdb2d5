package ingester

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"
	"github.com/raulk/clock"
	"github.com/voi-tools/proposer-follower/client/algod"
	"github.com/voi-tools/proposer-follower/lib/bounded"
	"github.com/voi-tools/proposer-follower/store"
)

type Ingester interface {
	// Run resumes from the highest stored block and follows the chain. It blocks until the
	// context is cancelled, maxCount blocks are ingested, or a fatal error occurs.
	// If maxCount is <= 0 it follows the chain forever.
	Run(ctx context.Context, maxCount int64) error

	// ResumePoint returns the next block number to ingest, derived from the store
	ResumePoint(ctx context.Context) (int64, error)

	// FollowChain ingests blocks one at a time from startBlockNumber, waiting for new blocks
	// at the tip of the chain. A failed block is retried until it succeeds, it is never skipped.
	FollowChain(ctx context.Context, startBlockNumber int64, maxCount int64) error

	// IngestBlock fetches a single block under the request deadline, extracts its proposer and
	// timestamp, and upserts it into the store
	IngestBlock(ctx context.Context, blockNumber int64) error

	// ReportProgress logs a progress report periodically until the context is cancelled
	ReportProgress(ctx context.Context) error

	Info() Info

	Close() error
}

const (
	defaultPollInterval           = 10 * time.Second
	defaultRetryInterval          = 10 * time.Second
	defaultRequestTimeout         = 5 * time.Second
	defaultMaxInflightRequests    = 4
	defaultReportProgressInterval = 30 * time.Second
)

type Config struct {
	// PollInterval is how long to wait at the tip of the chain before asking for new blocks
	PollInterval time.Duration
	// RetryInterval is how long to wait before retrying a failed block or a failed tip refresh
	RetryInterval time.Duration
	// RequestTimeout bounds every request to the node
	RequestTimeout time.Duration
	// MaxInflightRequests caps requests left running after their deadline
	MaxInflightRequests int
	// MaxBlockAttempts makes the follower give up after that many failed attempts on one block.
	// 0 retries forever.
	MaxBlockAttempts int
	ReportProgressInterval time.Duration
	Clock                  clock.Clock
}

type ingester struct {
	log    *slog.Logger
	node   algod.BlockchainClient
	store  store.BlockStore
	runner *bounded.Runner
	clock  clock.Clock
	cfg    Config
	info   Info
	state  atomic.Int32
}

func New(
	log *slog.Logger,
	node algod.BlockchainClient,
	store store.BlockStore,
	cfg Config,
) (Ingester, error) {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxInflightRequests == 0 {
		cfg.MaxInflightRequests = defaultMaxInflightRequests
	}
	if cfg.ReportProgressInterval == 0 {
		cfg.ReportProgressInterval = defaultReportProgressInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MaxBlockAttempts < 0 {
		return nil, errors.Errorf("MaxBlockAttempts must be >= 0")
	}

	runner, err := bounded.NewRunner(bounded.Config{
		Timeout:     cfg.RequestTimeout,
		MaxInflight: cfg.MaxInflightRequests,
		Clock:       cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	return &ingester{
		log:    log.With("module", "ingester"),
		node:   node,
		store:  store,
		runner: runner,
		clock:  cfg.Clock,
		cfg:    cfg,
		info:   NewInfo(),
	}, nil
}

// Info returns a snapshot of the follower progress
func (i *ingester) Info() Info {
	return Info{
		LatestBlockNumber:   atomic.LoadInt64(&i.info.LatestBlockNumber),
		IngestedBlockNumber: atomic.LoadInt64(&i.info.IngestedBlockNumber),
		State:               State(i.state.Load()),
		Errors:              i.info.Errors,
		Since:               i.info.Since,
	}
}

// setState returns true when the state changed
func (i *ingester) setState(s State) bool {
	previous := State(i.state.Swap(int32(s)))
	if previous != s {
		observeState(s)
		return true
	}
	return false
}
