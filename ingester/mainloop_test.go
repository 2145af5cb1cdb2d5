package ingester_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/go-errors/errors"
	"github.com/stretchr/testify/require"
	"github.com/voi-tools/proposer-follower/client/algod"
	"github.com/voi-tools/proposer-follower/ingester"
	algod_mock "github.com/voi-tools/proposer-follower/mocks/algod"
	store_mock "github.com/voi-tools/proposer-follower/mocks/store"
	"github.com/voi-tools/proposer-follower/models"
	"github.com/voi-tools/proposer-follower/store"
)

// Swap these to see logs
// var logOutput = os.Stderr
var logOutput = io.Discard

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig() ingester.Config {
	return ingester.Config{
		PollInterval:           time.Millisecond,
		RetryInterval:          time.Millisecond,
		RequestTimeout:         time.Second,
		ReportProgressInterval: time.Hour,
	}
}

// proposerKey derives a distinct public key for every block so records can be told apart
func proposerKey(blockNumber int64) []byte {
	key := make([]byte, 32)
	key[0] = byte(blockNumber)
	key[1] = byte(blockNumber >> 8)
	return key
}

// blockPayload encodes a block response the way algod serves it with format=msgpack
func blockPayload(blockNumber int64) []byte {
	return msgpack.Encode(map[string]interface{}{
		"block": map[string]interface{}{
			"rnd":   uint64(blockNumber),
			"ts":    uint64(1700000000 + blockNumber),
			"gen":   "voitest-v1",
			"proto": "future",
		},
		"cert": map[string]interface{}{
			"prop": map[string]interface{}{"oprop": proposerKey(blockNumber)},
			"rnd":  uint64(blockNumber),
			"step": uint64(2),
		},
	})
}

func goodBlock(blockNumber int64) (models.RPCBlock, error) {
	return models.RPCBlock{BlockNumber: blockNumber, Payload: blockPayload(blockNumber)}, nil
}

// memoryStore backs a BlockStoreMock with a map
type memoryStore struct {
	mu      sync.Mutex
	records map[int64]models.BlockRecord
	upserts []int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]models.BlockRecord)}
}

func (m *memoryStore) mock() *store_mock.BlockStoreMock {
	return &store_mock.BlockStoreMock{
		MaxBlockNumberFunc: func(_ context.Context) (int64, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			highest := int64(0)
			for n := range m.records {
				highest = max(highest, n)
			}
			return highest, nil
		},
		UpsertBlockFunc: func(_ context.Context, record models.BlockRecord) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.records[record.BlockNumber] = record
			m.upserts = append(m.upserts, record.BlockNumber)
			return nil
		},
		CloseFunc: func() error {
			return nil
		},
	}
}

func (m *memoryStore) blockNumbers() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.upserts...)
}

func newNode(latest *atomic.Int64) *algod_mock.BlockchainClientMock {
	return &algod_mock.BlockchainClientMock{
		LatestBlockNumberFunc: func(_ context.Context) (int64, error) {
			return latest.Load(), nil
		},
		BlockByNumberFunc: func(_ context.Context, blockNumber int64) (models.RPCBlock, error) {
			return goodBlock(blockNumber)
		},
		CloseFunc: func() error {
			return nil
		},
	}
}

func TestFollowToHeadThenWait(t *testing.T) {
	var latest atomic.Int64
	latest.Store(3)
	node := newNode(&latest)
	mem := newMemoryStore()

	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- ing.Run(ctx, 0)
	}()

	require.Eventually(t, func() bool {
		return ing.Info().State == ingester.StateAtHead
	}, 5*time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Equal(t, []int64{1, 2, 3}, mem.blockNumbers())
	require.Equal(t, int64(3), ing.Info().IngestedBlockNumber)
	require.Equal(t, int64(3), ing.Info().LatestBlockNumber)

	for n := int64(1); n <= 3; n++ {
		record := mem.records[n]
		expected, err := types.EncodeAddress(proposerKey(n))
		require.NoError(t, err)
		require.Equal(t, expected, record.Proposer)
		require.Equal(t, fmt.Sprintf("2023-11-14T22:13:%02d.000Z", 20+n), record.TimestampText())
	}
	// block 4 was never requested while the frontier stayed at 3
	for _, call := range node.BlockByNumberCalls() {
		require.LessOrEqual(t, call.BlockNumber, int64(3))
	}
}

func TestFollowNewBlocksAtHead(t *testing.T) {
	var latest atomic.Int64
	latest.Store(2)
	node := newNode(&latest)
	mem := newMemoryStore()

	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	done := make(chan error, 1)
	go func() {
		done <- ing.Run(context.Background(), 4)
	}()

	require.Eventually(t, func() bool {
		return ing.Info().State == ingester.StateAtHead
	}, 5*time.Second, time.Millisecond)
	latest.Store(4)

	require.NoError(t, <-done)
	require.Equal(t, []int64{1, 2, 3, 4}, mem.blockNumbers())
}

func TestResumeFromStoredBlock(t *testing.T) {
	var latest atomic.Int64
	latest.Store(8)
	node := newNode(&latest)
	mem := newMemoryStore()
	for n := int64(1); n <= 5; n++ {
		mem.records[n] = models.BlockRecord{BlockNumber: n}
	}

	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	next, err := ing.ResumePoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(6), next)

	require.NoError(t, ing.Run(context.Background(), 3))
	require.Equal(t, []int64{6, 7, 8}, mem.blockNumbers())
	require.Equal(t, int64(6), node.BlockByNumberCalls()[0].BlockNumber)
}

func TestResumePointEmptyStore(t *testing.T) {
	var latest atomic.Int64
	mem := newMemoryStore()
	ing, err := ingester.New(newTestLogger(), newNode(&latest), mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	next, err := ing.ResumePoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), next)
}

func TestCursorReadFailureIsFatal(t *testing.T) {
	var latest atomic.Int64
	latest.Store(10)
	node := newNode(&latest)
	storeErr := errors.New("disk on fire")
	blockStore := &store_mock.BlockStoreMock{
		MaxBlockNumberFunc: func(_ context.Context) (int64, error) {
			return 0, storeErr
		},
	}

	ing, err := ingester.New(newTestLogger(), node, blockStore, testConfig())
	require.NoError(t, err)
	defer ing.Close()

	err = ing.Run(context.Background(), 0)
	require.ErrorIs(t, err, storeErr)
	require.Empty(t, node.BlockByNumberCalls())
}

func TestFailedBlockIsRetriedNeverSkipped(t *testing.T) {
	const failures = 3
	var latest atomic.Int64
	latest.Store(3)
	node := newNode(&latest)
	var block2Attempts atomic.Int64
	node.BlockByNumberFunc = func(_ context.Context, blockNumber int64) (models.RPCBlock, error) {
		if blockNumber == 2 && block2Attempts.Add(1) <= failures {
			return models.RPCBlock{}, errors.New("connection reset by peer")
		}
		return goodBlock(blockNumber)
	}
	mem := newMemoryStore()

	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	require.NoError(t, ing.Run(context.Background(), 3))
	require.Equal(t, []int64{1, 2, 3}, mem.blockNumbers())
	require.Equal(t, int64(failures+1), block2Attempts.Load())

	requested := make([]int64, 0)
	for _, call := range node.BlockByNumberCalls() {
		requested = append(requested, call.BlockNumber)
	}
	require.Equal(t, []int64{1, 2, 2, 2, 2, 3}, requested)

	rpcErrors, storeErrors := ing.Info().Errors.Counts()
	require.Equal(t, failures, rpcErrors)
	require.Equal(t, 0, storeErrors)
}

func TestTimeoutDiscardsLateResult(t *testing.T) {
	var latest atomic.Int64
	latest.Store(1)
	node := newNode(&latest)
	var attempts atomic.Int64
	lateResultDelivered := make(chan struct{})
	node.BlockByNumberFunc = func(ctx context.Context, blockNumber int64) (models.RPCBlock, error) {
		if attempts.Add(1) == 1 {
			// hang past the deadline, then answer anyway
			<-ctx.Done()
			defer close(lateResultDelivered)
			return goodBlock(blockNumber)
		}
		return goodBlock(blockNumber)
	}
	mem := newMemoryStore()

	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	ing, err := ingester.New(newTestLogger(), node, mem.mock(), cfg)
	require.NoError(t, err)
	defer ing.Close()

	require.NoError(t, ing.Run(context.Background(), 1))
	<-lateResultDelivered

	require.Equal(t, int64(2), attempts.Load())
	require.Equal(t, []int64{1}, mem.blockNumbers())
	report := ing.Info().ToProgressReport()
	require.Equal(t, 1, report.RPCErrorCount)
	require.Contains(t, report.RecentErrors[0].Error, "request timed out")
	require.Equal(t, int64(1), report.RecentErrors[0].BlockNumber)
}

// syncBuffer collects log lines written from the follower and the bounded runner goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFailureLogMessages(t *testing.T) {
	var latest atomic.Int64
	latest.Store(2)
	node := newNode(&latest)
	var attempts [3]atomic.Int64
	node.BlockByNumberFunc = func(ctx context.Context, blockNumber int64) (models.RPCBlock, error) {
		if attempts[blockNumber].Add(1) == 1 {
			if blockNumber == 1 {
				<-ctx.Done()
				return goodBlock(blockNumber)
			}
			return models.RPCBlock{}, errors.New("connection reset by peer")
		}
		return goodBlock(blockNumber)
	}
	mem := newMemoryStore()

	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	ing, err := ingester.New(logger, node, mem.mock(), cfg)
	require.NoError(t, err)
	defer ing.Close()

	require.NoError(t, ing.Run(context.Background(), 2))
	require.Equal(t, []int64{1, 2}, mem.blockNumbers())

	var timedOut, failed []string
	for _, line := range strings.Split(out.String(), "\n") {
		switch {
		case strings.Contains(line, `msg="Error retrieving block from API: request timed out, retrying."`):
			timedOut = append(timedOut, line)
		case strings.Contains(line, `msg="Error retrieving block from API, retrying."`):
			failed = append(failed, line)
		}
	}
	require.Len(t, timedOut, 1)
	require.Contains(t, timedOut[0], "blockNumber=1")
	require.Contains(t, timedOut[0], "timeout=20ms")
	require.NotContains(t, timedOut[0], "kind=")

	require.Len(t, failed, 1)
	require.Contains(t, failed[0], "blockNumber=2")
	require.Contains(t, failed[0], "kind=rpc")
	require.Contains(t, failed[0], "connection reset by peer")
}

func TestCatchUpTerminates(t *testing.T) {
	const frontier = 250
	var latest atomic.Int64
	latest.Store(frontier)
	node := newNode(&latest)
	mem := newMemoryStore()

	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- ing.Run(ctx, 0)
	}()
	require.Eventually(t, func() bool {
		return ing.Info().State == ingester.StateAtHead
	}, 10*time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	upserted := mem.blockNumbers()
	require.Len(t, upserted, frontier)
	for i, n := range upserted {
		require.Equal(t, int64(i+1), n)
	}
}

func TestMaxBlockAttemptsExhausted(t *testing.T) {
	var latest atomic.Int64
	latest.Store(5)
	node := newNode(&latest)
	node.BlockByNumberFunc = func(_ context.Context, blockNumber int64) (models.RPCBlock, error) {
		payload := msgpack.Encode(map[string]interface{}{
			"block": map[string]interface{}{"rnd": uint64(blockNumber), "ts": uint64(1)},
		})
		return models.RPCBlock{BlockNumber: blockNumber, Payload: payload}, nil
	}
	mem := newMemoryStore()

	cfg := testConfig()
	cfg.MaxBlockAttempts = 3
	ing, err := ingester.New(newTestLogger(), node, mem.mock(), cfg)
	require.NoError(t, err)
	defer ing.Close()

	err = ing.Run(context.Background(), 0)
	require.ErrorIs(t, err, ingester.ErrBlockAttemptsExhausted)
	require.Len(t, node.BlockByNumberCalls(), 3)
	require.Empty(t, mem.blockNumbers())
}

func TestNegativeMaxBlockAttempts(t *testing.T) {
	var latest atomic.Int64
	cfg := testConfig()
	cfg.MaxBlockAttempts = -1
	_, err := ingester.New(newTestLogger(), newNode(&latest), newMemoryStore().mock(), cfg)
	require.Error(t, err)
}

func TestFrontierFailuresAreRetried(t *testing.T) {
	const failures = 3
	var latest atomic.Int64
	latest.Store(2)
	node := newNode(&latest)
	var calls atomic.Int64
	node.LatestBlockNumberFunc = func(_ context.Context) (int64, error) {
		if calls.Add(1) <= failures {
			return 0, errors.New("503 service unavailable")
		}
		return latest.Load(), nil
	}
	mem := newMemoryStore()

	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	require.NoError(t, ing.Run(context.Background(), 2))
	require.Equal(t, []int64{1, 2}, mem.blockNumbers())
	rpcErrors, _ := ing.Info().Errors.Counts()
	require.Equal(t, failures, rpcErrors)
}

func TestStoreFailureIsRetried(t *testing.T) {
	var latest atomic.Int64
	latest.Store(2)
	node := newNode(&latest)
	mem := newMemoryStore()
	blockStore := mem.mock()
	upsert := blockStore.UpsertBlockFunc
	var failures atomic.Int64
	blockStore.UpsertBlockFunc = func(ctx context.Context, record models.BlockRecord) error {
		if record.BlockNumber == 1 && failures.Add(1) <= 2 {
			return errors.New("database is locked")
		}
		return upsert(ctx, record)
	}

	ing, err := ingester.New(newTestLogger(), node, blockStore, testConfig())
	require.NoError(t, err)
	defer ing.Close()

	require.NoError(t, ing.Run(context.Background(), 2))
	require.Equal(t, []int64{1, 2}, mem.blockNumbers())
	require.Len(t, blockStore.UpsertBlockCalls(), 4)

	report := ing.Info().ToProgressReport()
	require.Equal(t, 2, report.StoreErrorCount)
	require.Equal(t, 0, report.RPCErrorCount)
	require.Equal(t, "store", report.RecentErrors[0].Source)
}

func TestIngestBlockMalformed(t *testing.T) {
	var latest atomic.Int64
	node := newNode(&latest)
	node.BlockByNumberFunc = func(_ context.Context, blockNumber int64) (models.RPCBlock, error) {
		// no certificate, as in the JSON encoding
		payload := msgpack.Encode(map[string]interface{}{
			"block": map[string]interface{}{"rnd": uint64(blockNumber), "ts": uint64(1)},
		})
		return models.RPCBlock{BlockNumber: blockNumber, Payload: payload}, nil
	}
	mem := newMemoryStore()
	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	err = ing.IngestBlock(context.Background(), 9)
	require.ErrorIs(t, err, algod.ErrMalformedBlock)
	require.Empty(t, mem.blockNumbers())
}

func TestIngestBlockCancelled(t *testing.T) {
	var latest atomic.Int64
	node := newNode(&latest)
	node.BlockByNumberFunc = func(ctx context.Context, _ int64) (models.RPCBlock, error) {
		<-ctx.Done()
		return models.RPCBlock{}, ctx.Err()
	}
	mem := newMemoryStore()
	ing, err := ingester.New(newTestLogger(), node, mem.mock(), testConfig())
	require.NoError(t, err)
	defer ing.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err = ing.IngestBlock(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, mem.blockNumbers())
}

func TestRunWithSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposers.db")
	var latest atomic.Int64
	latest.Store(5)

	run := func(maxCount int64) {
		db, err := store.Open(context.Background(), newTestLogger(), store.Config{Path: path})
		require.NoError(t, err)
		defer db.Close()

		ing, err := ingester.New(newTestLogger(), newNode(&latest), db, testConfig())
		require.NoError(t, err)
		defer ing.Close()
		require.NoError(t, ing.Run(context.Background(), maxCount))
	}

	// stop half way and restart, as a crash and restart would
	run(3)
	run(2)

	db, err := store.Open(context.Background(), newTestLogger(), store.Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	count, err := db.CountBlocks(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), count)
	highest, err := db.MaxBlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), highest)

	record, err := db.GetBlock(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, record.Proposer, 58)
	require.Equal(t, "2023-11-14T22:13:24.000Z", record.TimestampText())
}
