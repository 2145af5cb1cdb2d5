package ingester

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/voi-tools/proposer-follower/models"
)

const maxRecentErrors = 100

type State int32

const (
	StateStarting State = iota
	StateCatchingUp
	StateAtHead
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateCatchingUp:
		return "catching_up"
	case StateAtHead:
		return "at_head"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

type Info struct {
	LatestBlockNumber   int64
	IngestedBlockNumber int64
	State               State
	Errors              *ErrorState
	Since               time.Time
}

func NewInfo() Info {
	return Info{
		Errors: NewErrorState(),
		Since:  time.Now(),
	}
}

// ToProgressReport summarizes a snapshot, such as the one returned by Ingester.Info
func (info Info) ToProgressReport() models.FollowerProgress {
	rpcCount, storeCount := info.Errors.Counts()
	return models.FollowerProgress{
		IngestedBlockNumber: info.IngestedBlockNumber,
		LatestBlockNumber:   info.LatestBlockNumber,
		State:               info.State.String(),
		RecentErrors:        info.Errors.ProgressReportErrors(),
		RPCErrorCount:       rpcCount,
		StoreErrorCount:     storeCount,
		Since:               info.Since,
	}
}

// ErrorState keeps the most recent errors per source and counts all of them since the last reset.
// It is safe for concurrent use.
type ErrorState struct {
	mu              sync.Mutex
	rpcErrors       *circularbuffer.Queue
	storeErrors     *circularbuffer.Queue
	rpcErrorCount   int
	storeErrorCount int
}

func NewErrorState() *ErrorState {
	return &ErrorState{
		rpcErrors:   circularbuffer.New(maxRecentErrors),
		storeErrors: circularbuffer.New(maxRecentErrors),
	}
}

func (es *ErrorState) Reset() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.rpcErrors.Clear()
	es.storeErrors.Clear()
	es.rpcErrorCount = 0
	es.storeErrorCount = 0
}

func (es *ErrorState) Counts() (rpc int, store int) {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.rpcErrorCount, es.storeErrorCount
}

// ObserveRPCError records an error talking to the node. Once the buffer is full the oldest error is dropped.
func (es *ErrorState) ObserveRPCError(err ErrorInfo) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.rpcErrorCount++
	err.Timestamp = time.Now()
	es.rpcErrors.Enqueue(err)
}

func (es *ErrorState) ObserveStoreError(err ErrorInfo) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.storeErrorCount++
	err.Timestamp = time.Now()
	es.storeErrors.Enqueue(err)
}

// ProgressReportErrors returns a combined list of the recent node and store errors, oldest first per source
func (es *ErrorState) ProgressReportErrors() []models.FollowerError {
	es.mu.Lock()
	defer es.mu.Unlock()
	errors := make([]models.FollowerError, 0, es.rpcErrors.Size()+es.storeErrors.Size())
	for _, v := range es.rpcErrors.Values() {
		errors = append(errors, v.(ErrorInfo).toFollowerError("rpc"))
	}
	for _, v := range es.storeErrors.Values() {
		errors = append(errors, v.(ErrorInfo).toFollowerError("store"))
	}
	return errors
}

// ErrorInfo is a failed attempt. BlockNumber is 0 when the latest block number could not be read.
type ErrorInfo struct {
	Timestamp   time.Time
	BlockNumber int64
	Error       error
}

func (e ErrorInfo) toFollowerError(source string) models.FollowerError {
	msg := ""
	if e.Error != nil {
		msg = e.Error.Error()
	}
	return models.FollowerError{
		Timestamp:   e.Timestamp,
		BlockNumber: e.BlockNumber,
		Error:       msg,
		Source:      source,
	}
}
