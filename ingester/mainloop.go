package ingester

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"
	"github.com/voi-tools/proposer-follower/client/algod"
	"github.com/voi-tools/proposer-follower/lib/bounded"
	"github.com/voi-tools/proposer-follower/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrFinishedFollowing      = errors.New("finished following the chain")
	ErrBlockAttemptsExhausted = errors.New("too many failed attempts on block")
	ErrStore                  = errors.New("store error")
)

// Run resumes from the store and follows the chain, reporting progress alongside.
//
// The follower is strictly sequential: block n+1 is only fetched once block n is persisted,
// so the store never has gaps below its highest block.
func (i *ingester) Run(ctx context.Context, maxCount int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startBlockNumber, err := i.ResumePoint(ctx)
	if err != nil {
		return err
	}

	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		return i.ReportProgress(ctx)
	})

	i.log.Info("Starting ingester",
		"runForever", maxCount <= 0,
		"startBlockNumber", startBlockNumber,
		"maxCount", maxCount,
		"requestTimeout", i.cfg.RequestTimeout,
		"maxBlockAttempts", i.cfg.MaxBlockAttempts,
	)

	err = i.FollowChain(ctx, startBlockNumber, maxCount)
	i.log.Info("FollowChain is done", "error", err)
	cancel()

	if groupErr := errGroup.Wait(); groupErr != nil && !errors.Is(groupErr, context.Canceled) {
		return groupErr
	}
	if errors.Is(err, ErrFinishedFollowing) {
		return nil
	}
	return err
}

func (i *ingester) ResumePoint(ctx context.Context) (int64, error) {
	highest, err := i.store.MaxBlockNumber(ctx)
	if err != nil {
		return 0, errors.Errorf("failed to read resume point: %w", err)
	}
	i.log.Info("Highest stored block in the database", "blockNumber", highest)
	atomic.StoreInt64(&i.info.IngestedBlockNumber, highest)
	observeIngestedBlockNumber(highest)
	return highest + 1, nil
}

func (i *ingester) FollowChain(ctx context.Context, startBlockNumber int64, maxCount int64) error {
	latestBlockNumber, err := i.waitForLatestBlockNumber(ctx)
	if err != nil {
		return err
	}

	// Follow forever if maxCount is <= 0
	dontStop := maxCount <= 0
	blockNumber := startBlockNumber
	attempts := 0
	for ingested := int64(0); dontStop || ingested < maxCount; {
		if err := ctx.Err(); err != nil {
			return err
		}

		if blockNumber > latestBlockNumber {
			latestBlockNumber, err = i.waitForBlock(ctx, blockNumber, latestBlockNumber)
			if err != nil {
				return err
			}
			continue
		}

		i.setState(StateCatchingUp)
		i.logProgress(blockNumber, latestBlockNumber)

		if err := i.IngestBlock(ctx, blockNumber); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempts++
			i.observeBlockError(blockNumber, attempts, err)
			if i.cfg.MaxBlockAttempts > 0 && attempts >= i.cfg.MaxBlockAttempts {
				return errors.Errorf("%w %d after %d attempts: %w", ErrBlockAttemptsExhausted, blockNumber, attempts, err)
			}
			// retry the same block, never skip it
			i.setState(StateBackoff)
			if err := i.sleep(ctx, i.cfg.RetryInterval); err != nil {
				return err
			}
			continue
		}

		attempts = 0
		blockNumber++
		ingested++
	}
	i.log.Debug("Finished following the chain", "maxCount", maxCount, "nextBlockNumber", blockNumber)
	return ErrFinishedFollowing
}

func (i *ingester) IngestBlock(ctx context.Context, blockNumber int64) error {
	startTime := time.Now()

	block, err := bounded.Do(ctx, i.runner, func(ctx context.Context) (models.RPCBlock, error) {
		return i.node.BlockByNumber(ctx, blockNumber)
	})
	if err != nil {
		return err
	}
	getBlockElapsed := time.Since(startTime)

	record, err := algod.ExtractBlockRecord(block)
	if err != nil {
		return err
	}
	if err := i.store.UpsertBlock(ctx, record); err != nil {
		return errors.Errorf("%w: %w", ErrStore, err)
	}

	atomic.StoreInt64(&i.info.IngestedBlockNumber, blockNumber)
	observeIngestedBlockNumber(blockNumber)
	i.log.Debug("Ingested block",
		"blockNumber", blockNumber,
		"proposer", record.Proposer,
		"timestamp", record.TimestampText(),
		"getBlockElapsed", getBlockElapsed,
		"elapsed", time.Since(startTime),
	)
	return nil
}

// waitForBlock sleeps at the tip of the chain until blockNumber is available
func (i *ingester) waitForBlock(ctx context.Context, blockNumber int64, latestBlockNumber int64) (int64, error) {
	for blockNumber > latestBlockNumber {
		if i.setState(StateAtHead) {
			i.log.Info("Reached end of chain, sleeping",
				"waitTime", i.cfg.PollInterval.String(),
				"latestBlockNumber", latestBlockNumber,
			)
		} else {
			i.log.Debug("Waiting for block to be available",
				"waitTime", i.cfg.PollInterval.String(),
				"blockNumber", blockNumber,
				"latestBlockNumber", latestBlockNumber,
			)
		}
		if err := i.sleep(ctx, i.cfg.PollInterval); err != nil {
			return latestBlockNumber, err
		}
		latest, err := i.tryUpdateLatestBlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return latestBlockNumber, ctx.Err()
			}
			if err := i.sleep(ctx, i.cfg.RetryInterval); err != nil {
				return latestBlockNumber, err
			}
			continue
		}
		latestBlockNumber = latest
	}
	return latestBlockNumber, nil
}

// waitForLatestBlockNumber retries until the node reports its latest block
func (i *ingester) waitForLatestBlockNumber(ctx context.Context) (int64, error) {
	for {
		latest, err := i.tryUpdateLatestBlockNumber(ctx)
		if err == nil {
			return latest, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if err := i.sleep(ctx, i.cfg.RetryInterval); err != nil {
			return 0, err
		}
	}
}

func (i *ingester) tryUpdateLatestBlockNumber(ctx context.Context) (int64, error) {
	latest, err := bounded.Do(ctx, i.runner, i.node.LatestBlockNumber)
	if err != nil {
		if ctx.Err() == nil {
			i.log.Error("Error retrieving end block from API, retrying.", "error", err)
			i.info.Errors.ObserveRPCError(ErrorInfo{Error: err})
			observeBlockFailure("latest_block_number")
		}
		return 0, err
	}
	atomic.StoreInt64(&i.info.LatestBlockNumber, latest)
	observeLatestBlockNumber(latest)
	return latest, nil
}

func (i *ingester) observeBlockError(blockNumber int64, attempts int, err error) {
	kind := errorKind(err)
	observeBlockFailure(kind)

	errInfo := ErrorInfo{BlockNumber: blockNumber, Error: err}
	if kind == "store" {
		i.info.Errors.ObserveStoreError(errInfo)
	} else {
		i.info.Errors.ObserveRPCError(errInfo)
	}

	if kind == "timeout" {
		i.log.Error("Error retrieving block from API: request timed out, retrying.",
			"blockNumber", blockNumber,
			"attempts", attempts,
			"timeout", i.runner.Timeout(),
		)
		return
	}
	i.log.Error("Error retrieving block from API, retrying.",
		"blockNumber", blockNumber,
		"attempts", attempts,
		"kind", kind,
		"error", err,
	)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, bounded.ErrTimeout):
		return "timeout"
	case errors.Is(err, bounded.ErrOverloaded):
		return "overloaded"
	case errors.Is(err, algod.ErrMalformedBlock):
		return "malformed"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "rpc"
	}
}

func (i *ingester) logProgress(blockNumber int64, latestBlockNumber int64) {
	if ok, to := ShouldLogProgress(blockNumber, latestBlockNumber); ok {
		i.log.Info("Retrieving blocks",
			"from", blockNumber,
			"to", to,
			"behind", latestBlockNumber-blockNumber,
		)
	}
}

func (i *ingester) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.clock.After(d):
		return nil
	}
}

func (i *ingester) ReportProgress(ctx context.Context) error {
	ticker := i.clock.Ticker(i.cfg.ReportProgressInterval)
	defer ticker.Stop()

	previousTime := i.clock.Now()
	previousHoursToCatchUp := float64(0)
	previousIngested := atomic.LoadInt64(&i.info.IngestedBlockNumber)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tNow := <-ticker.C:
			latest := atomic.LoadInt64(&i.info.LatestBlockNumber)
			lastIngested := atomic.LoadInt64(&i.info.IngestedBlockNumber)

			blocksPerSec := float64(lastIngested-previousIngested) / tNow.Sub(previousTime).Seconds()
			newDistance := latest - lastIngested

			fields := []interface{}{
				"blocksPerSec", fmt.Sprintf("%.2f", blocksPerSec),
				"latestBlockNumber", latest,
				"ingestedBlockNumber", lastIngested,
				"state", State(i.state.Load()).String(),
			}
			if newDistance > 1 && blocksPerSec > 0 {
				etaHours := time.Duration(float64(newDistance) / blocksPerSec * float64(time.Second)).Hours()
				fields = append(fields, "hoursToCatchUp", fmt.Sprintf("%.1f", etaHours))
				if previousHoursToCatchUp > 0 && previousHoursToCatchUp < (0.8*etaHours) {
					fields = append(fields, "fallingBehind", true)
				}
				previousHoursToCatchUp = etaHours
			}
			rpcErrors, storeErrors := i.info.Errors.Counts()
			if rpcErrors > 0 {
				fields = append(fields, "rpcErrors", rpcErrors)
			}
			if storeErrors > 0 {
				fields = append(fields, "storeErrors", storeErrors)
			}
			if recent := i.info.Errors.ProgressReportErrors(); len(recent) > 0 {
				fields = append(fields, "lastError", recent[len(recent)-1].Error)
			}

			i.log.Info("PROGRESS REPORT", fields...)
			previousIngested = lastIngested
			previousTime = tNow
			i.info.Errors.Reset()
		}
	}
}

func (i *ingester) Close() error {
	i.log.Info("Closing node")
	i.runner.Release()
	return i.node.Close()
}
