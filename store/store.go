package store

import (
	"context"

	"github.com/voi-tools/proposer-follower/models"
)

//go:generate moq -pkg store_mock -out ../mocks/store/store.go . BlockStore

// BlockStore persists one row per ingested block, keyed by block number.
type BlockStore interface {
	// MaxBlockNumber returns the highest stored block number, 0 when nothing is stored
	MaxBlockNumber(ctx context.Context) (int64, error)
	// UpsertBlock atomically inserts the record, replacing any row with the same block number
	UpsertBlock(ctx context.Context, record models.BlockRecord) error
	Close() error
}

const DefaultPath = "proposers.db"

type Config struct {
	// Path of the SQLite database file, created if missing
	Path string
}
