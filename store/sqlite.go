package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/go-errors/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/voi-tools/proposer-follower/models"
)

var ErrNotFound = errors.New("block not found")

type SQLiteStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

var _ BlockStore = &SQLiteStore{}

// Open opens (or creates) the database file and brings its schema up to date.
func Open(ctx context.Context, log *slog.Logger, cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	log = log.With("module", "store")

	db, err := sqlx.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errors.Errorf("failed to open database: %w", err)
	}
	// single writer, sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Errorf("failed to ping database: %w", err)
	}
	if err := migrate(ctx, log, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Opened database", "path", cfg.Path)
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) MaxBlockNumber(ctx context.Context) (int64, error) {
	var highest sql.NullInt64
	if err := s.db.GetContext(ctx, &highest, `SELECT MAX(block) FROM blocks`); err != nil {
		return 0, errors.Errorf("failed to get highest stored block: %w", err)
	}
	return highest.Int64, nil
}

func (s *SQLiteStore) UpsertBlock(ctx context.Context, record models.BlockRecord) (err error) {
	t0 := time.Now()
	defer func() { observeUpsert(err, t0) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Errorf("failed to begin transaction: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO blocks (block, proposer, timestamp) VALUES (?, ?, ?)`,
		record.BlockNumber, record.Proposer, record.TimestampText(),
	)
	if err != nil {
		_ = tx.Rollback()
		return errors.Errorf("failed to store block %d: %w", record.BlockNumber, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Errorf("failed to commit block %d: %w", record.BlockNumber, err)
	}
	return nil
}

// GetBlock returns the stored row for blockNumber, or ErrNotFound.
func (s *SQLiteStore) GetBlock(ctx context.Context, blockNumber int64) (models.BlockRecord, error) {
	var record models.BlockRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT block, proposer, timestamp FROM blocks WHERE block = ?`, blockNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BlockRecord{}, ErrNotFound
	}
	if err != nil {
		return models.BlockRecord{}, errors.Errorf("failed to get block %d: %w", blockNumber, err)
	}
	return record, nil
}

func (s *SQLiteStore) CountBlocks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM blocks`); err != nil {
		return 0, errors.Errorf("failed to count blocks: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
