package models

import "time"

// TimestampLayout is the canonical textual form of a block timestamp: ISO-8601, UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type RPCBlock struct {
	BlockNumber int64
	// agnostic blob of data that is the block, as returned by the node
	Payload []byte
}

// BlockRecord is the persisted fact for one ingested block.
type BlockRecord struct {
	BlockNumber int64     `db:"block"`
	Proposer    string    `db:"proposer"`
	Timestamp   time.Time `db:"timestamp"`
}

func (r BlockRecord) TimestampText() string {
	return FormatTimestamp(r.Timestamp)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
