package algod

import (
	"bytes"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/go-errors/errors"
	"github.com/voi-tools/proposer-follower/models"
)

var ErrMalformedBlock = errors.New("malformed block payload")

// blockResponse is the subset of the msgpack /v2/blocks/{round} document we need.
// The certificate is only served in the msgpack encoding.
type blockResponse struct {
	Block *struct {
		Round     uint64 `codec:"rnd"`
		Timestamp *int64 `codec:"ts"`
	} `codec:"block"`
	Cert *struct {
		Prop struct {
			OriginalProposer []byte `codec:"oprop"`
		} `codec:"prop"`
	} `codec:"cert"`
}

// ExtractBlockRecord decodes the proposer and production time of a msgpack block payload.
// Any missing or undecodable field is reported as ErrMalformedBlock.
func ExtractBlockRecord(block models.RPCBlock) (models.BlockRecord, error) {
	var resp blockResponse
	// lenient, the header and certificate carry many fields we ignore
	if err := msgpack.NewLenientDecoder(bytes.NewReader(block.Payload)).Decode(&resp); err != nil {
		return models.BlockRecord{}, malformed(block.BlockNumber, "decode payload: %v", err)
	}
	if resp.Block == nil {
		return models.BlockRecord{}, malformed(block.BlockNumber, "missing block header")
	}
	// rnd is omitted when zero
	if resp.Block.Round != 0 && resp.Block.Round != uint64(block.BlockNumber) {
		return models.BlockRecord{}, malformed(block.BlockNumber, "payload is for round %d", resp.Block.Round)
	}
	if resp.Block.Timestamp == nil {
		return models.BlockRecord{}, malformed(block.BlockNumber, "missing timestamp")
	}
	if resp.Cert == nil || len(resp.Cert.Prop.OriginalProposer) == 0 {
		return models.BlockRecord{}, malformed(block.BlockNumber, "missing proposer")
	}
	if len(resp.Cert.Prop.OriginalProposer) != len(types.Address{}) {
		return models.BlockRecord{}, malformed(block.BlockNumber,
			"proposer key has %d bytes", len(resp.Cert.Prop.OriginalProposer))
	}
	proposer, err := types.EncodeAddress(resp.Cert.Prop.OriginalProposer)
	if err != nil {
		return models.BlockRecord{}, malformed(block.BlockNumber, "encode proposer: %v", err)
	}
	return models.BlockRecord{
		BlockNumber: block.BlockNumber,
		Proposer:    proposer,
		Timestamp:   time.Unix(*resp.Block.Timestamp, 0).UTC(),
	}, nil
}

func malformed(blockNumber int64, format string, args ...interface{}) error {
	args = append([]interface{}{ErrMalformedBlock, blockNumber}, args...)
	return errors.Errorf("%w: round %d: "+format, args...)
}
