package algod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/voi-tools/proposer-follower/models"
)

//go:generate moq -pkg algod_mock -out ../../mocks/algod/client.go . BlockchainClient HTTPClient

type BlockchainClient interface {
	// LatestBlockNumber returns the last round the node reports as available
	LatestBlockNumber(ctx context.Context) (int64, error)
	// BlockByNumber returns the raw payload of a single round
	BlockByNumber(ctx context.Context, blockNumber int64) (models.RPCBlock, error)
	Close() error
}

const (
	MaxRetries            = 2
	RetryWaitMin          = 100 * time.Millisecond
	RetryWaitMax          = time.Second
	DefaultRequestTimeout = 30 * time.Second

	apiTokenHeader = "X-Algo-API-Token"
	statusPath     = "/v2/status"
	blockPath      = "/v2/blocks/%d?format=msgpack"

	jsonContentType    = "application/json"
	msgpackContentType = "application/msgpack"
)

type client struct {
	httpClient HTTPClient
	cfg        Config
	log        *slog.Logger
	bufPool    *sync.Pool
}

var _ BlockchainClient = &client{}

func NewClient(log *slog.Logger, cfg Config) (*client, error) { // revive:disable-line:unexported-return
	log = log.With("module", "algod")
	return NewRPCClient(log, NewHTTPClient(log), cfg)
}

func NewRPCClient(log *slog.Logger, httpClient HTTPClient, cfg Config) (*client, error) { // revive:disable-line:unexported-return
	if cfg.URL == "" {
		return nil, errors.New("algod URL is required")
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	c := &client{
		httpClient: httpClient,
		cfg:        cfg,
		log:        log,
		bufPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
	// an unreachable node is not fatal, the follower keeps asking for the latest block until it answers
	latest, err := c.LatestBlockNumber(context.Background())
	if err != nil {
		log.Warn("Could not reach algod, will keep retrying", "url", cfg.URL, "error", err)
		return c, nil
	}
	log.Info("Connected to algod", "url", cfg.URL, "latestBlockNumber", latest)
	return c, nil
}

func (c *client) LatestBlockNumber(ctx context.Context) (int64, error) {
	buf := c.bufPool.Get().(*bytes.Buffer)
	defer c.putBuffer(buf)

	err := c.getResponseBody(ctx, "status", statusPath, jsonContentType, buf)
	if err != nil {
		c.log.Error("Failed to get response from algod",
			"method", "status",
			"error", err,
		)
		return 0, err
	}
	var resp statusResponse
	if err := json.NewDecoder(buf).Decode(&resp); err != nil {
		c.log.Error("Failed to decode response from algod", "method", "status", "error", err)
		return 0, errors.Errorf("failed to decode status response: %w", err)
	}
	return resp.LastRound, nil
}

// BlockByNumber returns the block with the given round as the msgpack document served by algod.
// The certificate, which carries the block proposer, is only part of the msgpack encoding.
func (c *client) BlockByNumber(ctx context.Context, blockNumber int64) (models.RPCBlock, error) {
	tStart := time.Now()
	defer func() {
		c.log.Debug("BlockByNumber", "blockNumber", blockNumber, "duration", time.Since(tStart))
	}()

	buf := c.bufPool.Get().(*bytes.Buffer)
	defer c.putBuffer(buf)

	err := c.getResponseBody(ctx, "block", fmt.Sprintf(blockPath, blockNumber), msgpackContentType, buf)
	if err != nil {
		c.log.Error("Failed to get response from algod",
			"blockNumber", blockNumber,
			"method", "block",
			"error", err,
		)
		return models.RPCBlock{}, err
	}
	// copy out, the buffer goes back to the pool
	payload := make([]byte, buf.Len())
	copy(payload, buf.Bytes())
	return models.RPCBlock{BlockNumber: blockNumber, Payload: payload}, nil
}

// getResponseBody sends a GET request to the node and writes the response body into output
func (c *client) getResponseBody(
	ctx context.Context,
	method string,
	path string,
	accept string,
	output *bytes.Buffer,
) error {
	t0 := time.Now()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", accept)
	if c.cfg.Token != "" {
		req.Header.Set(apiTokenHeader, c.cfg.Token)
	}
	for k, v := range c.cfg.HTTPHeaders {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequestErr(err, method, t0)
		return errors.Errorf("failed to send request for method %s: %w", method, err)
	}
	defer resp.Body.Close()
	observeRequestCode(resp.StatusCode, method, t0)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("response for method %s has status code %d", method, resp.StatusCode)
	}

	output.Reset()
	if _, err := output.ReadFrom(resp.Body); err != nil {
		return errors.Errorf("failed to read response body for method %s: %w", method, err)
	}
	return nil
}

func (c *client) putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	c.bufPool.Put(buf)
}

func (c *client) Close() error {
	return nil
}
