package algod

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzhttp"
)

type HTTPClient interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

// NewHTTPClient retries a request a few times before failing it. The follower retries failed
// blocks on its own schedule, so retries here only smooth over connection hiccups.
func NewHTTPClient(log *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = MaxRetries
	client.RetryWaitMin = RetryWaitMin
	client.RetryWaitMax = RetryWaitMax
	client.Logger = log
	checkRetry := func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		yes, err2 := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if yes {
			if resp == nil {
				log.Warn("Retrying request to algod", "error", err2)
			} else {
				log.Warn("Retrying request to algod", "statusCode", resp.Status, "error", err2)
			}
		}
		return yes, err2
	}
	client.CheckRetry = checkRetry
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.HTTPClient.Timeout = DefaultRequestTimeout
	// block payloads are large JSON documents, ask for them compressed
	client.HTTPClient.Transport = gzhttp.Transport(client.HTTPClient.Transport)
	return client
}
