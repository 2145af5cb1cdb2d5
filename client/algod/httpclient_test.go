package algod_test

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/voi-tools/proposer-follower/client/algod"
	algod_mock "github.com/voi-tools/proposer-follower/mocks/algod"
)

type MockedRequest struct {
	Path        string
	HTTPHeaders http.Header
	StatusCode  int // optional, default to 200
	Body        string
}

// MockHTTPRequests returns a mock http client serving the recorded responses.
// Non-registered paths return an error, except /v2/status which answers with a default round.
func MockHTTPRequests(requests []MockedRequest) *algod_mock.HTTPClientMock {
	return &algod_mock.HTTPClientMock{
		DoFunc: func(req *retryablehttp.Request) (*http.Response, error) {
			if req.Method != http.MethodGet {
				return nil, fmt.Errorf("expected GET method, got %s", req.Method)
			}
			for _, r := range requests {
				if r.Path != req.URL.RequestURI() {
					continue
				}
				for k, v := range r.HTTPHeaders {
					if req.Header.Get(k) != v[0] {
						return nil, fmt.Errorf("expected header %s to be %s, got %s", k, v[0], req.Header.Get(k))
					}
				}
				resp := &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewReader([]byte(r.Body))),
					Header:     make(http.Header),
				}
				if r.StatusCode != 0 {
					resp.StatusCode = r.StatusCode
				}
				resp.Header.Set("Content-Type", "application/json")
				return resp, nil
			}
			if req.URL.Path == "/v2/status" {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewReader([]byte(`{"last-round":8017051}`))),
				}, nil
			}
			return nil, fmt.Errorf("no matching request found, req: %s", req.URL.RequestURI())
		},
	}
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func NewTestClient(httpClient algod.HTTPClient) (algod.BlockchainClient, error) {
	return algod.NewRPCClient(NewTestLogger(), httpClient, algod.Config{URL: "https://algod.test"})
}
