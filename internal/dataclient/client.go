// Package dataclient implements C1, the typed HTTP client over the external
// portfolio data backend. It forwards the caller's bearer token and retries
// transient faults with exponential backoff.
package dataclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sigmasight/agentcore/internal/retry"
)

// Error is a classified failure from the data backend.
type Error struct {
	StatusCode int
	Retryable  bool
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("data backend: status=%d %s", e.StatusCode, e.Message)
}

// Client is the singleton, process-wide client for the data backend.
// Connection pooling is shared across all tool handlers through the
// underlying http.Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCfg   retry.Config
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	TimeoutSeconds int // per-call timeout, 5-6s per §4.1
}

// New builds a Client with a dedicated transport for connection pooling.
func New(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:  cfg.BaseURL,
		retryCfg: retry.DefaultConfig(),
	}
}

// Get performs a GET against path with the given query parameters, forwarding
// bearerToken as the caller's identity, and decodes the JSON response into
// out. Transient faults (network error, 5xx, 429) are retried with
// exponential backoff, up to three attempts in total; other 4xx responses are
// not retried.
func (c *Client) Get(ctx context.Context, bearerToken, path string, query map[string]string, out any) error {
	url := c.baseURL + path
	if len(query) > 0 {
		q := "?"
		first := true
		for k, v := range query {
			if !first {
				q += "&"
			}
			first = false
			q += k + "=" + v
		}
		url += q
	}

	var body []byte
	result := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		if bearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+bearerToken)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // network error: retryable
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = b
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &Error{StatusCode: resp.StatusCode, Retryable: true, Message: string(b)}
		}

		return retry.Permanent(&Error{StatusCode: resp.StatusCode, Retryable: false, Message: string(b)})
	})

	if result.Err != nil {
		return classify(result.Err)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode data backend response: %w", err)
		}
	}
	return nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var perm *retry.PermanentError
	if pe, ok := err.(*retry.PermanentError); ok {
		perm = pe
		if de, ok := perm.Err.(*Error); ok {
			return de
		}
	}
	if de, ok := err.(*Error); ok {
		return de
	}
	// context or network exhaustion: surface as a retryable transient error.
	return &Error{StatusCode: 0, Retryable: true, Message: err.Error()}
}

// PostJSON performs a POST with a JSON body; used by no current operation
// set (all six data-backend operations this module consumes are reads) but
// kept as part of the client's surface for forward compatibility with
// read-only query-by-body endpoints.
func (c *Client) PostJSON(ctx context.Context, bearerToken, path string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	var body []byte
	result := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
		if err != nil {
			return retry.Permanent(err)
		}
		if bearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+bearerToken)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = b
			return nil
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &Error{StatusCode: resp.StatusCode, Retryable: true, Message: string(b)}
		}
		return retry.Permanent(&Error{StatusCode: resp.StatusCode, Retryable: false, Message: string(b)})
	})

	if result.Err != nil {
		return classify(result.Err)
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}
