package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"token-dispenser/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// unspentPageSize is the page size used when listing unspent boxes.
	unspentPageSize = 100
)

// ErrBoxNotFound indicates a box is unknown to the node or already spent.
var ErrBoxNotFound = errors.New("box not found")

// Client is an HTTP client for the node's REST API.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithAPIKey sets the api_key header sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new node REST client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs an HTTP call with retries and exponential backoff. 4xx
// responses other than 429 are not retried. A 404 maps to ErrBoxNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api_key", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrBoxNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		case resp.StatusCode != http.StatusOK:
			// Client errors are not retried
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// observeLatency times one logical node call for the latency histogram.
func observeLatency(method string) func() {
	start := time.Now()
	return func() {
		observability.RecordNodeLatency(method, time.Since(start).Seconds())
	}
}

// UnspentBoxesByAddress lists all unspent boxes at an address, following
// pagination until a short page is returned.
func (c *Client) UnspentBoxesByAddress(ctx context.Context, address string) ([]Box, error) {
	defer observeLatency("unspent_boxes")()

	var all []Box
	offset := 0

	for {
		path := "/blockchain/box/unspent/byAddress/" + url.PathEscape(address) +
			"?offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(unspentPageSize)

		var page []Box
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("list unspent boxes: %w", err)
		}

		all = append(all, page...)
		if len(page) < unspentPageSize {
			return all, nil
		}
		offset += len(page)
	}
}

// BoxByID retrieves an unspent box by its ID. Returns ErrBoxNotFound when the
// box is unknown or already spent, which the driver uses for staleness checks.
func (c *Client) BoxByID(ctx context.Context, boxID string) (*Box, error) {
	defer observeLatency("box_by_id")()

	var box Box
	err := c.do(ctx, http.MethodGet, "/utxo/byId/"+url.PathEscape(boxID), nil, &box)
	if err != nil {
		if errors.Is(err, ErrBoxNotFound) {
			return nil, ErrBoxNotFound
		}
		return nil, fmt.Errorf("get box by id: %w", err)
	}
	return &box, nil
}

// BoxBytesByID retrieves the serialized bytes of an unspent box, used to pin
// plan inputs at submission. Returns ErrBoxNotFound for unknown or spent boxes.
func (c *Client) BoxBytesByID(ctx context.Context, boxID string) (string, error) {
	defer observeLatency("box_bytes_by_id")()

	var sb SerializedBox
	err := c.do(ctx, http.MethodGet, "/utxo/byIdBinary/"+url.PathEscape(boxID), nil, &sb)
	if err != nil {
		if errors.Is(err, ErrBoxNotFound) {
			return "", ErrBoxNotFound
		}
		return "", fmt.Errorf("get box bytes: %w", err)
	}
	return sb.Bytes, nil
}

// CurrentHeight returns the node's current full block height.
func (c *Client) CurrentHeight(ctx context.Context) (int64, error) {
	defer observeLatency("info")()

	var info nodeInfo
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return 0, fmt.Errorf("get node info: %w", err)
	}
	return info.FullHeight, nil
}

// SubmitTransaction asks the node wallet to assemble, sign and send a
// transaction spending exactly the request's input boxes. Returns the tx ID.
func (c *Client) SubmitTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	defer observeLatency("submit_transaction")()

	var txID string
	if err := c.do(ctx, http.MethodPost, "/wallet/transaction/send", req, &txID); err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}
	return txID, nil
}
