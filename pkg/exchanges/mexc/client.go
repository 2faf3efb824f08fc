// Package mexc implements a MEXC spot REST client with signed requests
// and bounded retry on transient failures.
package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"volume-core/pkg/exchanges/common"
)

// ErrRetriesExhausted is returned when a request kept failing with
// transient errors until the retry budget ran out.
var ErrRetriesExhausted = errors.New("mexc: retries exhausted")

// APIError is a non-retryable error response from the exchange.
type APIError struct {
	Status int    // HTTP status
	Code   int    // exchange error code, 0 when absent
	Msg    string // exchange message or raw body
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mexc: status %d code %d: %s", e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("mexc: status %d: %s", e.Status, e.Msg)
}

// Config holds MEXC credentials and retry tuning.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string        // defaults to the production endpoint
	RecvWindow int64         // ms, defaults to 5000
	MaxRetries int           // transient retries per request, defaults to 3
	RetryBase  time.Duration // first retry delay, doubled each attempt, defaults to 1s
}

// Client is a MEXC spot trading client.
type Client struct {
	cfg         Config
	baseURL     string
	httpClient  *http.Client
	timeSync    *common.TimeSync
	rateLimiter *common.RateLimiter

	// sleep waits between retry attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.mexc.com"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = time.Second
	}
	client := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sleep:      ctxSleep,
	}
	// Initialize TimeSync (will sync on first use)
	client.timeSync = common.NewTimeSync(func() (int64, error) {
		return client.ServerTime()
	})
	// Spot endpoints share a 500 weight / 10s window
	client.rateLimiter = common.NewRateLimiter(500, 10*time.Second)
	return client
}

// StartTimeSync begins background clock synchronization with the exchange.
func (c *Client) StartTimeSync(ctx context.Context) {
	c.timeSync.Start(ctx)
}

// RateUsage reports current rate limit consumption.
func (c *Client) RateUsage() (used, limit int, pct float64) {
	return c.rateLimiter.GetUsage()
}

// execute performs one REST call, signing it when signed is true and
// retrying transient failures with exponential backoff. The attempt
// counter is local to the call.
func (c *Client) execute(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if signed && (c.cfg.APIKey == "" || c.cfg.APISecret == "") {
		return nil, errors.New("mexc: API key/secret required")
	}
	if params == nil {
		params = url.Values{}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		body, retryable, err := c.doOnce(ctx, method, path, params, signed)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		if attempt >= c.cfg.MaxRetries {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt+1, lastErr)
		}
		delay := c.cfg.RetryBase << attempt
		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// doOnce performs a single HTTP attempt. The bool result reports whether
// the failure is transient.
func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, bool, error) {
	// Copy so per-attempt timestamp and signature never accumulate.
	vals := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			vals.Add(k, v)
		}
	}
	if signed {
		timestamp := time.Now().UnixMilli()
		if c.timeSync != nil && c.timeSync.Offset() != 0 {
			timestamp = c.timeSync.Now()
		}
		vals.Set("timestamp", strconv.FormatInt(timestamp, 10))
		vals.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
		// Encode sorts keys, which is the canonical form MEXC verifies.
		vals.Set("signature", sign(vals.Encode(), c.cfg.APISecret))
	}

	var (
		req *http.Request
		err error
	)
	endpoint := c.baseURL + path
	encoded := vals.Encode()
	switch method {
	case http.MethodGet, http.MethodDelete:
		urlWithQuery := endpoint
		if encoded != "" {
			urlWithQuery += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, urlWithQuery, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, false, err
	}
	if signed {
		req.Header.Set("X-MEXC-APIKEY", c.cfg.APIKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure, worth retrying unless the caller is gone.
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer res.Body.Close()

	if c.rateLimiter != nil {
		c.rateLimiter.UpdateFromHeader(res.Header.Get("X-Mexc-Used-Weight-10s"))
	}

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		apiErr := parseAPIError(res.StatusCode, body)
		return nil, isTransientStatus(res.StatusCode), apiErr
	}
	return body, false, nil
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Msg != "" {
		return &APIError{Status: status, Code: payload.Code, Msg: payload.Msg}
	}
	return &APIError{Status: status, Msg: string(body)}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
