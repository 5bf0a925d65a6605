package trendyol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Trendyol API gateway.
	DefaultBaseURL = "https://apigw.trendyol.com"

	// MaxRetries is how many times a rate-limited request is repeated before giving up.
	MaxRetries = 2
	// BackoffStep is the linear backoff unit: attempt N (zero-based) waits (N+1)*BackoffStep.
	BackoffStep = 1500 * time.Millisecond

	// maxErrorBody bounds the response body kept on APIError.
	maxErrorBody = 300
)

// Config holds Trendyol API configuration.
type Config struct {
	BaseURL           string
	SellerID          int64
	APIToken          string // base64(apiKey:apiSecret)
	UserAgent         string // "<sellerId> - <integrationName>"
	StoreFrontCode    string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables pacing
}

// Client is the Trendyol integration API client. Every request carries the
// Basic credential and the platform-mandated User-Agent.
type Client struct {
	httpClient *http.Client
	config     Config
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	debug      bool
}

// NewClient creates a new Trendyol client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		sleep:      sleepContext,
		debug:      os.Getenv("ENV") == "development",
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return c
}

// SellerID returns the seller the client is scoped to.
func (c *Client) SellerID() int64 {
	return c.config.SellerID
}

// Backoff returns the delay before retry number attempt+1.
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * BackoffStep
}

// request describes one logical API call; it may be sent several times.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// do sends req, repeating it on 429 up to MaxRetries times, and returns the
// response body of the first non-error response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	endpoint := c.config.BaseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		status, respBody, err := c.send(ctx, req, endpoint, payload)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusTooManyRequests && attempt < MaxRetries:
			delay := Backoff(attempt)
			log.Warn().
				Str("path", req.path).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("[TRENDYOL] Rate limited, backing off")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		case status >= http.StatusBadRequest:
			return nil, &APIError{
				Method:     req.method,
				Path:       req.path,
				StatusCode: status,
				Body:       truncate(string(respBody), maxErrorBody),
			}
		}
		return respBody, nil
	}
}

func (c *Client) send(ctx context.Context, req request, endpoint string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Basic "+c.config.APIToken)
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	if c.debug {
		ev := log.Debug().Str("method", req.method).Str("endpoint", endpoint)
		if payload != nil {
			ev = ev.RawJSON("request", payload)
		}
		ev.Msg("[TRENDYOL] Outgoing request")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("path", req.path).
			Int("status_code", resp.StatusCode).
			Dur("latency", time.Since(start)).
			Int("bytes", len(respBody)).
			Msg("[TRENDYOL] Incoming response")
	}
	return resp.StatusCode, respBody, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
