package bitfinex

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.bitfinex.com"

	// Bitfinex allows 90 req/min on public and 90 req/min on most auth
	// endpoints; run at 60% of that so bursts from interleaved cycles
	// never trip the limiter server-side.
	publicReqPerMin = 54
	authReqPerMin   = 54

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is the Bitfinex REST v2 client with rate limiting, bounded retries
// and HMAC-SHA384 request signing. It implements ports.MarketData and
// ports.FundingDesk.
type Client struct {
	http          *http.Client
	baseURL       string
	apiKey        string
	apiSecret     string
	publicLimiter *rate.Limiter
	authLimiter   *rate.Limiter

	nonceMu   sync.Mutex
	lastNonce int64
}

// NewClient creates a Client. An empty baseURL selects production.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:          &http.Client{Timeout: 15 * time.Second},
		baseURL:       baseURL,
		apiKey:        apiKey,
		apiSecret:     apiSecret,
		publicLimiter: rate.NewLimiter(rate.Every(time.Minute/publicReqPerMin), 10),
		authLimiter:   rate.NewLimiter(rate.Every(time.Minute/authReqPerMin), 5),
	}
}

// get performs a public GET with rate limiting and retries.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doWithRetry(ctx, c.publicLimiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// signedPost performs an authenticated POST. Bitfinex signs
// "/api" + path + nonce + rawBody with HMAC-SHA384 of the API secret and
// sends the hex digest in bfx-signature.
func (c *Client) signedPost(ctx context.Context, path string, body, out any) error {
	raw := []byte("{}")
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	return c.doWithRetry(ctx, c.authLimiter, func() (*http.Response, error) {
		nonce := c.nextNonce()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("bfx-nonce", nonce)
		req.Header.Set("bfx-apikey", c.apiKey)
		req.Header.Set("bfx-signature", signPayload(c.apiSecret, "/api"+path+nonce+string(raw)))
		return c.http.Do(req)
	}, out)
}

// nextNonce returns a strictly increasing millisecond nonce. The exchange
// rejects any request whose nonce is not greater than the previous one.
func (c *Client) nextNonce() string {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	n := time.Now().UnixMilli()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatInt(n, 10)
}

// signPayload computes the hex HMAC-SHA384 digest of the payload.
func signPayload(secret, payload string) string {
	mac := hmac.New(sha512.New384, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// doWithRetry executes the request with exponential backoff on transport
// errors, 429 and 5xx. 4xx responses are returned immediately: retrying a
// rejected order does not make it valid.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by exchange", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep waits with exponential backoff, respecting the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
