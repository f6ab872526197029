package bitmex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/jpillora/backoff"

	"github.com/gr-satt/bordem/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://www.bitmex.com/api/v1"
	baseURLTestnet    = "https://testnet.bitmex.com/api/v1"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 3 * time.Second
)

// Client performs authenticated calls against the exchange REST API.
// The HTTP transport is constructed lazily on first use and reused for the
// lifetime of the client; it is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	logger     ports.Logger
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	cacheDir   string
	transport  http.RoundTripper
	now        func() time.Time

	mu         sync.Mutex
	httpClient *http.Client
}

// Config holds configuration for the exchange request client.
type Config struct {
	APIKey     string
	APISecret  string
	UseTestnet bool
	Logger     ports.Logger

	RequestTimeout time.Duration // Per-request timeout (default 10s)
	MaxRetries     int           // Retry attempts after the first try (default 3)
	RetryDelay     time.Duration // Initial backoff delay between retries (default 3s)
	CacheDir       string        // Response cache directory (default under os.TempDir)

	// BaseURL overrides the production/testnet selection. Used by tests.
	BaseURL string
	// Transport overrides the caching transport. Used by tests.
	Transport http.RoundTripper
	// Now overrides the clock used for signing. Used by tests.
	Now func() time.Time
}

// New creates a new exchange request client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for exchange client", ports.ErrConfiguration)
	}
	if cfg.APIKey != "" && cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: api key set without a secret", ports.ErrConfiguration)
	}
	if cfg.APIKey == "" {
		cfg.Logger.Warn(context.Background(), "No API credentials configured. Requests will be sent unauthenticated; private endpoints will fail.")
	}

	baseURL := baseURLProduction
	if cfg.UseTestnet {
		baseURL = baseURLTestnet
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	cfg.Logger.Info(context.Background(), "Exchange client configured", map[string]interface{}{"baseURL": baseURL})

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "bordem_cache")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		logger:     cfg.Logger,
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		cacheDir:   cacheDir,
		transport:  cfg.Transport,
		now:        now,
	}, nil
}

// session returns the cached HTTP client, constructing it on first use.
// Construction is idempotent; the instance is shared across all calls for
// connection and response-cache reuse.
func (c *Client) session() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient == nil {
		transport := c.transport
		if transport == nil {
			transport = httpcache.NewTransport(diskcache.New(c.cacheDir))
		}
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: transport,
		}
	}
	return c.httpClient
}

// Request performs one API call for the named operation. Params become the
// query string for GET operations and the form-encoded body for mutating
// verbs; no per-operation validation happens at this layer.
func (c *Client) Request(ctx context.Context, op Operation, params url.Values) (*Envelope, error) {
	ep, err := Resolve(op)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, ep, params)
}

func (c *Client) do(ctx context.Context, ep Endpoint, params url.Values) (*Envelope, error) {
	client := c.session()
	boff := &backoff.Backoff{
		Min:    c.retryDelay,
		Max:    c.retryDelay * 8,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// The request is rebuilt per attempt: the body reader is consumed by
		// transmission and the signature expiry must be fresh.
		req, err := c.newRequest(ctx, ep, params)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ports.ErrTransmission, ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %s %s: %v", ports.ErrTransmission, ep.Verb, ep.Path, err)
			c.logger.Warn(ctx, "Request transmission failed", map[string]interface{}{
				"verb": ep.Verb, "path": ep.Path, "attempt": attempt + 1, "error": err.Error(),
			})
			if attempt == c.maxRetries {
				return nil, lastErr
			}
			if waitErr := c.sleep(ctx, boff.Duration()); waitErr != nil {
				return nil, lastErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading response body: %v", ports.ErrTransmission, readErr)
			if attempt == c.maxRetries {
				return nil, lastErr
			}
			if waitErr := c.sleep(ctx, boff.Duration()); waitErr != nil {
				return nil, lastErr
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: %s %s", ports.ErrRateLimited, ep.Verb, ep.Path)
			if attempt == c.maxRetries {
				return nil, lastErr
			}
			delay := boff.Duration()
			// The reset header carries unix seconds; honor it when it is
			// sooner than the next backoff step.
			if until := c.untilReset(resp.Header.Get("x-ratelimit-reset")); until > 0 && until < delay {
				delay = until
			}
			c.logger.Warn(ctx, "Rate limited by exchange", map[string]interface{}{
				"verb": ep.Verb, "path": ep.Path, "attempt": attempt + 1, "delay": delay.String(),
			})
			if waitErr := c.sleep(ctx, delay); waitErr != nil {
				return nil, lastErr
			}
			continue

		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("%w: %s %s: status %d", ports.ErrTransmission, ep.Verb, ep.Path, resp.StatusCode)
			c.logger.Warn(ctx, "Exchange returned server error", map[string]interface{}{
				"verb": ep.Verb, "path": ep.Path, "status": resp.StatusCode, "attempt": attempt + 1,
			})
			if attempt == c.maxRetries {
				return nil, lastErr
			}
			if waitErr := c.sleep(ctx, boff.Duration()); waitErr != nil {
				return nil, lastErr
			}
			continue

		case resp.StatusCode >= http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s %s: status %d: %s",
				ports.ErrRequestRejected, ep.Verb, ep.Path, resp.StatusCode, errorMessage(respBody))
		}

		env, err := decodeEnvelope(respBody, resp.Header)
		if err != nil {
			return nil, err
		}
		c.logger.Debug(ctx, "Request completed", map[string]interface{}{
			"verb": ep.Verb, "path": ep.Path, "records": len(env.Records),
			"ratelimitRemaining": env.RateLimit.Remaining, "signed": req.Header.Get("api-key") != "",
		})
		return env, nil
	}

	return nil, lastErr
}

// newRequest builds the HTTP request for one attempt and, when credentials
// are configured, signs the exact serialized request URI and body.
func (c *Client) newRequest(ctx context.Context, ep Endpoint, params url.Values) (*http.Request, error) {
	fullURL := c.baseURL + ep.Path
	var body string
	if ep.Verb == http.MethodGet {
		if len(params) > 0 {
			fullURL += "?" + params.Encode()
		}
	} else if len(params) > 0 {
		body = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, ep.Verb, fullURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ports.ErrTransmission, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.apiKey != "" {
		signature, expires, err := Sign(c.apiSecret, ep.Verb, req.URL.RequestURI(), body, c.now())
		if err != nil {
			return nil, err
		}
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("api-expires", strconv.FormatInt(expires, 10))
		req.Header.Set("api-signature", signature)
	}

	return req, nil
}

// untilReset converts an x-ratelimit-reset header (unix seconds) into a wait
// duration, or zero when absent or malformed.
func (c *Client) untilReset(reset string) time.Duration {
	if reset == "" {
		return 0
	}
	sec, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 0
	}
	return time.Unix(sec, 0).Sub(c.now())
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorMessage extracts the exchange's error message from a rejection body.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Name    string `json:"name"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return strings.TrimSpace(string(body))
	}
	return payload.Error.Message
}
