package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agbru/tilemanifest/internal/tile"
)

// ExistsPath is the route the remote existence service answers on.
const ExistsPath = "/exists"

// contentType matches what browser clients of the exists service send.
const contentType = "application/json;charset=UTF-8"

// maxResponseBytes caps how much of an answer body is read.
const maxResponseBytes = 64 << 10

// Common errors.
var (
	ErrBadStatus   = errors.New("probe: unexpected status")
	ErrBadResponse = errors.New("probe: response is not JSON")
	ErrServerError = errors.New("probe: server error")
)

// ExistsRequest is the JSON body of a POST /exists call.
type ExistsRequest struct {
	FormatStr string `json:"formatStr"`
	Coord     []int  `json:"coord"`
}

// HTTPOptions configures the transport of an HTTPProbe.
type HTTPOptions struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host. It
	// should be at least the build's max-in-flight.
	// Default: 64
	MaxIdleConnsPerHost int

	// Timeout bounds a single HTTP round trip.
	// Default: 30s
	Timeout time.Duration

	// RetryAttempts is the number of retries after a transport error or a
	// 5xx answer.
	// Default: 2
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 100ms
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 2s
	RetryMaxBackoff time.Duration
}

// DefaultHTTPOptions returns options with sensible defaults.
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		MaxIdleConnsPerHost: 64,
		Timeout:             30 * time.Second,
		RetryAttempts:       2,
		RetryBackoff:        100 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
	}
}

// HTTPProbe asks a remote exists service about each coordinate.
type HTTPProbe struct {
	endpoint string
	client   *http.Client
	opts     HTTPOptions
}

// HTTPOption configures an HTTPProbe.
type HTTPOption func(*HTTPProbe)

// WithHTTPOptions replaces the transport options and rebuilds the client.
func WithHTTPOptions(o HTTPOptions) HTTPOption {
	return func(p *HTTPProbe) {
		p.opts = o
		p.client = newHTTPClient(o)
	}
}

// WithTimeout sets the per round trip timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(p *HTTPProbe) {
		p.opts.Timeout = d
		p.client.Timeout = d
	}
}

// WithRetries sets the retry budget and initial backoff.
func WithRetries(attempts int, backoff time.Duration) HTTPOption {
	return func(p *HTTPProbe) {
		p.opts.RetryAttempts = max(attempts, 0)
		p.opts.RetryBackoff = backoff
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(p *HTTPProbe) {
		if hc != nil {
			p.client = hc
		}
	}
}

// NewHTTPProbe returns a probe that POSTs to baseURL + "/exists". baseURL
// must be an absolute http or https URL.
func NewHTTPProbe(baseURL string, opts ...HTTPOption) (*HTTPProbe, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse probe url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("probe url %q must be an absolute http(s) URL", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + ExistsPath

	defaults := DefaultHTTPOptions()
	p := &HTTPProbe{
		endpoint: u.String(),
		client:   newHTTPClient(defaults),
		opts:     defaults,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func newHTTPClient(o HTTPOptions) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: o.MaxIdleConnsPerHost,
		MaxIdleConns:        o.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: o.Timeout}
}

// Endpoint returns the resolved /exists URL.
func (p *HTTPProbe) Endpoint() string { return p.endpoint }

// Exists implements ExistenceProbe.
func (p *HTTPProbe) Exists(ctx context.Context, formatKey string, c tile.Coord) (bool, error) {
	arr := c.Array()
	body, err := json.Marshal(ExistsRequest{FormatStr: formatKey, Coord: arr[:]})
	if err != nil {
		return false, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := p.backoff(ctx, attempt); err != nil {
				return false, err
			}
		}

		exists, retry, err := p.do(ctx, body)
		if err == nil {
			return exists, nil
		}
		if !retry {
			return false, err
		}
		lastErr = err
	}
	return false, fmt.Errorf("exists request failed after %d attempts: %w", p.opts.RetryAttempts+1, lastErr)
}

// do performs one round trip. retry reports whether the failure is worth
// another attempt.
func (p *HTTPProbe) do(ctx context.Context, body []byte) (exists, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return false, true, fmt.Errorf("%w: %s", ErrServerError, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, false, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, true, fmt.Errorf("read response: %w", err)
	}
	exists, err = DecodeAnswer(raw)
	return exists, false, err
}

// backoff waits for an exponentially increasing duration with jitter.
func (p *HTTPProbe) backoff(ctx context.Context, attempt int) error {
	d := p.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if p.opts.RetryMaxBackoff > 0 && d > p.opts.RetryMaxBackoff {
		d = p.opts.RetryMaxBackoff
	}
	if d > 0 {
		d += time.Duration(rand.Int64N(int64(d)/4 + 1))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DecodeAnswer parses an exists answer and applies JSON truthiness: false,
// null, 0 and "" are falsy, everything else (any array or object included)
// is truthy.
func DecodeAnswer(raw []byte) (bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case string:
		return x != "", nil
	}
	return true, nil
}

var _ ExistenceProbe = (*HTTPProbe)(nil)
