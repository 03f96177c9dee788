package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ligustah/fontpack/internal/retry"
)

// Common errors.
var (
	ErrInvalidURL   = errors.New("http: url must be absolute http(s) with a host")
	ErrEmptyFormat  = errors.New("http: expected format must not be empty")
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 100
	MaxIdleConnsPerHost int

	// Timeout bounds a single attempt from dialing until response headers
	// arrive. Reading the body is not covered.
	// Default: 30s
	Timeout time.Duration

	// RetryAttempts is the maximum number of attempts per fetch.
	// Default: 5
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 100,
		Timeout:             30 * time.Second,
		RetryAttempts:       5,
		RetryBackoff:        time.Second,
		RetryMaxBackoff:     30 * time.Second,
	}
}

func (o Options) policy() retry.Policy {
	return retry.Policy{
		Attempts:   o.RetryAttempts,
		Backoff:    o.RetryBackoff,
		MaxBackoff: o.RetryMaxBackoff,
	}
}

// Body is a streaming response body returned by Fetch. Closing it releases
// the underlying connection.
type Body struct {
	io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Client is an HTTP client for fetching font assets.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	// No client-wide timeout: bodies are streamed long after Fetch returns.
	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Fetch performs a GET for url and returns the response body as a stream.
// The response must have status 200 and a Content-Type containing format.
// Every failed attempt is retried according to the client's options; once
// they are used up Fetch returns a *FetchExhaustedError.
func (c *Client) Fetch(ctx context.Context, rawURL, format string) (*Body, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(format) == "" {
		return nil, ErrEmptyFormat
	}

	body, err := retry.Do(ctx, c.opts.policy(), func(ctx context.Context, attempt int) (*Body, error) {
		return c.fetchOnce(ctx, rawURL, format)
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if !errors.As(err, &exhausted) {
			return nil, err
		}
		return nil, &FetchExhaustedError{
			URL:      rawURL,
			Format:   format,
			Attempts: exhausted.Attempts,
			Err:      err,
		}
	}
	return body, nil
}

// fetchOnce is a single attempt. The attempt context stays alive until the
// returned body is closed; the timeout only covers reaching the headers.
func (c *Client) fetchOnce(ctx context.Context, rawURL, format string) (*Body, error) {
	attemptCtx, cancel := context.WithCancel(ctx)

	var timedOut atomic.Bool
	var timer *time.Timer
	if c.opts.Timeout > 0 {
		timer = time.AfterFunc(c.opts.Timeout, func() {
			timedOut.Store(true)
			cancel()
		})
	}
	stop := func() bool {
		if timer == nil {
			return true
		}
		return timer.Stop()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if !stop() && err == nil {
		// The timer fired while the response was arriving.
		resp.Body.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		cancel()
		if timedOut.Load() {
			err = fmt.Errorf("attempt timed out after %s: %w", c.opts.Timeout, context.DeadlineExceeded)
		}
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		cancel()
		return nil, &UpstreamStatusError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, format) {
		drainAndClose(resp.Body)
		cancel()
		return nil, &ContentTypeMismatchError{
			URL:         rawURL,
			Expected:    format,
			ContentType: contentType,
		}
	}

	return &Body{
		ReadCloser:    &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// drainAndClose reads a little of a rejected body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 4096))
	body.Close()
}

// statusSentinel maps a status code to one of the package sentinels, if any.
func statusSentinel(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// IsTimeout reports whether err is a transport failure caused by a timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if errors.Is(te.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(te.Err, &netErr) && netErr.Timeout()
}

// Open is Fetch returning a plain io.ReadCloser.
func (c *Client) Open(ctx context.Context, rawURL, format string) (io.ReadCloser, error) {
	body, err := c.Fetch(ctx, rawURL, format)
	if err != nil {
		return nil, err
	}
	return body, nil
}
