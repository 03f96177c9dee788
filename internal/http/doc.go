// Package http provides an HTTP client for fetching font assets.
//
// This package handles:
//   - Connection pooling for many concurrent fetches
//   - Status and Content-Type validation per attempt
//   - A per-attempt timeout covering connect and response headers
//   - Retry with exponential backoff (see internal/retry)
//
// # Usage
//
//	client := http.NewClient(Options{
//	    MaxIdleConnsPerHost: 100,
//	    Timeout:             30 * time.Second,
//	    RetryAttempts:       5,
//	})
//
//	body, err := client.Fetch(ctx, "https://fonts.example/roboto.woff2", "woff2")
//	if err != nil {
//	    // *FetchExhaustedError, ErrInvalidURL, ErrEmptyFormat or a context error
//	}
//	defer body.Close()
//
// # Errors
//
// Each failed attempt produces one of *TransportError, *UpstreamStatusError or
// *ContentTypeMismatchError. They are reachable from the final
// *FetchExhaustedError with errors.As.
package http
