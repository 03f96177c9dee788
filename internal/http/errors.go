package http

import "fmt"

// TransportError is a connection-level failure of one attempt: refused or
// reset connections, DNS failures and attempt timeouts.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("http: transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamStatusError is returned when the server answers with anything
// other than 200 OK. It unwraps to ErrNotFound, ErrForbidden, ErrUnauthorized
// or ErrServerError where one applies.
type UpstreamStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("http: %s request failed. status: %s", e.URL, e.Status)
}

func (e *UpstreamStatusError) Unwrap() error { return statusSentinel(e.StatusCode) }

// ContentTypeMismatchError is returned when the Content-Type header is
// missing or does not contain the expected format token.
type ContentTypeMismatchError struct {
	URL         string
	Expected    string
	ContentType string
}

func (e *ContentTypeMismatchError) Error() string {
	return fmt.Sprintf("http: %s request failed. expected %s to be in content-type header: %q", e.URL, e.Expected, e.ContentType)
}

// FetchExhaustedError is returned by Client.Fetch after every attempt failed.
// Err wraps the retry error, which in turn wraps the last attempt's failure.
type FetchExhaustedError struct {
	URL      string
	Format   string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("http: fetch %s (%s) failed after %d attempts: %v", e.URL, e.Format, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }
