package azure

import "fmt"

// ConfigError reports a malformed endpoint configuration. It is returned at
// client construction time, never during an invocation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid endpoint config: %s %s", e.Field, e.Reason)
}

// TransportError reports a network-level failure (connection refused,
// timeout, DNS). It always propagates to the caller.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. It carries the status code and the
// raw body so callers can inspect the backend's error payload.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// ParseError reports a 2xx response whose body is not the JSON object the
// backend contract requires.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
