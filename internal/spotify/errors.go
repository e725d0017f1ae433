package spotify

import (
	"errors"
	"fmt"
)

// Error kinds the fetch layer returns. Transport/Decode/UnexpectedStatus carry
// extra context and are the struct error types defined below, checked
// with errors.As; the rest are plain sentinels checked with errors.Is.
var (
	// ErrNoRetryAfter is returned when a 429 response is missing the
	// Retry-After header.
	ErrNoRetryAfter = errors.New("spotify: 429 response missing Retry-After header")

	// ErrChannelSend indicates a sink channel was closed before a row
	// could be emitted; logged and dropped by callers, never fatal.
	ErrChannelSend = errors.New("spotify: channel closed before send")

	// ErrQueueOverflow indicates a ring/queue capacity was miscalculated;
	// this is a programming error and callers should abort on it.
	ErrQueueOverflow = errors.New("spotify: ring queue overflow")

	// ErrConfigInvalid indicates missing or malformed startup
	// configuration (credentials file, proxies file, zero credentials).
	ErrConfigInvalid = errors.New("spotify: invalid configuration")

	// ErrQueueStalled is the BFS stall signal: the full empty-pop backoff
	// schedule (1, 2, 4, 8s) elapsed with work still outstanding and
	// processed still below the target limit.
	ErrQueueStalled = errors.New("spotify: bfs work queue stalled")
)

// UnexpectedStatusError wraps a non-200/401/429 HTTP response.
type UnexpectedStatusError struct {
	URL  string
	Code int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("spotify: unexpected status %d for %s", e.Code, e.URL)
}

// TransportError wraps a connection/TLS/body-read failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return "spotify: transport error for " + e.URL + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError wraps a JSON body that didn't match the expected shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return "spotify: decode error for " + e.URL + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }
