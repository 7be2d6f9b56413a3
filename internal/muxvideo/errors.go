package muxvideo

import "fmt"

// NotReadyError signals that the retry budget was exhausted without a ready
// confirmation from the video host. Callers are expected to treat it as a
// retryable condition and re-invoke later.
type NotReadyError struct {
	PlaybackID string
	Attempts   int
	LastErr    error
}

func (e *NotReadyError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("video %s not ready after %d attempts: %v", e.PlaybackID, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("video %s not ready after %d attempts", e.PlaybackID, e.Attempts)
}

func (e *NotReadyError) Unwrap() error {
	return e.LastErr
}

// ProbeError represents one failed attempt against the playback URL.
// A zero StatusCode means the request itself failed (network error).
type ProbeError struct {
	StatusCode int
	Err        error
}

func (e *ProbeError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("playback probe failed: %v", e.Err)
	}
	return fmt.Sprintf("playback probe failed: HTTP %d", e.StatusCode)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure looks transient. Network errors,
// 404 (asset still transcoding), 408, 429 and server errors retry; the
// remaining client errors (bad reference, auth failure) are permanent.
func (e *ProbeError) IsRetryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	switch e.StatusCode {
	case 404, 408, 429:
		return true
	}
	return e.StatusCode >= 500
}

// APIError represents an error response from the Mux management API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mux api request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and 429.
// Remaining client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
