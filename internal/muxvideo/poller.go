// Package muxvideo talks to the Mux video host: it polls playback URLs until
// transcoded assets become fetchable, downloads finished MP4s, creates direct
// uploads and verifies webhook signatures.
package muxvideo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultProbeMaxAttempts = 100
	DefaultFetchMaxAttempts = 10
	DefaultRetryDelay       = 2 * time.Second
	DefaultStreamBaseURL    = "https://stream.mux.com"

	// The static MP4 rendition Mux exposes once transcoding completes.
	mp4Rendition = "capped-1080p.mp4"
)

// Poller checks whether an uploaded video is available at its public
// playback URL and fetches its bytes once it is. Each call is an independent
// poll sequence; no state persists between calls.
type Poller struct {
	streamBaseURL    string
	probeMaxAttempts int
	fetchMaxAttempts int
	backoff          Backoff
	httpClient       *http.Client
	logger           *slog.Logger
}

type PollerConfig struct {
	StreamBaseURL    string
	ProbeMaxAttempts int
	FetchMaxAttempts int
	Backoff          Backoff
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

func NewPoller(cfg PollerConfig) *Poller {
	p := &Poller{
		streamBaseURL:    cfg.StreamBaseURL,
		probeMaxAttempts: cfg.ProbeMaxAttempts,
		fetchMaxAttempts: cfg.FetchMaxAttempts,
		backoff:          cfg.Backoff,
		httpClient:       cfg.HTTPClient,
		logger:           cfg.Logger,
	}
	if p.streamBaseURL == "" {
		p.streamBaseURL = DefaultStreamBaseURL
	}
	if p.probeMaxAttempts <= 0 {
		p.probeMaxAttempts = DefaultProbeMaxAttempts
	}
	if p.fetchMaxAttempts <= 0 {
		p.fetchMaxAttempts = DefaultFetchMaxAttempts
	}
	if p.backoff == nil {
		p.backoff = ConstantBackoff{Interval: DefaultRetryDelay}
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return p
}

// PlaybackURL derives the downloadable MP4 URL for a playback reference.
func (p *Poller) PlaybackURL(playbackID string) string {
	return fmt.Sprintf("%s/%s/%s?download=true", p.streamBaseURL, playbackID, mp4Rendition)
}

// WaitUntilReady probes the playback URL until it answers 2xx. It returns
// true on the first success; a *NotReadyError once the attempt budget is
// exhausted or a permanent probe failure is seen.
func (p *Poller) WaitUntilReady(ctx context.Context, playbackID string) (bool, error) {
	var lastErr error

	for attempt := 1; attempt <= p.probeMaxAttempts; attempt++ {
		err := p.probe(ctx, playbackID)
		if err == nil {
			if p.logger != nil {
				p.logger.Info("video ready", "playback_id", playbackID, "attempt", attempt)
			}
			return true, nil
		}
		lastErr = err

		if p.logger != nil {
			p.logger.Debug("readiness probe failed",
				"playback_id", playbackID,
				"attempt", attempt,
				"error", err,
			)
		}

		var probeErr *ProbeError
		if errors.As(err, &probeErr) && !probeErr.IsRetryable() {
			return false, &NotReadyError{PlaybackID: playbackID, Attempts: attempt, LastErr: err}
		}

		if attempt == p.probeMaxAttempts {
			break
		}
		if err := p.wait(ctx, attempt); err != nil {
			return false, err
		}
	}

	return false, &NotReadyError{PlaybackID: playbackID, Attempts: p.probeMaxAttempts, LastErr: lastErr}
}

// FetchVideo downloads the full MP4 payload, retrying with its own smaller
// budget. Returns *NotReadyError when the budget is exhausted.
func (p *Poller) FetchVideo(ctx context.Context, playbackID string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= p.fetchMaxAttempts; attempt++ {
		data, err := p.fetch(ctx, playbackID)
		if err == nil {
			if p.logger != nil {
				p.logger.Info("video fetched",
					"playback_id", playbackID,
					"attempt", attempt,
					"bytes", len(data),
				)
			}
			return data, nil
		}
		lastErr = err

		if p.logger != nil {
			p.logger.Debug("video fetch failed",
				"playback_id", playbackID,
				"attempt", attempt,
				"error", err,
			)
		}

		var probeErr *ProbeError
		if errors.As(err, &probeErr) && !probeErr.IsRetryable() {
			return nil, &NotReadyError{PlaybackID: playbackID, Attempts: attempt, LastErr: err}
		}

		if attempt == p.fetchMaxAttempts {
			break
		}
		if err := p.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, &NotReadyError{PlaybackID: playbackID, Attempts: p.fetchMaxAttempts, LastErr: lastErr}
}

func (p *Poller) probe(ctx context.Context, playbackID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.PlaybackURL(playbackID), nil)
	if err != nil {
		return &ProbeError{Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &ProbeError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &ProbeError{StatusCode: resp.StatusCode}
}

func (p *Poller) fetch(ctx context.Context, playbackID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PlaybackURL(playbackID), nil)
	if err != nil {
		return nil, &ProbeError{Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProbeError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &ProbeError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProbeError{Err: err}
	}
	return data, nil
}

func (p *Poller) wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.backoff.Delay(attempt)):
		return nil
	}
}
