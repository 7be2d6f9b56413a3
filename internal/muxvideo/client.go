package muxvideo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client is a thin wrapper over the Mux management API. It creates direct
// uploads for browser-side video submission and verifies webhook signatures.
type Client struct {
	apiBaseURL    string
	tokenID       string
	tokenSecret   string
	webhookSecret string
	httpClient    *http.Client
	logger        *slog.Logger
}

type ClientConfig struct {
	APIBaseURL    string
	TokenID       string
	TokenSecret   string
	WebhookSecret string
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiBaseURL:    cfg.APIBaseURL,
		tokenID:       cfg.TokenID,
		tokenSecret:   cfg.TokenSecret,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    cfg.HTTPClient,
		logger:        cfg.Logger,
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = "https://api.mux.com"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// DirectUpload is a one-time upload slot: the client PUTs the raw video to
// URL, Mux creates the asset and reports progress through webhooks.
type DirectUpload struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

type createUploadRequest struct {
	NewAssetSettings assetSettings `json:"new_asset_settings"`
	CORSOrigin       string        `json:"cors_origin"`
}

type assetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	MP4Support     string   `json:"mp4_support"`
	VideoQuality   string   `json:"video_quality"`
}

type uploadEnvelope struct {
	Data DirectUpload `json:"data"`
}

// CreateDirectUpload creates an upload slot with a public playback policy and
// static MP4 renditions enabled (the poller probes the MP4 rendition).
func (c *Client) CreateDirectUpload(ctx context.Context) (*DirectUpload, error) {
	body, err := json.Marshal(createUploadRequest{
		NewAssetSettings: assetSettings{
			PlaybackPolicy: []string{"public"},
			MP4Support:     "standard",
			VideoQuality:   "plus",
		},
		CORSOrigin: "*",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal upload request: %w", err)
	}

	url := c.apiBaseURL + "/video/v1/uploads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.tokenID, c.tokenSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var envelope uploadEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("direct upload created", "upload_id", envelope.Data.ID)
	}
	return &envelope.Data, nil
}

// Webhook event types the server reacts to.
const (
	EventAssetReady = "video.asset.ready"
)

// WebhookEvent is the subset of a Mux webhook payload the server uses.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID          string `json:"id"`
		UploadID    string `json:"upload_id"`
		PlaybackIDs []struct {
			ID string `json:"id"`
		} `json:"playback_ids"`
	} `json:"data"`
}

// PlaybackID returns the first playback reference on the event, or "".
func (e *WebhookEvent) PlaybackID() string {
	if len(e.Data.PlaybackIDs) == 0 {
		return ""
	}
	return e.Data.PlaybackIDs[0].ID
}

// ParseWebhookEvent decodes a webhook payload.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("webhook payload missing type")
	}
	return &event, nil
}

// VerifyWebhookSignature checks the Mux-Signature header
// ("t=<unix>,v1=<hex hmac>") against the raw payload. Verification is
// skipped when no webhook secret is configured.
func (c *Client) VerifyWebhookSignature(payload []byte, header string) error {
	if c.webhookSecret == "" {
		return nil
	}
	if header == "" {
		return fmt.Errorf("missing mux-signature header")
	}

	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			signature = strings.TrimPrefix(part, "v1=")
		}
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("malformed mux-signature header")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("webhook signature mismatch")
	}
	return nil
}
