// Package places wraps the Google Places web service for address
// autocompletion on listing forms. Searches are biased to US street
// addresses and trimmed to a handful of suggestions.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	maxPredictions = 3
)

type Prediction struct {
	Description          string `json:"description"`
	PlaceID              string `json:"place_id"`
	StructuredFormatting struct {
		MainText      string `json:"main_text"`
		SecondaryText string `json:"secondary_text"`
	} `json:"structured_formatting"`
}

type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type PlaceDetails struct {
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []AddressComponent `json:"address_components"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type ClientConfig struct {
	APIKey string
	// BaseURL overrides the Google endpoint, used in tests.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Enabled reports whether an API key is configured. Address autocompletion
// is an optional feature; callers degrade to free-text input without it.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Autocomplete returns up to three US address suggestions for the typed
// input. Empty input or zero results give an empty slice, not an error.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	if input == "" {
		return []Prediction{}, nil
	}

	q := url.Values{}
	q.Set("input", input)
	q.Set("key", c.apiKey)
	q.Set("components", "country:us")
	q.Set("types", "address")

	var payload struct {
		Status       string       `json:"status"`
		ErrorMessage string       `json:"error_message"`
		Predictions  []Prediction `json:"predictions"`
	}
	if err := c.getJSON(ctx, "/autocomplete/json", q, &payload); err != nil {
		return nil, err
	}

	if payload.Status == "ZERO_RESULTS" || len(payload.Predictions) == 0 {
		return []Prediction{}, nil
	}
	if payload.Status != "OK" {
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("places autocomplete: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("places autocomplete: status %s", payload.Status)
	}

	if len(payload.Predictions) > maxPredictions {
		payload.Predictions = payload.Predictions[:maxPredictions]
	}
	return payload.Predictions, nil
}

// Details resolves a place id to its formatted address and components.
func (c *Client) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if placeID == "" {
		return nil, fmt.Errorf("place id is required")
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("key", c.apiKey)
	q.Set("fields", "formatted_address,address_components")

	var payload struct {
		Status       string       `json:"status"`
		ErrorMessage string       `json:"error_message"`
		Result       PlaceDetails `json:"result"`
	}
	if err := c.getJSON(ctx, "/details/json", q, &payload); err != nil {
		return nil, err
	}

	if payload.Status != "OK" {
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("places details: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("places details: status %s", payload.Status)
	}
	return &payload.Result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
