package api

import (
	"time"

	"github.com/rentreel/rentreel/internal/analysis"
	"github.com/rentreel/rentreel/internal/assistant"
	"github.com/rentreel/rentreel/internal/listing"
	"github.com/rentreel/rentreel/internal/places"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CreateUploadRequest struct {
	Title string `json:"title"`
}

type CreateUploadResponse struct {
	ListingID string `json:"listing_id"`
	UploadID  string `json:"upload_id"`
	UploadURL string `json:"upload_url"`
}

type ReadyResponse struct {
	PlaybackID string `json:"playback_id"`
	Ready      bool   `json:"ready"`
}

type CreateListingRequest struct {
	Title string `json:"title"`
}

type ListingResponse struct {
	ID        string `json:"id"`
	ManagerID string `json:"manager_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`

	MuxPlaybackID string `json:"mux_playback_id,omitempty"`

	Price       int      `json:"price,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *float64 `json:"bathrooms,omitempty"`
	Description string   `json:"description,omitempty"`
	Available   bool     `json:"available"`

	Rooms            []analysis.RoomObservation `json:"rooms,omitempty"`
	Tags             []string                   `json:"tags,omitempty"`
	VideoDescription string                     `json:"video_description,omitempty"`
	AnalysisDegraded bool                       `json:"analysis_degraded"`

	Saved *bool `json:"saved,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ListingsResponse struct {
	Listings []ListingResponse `json:"listings"`
}

type AskRequest struct {
	Question string                  `json:"question"`
	History  []assistant.ChatMessage `json:"history,omitempty"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type PlacesError struct {
	Message string `json:"message"`
}

type AutocompleteResponse struct {
	Predictions []places.Prediction `json:"predictions"`
	Error       *PlacesError        `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ListingToResponse(l *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:               l.ID,
		ManagerID:        l.ManagerID,
		Title:            l.Title,
		Status:           l.Status,
		MuxPlaybackID:    l.MuxPlaybackID,
		Price:            l.Price,
		Address:          l.Address,
		City:             l.City,
		Bedrooms:         l.Bedrooms,
		Bathrooms:        l.Bathrooms,
		Description:      l.Description,
		Available:        l.Available,
		Rooms:            l.Rooms,
		Tags:             l.Tags,
		VideoDescription: l.VideoDescription,
		AnalysisDegraded: l.AnalysisDegraded,
		CreatedAt:        l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        l.UpdatedAt.Format(time.RFC3339),
	}
}

func ListingsToResponse(listings []*listing.Listing) ListingsResponse {
	resp := ListingsResponse{Listings: make([]ListingResponse, len(listings))}
	for i, l := range listings {
		resp.Listings[i] = ListingToResponse(l)
	}
	return resp
}
