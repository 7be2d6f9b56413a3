package listing

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentreel/rentreel/internal/analysis"
)

const (
	// StatusPending: created, waiting for the manager to upload a video.
	StatusPending = "pending"
	// StatusPreparing: video uploaded, transcoding or analysis in flight.
	StatusPreparing = "preparing"
	// StatusReady: playback available, listing visible in the renter feed.
	StatusReady = "ready"
)

type Listing struct {
	ID        string `json:"id"`
	ManagerID string `json:"manager_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`

	MuxUploadID   string `json:"mux_upload_id,omitempty"`
	MuxAssetID    string `json:"mux_asset_id,omitempty"`
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

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SavedListing struct {
	ID        string    `json:"id"`
	RenterID  string    `json:"renter_id"`
	ListingID string    `json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}
