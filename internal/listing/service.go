package listing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentreel/rentreel/internal/analysis"
	"github.com/rentreel/rentreel/internal/logging"
)

// ErrNotFound is returned by service lookups when no listing matches.
var ErrNotFound = fmt.Errorf("listing not found")

type ListingService interface {
	CreateListing(ctx context.Context, managerID, title string) (*Listing, error)
	GetListing(ctx context.Context, id string) (*Listing, error)
	GetByPlaybackID(ctx context.Context, playbackID string) (*Listing, error)
	ManagerListings(ctx context.Context, managerID string) ([]*Listing, error)
	Feed(ctx context.Context) ([]*Listing, error)
	UpdateDetails(ctx context.Context, id string, upd DetailsUpdate) (*Listing, error)
	DeleteListing(ctx context.Context, managerID, id string) error

	AttachUpload(ctx context.Context, id, uploadID string) error
	MarkAssetReady(ctx context.Context, uploadID, assetID, playbackID string) (*Listing, error)
	StoreAnalysis(ctx context.Context, id string, result *analysis.VideoAnalysisResult) error
	Publish(ctx context.Context, id string) error

	Save(ctx context.Context, renterID, listingID string) error
	Unsave(ctx context.Context, renterID, listingID string) error
	Saved(ctx context.Context, renterID string) ([]*Listing, error)
}

// DetailsUpdate carries the manager-editable fields. Pointer fields
// distinguish "leave unchanged" from "set to zero value".
type DetailsUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Price       *int     `json:"price,omitempty"`
	Address     *string  `json:"address,omitempty"`
	City        *string  `json:"city,omitempty"`
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *float64 `json:"bathrooms,omitempty"`
	Description *string  `json:"description,omitempty"`
	Available   *bool    `json:"available,omitempty"`
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateListing(ctx context.Context, managerID, title string) (*Listing, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	now := time.Now()
	l := &Listing{
		ID:        NewID(),
		ManagerID: managerID,
		Title:     title,
		Status:    StatusPending,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateListing(ctx, l); err != nil {
		return nil, err
	}

	if s.logger != nil {
		logging.WithListingID(s.logger, l.ID).Info("listing created", "manager_id", managerID)
	}
	return l, nil
}

func (s *Service) GetListing(ctx context.Context, id string) (*Listing, error) {
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Service) GetByPlaybackID(ctx context.Context, playbackID string) (*Listing, error) {
	l, err := s.repo.GetListingByPlaybackID(ctx, playbackID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Service) ManagerListings(ctx context.Context, managerID string) ([]*Listing, error) {
	return s.repo.ListByManager(ctx, managerID)
}

func (s *Service) Feed(ctx context.Context) ([]*Listing, error) {
	return s.repo.ListReady(ctx)
}

func (s *Service) UpdateDetails(ctx context.Context, id string, upd DetailsUpdate) (*Listing, error) {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if *upd.Title == "" {
			return nil, fmt.Errorf("title cannot be empty")
		}
		l.Title = *upd.Title
	}
	if upd.Price != nil {
		if *upd.Price < 0 {
			return nil, fmt.Errorf("price cannot be negative")
		}
		l.Price = *upd.Price
	}
	if upd.Address != nil {
		l.Address = *upd.Address
	}
	if upd.City != nil {
		l.City = *upd.City
	}
	if upd.Bedrooms != nil {
		l.Bedrooms = upd.Bedrooms
	}
	if upd.Bathrooms != nil {
		l.Bathrooms = upd.Bathrooms
	}
	if upd.Description != nil {
		l.Description = *upd.Description
	}
	if upd.Available != nil {
		l.Available = *upd.Available
	}

	if err := s.repo.UpdateDetails(ctx, l); err != nil {
		return nil, err
	}
	return s.GetListing(ctx, id)
}

func (s *Service) DeleteListing(ctx context.Context, managerID, id string) error {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if l.ManagerID != managerID {
		return fmt.Errorf("listing belongs to another manager")
	}
	return s.repo.DeleteListing(ctx, id)
}

// AttachUpload records the direct-upload id handed out by the video host and
// moves the listing into the preparing state.
func (s *Service) AttachUpload(ctx context.Context, id, uploadID string) error {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUploadID(ctx, l.ID, uploadID); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, l.ID, StatusPreparing)
}

// MarkAssetReady is invoked from the webhook when transcoding finishes. It
// resolves the listing by upload id and records the asset and playback ids.
func (s *Service) MarkAssetReady(ctx context.Context, uploadID, assetID, playbackID string) (*Listing, error) {
	l, err := s.repo.GetListingByUploadID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}

	if err := s.repo.UpdateMuxInfo(ctx, l.ID, assetID, playbackID); err != nil {
		return nil, err
	}

	if s.logger != nil {
		logging.WithListingID(s.logger, l.ID).Info("asset ready",
			"asset_id", assetID,
			"playback_id", playbackID,
		)
	}
	return s.GetListing(ctx, l.ID)
}

func (s *Service) StoreAnalysis(ctx context.Context, id string, result *analysis.VideoAnalysisResult) error {
	if err := s.repo.UpdateAnalysis(ctx, id, result); err != nil {
		return err
	}
	if s.logger != nil {
		logging.WithListingID(s.logger, id).Info("analysis stored",
			"rooms", len(result.Rooms),
			"degraded", result.Degraded,
		)
	}
	return nil
}

// Publish moves a listing with a playback id into the ready state, making it
// visible in the renter feed.
func (s *Service) Publish(ctx context.Context, id string) error {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if l.MuxPlaybackID == "" {
		return fmt.Errorf("listing has no playable video")
	}
	return s.repo.UpdateStatus(ctx, id, StatusReady)
}

func (s *Service) Save(ctx context.Context, renterID, listingID string) error {
	if _, err := s.GetListing(ctx, listingID); err != nil {
		return err
	}
	return s.repo.SaveListing(ctx, &SavedListing{
		ID:        NewID(),
		RenterID:  renterID,
		ListingID: listingID,
		CreatedAt: time.Now(),
	})
}

func (s *Service) Unsave(ctx context.Context, renterID, listingID string) error {
	return s.repo.UnsaveListing(ctx, renterID, listingID)
}

func (s *Service) Saved(ctx context.Context, renterID string) ([]*Listing, error) {
	return s.repo.ListSaved(ctx, renterID)
}
