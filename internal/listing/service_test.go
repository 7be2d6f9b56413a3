package listing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rentreel/rentreel/internal/analysis"
	"github.com/rentreel/rentreel/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func TestService_CreateListing(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	l, err := svc.CreateListing(context.Background(), "mgr1", "Sunny 1BR near the park")
	if err != nil {
		t.Fatalf("CreateListing() error = %v", err)
	}

	if l.ID == "" {
		t.Error("listing ID is empty")
	}
	if l.Status != StatusPending {
		t.Errorf("status = %s, want %s", l.Status, StatusPending)
	}
	if !l.Available {
		t.Error("new listing should be available")
	}
}

func TestService_CreateListing_RequiresTitle(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	if _, err := svc.CreateListing(context.Background(), "mgr1", ""); err == nil {
		t.Error("CreateListing() should reject empty title")
	}
}

func TestService_GetListing_NotFound(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	_, err := svc.GetListing(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestService_UploadToReadyLifecycle(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, err := svc.CreateListing(ctx, "mgr1", "Loft downtown")
	if err != nil {
		t.Fatalf("CreateListing() error = %v", err)
	}

	if err := svc.AttachUpload(ctx, l.ID, "upl123"); err != nil {
		t.Fatalf("AttachUpload() error = %v", err)
	}

	got, err := svc.GetListing(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if got.Status != StatusPreparing {
		t.Errorf("status after upload = %s, want %s", got.Status, StatusPreparing)
	}
	if got.MuxUploadID != "upl123" {
		t.Errorf("upload id = %s, want upl123", got.MuxUploadID)
	}

	ready, err := svc.MarkAssetReady(ctx, "upl123", "asset1", "plbk1")
	if err != nil {
		t.Fatalf("MarkAssetReady() error = %v", err)
	}
	if ready.MuxAssetID != "asset1" || ready.MuxPlaybackID != "plbk1" {
		t.Errorf("asset/playback = %s/%s, want asset1/plbk1", ready.MuxAssetID, ready.MuxPlaybackID)
	}

	if err := svc.Publish(ctx, l.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got, _ = svc.GetListing(ctx, l.ID)
	if got.Status != StatusReady {
		t.Errorf("status after publish = %s, want %s", got.Status, StatusReady)
	}
}

func TestService_MarkAssetReady_UnknownUpload(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	_, err := svc.MarkAssetReady(context.Background(), "nope", "a", "p")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestService_Publish_RequiresPlayback(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, _ := svc.CreateListing(ctx, "mgr1", "No video yet")
	if err := svc.Publish(ctx, l.ID); err == nil {
		t.Error("Publish() should fail without a playback id")
	}
}

func TestService_StoreAnalysis(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, _ := svc.CreateListing(ctx, "mgr1", "Two bed")

	beds := 2
	result := &analysis.VideoAnalysisResult{
		Rooms: []analysis.RoomObservation{
			{Room: "Living Room", Timestamp: "0:00"},
			{Room: "Kitchen", Timestamp: "0:42"},
		},
		PropertyInfo:     analysis.PropertyInfo{Bedrooms: &beds},
		Tags:             []string{"hardwood floors"},
		VideoDescription: "Bright two-bedroom.",
	}
	if err := svc.StoreAnalysis(ctx, l.ID, result); err != nil {
		t.Fatalf("StoreAnalysis() error = %v", err)
	}

	got, err := svc.GetListing(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if len(got.Rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(got.Rooms))
	}
	if got.Rooms[1].Room != "Kitchen" || got.Rooms[1].Timestamp != "0:42" {
		t.Errorf("rooms[1] = %+v", got.Rooms[1])
	}
	if got.Bedrooms == nil || *got.Bedrooms != 2 {
		t.Errorf("bedrooms = %v, want 2", got.Bedrooms)
	}
	if got.Bathrooms != nil {
		t.Errorf("bathrooms = %v, want nil", got.Bathrooms)
	}
	if got.AnalysisDegraded {
		t.Error("analysis should not be degraded")
	}
}

func TestService_StoreAnalysis_DoesNotOverrideManagerCounts(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, _ := svc.CreateListing(ctx, "mgr1", "Three bed")

	three := 3
	if _, err := svc.UpdateDetails(ctx, l.ID, DetailsUpdate{Bedrooms: &three}); err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}

	one := 1
	result := &analysis.VideoAnalysisResult{
		Rooms:        []analysis.RoomObservation{{Room: "Room 1", Timestamp: "0:00"}},
		PropertyInfo: analysis.PropertyInfo{Bedrooms: &one},
	}
	if err := svc.StoreAnalysis(ctx, l.ID, result); err != nil {
		t.Fatalf("StoreAnalysis() error = %v", err)
	}

	got, _ := svc.GetListing(ctx, l.ID)
	if got.Bedrooms == nil || *got.Bedrooms != 3 {
		t.Errorf("bedrooms = %v, want manager-set 3", got.Bedrooms)
	}
}

func TestService_UpdateDetails(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, _ := svc.CreateListing(ctx, "mgr1", "Old title")

	title := "New title"
	price := 2400
	city := "Oakland"
	got, err := svc.UpdateDetails(ctx, l.ID, DetailsUpdate{Title: &title, Price: &price, City: &city})
	if err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if got.Title != "New title" || got.Price != 2400 || got.City != "Oakland" {
		t.Errorf("updated listing = %+v", got)
	}

	negative := -5
	if _, err := svc.UpdateDetails(ctx, l.ID, DetailsUpdate{Price: &negative}); err == nil {
		t.Error("UpdateDetails() should reject negative price")
	}
}

func TestService_Feed_OnlyReadyAvailable(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	pending, _ := svc.CreateListing(ctx, "mgr1", "Pending one")

	ready, _ := svc.CreateListing(ctx, "mgr1", "Ready one")
	if err := repo.UpdateMuxInfo(ctx, ready.ID, "a1", "p1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Publish(ctx, ready.ID); err != nil {
		t.Fatal(err)
	}

	hidden, _ := svc.CreateListing(ctx, "mgr1", "Hidden one")
	if err := repo.UpdateMuxInfo(ctx, hidden.ID, "a2", "p2"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Publish(ctx, hidden.ID); err != nil {
		t.Fatal(err)
	}
	off := false
	if _, err := svc.UpdateDetails(ctx, hidden.ID, DetailsUpdate{Available: &off}); err != nil {
		t.Fatal(err)
	}

	feed, err := svc.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("feed size = %d, want 1", len(feed))
	}
	if feed[0].ID != ready.ID {
		t.Errorf("feed[0] = %s, want %s (pending=%s hidden=%s)", feed[0].ID, ready.ID, pending.ID, hidden.ID)
	}
}

func TestService_SavedListings(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, _ := svc.CreateListing(ctx, "mgr1", "Saveable")

	if err := svc.Save(ctx, "renter1", l.ID); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// saving twice is a no-op
	if err := svc.Save(ctx, "renter1", l.ID); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	saved, err := svc.Saved(ctx, "renter1")
	if err != nil {
		t.Fatalf("Saved() error = %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(saved))
	}

	if err := svc.Unsave(ctx, "renter1", l.ID); err != nil {
		t.Fatalf("Unsave() error = %v", err)
	}
	saved, _ = svc.Saved(ctx, "renter1")
	if len(saved) != 0 {
		t.Errorf("saved after unsave = %d, want 0", len(saved))
	}
}

func TestService_DeleteListing_OwnerOnly(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	l, _ := svc.CreateListing(ctx, "mgr1", "Mine")

	if err := svc.DeleteListing(ctx, "mgr2", l.ID); err == nil {
		t.Error("DeleteListing() should reject a different manager")
	}
	if err := svc.DeleteListing(ctx, "mgr1", l.ID); err != nil {
		t.Fatalf("DeleteListing() error = %v", err)
	}
	if _, err := svc.GetListing(ctx, l.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
