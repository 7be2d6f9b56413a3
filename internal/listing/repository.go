package listing

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rentreel/rentreel/internal/analysis"
)

type Repository interface {
	CreateListing(ctx context.Context, l *Listing) error
	GetListing(ctx context.Context, id string) (*Listing, error)
	GetListingByUploadID(ctx context.Context, uploadID string) (*Listing, error)
	GetListingByAssetID(ctx context.Context, assetID string) (*Listing, error)
	GetListingByPlaybackID(ctx context.Context, playbackID string) (*Listing, error)
	ListByManager(ctx context.Context, managerID string) ([]*Listing, error)
	ListReady(ctx context.Context) ([]*Listing, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateUploadID(ctx context.Context, id, uploadID string) error
	UpdateMuxInfo(ctx context.Context, id, assetID, playbackID string) error
	UpdateDetails(ctx context.Context, l *Listing) error
	UpdateAnalysis(ctx context.Context, id string, result *analysis.VideoAnalysisResult) error
	DeleteListing(ctx context.Context, id string) error

	SaveListing(ctx context.Context, s *SavedListing) error
	UnsaveListing(ctx context.Context, renterID, listingID string) error
	ListSaved(ctx context.Context, renterID string) ([]*Listing, error)
	IsSaved(ctx context.Context, renterID, listingID string) (bool, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const listingColumns = `id, manager_id, title, status, mux_upload_id, mux_asset_id, mux_playback_id,
	price, address, city, bedrooms, bathrooms, description, available,
	rooms, tags, video_description, analysis_degraded, created_at, updated_at`

func (r *SQLiteRepository) CreateListing(ctx context.Context, l *Listing) error {
	rooms, tags, err := marshalAnalysisColumns(l.Rooms, l.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.ManagerID, l.Title, l.Status,
		nullString(l.MuxUploadID), nullString(l.MuxAssetID), nullString(l.MuxPlaybackID),
		l.Price, nullString(l.Address), nullString(l.City),
		nullableInt(l.Bedrooms), nullableFloat(l.Bathrooms), nullString(l.Description), boolToInt(l.Available),
		rooms, tags, nullString(l.VideoDescription), boolToInt(l.AnalysisDegraded),
		l.CreatedAt.Format(time.RFC3339), l.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetListing(ctx context.Context, id string) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	return r.scanListing(row)
}

func (r *SQLiteRepository) GetListingByUploadID(ctx context.Context, uploadID string) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE mux_upload_id = ?`, uploadID)
	return r.scanListing(row)
}

func (r *SQLiteRepository) GetListingByAssetID(ctx context.Context, assetID string) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE mux_asset_id = ?`, assetID)
	return r.scanListing(row)
}

func (r *SQLiteRepository) GetListingByPlaybackID(ctx context.Context, playbackID string) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE mux_playback_id = ?`, playbackID)
	return r.scanListing(row)
}

func (r *SQLiteRepository) ListByManager(ctx context.Context, managerID string) ([]*Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+` FROM listings WHERE manager_id = ? ORDER BY created_at DESC
	`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanListings(rows)
}

func (r *SQLiteRepository) ListReady(ctx context.Context) ([]*Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE status = 'ready' AND available = 1
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanListings(rows)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateUploadID(ctx context.Context, id, uploadID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET mux_upload_id = ?, updated_at = ? WHERE id = ?
	`, nullString(uploadID), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateMuxInfo(ctx context.Context, id, assetID, playbackID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET mux_asset_id = ?, mux_playback_id = ?, updated_at = ? WHERE id = ?
	`, nullString(assetID), nullString(playbackID), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateDetails(ctx context.Context, l *Listing) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET title = ?, price = ?, address = ?, city = ?,
			bedrooms = ?, bathrooms = ?, description = ?, available = ?, updated_at = ?
		WHERE id = ?
	`, l.Title, l.Price, nullString(l.Address), nullString(l.City),
		nullableInt(l.Bedrooms), nullableFloat(l.Bathrooms), nullString(l.Description),
		boolToInt(l.Available), time.Now().Format(time.RFC3339), l.ID)
	return err
}

// UpdateAnalysis stores the analysis output on the listing. Detected property
// counts only fill columns the manager has not already set.
func (r *SQLiteRepository) UpdateAnalysis(ctx context.Context, id string, result *analysis.VideoAnalysisResult) error {
	rooms, tags, err := marshalAnalysisColumns(result.Rooms, result.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE listings SET rooms = ?, tags = ?, video_description = ?, analysis_degraded = ?,
			bedrooms = COALESCE(bedrooms, ?), bathrooms = COALESCE(bathrooms, ?), updated_at = ?
		WHERE id = ?
	`, rooms, tags, nullString(result.VideoDescription), boolToInt(result.Degraded),
		nullableInt(result.PropertyInfo.Bedrooms), nullableFloat(result.PropertyInfo.Bathrooms),
		time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) DeleteListing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM listings WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) SaveListing(ctx context.Context, s *SavedListing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_listings (id, renter_id, listing_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(renter_id, listing_id) DO NOTHING
	`, s.ID, s.RenterID, s.ListingID, s.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) UnsaveListing(ctx context.Context, renterID, listingID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM saved_listings WHERE renter_id = ? AND listing_id = ?
	`, renterID, listingID)
	return err
}

func (r *SQLiteRepository) ListSaved(ctx context.Context, renterID string) ([]*Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedListingColumns("l.")+`
		FROM listings l
		JOIN saved_listings s ON s.listing_id = l.id
		WHERE s.renter_id = ?
		ORDER BY s.created_at DESC
	`, renterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanListings(rows)
}

func (r *SQLiteRepository) IsSaved(ctx context.Context, renterID, listingID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM saved_listings WHERE renter_id = ? AND listing_id = ?
	`, renterID, listingID).Scan(&count)
	return count > 0, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanListing(row *sql.Row) (*Listing, error) {
	l, err := scanListingRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *SQLiteRepository) scanListings(rows *sql.Rows) ([]*Listing, error) {
	var listings []*Listing
	for rows.Next() {
		l, err := scanListingRow(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func scanListingRow(row rowScanner) (*Listing, error) {
	var l Listing
	var uploadID, assetID, playbackID, address, city, description sql.NullString
	var rooms, tags, videoDescription sql.NullString
	var price sql.NullInt64
	var bedrooms sql.NullInt64
	var bathrooms sql.NullFloat64
	var available, degraded int
	var createdAt, updatedAt string

	err := row.Scan(&l.ID, &l.ManagerID, &l.Title, &l.Status, &uploadID, &assetID, &playbackID,
		&price, &address, &city, &bedrooms, &bathrooms, &description, &available,
		&rooms, &tags, &videoDescription, &degraded, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.MuxUploadID = uploadID.String
	l.MuxAssetID = assetID.String
	l.MuxPlaybackID = playbackID.String
	l.Price = int(price.Int64)
	l.Address = address.String
	l.City = city.String
	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		l.Bedrooms = &v
	}
	if bathrooms.Valid {
		v := bathrooms.Float64
		l.Bathrooms = &v
	}
	l.Description = description.String
	l.Available = available == 1
	l.VideoDescription = videoDescription.String
	l.AnalysisDegraded = degraded == 1
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if rooms.String != "" {
		if err := json.Unmarshal([]byte(rooms.String), &l.Rooms); err != nil {
			return nil, err
		}
	}
	if tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &l.Tags); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

func marshalAnalysisColumns(rooms []analysis.RoomObservation, tags []string) (sql.NullString, sql.NullString, error) {
	var roomsCol, tagsCol sql.NullString
	if len(rooms) > 0 {
		b, err := json.Marshal(rooms)
		if err != nil {
			return roomsCol, tagsCol, err
		}
		roomsCol = sql.NullString{String: string(b), Valid: true}
	}
	if len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return roomsCol, tagsCol, err
		}
		tagsCol = sql.NullString{String: string(b), Valid: true}
	}
	return roomsCol, tagsCol, nil
}

func prefixedListingColumns(prefix string) string {
	return prefix + `id, ` + prefix + `manager_id, ` + prefix + `title, ` + prefix + `status, ` +
		prefix + `mux_upload_id, ` + prefix + `mux_asset_id, ` + prefix + `mux_playback_id, ` +
		prefix + `price, ` + prefix + `address, ` + prefix + `city, ` + prefix + `bedrooms, ` +
		prefix + `bathrooms, ` + prefix + `description, ` + prefix + `available, ` +
		prefix + `rooms, ` + prefix + `tags, ` + prefix + `video_description, ` +
		prefix + `analysis_degraded, ` + prefix + `created_at, ` + prefix + `updated_at`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
