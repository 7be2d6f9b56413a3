package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentreel/rentreel/internal/listing"
	"github.com/rentreel/rentreel/internal/muxvideo"
	"github.com/rentreel/rentreel/internal/places"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	// Mux calls this; it authenticates with the signature header instead.
	r.Post("/api/webhooks/mux", muxWebhookHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Post("/api/uploads", createUploadHandler(cfg))
		r.Get("/api/videos/{playbackID}/ready", readyHandler(cfg))
		r.Get("/api/videos/{playbackID}/analyze", analyzeHandler(cfg))
		r.Get("/api/videos/{playbackID}/analyze-rooms", analyzeRoomsHandler(cfg))

		r.Post("/api/listings", createListingHandler(cfg))
		r.Get("/api/listings", listListingsHandler(cfg))
		r.Get("/api/listings/{id}", getListingHandler(cfg))
		r.Put("/api/listings/{id}", updateListingHandler(cfg))
		r.Delete("/api/listings/{id}", deleteListingHandler(cfg))
		r.Post("/api/listings/{id}/publish", publishListingHandler(cfg))

		r.Get("/api/feed", feedHandler(cfg))
		r.Post("/api/listings/{id}/save", saveListingHandler(cfg))
		r.Delete("/api/listings/{id}/save", unsaveListingHandler(cfg))
		r.Get("/api/saved", savedListingsHandler(cfg))

		r.Get("/api/places/autocomplete", placesAutocompleteHandler(cfg))
		r.Get("/api/places/details", placesDetailsHandler(cfg))

		r.Post("/api/listings/{id}/ask", askHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "0.1.0",
			UptimeS: uptime,
		})
	}
}

// createUploadHandler creates a draft listing and a Mux direct upload in one
// step; the client PUTs the video file to the returned URL.
func createUploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Title == "" {
			WriteError(w, http.StatusBadRequest, "title is required", "BAD_REQUEST")
			return
		}

		l, err := cfg.ListingService.CreateListing(r.Context(), UserID(r), req.Title)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		upload, err := cfg.Uploader.CreateDirectUpload(r.Context())
		if err != nil {
			cfg.Logger.Error("failed to create direct upload", "error", err, "listing_id", l.ID)
			WriteError(w, http.StatusBadGateway, "failed to create upload", "UPSTREAM_ERROR")
			return
		}

		if err := cfg.ListingService.AttachUpload(r.Context(), l.ID, upload.ID); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusCreated, CreateUploadResponse{
			ListingID: l.ID,
			UploadID:  upload.ID,
			UploadURL: upload.URL,
		})
	}
}

func muxWebhookHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read body", "BAD_REQUEST")
			return
		}

		if err := cfg.Uploader.VerifyWebhookSignature(payload, r.Header.Get("Mux-Signature")); err != nil {
			cfg.Logger.Warn("webhook signature rejected", "error", err)
			WriteError(w, http.StatusUnauthorized, "invalid signature", "UNAUTHORIZED")
			return
		}

		event, err := muxvideo.ParseWebhookEvent(payload)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		if event.Type != muxvideo.EventAssetReady {
			WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		l, err := cfg.ListingService.MarkAssetReady(r.Context(), event.Data.UploadID, event.Data.ID, event.PlaybackID())
		if err != nil {
			if errors.Is(err, listing.ErrNotFound) {
				// Unknown upload; acknowledge so Mux stops retrying.
				cfg.Logger.Warn("webhook for unknown upload", "upload_id", event.Data.UploadID)
				WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("asset ready webhook processed", "listing_id", l.ID, "playback_id", l.MuxPlaybackID)
		WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	}
}

func readyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playbackID := chi.URLParam(r, "playbackID")

		ready, err := cfg.Readiness.WaitUntilReady(r.Context(), playbackID)
		if err != nil {
			var notReady *muxvideo.NotReadyError
			if errors.As(err, &notReady) {
				WriteError(w, http.StatusBadRequest, err.Error(), "NOT_READY")
				return
			}
			WriteError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ReadyResponse{PlaybackID: playbackID, Ready: ready})
	}
}

// analyzeHandler runs the analysis workflow and persists the result when a
// listing owns the playback reference.
func analyzeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playbackID := chi.URLParam(r, "playbackID")

		result, err := cfg.Analysis.Analyze(r.Context(), playbackID)
		if err != nil {
			var notReady *muxvideo.NotReadyError
			if errors.As(err, &notReady) {
				WriteError(w, http.StatusBadRequest, err.Error(), "NOT_READY")
				return
			}
			WriteError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
			return
		}

		l, err := cfg.ListingService.GetByPlaybackID(r.Context(), playbackID)
		if err == nil {
			if err := cfg.ListingService.StoreAnalysis(r.Context(), l.ID, result); err != nil {
				cfg.Logger.Error("failed to persist analysis", "error", err, "listing_id", l.ID)
			}
		} else if !errors.Is(err, listing.ErrNotFound) {
			cfg.Logger.Error("failed to resolve listing for analysis", "error", err, "playback_id", playbackID)
		}

		WriteJSON(w, http.StatusOK, result)
	}
}

func analyzeRoomsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playbackID := chi.URLParam(r, "playbackID")

		rooms, err := cfg.Analysis.AnalyzeRooms(r.Context(), playbackID)
		if err != nil {
			var notReady *muxvideo.NotReadyError
			if errors.As(err, &notReady) {
				WriteError(w, http.StatusBadRequest, err.Error(), "NOT_READY")
				return
			}
			WriteError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	}
}

func createListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateListingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		l, err := cfg.ListingService.CreateListing(r.Context(), UserID(r), req.Title)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, ListingToResponse(l))
	}
}

func listListingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := cfg.ListingService.ManagerListings(r.Context(), UserID(r))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list listings", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ListingsToResponse(listings))
	}
}

func getListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := fetchListing(cfg, w, r)
		if !ok {
			return
		}

		resp := ListingToResponse(l)
		if saved, err := cfg.Repository.IsSaved(r.Context(), UserID(r), l.ID); err == nil {
			resp.Saved = &saved
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func updateListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := fetchListing(cfg, w, r)
		if !ok {
			return
		}
		if l.ManagerID != UserID(r) {
			WriteError(w, http.StatusForbidden, "listing belongs to another manager", "FORBIDDEN")
			return
		}

		var upd listing.DetailsUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		updated, err := cfg.ListingService.UpdateDetails(r.Context(), l.ID, upd)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ListingToResponse(updated))
	}
}

func deleteListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := fetchListing(cfg, w, r)
		if !ok {
			return
		}
		if l.ManagerID != UserID(r) {
			WriteError(w, http.StatusForbidden, "listing belongs to another manager", "FORBIDDEN")
			return
		}

		if err := cfg.ListingService.DeleteListing(r.Context(), UserID(r), l.ID); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func publishListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := fetchListing(cfg, w, r)
		if !ok {
			return
		}
		if l.ManagerID != UserID(r) {
			WriteError(w, http.StatusForbidden, "listing belongs to another manager", "FORBIDDEN")
			return
		}

		if err := cfg.ListingService.Publish(r.Context(), l.ID); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		updated, err := cfg.ListingService.GetListing(r.Context(), l.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ListingToResponse(updated))
	}
}

func feedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := cfg.ListingService.Feed(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load feed", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ListingsToResponse(listings))
	}
}

func saveListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.ListingService.Save(r.Context(), UserID(r), id); err != nil {
			if errors.Is(err, listing.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "listing not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func unsaveListingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.ListingService.Unsave(r.Context(), UserID(r), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func savedListingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := cfg.ListingService.Saved(r.Context(), UserID(r))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list saved listings", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ListingsToResponse(listings))
	}
}

// placesAutocompleteHandler degrades to an empty prediction list on upstream
// failures instead of erroring; the address field falls back to free text.
func placesAutocompleteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("input")
		if cfg.Places == nil || !cfg.Places.Enabled() || input == "" {
			WriteJSON(w, http.StatusOK, AutocompleteResponse{Predictions: []places.Prediction{}})
			return
		}

		predictions, err := cfg.Places.Autocomplete(r.Context(), input)
		if err != nil {
			cfg.Logger.Warn("places autocomplete failed", "error", err)
			WriteJSON(w, http.StatusOK, AutocompleteResponse{
				Predictions: []places.Prediction{},
				Error:       &PlacesError{Message: "Failed to fetch suggestions"},
			})
			return
		}

		WriteJSON(w, http.StatusOK, AutocompleteResponse{Predictions: predictions})
	}
}

func placesDetailsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := r.URL.Query().Get("place_id")
		if placeID == "" {
			WriteError(w, http.StatusBadRequest, "place_id is required", "BAD_REQUEST")
			return
		}
		if cfg.Places == nil || !cfg.Places.Enabled() {
			WriteError(w, http.StatusServiceUnavailable, "places lookup not configured", "PLACES_DISABLED")
			return
		}

		details, err := cfg.Places.Details(r.Context(), placeID)
		if err != nil {
			WriteError(w, http.StatusBadGateway, "failed to fetch place details", "UPSTREAM_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, details)
	}
}

func askHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := fetchListing(cfg, w, r)
		if !ok {
			return
		}

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Question == "" {
			WriteError(w, http.StatusBadRequest, "question is required", "BAD_REQUEST")
			return
		}

		answer, err := cfg.Assistant.Ask(r.Context(), l, req.Question, req.History)
		if err != nil {
			cfg.Logger.Error("assistant request failed", "error", err, "listing_id", l.ID)
			WriteError(w, http.StatusBadGateway, "assistant unavailable", "UPSTREAM_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, AskResponse{Answer: answer})
	}
}

func fetchListing(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*listing.Listing, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "listing id required", "BAD_REQUEST")
		return nil, false
	}

	l, err := cfg.ListingService.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "listing not found", "NOT_FOUND")
			return nil, false
		}
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	return l, true
}
