package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rentreel/rentreel/internal/analysis"
	"github.com/rentreel/rentreel/internal/assistant"
	"github.com/rentreel/rentreel/internal/listing"
	"github.com/rentreel/rentreel/internal/muxvideo"
	"github.com/rentreel/rentreel/internal/places"
)

// Uploader creates direct uploads and verifies webhook signatures.
// Satisfied by *muxvideo.Client.
type Uploader interface {
	CreateDirectUpload(ctx context.Context) (*muxvideo.DirectUpload, error)
	VerifyWebhookSignature(payload []byte, header string) error
}

// ReadinessChecker blocks until a playback reference serves bytes.
// Satisfied by *muxvideo.Poller.
type ReadinessChecker interface {
	WaitUntilReady(ctx context.Context, playbackID string) (bool, error)
}

// AnalysisService runs the AI video-analysis workflow.
// Satisfied by *analysis.Analyzer.
type AnalysisService interface {
	Analyze(ctx context.Context, playbackID string) (*analysis.VideoAnalysisResult, error)
	AnalyzeRooms(ctx context.Context, playbackID string) ([]analysis.RoomObservation, error)
}

// PlacesService proxies address autocompletion.
// Satisfied by *places.Client.
type PlacesService interface {
	Enabled() bool
	Autocomplete(ctx context.Context, input string) ([]places.Prediction, error)
	Details(ctx context.Context, placeID string) (*places.PlaceDetails, error)
}

// AssistantService answers renter questions about a listing.
// Satisfied by *assistant.Assistant.
type AssistantService interface {
	Ask(ctx context.Context, l *listing.Listing, question string, history []assistant.ChatMessage) (string, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port           int
	ListingService listing.ListingService
	Repository     listing.Repository
	Uploader       Uploader
	Readiness      ReadinessChecker
	Analysis       AnalysisService
	Places         PlacesService
	Assistant      AssistantService
	Logger         *slog.Logger
	StartTime      time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
