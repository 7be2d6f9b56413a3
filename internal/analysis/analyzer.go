// Package analysis orchestrates the AI video-analysis workflow: fetch the
// finished MP4 from the video host, run one prompted inference call, and
// normalize the model's free-text answer into a validated result. Everything
// downstream of a successful fetch degrades to a safe default instead of
// failing the caller.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rentreel/rentreel/internal/logging"
)

const analysisPrompt = `Analyze this apartment tour video and identify what rooms are shown and at what timestamps, plus overall property details.
Respond ONLY with a JSON object in this exact format, with no additional text or explanation:
{"rooms": [{"room": "Living Room", "timestamp": "0:00"}, {"room": "Kitchen", "timestamp": "1:23"}], "propertyInfo": {"bedrooms": 2, "bathrooms": 1.5}, "tags": ["hardwood floors", "stainless steel appliances"], "videoDescription": "A bright one-bedroom apartment..."}
For rooms that aren't clearly identifiable, use "Room 1", "Room 2", etc.
Always label bathrooms as "Bathroom" and kitchens as "Kitchen".
Omit bedrooms or bathrooms from propertyInfo if they cannot be determined from the video; never guess zero.
tags should list visible amenities and features as short free-text labels.`

const roomsPrompt = `Analyze this apartment tour video and identify what rooms are shown and at what timestamps.
Respond ONLY with a JSON array in this exact format, with no additional text or explanation:
[{"room": "Living Room", "timestamp": "0:00"}, {"room": "Kitchen", "timestamp": "1:23"}].
For rooms that aren't clearly identifiable, use "Room 1", "Room 2", etc.
Always label bathrooms as "Bathroom" and kitchens as "Kitchen".`

// VideoFetcher acquires the raw video payload for a playback reference.
// Satisfied by *muxvideo.Poller.
type VideoFetcher interface {
	FetchVideo(ctx context.Context, playbackID string) ([]byte, error)
}

// Generator runs one prompted inference call against the multimodal model.
// Satisfied by *gemini.Client.
type Generator interface {
	GenerateFromVideo(ctx context.Context, video []byte, prompt string) (string, error)
}

type Analyzer struct {
	fetcher VideoFetcher
	gen     Generator
	logger  *slog.Logger
}

func New(fetcher VideoFetcher, gen Generator, logger *slog.Logger) *Analyzer {
	return &Analyzer{fetcher: fetcher, gen: gen, logger: logger}
}

// Analyze runs the full workflow for one playback reference. Only the byte
// fetch can fail the call (typically with *muxvideo.NotReadyError); inference
// and parsing failures are converted into the fixed fallback result.
func (a *Analyzer) Analyze(ctx context.Context, playbackID string) (*VideoAnalysisResult, error) {
	log := a.scopedLogger(playbackID)

	data, err := a.fetcher.FetchVideo(ctx, playbackID)
	if err != nil {
		return nil, err
	}

	text, err := a.gen.GenerateFromVideo(ctx, data, analysisPrompt)
	if err != nil {
		if log != nil {
			log.Warn("inference failed, returning fallback", "error", err)
		}
		return FallbackResult(), nil
	}

	result, err := parseAnalysisResponse(text)
	if err != nil {
		if log != nil {
			log.Warn("failed to parse analysis response, returning fallback", "error", err)
		}
		return FallbackResult(), nil
	}

	if log != nil {
		log.Info("video analysis complete",
			"rooms", len(result.Rooms),
			"tags", len(result.Tags),
		)
	}
	return result, nil
}

// AnalyzeRooms is the simple variant: the model answers with a bare array of
// room observations. Same fetch error semantics and fallback policy.
func (a *Analyzer) AnalyzeRooms(ctx context.Context, playbackID string) ([]RoomObservation, error) {
	log := a.scopedLogger(playbackID)

	data, err := a.fetcher.FetchVideo(ctx, playbackID)
	if err != nil {
		return nil, err
	}

	text, err := a.gen.GenerateFromVideo(ctx, data, roomsPrompt)
	if err != nil {
		if log != nil {
			log.Warn("inference failed, returning fallback rooms", "error", err)
		}
		return FallbackRooms(), nil
	}

	rooms, err := parseRoomsResponse(text)
	if err != nil {
		if log != nil {
			log.Warn("failed to parse rooms response, returning fallback", "error", err)
		}
		return FallbackRooms(), nil
	}
	return rooms, nil
}

func (a *Analyzer) scopedLogger(playbackID string) *slog.Logger {
	if a.logger == nil {
		return nil
	}
	return logging.WithPlaybackID(a.logger, playbackID)
}

func parseAnalysisResponse(text string) (*VideoAnalysisResult, error) {
	jsonStr, err := extractJSON(stripMarkdownFences(text))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Rooms        []RoomObservation `json:"rooms"`
		PropertyInfo PropertyInfo      `json:"propertyInfo"`
		// Raw elements so non-string entries can be filtered rather than
		// failing the whole response.
		Tags             []any  `json:"tags"`
		VideoDescription string `json:"videoDescription"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}

	if err := validateRooms(payload.Rooms); err != nil {
		return nil, err
	}

	info := payload.PropertyInfo
	if info.Bedrooms != nil && *info.Bedrooms < 0 {
		info.Bedrooms = nil
	}
	if info.Bathrooms != nil && *info.Bathrooms < 0 {
		info.Bathrooms = nil
	}

	tags := make([]string, 0, len(payload.Tags))
	for _, t := range payload.Tags {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}

	return &VideoAnalysisResult{
		Rooms:            payload.Rooms,
		PropertyInfo:     info,
		Tags:             tags,
		VideoDescription: payload.VideoDescription,
	}, nil
}

func parseRoomsResponse(text string) ([]RoomObservation, error) {
	jsonStr, err := extractJSON(stripMarkdownFences(text))
	if err != nil {
		return nil, err
	}

	var rooms []RoomObservation
	if err := json.Unmarshal([]byte(jsonStr), &rooms); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}

	if err := validateRooms(rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func validateRooms(rooms []RoomObservation) error {
	if len(rooms) == 0 {
		return fmt.Errorf("no rooms in response")
	}
	for i, r := range rooms {
		if r.Room == "" || r.Timestamp == "" {
			return fmt.Errorf("room entry %d missing room or timestamp", i)
		}
	}
	return nil
}
