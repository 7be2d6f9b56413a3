package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/rentreel/rentreel/internal/muxvideo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubFetcher struct {
	data []byte
	err  error
}

func (f *stubFetcher) FetchVideo(ctx context.Context, playbackID string) ([]byte, error) {
	return f.data, f.err
}

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) GenerateFromVideo(ctx context.Context, video []byte, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func newTestAnalyzer(response string, genErr error) (*Analyzer, *stubGenerator) {
	gen := &stubGenerator{response: response, err: genErr}
	return New(&stubFetcher{data: []byte("mp4")}, gen, testLogger()), gen
}

func TestAnalyze_ExtractionToleratesProse(t *testing.T) {
	a, _ := newTestAnalyzer("Here is the result:\n{\"rooms\":[{\"room\":\"Kitchen\",\"timestamp\":\"0:45\"}]}\nHope that helps!", nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Degraded {
		t.Fatal("result should not be degraded")
	}

	want := []RoomObservation{{Room: "Kitchen", Timestamp: "0:45"}}
	if !reflect.DeepEqual(result.Rooms, want) {
		t.Errorf("rooms = %+v, want %+v", result.Rooms, want)
	}
}

func TestAnalyzeRooms_ExtractionToleratesProse(t *testing.T) {
	a, _ := newTestAnalyzer("Here is the result:\n[{\"room\":\"Kitchen\",\"timestamp\":\"0:45\"}]\nHope that helps!", nil)

	rooms, err := a.AnalyzeRooms(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []RoomObservation{{Room: "Kitchen", Timestamp: "0:45"}}
	if !reflect.DeepEqual(rooms, want) {
		t.Errorf("rooms = %+v, want %+v", rooms, want)
	}
}

func TestAnalyze_FallbackOnMissingJSON(t *testing.T) {
	a, _ := newTestAnalyzer("I'm not sure what rooms are shown.", nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("analyze must not fail on unparsable response: %v", err)
	}

	assertFallback(t, result)
}

func TestAnalyze_FallbackOnUnterminatedFence(t *testing.T) {
	// An output-ceiling truncation can leave an opening ``` with no
	// closing fence and no JSON behind it.
	a, _ := newTestAnalyzer("```\nsome\nprose", nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("analyze must not fail on truncated response: %v", err)
	}

	assertFallback(t, result)
}

func TestAnalyze_FallbackOnMalformedJSON(t *testing.T) {
	a, _ := newTestAnalyzer(`{"rooms": [{"room": "Kitchen", "timestamp":}]}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertFallback(t, result)
}

func TestAnalyze_FallbackOnInferenceError(t *testing.T) {
	a, _ := newTestAnalyzer("", fmt.Errorf("model unavailable"))

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("inference errors must not propagate: %v", err)
	}
	assertFallback(t, result)
}

func TestAnalyze_SchemaRejection_MissingTimestamp(t *testing.T) {
	a, _ := newTestAnalyzer(`{"rooms":[{"room":"Kitchen"}]}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A partially valid room list is rejected wholesale, not trimmed.
	assertFallback(t, result)
}

func TestAnalyze_SchemaRejection_EmptyRooms(t *testing.T) {
	a, _ := newTestAnalyzer(`{"rooms":[],"tags":["pool"]}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertFallback(t, result)
}

func TestAnalyze_TagFiltering(t *testing.T) {
	a, _ := newTestAnalyzer(`{
		"rooms":[{"room":"Kitchen","timestamp":"0:10"}],
		"tags":["hardwood floors", 42, "washer/dryer"]
	}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"hardwood floors", "washer/dryer"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Errorf("tags = %v, want %v", result.Tags, want)
	}
	if result.Degraded {
		t.Error("non-string tags must be filtered, not degrade the result")
	}
}

func TestAnalyze_OptionalPropertyInfo(t *testing.T) {
	a, _ := newTestAnalyzer(`{
		"rooms":[{"room":"Bedroom","timestamp":"0:30"}],
		"propertyInfo":{"bedrooms": 2}
	}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PropertyInfo.Bedrooms == nil || *result.PropertyInfo.Bedrooms != 2 {
		t.Errorf("bedrooms = %v, want 2", result.PropertyInfo.Bedrooms)
	}
	if result.PropertyInfo.Bathrooms != nil {
		t.Errorf("bathrooms = %v, want absent", *result.PropertyInfo.Bathrooms)
	}
}

func TestAnalyze_BathroomsAllowsHalfSteps(t *testing.T) {
	a, _ := newTestAnalyzer(`{
		"rooms":[{"room":"Bathroom","timestamp":"1:05"}],
		"propertyInfo":{"bathrooms": 1.5}
	}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PropertyInfo.Bathrooms == nil || *result.PropertyInfo.Bathrooms != 1.5 {
		t.Errorf("bathrooms = %v, want 1.5", result.PropertyInfo.Bathrooms)
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	a, gen := newTestAnalyzer(`{
		"rooms":[
			{"room":"Living Room","timestamp":"0:00"},
			{"room":"Kitchen","timestamp":"0:42"},
			{"room":"Bathroom","timestamp":"1:15"}
		],
		"propertyInfo":{"bedrooms":1},
		"tags":["hardwood floors","city view"],
		"videoDescription":"A sunny one-bedroom with a renovated kitchen."
	}`, nil)

	result, err := a.Analyze(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantRooms := []RoomObservation{
		{Room: "Living Room", Timestamp: "0:00"},
		{Room: "Kitchen", Timestamp: "0:42"},
		{Room: "Bathroom", Timestamp: "1:15"},
	}
	if !reflect.DeepEqual(result.Rooms, wantRooms) {
		t.Errorf("rooms = %+v, want %+v", result.Rooms, wantRooms)
	}
	if !reflect.DeepEqual(result.Tags, []string{"hardwood floors", "city view"}) {
		t.Errorf("tags = %v", result.Tags)
	}
	if result.PropertyInfo.Bedrooms == nil || *result.PropertyInfo.Bedrooms != 1 {
		t.Errorf("bedrooms = %v, want 1", result.PropertyInfo.Bedrooms)
	}
	if result.PropertyInfo.Bathrooms != nil {
		t.Error("bathrooms should be absent")
	}
	if result.VideoDescription == "" {
		t.Error("expected video description")
	}
	if result.Degraded {
		t.Error("valid result must not be degraded")
	}
	if len(gen.prompts) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.prompts))
	}
}

func TestAnalyze_FetchErrorPropagates(t *testing.T) {
	fetchErr := &muxvideo.NotReadyError{PlaybackID: "plbk1", Attempts: 10}
	a := New(&stubFetcher{err: fetchErr}, &stubGenerator{}, testLogger())

	_, err := a.Analyze(context.Background(), "plbk1")
	var notReady *muxvideo.NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %T: %v", err, err)
	}
}

func TestAnalyzeRooms_FetchErrorPropagates(t *testing.T) {
	fetchErr := &muxvideo.NotReadyError{PlaybackID: "plbk1", Attempts: 10}
	a := New(&stubFetcher{err: fetchErr}, &stubGenerator{}, testLogger())

	_, err := a.AnalyzeRooms(context.Background(), "plbk1")
	var notReady *muxvideo.NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %T: %v", err, err)
	}
}

func TestAnalyzeRooms_FallbackIsSingleUnlabeledRoom(t *testing.T) {
	a, _ := newTestAnalyzer("no json here", nil)

	rooms, err := a.AnalyzeRooms(context.Background(), "plbk1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []RoomObservation{{Room: "Room 1", Timestamp: "0:00"}}
	if !reflect.DeepEqual(rooms, want) {
		t.Errorf("rooms = %+v, want %+v", rooms, want)
	}
}

func assertFallback(t *testing.T, result *VideoAnalysisResult) {
	t.Helper()

	wantRooms := []RoomObservation{{Room: "Room 1", Timestamp: "0:00"}}
	if !reflect.DeepEqual(result.Rooms, wantRooms) {
		t.Errorf("rooms = %+v, want fallback %+v", result.Rooms, wantRooms)
	}
	if result.PropertyInfo.Bedrooms != nil || result.PropertyInfo.Bathrooms != nil {
		t.Errorf("propertyInfo = %+v, want empty", result.PropertyInfo)
	}
	if len(result.Tags) != 0 {
		t.Errorf("tags = %v, want empty", result.Tags)
	}
	if !result.Degraded {
		t.Error("fallback result must be marked degraded")
	}
}
