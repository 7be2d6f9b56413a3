package analysis

// RoomObservation is one (label, timestamp) pair identifying a room shown in
// the tour video. Timestamps are display-formatted (m:ss or h:mm:ss).
type RoomObservation struct {
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

// PropertyInfo holds counts the model could determine from the video.
// Fields are pointers because absence means "could not determine" (a zero
// would be a false signal). Bathrooms allows half-steps (1.5); bedrooms is
// integer-only.
type PropertyInfo struct {
	Bedrooms  *int     `json:"bedrooms,omitempty"`
	Bathrooms *float64 `json:"bathrooms,omitempty"`
}

// VideoAnalysisResult is the validated output of one analysis call. Rooms is
// never empty in a returned value: when extraction fails the fixed fallback
// takes its place and Degraded is set so the UI can tell the two apart.
type VideoAnalysisResult struct {
	Rooms            []RoomObservation `json:"rooms"`
	PropertyInfo     PropertyInfo      `json:"propertyInfo"`
	Tags             []string          `json:"tags"`
	VideoDescription string            `json:"videoDescription,omitempty"`
	Degraded         bool              `json:"degraded"`
}

// FallbackResult returns the fixed safe-default result used whenever the
// model's response cannot be validated. The upload flow always proceeds to
// the room-selection step instead of dead-ending.
func FallbackResult() *VideoAnalysisResult {
	return &VideoAnalysisResult{
		Rooms:        []RoomObservation{{Room: "Room 1", Timestamp: "0:00"}},
		PropertyInfo: PropertyInfo{},
		Tags:         []string{},
		Degraded:     true,
	}
}

// FallbackRooms is the simple-variant counterpart of FallbackResult.
func FallbackRooms() []RoomObservation {
	return []RoomObservation{{Room: "Room 1", Timestamp: "0:00"}}
}
