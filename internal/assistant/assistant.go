// Package assistant answers renter questions about a listing. Each question
// is sent to the model with the listing's details and video-analysis output
// as grounding context, plus the running chat history.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rentreel/rentreel/internal/gemini"
	"github.com/rentreel/rentreel/internal/listing"
)

// ChatMessage is one message of the conversation as the client stores it.
type ChatMessage struct {
	Text   string `json:"text"`
	IsUser bool   `json:"is_user"`
}

// Generator runs a multi-turn chat against the model. Satisfied by
// *gemini.Client.
type Generator interface {
	GenerateChat(ctx context.Context, turns []gemini.Turn) (string, error)
}

type Assistant struct {
	gen    Generator
	logger *slog.Logger
}

func New(gen Generator, logger *slog.Logger) *Assistant {
	return &Assistant{gen: gen, logger: logger}
}

// Ask answers one renter question about the listing. Errors from the model
// propagate; the assistant has no fallback answer.
func (a *Assistant) Ask(ctx context.Context, l *listing.Listing, question string, history []ChatMessage) (string, error) {
	if question == "" {
		return "", fmt.Errorf("question is required")
	}

	turns := make([]gemini.Turn, 0, len(history)+3)
	turns = append(turns,
		gemini.Turn{
			User: true,
			Text: "I'm a renter looking at this property. Here's the listing information and video analysis:\n\n" +
				listingContext(l) + "\n\nPlease help me learn more about it.",
		},
		gemini.Turn{
			Text: "I'm here to help you learn about this property. I'll answer your questions based on the listing information provided. I'll be direct, helpful, and honest about what I know and don't know.",
		},
	)
	for _, msg := range history {
		turns = append(turns, gemini.Turn{User: msg.IsUser, Text: msg.Text})
	}
	turns = append(turns, gemini.Turn{User: true, Text: question})

	answer, err := a.gen.GenerateChat(ctx, turns)
	if err != nil {
		return "", fmt.Errorf("assistant response: %w", err)
	}

	if a.logger != nil {
		a.logger.Info("assistant answered",
			"listing_id", l.ID,
			"history_len", len(history),
		)
	}
	return answer, nil
}

func listingContext(l *listing.Listing) string {
	availability := "Not currently available"
	if l.Available {
		availability = "Available now"
	}

	rooms := "No room data available"
	if len(l.Rooms) > 0 {
		if b, err := json.MarshalIndent(l.Rooms, "", "  "); err == nil {
			rooms = string(b)
		}
	}

	tags := "None specified"
	if len(l.Tags) > 0 {
		tags = strings.Join(l.Tags, ", ")
	}

	var b strings.Builder
	b.WriteString("Property Details:\n")
	fmt.Fprintf(&b, "- Title: %s\n", l.Title)
	fmt.Fprintf(&b, "- Price: $%d/month\n", l.Price)
	fmt.Fprintf(&b, "- Location: %s, %s\n", l.Address, l.City)
	fmt.Fprintf(&b, "- Bedrooms: %s\n", formatCount(l.Bedrooms))
	fmt.Fprintf(&b, "- Bathrooms: %s\n", formatBathrooms(l.Bathrooms))
	fmt.Fprintf(&b, "- Description: %s\n", l.Description)
	fmt.Fprintf(&b, "- Availability: %s\n", availability)
	b.WriteString("\nVideo Tour Analysis:\n")
	fmt.Fprintf(&b, "- Rooms Shown: %s\n", rooms)
	fmt.Fprintf(&b, "- Features & Amenities: %s\n", tags)
	b.WriteString("\nNote: The rooms and features listed above were identified through AI analysis of the video tour, so I can help answer specific questions about what's shown in the video.")
	return b.String()
}

func formatCount(v *int) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%d", *v)
}

func formatBathrooms(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.1f", *v), "0"), ".")
}
