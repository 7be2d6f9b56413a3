// Package gemini wraps the Google Gemini SDK behind the two call shapes the
// server needs: video-grounded generation for tour analysis and multi-turn
// chat for the listing assistant.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const videoMIMEType = "video/mp4"

type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewClient(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// GenerateFromVideo submits the raw MP4 bytes inline plus the prompt and
// returns the model's free-form text. Generation parameters are fixed, not
// request-configurable: conservative sampling and an output ceiling generous
// enough for dozens of room entries.
func (c *Client) GenerateFromVideo(ctx context.Context, video []byte, prompt string) (string, error) {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{
			MIMEType: videoMIMEType,
			Data:     video,
		}},
		genai.NewPartFromText(prompt),
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.8),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: 8192,
	}

	if c.logger != nil {
		c.logger.Debug("sending video to inference service",
			"model", c.model,
			"video_bytes", len(video),
		)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// Turn is one message in a chat exchange.
type Turn struct {
	User bool
	Text string
}

// GenerateChat runs a multi-turn conversation and returns the model's next
// message. The last turn should be the pending user question. Uses a smaller
// output ceiling than video analysis; this is the listing assistant's path.
func (c *Client) GenerateChat(ctx context.Context, turns []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleModel)
		if t.User {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromParts(
			[]*genai.Part{genai.NewPartFromText(t.Text)}, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.8),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: 1024,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
