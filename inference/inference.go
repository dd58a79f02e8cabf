// Package inference implements the natural-language fallback collaborator
// over the DeepSeek chat completions API.
//
// The model is trusted for title/description content but never for time
// precision: the resolver discards the inferred due time whenever the
// deterministic pattern bank produced one.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chime/timeparse"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const systemPrompt = `You extract reminders from chat messages.
Reply with a single JSON object and nothing else:
{"title": "...", "description": "...", "due_time_utc": "RFC3339 timestamp or empty string"}
The title is a short imperative summary of what to be reminded about.
The description may add detail from the message, or be empty.
due_time_utc is your best reading of when the reminder should fire, in UTC.
If the message names no time at all, use an empty string.`

type Client struct {
	client  deepseek.Client
	model   string
	timeout time.Duration
}

func New(apiKey, model string, timeout time.Duration) (*Client, error) {
	client, err := deepseek.NewClient(apiKey)

	if err != nil {
		return nil, fmt.Errorf("failed to create deepseek client: %w", err)
	}

	return &Client{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

type inferredPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueTimeUTC  string `json:"due_time_utc"`
}

// Infer asks the model for a title, description and best-effort due time.
// The call is bounded by the configured timeout; a timeout is an error like
// any other and the caller falls back accordingly.
func (c *Client) Infer(ctx context.Context, text string, ref time.Time, offsetHours int) (*timeparse.Inferred, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(
		"Current time (UTC): %s\nUser UTC offset (hours): %d\nMessage: %s",
		ref.UTC().Format(time.RFC3339), offsetHours, text,
	)

	chatReq := &request.ChatCompletionsRequest{
		Model: c.model,
		Messages: []*request.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}

	resp, err := c.client.CallChatCompletionsChat(ctx, chatReq)

	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("inference returned no choices")
	}

	return parseResponse(resp.Choices[0].Message.Content)
}

func parseResponse(content string) (*timeparse.Inferred, error) {
	content = stripFences(content)

	var payload inferredPayload

	if err := json.UnmarshalFromString(content, &payload); err != nil {
		return nil, fmt.Errorf("unparseable inference response: %w", err)
	}

	inferred := &timeparse.Inferred{
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
	}

	if payload.DueTimeUTC != "" {
		due, err := time.Parse(time.RFC3339, payload.DueTimeUTC)

		// A bad timestamp costs us the inferred time, not the titles
		if err == nil {
			inferred.Due = due.UTC()
			inferred.HasDue = true
		}
	}

	return inferred, nil
}

// Models love wrapping JSON in markdown fences no matter what the prompt says
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
