package platforms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chime/types"
)

const trelloAPIBase = "https://api.trello.com/1"

type trelloConfig struct {
	// Target list. Required: without it there is nowhere to put the card
	ListID string `json:"list_id"`
}

type Trello struct{}

func (Trello) Type() string {
	return types.PlatformTrello
}

// Trello credentials are stored as "key:token".
func trelloCreds(credentials string) (key, token string, err error) {
	key, token, found := strings.Cut(credentials, ":")

	if !found || key == "" || token == "" {
		return "", "", errors.New("trello credentials must be key:token")
	}

	return key, token, nil
}

func (Trello) CreateTask(ctx context.Context, recipient types.Recipient, task types.ResolvedTask) (string, error) {
	key, token, err := trelloCreds(recipient.Credentials)

	if err != nil {
		return "", err
	}

	var cfg trelloConfig

	if err := decodeConfig(recipient.Config, &cfg); err != nil {
		return "", err
	}

	// Incomplete config fails locally, no external call is made
	if cfg.ListID == "" {
		return "", errors.New("trello recipient has no list_id configured")
	}

	params := url.Values{}
	params.Set("key", key)
	params.Set("token", token)
	params.Set("idList", cfg.ListID)
	params.Set("name", task.Title)
	params.Set("desc", task.Description)
	params.Set("due", task.DueTime.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, "POST", trelloAPIBase+"/cards?"+params.Encode(), nil)

	if err != nil {
		return "", err
	}

	resp, err := httpClient.Do(req)

	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("trello returned %d: %s", resp.StatusCode, msg)
	}

	var created struct {
		ID        string `json:"id"`
		ShortLink string `json:"shortLink"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}

	// The short link doubles as the public card identifier
	if created.ShortLink != "" {
		return created.ShortLink, nil
	}

	if created.ID == "" {
		return "", errors.New("trello returned no card id")
	}

	return created.ID, nil
}

func (Trello) TaskURL(externalID string) string {
	return "https://trello.com/c/" + externalID
}
