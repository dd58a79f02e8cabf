package platforms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"chime/types"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const todoistAPIBase = "https://api.todoist.com/rest/v2"

type todoistConfig struct {
	// Optional target project; tasks land in the inbox without it
	ProjectID string `json:"project_id"`
}

type todoistTask struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	DueDatetime string `json:"due_datetime"`
	ProjectID   string `json:"project_id,omitempty"`
}

type Todoist struct{}

func (Todoist) Type() string {
	return types.PlatformTodoist
}

func (Todoist) CreateTask(ctx context.Context, recipient types.Recipient, task types.ResolvedTask) (string, error) {
	if recipient.Credentials == "" {
		return "", errors.New("missing todoist api token")
	}

	var cfg todoistConfig

	if err := decodeConfig(recipient.Config, &cfg); err != nil {
		return "", err
	}

	body, err := json.Marshal(todoistTask{
		Content:     task.Title,
		Description: task.Description,
		DueDatetime: task.DueTime.UTC().Format(time.RFC3339),
		ProjectID:   cfg.ProjectID,
	})

	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", todoistAPIBase+"/tasks", bytes.NewReader(body))

	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+recipient.Credentials)
	req.Header.Set("X-Request-Id", uuid.New().String())

	resp, err := httpClient.Do(req)

	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("todoist returned %d: %s", resp.StatusCode, msg)
	}

	var created struct {
		ID string `json:"id"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}

	if created.ID == "" {
		return "", errors.New("todoist returned no task id")
	}

	return created.ID, nil
}

func (Todoist) TaskURL(externalID string) string {
	return "https://app.todoist.com/app/task/" + externalID
}
