// Package notifications delivers fired reminders to their delivery targets.
package notifications

import (
	"context"
	"strings"

	"chime/platforms"
	"chime/state"
	"chime/types"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is the web push payload.
type Message struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Icon    string `json:"icon"`
}

// BuildReminderText renders the chat notification for a fired reminder.
func BuildReminderText(reminder types.Reminder) string {
	var b strings.Builder

	b.WriteString("⏰ **Reminder:** " + reminder.Title)

	if reminder.Description != "" {
		b.WriteString("\n" + reminder.Description)
	}

	if reminder.ExternalID.Valid && reminder.ExternalID.String != "" {
		if platform, ok := platforms.Get(reminder.Platform); ok {
			if url := platform.TaskURL(reminder.ExternalID.String); url != "" {
				b.WriteString("\n" + url)
			}
		}
	}

	return b.String()
}

// DiscordNotifier delivers reminders to the originating Discord channel and
// fans the same payload out to the owner's web push subscriptions.
type DiscordNotifier struct{}

func (DiscordNotifier) Notify(ctx context.Context, reminder types.Reminder) error {
	text := BuildReminderText(reminder)

	_, err := state.Discord.ChannelMessageSend(reminder.ChannelID, text)

	// Push delivery is best-effort on top of the chat message; its
	// failures never fail the notification
	pushErr := PushToOwner(ctx, reminder.OwnerID, Message{
		Title:   "Reminder: " + reminder.Title,
		Message: reminder.Description,
	})

	if pushErr != nil {
		state.Logger.With("owner", reminder.OwnerID).Error("Web push fan-out failed: ", pushErr)
	}

	return err
}
