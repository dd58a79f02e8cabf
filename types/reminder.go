package types

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Reminder is the durable unit the scheduler loop operates on. Exactly one
// row exists per logical reminder no matter how many recipients the task was
// fanned out to.
//
// DueTime is stored as an RFC3339 string and parsed on every sweep; a row
// whose value no longer parses is discarded, never retried.
type Reminder struct {
	ID          int64       `db:"id" json:"id"`
	OwnerID     string      `db:"owner_id" json:"owner_id"`
	ChannelID   string      `db:"channel_id" json:"channel_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	DueTime     string      `db:"due_time" json:"due_time"`
	Platform    string      `db:"platform" json:"platform"`
	ExternalID  pgtype.Text `db:"external_id" json:"external_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// PushSubscription is one registered web push endpoint for a user.
type PushSubscription struct {
	NotifID  string `db:"notif_id" json:"notif_id"`
	OwnerID  string `db:"owner_id" json:"owner_id"`
	Endpoint string `db:"endpoint" json:"endpoint"`
	Auth     string `db:"auth" json:"-"`
	P256dh   string `db:"p256dh" json:"-"`
}
