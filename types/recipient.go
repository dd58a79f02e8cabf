package types

import "time"

// Recipient platform types. The set is closed: a recipient row with a
// platform outside the registry fails dispatch locally.
const (
	PlatformTodoist = "todoist"
	PlatformTrello  = "trello"
)

// Recipient is one configured external delivery target, exclusively owned by
// one user. Dispatch only ever reads these.
type Recipient struct {
	ID          int64          `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"owner_id"`
	Platform    string         `db:"platform" json:"platform" validate:"required,oneof=todoist trello"`
	Credentials string         `db:"credentials" json:"-" validate:"required,notblank"`
	Config      map[string]any `db:"config" json:"config"`
	Personal    bool           `db:"personal" json:"personal"`
	Enabled     bool           `db:"enabled" json:"enabled"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
