package types

import "time"

// ResolvedTask is the immutable output of time resolution. DueTime is always
// UTC at second precision and strictly in the future at resolution time.
type ResolvedTask struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueTime     time.Time `json:"due_time"`
	OriginRef   string    `json:"origin_ref,omitempty"`
}

// DispatchOutcome is the per-recipient result of one fan-out operation.
// It is never persisted.
type DispatchOutcome struct {
	RecipientID int64  `json:"recipient_id"`
	Platform    string `json:"platform"`
	ExternalID  string `json:"external_id,omitempty"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (o DispatchOutcome) OK() bool {
	return o.Error == ""
}
