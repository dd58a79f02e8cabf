// Package store is the durable keyed store for reminders and recipients.
package store

import (
	"context"

	"chime/types"
)

// Reminders is keyed CRUD over reminder rows. Delete doubles as the atomic
// firing commit: it reports whether this caller removed the row, so two
// concurrent sweeps can never both fire the same reminder.
type Reminders interface {
	Create(ctx context.Context, r *types.Reminder) (int64, error)
	AttachExternalID(ctx context.Context, id int64, externalID string) error
	ListPending(ctx context.Context) ([]types.Reminder, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountPending(ctx context.Context) (int64, error)
}

// Recipients is keyed CRUD over configured delivery targets.
type Recipients interface {
	// ListEnabled returns the owner's enabled recipients with the
	// personal/default recipient first; the first entry is the primary
	ListEnabled(ctx context.Context, ownerID string) ([]types.Recipient, error)
	List(ctx context.Context, ownerID string) ([]types.Recipient, error)
	Create(ctx context.Context, r *types.Recipient) (int64, error)
	SetEnabled(ctx context.Context, ownerID string, id int64, enabled bool) error
	Delete(ctx context.Context, ownerID string, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}
