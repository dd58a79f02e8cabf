package store

import (
	"context"
	"strings"

	"chime/types"
	"chime/utils"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	reminderCols  = strings.Join(utils.GetCols(types.Reminder{}), ",")
	recipientCols = strings.Join(utils.GetCols(types.Recipient{}), ",")
)

type PgReminders struct {
	Pool *pgxpool.Pool
}

func NewReminders(pool *pgxpool.Pool) *PgReminders {
	return &PgReminders{Pool: pool}
}

func (s *PgReminders) Create(ctx context.Context, r *types.Reminder) (int64, error) {
	var id int64

	err := s.Pool.QueryRow(
		ctx,
		"INSERT INTO reminders (owner_id, channel_id, title, description, due_time, platform) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		r.OwnerID, r.ChannelID, r.Title, r.Description, r.DueTime, r.Platform,
	).Scan(&id)

	if err != nil {
		return 0, err
	}

	r.ID = id

	return id, nil
}

func (s *PgReminders) AttachExternalID(ctx context.Context, id int64, externalID string) error {
	_, err := s.Pool.Exec(ctx, "UPDATE reminders SET external_id = $1 WHERE id = $2", externalID, id)
	return err
}

func (s *PgReminders) ListPending(ctx context.Context) ([]types.Reminder, error) {
	rows, err := s.Pool.Query(ctx, "SELECT "+reminderCols+" FROM reminders ORDER BY id ASC")

	if err != nil {
		return nil, err
	}

	var reminders []types.Reminder

	err = pgxscan.ScanAll(&reminders, rows)

	if err != nil {
		return nil, err
	}

	return reminders, nil
}

func (s *PgReminders) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, "DELETE FROM reminders WHERE id = $1", id)

	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (s *PgReminders) CountPending(ctx context.Context) (int64, error) {
	var count int64

	err := s.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM reminders").Scan(&count)

	return count, err
}

type PgRecipients struct {
	Pool *pgxpool.Pool
}

func NewRecipients(pool *pgxpool.Pool) *PgRecipients {
	return &PgRecipients{Pool: pool}
}

func (s *PgRecipients) ListEnabled(ctx context.Context, ownerID string) ([]types.Recipient, error) {
	rows, err := s.Pool.Query(
		ctx,
		"SELECT "+recipientCols+" FROM recipients WHERE owner_id = $1 AND enabled = true ORDER BY personal DESC, id ASC",
		ownerID,
	)

	if err != nil {
		return nil, err
	}

	var recipients []types.Recipient

	err = pgxscan.ScanAll(&recipients, rows)

	if err != nil {
		return nil, err
	}

	return recipients, nil
}

func (s *PgRecipients) List(ctx context.Context, ownerID string) ([]types.Recipient, error) {
	rows, err := s.Pool.Query(
		ctx,
		"SELECT "+recipientCols+" FROM recipients WHERE owner_id = $1 ORDER BY personal DESC, id ASC",
		ownerID,
	)

	if err != nil {
		return nil, err
	}

	var recipients []types.Recipient

	err = pgxscan.ScanAll(&recipients, rows)

	if err != nil {
		return nil, err
	}

	return recipients, nil
}

func (s *PgRecipients) Create(ctx context.Context, r *types.Recipient) (int64, error) {
	var id int64

	err := s.Pool.QueryRow(
		ctx,
		"INSERT INTO recipients (owner_id, platform, credentials, config, personal, enabled) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		r.OwnerID, r.Platform, r.Credentials, r.Config, r.Personal, r.Enabled,
	).Scan(&id)

	if err != nil {
		return 0, err
	}

	r.ID = id

	return id, nil
}

func (s *PgRecipients) SetEnabled(ctx context.Context, ownerID string, id int64, enabled bool) error {
	_, err := s.Pool.Exec(ctx, "UPDATE recipients SET enabled = $1 WHERE owner_id = $2 AND id = $3", enabled, ownerID, id)
	return err
}

func (s *PgRecipients) Delete(ctx context.Context, ownerID string, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, "DELETE FROM recipients WHERE owner_id = $1 AND id = $2", ownerID, id)

	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (s *PgRecipients) Count(ctx context.Context) (int64, error) {
	var count int64

	err := s.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM recipients").Scan(&count)

	return count, err
}
