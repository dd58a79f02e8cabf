// Package scheduler runs the reminder poll loop.
//
// One scheduler goroutine exists for the process lifetime. Every cycle it
// scans pending reminders and fires the due ones. A reminder fires at most
// once: delivery is attempted, then the row is deleted whatever the delivery
// outcome. There is no retry queue; worst-case delivery latency equals the
// poll interval.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"chime/store"
	"chime/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier delivers one fired reminder to its delivery target.
type Notifier interface {
	Notify(ctx context.Context, reminder types.Reminder) error
}

type Scheduler struct {
	Reminders store.Reminders
	Notifier  Notifier
	Interval  time.Duration
	Logger    *zap.SugaredLogger

	// Optional fire-lock against a second misconfigured process sharing
	// the database. Not a retry mechanism.
	Redis *redis.Client

	stop chan struct{}
	done chan struct{}
}

func New(reminders store.Reminders, notifier Notifier, interval time.Duration, logger *zap.SugaredLogger, rdb *redis.Client) *Scheduler {
	return &Scheduler{
		Reminders: reminders,
		Notifier:  notifier,
		Interval:  interval,
		Logger:    logger,
		Redis:     rdb,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the loop. Call once at boot.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop requests shutdown and blocks until the in-flight cycle finishes, so
// no record is ever left half-processed.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		s.Logger.Info("Running reminder sweep")
		s.sweep(ctx, time.Now().UTC())

		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
	}
}

// sweep is one full cycle over the pending set.
func (s *Scheduler) sweep(ctx context.Context, now time.Time) {
	reminders, err := s.Reminders.ListPending(ctx)

	if err != nil {
		s.Logger.Error("Error listing pending reminders: ", err)
		return
	}

	for _, reminder := range reminders {
		due, err := time.Parse(time.RFC3339, reminder.DueTime)

		if err != nil {
			// Unrecoverable: a corrupt row would otherwise be
			// re-parsed forever
			s.Logger.With(
				"reminder", reminder.ID,
				"dueTime", reminder.DueTime,
			).Error("Discarding reminder with unparseable due time: ", err)

			s.discard(ctx, reminder.ID)

			continue
		}

		if due.After(now) {
			continue
		}

		if !s.claim(ctx, reminder.ID) {
			continue
		}

		if err := s.Notifier.Notify(ctx, reminder); err != nil {
			// Fire-and-forget: the record is retired either way
			s.Logger.With(
				"reminder", reminder.ID,
				"channel", reminder.ChannelID,
			).Error("Reminder delivery failed: ", err)
		}

		s.discard(ctx, reminder.ID)
	}
}

func (s *Scheduler) discard(ctx context.Context, id int64) {
	if _, err := s.Reminders.Delete(ctx, id); err != nil {
		s.Logger.With("reminder", id).Error("Error deleting reminder: ", err)
	}
}

// claim takes the per-reminder fire lock. Redis being down must never stop
// reminders from firing, so errors claim successfully.
func (s *Scheduler) claim(ctx context.Context, id int64) bool {
	if s.Redis == nil {
		return true
	}

	ok, err := s.Redis.SetNX(ctx, fmt.Sprintf("reminder:fired:%d", id), 1, time.Hour).Result()

	if err != nil {
		s.Logger.Error("Fire lock unavailable, proceeding: ", err)
		return true
	}

	return ok
}
