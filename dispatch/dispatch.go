// Package dispatch replicates one resolved task to every configured
// recipient.
//
// Fan-out is a best-effort broadcast, not a transaction: the canonical
// reminder row is persisted before any external call, and one recipient's
// failure never aborts the others.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chime/platforms"
	"chime/store"
	"chime/types"

	mapset "github.com/deckarep/golang-set/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// ErrNoRecipients is returned when the caller has no delivery targets
// configured. No partial state is created in that case.
var ErrNoRecipients = errors.New("no recipients configured")

type Dispatcher struct {
	Reminders store.Reminders

	// Per-recipient external call bound
	Timeout time.Duration

	Logger *zap.SugaredLogger
}

// Result is the consolidated outcome of one fan-out operation.
type Result struct {
	// At least one recipient received the task
	Success bool

	// The persisted canonical reminder, nil only when ErrNoRecipients
	// or the initial insert failed
	Reminder *types.Reminder

	Outcomes []types.DispatchOutcome

	// User-facing summary listing succeeded and failed recipients
	Message string
}

// CreateAndDispatch persists the canonical reminder tagged with the primary
// recipient's platform, then replicates the task to every recipient
// concurrently. The first recipient in the list is the primary.
func (d *Dispatcher) CreateAndDispatch(ctx context.Context, ownerID, channelID string, task types.ResolvedTask, recipients []types.Recipient) (*Result, error) {
	recipients = dedupe(recipients)

	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	primary := recipients[0]

	reminder := &types.Reminder{
		OwnerID:     ownerID,
		ChannelID:   channelID,
		Title:       task.Title,
		Description: task.Description,
		DueTime:     task.DueTime.UTC().Format(time.RFC3339),
		Platform:    primary.Platform,
	}

	// The local row goes in first so the reminder still fires even if
	// every external platform call fails
	if _, err := d.Reminders.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to persist reminder: %w", err)
	}

	outcomes := make([]types.DispatchOutcome, len(recipients))

	var wg sync.WaitGroup

	for i, recipient := range recipients {
		wg.Add(1)

		go func(i int, recipient types.Recipient) {
			defer wg.Done()
			outcomes[i] = d.attempt(ctx, recipient, task)
		}(i, recipient)
	}

	wg.Wait()

	if outcomes[0].OK() {
		err := d.Reminders.AttachExternalID(ctx, reminder.ID, outcomes[0].ExternalID)

		if err != nil {
			d.Logger.Error("Failed to attach external id to reminder: ", err)
		} else {
			reminder.ExternalID.String = outcomes[0].ExternalID
			reminder.ExternalID.Valid = true
		}
	}

	success, message := Summarize(outcomes)

	return &Result{
		Success:  success,
		Reminder: reminder,
		Outcomes: outcomes,
		Message:  message,
	}, nil
}

func (d *Dispatcher) attempt(ctx context.Context, recipient types.Recipient, task types.ResolvedTask) types.DispatchOutcome {
	outcome := types.DispatchOutcome{
		RecipientID: recipient.ID,
		Platform:    recipient.Platform,
	}

	platform, ok := platforms.Get(recipient.Platform)

	if !ok {
		outcome.Error = "unsupported platform: " + recipient.Platform
		return outcome
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	externalID, err := platform.CreateTask(ctx, recipient, task)

	if err != nil {
		d.Logger.With(
			"recipient", recipient.ID,
			"platform", recipient.Platform,
		).Error("External task creation failed: ", err)

		outcome.Error = err.Error()

		return outcome
	}

	outcome.ExternalID = externalID
	outcome.URL = platform.TaskURL(externalID)

	return outcome
}

// Summarize combines per-recipient outcomes into the consolidated result.
// Pure: the message enumerates recipients in input order regardless of which
// goroutine finished first.
func Summarize(outcomes []types.DispatchOutcome) (bool, string) {
	results := orderedmap.New[string, types.DispatchOutcome]()

	succeeded := 0

	for _, outcome := range outcomes {
		results.Set(fmt.Sprintf("%s #%d", outcome.Platform, outcome.RecipientID), outcome)

		if outcome.OK() {
			succeeded++
		}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Task sent to %d of %d recipients.", succeeded, len(outcomes))

	for pair := results.Oldest(); pair != nil; pair = pair.Next() {
		outcome := pair.Value

		if outcome.OK() {
			if outcome.URL != "" {
				fmt.Fprintf(&b, "\n• %s: %s", pair.Key, outcome.URL)
			} else {
				fmt.Fprintf(&b, "\n• %s: created", pair.Key)
			}
		} else {
			fmt.Fprintf(&b, "\n• %s: failed (%s)", pair.Key, outcome.Error)
		}
	}

	return succeeded > 0, b.String()
}

// dedupe drops repeated recipient rows while keeping list order.
func dedupe(recipients []types.Recipient) []types.Recipient {
	seen := mapset.NewSet[int64]()

	out := recipients[:0:0]

	for _, r := range recipients {
		if seen.Add(r.ID) {
			out = append(out, r)
		}
	}

	return out
}
