package timeparse

import (
	"context"
	"errors"
	"strings"
	"time"

	"chime/types"

	"go.uber.org/zap"
)

// ErrUnresolvable is returned when no deterministic rule matched and the
// inference collaborator also failed to produce a due time.
var ErrUnresolvable = errors.New("no due time could be resolved from message")

// Inferred is the fallback collaborator's best effort. Its due time is
// untrusted for precision and only used when the pattern bank declined.
type Inferred struct {
	Title       string
	Description string
	Due         time.Time
	HasDue      bool
}

// Inferencer is the external natural-language inference collaborator.
type Inferencer interface {
	Infer(ctx context.Context, text string, ref time.Time, offsetHours int) (*Inferred, error)
}

// Resolver runs the full two-stage pipeline over an inbound message.
type Resolver struct {
	Inference Inferencer
	Logger    *zap.SugaredLogger
}

// Resolve turns free text into a ResolvedTask. The deterministic bank is
// evaluated against the trailing time phrase of the message; inference is
// consulted for title/description (and, only when the bank declined, for the
// due time). The final instant is validated to be strictly in the future.
func (r *Resolver) Resolve(ctx context.Context, text string, ref time.Time, offsetHours int) (*types.ResolvedTask, Resolution, error) {
	ref = ref.UTC().Truncate(time.Second)

	rest, phrase := Split(text)

	det, detOK := Deterministic(phrase, ref, offsetHours)

	var (
		infDue time.Time
		infOK  bool

		title       = fallbackTitle(rest)
		description string
	)

	if r.Inference != nil {
		inferred, err := r.Inference.Infer(ctx, text, ref, offsetHours)

		if err != nil {
			if !detOK {
				return nil, Resolution{}, ErrUnresolvable
			}

			// Deterministic time stands on its own, inference only
			// loses us the nicer title
			if r.Logger != nil {
				r.Logger.Error("Inference failed, using fallback title: ", err)
			}
		} else {
			if inferred.Title != "" {
				title = inferred.Title
			}

			description = inferred.Description
			infDue, infOK = inferred.Due, inferred.HasDue
		}
	}

	due, source := Merge(det, detOK, infDue, infOK)

	if source == SourceNone {
		return nil, Resolution{}, ErrUnresolvable
	}

	due, defaulted := Validate(due, ref, offsetHours)

	task := &types.ResolvedTask{
		Title:       title,
		Description: description,
		DueTime:     due.UTC().Truncate(time.Second),
	}

	return task, Resolution{Due: task.DueTime, Source: source, Defaulted: defaulted}, nil
}

// Split separates the trailing time phrase from the rest of the message by
// finding the longest suffix the deterministic bank accepts. When no suffix
// matches, the whole message is returned as the phrase so the resolver can
// still hand it to inference.
func Split(text string) (rest, phrase string) {
	words := strings.Fields(text)

	for i := 0; i < len(words); i++ {
		suffix := strings.Join(words[i:], " ")

		// Offset/reference don't affect whether a rule matches
		if _, ok := Deterministic(suffix, time.Unix(0, 0).UTC(), 0); ok {
			return strings.Join(words[:i], " "), suffix
		}
	}

	return text, text
}

var leadIns = []string{
	"remind me to ",
	"remind me about ",
	"remind me ",
	"reminder to ",
	"reminder: ",
	"reminder ",
}

func fallbackTitle(rest string) string {
	title := strings.TrimSpace(rest)
	lower := strings.ToLower(title)

	for _, lead := range leadIns {
		if strings.HasPrefix(lower, lead) {
			title = strings.TrimSpace(title[len(lead):])
			break
		}
	}

	if title == "" {
		return "Reminder"
	}

	return strings.ToUpper(title[:1]) + title[1:]
}
