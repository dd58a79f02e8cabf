package timeparse

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeInference struct {
	inferred *Inferred
	err      error
	calls    int
}

func (f *fakeInference) Infer(_ context.Context, text string, ref time.Time, offsetHours int) (*Inferred, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.inferred, nil
}

func TestResolveDeterministicOverridesInference(t *testing.T) {
	ref := utc("2025-06-29T00:22:00Z")

	inf := &fakeInference{inferred: &Inferred{
		Title:       "Buy milk",
		Description: "From the corner shop",
		Due:         utc("2025-06-29T17:00:00Z"), // deliberately wrong
		HasDue:      true,
	}}

	r := &Resolver{Inference: inf}

	task, res, err := r.Resolve(context.Background(), "remind me to buy milk today 5am", ref, 1)

	if err != nil {
		t.Fatal(err)
	}
	if !task.DueTime.Equal(utc("2025-06-29T04:00:00Z")) {
		t.Errorf("inference must never change a deterministic due time, got %s", task.DueTime)
	}
	if res.Source != SourceDeterministic {
		t.Errorf("expected deterministic source, got %s", res.Source)
	}
	if task.Title != "Buy milk" || task.Description != "From the corner shop" {
		t.Errorf("title/description should come from inference, got %q / %q", task.Title, task.Description)
	}
	if inf.calls != 1 {
		t.Errorf("expected one inference call, got %d", inf.calls)
	}
}

func TestResolveInferredWhenBankDeclines(t *testing.T) {
	ref := utc("2025-06-29T00:22:00Z")

	inf := &fakeInference{inferred: &Inferred{
		Title:  "Dentist",
		Due:    utc("2025-07-02T14:00:00Z"),
		HasDue: true,
	}}

	r := &Resolver{Inference: inf}

	task, res, err := r.Resolve(context.Background(), "remind me about the dentist sometime after the holidays", ref, 1)

	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceInferred {
		t.Errorf("expected inferred source, got %s", res.Source)
	}
	if !task.DueTime.Equal(utc("2025-07-02T14:00:00Z")) {
		t.Errorf("got %s", task.DueTime)
	}
}

func TestResolveDeterministicSurvivesInferenceFailure(t *testing.T) {
	ref := utc("2025-06-29T00:22:00Z")

	inf := &fakeInference{err: errors.New("model timeout")}

	r := &Resolver{Inference: inf}

	task, res, err := r.Resolve(context.Background(), "remind me to buy milk today 5am", ref, 1)

	if err != nil {
		t.Fatal(err)
	}
	if !task.DueTime.Equal(utc("2025-06-29T04:00:00Z")) {
		t.Errorf("got %s", task.DueTime)
	}
	if res.Source != SourceDeterministic {
		t.Errorf("got %s", res.Source)
	}
	if task.Title != "Buy milk" {
		t.Errorf("expected fallback title, got %q", task.Title)
	}
}

func TestResolveUnresolvable(t *testing.T) {
	ref := utc("2025-06-29T00:22:00Z")

	inf := &fakeInference{err: errors.New("model timeout")}

	r := &Resolver{Inference: inf}

	_, _, err := r.Resolve(context.Background(), "remind me about that thing", ref, 1)

	if !errors.Is(err, ErrUnresolvable) {
		t.Errorf("expected ErrUnresolvable, got %v", err)
	}

	// No deterministic match and inference has no due time either
	inf = &fakeInference{inferred: &Inferred{Title: "That thing"}}
	r = &Resolver{Inference: inf}

	_, _, err = r.Resolve(context.Background(), "remind me about that thing", ref, 1)

	if !errors.Is(err, ErrUnresolvable) {
		t.Errorf("expected ErrUnresolvable, got %v", err)
	}
}

func TestResolveNeverReturnsPast(t *testing.T) {
	ref := utc("2025-06-29T10:22:00Z")

	// Inference returns a past instant; validation must substitute the
	// default rather than surfacing it
	inf := &fakeInference{inferred: &Inferred{
		Title:  "Standup",
		Due:    utc("2025-06-29T09:00:00Z"),
		HasDue: true,
	}}

	r := &Resolver{Inference: inf}

	task, res, err := r.Resolve(context.Background(), "remind me about standup earlier today", ref, 1)

	if err != nil {
		t.Fatal(err)
	}
	if !task.DueTime.After(ref) {
		t.Errorf("due %s not after reference %s", task.DueTime, ref)
	}
	if !res.Defaulted {
		t.Error("expected the substitution to be flagged")
	}
	if !task.DueTime.Equal(utc("2025-06-30T08:00:00Z")) {
		t.Errorf("expected tomorrow 09:00 local, got %s", task.DueTime)
	}
}
