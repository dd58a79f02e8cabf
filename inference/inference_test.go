package inference

import (
	"testing"
)

func TestParseResponse(t *testing.T) {
	inferred, err := parseResponse(`{"title": "Buy milk", "description": "Corner shop", "due_time_utc": "2025-06-29T04:00:00Z"}`)

	if err != nil {
		t.Fatal(err)
	}
	if inferred.Title != "Buy milk" || inferred.Description != "Corner shop" {
		t.Errorf("got %q / %q", inferred.Title, inferred.Description)
	}
	if !inferred.HasDue || inferred.Due.Format("2006-01-02T15:04:05Z") != "2025-06-29T04:00:00Z" {
		t.Errorf("got due %s (has=%v)", inferred.Due, inferred.HasDue)
	}
}

func TestParseResponseFenced(t *testing.T) {
	inferred, err := parseResponse("```json\n{\"title\": \"Dentist\", \"description\": \"\", \"due_time_utc\": \"\"}\n```")

	if err != nil {
		t.Fatal(err)
	}
	if inferred.Title != "Dentist" {
		t.Errorf("got %q", inferred.Title)
	}
	if inferred.HasDue {
		t.Error("empty due_time_utc must not set HasDue")
	}
}

func TestParseResponseBadTimestampKeepsTitle(t *testing.T) {
	inferred, err := parseResponse(`{"title": "Dentist", "description": "", "due_time_utc": "next tuesday ish"}`)

	if err != nil {
		t.Fatal(err)
	}
	if inferred.HasDue {
		t.Error("unparseable timestamp must not set HasDue")
	}
	if inferred.Title != "Dentist" {
		t.Errorf("got %q", inferred.Title)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	if _, err := parseResponse("I think you should be reminded at 5pm!"); err == nil {
		t.Error("expected error for non-JSON response")
	}
}
