// Package timeparse turns natural-language time expressions into absolute
// UTC instants.
//
// Resolution is a two-stage pipeline: an ordered deterministic pattern bank
// is tried first, then a language-model fallback. A deterministic match
// always wins the due time, because free-running inference is unreliable at
// exact minute arithmetic near day boundaries while the pattern bank is
// exact.
package timeparse

import (
	"regexp"
	"strings"
	"time"
)

// Source tags where a resolved due time came from.
type Source int

const (
	SourceNone Source = iota
	SourceDeterministic
	SourceInferred
)

func (s Source) String() string {
	switch s {
	case SourceDeterministic:
		return "deterministic"
	case SourceInferred:
		return "inferred"
	default:
		return "none"
	}
}

// Resolution carries the due time together with how it was obtained and
// whether validation had to substitute the safe default.
type Resolution struct {
	Due       time.Time
	Source    Source
	Defaulted bool
}

var (
	todayRe    = regexp.MustCompile(`^today\s+(?:at\s+)?(.+)$`)
	tomorrowRe = regexp.MustCompile(`^tomorrow\s+(?:at\s+)?(.+)$`)
	inNRe      = regexp.MustCompile(`^in\s+(\d+)\s+(minutes?|mins?|hours?|hrs?|days?|weeks?)$`)
	inARe      = regexp.MustCompile(`^in\s+an?\s+(minute|hour|day|week)$`)
	fromNowRe  = regexp.MustCompile(`^(\d+)\s*([mhdw])\s+from\s+now$`)
	clockRe    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	monthDayRe = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?$`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var unitDurations = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// Deterministic evaluates the pattern bank against phrase. The matchers are
// tried in a fixed order and the first match wins; each requires a distinct
// literal anchor word so no phrase can match two rules.
//
// A returned instant is always UTC at second precision. ok is false when no
// rule matched.
func Deterministic(phrase string, ref time.Time, offsetHours int) (due time.Time, ok bool) {
	ref = ref.UTC().Truncate(time.Second)
	phrase = strings.ToLower(strings.TrimSpace(phrase))

	type matcher func(string, time.Time, int) (time.Time, bool)

	for _, m := range []matcher{matchToday, matchTomorrow, matchRelative, matchImmediate, matchMonthDay} {
		if due, ok := m(phrase, ref, offsetHours); ok {
			return due, true
		}
	}

	return time.Time{}, false
}

// Merge implements the precedence rule: a deterministic time always
// overrides an inferred one, even though inference may still supply the
// title and description.
func Merge(det time.Time, detOK bool, inferred time.Time, inferredOK bool) (time.Time, Source) {
	switch {
	case detOK:
		return det, SourceDeterministic
	case inferredOK:
		return inferred, SourceInferred
	default:
		return time.Time{}, SourceNone
	}
}

// Validate rejects any candidate that is not strictly after ref and
// substitutes tomorrow 09:00 local. A past time is never returned silently:
// the second return reports the substitution.
func Validate(due, ref time.Time, offsetHours int) (time.Time, bool) {
	ref = ref.UTC().Truncate(time.Second)

	if due.After(ref) {
		return due, false
	}

	local := ref.Add(time.Duration(offsetHours) * time.Hour)
	y, m, d := local.Date()

	def := time.Date(y, m, d, 9, 0, 0, 0, time.UTC).
		AddDate(0, 0, 1).
		Add(-time.Duration(offsetHours) * time.Hour)

	return def, true
}

func matchToday(phrase string, ref time.Time, offsetHours int) (time.Time, bool) {
	m := todayRe.FindStringSubmatch(phrase)

	if m == nil {
		return time.Time{}, false
	}

	hour, minute, ok := parseClock(m[1])

	if !ok {
		return time.Time{}, false
	}

	cand := localCandidate(ref, offsetHours, 0, hour, minute)

	// Same-minute counts as elapsed: strict <= rolls forward one day
	if !cand.After(ref) {
		cand = cand.Add(24 * time.Hour)
	}

	return cand, true
}

func matchTomorrow(phrase string, ref time.Time, offsetHours int) (time.Time, bool) {
	m := tomorrowRe.FindStringSubmatch(phrase)

	if m == nil {
		return time.Time{}, false
	}

	hour, minute, ok := parseClock(m[1])

	if !ok {
		return time.Time{}, false
	}

	return localCandidate(ref, offsetHours, 1, hour, minute), true
}

func matchRelative(phrase string, ref time.Time, offsetHours int) (time.Time, bool) {
	if m := inNRe.FindStringSubmatch(phrase); m != nil {
		n := atoiSafe(m[1])

		if n <= 0 {
			return time.Time{}, false
		}

		return ref.Add(time.Duration(n) * unitDurations[m[2][0]]), true
	}

	if m := inARe.FindStringSubmatch(phrase); m != nil {
		return ref.Add(unitDurations[m[1][0]]), true
	}

	if m := fromNowRe.FindStringSubmatch(phrase); m != nil {
		n := atoiSafe(m[1])

		if n <= 0 {
			return time.Time{}, false
		}

		return ref.Add(time.Duration(n) * unitDurations[m[2][0]]), true
	}

	return time.Time{}, false
}

func matchImmediate(phrase string, ref time.Time, _ int) (time.Time, bool) {
	switch phrase {
	case "asap", "now", "immediately":
		return ref.Add(time.Hour), true
	}

	return time.Time{}, false
}

func matchMonthDay(phrase string, ref time.Time, offsetHours int) (time.Time, bool) {
	m := monthDayRe.FindStringSubmatch(phrase)

	if m == nil {
		return time.Time{}, false
	}

	month, ok := months[m[1]]

	if !ok {
		return time.Time{}, false
	}

	day := atoiSafe(m[2])
	offset := time.Duration(offsetHours) * time.Hour
	year := ref.Add(offset).Year()

	cand, ok := monthDayCandidate(year, month, day, offset)

	if !ok {
		return time.Time{}, false
	}

	if !cand.After(ref) {
		// Already passed this calendar year, anchor to next year instead
		cand, ok = monthDayCandidate(year+1, month, day, offset)

		if !ok {
			return time.Time{}, false
		}
	}

	return cand, true
}

// monthDayCandidate anchors a month/day to 09:00 local in the given year.
// Invalid calendar dates (Feb 30 and friends) are reported as non-matches
// rather than letting time.Date normalize them into March.
func monthDayCandidate(year int, month time.Month, day int, offset time.Duration) (time.Time, bool) {
	cand := time.Date(year, month, day, 9, 0, 0, 0, time.UTC)

	if cand.Month() != month || cand.Day() != day {
		return time.Time{}, false
	}

	return cand.Add(-offset), true
}

// localCandidate builds the UTC instant for hour:minute on the reference's
// local date plus dayOffset days. hour may be 24 (next midnight), which
// naturally rolls into the following day.
func localCandidate(ref time.Time, offsetHours, dayOffset, hour, minute int) time.Time {
	offset := time.Duration(offsetHours) * time.Hour
	y, m, d := ref.Add(offset).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, dayOffset).
		Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).
		Add(-offset)
}

// parseClock parses a clock time: "5am", "5 pm", "17:30", "5:30pm", "noon",
// "midnight". Midnight is reported as hour 24 so that a today-anchored
// midnight always means the next midnight, never the one just passed.
func parseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)

	switch s {
	case "noon":
		return 12, 0, true
	case "midnight":
		return 24, 0, true
	}

	m := clockRe.FindStringSubmatch(s)

	if m == nil {
		return 0, 0, false
	}

	hour = atoiSafe(m[1])

	if m[2] != "" {
		minute = atoiSafe(m[2])
	}

	if minute > 59 {
		return 0, 0, false
	}

	switch m[3] {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}

		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}

		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}

	return hour, minute, true
}

func atoiSafe(s string) int {
	n := 0

	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}

		n = n*10 + int(c-'0')

		if n > 1<<30 {
			return -1
		}
	}

	return n
}
