// Package timezone resolves free-text locations ("Lisbon", "portugal",
// "Asia/Tokyo") to a whole-hour UTC offset for the current instant.
package timezone

import (
	"strings"
	"time"

	"chime/state"
)

// Physically plausible UTC offsets. Anything outside is treated as a
// calculation failure and degraded to UTC so that a bad offset can never
// corrupt downstream date arithmetic.
const (
	MinOffsetHours = -12
	MaxOffsetHours = 14
)

const cacheTTL = 24 * time.Hour

// Curated substring table of common city/country names. Checked before any
// heuristic guessing, longest entries first where it matters.
var zoneTable = map[string]string{
	"lisbon":        "Europe/Lisbon",
	"portugal":      "Europe/Lisbon",
	"london":        "Europe/London",
	"england":       "Europe/London",
	"united kingdom": "Europe/London",
	"dublin":        "Europe/Dublin",
	"ireland":       "Europe/Dublin",
	"paris":         "Europe/Paris",
	"france":        "Europe/Paris",
	"berlin":        "Europe/Berlin",
	"germany":       "Europe/Berlin",
	"madrid":        "Europe/Madrid",
	"spain":         "Europe/Madrid",
	"rome":          "Europe/Rome",
	"italy":         "Europe/Rome",
	"amsterdam":     "Europe/Amsterdam",
	"netherlands":   "Europe/Amsterdam",
	"zurich":        "Europe/Zurich",
	"switzerland":   "Europe/Zurich",
	"stockholm":     "Europe/Stockholm",
	"sweden":        "Europe/Stockholm",
	"oslo":          "Europe/Oslo",
	"norway":        "Europe/Oslo",
	"helsinki":      "Europe/Helsinki",
	"finland":       "Europe/Helsinki",
	"warsaw":        "Europe/Warsaw",
	"poland":        "Europe/Warsaw",
	"athens":        "Europe/Athens",
	"greece":        "Europe/Athens",
	"moscow":        "Europe/Moscow",
	"istanbul":      "Europe/Istanbul",
	"turkey":        "Europe/Istanbul",
	"kyiv":          "Europe/Kyiv",
	"kiev":          "Europe/Kyiv",
	"ukraine":       "Europe/Kyiv",
	"new york":      "America/New_York",
	"nyc":           "America/New_York",
	"boston":        "America/New_York",
	"toronto":       "America/Toronto",
	"chicago":       "America/Chicago",
	"texas":         "America/Chicago",
	"denver":        "America/Denver",
	"los angeles":   "America/Los_Angeles",
	"san francisco": "America/Los_Angeles",
	"seattle":       "America/Los_Angeles",
	"california":    "America/Los_Angeles",
	"vancouver":     "America/Vancouver",
	"mexico city":   "America/Mexico_City",
	"mexico":        "America/Mexico_City",
	"sao paulo":     "America/Sao_Paulo",
	"brazil":        "America/Sao_Paulo",
	"buenos aires":  "America/Argentina/Buenos_Aires",
	"argentina":     "America/Argentina/Buenos_Aires",
	"santiago":      "America/Santiago",
	"chile":         "America/Santiago",
	"bogota":        "America/Bogota",
	"colombia":      "America/Bogota",
	"tokyo":         "Asia/Tokyo",
	"japan":         "Asia/Tokyo",
	"seoul":         "Asia/Seoul",
	"korea":         "Asia/Seoul",
	"beijing":       "Asia/Shanghai",
	"shanghai":      "Asia/Shanghai",
	"china":         "Asia/Shanghai",
	"hong kong":     "Asia/Hong_Kong",
	"taipei":        "Asia/Taipei",
	"taiwan":        "Asia/Taipei",
	"singapore":     "Asia/Singapore",
	"bangkok":       "Asia/Bangkok",
	"thailand":      "Asia/Bangkok",
	"jakarta":       "Asia/Jakarta",
	"indonesia":     "Asia/Jakarta",
	"manila":        "Asia/Manila",
	"philippines":   "Asia/Manila",
	"mumbai":        "Asia/Kolkata",
	"delhi":         "Asia/Kolkata",
	"india":         "Asia/Kolkata",
	"karachi":       "Asia/Karachi",
	"pakistan":      "Asia/Karachi",
	"dubai":         "Asia/Dubai",
	"uae":           "Asia/Dubai",
	"riyadh":        "Asia/Riyadh",
	"saudi":         "Asia/Riyadh",
	"tel aviv":      "Asia/Jerusalem",
	"israel":        "Asia/Jerusalem",
	"cairo":         "Africa/Cairo",
	"egypt":         "Africa/Cairo",
	"lagos":         "Africa/Lagos",
	"nigeria":       "Africa/Lagos",
	"nairobi":       "Africa/Nairobi",
	"kenya":         "Africa/Nairobi",
	"johannesburg":  "Africa/Johannesburg",
	"south africa":  "Africa/Johannesburg",
	"sydney":        "Australia/Sydney",
	"melbourne":     "Australia/Melbourne",
	"brisbane":      "Australia/Brisbane",
	"perth":         "Australia/Perth",
	"australia":     "Australia/Sydney",
	"auckland":      "Pacific/Auckland",
	"new zealand":   "Pacific/Auckland",
	"honolulu":      "Pacific/Honolulu",
	"hawaii":        "Pacific/Honolulu",
	"utc":           "UTC",
	"gmt":           "UTC",
}

var continents = []string{
	"Europe",
	"America",
	"Asia",
	"Africa",
	"Australia",
	"Pacific",
	"Indian",
}

// Seam for offset computation, stubbed in tests to simulate tz database
// misbehaviour.
var zoneOffsetSeconds = func(now time.Time, loc *time.Location) int {
	_, secs := now.In(loc).Zone()
	return secs
}

// OffsetHours resolves a location string to its current UTC offset in whole
// hours. It never fails: unknown, empty or misbehaving input degrades to 0.
func OffsetHours(location string) int {
	return offsetHoursAt(location, time.Now())
}

func offsetHoursAt(location string, now time.Time) int {
	zone := resolveZone(location)

	if zone == "" {
		return 0
	}

	loc, err := time.LoadLocation(zone)

	if err != nil {
		return 0
	}

	hours := zoneOffsetSeconds(now, loc) / 3600

	if hours < MinOffsetHours || hours > MaxOffsetHours {
		return 0
	}

	return hours
}

func resolveZone(location string) string {
	location = strings.ToLower(strings.TrimSpace(location))

	if location == "" {
		return ""
	}

	if cached := cacheGet(location); cached != "" {
		return cached
	}

	zone := lookupZone(location)

	if zone != "" {
		cacheSet(location, zone)
	}

	return zone
}

func lookupZone(location string) string {
	// Exact tz identifiers pass straight through
	if strings.Contains(location, "/") {
		if zone := validZone(canonicalZone(location)); zone != "" {
			return zone
		}
	}

	for substr, zone := range zoneTable {
		if strings.Contains(location, substr) {
			return zone
		}
	}

	// Heuristic: try Continent/Titlecased_Name for each continent
	name := titleCase(location)

	for _, continent := range continents {
		if zone := validZone(continent + "/" + name); zone != "" {
			return zone
		}
	}

	return ""
}

func validZone(zone string) string {
	if _, err := time.LoadLocation(zone); err != nil {
		return ""
	}

	return zone
}

func canonicalZone(location string) string {
	parts := strings.Split(location, "/")

	for i := range parts {
		parts[i] = titleCase(parts[i])
	}

	return strings.Join(parts, "/")
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))

	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}

	return strings.Join(words, "_")
}

func cacheGet(location string) string {
	if state.Redis == nil {
		return ""
	}

	zone, err := state.Redis.Get(state.Context, "tzcache:"+location).Result()

	if err != nil {
		return ""
	}

	return zone
}

func cacheSet(location, zone string) {
	if state.Redis == nil {
		return
	}

	err := state.Redis.Set(state.Context, "tzcache:"+location, zone, cacheTTL).Err()

	if err != nil && state.Logger != nil {
		state.Logger.Error("Failed to cache timezone lookup: ", err)
	}
}
