// Package tz converts between absolute instants and civil calendar fields
// in a named timezone. Conversion is done by fixed-point iteration against
// a formatting primitive rather than by consulting tz rule tables directly,
// so the primitive can be swapped out (see CivilFormatter).
package tz

import (
	"fmt"
	"sync"
	"time"
)

// CivilParts holds the calendar fields of an instant as perceived in a
// specific timezone. Month is 1-12.
type CivilParts struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// CivilFormatter renders an instant into civil fields for a named zone.
// Implementations return an error for zones they cannot resolve; callers
// fall back to UTC.
type CivilFormatter interface {
	Parts(t time.Time, zone string) (CivilParts, error)
	Weekday(t time.Time, zone string) (time.Weekday, error)
}

// locationFormatter backs CivilFormatter with the Go tz database via
// time.LoadLocation, caching lookups.
type locationFormatter struct {
	mu    sync.Mutex
	cache map[string]*time.Location
}

// NewFormatter returns the default tz-database-backed formatter.
func NewFormatter() CivilFormatter {
	return &locationFormatter{cache: make(map[string]*time.Location)}
}

func (f *locationFormatter) location(zone string) (*time.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if loc, ok := f.cache[zone]; ok {
		if loc == nil {
			return nil, fmt.Errorf("unknown timezone %q", zone)
		}
		return loc, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		// Cache the failure too; unknown zones are asked about repeatedly
		f.cache[zone] = nil
		return nil, fmt.Errorf("unknown timezone %q: %w", zone, err)
	}
	f.cache[zone] = loc
	return loc, nil
}

func (f *locationFormatter) Parts(t time.Time, zone string) (CivilParts, error) {
	loc, err := f.location(zone)
	if err != nil {
		return CivilParts{}, err
	}
	local := t.In(loc)
	return CivilParts{
		Year:   local.Year(),
		Month:  int(local.Month()),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
	}, nil
}

func (f *locationFormatter) Weekday(t time.Time, zone string) (time.Weekday, error) {
	loc, err := f.location(zone)
	if err != nil {
		return time.Sunday, err
	}
	return t.In(loc).Weekday(), nil
}

const day = 24 * time.Hour

// Converter resolves instants to civil fields and back for arbitrary
// named zones, degrading to UTC when a zone is unrecognized.
type Converter struct {
	formatter CivilFormatter
}

func NewConverter(formatter CivilFormatter) *Converter {
	return &Converter{formatter: formatter}
}

// ZonedParts never fails: if the formatter rejects the zone, the instant's
// UTC fields are returned instead.
func (c *Converter) ZonedParts(t time.Time, zone string) CivilParts {
	parts, err := c.formatter.Parts(t, zone)
	if err != nil {
		utc := t.UTC()
		return CivilParts{
			Year:   utc.Year(),
			Month:  int(utc.Month()),
			Day:    utc.Day(),
			Hour:   utc.Hour(),
			Minute: utc.Minute(),
		}
	}
	return parts
}

// ZonedWeekday returns the weekday index (Sunday=0) of the instant in the
// given zone, falling back to the UTC weekday.
func (c *Converter) ZonedWeekday(t time.Time, zone string) int {
	wd, err := c.formatter.Weekday(t, zone)
	if err != nil {
		return int(t.UTC().Weekday())
	}
	return int(wd)
}

// CivilNoon finds an instant whose civil date in zone is the requested
// date, anchored at a synthetic noon to stay clear of DST transitions.
// Starting from UTC noon, the rendered civil date is compared to the
// target and the candidate shifted by whole days; a zone offset is under
// 24h, so this converges within three iterations.
func (c *Converter) CivilNoon(year, month, dayOfMonth int, zone string) time.Time {
	t := time.Date(year, time.Month(month), dayOfMonth, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		parts := c.ZonedParts(t, zone)
		if parts.Year == year && parts.Month == month && parts.Day == dayOfMonth {
			break
		}
		target := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
		actual := time.Date(parts.Year, time.Month(parts.Month), parts.Day, 0, 0, 0, 0, time.UTC)
		diffDays := int(target.Sub(actual) / day)
		if diffDays == 0 {
			break
		}
		t = t.Add(time.Duration(diffDays) * day)
	}
	return t
}

// CivilInstant resolves a wall-clock time in zone to an absolute instant
// using the same fixed-point scheme at minute granularity: the candidate
// is shifted by the minute-level delta between the desired and rendered
// wall times until the delta is zero. Re-resolving an already-correct
// instant is a no-op.
func (c *Converter) CivilInstant(year, month, dayOfMonth, hour, minute int, zone string) time.Time {
	t := time.Date(year, time.Month(month), dayOfMonth, hour, minute, 0, 0, time.UTC)
	desired := t
	for i := 0; i < 3; i++ {
		parts := c.ZonedParts(t, zone)
		actual := time.Date(parts.Year, time.Month(parts.Month), parts.Day,
			parts.Hour, parts.Minute, 0, 0, time.UTC)
		delta := desired.Sub(actual)
		if delta == 0 {
			break
		}
		t = t.Add(delta)
	}
	return t
}

// DateKey returns the YYYY-MM-DD bucketing key of an instant in zone.
func (c *Converter) DateKey(t time.Time, zone string) string {
	parts := c.ZonedParts(t, zone)
	return fmt.Sprintf("%04d-%02d-%02d", parts.Year, parts.Month, parts.Day)
}

// CivilDateKey formats an already-civil date the same way DateKey does.
func CivilDateKey(year, month, dayOfMonth int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, dayOfMonth)
}

var weekdayShort = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// WeekdayShort returns the three-letter weekday label for an instant in zone.
func (c *Converter) WeekdayShort(t time.Time, zone string) string {
	return weekdayShort[c.ZonedWeekday(t, zone)%7]
}

// MonthName returns the English name for a 1-12 month number.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// ShortLabel returns the zone's abbreviation at the given instant (e.g.
// "EDT"), or the zone name itself when the zone cannot be resolved.
func ShortLabel(t time.Time, zone string) string {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return zone
	}
	name, _ := t.In(loc).Zone()
	if name == "" {
		return zone
	}
	return name
}

// ClockLabel formats a wall-clock time in 12-hour form ("6:00 PM").
func ClockLabel(hour, minute int) string {
	suffix := "AM"
	h := hour
	if h >= 12 {
		suffix = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}

// ClockLabelIn formats a wall-clock time using a Go reference layout,
// so a configured time format reaches every label. An empty layout
// falls back to the fixed 12-hour form.
func ClockLabelIn(hour, minute int, layout string) string {
	if layout == "" {
		return ClockLabel(hour, minute)
	}
	return time.Date(2000, time.January, 1, hour, minute, 0, 0, time.UTC).Format(layout)
}

// DaysInMonth returns the number of days in a civil month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
