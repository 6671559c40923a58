// Package schedule expands legacy cron-style recurrence descriptors into
// concrete calendar dates for a single displayed month. Only statically
// expandable patterns are supported; anything else yields no occurrences.
package schedule

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptimeatlas/atlascal/internal/tz"
)

// Field is one parsed cron field: either the wildcard or a set of values.
// A non-wildcard field with no values means the raw pattern could not be
// statically expanded (step expressions, garbage tokens).
type Field struct {
	Any    bool
	Values []int
}

// Contains reports whether v is in the field's value set.
func (f Field) Contains(v int) bool {
	for _, val := range f.Values {
		if val == v {
			return true
		}
	}
	return false
}

// First returns the lowest value, or fallback when the field has none.
func (f Field) First(fallback int) int {
	if len(f.Values) == 0 {
		return fallback
	}
	return f.Values[0]
}

// ParseField parses a cron field value: "", "*" and "?" are the wildcard;
// otherwise a comma list of single values and inclusive "a-b" ranges.
// Step expressions ("*/2") mark the whole field unexpandable. Values are
// passed through normalize (if given) and dropped when outside [min, max].
func ParseField(raw string, min, max int, normalize func(int) int) Field {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "*" || raw == "?" {
		return Field{Any: true}
	}

	seen := make(map[int]bool)
	add := func(v int) {
		if normalize != nil {
			v = normalize(v)
		}
		if v < min || v > max {
			return
		}
		seen[v] = true
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			// Cannot statically expand a step expression; signal by
			// returning an empty, non-wildcard field.
			return Field{}
		}
		if lo, hi, ok := parseRange(part); ok {
			for v := lo; v <= hi; v++ {
				add(v)
			}
			continue
		}
		if v, err := strconv.Atoi(part); err == nil {
			add(v)
		}
	}

	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Ints(values)
	return Field{Values: values}
}

func parseRange(part string) (lo, hi int, ok bool) {
	idx := strings.Index(part, "-")
	if idx <= 0 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(part[:idx]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(part[idx+1:]))
	if err1 != nil || err2 != nil || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// Descriptor is the recurrence part of a legacy schedule. Each field may
// be the wildcard, a comma list, or a range; see ParseField.
type Descriptor struct {
	Hour       string
	Minute     string
	DayOfWeek  string
	DayOfMonth string
}

// Occurrence is one concrete calendar-day materialization of a schedule,
// valid only for the month it was expanded for. Anytime occurrences have
// no fixed wall-clock time.
type Occurrence struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Anytime bool
}

// normalizeWeekday folds cron's alternate Sunday (7) onto 0.
func normalizeWeekday(v int) int {
	if v == 7 {
		return 0
	}
	return v
}

// ExpandMonth expands a descriptor for one civil month. Explicit
// days-of-month win over days-of-week; with both wildcarded the schedule
// is daily. Day-of-month values past the month's end are skipped, never
// an error. An unexpandable day field yields no occurrences at all.
func ExpandMonth(d Descriptor, year, month int) []Occurrence {
	days := tz.DaysInMonth(year, month)
	dom := ParseField(d.DayOfMonth, 1, days, nil)
	dow := ParseField(d.DayOfWeek, 0, 6, normalizeWeekday)
	hour := ParseField(d.Hour, 0, 23, nil)
	minute := ParseField(d.Minute, 0, 59, nil)

	anytime := hour.Any || minute.Any || len(hour.Values) == 0 || len(minute.Values) == 0
	at := func(day int) Occurrence {
		occ := Occurrence{Year: year, Month: month, Day: day, Anytime: anytime}
		if !anytime {
			occ.Hour = hour.First(0)
			occ.Minute = minute.First(0)
		}
		return occ
	}

	var out []Occurrence
	switch {
	case !dom.Any:
		for _, day := range dom.Values {
			out = append(out, at(day))
		}
	case !dow.Any:
		for day := 1; day <= days; day++ {
			if dow.Contains(civilWeekday(year, month, day)) {
				out = append(out, at(day))
			}
		}
	default:
		for day := 1; day <= days; day++ {
			out = append(out, at(day))
		}
	}
	return out
}

// civilWeekday computes the weekday of a civil date; weekday is a property
// of the date itself, not of any timezone.
func civilWeekday(year, month, day int) int {
	return int(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday())
}
