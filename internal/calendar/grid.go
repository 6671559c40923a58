package calendar

import (
	"sort"
	"time"

	"github.com/uptimeatlas/atlascal/internal/tz"
)

// GridCells is the fixed 6x7 layout of a displayed month.
const GridCells = 42

// DisplayCap is how many entries a cell shows inline before collapsing
// the remainder into "+N more".
const DisplayCap = 3

// Cell is one day of the grid. Entries holds the full, uncapped bucket;
// rendering truncates, the details pane does not.
type Cell struct {
	DateKey string
	Day     int
	InMonth bool
	Today   bool
	Entries []Entry
}

// Overflow is the count hidden behind the display cap.
func (c *Cell) Overflow() int {
	if len(c.Entries) <= DisplayCap {
		return 0
	}
	return len(c.Entries) - DisplayCap
}

// Visible returns the capped slice rendered inline.
func (c *Cell) Visible() []Entry {
	if len(c.Entries) <= DisplayCap {
		return c.Entries
	}
	return c.Entries[:DisplayCap]
}

// Grid is the rendered month: exactly 42 consecutive civil days starting
// at the Sunday on or before the 1st, all computed in one timezone.
type Grid struct {
	Year  int
	Month int
	Cells [GridCells]Cell
}

// BuildGrid lays out the displayed month. Entries are bucketed by date
// key, filtered through visible, and ordered by minute-of-day then title.
// Today and in-month flags come from the viewer timezone, not the
// machine's local zone.
func BuildGrid(conv *tz.Converter, zone string, year, month int, entries []Entry, visible func(source string) bool, now time.Time) *Grid {
	grid := &Grid{Year: year, Month: month}

	first := conv.CivilNoon(year, month, 1, zone)
	startWeekday := conv.ZonedWeekday(first, zone)
	start := first.Add(-time.Duration(startWeekday) * 24 * time.Hour)
	todayKey := conv.DateKey(now, zone)

	buckets := make(map[string][]Entry)
	for _, entry := range entries {
		if visible != nil && !visible(entry.Source) {
			continue
		}
		buckets[entry.DateKey] = append(buckets[entry.DateKey], entry)
	}

	for i := 0; i < GridCells; i++ {
		// A noon anchor plus 24h steps stays on consecutive civil days
		// across DST shifts; the day is 23-25h long but noon never
		// drifts past a boundary.
		t := start.Add(time.Duration(i) * 24 * time.Hour)
		parts := conv.ZonedParts(t, zone)
		key := conv.DateKey(t, zone)

		cell := Cell{
			DateKey: key,
			Day:     parts.Day,
			InMonth: parts.Year == year && parts.Month == month,
			Today:   key == todayKey,
		}
		if bucket := buckets[key]; len(bucket) > 0 {
			cell.Entries = make([]Entry, len(bucket))
			copy(cell.Entries, bucket)
			sortEntries(cell.Entries)
		}
		grid.Cells[i] = cell
	}
	return grid
}

// sortEntries orders a day's bucket ascending by minute-of-day with
// unknown times last, tie-broken by title.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SortKey != entries[j].SortKey {
			return entries[i].SortKey < entries[j].SortKey
		}
		return entries[i].Title < entries[j].Title
	})
}
