// Package calendar turns raw events and schedule occurrences into
// display-ready entries and lays them out on a 6x7 month grid, all in
// the viewer's chosen timezone.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptimeatlas/atlascal/internal/atlas"
	"github.com/uptimeatlas/atlascal/internal/schedule"
	"github.com/uptimeatlas/atlascal/internal/tz"
)

// UnknownSortKey sorts entries without a wall-clock time after every
// timed entry (minute-of-day tops out at 1439).
const UnknownSortKey = 9999

// Entry is one display-ready calendar entry. Entries are recomputed on
// every render and never persisted.
type Entry struct {
	ID          int64
	Title       string
	TimeLabel   string
	Source      string
	Color       string
	SortKey     int
	DateKey     string
	ScheduleID  string
	StartUTC    string
	StopUTC     string
	Description string
	CreatedBy   string
	GameName    string
	EventName   string
	GameID      int64
}

// Normalizer converts raw records into entries for one timezone. A
// single Normalizer must not be shared across render passes that use
// different zones; build a fresh one per pass.
type Normalizer struct {
	Conv       *tz.Converter
	Zone       string
	ServerName string
	TimeFormat string // Go reference layout; empty means the default 12-hour form
}

// NormalizeEvents converts the event feed into entries, assigning colors
// through the shared color cache. Events whose start instant does not
// parse are dropped.
func (n *Normalizer) NormalizeEvents(events []atlas.Event, colors map[string]string) []Entry {
	entries := make([]Entry, 0, len(events))
	for _, event := range events {
		entry, ok := n.normalizeEvent(event, colors)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func (n *Normalizer) normalizeEvent(event atlas.Event, colors map[string]string) (Entry, bool) {
	gameName := strings.TrimSpace(event.GameName)
	if gameName == "" {
		gameName = n.ServerName
	}
	eventName := strings.TrimSpace(event.EventName)
	if eventName == "" {
		eventName = "Event"
	}

	start, err := time.Parse(time.RFC3339, event.StartUTC)
	if err != nil {
		return Entry{}, false
	}

	source := gameName
	color := colors[source]
	if color == "" {
		color = PickColor(source, colors)
		colors[source] = color
	}

	parts := n.Conv.ZonedParts(start, n.Zone)
	dateKey := n.Conv.DateKey(start, n.Zone)
	sortKey := parts.Hour*60 + parts.Minute

	timeLabel := tz.ClockLabelIn(parts.Hour, parts.Minute, n.TimeFormat)
	if stop, err := time.Parse(time.RFC3339, event.StopUTC); err == nil {
		stopParts := n.Conv.ZonedParts(stop, n.Zone)
		stopLabel := tz.ClockLabelIn(stopParts.Hour, stopParts.Minute, n.TimeFormat)
		if stopKey := n.Conv.DateKey(stop, n.Zone); stopKey != dateKey {
			timeLabel = fmt.Sprintf("%s–%s %s", timeLabel, n.Conv.WeekdayShort(stop, n.Zone), stopLabel)
		} else {
			timeLabel = fmt.Sprintf("%s–%s", timeLabel, stopLabel)
		}
	}

	return Entry{
		ID:          event.ID,
		Title:       composeTitle(gameName, eventName, n.ServerName),
		TimeLabel:   timeLabel,
		Source:      source,
		Color:       color,
		SortKey:     sortKey,
		DateKey:     dateKey,
		ScheduleID:  event.ScheduleID,
		StartUTC:    event.StartUTC,
		StopUTC:     event.StopUTC,
		Description: strings.TrimSpace(event.Description),
		CreatedBy:   strings.TrimSpace(event.CreatedBy),
		GameName:    gameName,
		EventName:   eventName,
		GameID:      event.GameID,
	}, true
}

// NormalizeSchedules expands the legacy schedule feed for one displayed
// month. Paused schedules are skipped; occurrences exist only for this
// render and are never cached.
func (n *Normalizer) NormalizeSchedules(schedules []atlas.Schedule, year, month int, colors map[string]string) []Entry {
	var entries []Entry
	for _, sched := range schedules {
		if !sched.IsActive {
			continue
		}
		gameName, eventName := splitScheduleName(sched.Name, n.ServerName)

		source := gameName
		color := colors[source]
		if color == "" {
			color = PickColor(source, colors)
			colors[source] = color
		}

		desc := schedule.Descriptor{
			Hour:       sched.Cron.Hour.String(),
			Minute:     sched.Cron.Minute.String(),
			DayOfWeek:  sched.Cron.DayOfWeek.String(),
			DayOfMonth: sched.Cron.DayOfMonth.String(),
		}
		for _, occ := range schedule.ExpandMonth(desc, year, month) {
			entry := Entry{
				Title:     composeTitle(gameName, eventName, n.ServerName),
				Source:    source,
				Color:     color,
				DateKey:   tz.CivilDateKey(occ.Year, occ.Month, occ.Day),
				GameName:  gameName,
				EventName: eventName,
			}
			if occ.Anytime {
				entry.SortKey = UnknownSortKey
				entry.TimeLabel = "Anytime"
			} else {
				entry.SortKey = occ.Hour*60 + occ.Minute
				entry.TimeLabel = tz.ClockLabelIn(occ.Hour, occ.Minute, n.TimeFormat)
				start := n.Conv.CivilInstant(occ.Year, occ.Month, occ.Day, occ.Hour, occ.Minute, n.Zone)
				entry.StartUTC = start.UTC().Format(time.RFC3339)
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// composeTitle prefixes the source unless it is just the server default.
func composeTitle(gameName, eventName, serverName string) string {
	if gameName != "" && gameName != serverName {
		return gameName + ": " + eventName
	}
	return eventName
}

// splitScheduleName pulls "Game: Event" apart; names without a colon
// belong to the server default source.
func splitScheduleName(name, serverName string) (gameName, eventName string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return serverName, "Schedule"
	}
	if idx := strings.Index(name, ":"); idx >= 0 {
		gameName = strings.TrimSpace(name[:idx])
		eventName = strings.TrimSpace(name[idx+1:])
		if gameName == "" {
			gameName = serverName
		}
		if eventName == "" {
			eventName = "Event"
		}
		return gameName, eventName
	}
	return serverName, name
}
