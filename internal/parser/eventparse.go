// Package parser turns the quick-entry line of the event editor into a
// structured event. The grammar is
//
//	[date] [time[-time]] Game: Name [; description]
//
// where every piece before the title is optional. Dates and times are
// civil values; the caller resolves them in the viewer timezone.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParsedEvent is the structured form of one quick-entry line.
type ParsedEvent struct {
	Year  int
	Month int
	Day   int

	StartHour   int
	StartMinute int
	HasStart    bool

	EndHour   int
	EndMinute int
	HasEnd    bool

	Game        string
	Name        string
	Description string
}

type EventParser struct {
	now time.Time
}

func NewEventParser() *EventParser {
	return &EventParser{}
}

// SetNow pins the reference date used for "today" and defaults. Unset,
// each Parse reads the clock, so a long-running session does not keep
// resolving "today" to its launch date.
func (p *EventParser) SetNow(now time.Time) {
	p.now = now
}

func (p *EventParser) ref() time.Time {
	if p.now.IsZero() {
		return time.Now()
	}
	return p.now
}

// Parse breaks one input line apart. Missing date defaults to today and
// a missing end time stays unset; a missing name is an error because the
// server would reject the create anyway.
func (p *EventParser) Parse(input string) (*ParsedEvent, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	result := &ParsedEvent{}
	remaining := input

	if year, month, day, text, ok := p.parseDate(remaining); ok {
		result.Year, result.Month, result.Day = year, month, day
		remaining = text
	} else {
		y, m, d := p.ref().Date()
		result.Year, result.Month, result.Day = y, int(m), d
	}

	if parsed, text, ok := p.parseTimeRange(remaining); ok {
		result.StartHour, result.StartMinute = parsed.startHour, parsed.startMinute
		result.HasStart = true
		if parsed.hasEnd {
			result.EndHour, result.EndMinute = parsed.endHour, parsed.endMinute
			result.HasEnd = true
		}
		remaining = text
	}

	game, name, desc := splitTitle(remaining)
	if name == "" {
		return nil, fmt.Errorf("missing event name")
	}
	result.Game = game
	result.Name = name
	result.Description = desc
	return result, nil
}

func (p *EventParser) parseDate(input string) (year, month, day int, remaining string, ok bool) {
	lower := strings.ToLower(input)

	if strings.HasPrefix(lower, "today") {
		y, m, d := p.ref().Date()
		return y, int(m), d, strings.TrimSpace(input[5:]), true
	}
	if strings.HasPrefix(lower, "tomorrow") {
		y, m, d := p.ref().AddDate(0, 0, 1).Date()
		return y, int(m), d, strings.TrimSpace(input[8:]), true
	}

	// YYYY-MM-DD
	isoRe := regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	if matches := isoRe.FindStringSubmatch(input); matches != nil {
		year, _ = strconv.Atoi(matches[1])
		month, _ = strconv.Atoi(matches[2])
		day, _ = strconv.Atoi(matches[3])
		return year, month, day, strings.TrimSpace(input[len(matches[0]):]), true
	}

	// M/D/YYYY or M/D
	slashRe := regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
	if matches := slashRe.FindStringSubmatch(input); matches != nil {
		month, _ = strconv.Atoi(matches[1])
		day, _ = strconv.Atoi(matches[2])
		year = p.ref().Year()
		if matches[3] != "" {
			year, _ = strconv.Atoi(matches[3])
		}
		return year, month, day, strings.TrimSpace(input[len(matches[0]):]), true
	}

	return 0, 0, 0, input, false
}

type parsedRange struct {
	startHour   int
	startMinute int
	endHour     int
	endMinute   int
	hasEnd      bool
}

func (p *EventParser) parseTimeRange(input string) (parsedRange, string, bool) {
	lower := strings.ToLower(input)

	rangeRe := regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	if matches := rangeRe.FindStringSubmatch(lower); matches != nil {
		var r parsedRange
		r.startHour, r.startMinute = clockParts(matches[1], matches[2], matches[3])
		r.endHour, r.endMinute = clockParts(matches[4], matches[5], matches[6])
		r.hasEnd = true
		if !validClock(r.startHour, r.startMinute) || !validClock(r.endHour, r.endMinute) {
			return parsedRange{}, input, false
		}
		return r, strings.TrimSpace(input[len(matches[0]):]), true
	}

	// A lone hour like "7" is ambiguous with a title, so a single time
	// needs either minutes or a meridiem.
	timeRe := regexp.MustCompile(`^(\d{1,2})(?::(\d{2})\s*(am|pm)?|\s*(am|pm))\b`)
	if matches := timeRe.FindStringSubmatch(lower); matches != nil {
		meridiem := matches[3]
		if meridiem == "" {
			meridiem = matches[4]
		}
		var r parsedRange
		r.startHour, r.startMinute = clockParts(matches[1], matches[2], meridiem)
		if !validClock(r.startHour, r.startMinute) {
			return parsedRange{}, input, false
		}
		return r, strings.TrimSpace(input[len(matches[0]):]), true
	}

	return parsedRange{}, input, false
}

func clockParts(hourStr, minuteStr, meridiem string) (hour, minute int) {
	hour, _ = strconv.Atoi(hourStr)
	if minuteStr != "" {
		minute, _ = strconv.Atoi(minuteStr)
	}
	if meridiem == "pm" && hour < 12 {
		hour += 12
	} else if meridiem == "am" && hour == 12 {
		hour = 0
	}
	return hour, minute
}

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// splitTitle separates "Game: Name; description". Without a colon the
// whole text is the name and the game is left for the caller to default.
func splitTitle(input string) (game, name, desc string) {
	input = strings.TrimSpace(input)

	if idx := strings.Index(input, ";"); idx >= 0 {
		desc = strings.TrimSpace(input[idx+1:])
		input = strings.TrimSpace(input[:idx])
	}

	if idx := strings.Index(input, ":"); idx >= 0 {
		game = strings.TrimSpace(input[:idx])
		name = strings.TrimSpace(input[idx+1:])
		return game, name, desc
	}
	return "", input, desc
}
