package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptimeatlas/atlascal/internal/atlas"
	"github.com/uptimeatlas/atlascal/internal/tz"

	"github.com/charmbracelet/lipgloss"
)

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func (m *Model) viewCalendar() string {
	var sections []string

	sections = append(sections, m.renderTitleBar())
	sections = append(sections, m.renderGrid())
	if m.focusFilters {
		sections = append(sections, m.renderFilterPane())
	}
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTitleBar() string {
	title := fmt.Sprintf(" %s %d", tz.MonthName(m.month), m.year)
	zone := fmt.Sprintf("%s (%s)", m.zone, tz.ShortLabel(time.Now(), m.zone))

	status := ""
	if m.statusReason != "" {
		status = m.styles.Stale.Render(atlas.StatusLabel(m.statusReason))
	} else if m.stale {
		status = m.styles.Stale.Render("stale data")
	}

	left := m.styles.Header.Render(title)
	right := m.styles.Help.Render(zone)
	if status != "" {
		right = status + "  " + right
	}

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

func (m *Model) renderGrid() string {
	cellWidth := m.width / 7
	if cellWidth < 10 {
		cellWidth = 10
	}
	cellHeight := (m.height - 5) / 6
	if cellHeight < 2 {
		cellHeight = 2
	}

	var header strings.Builder
	for _, day := range weekdayHeaders {
		header.WriteString(m.styles.Header.Render(padTo(" "+day, cellWidth)))
	}

	rows := []string{header.String()}
	for week := 0; week < 6; week++ {
		var cells []string
		for weekday := 0; weekday < 7; weekday++ {
			idx := week*7 + weekday
			cells = append(cells, m.renderCell(idx, cellWidth, cellHeight))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderCell(idx, width, height int) string {
	cell := &m.grid.Cells[idx]

	dayStr := fmt.Sprintf(" %d", cell.Day)
	switch {
	case idx == m.cursor && !m.focusFilters:
		dayStr = m.styles.Selected.Render(dayStr)
	case cell.Today:
		dayStr = m.styles.Today.Render(dayStr)
	case !cell.InMonth:
		dayStr = m.styles.Outside.Render(dayStr)
	default:
		dayStr = m.styles.Normal.Render(dayStr)
	}

	lines := []string{dayStr}
	capacity := height - 1
	shown := cell.Visible()
	overflow := cell.Overflow()

	// The overflow marker takes one of the entry rows when present.
	needed := len(shown)
	if overflow > 0 {
		needed++
	}
	if needed > capacity {
		keep := capacity - 1
		if keep < 0 {
			keep = 0
		}
		overflow += len(shown) - keep
		shown = shown[:keep]
	}

	for _, entry := range shown {
		label := truncate(" "+entry.Title, width-1)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(entry.Color))
		if !cell.InMonth {
			style = m.styles.Outside
		}
		lines = append(lines, style.Render(label))
	}
	if overflow > 0 && capacity > 0 {
		lines = append(lines, m.styles.Overflow.Render(truncate(fmt.Sprintf(" +%d more", overflow), width-1)))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}

	for i, line := range lines {
		lines[i] = padTo(line, width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderFilterPane() string {
	var lines []string
	lines = append(lines, m.styles.Header.Render("Sources"))

	if len(m.sources) == 0 {
		lines = append(lines, m.styles.Help.Render("  (no sources)"))
	}
	for i, src := range m.sources {
		mark := "[x]"
		if !m.filters.IsVisible(src.Name) {
			mark = "[ ]"
		}
		swatch := lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.filters.Colors[src.Name])).
			Render("■")
		line := fmt.Sprintf(" %s %s %s (%d)", mark, swatch, src.Name, src.ActiveCount)
		if i == m.filterIndex {
			line = m.styles.Selected.Render(line)
		}
		lines = append(lines, line)
	}

	lines = append(lines, m.styles.Help.Render(" space toggle · R resync · D delete · esc close"))
	return m.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) viewHelp() string {
	bind := func(action string) string {
		return m.config.KeyBindings[action]
	}
	key := func(action, what string) string {
		return m.styles.Help.Render(fmt.Sprintf("  %-7s - %s", bind(action), what))
	}

	help := []string{
		m.styles.Header.Render("Atlascal Help"),
		"",
		m.styles.Normal.Render("Navigation:"),
		m.styles.Help.Render("  h/l/←/→ - Previous/next day"),
		m.styles.Help.Render("  j/k/↓/↑ - Next/previous week"),
		m.styles.Help.Render(fmt.Sprintf("  %s/%s     - Previous/next month", bind("prev_month"), bind("next_month"))),
		key("today", "Jump to today"),
		"",
		m.styles.Normal.Render("Actions:"),
		key("details", "Day details"),
		key("new_event", "New event"),
		key("filters", "Source filters"),
		key("timezone", "Change timezone"),
		key("refresh", "Refresh from server"),
		key("help", "Toggle help"),
		key("quit", "Quit"),
		"",
		m.styles.Help.Render("Press any key to return..."),
	}

	return lipgloss.JoinVertical(lipgloss.Left, help...)
}

func (m *Model) viewEventEditor() string {
	var sections []string

	sections = append(sections, m.styles.Header.Render("New Event"))
	sections = append(sections, "")

	prompt := m.styles.Normal.Render("Enter event (e.g., '2024-05-01 6:00pm-8:00pm Ark: Wipe; fresh map'):")
	sections = append(sections, prompt)

	input := string(m.input[:m.cursorPos]) + "█" + string(m.input[m.cursorPos:])
	sections = append(sections, m.styles.Selected.Render(input))
	sections = append(sections, "")

	sections = append(sections, m.styles.Help.Render("Enter to save, Esc to cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) viewTimezonePicker() string {
	var lines []string
	lines = append(lines, m.styles.Header.Render("Timezone"))
	lines = append(lines, "")

	for i, zone := range pickerZones {
		line := "  " + zone
		if zone == m.zone {
			line += " (current)"
		}
		if i == m.zoneIndex {
			line = m.styles.Selected.Render(line)
		} else {
			line = m.styles.Normal.Render(line)
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	lines = append(lines, m.styles.Help.Render("Enter to select, Esc to cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderStatusBar() string {
	visible := 0
	for _, src := range m.sources {
		if m.filters.IsVisible(src.Name) {
			visible++
		}
	}
	left := fmt.Sprintf(" %d/%d sources | %d events", visible, len(m.sources), len(m.entries))
	if !m.loaded {
		left = " connecting..."
	}

	right := "? for help | q to quit"
	if m.message != "" {
		right = m.styles.Message.Render(m.message)
	}

	width := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if width < 0 {
		width = 0
	}

	middle := strings.Repeat(" ", width)

	return m.styles.Help.Render(left) + middle + right
}

func padTo(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
