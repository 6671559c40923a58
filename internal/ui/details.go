package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptimeatlas/atlascal/internal/calendar"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"
)

// viewDetails renders the full, uncapped entry list of the selected day
// with the highlighted entry expanded.
func (m *Model) viewDetails() string {
	cell := m.selectedCell()
	if cell == nil || len(cell.Entries) == 0 {
		return m.viewCalendar()
	}

	boxWidth := m.width * 2 / 3
	if boxWidth < 40 {
		boxWidth = 40
	}
	textWidth := boxWidth - 4
	if textWidth < 20 {
		textWidth = 20
	}

	var lines []string
	header := m.detailsHeader(cell)
	lines = append(lines, m.styles.Header.Render(wordwrap.String(header, textWidth)))
	lines = append(lines, "")

	for i, entry := range cell.Entries {
		marker := "  "
		if i == m.detailIndex {
			marker = "> "
		}
		title := marker + entry.Title
		swatch := lipgloss.NewStyle().
			Foreground(lipgloss.Color(entry.Color)).
			Render("■ ")
		line := swatch + title
		if i == m.detailIndex {
			line = m.styles.Selected.Render(truncate(line, textWidth))
		} else {
			line = truncate(line, textWidth)
		}
		lines = append(lines, line)
		lines = append(lines, m.styles.Help.Render("    "+entry.TimeLabel))

		if i != m.detailIndex {
			continue
		}

		if entry.Description != "" {
			wrapped := wordwrap.String(entry.Description, textWidth-4)
			for _, dl := range strings.Split(wrapped, "\n") {
				if dl != "" {
					lines = append(lines, "    "+dl)
				}
			}
		}
		if entry.CreatedBy != "" {
			lines = append(lines, m.styles.Help.Render("    Created by "+entry.CreatedBy))
		}
		if entry.ID == 0 {
			lines = append(lines, m.styles.Help.Render("    Recurring schedule"))
		} else if m.canDelete(entry) {
			lines = append(lines, m.styles.Help.Render("    d to delete"))
		}
	}

	lines = append(lines, "")
	lines = append(lines, m.styles.Help.Render("j/k select · esc back"))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	box := m.styles.Border.Width(boxWidth)
	return box.Render(content)
}

func (m *Model) detailsHeader(cell *calendar.Cell) string {
	label := cell.DateKey
	if t, err := time.Parse("2006-01-02", cell.DateKey); err == nil {
		label = t.Format(m.config.DateFormat)
	}
	return fmt.Sprintf("%s — %d event(s)", label, len(cell.Entries))
}
