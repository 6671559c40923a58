package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Styles struct {
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Today    lipgloss.Style
	Outside  lipgloss.Style
	Header   lipgloss.Style
	Overflow lipgloss.Style
	Stale    lipgloss.Style
	Help     lipgloss.Style
	Message  lipgloss.Style
	Border   lipgloss.Style
}

// defaultColorSpecs mirrors config.DefaultConfig so a bare style set
// matches an untouched config file.
var defaultColorSpecs = map[string]string{
	"normal":   "252",
	"selected": "235 220 bold",
	"today":    "220 bold",
	"outside":  "240",
	"header":   "220 bold underline",
	"overflow": "45",
	"stale":    "196 bold",
	"help":     "241",
	"message":  "220 235",
	"border":   "238",
}

// ansiNames maps rc-file color names to ANSI palette indexes.
var ansiNames = map[string]string{
	"black": "0", "red": "1", "green": "2", "yellow": "3",
	"blue": "4", "magenta": "5", "cyan": "6", "white": "7",
	"brightblack": "8", "brightred": "9", "brightgreen": "10",
	"brightyellow": "11", "brightblue": "12", "brightmagenta": "13",
	"brightcyan": "14", "brightwhite": "15",
}

func DefaultStyles() Styles {
	return NewStyles(nil)
}

// NewStyles builds the style set from `color` directives. A spec is
// `<fg> [<bg>] [bold|underline|reverse|blink]...` where a color is a
// name, a 256-palette index, or #rrggbb; "default" skips a position.
func NewStyles(colors map[string]string) Styles {
	spec := func(name string) string {
		if s, ok := colors[name]; ok {
			return s
		}
		return defaultColorSpecs[name]
	}

	s := Styles{
		Normal:   styleFromSpec(spec("normal"), lipgloss.NewStyle()),
		Selected: styleFromSpec(spec("selected"), lipgloss.NewStyle()),
		Today:    styleFromSpec(spec("today"), lipgloss.NewStyle()),
		Outside:  styleFromSpec(spec("outside"), lipgloss.NewStyle()),
		Header:   styleFromSpec(spec("header"), lipgloss.NewStyle()),
		Overflow: styleFromSpec(spec("overflow"), lipgloss.NewStyle()),
		Stale:    styleFromSpec(spec("stale"), lipgloss.NewStyle()),
		Help:     styleFromSpec(spec("help"), lipgloss.NewStyle()),
		Message:  styleFromSpec(spec("message"), lipgloss.NewStyle().Padding(0, 1)),
		Border:   lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()),
	}
	if c, ok := firstColor(spec("border")); ok {
		s.Border = s.Border.BorderForeground(c)
	}
	return s
}

func styleFromSpec(spec string, base lipgloss.Style) lipgloss.Style {
	style := base
	seen := 0
	for _, token := range strings.Fields(strings.ToLower(spec)) {
		switch token {
		case "bold":
			style = style.Bold(true)
		case "underline":
			style = style.Underline(true)
		case "reverse":
			style = style.Reverse(true)
		case "blink":
			style = style.Blink(true)
		case "default":
			seen++
		default:
			c, ok := parseColor(token)
			if !ok {
				continue
			}
			if seen == 0 {
				style = style.Foreground(c)
			} else {
				style = style.Background(c)
			}
			seen++
		}
	}
	return style
}

func parseColor(token string) (lipgloss.Color, bool) {
	if code, ok := ansiNames[token]; ok {
		return lipgloss.Color(code), true
	}
	if strings.HasPrefix(token, "#") && (len(token) == 4 || len(token) == 7) {
		if _, err := strconv.ParseUint(token[1:], 16, 32); err == nil {
			return lipgloss.Color(token), true
		}
		return "", false
	}
	if n, err := strconv.Atoi(token); err == nil && n >= 0 && n <= 255 {
		return lipgloss.Color(token), true
	}
	return "", false
}

func firstColor(spec string) (lipgloss.Color, bool) {
	for _, token := range strings.Fields(strings.ToLower(spec)) {
		if c, ok := parseColor(token); ok {
			return c, true
		}
	}
	return "", false
}
