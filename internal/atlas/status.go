package atlas

import "strings"

// StatusLabel maps a server reason code to the user-facing message shown
// in the calendar's meta line. An empty reason maps to an empty label.
func StatusLabel(reason string) string {
	switch {
	case reason == "":
		return ""
	case reason == "disabled":
		return "Pelican disabled"
	case strings.HasPrefix(reason, "missing_"):
		return "Pelican config incomplete"
	case reason == "http_401" || reason == "http_403":
		return "Pelican auth failed"
	case reason == "invalid_json":
		return "Pelican response invalid"
	default:
		return "Pelican offline"
	}
}
