package atlas

import (
	"encoding/json"
	"strings"
)

// Event is one materialized calendar event as served by the dashboard.
// Instants are ISO-8601 UTC strings; StopUTC may be empty.
type Event struct {
	ID          int64  `json:"id"`
	GameID      int64  `json:"game_id"`
	GameName    string `json:"game_name"`
	EventName   string `json:"event_name"`
	StartUTC    string `json:"start_utc"`
	StopUTC     string `json:"stop_utc"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	ScheduleID  string `json:"schedule_id"`
}

// Schedule IDs with this prefix belong to events created through the
// dashboard itself rather than synced from the external schedule source.
const localSchedulePrefix = "local_"

// IsLocal reports whether the event originated from a dashboard-created
// entry rather than an external schedule.
func (e Event) IsLocal() bool {
	return strings.HasPrefix(e.ScheduleID, localSchedulePrefix)
}

// Source is the logical owner of a set of events (a game server).
type Source struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ActiveCount  int    `json:"active_count"`
	DeletedCount int    `json:"deleted_count"`
	PelicanCount int    `json:"pelican_count"`
}

// EventsPayload is the response of the event feed. When ok is false the
// reason code explains why; events may still be present alongside a
// stale flag when the server serves its last good snapshot.
type EventsPayload struct {
	OK      bool     `json:"ok"`
	Events  []Event  `json:"events"`
	Sources []Source `json:"sources"`
	Stale   bool     `json:"stale"`
	Reason  string   `json:"reason"`
}

// CronValue tolerates servers that emit cron fields as either JSON
// strings or bare numbers.
type CronValue string

func (v *CronValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = CronValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = CronValue(n.String())
	return nil
}

func (v CronValue) String() string { return string(v) }

// Cron is the recurrence descriptor of a legacy schedule.
type Cron struct {
	Hour       CronValue `json:"hour"`
	Minute     CronValue `json:"minute"`
	DayOfWeek  CronValue `json:"day_of_week"`
	DayOfMonth CronValue `json:"day_of_month"`
}

// Schedule is one legacy recurring descriptor; read-only on the client.
type Schedule struct {
	Name     string `json:"name"`
	Cron     Cron   `json:"cron"`
	IsActive bool   `json:"is_active"`
}

// SchedulesPayload is the response of the legacy schedule feed.
type SchedulesPayload struct {
	OK        bool       `json:"ok"`
	Schedules []Schedule `json:"schedules"`
	Reason    string     `json:"reason"`
}

// CreateEventRequest is the body of an event creation call.
type CreateEventRequest struct {
	Game        string `json:"game"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartUTC    string `json:"start_utc"`
	StopUTC     string `json:"stop_utc"`
}

// MutationResult is the server's verdict on a create/delete call.
type MutationResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// FailureReason prefers the reason code, then detail, then "unknown".
func (r MutationResult) FailureReason() string {
	if r.Reason != "" {
		return r.Reason
	}
	if r.Detail != "" {
		return r.Detail
	}
	return "unknown"
}

// ResyncResult is the response of a schedule-source resync.
type ResyncResult struct {
	OK     bool   `json:"ok"`
	Events int    `json:"events"`
	Reason string `json:"reason"`
}
