package ui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/uptimeatlas/atlascal/internal/atlas"
	"github.com/uptimeatlas/atlascal/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeSource struct {
	eventFetches    int
	scheduleFetches int
	created         []atlas.CreateEventRequest
	deletedEvents   []int64
	deletedSources  []int64
	resynced        []int64

	payload   *atlas.EventsPayload
	schedules *atlas.SchedulesPayload
	err       error
}

func (f *fakeSource) FetchEvents() (*atlas.EventsPayload, error) {
	f.eventFetches++
	return f.payload, f.err
}

func (f *fakeSource) FetchSchedules() (*atlas.SchedulesPayload, error) {
	f.scheduleFetches++
	return f.schedules, f.err
}

func (f *fakeSource) CreateEvent(req atlas.CreateEventRequest) (*atlas.MutationResult, error) {
	f.created = append(f.created, req)
	return &atlas.MutationResult{OK: true}, nil
}

func (f *fakeSource) DeleteEvent(id int64) (*atlas.MutationResult, error) {
	f.deletedEvents = append(f.deletedEvents, id)
	return &atlas.MutationResult{OK: true}, nil
}

func (f *fakeSource) DeleteSource(id int64) (*atlas.MutationResult, error) {
	f.deletedSources = append(f.deletedSources, id)
	return &atlas.MutationResult{OK: true}, nil
}

func (f *fakeSource) ResyncSource(id int64) (*atlas.ResyncResult, error) {
	f.resynced = append(f.resynced, id)
	return &atlas.ResyncResult{OK: true, Events: 3}, nil
}

func newTestModel(t *testing.T, source atlas.EventSource) *Model {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StateFile = filepath.Join(dir, "filters.json")
	cfg.TimezoneFile = filepath.Join(dir, "timezone")
	cfg.Timezone = "UTC"
	cfg.ServerName = "Pelican"
	cfg.User = "steve"
	cfg.Admin = false

	m := NewModel(cfg, source)
	m.width = 120
	m.height = 40
	return m
}

// runCmd executes a command tree synchronously and returns the messages
// it produced. It must not be used on commands that wait on channels.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// pump feeds a command's messages back through Update, following any
// commands those updates return, the way the runtime would.
func pump(m *Model, cmd tea.Cmd) {
	for _, msg := range runCmd(cmd) {
		_, next := m.Update(msg)
		pump(m, next)
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func testPayload() *atlas.EventsPayload {
	return &atlas.EventsPayload{
		OK: true,
		Events: []atlas.Event{
			{ID: 1, GameName: "Ark", EventName: "Wipe", StartUTC: "2024-03-10T02:00:00Z", CreatedBy: "steve"},
			{ID: 2, GameName: "Rust", EventName: "Raid", StartUTC: "2024-03-12T18:00:00Z", CreatedBy: "root"},
		},
		Sources: []atlas.Source{
			{ID: 10, Name: "Ark", ActiveCount: 1, PelicanCount: 1},
			{ID: 11, Name: "Rust", ActiveCount: 1, PelicanCount: 1},
		},
	}
}

func TestEventsMsgPopulatesGrid(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3

	m.Update(eventsMsg{payload: fake.payload})

	if len(m.entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(m.entries))
	}
	found := false
	for _, cell := range m.grid.Cells {
		if cell.DateKey == "2024-03-10" && len(cell.Entries) == 1 {
			found = true
		}
	}
	if !found {
		t.Error("event not bucketed into its UTC civil day")
	}
}

func TestMonthNavigationDoesNotRefetch(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.Update(eventsMsg{payload: fake.payload})

	before := fake.eventFetches
	year, month := m.year, m.month
	_, cmd := m.Update(keyMsg(">"))
	if msgs := runCmd(cmd); len(msgs) != 0 {
		t.Errorf("month navigation produced commands: %v", msgs)
	}
	if fake.eventFetches != before {
		t.Errorf("month navigation refetched: %d -> %d", before, fake.eventFetches)
	}
	if m.month == month && m.year == year {
		t.Error("month did not advance")
	}
}

func TestTimezoneChangeRerendersFromCache(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.Update(eventsMsg{payload: fake.payload})

	if m.entries[0].DateKey != "2024-03-10" {
		t.Fatalf("UTC date key = %q", m.entries[0].DateKey)
	}

	m.setZone("America/New_York")

	if fake.eventFetches != 0 {
		t.Errorf("timezone change refetched %d times", fake.eventFetches)
	}
	if m.entries[0].DateKey != "2024-03-09" {
		t.Errorf("date key after zone change = %q, want 2024-03-09", m.entries[0].DateKey)
	}
	if m.store.LoadTimezone() != "America/New_York" {
		t.Error("timezone choice not persisted")
	}
}

func TestRefreshKeyFetches(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)

	_, cmd := m.Update(keyMsg("r"))
	pump(m, cmd)
	if fake.eventFetches != 1 {
		t.Errorf("eventFetches = %d, want 1", fake.eventFetches)
	}
	if fake.scheduleFetches != 0 {
		t.Errorf("schedule feed fetched with legacy_schedules off")
	}
}

func TestLegacySchedulesFetched(t *testing.T) {
	fake := &fakeSource{
		payload:   testPayload(),
		schedules: &atlas.SchedulesPayload{OK: true},
	}
	m := newTestModel(t, fake)
	m.config.LegacySchedules = true

	_, cmd := m.Update(keyMsg("r"))
	pump(m, cmd)
	if fake.scheduleFetches != 1 {
		t.Errorf("scheduleFetches = %d, want 1", fake.scheduleFetches)
	}
}

func TestCreateInvalidInputSendsNothing(t *testing.T) {
	fake := &fakeSource{}
	m := newTestModel(t, fake)
	m.mode = ViewEventEditor
	m.input = []rune("2024-05-01 6:00pm-8:00pm ")
	m.cursorPos = len(m.input)

	_, cmd := m.Update(keyMsg("enter"))
	if cmd != nil {
		t.Error("invalid input produced a command")
	}
	if len(fake.created) != 0 {
		t.Errorf("created %d events from invalid input", len(fake.created))
	}
	if m.message == "" {
		t.Error("no feedback message shown")
	}
}

func TestCreateEndBeforeStartRollsToNextDay(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.mode = ViewEventEditor
	m.input = []rune("2024-05-01 11:00pm-1:00am Ark: Wipe")
	m.cursorPos = len(m.input)

	_, cmd := m.Update(keyMsg("enter"))
	pump(m, cmd)

	if len(fake.created) != 1 {
		t.Fatalf("created %d events, want 1", len(fake.created))
	}
	req := fake.created[0]
	if req.StartUTC != "2024-05-01T23:00:00Z" {
		t.Errorf("StartUTC = %q", req.StartUTC)
	}
	if req.StopUTC != "2024-05-02T01:00:00Z" {
		t.Errorf("StopUTC = %q, want next-day rollover", req.StopUTC)
	}
	if req.Game != "Ark" || req.Name != "Wipe" {
		t.Errorf("Game/Name = %q/%q", req.Game, req.Name)
	}
	// Successful create triggers a full refetch.
	if fake.eventFetches != 1 {
		t.Errorf("eventFetches after create = %d, want 1", fake.eventFetches)
	}
}

func TestCreateWithoutGameUsesServerName(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.mode = ViewEventEditor
	m.input = []rune("2024-05-01 6:00pm Maintenance window")
	m.cursorPos = len(m.input)

	_, cmd := m.Update(keyMsg("enter"))
	runCmd(cmd)

	if len(fake.created) != 1 {
		t.Fatalf("created %d events, want 1", len(fake.created))
	}
	if fake.created[0].Game != "Pelican" {
		t.Errorf("Game = %q, want server default", fake.created[0].Game)
	}
}

func TestKeyBindingsAreConfigurable(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StateFile = filepath.Join(dir, "filters.json")
	cfg.TimezoneFile = filepath.Join(dir, "timezone")
	cfg.Timezone = "UTC"
	cfg.KeyBindings["quit"] = "x"
	cfg.KeyBindings["new_event"] = "a"

	m := NewModel(cfg, fake)
	m.width, m.height = 120, 40

	if _, cmd := m.Update(keyMsg("q")); cmd != nil {
		t.Error("unbound q still produced a command")
	}
	_, cmd := m.Update(keyMsg("x"))
	if cmd == nil {
		t.Fatal("rebound quit key did nothing")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("rebound quit key did not quit")
	}

	m.Update(keyMsg("a"))
	if m.mode != ViewEventEditor {
		t.Error("rebound new_event key did not open the editor")
	}
}

func TestEditorHandlesMultiByteInput(t *testing.T) {
	fake := &fakeSource{}
	m := newTestModel(t, fake)
	m.mode = ViewEventEditor
	m.input = nil
	m.cursorPos = 0

	for _, s := range []string{"C", "a", "f", "é", " ", "日", "本"} {
		m.Update(keyMsg(s))
	}
	if got := string(m.input); got != "Café 日本" {
		t.Fatalf("buffer = %q, want %q", got, "Café 日本")
	}

	// Backspace removes a whole character, not a byte.
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if got := string(m.input); got != "Café 日" {
		t.Errorf("buffer after backspace = %q, want %q", got, "Café 日")
	}

	// Cursor movement and insertion land between characters, never
	// inside one.
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(keyMsg("の"))
	got := string(m.input)
	if got != "Café の日" {
		t.Errorf("buffer after mid-insert = %q, want %q", got, "Café の日")
	}
	if !utf8.ValidString(got) {
		t.Errorf("buffer is not valid UTF-8: %q", got)
	}
}

func TestCreateAcceptsNonASCIITitle(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.mode = ViewEventEditor
	m.input = []rune("2024-05-01 ")
	m.cursorPos = len(m.input)

	for _, s := range []string{"6", "p", "m", " ", "F", "ê", "t", "e"} {
		m.Update(keyMsg(s))
	}
	_, cmd := m.Update(keyMsg("enter"))
	runCmd(cmd)

	if len(fake.created) != 1 {
		t.Fatalf("created %d events, want 1", len(fake.created))
	}
	if name := fake.created[0].Name; name != "Fête" {
		t.Errorf("Name = %q, want %q", name, "Fête")
	}
	if !utf8.ValidString(fake.created[0].Name) {
		t.Errorf("submitted name is not valid UTF-8: %q", fake.created[0].Name)
	}
}

func TestOfflineKeepsCacheAndShowsMessage(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.Update(eventsMsg{payload: fake.payload})

	m.Update(eventsMsg{err: errors.New("connection refused")})

	if m.message != "Pelican offline" {
		t.Errorf("message = %q", m.message)
	}
	if len(m.entries) != 2 {
		t.Errorf("cache dropped on network failure: %d entries", len(m.entries))
	}
}

func TestDisabledReasonMessage(t *testing.T) {
	fake := &fakeSource{}
	m := newTestModel(t, fake)

	m.Update(eventsMsg{payload: &atlas.EventsPayload{OK: false, Reason: "disabled"}})

	if m.message != "Pelican disabled" {
		t.Errorf("message = %q", m.message)
	}
}

func TestStalePayloadStillRenders(t *testing.T) {
	fake := &fakeSource{}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3

	payload := testPayload()
	payload.OK = false
	payload.Stale = true
	payload.Reason = "offline"
	m.Update(eventsMsg{payload: payload})

	if !m.stale {
		t.Error("stale flag not set")
	}
	if len(m.entries) != 2 {
		t.Errorf("stale events not rendered: %d entries", len(m.entries))
	}
}

func TestFilterTogglePersistsAndHides(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.Update(eventsMsg{payload: fake.payload})

	m.Update(keyMsg("f"))
	if !m.focusFilters {
		t.Fatal("filter pane not focused")
	}
	m.Update(keyMsg("space"))

	hidden := m.sources[0].Name
	if m.filters.IsVisible(hidden) {
		t.Fatalf("%s still visible after toggle", hidden)
	}
	for _, cell := range m.grid.Cells {
		for _, entry := range cell.Entries {
			if entry.Source == hidden {
				t.Fatalf("hidden source %s still in grid", hidden)
			}
		}
	}
	if _, err := os.Stat(m.config.StateFile); err != nil {
		t.Errorf("filter state not persisted: %v", err)
	}
}

func TestDeletePermissions(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.config.ConfirmDelete = false
	m.Update(eventsMsg{payload: fake.payload})

	// Rust event was created by root; steve may not delete it.
	m.cursor = m.cellForDate("2024-03-12")
	m.mode = ViewDetails
	m.detailIndex = 0
	_, cmd := m.Update(keyMsg("d"))
	if cmd != nil || len(fake.deletedEvents) != 0 {
		t.Error("non-owner delete went through")
	}

	// The Ark event is steve's own.
	m.cursor = m.cellForDate("2024-03-10")
	m.mode = ViewDetails
	m.detailIndex = 0
	_, cmd = m.Update(keyMsg("d"))
	pump(m, cmd)
	if len(fake.deletedEvents) != 1 || fake.deletedEvents[0] != 1 {
		t.Errorf("deletedEvents = %v, want [1]", fake.deletedEvents)
	}
	if fake.eventFetches != 1 {
		t.Errorf("delete did not refetch: %d", fake.eventFetches)
	}
}

func TestDeleteConfirmation(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.Update(eventsMsg{payload: fake.payload})

	m.cursor = m.cellForDate("2024-03-10")
	m.mode = ViewDetails
	m.detailIndex = 0

	_, cmd := m.Update(keyMsg("d"))
	if cmd != nil || len(fake.deletedEvents) != 0 {
		t.Fatal("delete fired without confirmation")
	}
	_, cmd = m.Update(keyMsg("d"))
	runCmd(cmd)
	if len(fake.deletedEvents) != 1 {
		t.Errorf("confirmed delete did not fire: %v", fake.deletedEvents)
	}
}

func TestSourceResync(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.Update(eventsMsg{payload: fake.payload})

	m.Update(keyMsg("f"))
	_, cmd := m.Update(keyMsg("R"))
	pump(m, cmd)
	if len(fake.resynced) != 1 || fake.resynced[0] != 10 {
		t.Errorf("resynced = %v, want [10]", fake.resynced)
	}
	if fake.eventFetches != 1 {
		t.Errorf("resync did not refetch: %d", fake.eventFetches)
	}
}

func TestSourceDeleteRequiresAdmin(t *testing.T) {
	fake := &fakeSource{payload: testPayload()}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3
	m.config.ConfirmDelete = false
	m.Update(eventsMsg{payload: fake.payload})

	m.Update(keyMsg("f"))
	_, cmd := m.Update(keyMsg("D"))
	if cmd != nil || len(fake.deletedSources) != 0 {
		t.Error("non-admin source delete went through")
	}

	m.config.Admin = true
	_, cmd = m.Update(keyMsg("D"))
	runCmd(cmd)
	if len(fake.deletedSources) != 1 || fake.deletedSources[0] != 10 {
		t.Errorf("deletedSources = %v, want [10]", fake.deletedSources)
	}
}

func TestSourceFallbackFromEvents(t *testing.T) {
	fake := &fakeSource{}
	m := newTestModel(t, fake)
	m.year, m.month = 2024, 3

	payload := testPayload()
	payload.Sources = nil
	m.Update(eventsMsg{payload: payload})

	if len(m.sources) != 2 {
		t.Fatalf("derived %d sources, want 2", len(m.sources))
	}
	names := map[string]bool{}
	for _, src := range m.sources {
		names[src.Name] = true
	}
	if !names["Ark"] || !names["Rust"] {
		t.Errorf("derived sources = %v", names)
	}
}
