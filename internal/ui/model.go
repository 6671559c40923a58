package ui

import (
	"fmt"
	"time"

	"github.com/uptimeatlas/atlascal/internal/atlas"
	"github.com/uptimeatlas/atlascal/internal/calendar"
	"github.com/uptimeatlas/atlascal/internal/config"
	"github.com/uptimeatlas/atlascal/internal/parser"
	"github.com/uptimeatlas/atlascal/internal/state"
	"github.com/uptimeatlas/atlascal/internal/tz"

	tea "github.com/charmbracelet/bubbletea"
)

type ViewMode int

const (
	ViewCalendar ViewMode = iota
	ViewDetails
	ViewEventEditor
	ViewTimezonePicker
	ViewHelp
)

type Model struct {
	// Core components
	config  *config.Config
	source  atlas.EventSource
	store   *state.Store
	watcher *state.Watcher
	parser  *parser.EventParser
	conv    *tz.Converter

	// View state
	mode    ViewMode
	zone    string
	year    int
	month   int
	cursor  int // selected grid cell, 0..41
	grid    *calendar.Grid
	entries []calendar.Entry

	// Server state, cached between fetches
	rawEvents    []atlas.Event
	rawSchedules []atlas.Schedule
	sources      []atlas.Source
	filters      *state.FilterState
	stale        bool
	statusReason string
	loaded       bool

	// Filter pane state
	focusFilters bool
	filterIndex  int

	// Details state
	detailIndex   int
	confirmDelete bool
	pendingSource int // filter pane source delete confirmation, -1 when idle

	// Editor state. The buffer is runes so cursor movement and editing
	// never land inside a multi-byte character.
	input     []rune
	cursorPos int

	// Timezone picker state
	zoneIndex int

	// UI state
	keymap       map[string]string // pressed key -> bound action
	width        int
	height       int
	message      string
	messageTimer *time.Timer

	// Styles
	styles Styles
}

func NewModel(cfg *config.Config, source atlas.EventSource) *Model {
	conv := tz.NewConverter(tz.NewFormatter())
	store := state.NewStore(cfg.StateFile, cfg.TimezoneFile)

	zone := store.LoadTimezone()
	if zone == "" {
		zone = cfg.Timezone
	}
	if zone == "" {
		zone = time.Now().Location().String()
	}

	now := time.Now()
	parts := conv.ZonedParts(now, zone)

	// Invert action->key so handlers can look up what a pressed key
	// means under the user's bindings.
	keymap := make(map[string]string, len(cfg.KeyBindings))
	for action, key := range cfg.KeyBindings {
		keymap[key] = action
	}

	m := &Model{
		config:        cfg,
		source:        source,
		store:         store,
		parser:        parser.NewEventParser(),
		conv:          conv,
		mode:          ViewCalendar,
		zone:          zone,
		year:          parts.Year,
		month:         parts.Month,
		filters:       store.Load(),
		pendingSource: -1,
		keymap:        keymap,
		styles:        NewStyles(cfg.Colors),
	}
	ensurePickerZone(zone)
	m.rebuild()
	m.cursor = m.cellForDate(conv.DateKey(now, zone))

	if watcher, err := state.NewWatcher(); err == nil {
		m.watcher = watcher
		watcher.AddFile(cfg.StateFile)
	}

	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchCmd(), m.tickCmd()}
	if cmd := m.watchStateCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tickMsg:
		if m.config.AutoRefresh {
			return m, tea.Batch(m.fetchCmd(), m.tickCmd())
		}
		return m, m.tickCmd()

	case eventsMsg:
		m.applyEvents(msg)
		return m, nil

	case schedulesMsg:
		m.applySchedules(msg)
		return m, nil

	case mutationMsg:
		return m.applyMutation(msg)

	case resyncMsg:
		if msg.err != nil {
			m.showMessage("Pelican offline")
			return m, nil
		}
		if !msg.result.OK {
			m.showMessage("Resync failed: " + msg.result.Reason)
			return m, nil
		}
		m.showMessage(fmt.Sprintf("Resynced %d events", msg.result.Events))
		return m, m.fetchCmd()

	case stateChangedMsg:
		m.filters = m.store.Load()
		m.rebuild()
		return m, m.watchStateCmd()

	case messageTimeoutMsg:
		m.message = ""
		return m, nil
	}

	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.mode {
	case ViewDetails:
		return m.viewDetails()
	case ViewEventEditor:
		return m.viewEventEditor()
	case ViewTimezonePicker:
		return m.viewTimezonePicker()
	case ViewHelp:
		return m.viewHelp()
	default:
		return m.viewCalendar()
	}
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// Global bindings apply only where they cannot shadow text entry
	// or pane-local keys.
	switch m.keymap[key] {
	case "quit":
		if m.mode == ViewCalendar && !m.focusFilters {
			return m, tea.Quit
		}

	case "help":
		if m.mode == ViewHelp {
			m.mode = ViewCalendar
			return m, nil
		}
		if m.mode == ViewCalendar && !m.focusFilters {
			m.mode = ViewHelp
			return m, nil
		}
	}

	switch m.mode {
	case ViewCalendar:
		if m.focusFilters {
			return m.handleFilterKeys(msg)
		}
		return m.handleCalendarKeys(msg)
	case ViewDetails:
		return m.handleDetailsKeys(msg)
	case ViewEventEditor:
		return m.handleEditorKeys(msg)
	case ViewTimezonePicker:
		return m.handlePickerKeys(msg)
	case ViewHelp:
		m.mode = ViewCalendar
	}

	return m, nil
}

func (m *Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Cursor movement is fixed vi/arrow style; everything else goes
	// through the configured bindings.
	switch msg.String() {
	case "l", "right":
		if m.cursor < calendar.GridCells-1 {
			m.cursor++
		}
		return m, nil

	case "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "j", "down":
		if m.cursor+7 < calendar.GridCells {
			m.cursor += 7
		}
		return m, nil

	case "k", "up":
		if m.cursor-7 >= 0 {
			m.cursor -= 7
		}
		return m, nil

	case "J":
		m.shiftMonth(1)
		return m, nil

	case "K":
		m.shiftMonth(-1)
		return m, nil
	}

	switch m.keymap[msg.String()] {
	case "next_month":
		m.shiftMonth(1)

	case "prev_month":
		m.shiftMonth(-1)

	case "today":
		now := time.Now()
		parts := m.conv.ZonedParts(now, m.zone)
		m.year, m.month = parts.Year, parts.Month
		m.rebuild()
		m.cursor = m.cellForDate(m.conv.DateKey(now, m.zone))

	case "refresh":
		m.showMessage("Refreshing...")
		return m, m.fetchCmd()

	case "filters":
		m.focusFilters = true
		m.filterIndex = 0
		m.pendingSource = -1

	case "timezone":
		m.mode = ViewTimezonePicker
		m.zoneIndex = m.currentZoneIndex()

	case "new_event":
		m.openEditor()

	case "details":
		if cell := m.selectedCell(); cell != nil && len(cell.Entries) > 0 {
			m.mode = ViewDetails
			m.detailIndex = 0
			m.confirmDelete = false
		}
	}

	return m, nil
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f", "q":
		m.focusFilters = false
		m.pendingSource = -1

	case "j", "down":
		if m.filterIndex < len(m.sources)-1 {
			m.filterIndex++
		}
		m.pendingSource = -1

	case "k", "up":
		if m.filterIndex > 0 {
			m.filterIndex--
		}
		m.pendingSource = -1

	case " ", "space", "enter":
		if m.filterIndex < len(m.sources) {
			m.filters.Toggle(m.sources[m.filterIndex].Name)
			m.saveFilters()
			m.rebuild()
		}

	case "R":
		if m.filterIndex < len(m.sources) {
			src := m.sources[m.filterIndex]
			if src.ID == 0 {
				m.showMessage("Source cannot be resynced")
				return m, nil
			}
			m.showMessage("Resyncing " + src.Name + "...")
			return m, m.resyncSourceCmd(src.ID)
		}

	case "D":
		if m.filterIndex >= len(m.sources) {
			return m, nil
		}
		if !m.config.Admin {
			m.showMessage("Only admins can delete sources")
			return m, nil
		}
		src := m.sources[m.filterIndex]
		if src.ID == 0 {
			m.showMessage("Source cannot be deleted")
			return m, nil
		}
		if m.config.ConfirmDelete && m.pendingSource != m.filterIndex {
			m.pendingSource = m.filterIndex
			m.showMessage("Delete all events for " + src.Name + "? Press D again to confirm")
			return m, nil
		}
		m.pendingSource = -1
		return m, m.deleteSourceCmd(src.ID)
	}

	return m, nil
}

func (m *Model) handleDetailsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cell := m.selectedCell()
	if cell == nil || len(cell.Entries) == 0 {
		m.mode = ViewCalendar
		return m, nil
	}

	switch msg.String() {
	case "esc", "q", "enter":
		m.mode = ViewCalendar
		m.confirmDelete = false

	case "j", "down":
		if m.detailIndex < len(cell.Entries)-1 {
			m.detailIndex++
		}
		m.confirmDelete = false

	case "k", "up":
		if m.detailIndex > 0 {
			m.detailIndex--
		}
		m.confirmDelete = false

	default:
		if m.keymap[msg.String()] != "delete_event" {
			return m, nil
		}
		entry := cell.Entries[m.detailIndex]
		if entry.ID == 0 {
			m.showMessage("Scheduled occurrences cannot be deleted here")
			return m, nil
		}
		if !m.canDelete(entry) {
			m.showMessage("You can only delete your own events")
			return m, nil
		}
		if m.config.ConfirmDelete && !m.confirmDelete {
			m.confirmDelete = true
			m.showMessage("Press d again to delete")
			return m, nil
		}
		m.confirmDelete = false
		return m, m.deleteEventCmd(entry.ID)
	}

	return m, nil
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.mode = ViewCalendar
		return m, nil

	case tea.KeyEnter:
		return m.submitEditor()

	case tea.KeyBackspace:
		if m.cursorPos > 0 {
			m.input = append(m.input[:m.cursorPos-1], m.input[m.cursorPos:]...)
			m.cursorPos--
		}

	case tea.KeyLeft:
		if m.cursorPos > 0 {
			m.cursorPos--
		}

	case tea.KeyRight:
		if m.cursorPos < len(m.input) {
			m.cursorPos++
		}

	case tea.KeyRunes, tea.KeySpace:
		runes := msg.Runes
		if msg.Type == tea.KeySpace {
			runes = []rune{' '}
		}
		for _, r := range runes {
			rest := append([]rune{r}, m.input[m.cursorPos:]...)
			m.input = append(m.input[:m.cursorPos:m.cursorPos], rest...)
			m.cursorPos++
		}
	}

	return m, nil
}

func (m *Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "z":
		m.mode = ViewCalendar

	case "j", "down":
		if m.zoneIndex < len(pickerZones)-1 {
			m.zoneIndex++
		}

	case "k", "up":
		if m.zoneIndex > 0 {
			m.zoneIndex--
		}

	case "enter":
		zone := pickerZones[m.zoneIndex]
		m.setZone(zone)
		m.mode = ViewCalendar
	}

	return m, nil
}

// setZone re-renders the cached server state in a new timezone. No
// refetch: the feed is UTC instants and only their civil projection
// changes.
func (m *Model) setZone(zone string) {
	key := ""
	if cell := m.selectedCell(); cell != nil {
		key = cell.DateKey
	}
	m.zone = zone
	if err := m.store.SaveTimezone(zone); err != nil {
		m.showMessage("Timezone not saved: " + err.Error())
	}
	m.rebuild()
	if key != "" {
		m.cursor = m.cellForDate(key)
	}
	m.showMessage("Timezone: " + zone)
}

func (m *Model) shiftMonth(delta int) {
	m.month += delta
	for m.month > 12 {
		m.month -= 12
		m.year++
	}
	for m.month < 1 {
		m.month += 12
		m.year--
	}
	// Month navigation re-renders from cache; only refresh and
	// mutations hit the server.
	m.rebuild()
}

// openEditor seeds the quick-entry line with the selected day and the
// next 5-minute boundary, leaving the cursor at the title position.
func (m *Model) openEditor() {
	date := ""
	if cell := m.selectedCell(); cell != nil {
		date = cell.DateKey
	}
	now := time.Now()
	parts := m.conv.ZonedParts(now, m.zone)
	minute := ((parts.Minute / 5) + 1) * 5
	hour := parts.Hour
	if minute >= 60 {
		minute -= 60
		hour = (hour + 1) % 24
	}
	endHour := (hour + 1) % 24

	m.mode = ViewEventEditor
	m.input = []rune(fmt.Sprintf("%s %02d:%02d-%02d:%02d ", date, hour, minute, endHour, minute))
	m.cursorPos = len(m.input)
}

func (m *Model) submitEditor() (tea.Model, tea.Cmd) {
	parsed, err := m.parser.Parse(string(m.input))
	if err != nil {
		m.showMessage("Parse error: " + err.Error())
		return m, nil
	}
	if !parsed.HasStart {
		m.showMessage("A start time is required")
		return m, nil
	}

	game := parsed.Game
	if game == "" {
		game = m.config.ServerName
	}

	start := m.conv.CivilInstant(parsed.Year, parsed.Month, parsed.Day, parsed.StartHour, parsed.StartMinute, m.zone)
	var stop time.Time
	if parsed.HasEnd {
		stop = m.conv.CivilInstant(parsed.Year, parsed.Month, parsed.Day, parsed.EndHour, parsed.EndMinute, m.zone)
		if !stop.After(start) {
			// End at or before start means the event runs past
			// midnight into the next civil day.
			stop = m.conv.CivilInstant(parsed.Year, parsed.Month, parsed.Day+1, parsed.EndHour, parsed.EndMinute, m.zone)
		}
	} else {
		stop = start.Add(time.Hour)
	}

	req := atlas.CreateEventRequest{
		Game:        game,
		Name:        parsed.Name,
		Description: parsed.Description,
		StartUTC:    start.UTC().Format(time.RFC3339),
		StopUTC:     stop.UTC().Format(time.RFC3339),
	}

	m.mode = ViewCalendar
	return m, m.createEventCmd(req)
}

func (m *Model) applyEvents(msg eventsMsg) {
	if msg.err != nil {
		m.statusReason = "offline"
		m.showMessage(atlas.StatusLabel("offline"))
		return
	}

	payload := msg.payload
	if payload.OK {
		m.statusReason = ""
	} else {
		m.statusReason = payload.Reason
		m.showMessage(atlas.StatusLabel(payload.Reason))
	}
	m.stale = payload.Stale

	// A failed feed can still carry the last good snapshot; render
	// whatever the server gave us and keep the cache otherwise.
	if payload.OK || len(payload.Events) > 0 {
		m.rawEvents = payload.Events
		m.sources = payload.Sources
		m.loaded = true
		m.rebuild()
	}
}

func (m *Model) applySchedules(msg schedulesMsg) {
	if msg.err != nil {
		return
	}
	if !msg.payload.OK {
		return
	}
	m.rawSchedules = msg.payload.Schedules
	m.rebuild()
}

func (m *Model) applyMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.showMessage("Pelican offline")
		return m, nil
	}
	if !msg.result.OK {
		m.showMessage("Error: " + msg.result.FailureReason())
		return m, nil
	}
	m.showMessage(msg.action)
	// Mutations invalidate the cache wholesale; refetch rather than
	// patching it locally.
	return m, m.fetchCmd()
}

// rebuild recomputes everything derived from the cached server state:
// the source list, filter merge, normalized entries, and the grid.
// Filter state is saved before the render so what is on screen is never
// ahead of what is on disk.
func (m *Model) rebuild() {
	sources := m.sources
	if len(sources) == 0 {
		sources = atlas.SourcesFromEvents(m.rawEvents, m.config.ServerName)
	}
	m.sources = sources

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
	}
	changed := m.filters.Merge(names)

	norm := &calendar.Normalizer{
		Conv:       m.conv,
		Zone:       m.zone,
		ServerName: m.config.ServerName,
		TimeFormat: m.config.TimeFormat,
	}
	colorsBefore := len(m.filters.Colors)
	entries := norm.NormalizeEvents(m.rawEvents, m.filters.Colors)
	if m.config.LegacySchedules {
		entries = append(entries, norm.NormalizeSchedules(m.rawSchedules, m.year, m.month, m.filters.Colors)...)
	}
	if changed || len(m.filters.Colors) != colorsBefore {
		m.saveFilters()
	}

	m.entries = entries
	m.grid = calendar.BuildGrid(m.conv, m.zone, m.year, m.month, entries, m.filters.IsVisible, time.Now())
}

func (m *Model) saveFilters() {
	if err := m.store.Save(m.filters); err != nil {
		m.showMessage("Filters not saved: " + err.Error())
	}
}

func (m *Model) selectedCell() *calendar.Cell {
	if m.grid == nil || m.cursor < 0 || m.cursor >= calendar.GridCells {
		return nil
	}
	return &m.grid.Cells[m.cursor]
}

func (m *Model) cellForDate(key string) int {
	if m.grid != nil {
		for i := range m.grid.Cells {
			if m.grid.Cells[i].DateKey == key {
				return i
			}
		}
	}
	return 0
}

func (m *Model) canDelete(entry calendar.Entry) bool {
	if m.config.Admin {
		return true
	}
	return entry.CreatedBy != "" && entry.CreatedBy == m.config.User
}

func (m *Model) currentZoneIndex() int {
	for i, zone := range pickerZones {
		if zone == m.zone {
			return i
		}
	}
	return 0
}

func (m *Model) showMessage(msg string) {
	m.message = msg
	if m.messageTimer != nil {
		m.messageTimer.Stop()
	}
	m.messageTimer = time.AfterFunc(3*time.Second, func() {
		m.message = ""
	})
}

func (m *Model) fetchCmd() tea.Cmd {
	cmds := []tea.Cmd{m.fetchEventsCmd()}
	if m.config.LegacySchedules {
		cmds = append(cmds, m.fetchSchedulesCmd())
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetchEventsCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		payload, err := source.FetchEvents()
		return eventsMsg{payload: payload, err: err}
	}
}

func (m *Model) fetchSchedulesCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		payload, err := source.FetchSchedules()
		return schedulesMsg{payload: payload, err: err}
	}
}

func (m *Model) createEventCmd(req atlas.CreateEventRequest) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		result, err := source.CreateEvent(req)
		return mutationMsg{result: result, err: err, action: "Event created"}
	}
}

func (m *Model) deleteEventCmd(id int64) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		result, err := source.DeleteEvent(id)
		return mutationMsg{result: result, err: err, action: "Event deleted"}
	}
}

func (m *Model) deleteSourceCmd(id int64) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		result, err := source.DeleteSource(id)
		return mutationMsg{result: result, err: err, action: "Source events deleted"}
	}
}

func (m *Model) resyncSourceCmd(id int64) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		result, err := source.ResyncSource(id)
		return resyncMsg{result: result, err: err}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.config.RefreshRate, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *Model) watchStateCmd() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	changes := m.watcher.Changes()
	return func() tea.Msg {
		<-changes
		return stateChangedMsg{}
	}
}

// pickerZones is the timezone choice list. The machine's local zone is
// prepended at startup when it isn't already present.
var pickerZones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Sao_Paulo",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Moscow",
	"Asia/Kolkata",
	"Asia/Singapore",
	"Asia/Tokyo",
	"Australia/Sydney",
	"Pacific/Auckland",
}

func init() {
	ensurePickerZone(time.Now().Location().String())
}

func ensurePickerZone(zone string) {
	if zone == "" || zone == "Local" {
		return
	}
	for _, known := range pickerZones {
		if known == zone {
			return
		}
	}
	pickerZones = append([]string{zone}, pickerZones...)
}

// Message types
type tickMsg struct{}
type messageTimeoutMsg struct{}
type stateChangedMsg struct{}

type eventsMsg struct {
	payload *atlas.EventsPayload
	err     error
}

type schedulesMsg struct {
	payload *atlas.SchedulesPayload
	err     error
}

type mutationMsg struct {
	result *atlas.MutationResult
	err    error
	action string
}

type resyncMsg struct {
	result *atlas.ResyncResult
	err    error
}
