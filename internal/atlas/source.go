package atlas

import "strings"

// SourcesFromEvents derives a source list when the feed carries none,
// counting each event toward its owning source. Events without a game
// name fold into the server's default source. Locally created events
// don't count as externally managed.
func SourcesFromEvents(events []Event, serverName string) []Source {
	index := make(map[string]int)
	var sources []Source

	for _, event := range events {
		name := strings.TrimSpace(event.GameName)
		if name == "" {
			name = serverName
		}
		i, ok := index[name]
		if !ok {
			i = len(sources)
			index[name] = i
			sources = append(sources, Source{ID: event.GameID, Name: name})
		}
		sources[i].ActiveCount++
		if !event.IsLocal() {
			sources[i].PelicanCount++
		}
	}
	return sources
}
