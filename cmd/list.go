package cmd

import (
	"fmt"
	"time"

	"github.com/uptimeatlas/atlascal/internal/atlas"
	"github.com/uptimeatlas/atlascal/internal/calendar"
	"github.com/uptimeatlas/atlascal/internal/config"
	"github.com/uptimeatlas/atlascal/internal/state"
	"github.com/uptimeatlas/atlascal/internal/tz"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List today's events and exit",
	Long:  `List all events for today in a simple text format and exit.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		initConfig()
	}

	client := atlas.NewClient(cfg.ServerURL, cfg.APIToken)
	payload, err := client.FetchEvents()
	if err != nil {
		return fmt.Errorf("error fetching events: %w", err)
	}
	if !payload.OK && len(payload.Events) == 0 {
		return fmt.Errorf("%s", atlas.StatusLabel(payload.Reason))
	}

	conv := tz.NewConverter(tz.NewFormatter())
	zone := resolveZone(cfg)

	norm := &calendar.Normalizer{
		Conv:       conv,
		Zone:       zone,
		ServerName: cfg.ServerName,
		TimeFormat: cfg.TimeFormat,
	}
	entries := norm.NormalizeEvents(payload.Events, map[string]string{})

	today := conv.DateKey(time.Now(), zone)
	fmt.Printf("Events for %s:\n", time.Now().Format(cfg.DateFormat))

	count := 0
	for _, entry := range entries {
		if entry.DateKey != today {
			continue
		}
		count++
		fmt.Printf("  %s - %s\n", entry.TimeLabel, entry.Title)
		if entry.Description != "" {
			fmt.Printf("    %s\n", entry.Description)
		}
	}
	if count == 0 {
		fmt.Println("No events found.")
	}
	if payload.Stale {
		fmt.Println("(showing stale data; the dashboard server is unreachable)")
	}

	return nil
}

// resolveZone follows the dashboard's precedence: the viewer's persisted
// timezone choice wins over the configured one, which wins over local.
// Without this, list and the dashboard can disagree on what "today" is.
func resolveZone(cfg *config.Config) string {
	store := state.NewStore(cfg.StateFile, cfg.TimezoneFile)
	if zone := store.LoadTimezone(); zone != "" {
		return zone
	}
	if cfg.Timezone != "" {
		return cfg.Timezone
	}
	return time.Now().Location().String()
}
