package cmd

import (
	"fmt"
	"os"

	"github.com/uptimeatlas/atlascal/internal/atlas"
	"github.com/uptimeatlas/atlascal/internal/config"
	"github.com/uptimeatlas/atlascal/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	serverURL string
	apiToken  string
	timezone  string
	useLegacy bool
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "atlascal",
	Short: "A terminal calendar for UptimeAtlas dashboard servers",
	Long: `Atlascal is a terminal calendar frontend for the UptimeAtlas service
dashboard. It renders the dashboard's event feed as a month grid with
per-source filtering, timezone-correct day placement, and quick event
entry.`,
	RunE: runTUI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Dashboard server URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA timezone for the calendar")
	rootCmd.PersistentFlags().BoolVar(&useLegacy, "legacy", false, "Include legacy recurring schedules")
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfigFrom(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat the config file.
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if apiToken != "" {
		cfg.APIToken = apiToken
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if useLegacy {
		cfg.LegacySchedules = true
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	client := atlas.NewClient(cfg.ServerURL, cfg.APIToken)

	if err := client.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		fmt.Fprintf(os.Stderr, "Could not reach %s; showing cached data until it comes back\n", cfg.ServerURL)
	}

	model := ui.NewModel(cfg, client)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}

	return nil
}
