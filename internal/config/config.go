package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server settings
	ServerURL  string
	APIToken   string
	ServerName string

	// Account settings
	User  string
	Admin bool

	// Display settings
	Timezone   string
	TimeFormat string
	DateFormat string

	// UI settings
	Colors      map[string]string
	KeyBindings map[string]string

	// Behavior settings
	AutoRefresh     bool
	RefreshRate     time.Duration
	ConfirmDelete   bool
	LegacySchedules bool

	// Storage settings
	StateFile    string
	TimezoneFile string
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "atlascal")

	return &Config{
		ServerURL:  "http://localhost:8080",
		APIToken:   os.Getenv("ATLAS_API_TOKEN"),
		ServerName: "Pelican",

		Timezone:   "",
		TimeFormat: "3:04 PM",
		DateFormat: "Jan 2, 2006",

		// Color specs are `<fg> [<bg>] [bold|underline|reverse]`;
		// colors are names, 256-palette indexes, or #rrggbb.
		Colors: map[string]string{
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
		},

		KeyBindings: map[string]string{
			"quit":         "q",
			"help":         "?",
			"today":        "t",
			"refresh":      "r",
			"new_event":    "n",
			"delete_event": "d",
			"details":      "enter",
			"filters":      "f",
			"timezone":     "z",
			"next_month":   ">",
			"prev_month":   "<",
		},

		AutoRefresh:     true,
		RefreshRate:     60 * time.Second,
		ConfirmDelete:   true,
		LegacySchedules: false,

		StateFile:    filepath.Join(dataDir, "filters.json"),
		TimezoneFile: filepath.Join(dataDir, "timezone"),
	}
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom loads defaults, then the first config file found. An
// explicit path wins over the search list and must exist.
func LoadConfigFrom(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if err := config.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("error loading config from %s: %w", path, err)
		}
		return config, nil
	}

	configPaths := []string{
		os.Getenv("ATLASCAL_CONFIG"),
		filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "atlascal", "atlascalrc"),
		filepath.Join(os.Getenv("HOME"), ".config", "atlascal", "atlascalrc"),
		filepath.Join(os.Getenv("HOME"), ".atlascalrc"),
	}

	for _, candidate := range configPaths {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			if err := config.loadFromFile(candidate); err != nil {
				return nil, fmt.Errorf("error loading config from %s: %w", candidate, err)
			}
			break
		}
	}

	return config, nil
}

func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

func (c *Config) parseLine(line string) error {
	// set variable value
	setRe := regexp.MustCompile(`^set\s+(\w+)\s+(.+)$`)
	if matches := setRe.FindStringSubmatch(line); matches != nil {
		return c.setVariable(matches[1], matches[2])
	}

	// bind key action
	bindRe := regexp.MustCompile(`^bind\s+(\S+)\s+(\S+)$`)
	if matches := bindRe.FindStringSubmatch(line); matches != nil {
		c.KeyBindings[matches[2]] = matches[1]
		return nil
	}

	// color element color_spec
	colorRe := regexp.MustCompile(`^color\s+(\w+)\s+(.+)$`)
	if matches := colorRe.FindStringSubmatch(line); matches != nil {
		c.Colors[matches[1]] = matches[2]
		return nil
	}

	return fmt.Errorf("unknown config line: %s", line)
}

func (c *Config) setVariable(name, value string) error {
	value = strings.Trim(value, `"'`)

	switch name {
	case "server_url":
		c.ServerURL = strings.TrimRight(value, "/")

	case "api_token":
		c.APIToken = value

	case "server_name":
		c.ServerName = value

	case "user":
		c.User = value

	case "admin":
		c.Admin = parseBool(value)

	case "timezone":
		c.Timezone = value

	case "time_format":
		c.TimeFormat = value

	case "date_format":
		c.DateFormat = value

	case "auto_refresh":
		c.AutoRefresh = parseBool(value)

	case "refresh_rate":
		rate, err := time.ParseDuration(value)
		if err != nil {
			if seconds, err2 := strconv.Atoi(value); err2 == nil {
				rate = time.Duration(seconds) * time.Second
			} else {
				return fmt.Errorf("invalid refresh_rate: %s", value)
			}
		}
		c.RefreshRate = rate

	case "confirm_delete":
		c.ConfirmDelete = parseBool(value)

	case "legacy_schedules":
		c.LegacySchedules = parseBool(value)

	case "state_file":
		c.StateFile = expandHome(value)

	case "timezone_file":
		c.TimezoneFile = expandHome(value)

	default:
		return fmt.Errorf("unknown config variable: %s", name)
	}

	return nil
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
