package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the harness configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Browser BrowserConfig `toml:"browser"`
	Output  OutputConfig  `toml:"output"`
	Runner  RunnerConfig  `toml:"runner"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig controls the static file server that hosts the application under test
type ServerConfig struct {
	Host string `toml:"host" validate:"required"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"` // 0 = OS-assigned ephemeral port
	Root string `toml:"root" validate:"required"`        // Directory containing the application's index.html
}

// BrowserConfig controls the Chrome instance launched per scenario
type BrowserConfig struct {
	Headless          bool     `toml:"headless"`
	ExecPath          string   `toml:"exec_path"` // Empty = let chromedp locate Chrome
	NoSandbox         bool     `toml:"no_sandbox"`
	DisableGPU        bool     `toml:"disable_gpu"`
	ViewportWidth     int      `toml:"viewport_width" validate:"gt=0"`
	ViewportHeight    int      `toml:"viewport_height" validate:"gt=0"`
	Permissions       []string `toml:"permissions" validate:"dive,oneof=camera microphone geolocation clipboard-read clipboard-write notifications"`
	NavigationTimeout Duration `toml:"navigation_timeout" validate:"gt=0"`
	ActionTimeout     Duration `toml:"action_timeout" validate:"gt=0"`
	ReadySelector     string   `toml:"ready_selector"` // Empty = wait for network idle
}

// OutputConfig controls where screenshots and summaries are written
type OutputConfig struct {
	ResultsDir          string `toml:"results_dir" validate:"required"`
	FullPageScreenshots bool   `toml:"full_page_screenshots"`
}

// RunnerConfig controls scenario selection and scheduling
type RunnerConfig struct {
	Concurrency  int      `toml:"concurrency" validate:"gte=1,lte=16"`
	Scenarios    []string `toml:"scenarios"`     // Empty = all registered scenarios
	ScenariosDir string   `toml:"scenarios_dir"` // Directory of declarative *.yaml scenarios
	Schedule     string   `toml:"schedule"`      // Cron expression; empty = run once
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents the run history database configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path" validate:"required_if=Enabled true"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level         string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output        []string `toml:"output" validate:"dive,oneof=stdout console file"`
	BrowserEvents bool     `toml:"browser_events"` // Write per-session browser-events.log
}

// Duration is a time.Duration written as a Go duration string ("30s") in TOML
type Duration time.Duration

// UnmarshalText parses a duration string such as "500ms" or "1m30s"
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in Go duration syntax
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 0,
			Root: ".",
		},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			DisableGPU:        true,
			ViewportWidth:     1280,
			ViewportHeight:    720,
			Permissions:       []string{"camera"},
			NavigationTimeout: Duration(30 * time.Second),
			ActionTimeout:     Duration(10 * time.Second),
		},
		Output: OutputConfig{
			ResultsDir:          "./results",
			FullPageScreenshots: true,
		},
		Runner: RunnerConfig{
			Concurrency: 1,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: false,
				Path:    "./data/history",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Output:        []string{"stdout"},
			BrowserEvents: true,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env
// CLI flags are applied afterwards by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier files
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies BARCHECK_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if host := os.Getenv("BARCHECK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("BARCHECK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if root := os.Getenv("BARCHECK_SERVER_ROOT"); root != "" {
		config.Server.Root = root
	}

	// Browser configuration
	if headless := os.Getenv("BARCHECK_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if execPath := os.Getenv("BARCHECK_BROWSER_EXEC_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if navTimeout := os.Getenv("BARCHECK_BROWSER_NAVIGATION_TIMEOUT"); navTimeout != "" {
		if d, err := time.ParseDuration(navTimeout); err == nil {
			config.Browser.NavigationTimeout = Duration(d)
		}
	}
	if actionTimeout := os.Getenv("BARCHECK_BROWSER_ACTION_TIMEOUT"); actionTimeout != "" {
		if d, err := time.ParseDuration(actionTimeout); err == nil {
			config.Browser.ActionTimeout = Duration(d)
		}
	}
	if permissions := os.Getenv("BARCHECK_BROWSER_PERMISSIONS"); permissions != "" {
		config.Browser.Permissions = splitList(permissions)
	}

	// Output configuration
	if resultsDir := os.Getenv("BARCHECK_RESULTS_DIR"); resultsDir != "" {
		config.Output.ResultsDir = resultsDir
	}

	// Runner configuration
	if concurrency := os.Getenv("BARCHECK_RUNNER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Runner.Concurrency = c
		}
	}
	if scenarios := os.Getenv("BARCHECK_SCENARIOS"); scenarios != "" {
		config.Runner.Scenarios = splitList(scenarios)
	}
	if dir := os.Getenv("BARCHECK_SCENARIOS_DIR"); dir != "" {
		config.Runner.ScenariosDir = dir
	}
	if schedule := os.Getenv("BARCHECK_SCHEDULE"); schedule != "" {
		config.Runner.Schedule = schedule
	}

	// Storage configuration
	if badgerPath := os.Getenv("BARCHECK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
		config.Storage.Badger.Enabled = true
	}

	// Logging configuration
	if level := os.Getenv("BARCHECK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("BARCHECK_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// FlagOverrides holds command-line values that take precedence over files and env
type FlagOverrides struct {
	Root         string
	Host         string
	Port         *int // nil when -port was not given; 0 restores the ephemeral port
	Headed       bool
	Scenarios    []string
	Concurrency  int
	Schedule     string
	ScenariosDir string
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.Root != "" {
		config.Server.Root = flags.Root
	}
	if flags.Host != "" {
		config.Server.Host = flags.Host
	}
	if flags.Port != nil {
		config.Server.Port = *flags.Port
	}
	if flags.Headed {
		config.Browser.Headless = false
	}
	if len(flags.Scenarios) > 0 {
		config.Runner.Scenarios = flags.Scenarios
	}
	if flags.Concurrency > 0 {
		config.Runner.Concurrency = flags.Concurrency
	}
	if flags.Schedule != "" {
		config.Runner.Schedule = flags.Schedule
	}
	if flags.ScenariosDir != "" {
		config.Runner.ScenariosDir = flags.ScenariosDir
	}
}

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	info, err := os.Stat(c.Server.Root)
	if err != nil {
		return fmt.Errorf("server root %s: %w", c.Server.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("server root %s is not a directory", c.Server.Root)
	}
	// Parallel scenarios each bind their own server
	if c.Server.Port != 0 && c.Runner.Concurrency > 1 {
		return fmt.Errorf("server port %d cannot be fixed when runner concurrency is %d; use port 0", c.Server.Port, c.Runner.Concurrency)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
