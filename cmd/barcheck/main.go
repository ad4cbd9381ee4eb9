package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/scenario"
)

// Exit codes
const (
	exitPass  = 0
	exitFail  = 1
	exitUsage = 2
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

// stringList collects a repeatable flag; comma-separated values are split
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			*s = append(*s, trimmed)
		}
	}
	return nil
}

// usageError marks failures that exit with exitUsage
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

type command struct {
	name  string
	short string
	run   func(args []string, stdout io.Writer) (int, error)
}

func commands() []command {
	return []command{
		{"run", "Run scenarios against the application", runCommand},
		{"list", "List built-in and declarative scenarios", listCommand},
		{"history", "Show recent runs from the history store", historyCommand},
		{"contract", "Serve the application and verify its DOM contract", contractCommand},
		{"version", "Print version information", versionCommand},
	}
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitPass
	}

	for _, cmd := range commands() {
		if cmd.name != args[0] {
			continue
		}
		code, err := cmd.run(args[1:], stdout)
		if err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return exitPass
			}
			fmt.Fprintf(stderr, "barcheck %s: %v\n", cmd.name, err)
			var uerr usageError
			if errors.As(err, &uerr) {
				return exitUsage
			}
			return exitFail
		}
		return code
	}

	fmt.Fprintf(stderr, "barcheck: unknown command %q\n\n", args[0])
	printUsage(stderr)
	return exitUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: barcheck <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'barcheck <command> -h' for command flags.")
}

// configFlags are shared by every command that reads configuration
type configFlags struct {
	files configPaths
	root  string
}

func (c *configFlags) register(fs *flag.FlagSet) {
	fs.Var(&c.files, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	fs.Var(&c.files, "c", "Configuration file path (shorthand)")
	fs.StringVar(&c.root, "root", "", "Directory containing the application's index.html (overrides config)")
}

// load resolves configuration: defaults -> file1 -> file2 -> ... -> env -> flags
func (c *configFlags) load(overrides common.FlagOverrides) (*common.Config, error) {
	files := c.files
	// Auto-discover config file if not specified
	if len(files) == 0 {
		for _, candidate := range []string{"barcheck.toml", "deployments/local/barcheck.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				files = append(files, candidate)
				break
			}
		}
	}

	config, err := common.LoadFromFiles(files...)
	if err != nil {
		return nil, usageError{err}
	}

	overrides.Root = c.root
	common.ApplyFlagOverrides(config, overrides)

	if err := config.Validate(); err != nil {
		return nil, usageError{err}
	}
	return config, nil
}

func newFlagSet(name string, stdout io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("barcheck "+name, flag.ContinueOnError)
	fs.SetOutput(stdout)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// explicitInt returns value only when one of names was set on the command line,
// so an explicit zero can override configuration
func explicitInt(fs *flag.FlagSet, value *int, names ...string) *int {
	var set bool
	fs.Visit(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				set = true
			}
		}
	})
	if !set {
		return nil
	}
	return value
}

// loadRegistry returns the built-in scenarios plus any declarative ones in dir
func loadRegistry(dir string, logger arbor.ILogger) (*scenario.Registry, error) {
	registry := scenario.Builtins()
	if dir == "" {
		return registry, nil
	}

	scripts, err := scenario.LoadDir(dir)
	if err != nil {
		return nil, usageError{err}
	}
	for _, s := range scripts {
		if err := registry.Register(s); err != nil {
			return nil, usageError{fmt.Errorf("%s: %w", s.Source(), err)}
		}
	}

	logger.Debug().Str("dir", dir).Int("scripts", len(scripts)).Msg("Declarative scenarios loaded")
	return registry, nil
}
