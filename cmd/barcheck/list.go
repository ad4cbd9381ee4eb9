package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/scenario"
)

func listCommand(args []string, stdout io.Writer) (int, error) {
	fs := newFlagSet("list", stdout)
	var (
		cfg       configFlags
		overrides common.FlagOverrides
	)
	cfg.register(fs)
	fs.StringVar(&overrides.ScenariosDir, "scenarios-dir", "", "Directory of declarative *.yaml scenarios")
	if err := parseFlags(fs, args); err != nil {
		return exitUsage, err
	}

	config, err := cfg.load(overrides)
	if err != nil {
		return exitUsage, err
	}

	registry, err := loadRegistry(config.Runner.ScenariosDir, arbor.NewNoOpLogger())
	if err != nil {
		return exitUsage, err
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tDESCRIPTION")
	for _, s := range registry.All() {
		source := "built-in"
		if script, ok := s.(*scenario.Script); ok {
			source = script.Source()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name(), source, s.Description())
	}
	return exitPass, w.Flush()
}
