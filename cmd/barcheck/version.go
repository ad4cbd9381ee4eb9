package main

import (
	"fmt"
	"io"

	"github.com/ternarybob/barcheck/internal/common"
)

func versionCommand(args []string, stdout io.Writer) (int, error) {
	fs := newFlagSet("version", stdout)
	if err := parseFlags(fs, args); err != nil {
		return exitUsage, err
	}
	fmt.Fprintf(stdout, "barcheck version %s\n", common.GetFullVersion())
	return exitPass, nil
}
