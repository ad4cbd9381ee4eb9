package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/server"
)

func contractCommand(args []string, stdout io.Writer) (int, error) {
	fs := newFlagSet("contract", stdout)
	var (
		cfg       configFlags
		overrides common.FlagOverrides
		port      int
	)
	cfg.register(fs)
	fs.StringVar(&overrides.Host, "host", "", "Static server host (overrides config)")
	fs.IntVar(&port, "port", 0, "Static server port, 0 for ephemeral (overrides config)")
	if err := parseFlags(fs, args); err != nil {
		return exitUsage, err
	}
	overrides.Port = explicitInt(fs, &port, "port")

	config, err := cfg.load(overrides)
	if err != nil {
		return exitUsage, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Browser.NavigationTimeout.Std())
	defer cancel()

	srv, err := server.Start(ctx, config.Server.Root, config.Server.Host, config.Server.Port, arbor.NewNoOpLogger())
	if err != nil {
		return exitFail, err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = srv.Stop(stopCtx)
	}()

	rep, err := contract.V1.Verify(ctx, srv.URL())
	if err != nil {
		return exitFail, err
	}

	fmt.Fprintf(stdout, "✓ %s satisfies DOM contract %s\n", rep.URL, rep.Version)
	fmt.Fprintf(stdout, "  title: %s\n", rep.Title)
	fmt.Fprintf(stdout, "  elements: %d\n", rep.Elements)
	fmt.Fprintf(stdout, "  runtime ids (checked in the browser): %v\n", contract.V1.RuntimeIDs)
	return exitPass, nil
}
