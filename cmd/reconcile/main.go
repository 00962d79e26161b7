package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AnatoleLucet/reconcile"
	"github.com/urfave/cli/v3"
)

const (
	configKey      = "config"
	logLevelKey    = "log-level"
	itemsKey       = "items"
	roundsKey      = "rounds"
	yieldKey       = "yield-ms"
	seedKey        = "seed"
	concurrentKey  = "concurrent"
	defaultItems   = 1_000
	defaultRounds  = 200
	defaultSeed    = 1
	defaultTreeLen = 3
)

func main() {
	cmd := &cli.Command{
		Name:  "reconcile",
		Usage: "Exercise the render engine against an in-memory host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "Path to a TOML config file",
			},
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "Log level (trace, debug, info, warning, error, disabled)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "bench",
				Usage: "Time commits of a keyed list under random edits",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: itemsKey, Usage: "Number of list items", Value: defaultItems},
					&cli.IntFlag{Name: roundsKey, Usage: "Number of re-renders", Value: defaultRounds},
					&cli.IntFlag{Name: yieldKey, Usage: "Time slice in milliseconds, 0 keeps the config value"},
					&cli.IntFlag{Name: seedKey, Usage: "Seed for the edit sequence", Value: defaultSeed},
					&cli.BoolFlag{Name: concurrentKey, Usage: "Render at default priority through the scheduler"},
				},
				Action: bench,
			},
			{
				Name:   "trace",
				Usage:  "Print every host operation of a short update sequence",
				Action: trace,
			},
			{
				Name:  "tree",
				Usage: "Print the committed node tree of a sample app",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: itemsKey, Usage: "Number of list items", Value: defaultTreeLen},
				},
				Action: tree,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRuntime builds a runtime from the global flags. Extra options apply last.
func newRuntime(cmd *cli.Command, opts ...reconcile.Option) (*reconcile.Runtime, error) {
	cfg, err := reconcile.LoadConfig(cmd.String(configKey))
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if l := cmd.String(logLevelKey); l != "" {
		level = l
	}
	logger, err := reconcile.NewLogger(os.Stderr, level)
	if err != nil {
		return nil, err
	}

	all := append([]reconcile.Option{reconcile.WithConfig(cfg), reconcile.WithLogger(logger)}, opts...)
	return reconcile.NewRuntime(all...), nil
}
