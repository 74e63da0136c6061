// Package main runs the Monty Hall simulator from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MJE43/montyhall-sim-go/internal/api"
	montyhall "github.com/MJE43/montyhall-sim-go/internal/cmd/montyhall"
	"github.com/MJE43/montyhall-sim-go/internal/platform/config"
)

const usage = `usage: montyhall <command> [flags]

commands:
  play     play repeated rounds and print the win fraction
  sweep    play 1..N rounds per step and write one svg, png, csv or json artifact
  serve    serve the HTTP API
  version  print build information

Flags default from MONTYHALL_* environment variables.
Run "montyhall <command> -h" for command flags.`

func main() {
	// run returns before exiting so its deferred signal cleanup happens.
	if err := run(os.Args[1:]); err != nil {
		config.Exitf("%v", err)
	}
}

func run(argv []string) error {
	if len(argv) < 1 {
		return errors.New(usage)
	}
	cmd, args := argv[0], argv[1:]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "play":
		cfg, err := montyhall.ParsePlayConfig(fs, args)
		if err != nil {
			return fmt.Errorf("parse flags: %w", err)
		}
		if err := montyhall.RunPlay(ctx, cfg, os.Stdout); err != nil {
			return fmt.Errorf("play: %w", err)
		}

	case "sweep":
		cfg, err := montyhall.ParseSweepConfig(fs, args)
		if err != nil {
			return fmt.Errorf("parse flags: %w", err)
		}
		logger := log.New(os.Stderr, "[SWEEP] ", log.LstdFlags)
		if _, err := montyhall.RunSweep(ctx, cfg, logger, os.Stdout); err != nil {
			return fmt.Errorf("sweep: %w", err)
		}

	case "serve":
		cfg, err := montyhall.ParseServeConfig(fs, args)
		if err != nil {
			return fmt.Errorf("parse flags: %w", err)
		}
		logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
		if err := montyhall.RunServe(ctx, cfg, logger); err != nil {
			return fmt.Errorf("serve: %w", err)
		}

	case "version":
		info := api.GetVersionInfo()
		fmt.Printf("montyhall %s (commit %s, built %s)\n", info.EngineVersion, info.GitCommit, info.BuildTime)

	case "help", "-h", "--help":
		fmt.Println(usage)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
	return nil
}
