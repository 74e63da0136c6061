package montyhall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MJE43/montyhall-sim-go/internal/api"
	"github.com/MJE43/montyhall-sim-go/internal/engine"
	"github.com/MJE43/montyhall-sim-go/internal/games"
	"github.com/MJE43/montyhall-sim-go/internal/report"
	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// RunPlay plays cfg.Iterations rounds and prints the win fraction.
func RunPlay(ctx context.Context, cfg PlayConfig, out io.Writer) error {
	seeds := cfg.Seeds()
	sim, err := games.NewSimulation(cfg.Doors, engine.FromSeeds(seeds, cfg.Nonce))
	if err != nil {
		return err
	}

	workers := cfg.Workers
	if workers == 0 && !seeds.IsZero() {
		workers = 1
	}

	start := time.Now()
	wins, err := sim.WinsParallel(ctx, cfg.Switch, cfg.Iterations, workers)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	fraction := float64(wins) / float64(cfg.Iterations)

	p := printer()
	p.Fprintf(out, "doors:       %d\n", cfg.Doors)
	p.Fprintf(out, "switched:    %t\n", cfg.Switch)
	p.Fprintf(out, "wins:        %d / %d\n", wins, cfg.Iterations)
	p.Fprintf(out, "win rate:    %s (expected %s)\n",
		report.FormatPercentage(fraction, report.DefaultPrecision),
		report.FormatPercentage(games.Expected(cfg.Doors, cfg.Switch), report.DefaultPrecision))
	if !seeds.IsZero() {
		p.Fprintf(out, "server hash: %s\n", engine.HashServerSeed(seeds.Server))
	}
	p.Fprintf(out, "elapsed:     %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// RunSweep runs a sweep and writes exactly one artifact. It returns the path
// written.
func RunSweep(ctx context.Context, cfg SweepConfig, logger *log.Logger, out io.Writer) (string, error) {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return "", err
	}

	req := sweep.Request{
		Doors:      cfg.Doors,
		Iterations: cfg.Iterations,
		Policy:     sweep.Policy(cfg.Policy),
		Seeds:      cfg.Seeds(),
		Workers:    cfg.Workers,
		TimeoutMs:  int(cfg.Timeout.Milliseconds()),
	}
	if cfg.ScriptFile != "" {
		src, err := os.ReadFile(cfg.ScriptFile)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		req.Script = string(src)
		if req.Policy == sweep.PolicyAlternate {
			req.Policy = sweep.PolicyScript
		}
	}

	result, err := sweep.NewSweeper(logger).Run(ctx, req)
	if err != nil {
		return "", err
	}
	if len(result.Records) == 0 {
		return "", fmt.Errorf("sweep: %w", report.ErrNoRecords)
	}

	path := cfg.Output
	if path == "" {
		path = filepath.Join(cfg.OutDir, report.Filename(cfg.Doors, cfg.Iterations, format))
	}
	if err := writeArtifact(path, format, result.Records, report.ChartOptions{
		Width:  cfg.Width,
		Height: cfg.Height,
	}); err != nil {
		return "", err
	}

	p := printer()
	p.Fprintf(out, "wrote %s: %d records, %d rounds\n", path, result.Summary.TotalRecords, result.Summary.TotalRounds)
	for _, s := range []struct {
		name string
		sum  sweep.PolicySummary
	}{{"stay", result.Summary.Stay}, {"switch", result.Summary.Switch}} {
		if s.sum.Records == 0 {
			continue
		}
		p.Fprintf(out, "%-6s mean %s last %s expected %s\n", s.name,
			report.FormatPercentage(s.sum.MeanPercentage, report.DefaultPrecision),
			report.FormatPercentage(s.sum.LastPercentage, report.DefaultPrecision),
			report.FormatPercentage(s.sum.Expected, report.DefaultPrecision))
	}
	for _, line := range result.ScriptLogs {
		p.Fprintf(out, "script: %s\n", line)
	}
	if result.Summary.TimedOut {
		p.Fprintf(out, "timed out after %v; the artifact holds the finished steps only\n", cfg.Timeout)
	}
	return path, nil
}

// writeArtifact renders into a temporary file and renames it into place so
// a failed render never leaves a partial artifact.
func writeArtifact(path string, format report.Format, records []sweep.Record, opts report.ChartOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".montyhall-*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := report.Write(tmp, format, records, opts); err != nil {
		tmp.Close()
		return fmt.Errorf("render %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move artifact: %w", err)
	}
	return nil
}

// RunServe serves the HTTP API until ctx is cancelled.
func RunServe(ctx context.Context, cfg ServeConfig, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	server := api.NewServer(api.Options{
		Logger:         logger,
		Limits:         cfg.Limits(),
		RequestTimeout: cfg.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Sweeps can run up to the request timeout before writing.
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	logger.Printf("listening on %s", ln.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
