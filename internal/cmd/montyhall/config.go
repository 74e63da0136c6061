// Package montyhall parses montyhall subcommand flags and runs them.
package montyhall

import (
	"errors"
	"flag"
	"time"

	"github.com/MJE43/montyhall-sim-go/internal/api"
	"github.com/MJE43/montyhall-sim-go/internal/engine"
	"github.com/MJE43/montyhall-sim-go/internal/platform/config"
)

// SeedConfig selects a reproducible stream. An empty server seed means an
// entropy-seeded run.
type SeedConfig struct {
	ServerSeed string `env:"SERVER_SEED"`
	ClientSeed string `env:"CLIENT_SEED"`
}

// Seeds returns the engine form of the configured seeds.
func (c SeedConfig) Seeds() engine.Seeds {
	return engine.Seeds{Server: c.ServerSeed, Client: c.ClientSeed}
}

func (c *SeedConfig) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.ServerSeed, "server-seed", c.ServerSeed, "server seed for a reproducible run")
	fs.StringVar(&c.ClientSeed, "client-seed", c.ClientSeed, "client seed for a reproducible run")
}

// PlayConfig holds play command configuration.
type PlayConfig struct {
	SeedConfig
	Doors      int    `env:"DOORS" envDefault:"3"`
	Iterations int    `env:"ITERATIONS" envDefault:"10000"`
	Switch     bool   `env:"SWITCH" envDefault:"true"`
	Nonce      uint64 `env:"NONCE"`
	Workers    int    `env:"WORKERS"`
}

// SweepConfig holds sweep command configuration.
type SweepConfig struct {
	SeedConfig
	Doors      int           `env:"DOORS" envDefault:"3"`
	Iterations int           `env:"ITERATIONS" envDefault:"100"`
	Policy     string        `env:"POLICY" envDefault:"alternate"`
	ScriptFile string        `env:"SCRIPT_FILE"`
	Workers    int           `env:"WORKERS"`
	Timeout    time.Duration `env:"TIMEOUT"`
	Format     string        `env:"FORMAT" envDefault:"svg"`
	OutDir     string        `env:"OUT_DIR" envDefault:"."`
	Output     string        `env:"OUTPUT"`
	Width      int           `env:"CHART_WIDTH"`
	Height     int           `env:"CHART_HEIGHT"`
}

// ServeConfig holds serve command configuration.
type ServeConfig struct {
	Addr               string        `env:"ADDR" envDefault:"127.0.0.1:8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxDoors           int           `env:"MAX_DOORS" envDefault:"1000"`
	MaxPlayIterations  int           `env:"MAX_PLAY_ITERATIONS" envDefault:"10000000"`
	MaxSweepIterations int           `env:"MAX_SWEEP_ITERATIONS" envDefault:"5000"`
}

// Limits converts the configured caps into API limits. Unset caps keep the
// API defaults.
func (c ServeConfig) Limits() api.Limits {
	limits := api.DefaultLimits
	if c.MaxDoors > 0 {
		limits.MaxDoors = c.MaxDoors
	}
	if c.MaxPlayIterations > 0 {
		limits.MaxPlayIterations = c.MaxPlayIterations
	}
	if c.MaxSweepIterations > 0 {
		limits.MaxSweepIterations = c.MaxSweepIterations
	}
	return limits
}

var errNoArgs = errors.New("unexpected positional arguments")

// ParsePlayConfig parses environment and flags into PlayConfig.
func ParsePlayConfig(fs *flag.FlagSet, args []string) (PlayConfig, error) {
	var cfg PlayConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return PlayConfig{}, err
	}
	fs.IntVar(&cfg.Doors, "doors", cfg.Doors, "number of doors")
	fs.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "number of rounds to play")
	fs.BoolVar(&cfg.Switch, "switch", cfg.Switch, "take the alternate door after the reveal")
	fs.Uint64Var(&cfg.Nonce, "nonce", cfg.Nonce, "nonce of the seeded stream")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel workers (0 = 1 when seeded, GOMAXPROCS otherwise)")
	cfg.SeedConfig.bind(fs)
	if err := parseArgs(fs, args); err != nil {
		return PlayConfig{}, err
	}
	return cfg, nil
}

// ParseSweepConfig parses environment and flags into SweepConfig.
func ParseSweepConfig(fs *flag.FlagSet, args []string) (SweepConfig, error) {
	var cfg SweepConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return SweepConfig{}, err
	}
	fs.IntVar(&cfg.Doors, "doors", cfg.Doors, "number of doors")
	fs.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "largest step; step i plays i rounds")
	fs.StringVar(&cfg.Policy, "policy", cfg.Policy, "switch policy: alternate, always, never, both, script")
	fs.StringVar(&cfg.ScriptFile, "script", cfg.ScriptFile, "JavaScript file for the script policy")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel workers (0 = GOMAXPROCS)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "stop the sweep after this long (0 = no limit)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "artifact format: svg, png, csv, json")
	fs.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "directory for the artifact")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "artifact path (overrides -out-dir and the default name)")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "chart width in points")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "chart height in points")
	cfg.SeedConfig.bind(fs)
	if err := parseArgs(fs, args); err != nil {
		return SweepConfig{}, err
	}
	return cfg, nil
}

// ParseServeConfig parses environment and flags into ServeConfig.
func ParseServeConfig(fs *flag.FlagSet, args []string) (ServeConfig, error) {
	var cfg ServeConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return ServeConfig{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-request timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	fs.IntVar(&cfg.MaxDoors, "max-doors", cfg.MaxDoors, "largest door count a request may use")
	fs.IntVar(&cfg.MaxPlayIterations, "max-play-iterations", cfg.MaxPlayIterations, "largest play iteration count")
	fs.IntVar(&cfg.MaxSweepIterations, "max-sweep-iterations", cfg.MaxSweepIterations, "largest sweep iteration count")
	if err := parseArgs(fs, args); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

func parseArgs(fs *flag.FlagSet, args []string) error {
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errNoArgs
	}
	return nil
}
