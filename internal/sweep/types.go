package sweep

import (
	"errors"

	"github.com/MJE43/montyhall-sim-go/internal/engine"
)

// Policy selects the switch flag for each sweep step.
type Policy string

const (
	// PolicyAlternate switches on even steps and stays on odd ones.
	PolicyAlternate Policy = "alternate"
	PolicyAlways    Policy = "always"
	PolicyNever     Policy = "never"
	// PolicyBoth plays every step twice, once per switch flag.
	PolicyBoth Policy = "both"
	// PolicyScript evaluates Request.Script for every step.
	PolicyScript Policy = "script"
)

var ErrUnknownPolicy = errors.New("unknown switch policy")

// Request describes a sweep: for every step i in 1..Iterations a fresh
// simulation plays i rounds.
type Request struct {
	Doors      int          `json:"doors"`
	Iterations int          `json:"iterations"`
	Policy     Policy       `json:"policy,omitempty"`
	Script     string       `json:"script,omitempty"`
	Seeds      engine.Seeds `json:"seeds"`
	Workers    int          `json:"workers,omitempty"`
	TimeoutMs  int          `json:"timeout_ms,omitempty"`
}

// Record is one sweep step, the row handed to report rendering.
type Record struct {
	Iterations int     `json:"iterations"`
	Percentage float64 `json:"percentage"`
	Doors      int     `json:"doors"`
	Switched   bool    `json:"switched"`
}

// PolicySummary aggregates the records of one switch flag.
type PolicySummary struct {
	Records        int     `json:"records"`
	MeanPercentage float64 `json:"mean_percentage"`
	LastPercentage float64 `json:"last_percentage"`
	Expected       float64 `json:"expected"`
}

// Summary contains aggregate statistics.
type Summary struct {
	TotalRecords int           `json:"total_records"`
	TotalRounds  int64         `json:"total_rounds"`
	Stay         PolicySummary `json:"stay"`
	Switch       PolicySummary `json:"switch"`
	TimedOut     bool          `json:"timed_out,omitempty"`
	ElapsedMs    int64         `json:"elapsed_ms"`
}

// Result contains the complete sweep output. ScriptLogs holds the most
// recent log() lines of a script policy.
type Result struct {
	RunID      string   `json:"run_id"`
	Records    []Record `json:"records"`
	Summary    Summary  `json:"summary"`
	ScriptLogs []string `json:"script_logs,omitempty"`
	Echo       Request  `json:"echo"`
}

// job is one sweep step handed to a worker.
type job struct {
	iterations int
	switched   bool
}
