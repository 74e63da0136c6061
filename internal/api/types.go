package api

import (
	"github.com/MJE43/montyhall-sim-go/internal/engine"
	"github.com/MJE43/montyhall-sim-go/internal/games"
	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidDoorCount      = "invalid_door_count"
	ErrTypeInvalidIterationCount = "invalid_iteration_count"
	ErrTypeInvalidPolicy         = "invalid_policy"
	ErrTypeInvalidFormat         = "invalid_format"
	ErrTypeScript                = "script_error"
	ErrTypeValidation            = "validation_error"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidDoorCount, ErrTypeInvalidIterationCount, ErrTypeInvalidPolicy,
		ErrTypeInvalidFormat, ErrTypeScript, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// PlayRequest asks for the win fraction of repeated rounds
type PlayRequest struct {
	Doors      int          `json:"doors"`
	Switch     bool         `json:"switch"`
	Iterations int          `json:"iterations"`
	Seeds      engine.Seeds `json:"seeds"`
	Nonce      uint64       `json:"nonce,omitempty"`
	// Workers defaults to 1 for seeded requests, so replays match, and to
	// GOMAXPROCS otherwise.
	Workers int `json:"workers,omitempty"`
}

// PlayResponse carries the win fraction and the theoretical value
type PlayResponse struct {
	RunID          string  `json:"run_id"`
	WinFraction    float64 `json:"win_fraction"`
	Percentage     string  `json:"percentage"`
	Wins           int     `json:"wins"`
	Iterations     int     `json:"iterations"`
	Doors          int     `json:"doors"`
	Switched       bool    `json:"switched"`
	Expected       float64 `json:"expected"`
	Workers        int     `json:"workers"`
	ServerSeedHash string  `json:"server_seed_hash,omitempty"`
	EngineVersion  string  `json:"engine_version"`
}

// RoundRequest asks for a single inspected round
type RoundRequest struct {
	Doors int          `json:"doors"`
	Seeds engine.Seeds `json:"seeds"`
	Nonce uint64       `json:"nonce,omitempty"`
}

// RoundResponse shows the layout, the picks and the host's reveal
type RoundResponse struct {
	Outcome        games.Outcome `json:"outcome"`
	StayWins       bool          `json:"stay_wins"`
	SwitchWins     bool          `json:"switch_wins"`
	ServerSeedHash string        `json:"server_seed_hash,omitempty"`
	EngineVersion  string        `json:"engine_version"`
}

// SweepResponse wraps a sweep result
type SweepResponse struct {
	*sweep.Result
	EngineVersion string `json:"engine_version"`
}

// SeedHashRequest represents a seed hashing request
type SeedHashRequest struct {
	ServerSeed string `json:"server_seed"`
}

// SeedHashResponse represents a seed hashing response
type SeedHashResponse struct {
	Hash          string `json:"hash"`
	EngineVersion string `json:"engine_version"`
}
