package api

import (
	"fmt"

	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

// Limits bound the work a single request may ask for. Door and iteration
// counts <= 0 are left to the simulator, which rejects them with its own
// errors.
type Limits struct {
	MaxDoors           int
	MaxPlayIterations  int
	MaxSweepIterations int
	MaxWorkers         int
	MaxTimeoutMs       int
	MaxScriptBytes     int
}

// DefaultLimits are used when the server is built without explicit limits
var DefaultLimits = Limits{
	MaxDoors:           1_000,
	MaxPlayIterations:  10_000_000,
	MaxSweepIterations: 5_000,
	MaxWorkers:         64,
	MaxTimeoutMs:       300_000,
	MaxScriptBytes:     16 << 10,
}

// FieldError names the offending request field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePlayRequest checks a play request against the limits
func ValidatePlayRequest(req *PlayRequest, limits Limits) *FieldError {
	if req.Doors > limits.MaxDoors {
		return &FieldError{"doors", fmt.Sprintf("too many doors (max %d)", limits.MaxDoors)}
	}
	if req.Iterations > limits.MaxPlayIterations {
		return &FieldError{"iterations", fmt.Sprintf("too many iterations (max %d)", limits.MaxPlayIterations)}
	}
	if req.Workers < 0 || req.Workers > limits.MaxWorkers {
		return &FieldError{"workers", fmt.Sprintf("workers must be between 0 and %d", limits.MaxWorkers)}
	}
	return nil
}

// ValidateRoundRequest checks a round request against the limits
func ValidateRoundRequest(req *RoundRequest, limits Limits) *FieldError {
	if req.Doors > limits.MaxDoors {
		return &FieldError{"doors", fmt.Sprintf("too many doors (max %d)", limits.MaxDoors)}
	}
	return nil
}

// ValidateSweepRequest checks a sweep request against the limits
func ValidateSweepRequest(req *sweep.Request, limits Limits) *FieldError {
	if req.Doors > limits.MaxDoors {
		return &FieldError{"doors", fmt.Sprintf("too many doors (max %d)", limits.MaxDoors)}
	}
	if req.Iterations > limits.MaxSweepIterations {
		return &FieldError{"iterations", fmt.Sprintf("too many iterations (max %d)", limits.MaxSweepIterations)}
	}
	if req.Workers < 0 || req.Workers > limits.MaxWorkers {
		return &FieldError{"workers", fmt.Sprintf("workers must be between 0 and %d", limits.MaxWorkers)}
	}
	if req.TimeoutMs < 0 {
		return &FieldError{"timeout_ms", "timeout_ms must be >= 0"}
	}
	if req.TimeoutMs > limits.MaxTimeoutMs {
		return &FieldError{"timeout_ms", fmt.Sprintf("timeout_ms too large (max %d ms)", limits.MaxTimeoutMs)}
	}
	if req.Policy == sweep.PolicyScript && req.Script == "" {
		return &FieldError{"script", "script is required for the script policy"}
	}
	if len(req.Script) > limits.MaxScriptBytes {
		return &FieldError{"script", fmt.Sprintf("script too large (max %d bytes)", limits.MaxScriptBytes)}
	}
	return nil
}

// ValidateSeedHashRequest validates a seed hash request
func ValidateSeedHashRequest(req *SeedHashRequest) *FieldError {
	if req.ServerSeed == "" {
		return &FieldError{"server_seed", "server_seed is required"}
	}
	return nil
}
