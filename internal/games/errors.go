package games

import "errors"

var (
	ErrInvalidDoorCount      = errors.New("door count must be greater than zero")
	ErrInvalidIterationCount = errors.New("iteration count must be greater than zero")
)
