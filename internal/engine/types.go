package engine

import (
	"crypto/sha256"
	"encoding/hex"
)

// Seeds identify a reproducible random stream.
type Seeds struct {
	Server string `json:"server"` // ASCII; do NOT hex-decode
	Client string `json:"client"`
}

// IsZero reports whether no server seed was supplied.
func (s Seeds) IsZero() bool {
	return s.Server == ""
}

// HashServerSeed returns the hex SHA-256 commitment of a server seed.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
