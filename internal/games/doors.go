package games

import "fmt"

// Door is the value behind one slot.
type Door uint8

const (
	Empty Door = iota
	Prize
)

// String returns the names used in records and JSON: "car" and "zonk".
func (d Door) String() string {
	if d == Prize {
		return "car"
	}
	return "zonk"
}

// MarshalText implements encoding.TextMarshaler.
func (d Door) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Door) UnmarshalText(text []byte) error {
	switch string(text) {
	case "car":
		*d = Prize
	case "zonk":
		*d = Empty
	default:
		return fmt.Errorf("unknown door value %q", text)
	}
	return nil
}

// Layout is an ordered door set holding exactly one Prize.
type Layout []Door

// PrizeIndex returns the position of the prize, or -1 for a malformed layout.
func (l Layout) PrizeIndex() int {
	for i, d := range l {
		if d == Prize {
			return i
		}
	}
	return -1
}

// Outcome is the result of one round.
type Outcome struct {
	Layout     Layout `json:"layout"`
	Contestant Door   `json:"contestant"`
	Alternate  Door   `json:"alternate"`

	ContestantIndex int `json:"contestant_index"`
	AlternateIndex  int `json:"alternate_index"`
	// RevealedIndex is -1 when the host had no door to open.
	RevealedIndex int `json:"revealed_index"`
}

// Won reports whether the round is a win under the given switch policy.
func (o Outcome) Won(switchDoor bool) bool {
	if switchDoor {
		return o.Alternate == Prize
	}
	return o.Contestant == Prize
}
