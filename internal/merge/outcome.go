package merge

import (
	"fmt"

	"github.com/gravitas-games/cachegrid/internal/grid"
)

// Outcome names the result of a take or place action.
type Outcome int

const (
	Taken Outcome = iota
	InventoryOccupied
	TooFar
	NothingToTake
	Placed
	Merged
	NothingToPlace
	Rejected
	NoCache
)

var outcomeNames = map[Outcome]string{
	Taken:             "taken",
	InventoryOccupied: "inventory_occupied",
	TooFar:            "too_far",
	NothingToTake:     "nothing_to_take",
	Placed:            "placed",
	Merged:            "merged",
	NothingToPlace:    "nothing_to_place",
	Rejected:          "rejected",
	NoCache:           "no_cache",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Success reports whether the outcome changed game state.
func (o Outcome) Success() bool {
	return o == Taken || o == Placed || o == Merged
}

// Result describes one action after it has been applied.
type Result struct {
	Outcome Outcome    `json:"outcome"`
	Coord   grid.Coord `json:"coord"`
	// Value is the target cache's value after the action.
	Value int `json:"value"`
	// Inventory is the held token after the action, 0 when empty.
	Inventory int  `json:"inventory"`
	Won       bool `json:"won"`
	Threshold int  `json:"threshold"`
}

// Status returns the line a host shows the player.
func (r Result) Status() string {
	held := fmt.Sprintf("%d points accumulated", r.Inventory)
	switch r.Outcome {
	case Taken:
		if r.Won {
			return fmt.Sprintf("You win! You have achieved %d points!", r.Threshold)
		}
		return held
	case InventoryOccupied:
		return held + ". Already holding a token"
	case TooFar:
		return held + ". Too far to access cache"
	case NothingToTake:
		return held + ". Cache is empty"
	case Placed:
		return held
	case Merged:
		if r.Won {
			return fmt.Sprintf("You win! You have made a %d token!", r.Threshold)
		}
		return held + ". You have combined similar tokens!"
	case NothingToPlace:
		return held + ". No token available to place"
	case Rejected:
		return held + ". Only matching tokens can be combined"
	case NoCache:
		return "There is no cache here"
	}
	return held
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	for k, name := range outcomeNames {
		if name == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}
