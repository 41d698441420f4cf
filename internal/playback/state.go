package playback

import (
	"fmt"

	"github.com/roach88/hackpath/internal/content"
)

// State is the player state.
type State int

const (
	Idle State = iota
	Playing
	Paused
	AutoAdvancing
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case AutoAdvancing:
		return "auto_advancing"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time view of a Player.
type Status struct {
	RoutineID string `json:"routine_id"`
	State     State  `json:"state"`
	Index     int    `json:"index"`
	// Countdown is the remaining seconds while AutoAdvancing, else 0.
	Countdown     int  `json:"countdown"`
	AutoNavigated bool `json:"auto_navigated"`
	Autoplay      bool `json:"autoplay"`
	Percentage    int  `json:"percentage"`

	Completed content.Set `json:"-"`
}
