package model

import "fmt"

// State is the position of a Run in the report pipeline.
type State int

const (
	// StateIdle is a run that has not started. Preconditions are checked here.
	StateIdle State = iota

	// StateIdentifying is waiting on the multimodal identification call.
	StateIdentifying

	// StateResearching is waiting on the research model and its search tool.
	StateResearching

	// StateSynthesizing is waiting on the report writer model.
	StateSynthesizing

	// StateDone holds a complete report. Terminal.
	StateDone

	// StateFailed holds an error and no stage output. Terminal.
	StateFailed
)

// String returns the lower-case state name used in logs and the run log.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIdentifying:
		return "identifying"
	case StateResearching:
		return "researching"
	case StateSynthesizing:
		return "synthesizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for st := StateIdle; st <= StateFailed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return StateIdle, fmt.Errorf("unknown state %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// transitions lists the forward step out of each non-terminal state.
// Failed is reachable from every non-terminal state and is handled separately.
var transitions = map[State]State{
	StateIdle:         StateIdentifying,
	StateIdentifying:  StateResearching,
	StateResearching:  StateSynthesizing,
	StateSynthesizing: StateDone,
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return transitions[s] == next
}
