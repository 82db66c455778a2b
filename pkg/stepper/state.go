package stepper

import (
	"fmt"
	"strings"
)

// Action selects a boundary button.
type Action int

const (
	Increment Action = iota
	Decrement
)

// String returns "plus" or "minus", the names used in data-action.
func (a Action) String() string {
	switch a {
	case Increment:
		return "plus"
	case Decrement:
		return "minus"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction accepts plus, minus, increment and decrement.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plus", "increment", "+":
		return Increment, nil
	case "minus", "decrement", "-":
		return Decrement, nil
	}
	return 0, fmt.Errorf("unknown stepper action %q", s)
}

// State is the client-visible state of a stepper. The enabled state of the
// buttons is derived from it.
type State struct {
	Value int
	Min   int
	Max   int
}

// PlusEnabled reports whether incrementing can change the value.
func (s State) PlusEnabled() bool {
	return s.Value < s.Max
}

// MinusEnabled reports whether decrementing can change the value.
func (s State) MinusEnabled() bool {
	return s.Value > s.Min
}

// Valid reports whether min <= value <= max.
func (s State) Valid() error {
	if s.Min > s.Max {
		return fmt.Errorf("min %d greater than max %d", s.Min, s.Max)
	}
	if s.Value < s.Min || s.Value > s.Max {
		return fmt.Errorf("value %d outside [%d, %d]", s.Value, s.Min, s.Max)
	}
	return nil
}

// Next returns the state after a, and whether the value changed.
func Next(s State, a Action) (State, bool) {
	switch a {
	case Increment:
		if s.Value < s.Max {
			s.Value++
			return s, true
		}
	case Decrement:
		if s.Value > s.Min {
			s.Value--
			return s, true
		}
	}
	return s, false
}
