package job

import "strings"

// State is a job lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateUploading State = "uploading"
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateFetching  State = "fetching"
	StateParsing   State = "parsing"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

var allStates = []State{
	StatePending,
	StateUploading,
	StateSubmitted,
	StatePolling,
	StateFetching,
	StateParsing,
	StateSucceeded,
	StateFailed,
	StateCancelled,
}

// AllStates returns every state in lifecycle order.
func AllStates() []State {
	return append([]State(nil), allStates...)
}

// ParseState converts a string into a State, if recognized.
func ParseState(value string) (State, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, s := range allStates {
		if string(s) == normalized {
			return s, true
		}
	}
	return "", false
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// next lists the forward transitions allowed from each non-terminal state.
// Failed and Cancelled are reachable from every non-terminal state and are
// checked separately.
var next = map[State][]State{
	StatePending:   {StateUploading},
	StateUploading: {StateSubmitted},
	StateSubmitted: {StatePolling},
	StatePolling:   {StatePolling, StateFetching},
	StateFetching:  {StateParsing},
	StateParsing:   {StateSucceeded},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	for _, candidate := range next[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
