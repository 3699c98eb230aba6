package pipeline

// State is a coordinator state.
type State string

const (
	StateIdle                State = "idle"
	StateVerifying           State = "verifying"
	StateMerging             State = "merging"
	StateCompressing         State = "compressing"
	StateDelivering          State = "delivering"
	StateDetectingAndCleanup State = "detecting_and_cleanup"
	StateDone                State = "done"
	StateAbortedPreserving   State = "aborted_preserving"
)

var transitions = map[State][]State{
	StateIdle:                {StateVerifying},
	StateVerifying:           {StateMerging, StateDone, StateAbortedPreserving},
	StateMerging:             {StateCompressing, StateAbortedPreserving},
	StateCompressing:         {StateDelivering, StateAbortedPreserving},
	StateDelivering:          {StateDetectingAndCleanup, StateAbortedPreserving},
	StateDetectingAndCleanup: {StateDone},
}

// Terminal reports whether a run ends in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAbortedPreserving
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
