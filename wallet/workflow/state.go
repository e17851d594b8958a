package workflow

import "fmt"

// State of a single workflow run. Failed is terminal and can be entered from any other state.
type State int

const (
	Init State = iota
	AliasResolved
	RevealChecked
	Built
	Signed
	Submitted
	Failed
)

var stateNames = [...]string{
	Init:          "init",
	AliasResolved: "alias_resolved",
	RevealChecked: "reveal_checked",
	Built:         "built",
	Signed:        "signed",
	Submitted:     "submitted",
	Failed:        "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// next returns true when the run may move from "s" to "to".
func (s State) next(to State) bool {
	if s == Failed || s == Submitted {
		return false
	}
	return to == Failed || to == s+1
}
