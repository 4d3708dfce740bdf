package pipeline

import "github.com/fwojciec/docint"

// State is the position of an execution in the pipeline.
type State int

// Execution states, in pipeline order. Done and Failed are terminal.
const (
	StateAccepted State = iota
	StateExtracting
	StatePostProcessingEarly
	StatePostProcessingMiddle
	StatePostProcessingLate
	StateScoring
	StateChunking
	StateValidating
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateAccepted:             "accepted",
	StateExtracting:           "extracting",
	StatePostProcessingEarly:  "post_processing_early",
	StatePostProcessingMiddle: "post_processing_middle",
	StatePostProcessingLate:   "post_processing_late",
	StateScoring:              "scoring",
	StateChunking:             "chunking",
	StateValidating:           "validating",
	StateDone:                 "done",
	StateFailed:               "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends an execution.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// stageState maps a post-processing stage to its state.
func stageState(stage docint.ProcessingStage) State {
	switch stage {
	case docint.StageEarly:
		return StatePostProcessingEarly
	case docint.StageMiddle:
		return StatePostProcessingMiddle
	default:
		return StatePostProcessingLate
	}
}

// canTransition reports whether an execution may move from one state to
// another. Executions only move forward; any live state may fail.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return to > from
}
