package pipeline

// Phase is a state of the pipeline state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuildingInput
	PhaseValidatingInput
	PhaseScheduling
	PhaseExecuting
	PhaseMergingOutput
	PhaseBuildingOutput
	PhaseValidatingOutput
	PhaseRepresenting
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:             "idle",
	PhaseBuildingInput:    "building_input",
	PhaseValidatingInput:  "validating_input",
	PhaseScheduling:       "scheduling",
	PhaseExecuting:        "executing",
	PhaseMergingOutput:    "merging_output",
	PhaseBuildingOutput:   "building_output",
	PhaseValidatingOutput: "validating_output",
	PhaseRepresenting:     "representing",
	PhaseDone:             "done",
	PhaseFailed:           "failed",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool { return p == PhaseDone || p == PhaseFailed }
