package installer

// Phase is a step of the install sequence.
type Phase int

const (
	PhaseUnlock Phase = iota
	PhasePurge
	PhaseMaterialize
	PhaseLock
	PhaseUpdateRegistry
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseUnlock:         "unlock",
	PhasePurge:          "purge",
	PhaseMaterialize:    "materialize",
	PhaseLock:           "lock",
	PhaseUpdateRegistry: "update-registry",
	PhaseDone:           "done",
	PhaseFailed:         "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further phase follows p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}
