package phase

// Type identifies one phase of the fixed workshop sequence.
type Type string

const (
	TypeBrainstorming      Type = "brainstorming"
	TypeClusteringVoting   Type = "clustering_voting"
	TypeResultsFeasibility Type = "results_feasibility"
	TypeDiscussion         Type = "discussion"
	TypeSummary            Type = "summary"
)

// Sequence is the ordered list of phases every workshop runs through. Index
// -1 (models.BeforeFirstPhase) means the workshop has not entered phase 0 yet.
var Sequence = []Type{
	TypeBrainstorming,
	TypeClusteringVoting,
	TypeResultsFeasibility,
	TypeDiscussion,
	TypeSummary,
}

// Count returns the number of phases in the sequence.
func Count() int {
	return len(Sequence)
}

// At returns the phase at index, and false if index is out of range.
func At(index int) (Type, bool) {
	if index < 0 || index >= len(Sequence) {
		return "", false
	}
	return Sequence[index], true
}

// Known reports whether t is a member of the sequence.
func Known(t Type) bool {
	for _, p := range Sequence {
		if p == t {
			return true
		}
	}
	return false
}
