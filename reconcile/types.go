package reconcile

// Target is one DNS record to keep pointed at the current public address.
type Target struct {
	Domain string
	Type   string // "A" or "AAAA"
}

type OutcomeKind string

const (
	Unchanged OutcomeKind = "unchanged"
	Updated   OutcomeKind = "updated"
	Created   OutcomeKind = "created"
	Failed    OutcomeKind = "failed"
)

// Outcome is the result of reconciling a single target within one pass.
// Old and New are set for Updated; New alone for Created; Err for Failed.
type Outcome struct {
	Kind OutcomeKind
	Old  string
	New  string
	Err  error
}

type Results map[Target]Outcome

// OK reports whether every target converged this pass.
func (r Results) OK() bool {
	for _, outcome := range r {
		if outcome.Kind == Failed {
			return false
		}
	}
	return true
}
