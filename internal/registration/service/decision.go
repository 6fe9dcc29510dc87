package service

import "gemnet/internal/registration/models"

// DecisionKind enumerates guard outcomes.
type DecisionKind int

const (
	// DecisionPending means the controller has not settled yet; the caller
	// should hold rather than act on state that may still be loading.
	DecisionPending DecisionKind = iota

	// DecisionAllowed means the requested step is reachable.
	DecisionAllowed

	// DecisionRedirect means access was refused; Target names the earliest
	// incomplete step the caller should go to instead.
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionPending:
		return "PENDING"
	case DecisionAllowed:
		return "ALLOWED"
	case DecisionRedirect:
		return "REDIRECT"
	default:
		return "UNKNOWN"
	}
}

// Decision is the guard's answer for a step access check. A refusal always
// names a concrete redirect target; there is no silent no-op outcome.
type Decision struct {
	Kind   DecisionKind
	Target models.Step // set when Kind is DecisionRedirect
}

// Allowed is shorthand for checking the decision kind.
func (d Decision) Allowed() bool { return d.Kind == DecisionAllowed }
