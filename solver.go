package ctrd

import (
	"fmt"
)

// Status represents the satisfiability of a set of asserted facts.
type Status int

// Solver statuses.
const (
	Unknown Status = iota
	Sat
	Unsat
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return fmt.Sprintf("Status<%d>", s)
	}
}

// Solver represents an incremental satisfiability checker over boolean Expr.
type Solver interface {
	// Asserts a boolean fact in the current scope.
	Assert(expr Expr) error

	// Opens a new scope. Facts asserted afterwards are discarded by Pop.
	Push() error

	// Discards the innermost scope.
	Pop() error

	// Returns the satisfiability of every fact in every open scope.
	// Indeterminate outcomes return Unknown along with one of the
	// ErrSolverXxx errors.
	Check() (Status, error)
}
