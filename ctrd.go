package ctrd

import (
	"errors"
	"fmt"
)

// WidthBool is the width of a single symbolic bit.
const WidthBool = 1

// Solver outcomes that do not decide satisfiability.
var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

var (
	ErrNoSolver         = errors.New("ctrd: solver required")
	ErrSignalNotFound   = errors.New("ctrd: target signal not found")
	ErrInvalidRange     = errors.New("ctrd: invalid bit range")
	ErrValueOutOfRange  = errors.New("ctrd: forbidden value does not fit signal width")
	ErrMissingCache     = errors.New("ctrd: drive map entry missing")
	ErrInstanceNotFound = errors.New("ctrd: instance not found")
)

// IsIndeterminate returns true if err reports a solver run that ended
// without a verdict.
func IsIndeterminate(err error) bool {
	return errors.Is(err, ErrSolverTimeout) ||
		errors.Is(err, ErrSolverCanceled) ||
		errors.Is(err, ErrSolverResourceLimit) ||
		errors.Is(err, ErrSolverUnknown)
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
