package ctrd

import (
	"fmt"
	"io"
	"log/slog"
)

// Verifier decides which candidate comparators can never output true.
type Verifier struct {
	solver  Solver
	encoder *Encoder
	logger  *slog.Logger

	// Number of satisfiability checks issued and how many were indeterminate.
	Checks  int
	Unknown int
}

// NewVerifier returns a new instance of Verifier. The encoder must be the one
// used to build the constraints so that variables are shared.
func NewVerifier(solver Solver, encoder *Encoder, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = discardLogger()
	}
	return &Verifier{solver: solver, encoder: encoder, logger: logger}
}

// Verify asserts the root axiom and every constraint in a scope of their
// own, then checks each candidate in a nested scope. Returns the candidates
// proven dead. The solver is left at the scope depth it had on entry.
//
// Only failures to open the outer scope, to assert the permanent facts or to
// close a scope are returned as errors. A candidate whose check fails
// otherwise is kept.
func (v *Verifier) Verify(root *Hypothesis, constraints *Constraints, candidates []*Candidate) (proven []*Candidate, err error) {
	if err := v.solver.Push(); err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	defer func() {
		if e := v.solver.Pop(); e != nil && err == nil {
			proven, err = nil, fmt.Errorf("pop: %w", e)
		}
	}()

	h := v.encoder.Encode(root.Path, root.Signal)
	axiom := NewNotExpr(EqualBits(h, EncodeValue(root.Value, len(h))))
	if err := v.solver.Assert(axiom); err != nil {
		return nil, fmt.Errorf("assert axiom: %w", err)
	}
	for _, expr := range constraints.Exprs() {
		if err := v.solver.Assert(expr); err != nil {
			return nil, fmt.Errorf("assert constraint: %w", err)
		}
	}

	for _, c := range candidates {
		ok, err := v.check(c)
		if err != nil {
			return nil, err
		} else if ok {
			proven = append(proven, c)
		}
	}
	return proven, nil
}

// check returns true if the candidate output is unsatisfiable as true.
// Returns an error only if the scope could not be closed.
func (v *Verifier) check(c *Candidate) (dead bool, err error) {
	if err := v.solver.Push(); err != nil {
		v.logger.Warn("[verify] push failed", "candidate", c.String(), "err", err)
		return false, nil
	}
	defer func() {
		if e := v.solver.Pop(); e != nil && err == nil {
			dead, err = false, fmt.Errorf("pop: %w", e)
		}
	}()

	out := v.encoder.Encode(c.Hypothesis.Path, c.Output)[0]
	cond := EqualBits(v.encoder.Encode(c.Hypothesis.Path, c.Operand), v.encoder.EncodeConst(c.Value))
	for _, expr := range []Expr{NewBinaryExpr(EQ, out, cond), out} {
		if err := v.solver.Assert(expr); err != nil {
			v.logger.Warn("[verify] assert failed", "candidate", c.String(), "err", err)
			return false, nil
		}
	}

	v.Checks++
	status, err := v.solver.Check()
	switch {
	case err != nil && IsIndeterminate(err), err == nil && status == Unknown:
		v.Unknown++
		v.logger.Info("[verify] indeterminate, keeping comparator", "candidate", c.String(), "err", err)
		return false, nil
	case err != nil:
		v.logger.Warn("[verify] check failed, keeping comparator", "candidate", c.String(), "err", err)
		return false, nil
	case status == Unsat:
		v.logger.Debug("[verify] proven dead", "candidate", c.String())
		return true, nil
	default:
		v.logger.Debug("[verify] reachable", "candidate", c.String())
		return false, nil
	}
}

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
