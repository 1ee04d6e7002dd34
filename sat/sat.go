// Package sat implements ctrd.Solver in pure Go on the gini SAT solver.
//
// Expressions are bit-blasted into an and-inverter graph and Tseitin encoded
// on demand. Scopes are kept as frames of root literals that are assumed on
// each check; the definitional clauses of every graph node are permanent.
package sat

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/hwverif/ctrd"
)

// Ensure solver implements interface.
var _ ctrd.Solver = (*Solver)(nil)

// ErrNoScope is returned when popping a solver without an open scope.
var ErrNoScope = errors.New("sat: no scope to pop")

// Solver represents an incremental solver backed by gini.
type Solver struct {
	g    *gini.Gini
	c    *logic.C
	vars map[uint64]z.Lit

	// Root literals asserted in each open scope, innermost last.
	frames [][]z.Lit

	timeout time.Duration
	stats   Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	s := &Solver{
		g:    gini.New(),
		c:    logic.NewC(),
		vars: make(map[uint64]z.Lit),
	}

	// Pin the circuit's constant literal.
	s.g.Add(s.c.T)
	s.g.Add(0)
	return s
}

// Close releases the solver. It exists for parity with other backends.
func (s *Solver) Close() error { return nil }

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// SetTimeout bounds every subsequent check. A zero duration removes the bound.
func (s *Solver) SetTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("sat: negative timeout: %s", d)
	}
	s.timeout = d
	return nil
}

// Assert adds a boolean fact to the current scope.
func (s *Solver) Assert(expr ctrd.Expr) error {
	if w := ctrd.ExprWidth(expr); w != ctrd.WidthBool {
		return fmt.Errorf("sat.Solver.Assert: non-boolean expression width: %d", w)
	}
	m, err := s.toLit(expr)
	if err != nil {
		return err
	}
	s.c.ToCnfFrom(s.g, m)

	if len(s.frames) == 0 {
		s.g.Add(m)
		s.g.Add(0)
		return nil
	}
	i := len(s.frames) - 1
	s.frames[i] = append(s.frames[i], m)
	return nil
}

// Push opens a new scope.
func (s *Solver) Push() error {
	s.frames = append(s.frames, nil)
	return nil
}

// Pop discards the innermost scope.
func (s *Solver) Pop() error {
	if len(s.frames) == 0 {
		return ErrNoScope
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Check returns the satisfiability of all asserted facts.
func (s *Solver) Check() (ctrd.Status, error) {
	t := time.Now()
	defer func() {
		s.stats.CheckN++
		s.stats.CheckTime += time.Since(t)
	}()

	// Assumptions are consumed by every solve.
	for _, frame := range s.frames {
		s.g.Assume(frame...)
	}

	var res int
	if s.timeout > 0 {
		res = s.g.GoSolve().Try(s.timeout)
	} else {
		res = s.g.Solve()
	}

	switch res {
	case 1:
		return ctrd.Sat, nil
	case -1:
		return ctrd.Unsat, nil
	default:
		return ctrd.Unknown, ctrd.ErrSolverTimeout
	}
}

// toLit returns the circuit literal for a boolean expression.
func (s *Solver) toLit(expr ctrd.Expr) (z.Lit, error) {
	switch expr := expr.(type) {
	case *ctrd.ConstantExpr:
		if expr.Width != ctrd.WidthBool {
			return z.LitNull, fmt.Errorf("sat.Solver.toLit: invalid constant width: %d", expr.Width)
		} else if expr.IsTrue() {
			return s.c.T, nil
		}
		return s.c.F, nil

	case *ctrd.VarExpr:
		if m, ok := s.vars[expr.ID]; ok {
			return m, nil
		}
		m := s.c.Lit()
		s.vars[expr.ID] = m
		return m, nil

	case *ctrd.NotExpr:
		m, err := s.toLit(expr.Expr)
		if err != nil {
			return z.LitNull, err
		}
		return m.Not(), nil

	case *ctrd.BinaryExpr:
		if w := ctrd.ExprWidth(expr.LHS); w != ctrd.WidthBool {
			return z.LitNull, fmt.Errorf("sat.Solver.toLit: bit-vector operands not supported: width=%d", w)
		}
		a, err := s.toLit(expr.LHS)
		if err != nil {
			return z.LitNull, err
		}
		b, err := s.toLit(expr.RHS)
		if err != nil {
			return z.LitNull, err
		}

		switch expr.Op {
		case ctrd.AND:
			return s.c.And(a, b), nil
		case ctrd.OR:
			return s.c.Or(a, b), nil
		case ctrd.XOR:
			return s.c.Xor(a, b), nil
		case ctrd.EQ:
			return s.c.Xor(a, b).Not(), nil
		default:
			return z.LitNull, fmt.Errorf("sat.Solver.toLit: unexpected operation: %s", expr.Op)
		}

	default:
		return z.LitNull, fmt.Errorf("sat.Solver.toLit: invalid expression type: %T", expr)
	}
}

// Stats holds counters for solver checks.
type Stats struct {
	CheckN    int
	CheckTime time.Duration
}
