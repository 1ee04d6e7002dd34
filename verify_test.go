package ctrd_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hwverif/ctrd"
	"github.com/hwverif/ctrd/netlist"
	"github.com/hwverif/ctrd/sat"
)

// Ensure the solver-backed verdicts match exhaustive enumeration for every
// forbidden value of a masked, hierarchical comparator bank.
func TestPass_Run_Soundness(t *testing.T) {
	for forbidden := uint64(0); forbidden < 8; forbidden++ {
		t.Run(fmt.Sprint(forbidden), func(t *testing.T) {
			p := NewPass(t, newComparatorBank())
			p.Forbidden = forbidden
			result, err := p.Run()
			if err != nil {
				t.Fatal(err)
			}

			other := ctrd.NewPass(newComparatorBank())
			other.Forbidden = forbidden
			other.Solver = &bruteSolver{frames: [][]ctrd.Expr{nil}}
			exp, err := other.Run()
			if err != nil {
				t.Fatal(err)
			}

			if len(result.Candidates) != 8 {
				t.Fatalf("unexpected candidate count: %d", len(result.Candidates))
			} else if diff := cmp.Diff(CandidateNames(exp.Proven), CandidateNames(result.Proven)); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

// newComparatorBank returns a design whose submodule masks its input with 6
// and compares the result against every 3-bit value.
func newComparatorBank() *netlist.Design {
	d := netlist.NewDesign()
	sub := d.AddModule("sub")
	p := AddInput(sub, "p", 3)
	q := sub.AddWire("q", 3)
	AddBinaryCell(sub, "and", "$and", netlist.WireSig(p), netlist.Const(6, 3), netlist.WireSig(q))
	for v := uint64(0); v < 8; v++ {
		y := AddOutput(sub, fmt.Sprintf("y%d", v), 1)
		AddBinaryCell(sub, fmt.Sprintf("eq%d", v), "$eq", netlist.WireSig(q), netlist.Const(v, 3), netlist.WireSig(y))
	}

	top := d.AddModule("top")
	op := AddInput(top, "io_opcode", 3)
	AddInstance(top, "U", sub, map[string]netlist.SigSpec{"p": netlist.WireSig(op)})
	return d
}

// Ensure the verifier closes every scope it opens.
func TestVerifier_Verify_Scopes(t *testing.T) {
	d := netlist.NewDesign()
	top := d.AddModule("top")
	op := AddInput(top, "io_opcode", 2)
	for v := uint64(0); v < 4; v++ {
		y := AddOutput(top, fmt.Sprintf("y%d", v), 1)
		AddBinaryCell(top, fmt.Sprintf("eq%d", v), "$eq", netlist.WireSig(op), netlist.Const(v, 2), netlist.WireSig(y))
	}

	s := &bruteSolver{frames: [][]ctrd.Expr{nil}}
	p := ctrd.NewPass(d)
	p.Solver = s
	result, err := p.Run()
	if err != nil {
		t.Fatal(err)
	} else if len(s.frames) != 1 {
		t.Fatalf("unexpected open scopes: %d", len(s.frames)-1)
	} else if len(s.frames[0]) != 0 {
		t.Fatalf("unexpected facts left at base level: %d", len(s.frames[0]))
	} else if s.checks != 4 || result.Stats.Checks != 4 {
		t.Fatalf("unexpected check count: %d", s.checks)
	} else if diff := cmp.Diff([]string{"top.eq1"}, CandidateNames(result.Proven)); diff != "" {
		t.Fatal(diff)
	}
}

// Ensure facts from one run do not leak into the next run on the same solver.
func TestPass_Run_SharedSolver(t *testing.T) {
	newDesign := func() (*netlist.Design, *netlist.Module) {
		d := netlist.NewDesign()
		top := d.AddModule("top")
		op := AddInput(top, "io_opcode", 2)
		y := AddOutput(top, "y", 1)
		AddBinaryCell(top, "eq", "$eq", netlist.WireSig(op), netlist.Const(1, 2), netlist.WireSig(y))
		return d, top
	}
	solver := sat.NewSolver()

	d0, top0 := newDesign()
	p0 := ctrd.NewPass(d0)
	p0.Solver, p0.Forbidden = solver, 1
	if result, err := p0.Run(); err != nil {
		t.Fatal(err)
	} else if result.Rewritten != 1 || top0.Cell("eq") != nil {
		t.Fatalf("expected comparator to be removed: %s", dump(result.Stats))
	}

	// The same comparator is reachable once a different value is forbidden.
	d1, top1 := newDesign()
	p1 := ctrd.NewPass(d1)
	p1.Solver, p1.Forbidden = solver, 2
	if result, err := p1.Run(); err != nil {
		t.Fatal(err)
	} else if len(result.Proven) != 0 || result.Rewritten != 0 {
		t.Fatalf("unexpected proof: %v", CandidateNames(result.Proven))
	} else if top1.Cell("eq") == nil {
		t.Fatal("expected comparator to remain")
	}

	// The solver itself is back at its base level.
	if status, err := solver.Check(); err != nil {
		t.Fatal(err)
	} else if status != ctrd.Sat {
		t.Fatalf("unexpected status: %s", status)
	} else if err := solver.Pop(); !errors.Is(err, sat.ErrNoScope) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Ensure a failure to assert the axiom aborts verification.
func TestVerifier_Verify_AssertError(t *testing.T) {
	d := netlist.NewDesign()
	top := d.AddModule("top")
	op := AddInput(top, "io_opcode", 2)
	y := AddOutput(top, "y", 1)
	AddBinaryCell(top, "eq", "$eq", netlist.WireSig(op), netlist.Const(1, 2), netlist.WireSig(y))

	errAssert := errors.New("assert failed")
	p := ctrd.NewPass(d)
	p.Solver = &bruteSolver{frames: [][]ctrd.Expr{nil}, assertErr: errAssert}
	if _, err := p.Run(); !errors.Is(err, errAssert) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// bruteSolver decides satisfiability by enumerating every assignment.
type bruteSolver struct {
	frames    [][]ctrd.Expr
	checks    int
	assertErr error
}

func (s *bruteSolver) Assert(expr ctrd.Expr) error {
	if s.assertErr != nil {
		return s.assertErr
	}
	s.frames[len(s.frames)-1] = append(s.frames[len(s.frames)-1], expr)
	return nil
}

func (s *bruteSolver) Push() error {
	s.frames = append(s.frames, nil)
	return nil
}

func (s *bruteSolver) Pop() error {
	if len(s.frames) == 1 {
		return errors.New("no scope")
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

func (s *bruteSolver) Check() (ctrd.Status, error) {
	s.checks++

	var exprs []ctrd.Expr
	for _, frame := range s.frames {
		exprs = append(exprs, frame...)
	}
	vars := ctrd.FindVars(exprs...)
	if len(vars) > 20 {
		return ctrd.Unknown, ctrd.ErrSolverResourceLimit
	}

	values := make([]bool, len(vars))
	for bits := uint64(0); bits < 1<<uint(len(vars)); bits++ {
		for i := range values {
			values[i] = bits&(1<<uint(i)) != 0
		}
		ee := ctrd.NewExprEvaluator(vars, values)

		ok := true
		for _, expr := range exprs {
			v, err := ee.Evaluate(expr)
			if err != nil {
				return ctrd.Unknown, err
			} else if !v.IsTrue() {
				ok = false
				break
			}
		}
		if ok {
			return ctrd.Sat, nil
		}
	}
	return ctrd.Unsat, nil
}
