package sat_test

import (
	"testing"
	"time"

	"github.com/hwverif/ctrd"
	"github.com/hwverif/ctrd/internal/solvertest"
	"github.com/hwverif/ctrd/sat"
)

func TestSolver(t *testing.T) {
	solvertest.Run(t,
		func(tb testing.TB) ctrd.Solver { return sat.NewSolver() },
		func(s ctrd.Solver) { MustCloseSolver(s.(*sat.Solver)) },
	)
}

func TestSolver_Assert(t *testing.T) {
	t.Run("NonBoolean", func(t *testing.T) {
		s := sat.NewSolver()
		defer MustCloseSolver(s)
		if err := s.Assert(ctrd.NewConstantExpr(1, 8)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("BitVectorOperands", func(t *testing.T) {
		s := sat.NewSolver()
		defer MustCloseSolver(s)
		if err := s.Assert(&ctrd.BinaryExpr{
			Op:  ctrd.EQ,
			LHS: ctrd.NewConstantExpr(1, 8),
			RHS: ctrd.NewConstantExpr(2, 8),
		}); err == nil {
			t.Fatal("expected error")
		}
	})

	// Facts asserted inside a scope share circuit nodes with permanent facts.
	t.Run("SharedNodes", func(t *testing.T) {
		enc := ctrd.NewEncoder()
		x := enc.Lookup(ctrd.VarKey{Path: "t", Name: "x"})
		y := enc.Lookup(ctrd.VarKey{Path: "t", Name: "y"})
		xy := &ctrd.BinaryExpr{Op: ctrd.AND, LHS: x, RHS: y}

		s := sat.NewSolver()
		defer MustCloseSolver(s)
		if err := s.Push(); err != nil {
			t.Fatal(err)
		} else if err := s.Assert(xy); err != nil {
			t.Fatal(err)
		} else if err := s.Pop(); err != nil {
			t.Fatal(err)
		} else if err := s.Assert(ctrd.NewNotExpr(xy)); err != nil {
			t.Fatal(err)
		} else if status, err := s.Check(); err != nil {
			t.Fatal(err)
		} else if status != ctrd.Sat {
			t.Fatalf("unexpected status: %s", status)
		}
	})
}

func TestSolver_SetTimeout(t *testing.T) {
	s := sat.NewSolver()
	defer MustCloseSolver(s)
	if err := s.SetTimeout(-time.Second); err == nil {
		t.Fatal("expected error")
	} else if err := s.SetTimeout(time.Second); err != nil {
		t.Fatal(err)
	} else if err := s.Assert(ctrd.NewBoolConstantExpr(true)); err != nil {
		t.Fatal(err)
	} else if status, err := s.Check(); err != nil {
		t.Fatal(err)
	} else if status != ctrd.Sat {
		t.Fatalf("unexpected status: %s", status)
	} else if stats := s.Stats(); stats.CheckN != 1 {
		t.Fatalf("unexpected check count: %d", stats.CheckN)
	}
}

func MustCloseSolver(s *sat.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
