package z3_test

import (
	"testing"
	"time"

	"github.com/hwverif/ctrd"
	"github.com/hwverif/ctrd/internal/solvertest"
	"github.com/hwverif/ctrd/z3"
)

func TestSolver(t *testing.T) {
	solvertest.Run(t,
		func(tb testing.TB) ctrd.Solver { return z3.NewSolver() },
		func(s ctrd.Solver) { MustCloseSolver(s.(*z3.Solver)) },
	)
}

func TestSolver_Assert(t *testing.T) {
	t.Run("NonBoolean", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		if err := s.Assert(ctrd.NewConstantExpr(1, 8)); err == nil {
			t.Fatal("expected error")
		}
	})

	// Bit-vector constants lower to bit-vector sorts.
	t.Run("BitVector", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		if err := s.Assert(&ctrd.BinaryExpr{
			Op:  ctrd.EQ,
			LHS: &ctrd.BinaryExpr{Op: ctrd.AND, LHS: ctrd.NewConstantExpr(0xF0, 8), RHS: ctrd.NewConstantExpr(0x3C, 8)},
			RHS: ctrd.NewConstantExpr(0x30, 8),
		}); err != nil {
			t.Fatal(err)
		} else if status, err := s.Check(); err != nil {
			t.Fatal(err)
		} else if status != ctrd.Sat {
			t.Fatalf("unexpected status: %s", status)
		}
	})
}

func TestSolver_SetTimeout(t *testing.T) {
	s := z3.NewSolver()
	defer MustCloseSolver(s)
	if err := s.SetTimeout(time.Second); err != nil {
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

func MustCloseSolver(s *z3.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
