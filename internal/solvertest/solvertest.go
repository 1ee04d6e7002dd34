// Package solvertest provides a conformance suite for ctrd.Solver backends.
package solvertest

import (
	"testing"

	"github.com/hwverif/ctrd"
)

// Run exercises a solver backend. newSolver must return a fresh solver for
// each call; closeSolver is called once the subtest finishes.
func Run(t *testing.T, newSolver func(tb testing.TB) ctrd.Solver, closeSolver func(s ctrd.Solver)) {
	enc := ctrd.NewEncoder()
	x := varExpr(enc, "x")
	y := varExpr(enc, "y")

	solve := func(t *testing.T, exprs ...ctrd.Expr) ctrd.Status {
		t.Helper()
		s := newSolver(t)
		defer closeSolver(s)
		for _, expr := range exprs {
			if err := s.Assert(expr); err != nil {
				t.Fatal(err)
			}
		}
		status, err := s.Check()
		if err != nil {
			t.Fatal(err)
		}
		return status
	}

	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			if status := solve(t, ctrd.NewBoolConstantExpr(true)); status != ctrd.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("False", func(t *testing.T) {
			if status := solve(t, ctrd.NewBoolConstantExpr(false)); status != ctrd.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("Empty", func(t *testing.T) {
			if status := solve(t); status != ctrd.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
	})

	t.Run("Var", func(t *testing.T) {
		t.Run("Contradiction", func(t *testing.T) {
			if status := solve(t, x, ctrd.NewNotExpr(x)); status != ctrd.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("AND", func(t *testing.T) {
			if status := solve(t, &ctrd.BinaryExpr{Op: ctrd.AND, LHS: x, RHS: y}, ctrd.NewNotExpr(y)); status != ctrd.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("OR", func(t *testing.T) {
			if status := solve(t, &ctrd.BinaryExpr{Op: ctrd.OR, LHS: x, RHS: y}, ctrd.NewNotExpr(y)); status != ctrd.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("XOR", func(t *testing.T) {
			if status := solve(t, &ctrd.BinaryExpr{Op: ctrd.XOR, LHS: x, RHS: y}, x, y); status != ctrd.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("EQ", func(t *testing.T) {
			if status := solve(t, &ctrd.BinaryExpr{Op: ctrd.EQ, LHS: x, RHS: y}, x, ctrd.NewNotExpr(y)); status != ctrd.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
	})

	// A two-bit signal that never equals 1 cannot satisfy a comparator that
	// is true exactly when it equals 1.
	t.Run("Axiom", func(t *testing.T) {
		a := []ctrd.Expr{varExpr(enc, "a0"), varExpr(enc, "a1")}
		out := varExpr(enc, "out")
		axiom := ctrd.NewNotExpr(ctrd.EqualBits(a, ctrd.EncodeValue(1, 2)))

		if status := solve(t, axiom,
			ctrd.NewBinaryExpr(ctrd.EQ, out, ctrd.EqualBits(a, ctrd.EncodeValue(1, 2))),
			out,
		); status != ctrd.Unsat {
			t.Fatalf("unexpected status: %s", status)
		}
		if status := solve(t, axiom,
			ctrd.NewBinaryExpr(ctrd.EQ, out, ctrd.EqualBits(a, ctrd.EncodeValue(2, 2))),
			out,
		); status != ctrd.Sat {
			t.Fatalf("unexpected status: %s", status)
		}
	})

	t.Run("Scope", func(t *testing.T) {
		t.Run("PopDiscardsFacts", func(t *testing.T) {
			s := newSolver(t)
			defer closeSolver(s)

			mustAssert(t, s, x)
			mustPush(t, s)
			mustAssert(t, s, ctrd.NewNotExpr(x))
			if status := mustCheck(t, s); status != ctrd.Unsat {
				t.Fatalf("unexpected status in scope: %s", status)
			}
			mustPop(t, s)
			if status := mustCheck(t, s); status != ctrd.Sat {
				t.Fatalf("unexpected status after pop: %s", status)
			}
		})

		t.Run("Nested", func(t *testing.T) {
			s := newSolver(t)
			defer closeSolver(s)

			mustPush(t, s)
			mustAssert(t, s, x)
			mustPush(t, s)
			mustAssert(t, s, y)
			mustAssert(t, s, ctrd.NewBinaryExpr(ctrd.XOR, x, y))
			if status := mustCheck(t, s); status != ctrd.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
			mustPop(t, s)
			mustAssert(t, s, ctrd.NewBinaryExpr(ctrd.XOR, x, y))
			if status := mustCheck(t, s); status != ctrd.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
			mustPop(t, s)
			mustAssert(t, s, ctrd.NewNotExpr(x))
			if status := mustCheck(t, s); status != ctrd.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
		})

		t.Run("PopWithoutPush", func(t *testing.T) {
			s := newSolver(t)
			defer closeSolver(s)
			if err := s.Pop(); err == nil {
				t.Fatal("expected error")
			}
		})

		// Many sequential scopes, as issued by the verifier.
		t.Run("Sequential", func(t *testing.T) {
			s := newSolver(t)
			defer closeSolver(s)

			mustAssert(t, s, ctrd.NewNotExpr(x))
			for i := 0; i < 10; i++ {
				mustPush(t, s)
				mustAssert(t, s, x)
				if status := mustCheck(t, s); status != ctrd.Unsat {
					t.Fatalf("%d. unexpected status: %s", i, status)
				}
				mustPop(t, s)
			}
			if status := mustCheck(t, s); status != ctrd.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
	})
}

func varExpr(enc *ctrd.Encoder, name string) *ctrd.VarExpr {
	return enc.Lookup(ctrd.VarKey{Path: "test", Name: name})
}

func mustAssert(tb testing.TB, s ctrd.Solver, expr ctrd.Expr) {
	tb.Helper()
	if err := s.Assert(expr); err != nil {
		tb.Fatal(err)
	}
}

func mustPush(tb testing.TB, s ctrd.Solver) {
	tb.Helper()
	if err := s.Push(); err != nil {
		tb.Fatal(err)
	}
}

func mustPop(tb testing.TB, s ctrd.Solver) {
	tb.Helper()
	if err := s.Pop(); err != nil {
		tb.Fatal(err)
	}
}

func mustCheck(tb testing.TB, s ctrd.Solver) ctrd.Status {
	tb.Helper()
	status, err := s.Check()
	if err != nil {
		tb.Fatal(err)
	}
	return status
}
