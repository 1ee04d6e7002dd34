package ctrd_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/hwverif/ctrd"
	"github.com/hwverif/ctrd/netlist"
	"github.com/hwverif/ctrd/sat"
)

func TestIsIndeterminate(t *testing.T) {
	for _, err := range []error{ctrd.ErrSolverTimeout, ctrd.ErrSolverCanceled, ctrd.ErrSolverResourceLimit, ctrd.ErrSolverUnknown} {
		if !ctrd.IsIndeterminate(err) {
			t.Fatalf("expected indeterminate: %s", err)
		}
	}
	if ctrd.IsIndeterminate(ctrd.ErrNoSolver) {
		t.Fatal("expected determinate")
	}
}

// NewPass returns a pass over d backed by the pure Go solver.
func NewPass(tb testing.TB, d *netlist.Design) *ctrd.Pass {
	tb.Helper()
	p := ctrd.NewPass(d)
	p.Solver = sat.NewSolver()
	return p
}

// MustRunPass runs a pass over d with the given signal and forbidden value.
// Fatal on error.
func MustRunPass(tb testing.TB, d *netlist.Design, signal string, forbidden uint64) *ctrd.Result {
	tb.Helper()
	p := NewPass(tb, d)
	p.Signal, p.Forbidden = signal, forbidden
	result, err := p.Run()
	if err != nil {
		tb.Fatal(err)
	}
	return result
}

// AddInput adds an input port wire to m.
func AddInput(m *netlist.Module, name string, width int) *netlist.Wire {
	w := m.AddWire(name, width)
	w.PortInput = true
	return w
}

// AddOutput adds an output port wire to m.
func AddOutput(m *netlist.Module, name string, width int) *netlist.Wire {
	w := m.AddWire(name, width)
	w.PortOutput = true
	return w
}

// AddBinaryCell adds an internal cell with inputs A and B and output Y.
func AddBinaryCell(m *netlist.Module, name, typ string, a, b, y netlist.SigSpec) *netlist.Cell {
	c := m.AddCell(name, typ)
	c.SetPort("A", netlist.DirInput, a)
	c.SetPort("B", netlist.DirInput, b)
	c.SetPort("Y", netlist.DirOutput, y)
	return c
}

// AddInstance adds a cell instantiating sub with the given port bindings.
// Port directions follow the port wires of sub.
func AddInstance(m *netlist.Module, name string, sub *netlist.Module, conns map[string]netlist.SigSpec) *netlist.Cell {
	c := m.AddCell(name, sub.Name)
	for _, w := range sub.Ports() {
		sig, ok := conns[w.Name]
		if !ok {
			continue
		}
		dir := netlist.DirOutput
		if w.PortInput {
			dir = netlist.DirInput
		}
		c.SetPort(w.Name, dir, sig)
	}
	return c
}

// CandidateNames returns "path.cell" for each candidate.
func CandidateNames(a []*ctrd.Candidate) []string {
	var names []string
	for _, c := range a {
		names = append(names, c.Hypothesis.Path+"."+c.Cell.Name)
	}
	return names
}

// ConnStrings returns "lhs = rhs" for each direct connection of m.
func ConnStrings(m *netlist.Module) []string {
	var a []string
	for _, conn := range m.Connections() {
		a = append(a, conn.LHS.String()+" = "+conn.RHS.String())
	}
	return a
}

func dump(v interface{}) string {
	return spew.Sdump(v)
}
