package ctrd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hwverif/ctrd/netlist"
)

// Rewriter replaces proven-dead comparators with constant false.
type Rewriter struct {
	design *netlist.Design
	top    *netlist.Module
	logger *slog.Logger
}

// NewRewriter returns a new instance of Rewriter for the hierarchy below top.
func NewRewriter(d *netlist.Design, top *netlist.Module, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = discardLogger()
	}
	return &Rewriter{design: d, top: top, logger: logger}
}

// Rewrite removes every candidate cell and ties its output low. Candidates
// whose cell is already gone are skipped. Returns the number of cells removed.
func (r *Rewriter) Rewrite(candidates []*Candidate) (int, error) {
	var n int
	for _, c := range candidates {
		ok, err := r.rewrite(c)
		if err != nil {
			return n, err
		} else if ok {
			n++
		}
	}
	return n, nil
}

func (r *Rewriter) rewrite(c *Candidate) (bool, error) {
	m, err := r.uniquify(c.Hypothesis.Scope)
	if err != nil {
		return false, err
	}

	cell := m.Cell(c.Cell.Name)
	if cell == nil || cell.Type != CellTypeEq {
		r.logger.Debug("[rewrite] already removed", "module", m.Name, "cell", c.Cell.Name)
		return false, nil
	}

	// Use the port of the resolved cell; the module may be a fresh clone.
	out, ok := cell.Port("Y")
	if !ok {
		return false, fmt.Errorf("rewrite %s.%s: missing output port", m.Name, cell.Name)
	}
	m.Remove(cell)
	m.Connect(out, netlist.Const(0, out.Width()))

	r.logger.Info("[rewrite] removed comparator", "path", c.Hypothesis.Path, "module", m.Name, "cell", cell.Name, "output", out.String())
	return true, nil
}

// uniquify resolves the module addressed by scope. A module on the way that is
// instantiated more than once is cloned for this instance so that rewriting
// it cannot affect a sibling instance.
func (r *Rewriter) uniquify(scope []string) (*netlist.Module, error) {
	m := r.top
	for i, name := range scope {
		inst := m.Cell(name)
		if inst == nil {
			return nil, fmt.Errorf("%w: %s in %s", ErrInstanceNotFound, name, m.Name)
		}
		sub := r.design.Module(inst.Type)
		if sub == nil {
			return nil, fmt.Errorf("%w: %s", netlist.ErrModuleNotFound, inst.Type)
		}

		if r.design.InstanceCount(sub.Name) > 1 {
			clone, err := r.design.Clone(sub.Name, r.uniqueName(sub.Name, scope[:i+1]))
			if err != nil {
				return nil, err
			}
			r.logger.Debug("[rewrite] uniquified module", "module", sub.Name, "clone", clone.Name, "instance", name)
			inst.Type = clone.Name
			sub = clone
		}
		m = sub
	}
	return m, nil
}

// uniqueName returns an unused module name derived from name and scope.
func (r *Rewriter) uniqueName(name string, scope []string) string {
	base := name + "$" + strings.Join(scope, ".")
	other := base
	for i := 1; r.design.Module(other) != nil; i++ {
		other = base + "$" + strconv.Itoa(i)
	}
	return other
}
