package ctrd

import (
	"fmt"
	"log/slog"

	"github.com/hwverif/ctrd/netlist"
)

// Hypothesis claims that Signal, evaluated at Path, never equals Value.
type Hypothesis struct {
	Signal netlist.SigSpec
	Value  uint64
	Path   string   // dotted hierarchical path, top module first
	Scope  []string // instance names from the top module down
	Module *netlist.Module
}

// String returns the string representation of the hypothesis.
func (h *Hypothesis) String() string {
	return fmt.Sprintf("%s.%s != %d", h.Path, h.Signal, h.Value)
}

// enter returns a hypothesis for sig inside the module instantiated by inst.
func (h *Hypothesis) enter(inst *netlist.Cell, sub *netlist.Module, sig netlist.SigSpec) *Hypothesis {
	scope := make([]string, len(h.Scope), len(h.Scope)+1)
	copy(scope, h.Scope)
	return &Hypothesis{
		Signal: sig,
		Value:  h.Value,
		Path:   h.Path + "." + inst.Name,
		Scope:  append(scope, inst.Name),
		Module: sub,
	}
}

// relay returns a hypothesis for sig in the same module.
func (h *Hypothesis) relay(sig netlist.SigSpec) *Hypothesis {
	other := *h
	other.Signal = sig
	return &other
}

// Candidate is an equality comparator that tests a hypothesis signal
// against a constant.
type Candidate struct {
	Cell       *netlist.Cell
	Output     netlist.SigSpec
	Operand    netlist.SigSpec // the hypothesis signal bound to the comparator
	Value      netlist.SigSpec // the constant operand
	Hypothesis *Hypothesis
}

// String returns the string representation of the candidate.
func (c *Candidate) String() string {
	return fmt.Sprintf("%s.%s: %s == %s", c.Hypothesis.Path, c.Cell.Name, c.Operand, c.Value)
}

// state holds everything one pass invocation mutates.
type state struct {
	design *netlist.Design
	logger *slog.Logger

	encoder     *Encoder
	constraints *Constraints
	candidates  []*Candidate
	visited     map[visitKey]struct{}

	stats Stats
}

type visitKey struct {
	path string
	sig  string
}

func newState(d *netlist.Design, logger *slog.Logger) *state {
	return &state{
		design:      d,
		logger:      logger,
		encoder:     NewEncoder(),
		constraints: NewConstraints(),
		visited:     make(map[visitKey]struct{}),
	}
}

// propagate walks every cell that dm associates with the hypothesis signal.
func (s *state) propagate(h *Hypothesis, dm *DriveMap) error {
	key := visitKey{path: h.Path, sig: h.Signal.Key()}
	if _, ok := s.visited[key]; ok {
		s.logger.Debug("[propagate] already visited", "path", h.Path, "signal", h.Signal.String())
		return nil
	}
	s.visited[key] = struct{}{}
	s.stats.Hypotheses++

	s.logger.Debug("[propagate] enter", "hypothesis", h.String())

	// Direct connections alias the hypothesis signal within the module.
	for _, conn := range h.Module.Connections() {
		var other netlist.SigSpec
		switch {
		case conn.RHS.Equal(h.Signal):
			other = conn.LHS
		case conn.LHS.Equal(h.Signal):
			other = conn.RHS
		default:
			continue
		}
		if other.IsFullyConst() {
			continue
		}
		s.constraints.Add(EqualBits(s.encoder.Encode(h.Path, other), s.encoder.Encode(h.Path, h.Signal)))
		if err := s.propagate(h.relay(other), dm); err != nil {
			return err
		}
	}

	cells, ok := dm.Cells(h.Signal)
	if !ok {
		return nil
	}

	for _, c := range cells {
		var err error
		switch CellKindOf(s.design, c) {
		case KindEq:
			s.propagateEq(h, c)
		case KindAnd:
			err = s.propagateAnd(h, dm, c)
		case KindInstance:
			err = s.propagateInstance(h, c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// propagateEq records c as a candidate if it compares the hypothesis signal
// against a fully defined constant of the same width.
func (s *state) propagateEq(h *Hypothesis, c *netlist.Cell) {
	operand, ok := boundInput(c, h.Signal, "A", "B")
	if !ok {
		return
	}
	other, _ := c.Port(otherOperand(operand))
	if !other.IsFullyDef() {
		s.logger.Debug("[propagate] comparator operand not constant", "path", h.Path, "cell", c.Name, "operand", other.String())
		return
	} else if !SameWidth(other, h.Signal) {
		s.skip("comparator width mismatch", h, c, "width", other.Width())
		return
	}

	out, ok := c.Port("Y")
	if !ok || out.Width() == 0 || out[0].Wire == nil {
		s.skip("comparator output not a wire", h, c)
		return
	}

	s.candidates = append(s.candidates, &Candidate{
		Cell:       c,
		Output:     out,
		Operand:    h.Signal,
		Value:      other,
		Hypothesis: h,
	})
	s.logger.Debug("[propagate] candidate", "path", h.Path, "cell", c.Name, "value", other.String())
}

// propagateAnd relates the output of c to the hypothesis signal and
// continues into the output with the same forbidden value.
func (s *state) propagateAnd(h *Hypothesis, dm *DriveMap, c *netlist.Cell) error {
	operand, ok := boundInput(c, h.Signal, "A", "B")
	if !ok {
		return nil
	}
	mask, _ := c.Port(otherOperand(operand))
	out, _ := c.Port("Y")
	if !mask.IsFullyDef() {
		s.logger.Debug("[propagate] and operand not constant", "path", h.Path, "cell", c.Name, "operand", mask.String())
		return nil
	} else if !SameWidth(mask, h.Signal) || !SameWidth(out, h.Signal) {
		s.skip("and width mismatch", h, c, "mask", mask.Width(), "output", out.Width())
		return nil
	}

	if _, ok := dm.Cells(out); !ok {
		return fmt.Errorf("%w: %s.%s output %s", ErrMissingCache, h.Path, c.Name, out)
	}

	y := s.encoder.Encode(h.Path, out)
	a := s.encoder.Encode(h.Path, h.Signal)
	m := s.encoder.EncodeConst(mask)
	for i := range y {
		s.constraints.Add(NewBinaryExpr(EQ, y[i], NewBinaryExpr(AND, a[i], m[i])))
	}

	return s.propagate(h.relay(out), dm)
}

// propagateInstance binds the hypothesis signal to the submodule input port
// it drives and recurses with a fresh drive map.
func (s *state) propagateInstance(h *Hypothesis, c *netlist.Cell) error {
	sub := s.design.Module(c.Type)
	for _, p := range c.Ports() {
		if !p.Sig.Equal(h.Signal) {
			continue
		}

		w := sub.Wire(p.Name)
		if w != nil && w.PortOutput && !w.PortInput {
			s.logger.Debug("[propagate] instance drives hypothesis signal", "path", h.Path, "cell", c.Name, "port", p.Name)
			continue
		} else if w == nil || !w.PortInput {
			s.skip("unresolved instance port", h, c, "port", p.Name)
			continue
		} else if w.Width != h.Signal.Width() {
			s.skip("instance port width mismatch", h, c, "port", p.Name, "width", w.Width)
			continue
		}

		inner := h.enter(c, sub, netlist.WireSig(w))
		s.constraints.Add(EqualBits(s.encoder.Encode(inner.Path, inner.Signal), s.encoder.Encode(h.Path, h.Signal)))

		s.stats.Modules++
		if err := s.propagate(inner, NewDriveMap(sub)); err != nil {
			return err
		}
	}
	return nil
}

// skip logs a recoverable structural problem on an edge.
func (s *state) skip(msg string, h *Hypothesis, c *netlist.Cell, args ...any) {
	s.stats.Skipped++
	args = append([]any{"path", h.Path, "signal", h.Signal.String(), "cell", c.Name, "type", c.Type}, args...)
	s.logger.Warn("[propagate] skip: "+msg, args...)
}

// boundInput returns the first named input port of c bound to sig.
func boundInput(c *netlist.Cell, sig netlist.SigSpec, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := c.Port(name); ok && c.Input(name) && v.Equal(sig) {
			return name, true
		}
	}
	return "", false
}

func otherOperand(name string) string {
	if name == "A" {
		return "B"
	}
	return "A"
}
