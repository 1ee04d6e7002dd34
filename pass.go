package ctrd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hwverif/ctrd/netlist"
)

// Default pass options.
const (
	DefaultSignal    = "io_opcode"
	DefaultOffset    = 0
	DefaultLength    = 0
	DefaultForbidden = 1
)

// Pass removes equality comparators that test a signal against a value it
// can never take.
type Pass struct {
	design *netlist.Design

	// Used for proving candidates dead. Must set before Run.
	Solver Solver

	// Receives progress and skip records. Defaults to discarding output.
	Logger *slog.Logger

	// Wire in the top module that never takes the forbidden value.
	Signal string

	// Bit range of Signal that forms the hypothesis. A zero Length selects
	// every bit from Offset to the end of the wire.
	Offset int
	Length int

	// Value that the selected bits never take.
	Forbidden uint64
}

// NewPass returns a new instance of Pass with default options.
func NewPass(d *netlist.Design) *Pass {
	return &Pass{
		design:    d,
		Signal:    DefaultSignal,
		Offset:    DefaultOffset,
		Length:    DefaultLength,
		Forbidden: DefaultForbidden,
	}
}

// Result summarizes a pass run.
type Result struct {
	Candidates []*Candidate
	Proven     []*Candidate
	Rewritten  int
	Stats      Stats

	// Structural constraints the proofs were made under.
	Constraints *Constraints
}

// Stats holds counters collected during a run.
type Stats struct {
	Hypotheses  int // hypotheses propagated
	Modules     int // module visits, including the top module
	Constraints int // structural constraints collected
	Checks      int // solver checks issued
	Unknown     int // checks without a verdict
	Skipped     int // propagation edges skipped with a warning

	PropagateTime time.Duration
	VerifyTime    time.Duration
	RewriteTime   time.Duration
}

// Run propagates the hypothesis, verifies every candidate and rewrites the
// proven ones, in that order.
func (p *Pass) Run() (*Result, error) {
	if p.Solver == nil {
		return nil, ErrNoSolver
	}
	logger := p.Logger
	if logger == nil {
		logger = discardLogger()
	}

	top, err := p.design.Top()
	if err != nil {
		return nil, err
	}
	root, err := p.hypothesis(top)
	if err != nil {
		return nil, err
	}
	logger.Info("[pass] start", "top", top.Name, "hypothesis", root.String())

	// Collect candidates and constraints.
	t := time.Now()
	s := newState(p.design, logger)
	s.stats.Modules++
	if err := s.propagate(root, NewDriveMap(top)); err != nil {
		return nil, fmt.Errorf("propagate: %w", err)
	}
	s.stats.Constraints = s.constraints.Len()
	s.stats.PropagateTime = time.Since(t)

	result := &Result{Candidates: s.candidates, Constraints: s.constraints.Snapshot()}
	logger.Info("[pass] propagated", "candidates", len(s.candidates), "constraints", s.stats.Constraints, "skipped", s.stats.Skipped)

	// Prove candidates dead.
	t = time.Now()
	v := NewVerifier(p.Solver, s.encoder, logger)
	if len(s.candidates) > 0 {
		if result.Proven, err = v.Verify(root, s.constraints, s.candidates); err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
	}
	s.stats.Checks, s.stats.Unknown = v.Checks, v.Unknown
	s.stats.VerifyTime = time.Since(t)

	// Apply proven rewrites.
	t = time.Now()
	if result.Rewritten, err = NewRewriter(p.design, top, logger).Rewrite(result.Proven); err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}
	s.stats.RewriteTime = time.Since(t)

	result.Stats = s.stats
	logger.Info("[pass] done", "proven", len(result.Proven), "rewritten", result.Rewritten, "unknown", s.stats.Unknown)
	return result, nil
}

// hypothesis returns the root hypothesis for the configured signal range.
func (p *Pass) hypothesis(top *netlist.Module) (*Hypothesis, error) {
	w := top.Wire(p.Signal)
	if w == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrSignalNotFound, top.Name, p.Signal)
	}

	length := p.Length
	if length == 0 {
		length = w.Width - p.Offset
	}
	if p.Offset < 0 || length <= 0 || p.Offset+length > w.Width {
		return nil, fmt.Errorf("%w: offset=%d length=%d width=%d", ErrInvalidRange, p.Offset, p.Length, w.Width)
	} else if length < 64 && p.Forbidden >= 1<<uint(length) {
		return nil, fmt.Errorf("%w: %d in %d bits", ErrValueOutOfRange, p.Forbidden, length)
	}

	return &Hypothesis{
		Signal: netlist.WireSig(w).Extract(p.Offset, length),
		Value:  p.Forbidden,
		Path:   top.Name,
		Module: top,
	}, nil
}
