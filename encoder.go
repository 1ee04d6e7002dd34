package ctrd

import (
	"fmt"

	"github.com/hwverif/ctrd/netlist"
)

// VarKey identifies a single symbolic bit in the hierarchy.
type VarKey struct {
	Path string // dotted instance path
	Name string // wire name, or an undef-scoped name for x/z bits
	Bit  int
}

// String returns the string representation of the key.
func (k VarKey) String() string {
	return fmt.Sprintf("%s.%s[%d]", k.Path, k.Name, k.Bit)
}

// Encoder maps netlist signals to boolean expressions.
//
// Every wire bit becomes a free variable keyed by its hierarchical path. The
// same key always yields the same variable so that constraints collected at
// different points of the traversal share variables.
type Encoder struct {
	vars   map[VarKey]*VarExpr
	nextID uint64
}

// NewEncoder returns a new instance of Encoder.
func NewEncoder() *Encoder {
	return &Encoder{vars: make(map[VarKey]*VarExpr)}
}

// Len returns the number of variables created so far.
func (e *Encoder) Len() int { return len(e.vars) }

// Var returns the variable for a wire bit at path.
func (e *Encoder) Var(path string, bit netlist.SigBit) *VarExpr {
	assert(bit.Wire != nil, "var of constant bit: %s", bit)
	return e.Lookup(VarKey{Path: path, Name: bit.Wire.Name, Bit: bit.Offset})
}

// Lookup returns the variable for key, creating it on first use.
func (e *Encoder) Lookup(key VarKey) *VarExpr {
	if v := e.vars[key]; v != nil {
		return v
	}
	e.nextID++
	v := &VarExpr{ID: e.nextID, Key: key}
	e.vars[key] = v
	return v
}

// Encode returns one boolean expression per bit of sig, LSB first.
//
// Constant 0/1 bits become constants. Undefined x/z bits are unconstrained,
// so each is a fresh variable scoped to the signal and bit position.
func (e *Encoder) Encode(path string, sig netlist.SigSpec) []Expr {
	a := make([]Expr, len(sig))
	for i, bit := range sig {
		switch {
		case bit.Wire != nil:
			a[i] = e.Var(path, bit)
		case bit.State == netlist.S0:
			a[i] = NewBoolConstantExpr(false)
		case bit.State == netlist.S1:
			a[i] = NewBoolConstantExpr(true)
		default:
			a[i] = e.Lookup(VarKey{Path: path, Name: "$undef:" + sig.Key(), Bit: i})
		}
	}
	return a
}

// EncodeConst returns the bits of a fully defined constant signal.
func (e *Encoder) EncodeConst(sig netlist.SigSpec) []Expr {
	assert(sig.IsFullyDef(), "encode non-constant signal: %s", sig)
	return e.Encode("", sig)
}

// EncodeValue returns the bits of value truncated to width, LSB first.
func EncodeValue(value uint64, width int) []Expr {
	a := make([]Expr, width)
	for i := range a {
		a[i] = NewBoolConstantExpr(i < 64 && value&(1<<uint(i)) != 0)
	}
	return a
}

// SameWidth returns true if both signals have the same number of bits.
func SameWidth(a, b netlist.SigSpec) bool {
	return a.Width() == b.Width()
}

// EqualBits returns the conjunction of per-bit equalities of lhs and rhs.
func EqualBits(lhs, rhs []Expr) Expr {
	assert(len(lhs) == len(rhs), "equal bits width mismatch: %d != %d", len(lhs), len(rhs))
	exprs := make([]Expr, len(lhs))
	for i := range lhs {
		exprs[i] = NewBinaryExpr(EQ, lhs[i], rhs[i])
	}
	return And(exprs...)
}
