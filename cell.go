package ctrd

import (
	"strings"

	"github.com/hwverif/ctrd/netlist"
)

// Internal cell types understood by the pass.
const (
	CellTypeEq  = "$eq"
	CellTypeAnd = "$and"
)

// CellKind classifies a cell for propagation.
type CellKind int

// Cell kinds.
const (
	KindOther CellKind = iota
	KindEq
	KindAnd
	KindInstance
)

// String returns the string representation of the kind.
func (k CellKind) String() string {
	switch k {
	case KindEq:
		return "eq"
	case KindAnd:
		return "and"
	case KindInstance:
		return "instance"
	default:
		return "other"
	}
}

// CellKindOf returns the kind of c within d. A non-internal type that names a
// module of d is an instance of that module.
func CellKindOf(d *netlist.Design, c *netlist.Cell) CellKind {
	switch c.Type {
	case CellTypeEq:
		return KindEq
	case CellTypeAnd:
		return KindAnd
	}
	if !strings.HasPrefix(c.Type, "$") && d.Module(c.Type) != nil {
		return KindInstance
	}
	return KindOther
}
