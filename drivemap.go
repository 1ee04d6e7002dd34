package ctrd

import (
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/hwverif/ctrd/netlist"
)

// DriveMap indexes the cells of a module by the signals bound to their ports.
//
// Each key is the canonical key of a signal exactly as it is bound to a port,
// so a lookup finds every cell that uses that signal verbatim. The map is
// built once per module visit and is never mutated afterwards.
type DriveMap struct {
	module *netlist.Module
	cells  *immutable.SortedMap // SigSpec.Key() -> []*netlist.Cell
}

// NewDriveMap returns the drive map of every cell port in m.
func NewDriveMap(m *netlist.Module) *DriveMap {
	cells := immutable.NewSortedMap(&stringComparer{})
	for _, c := range m.Cells() {
		for _, p := range c.Ports() {
			if p.Sig.Width() == 0 {
				continue
			}

			key := p.Sig.Key()
			var a []*netlist.Cell
			if v, ok := cells.Get(key); ok {
				a = v.([]*netlist.Cell)
			}
			if len(a) > 0 && a[len(a)-1] == c {
				continue // same signal on two ports of one cell
			}

			// Copy on append so earlier map versions never share a backing array.
			other := make([]*netlist.Cell, len(a), len(a)+1)
			copy(other, a)
			cells = cells.Set(key, append(other, c))
		}
	}
	return &DriveMap{module: m, cells: cells}
}

// Module returns the module the map was built from.
func (dm *DriveMap) Module() *netlist.Module { return dm.module }

// Cells returns the cells with a port bound to sig, in module order.
// Returns false if no cell references sig.
func (dm *DriveMap) Cells(sig netlist.SigSpec) ([]*netlist.Cell, bool) {
	v, ok := dm.cells.Get(sig.Key())
	if !ok {
		return nil, false
	}
	return v.([]*netlist.Cell), true
}

// Len returns the number of distinct signals in the map.
func (dm *DriveMap) Len() int { return dm.cells.Len() }

// Keys returns the signal keys of the map in sorted order.
func (dm *DriveMap) Keys() []string {
	a := make([]string, 0, dm.cells.Len())
	itr := dm.cells.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		a = append(a, k.(string))
	}
	return a
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}
