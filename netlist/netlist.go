package netlist

import (
	"fmt"
	"sort"
)

// Design represents a set of modules, one of which is the top of the hierarchy.
type Design struct {
	modules map[string]*Module
	order   []string // insertion order
}

// NewDesign returns a new, empty instance of Design.
func NewDesign() *Design {
	return &Design{modules: make(map[string]*Module)}
}

// AddModule creates a new, empty module. Panic if the name is already in use.
func (d *Design) AddModule(name string) *Module {
	if _, ok := d.modules[name]; ok {
		panic(fmt.Sprintf("netlist: duplicate module: %q", name))
	}
	m := newModule(d, name)
	d.modules[name] = m
	d.order = append(d.order, name)
	return m
}

// Module returns a module by name. Returns nil if the module does not exist.
func (d *Design) Module(name string) *Module {
	return d.modules[name]
}

// Modules returns all modules in insertion order.
func (d *Design) Modules() []*Module {
	a := make([]*Module, 0, len(d.order))
	for _, name := range d.order {
		a = append(a, d.modules[name])
	}
	return a
}

// Top returns the top module of the hierarchy.
//
// A module flagged with Top wins. Otherwise the design must contain exactly
// one module that is not instantiated by any other module.
func (d *Design) Top() (*Module, error) {
	for _, m := range d.Modules() {
		if m.Top {
			return m, nil
		}
	}

	var roots []*Module
	for _, m := range d.Modules() {
		if d.InstanceCount(m.Name) == 0 {
			roots = append(roots, m)
		}
	}
	switch len(roots) {
	case 0:
		return nil, ErrNoTopModule
	case 1:
		return roots[0], nil
	default:
		return nil, fmt.Errorf("%w: %d candidate modules", ErrAmbiguousTop, len(roots))
	}
}

// InstanceCount returns the number of cells in the design that instantiate
// the named module.
func (d *Design) InstanceCount(name string) int {
	var n int
	for _, m := range d.modules {
		for _, c := range m.cells {
			if c.Type == name {
				n++
			}
		}
	}
	return n
}

// Clone copies the named module under a new name. Wires, cells and
// connections are deep-copied so the copy can be mutated independently.
func (d *Design) Clone(name, newName string) (*Module, error) {
	src := d.Module(name)
	if src == nil {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	} else if d.Module(newName) != nil {
		return nil, fmt.Errorf("netlist: module already exists: %q", newName)
	}

	dst := d.AddModule(newName)
	dst.Attributes = copyAttrs(src.Attributes)
	for _, w := range src.Wires() {
		other := dst.AddWire(w.Name, w.Width)
		other.PortInput, other.PortOutput = w.PortInput, w.PortOutput
		other.Attributes = copyAttrs(w.Attributes)
	}

	remap := func(sig SigSpec) SigSpec {
		other := make(SigSpec, len(sig))
		for i, bit := range sig {
			if bit.Wire != nil {
				bit.Wire = dst.Wire(bit.Wire.Name)
			}
			other[i] = bit
		}
		return other
	}

	for _, c := range src.Cells() {
		other := dst.AddCell(c.Name, c.Type)
		other.Parameters = copyAttrs(c.Parameters)
		other.Attributes = copyAttrs(c.Attributes)
		for _, p := range c.ports {
			other.SetPort(p.Name, p.Dir, remap(p.Sig))
		}
	}
	for _, conn := range src.conns {
		dst.Connect(remap(conn.LHS), remap(conn.RHS))
	}
	return dst, nil
}

// Module represents a named collection of wires, cells and direct connections.
type Module struct {
	design *Design

	Name       string
	Top        bool
	Attributes map[string]interface{}

	wires     map[string]*Wire
	wireOrder []*Wire
	cells     map[string]*Cell
	cellOrder []*Cell
	conns     []Connection
}

func newModule(d *Design, name string) *Module {
	return &Module{
		design: d,
		Name:   name,
		wires:  make(map[string]*Wire),
		cells:  make(map[string]*Cell),
	}
}

// Design returns the design that owns the module.
func (m *Module) Design() *Design { return m.design }

// AddWire adds a new wire of the given width. Panic if the name is in use.
func (m *Module) AddWire(name string, width int) *Wire {
	if _, ok := m.wires[name]; ok {
		panic(fmt.Sprintf("netlist: duplicate wire in %s: %q", m.Name, name))
	}
	w := &Wire{module: m, Name: name, Width: width}
	m.wires[name] = w
	m.wireOrder = append(m.wireOrder, w)
	return w
}

// Wire returns a wire by name. Returns nil if it does not exist.
func (m *Module) Wire(name string) *Wire {
	return m.wires[name]
}

// Wires returns all wires in insertion order.
func (m *Module) Wires() []*Wire {
	a := make([]*Wire, len(m.wireOrder))
	copy(a, m.wireOrder)
	return a
}

// AddCell adds a new cell of the given type. Panic if the name is in use.
func (m *Module) AddCell(name, typ string) *Cell {
	if _, ok := m.cells[name]; ok {
		panic(fmt.Sprintf("netlist: duplicate cell in %s: %q", m.Name, name))
	}
	c := &Cell{module: m, Name: name, Type: typ}
	m.cells[name] = c
	m.cellOrder = append(m.cellOrder, c)
	return c
}

// Cell returns a cell by name. Returns nil if it does not exist.
func (m *Module) Cell(name string) *Cell {
	return m.cells[name]
}

// Cells returns all cells in insertion order.
func (m *Module) Cells() []*Cell {
	a := make([]*Cell, len(m.cellOrder))
	copy(a, m.cellOrder)
	return a
}

// Remove deletes a cell from the module. Returns false if the cell is not
// part of the module.
func (m *Module) Remove(c *Cell) bool {
	if m.cells[c.Name] != c {
		return false
	}
	delete(m.cells, c.Name)
	for i := range m.cellOrder {
		if m.cellOrder[i] == c {
			m.cellOrder = append(m.cellOrder[:i], m.cellOrder[i+1:]...)
			break
		}
	}
	c.module = nil
	return true
}

// Connect adds a direct connection driving lhs from rhs.
func (m *Module) Connect(lhs, rhs SigSpec) {
	assert(lhs.Width() == rhs.Width(), "connect width mismatch: %d != %d", lhs.Width(), rhs.Width())
	m.conns = append(m.conns, Connection{LHS: lhs, RHS: rhs})
}

// Connections returns all direct connections in insertion order.
func (m *Module) Connections() []Connection {
	a := make([]Connection, len(m.conns))
	copy(a, m.conns)
	return a
}

// Ports returns the port wires of the module, sorted by name.
func (m *Module) Ports() []*Wire {
	var a []*Wire
	for _, w := range m.wireOrder {
		if w.IsPort() {
			a = append(a, w)
		}
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}

// Connection represents a direct assignment of RHS to LHS.
type Connection struct {
	LHS SigSpec
	RHS SigSpec
}

// Wire represents a named multi-bit net within a module.
type Wire struct {
	module *Module

	Name       string
	Width      int
	PortInput  bool
	PortOutput bool
	Attributes map[string]interface{}
}

// Module returns the module that owns the wire.
func (w *Wire) Module() *Module { return w.module }

// IsPort returns true if the wire is an input or output port.
func (w *Wire) IsPort() bool { return w.PortInput || w.PortOutput }

// String returns the name of the wire.
func (w *Wire) String() string { return w.Name }

// PortDir represents the direction of a cell port.
type PortDir int

// Port directions.
const (
	DirUnknown PortDir = iota
	DirInput
	DirOutput
	DirInout
)

var portDirs = [...]string{
	DirUnknown: "unknown",
	DirInput:   "input",
	DirOutput:  "output",
	DirInout:   "inout",
}

// String returns the string representation of the direction.
func (dir PortDir) String() string {
	if dir >= 0 && int(dir) < len(portDirs) {
		return portDirs[dir]
	}
	return fmt.Sprintf("PortDir<%d>", dir)
}

// ParsePortDir returns the direction for its string representation.
func ParsePortDir(s string) PortDir {
	for dir, name := range portDirs {
		if name == s {
			return PortDir(dir)
		}
	}
	return DirUnknown
}

// Port represents a named connection point of a cell.
type Port struct {
	Name string
	Dir  PortDir
	Sig  SigSpec
}

// Cell represents a typed node of a module.
//
// Internal cell types are prefixed with "$" (e.g. "$eq", "$and"). Any other
// type names a module of the design that the cell instantiates.
type Cell struct {
	module *Module

	Name       string
	Type       string
	Parameters map[string]interface{}
	Attributes map[string]interface{}

	ports []Port
}

// Module returns the module that owns the cell. Returns nil once removed.
func (c *Cell) Module() *Module { return c.module }

// SetPort binds a signal to the named port, replacing any previous binding.
func (c *Cell) SetPort(name string, dir PortDir, sig SigSpec) {
	for i := range c.ports {
		if c.ports[i].Name == name {
			c.ports[i] = Port{Name: name, Dir: dir, Sig: sig}
			return
		}
	}
	c.ports = append(c.ports, Port{Name: name, Dir: dir, Sig: sig})
}

// Ports returns the ports of the cell in binding order.
func (c *Cell) Ports() []Port {
	a := make([]Port, len(c.ports))
	copy(a, c.ports)
	return a
}

// Port returns the signal bound to the named port.
func (c *Cell) Port(name string) (SigSpec, bool) {
	for _, p := range c.ports {
		if p.Name == name {
			return p.Sig, true
		}
	}
	return nil, false
}

// Input returns true if the named port is an input.
func (c *Cell) Input(name string) bool {
	for _, p := range c.ports {
		if p.Name == name {
			return p.Dir == DirInput || p.Dir == DirInout
		}
	}
	return false
}

// Output returns true if the named port is an output.
func (c *Cell) Output(name string) bool {
	for _, p := range c.ports {
		if p.Name == name {
			return p.Dir == DirOutput || p.Dir == DirInout
		}
	}
	return false
}

// String returns the cell name and type.
func (c *Cell) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Type)
}

func copyAttrs(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	other := make(map[string]interface{}, len(m))
	for k, v := range m {
		other[k] = v
	}
	return other
}
