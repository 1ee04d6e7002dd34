package netlist

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ReadJSON decodes a design from the netlist format written by Yosys'
// "write_json" command.
//
// Net ids shared by several netnames are turned into direct connections from
// the first wire that claims the id. Ids that are not covered by any netname
// get an anonymous one-bit wire.
func ReadJSON(r io.Reader) (*Design, error) {
	var doc jsonDesign
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("netlist: decode json: %w", err)
	}

	d := NewDesign()
	for _, name := range sortedKeys(doc.Modules) {
		if err := readJSONModule(d, name, doc.Modules[name]); err != nil {
			return nil, err
		}
	}
	resolveInstanceDirs(d)
	return d, nil
}

func readJSONModule(d *Design, name string, jm *jsonModule) error {
	m := d.AddModule(name)
	m.Attributes = jm.Attributes
	m.Top = isTrueAttr(jm.Attributes["top"])

	// Collect nets: ports first, then visible names, then hidden names. The
	// first wire to claim a net id becomes its canonical driver.
	type netDecl struct {
		name string
		bits []jsonBit
		attr map[string]interface{}
	}
	var decls []netDecl
	for _, pname := range sortedKeys(jm.Ports) {
		decl := netDecl{name: pname, bits: jm.Ports[pname].Bits}
		if net := jm.Netnames[pname]; net != nil {
			decl.attr = net.Attributes
		}
		decls = append(decls, decl)
	}
	var hidden []netDecl
	for _, nname := range sortedKeys(jm.Netnames) {
		if _, ok := jm.Ports[nname]; ok {
			continue
		}
		net := jm.Netnames[nname]
		decl := netDecl{name: nname, bits: net.Bits, attr: net.Attributes}
		if net.HideName != 0 {
			hidden = append(hidden, decl)
		} else {
			decls = append(decls, decl)
		}
	}
	decls = append(decls, hidden...)

	canon := make(map[int]SigBit)
	for _, decl := range decls {
		w := m.AddWire(decl.name, len(decl.bits))
		w.Attributes = decl.attr
		if p := jm.Ports[decl.name]; p != nil {
			switch ParsePortDir(p.Direction) {
			case DirInput:
				w.PortInput = true
			case DirOutput:
				w.PortOutput = true
			case DirInout:
				w.PortInput, w.PortOutput = true, true
			}
		}

		var lhs, rhs SigSpec
		for i, jb := range decl.bits {
			bit := SigBit{Wire: w, Offset: i}
			if jb.isConst() {
				lhs, rhs = append(lhs, bit), append(rhs, SigBit{State: jb.state()})
			} else if other, ok := canon[jb.ID]; ok {
				lhs, rhs = append(lhs, bit), append(rhs, other)
			} else {
				canon[jb.ID] = bit
			}
		}
		if len(lhs) > 0 {
			m.Connect(lhs, rhs)
		}
	}

	for _, cname := range sortedKeys(jm.Cells) {
		jc := jm.Cells[cname]
		c := m.AddCell(cname, jc.Type)
		c.Parameters = jc.Parameters
		c.Attributes = jc.Attributes
		for _, pname := range sortedKeys(jc.Connections) {
			var sig SigSpec
			for _, jb := range jc.Connections[pname] {
				if jb.isConst() {
					sig = append(sig, SigBit{State: jb.state()})
					continue
				}
				bit, ok := canon[jb.ID]
				if !ok {
					wname := "$net" + strconv.Itoa(jb.ID)
					for m.Wire(wname) != nil {
						wname += "_"
					}
					w := m.AddWire(wname, 1)
					bit = SigBit{Wire: w}
					canon[jb.ID] = bit
				}
				sig = append(sig, bit)
			}
			c.SetPort(pname, ParsePortDir(jc.PortDirections[pname]), sig)
		}
	}
	return nil
}

// resolveInstanceDirs fills in unknown port directions of instance cells from
// the port flags of the instantiated module.
func resolveInstanceDirs(d *Design) {
	for _, m := range d.Modules() {
		for _, c := range m.Cells() {
			sub := d.Module(c.Type)
			if sub == nil {
				continue
			}
			for _, p := range c.Ports() {
				if p.Dir != DirUnknown {
					continue
				}
				w := sub.Wire(p.Name)
				switch {
				case w == nil:
				case w.PortInput && w.PortOutput:
					c.SetPort(p.Name, DirInout, p.Sig)
				case w.PortInput:
					c.SetPort(p.Name, DirInput, p.Sig)
				case w.PortOutput:
					c.SetPort(p.Name, DirOutput, p.Sig)
				}
			}
		}
	}
}

// WriteJSON encodes the design in the Yosys "write_json" format.
func WriteJSON(w io.Writer, d *Design) error {
	doc := jsonDesign{
		Creator: "ctrd",
		Modules: make(map[string]*jsonModule),
	}
	for _, m := range d.Modules() {
		doc.Modules[m.Name] = writeJSONModule(m)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("netlist: encode json: %w", err)
	}
	return nil
}

func writeJSONModule(m *Module) *jsonModule {
	jm := &jsonModule{
		Attributes: copyAttrs(m.Attributes),
		Ports:      make(map[string]*jsonPort),
		Cells:      make(map[string]*jsonCell),
		Netnames:   make(map[string]*jsonNet),
	}
	if m.Top {
		if jm.Attributes == nil {
			jm.Attributes = make(map[string]interface{})
		}
		jm.Attributes["top"] = "00000000000000000000000000000001"
	}

	nets := newNetAllocator()
	for _, conn := range m.conns {
		for i := range conn.LHS {
			nets.connect(conn.LHS[i], conn.RHS[i])
		}
	}
	bits := func(sig SigSpec) []jsonBit {
		a := make([]jsonBit, len(sig))
		for i, bit := range sig {
			a[i] = nets.bit(bit)
		}
		return a
	}

	for _, w := range m.wireOrder {
		sig := bits(WireSig(w))
		hide := 0
		if strings.HasPrefix(w.Name, "$") {
			hide = 1
		}
		jm.Netnames[w.Name] = &jsonNet{HideName: hide, Bits: sig, Attributes: w.Attributes}
		switch {
		case w.PortInput && w.PortOutput:
			jm.Ports[w.Name] = &jsonPort{Direction: DirInout.String(), Bits: sig}
		case w.PortInput:
			jm.Ports[w.Name] = &jsonPort{Direction: DirInput.String(), Bits: sig}
		case w.PortOutput:
			jm.Ports[w.Name] = &jsonPort{Direction: DirOutput.String(), Bits: sig}
		}
	}

	for _, c := range m.cellOrder {
		jc := &jsonCell{
			Type:        c.Type,
			Parameters:  c.Parameters,
			Attributes:  c.Attributes,
			Connections: make(map[string][]jsonBit),
		}
		if strings.HasPrefix(c.Name, "$") {
			jc.HideName = 1
		}
		for _, p := range c.ports {
			if p.Dir != DirUnknown {
				if jc.PortDirections == nil {
					jc.PortDirections = make(map[string]string)
				}
				jc.PortDirections[p.Name] = p.Dir.String()
			}
			jc.Connections[p.Name] = bits(p.Sig)
		}
		jm.Cells[c.Name] = jc
	}
	return jm
}

// netAllocator assigns Yosys net ids to wire bits, merging bits that are
// joined by direct connections.
type netAllocator struct {
	parent map[SigBit]SigBit
	consts map[SigBit]State // root bit -> driving constant
	ids    map[SigBit]int   // root bit -> net id
	next   int
}

func newNetAllocator() *netAllocator {
	return &netAllocator{
		parent: make(map[SigBit]SigBit),
		consts: make(map[SigBit]State),
		ids:    make(map[SigBit]int),
		next:   2, // 0 and 1 are reserved for constants
	}
}

func (a *netAllocator) find(bit SigBit) SigBit {
	for {
		p, ok := a.parent[bit]
		if !ok || p == bit {
			return bit
		}
		if gp, ok := a.parent[p]; ok {
			a.parent[bit] = gp
		}
		bit = p
	}
}

func (a *netAllocator) connect(lhs, rhs SigBit) {
	if lhs.Wire == nil {
		return
	}
	l := a.find(lhs)
	if rhs.Wire == nil {
		a.consts[l] = rhs.State
		return
	}
	r := a.find(rhs)
	if l == r {
		return
	}
	a.parent[l] = r
	if st, ok := a.consts[l]; ok {
		delete(a.consts, l)
		a.consts[r] = st
	}
}

func (a *netAllocator) bit(bit SigBit) jsonBit {
	if bit.Wire == nil {
		return jsonBit{State: bit.State.String()}
	}
	root := a.find(bit)
	if st, ok := a.consts[root]; ok {
		return jsonBit{State: st.String()}
	}
	id, ok := a.ids[root]
	if !ok {
		id = a.next
		a.next++
		a.ids[root] = id
	}
	return jsonBit{ID: id}
}

type jsonDesign struct {
	Creator string                 `json:"creator,omitempty"`
	Modules map[string]*jsonModule `json:"modules"`
}

type jsonModule struct {
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Ports      map[string]*jsonPort   `json:"ports"`
	Cells      map[string]*jsonCell   `json:"cells"`
	Netnames   map[string]*jsonNet    `json:"netnames"`
}

type jsonPort struct {
	Direction string    `json:"direction"`
	Bits      []jsonBit `json:"bits"`
}

type jsonCell struct {
	HideName       int                    `json:"hide_name"`
	Type           string                 `json:"type"`
	Parameters     map[string]interface{} `json:"parameters,omitempty"`
	Attributes     map[string]interface{} `json:"attributes,omitempty"`
	PortDirections map[string]string      `json:"port_directions,omitempty"`
	Connections    map[string][]jsonBit   `json:"connections"`
}

type jsonNet struct {
	HideName   int                    `json:"hide_name"`
	Bits       []jsonBit              `json:"bits"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// jsonBit is either an integer net id or a constant "0", "1", "x" or "z".
type jsonBit struct {
	ID    int
	State string
}

func (b jsonBit) isConst() bool { return b.State != "" }

func (b jsonBit) state() State {
	switch b.State {
	case "0":
		return S0
	case "1":
		return S1
	case "z":
		return Sz
	default:
		return Sx
	}
}

// MarshalJSON encodes the bit as a number or a string.
func (b jsonBit) MarshalJSON() ([]byte, error) {
	if b.isConst() {
		return json.Marshal(b.State)
	}
	return json.Marshal(b.ID)
}

// UnmarshalJSON decodes the bit from a number or a string.
func (b *jsonBit) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "0", "1", "x", "z":
		default:
			return fmt.Errorf("netlist: invalid constant bit: %q", s)
		}
		*b = jsonBit{State: s}
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*b = jsonBit{ID: id}
	return nil
}

// isTrueAttr returns true for attribute values Yosys uses to encode 1.
func isTrueAttr(v interface{}) bool {
	switch v := v.(type) {
	case float64:
		return v != 0
	case string:
		return strings.Trim(v, "0") != "" && strings.Trim(v, "01") == ""
	case bool:
		return v
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
