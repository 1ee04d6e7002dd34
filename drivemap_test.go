package ctrd_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hwverif/ctrd"
	"github.com/hwverif/ctrd/netlist"
)

// Ensure every port signal is a key mapped to exactly the cells using it.
func TestNewDriveMap(t *testing.T) {
	d := netlist.NewDesign()
	m := d.AddModule("top")
	a := AddInput(m, "a", 2)
	b := m.AddWire("b", 2)
	y0, y1 := AddOutput(m, "y0", 1), AddOutput(m, "y1", 1)
	and := AddBinaryCell(m, "and", "$and", netlist.WireSig(a), netlist.Const(1, 2), netlist.WireSig(b))
	eq0 := AddBinaryCell(m, "eq0", "$eq", netlist.WireSig(b), netlist.Const(1, 2), netlist.WireSig(y0))
	eq1 := AddBinaryCell(m, "eq1", "$eq", netlist.WireSig(b), netlist.WireSig(b), netlist.WireSig(y1))
	m.AddCell("empty", "$other").SetPort("A", netlist.DirInput, nil)

	dm := ctrd.NewDriveMap(m)
	if dm.Module() != m {
		t.Fatal("unexpected module")
	}

	for _, tt := range []struct {
		sig   netlist.SigSpec
		cells []*netlist.Cell
	}{
		{netlist.WireSig(a), []*netlist.Cell{and}},
		{netlist.WireSig(b), []*netlist.Cell{and, eq0, eq1}},
		{netlist.Const(1, 2), []*netlist.Cell{and, eq0}},
		{netlist.WireSig(y0), []*netlist.Cell{eq0}},
		{netlist.WireSig(y1), []*netlist.Cell{eq1}},
	} {
		cells, ok := dm.Cells(tt.sig)
		if !ok {
			t.Fatalf("expected key: %s", tt.sig)
		} else if got, exp := cellNamesOf(cells), cellNamesOf(tt.cells); !cmp.Equal(got, exp) {
			t.Fatalf("%s: %s", tt.sig, cmp.Diff(exp, got))
		}
	}

	if dm.Len() != 5 {
		t.Fatalf("unexpected key count: %d (%v)", dm.Len(), dm.Keys())
	} else if _, ok := dm.Cells(netlist.WireSig(a).Extract(0, 1)); ok {
		t.Fatal("expected partial signal to be absent")
	}
}

func TestDriveMap_Keys(t *testing.T) {
	m := netlist.NewDesign().AddModule("top")
	a, b := m.AddWire("a", 1), m.AddWire("b", 1)
	c := m.AddCell("c", "$not")
	c.SetPort("A", netlist.DirInput, netlist.WireSig(b))
	c.SetPort("Y", netlist.DirOutput, netlist.WireSig(a))

	dm := ctrd.NewDriveMap(m)
	if diff := cmp.Diff([]string{netlist.WireSig(a).Key(), netlist.WireSig(b).Key()}, dm.Keys()); diff != "" {
		t.Fatal(diff)
	}
}

// Ensure a module edit after the map is built does not change the map.
func TestDriveMap_Snapshot(t *testing.T) {
	m := netlist.NewDesign().AddModule("top")
	a := m.AddWire("a", 1)
	c := m.AddCell("c", "$not")
	c.SetPort("A", netlist.DirInput, netlist.WireSig(a))

	dm := ctrd.NewDriveMap(m)
	m.Remove(c)
	if cells, ok := dm.Cells(netlist.WireSig(a)); !ok || len(cells) != 1 {
		t.Fatalf("unexpected cells: %v", cells)
	}
}

func cellNamesOf(a []*netlist.Cell) []string {
	names := make([]string, len(a))
	for i, c := range a {
		names[i] = c.Name
	}
	return names
}
