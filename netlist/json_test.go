package netlist_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hwverif/ctrd/netlist"
)

const exampleJSON = `{
  "creator": "Yosys 0.38",
  "modules": {
    "sub": {
      "attributes": {},
      "ports": {
        "p": {"direction": "input", "bits": [2, 3]},
        "y": {"direction": "output", "bits": [4]}
      },
      "cells": {
        "$eq$sub.v:3$1": {
          "hide_name": 1,
          "type": "$eq",
          "parameters": {"A_WIDTH": "00000000000000000000000000000010"},
          "port_directions": {"A": "input", "B": "input", "Y": "output"},
          "connections": {"A": [2, 3], "B": ["1", "0"], "Y": [4]}
        }
      },
      "netnames": {
        "p": {"hide_name": 0, "bits": [2, 3]},
        "y": {"hide_name": 0, "bits": [4]}
      }
    },
    "top": {
      "attributes": {"top": "00000000000000000000000000000001"},
      "ports": {
        "io_opcode": {"direction": "input", "bits": [2, 3]},
        "out": {"direction": "output", "bits": [5]}
      },
      "cells": {
        "u0": {
          "hide_name": 0,
          "type": "sub",
          "connections": {"p": [2, 3], "y": [5]}
        }
      },
      "netnames": {
        "alias": {"hide_name": 0, "bits": [2, 3]},
        "io_opcode": {"hide_name": 0, "bits": [2, 3]},
        "out": {"hide_name": 0, "bits": [5]},
        "tied": {"hide_name": 0, "bits": ["0", 5]}
      }
    }
  }
}`

func TestReadJSON(t *testing.T) {
	d := MustReadJSON(t, exampleJSON)

	top, err := d.Top()
	if err != nil {
		t.Fatal(err)
	} else if top.Name != "top" {
		t.Fatalf("unexpected top: %s", top.Name)
	}

	t.Run("Ports", func(t *testing.T) {
		if w := top.Wire("io_opcode"); w == nil || !w.PortInput || w.Width != 2 {
			t.Fatalf("unexpected io_opcode: %+v", w)
		} else if w := top.Wire("out"); w == nil || !w.PortOutput {
			t.Fatalf("unexpected out: %+v", w)
		}
	})

	t.Run("Aliases", func(t *testing.T) {
		var got []string
		for _, conn := range top.Connections() {
			got = append(got, conn.LHS.String()+" = "+conn.RHS.String())
		}
		if diff := cmp.Diff([]string{
			"alias = io_opcode",
			"tied = {out, 1'b0}",
		}, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("InstanceDirections", func(t *testing.T) {
		u0 := top.Cell("u0")
		if !u0.Input("p") {
			t.Fatal("expected p to resolve to an input")
		} else if !u0.Output("y") {
			t.Fatal("expected y to resolve to an output")
		} else if sig, _ := u0.Port("p"); sig.AsWire() != top.Wire("io_opcode") {
			t.Fatalf("unexpected p binding: %s", sig)
		}
	})

	t.Run("ConstOperand", func(t *testing.T) {
		eq := d.Module("sub").Cell("$eq$sub.v:3$1")
		if sig, _ := eq.Port("B"); !sig.Equal(netlist.Const(1, 2)) {
			t.Fatalf("unexpected B: %s", sig)
		}
	})
}

func TestReadJSON_Invalid(t *testing.T) {
	if _, err := netlist.ReadJSON(strings.NewReader(`{"modules": {"m": {"netnames": {"a": {"bits": ["q"]}}}}}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	d := MustReadJSON(t, exampleJSON)

	// Tie the comparator output low, as the rewriter does.
	sub := d.Module("sub")
	eq := sub.Cell("$eq$sub.v:3$1")
	y, _ := eq.Port("Y")
	sub.Remove(eq)
	sub.Connect(y, netlist.Const(0, 1))

	var buf bytes.Buffer
	if err := netlist.WriteJSON(&buf, d); err != nil {
		t.Fatal(err)
	}

	other := MustReadJSON(t, buf.String())
	if other.Module("sub").Cell("$eq$sub.v:3$1") != nil {
		t.Fatal("expected comparator to stay removed")
	} else if conns := other.Module("sub").Connections(); len(conns) != 1 {
		t.Fatalf("unexpected connections: %d", len(conns))
	} else if got, exp := conns[0].LHS.String()+" = "+conns[0].RHS.String(), "y = 1'b0"; got != exp {
		t.Fatalf("unexpected connection: %s", got)
	}

	top, err := other.Top()
	if err != nil {
		t.Fatal(err)
	} else if top.Name != "top" {
		t.Fatalf("unexpected top: %s", top.Name)
	} else if sig, _ := top.Cell("u0").Port("p"); sig.AsWire() != top.Wire("io_opcode") {
		t.Fatalf("unexpected p binding: %s", sig)
	}
}

// MustReadJSON decodes a design from a string. Fatal on error.
func MustReadJSON(tb testing.TB, s string) *netlist.Design {
	tb.Helper()
	d, err := netlist.ReadJSON(strings.NewReader(s))
	if err != nil {
		tb.Fatal(err)
	}
	return d
}
