package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hwverif/ctrd/internal/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	} else if c.Signal != "io_opcode" || c.Forbidden != 1 || c.Offset != 0 || c.Length != 0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestDecode(t *testing.T) {
	t.Run("Overlay", func(t *testing.T) {
		c, err := config.Decode(strings.NewReader("signal: ctrl\nlength: 3\nforbidden: 7\nsolver: z3\ntimeout: 250ms\n"))
		if err != nil {
			t.Fatal(err)
		}
		exp := config.Default()
		exp.Signal, exp.Length, exp.Forbidden, exp.Solver, exp.Timeout = "ctrl", 3, 7, config.SolverZ3, 250*time.Millisecond
		if diff := cmp.Diff(exp, c); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if c, err := config.Decode(strings.NewReader("")); err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(config.Default(), c); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnknownField", func(t *testing.T) {
		if _, err := config.Decode(strings.NewReader("signl: x\n")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, tt := range []struct {
			name string
			yaml string
			msg  string
		}{
			{"Solver", "solver: cvc5\n", "Solver"},
			{"Signal", "signal: \"\"\n", "Signal"},
			{"Offset", "offset: -1\n", "Offset"},
			{"Timeout", "timeout: -1s\n", "Timeout"},
			{"Forbidden", "length: 2\nforbidden: 4\n", "does not fit"},
		} {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := config.Decode(strings.NewReader(tt.yaml)); err == nil {
					t.Fatal("expected error")
				} else if !strings.Contains(err.Error(), tt.msg) {
					t.Fatalf("unexpected error: %s", err)
				}
			})
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctrd.yaml")
	c := config.Default()
	c.Signal, c.Offset = "io_ctrl", 4
	data, err := c.Marshal()
	if err != nil {
		t.Fatal(err)
	} else if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	other, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	} else if diff := cmp.Diff(c, other); diff != "" {
		t.Fatal(diff)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
