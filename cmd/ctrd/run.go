package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/hwverif/ctrd"
	"github.com/hwverif/ctrd/internal/config"
	"github.com/hwverif/ctrd/netlist"
	"github.com/hwverif/ctrd/sat"
	"github.com/hwverif/ctrd/z3"
	"github.com/spf13/cobra"
)

// RunCommand represents a command for running the pass over a netlist.
type RunCommand struct {
	ConfigPath string
	OutputPath string
	Dump       bool

	// Flag values that override the config file when set.
	config config.Config
}

// NewRunCommand returns a new instance of RunCommand.
func NewRunCommand() *RunCommand {
	return &RunCommand{config: config.Default()}
}

// Command returns the cobra command bound to cmd.
func (cmd *RunCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run [netlist.json]",
		Short: "Prove and remove dead comparators",
		Long: `Run reads a JSON netlist from the given file or stdin, removes every
equality comparator that is proven dead and writes the netlist back out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Run(c.Context(), c, args)
		},
	}

	fs := c.Flags()
	fs.StringVarP(&cmd.ConfigPath, "config", "c", "", "YAML config file")
	fs.StringVarP(&cmd.OutputPath, "output", "o", "", "output file (default stdout)")
	fs.BoolVar(&cmd.Dump, "dump", false, "dump statistics, candidates and constraints to stderr")
	fs.StringVar(&cmd.config.Signal, "signal", cmd.config.Signal, "control signal in the top module")
	fs.IntVar(&cmd.config.Offset, "offset", cmd.config.Offset, "first bit of the signal range")
	fs.IntVar(&cmd.config.Length, "length", cmd.config.Length, "bits in the signal range; 0 selects through the last bit")
	fs.Uint64Var(&cmd.config.Forbidden, "forbidden", cmd.config.Forbidden, "value the signal range never takes")
	fs.StringVar(&cmd.config.Solver, "solver", cmd.config.Solver, "solver backend: sat or z3")
	fs.DurationVar(&cmd.config.Timeout, "timeout", cmd.config.Timeout, "per-check solver timeout; 0 disables")
	fs.BoolVarP(&cmd.config.Verbose, "verbose", "v", false, "enable verbose logging")
	return c
}

// Run executes the "run" subcommand.
func (cmd *RunCommand) Run(ctx context.Context, c *cobra.Command, args []string) error {
	cfg, err := cmd.resolveConfig(c)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	stderr := c.ErrOrStderr()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	d, err := readDesign(c.InOrStdin(), args)
	if err != nil {
		return err
	}

	solver, err := newSolver(cfg.Solver, cfg.Timeout)
	if err != nil {
		return err
	}
	defer solver.Close()

	p := ctrd.NewPass(d)
	p.Solver = solver
	p.Logger = logger
	p.Signal, p.Offset, p.Length, p.Forbidden = cfg.Signal, cfg.Offset, cfg.Length, cfg.Forbidden

	result, err := p.Run()
	if err != nil {
		return err
	}

	if cmd.Dump {
		fmt.Fprint(stderr, spew.Sdump(result.Stats))
		for _, cand := range result.Candidates {
			fmt.Fprintln(stderr, cand.String())
		}
		for _, expr := range result.Constraints.Exprs() {
			fmt.Fprintln(stderr, expr.String())
		}
	}
	logger.Info("[run] complete",
		"candidates", len(result.Candidates),
		"rewritten", result.Rewritten,
		"elapsed", result.Stats.PropagateTime+result.Stats.VerifyTime+result.Stats.RewriteTime,
	)

	return cmd.writeDesign(c.OutOrStdout(), d)
}

// resolveConfig loads the config file and then applies explicitly set flags.
func (cmd *RunCommand) resolveConfig(c *cobra.Command) (config.Config, error) {
	if cmd.ConfigPath == "" {
		return cmd.config, cmd.config.Validate()
	}

	cfg, err := config.Load(cmd.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	fs := c.Flags()
	if fs.Changed("signal") {
		cfg.Signal = cmd.config.Signal
	}
	if fs.Changed("offset") {
		cfg.Offset = cmd.config.Offset
	}
	if fs.Changed("length") {
		cfg.Length = cmd.config.Length
	}
	if fs.Changed("forbidden") {
		cfg.Forbidden = cmd.config.Forbidden
	}
	if fs.Changed("solver") {
		cfg.Solver = cmd.config.Solver
	}
	if fs.Changed("timeout") {
		cfg.Timeout = cmd.config.Timeout
	}
	if fs.Changed("verbose") {
		cfg.Verbose = cmd.config.Verbose
	}
	return cfg, cfg.Validate()
}

func readDesign(stdin io.Reader, args []string) (*netlist.Design, error) {
	if len(args) == 0 || args[0] == "-" {
		return netlist.ReadJSON(stdin)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return netlist.ReadJSON(f)
}

func (cmd *RunCommand) writeDesign(stdout io.Writer, d *netlist.Design) error {
	if cmd.OutputPath == "" {
		return netlist.WriteJSON(stdout, d)
	}

	f, err := os.Create(cmd.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := netlist.WriteJSON(f, d); err != nil {
		return err
	}
	return f.Close()
}

// Solver is a closable solver with a per-check timeout.
type Solver interface {
	ctrd.Solver
	SetTimeout(time.Duration) error
	Close() error
}

// newSolver returns the backend registered under name.
func newSolver(name string, timeout time.Duration) (Solver, error) {
	var s Solver
	switch name {
	case config.SolverSAT:
		s = sat.NewSolver()
	case config.SolverZ3:
		s = z3.NewSolver()
	default:
		return nil, fmt.Errorf("unknown solver: %q", name)
	}

	if err := s.SetTimeout(timeout); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
