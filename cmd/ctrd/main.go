package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand returns the top-level ctrd command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ctrd",
		Short: "Remove comparators against values a control signal never takes",
		Long: `Ctrd proves that equality comparators in a netlist can never fire
when a control signal is known to never take a forbidden value, and ties
their outputs to constant zero.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewRunCommand().Command())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ctrd %s\n", Version)
		},
	})
	return root
}
