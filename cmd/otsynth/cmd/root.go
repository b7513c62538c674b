package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "otsynth",
	Short: "OpenTraceSynth - Gate-level netlist transformation tools",
	Long: `OpenTraceSynth (otsynth) transforms gate-level netlists:
  - Tri-state buffer inference, propagation, merging and elimination
  - Aliased wire merging
  - Netlist inspection and s-expression export

Examples:
  otsynth tribuf --propagate design.nl       # Push tri-state buffers downstream
  otsynth tribuf --logic -o out.nl design.nl # Replace tri-state nets with logic
  otsynth mergewires design.nl               # Collapse aliased wires
  otsynth info design.nl                     # Show netlist statistics`,
	Version: "0.9.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
