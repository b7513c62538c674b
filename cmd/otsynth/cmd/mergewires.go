package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSynth/pkg/wiremerge"
	"github.com/spf13/cobra"
)

var mergewiresOutput string

var mergewiresCmd = &cobra.Command{
	Use:   "mergewires <netlist-file>",
	Short: "Collapse aliased wires onto one representative",
	Long: `Merge groups of wires tied together by module-level connections.

Each group elects one representative wire (input ports first, then
public names) and every cell port is rewritten to use it. Ports and
public wires that lose the election keep an alias connection so their
value stays visible.

Examples:
  otsynth mergewires design.nl
  otsynth mergewires -o out.nl design.nl`,
	Args: cobra.ExactArgs(1),
	RunE: runMergewires,
}

func init() {
	rootCmd.AddCommand(mergewiresCmd)

	mergewiresCmd.Flags().StringVarP(&mergewiresOutput, "output", "o", "",
		"write the transformed netlist to this file (default stdout)")
}

func runMergewires(cmd *cobra.Command, args []string) error {
	design, err := netlist.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load netlist: %w", err)
	}

	var opts wiremerge.Options
	if verbose {
		opts.Log = log.New(os.Stderr, "mergewires: ", 0)
	}

	res := wiremerge.Run(design, opts)
	if verbose {
		fmt.Fprintf(os.Stderr, "mergewires: %d wire bits redirected\n", res.Changed)
	}

	return writeOutput(mergewiresOutput, design)
}
