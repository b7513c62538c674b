package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSynth/pkg/tribuf"
	"github.com/spf13/cobra"
)

var (
	tribufMerge     bool
	tribufLogic     bool
	tribufFormal    bool
	tribufPropagate bool
	tribufForce     bool
	tribufCheck     bool
	tribufOutput    string
)

var tribufCmd = &cobra.Command{
	Use:   "tribuf <netlist-file>",
	Short: "Infer and transform tri-state buffers",
	Long: `Convert muxes with disconnected inputs into tri-state buffers and
optionally propagate, merge or eliminate them.

Without flags only the conversion runs. --propagate pushes tri-state
buffers through downstream muxes and buffers, --merge consolidates
multiple drivers of one net into a priority selector, --logic replaces
internal tri-state nets with plain logic, and --formal additionally
emits assertions that no two drivers are enabled at once.

Examples:
  otsynth tribuf design.nl
  otsynth tribuf --propagate --check design.nl
  otsynth tribuf --logic --force -o out.nl design.nl`,
	Args: cobra.ExactArgs(1),
	RunE: runTribuf,
}

func init() {
	rootCmd.AddCommand(tribufCmd)

	tribufCmd.Flags().BoolVar(&tribufMerge, "merge", false,
		"merge multiple tri-state drivers of one net")
	tribufCmd.Flags().BoolVar(&tribufLogic, "logic", false,
		"replace internal tri-state nets with plain logic (implies --merge)")
	tribufCmd.Flags().BoolVar(&tribufFormal, "formal", false,
		"replace all tri-state nets with logic and emit conflict assertions (implies --merge)")
	tribufCmd.Flags().BoolVar(&tribufPropagate, "propagate", false,
		"push tri-state buffers through downstream consumers (implies --merge)")
	tribufCmd.Flags().BoolVar(&tribufForce, "force", false,
		"with --logic, also eliminate tri-state nets facing module outputs")
	tribufCmd.Flags().BoolVar(&tribufCheck, "check", false,
		"verify internal indices between steps (slow, for debugging)")
	tribufCmd.Flags().StringVarP(&tribufOutput, "output", "o", "",
		"write the transformed netlist to this file (default stdout)")
}

func runTribuf(cmd *cobra.Command, args []string) error {
	design, err := netlist.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load netlist: %w", err)
	}

	opts := tribuf.Options{
		Merge:     tribufMerge,
		Logic:     tribufLogic,
		Formal:    tribufFormal,
		Propagate: tribufPropagate,
		Force:     tribufForce,
		Check:     tribufCheck,
	}
	if verbose {
		opts.Log = log.New(os.Stderr, "tribuf: ", 0)
	}

	res, err := tribuf.Run(design, opts)
	if err != nil {
		return fmt.Errorf("tribuf pass failed: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "tribuf: %d changes\n", res.Changed)
	}

	return writeOutput(tribufOutput, design)
}
