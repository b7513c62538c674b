package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <netlist-file>",
	Short: "Export a netlist as s-expressions",
	Long: `Convert a netlist file to an s-expression document for consumption
by external tools.

Examples:
  otsynth export design.nl
  otsynth export -o design.sexp design.nl`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write the s-expression document to this file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	design, err := netlist.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load netlist: %w", err)
	}

	if exportOutput == "" {
		return netlist.WriteSexp(os.Stdout, design)
	}
	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := netlist.WriteSexp(f, design); err != nil {
		f.Close()
		return fmt.Errorf("failed to write s-expressions: %w", err)
	}
	return f.Close()
}
