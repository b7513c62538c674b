package cmd

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <netlist-file>",
	Short: "Show netlist statistics",
	Long: `Display per-module statistics of a netlist file: port wires, cell
counts by type, and module-level connections.

Examples:
  otsynth info design.nl
  otsynth info -v design.nl`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	design, err := netlist.LoadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to load netlist: %w", err)
	}

	fmt.Printf("Netlist: %s\n", filename)
	fmt.Printf("Modules: %d\n\n", len(design.Modules()))

	for _, m := range design.Modules() {
		showModule(m)
	}
	return nil
}

func showModule(m *rtl.Module) {
	fmt.Printf("Module: %s\n", m.Name)

	var inputs, outputs []string
	totalBits := 0
	for _, w := range m.Wires() {
		totalBits += w.Width
		if w.PortInput {
			inputs = append(inputs, fmt.Sprintf("%s[%d]", w.Name, w.Width))
		}
		if w.PortOutput {
			outputs = append(outputs, fmt.Sprintf("%s[%d]", w.Name, w.Width))
		}
	}

	fmt.Printf("  Wires: %d (%d bits)\n", len(m.Wires()), totalBits)
	if len(inputs) > 0 {
		fmt.Printf("  Inputs: %v\n", inputs)
	}
	if len(outputs) > 0 {
		fmt.Printf("  Outputs: %v\n", outputs)
	}

	byType := make(map[rtl.CellType]int)
	for _, c := range m.Cells() {
		byType[c.Type]++
	}
	fmt.Printf("  Cells: %d\n", len(m.Cells()))

	var types []string
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("    %-12s %d\n", t, byType[rtl.CellType(t)])
	}

	fmt.Printf("  Connections: %d\n", len(m.Connections()))
	if verbose {
		for _, conn := range m.Connections() {
			fmt.Printf("    %s = %s\n", conn.LHS, conn.RHS)
		}
	}
	fmt.Println()
}
