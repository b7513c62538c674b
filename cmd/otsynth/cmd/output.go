package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// writeOutput dumps the design to the given file, or stdout when the
// path is empty.
func writeOutput(path string, design *rtl.Design) error {
	if path == "" {
		return netlist.Write(os.Stdout, design)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := netlist.Write(f, design); err != nil {
		f.Close()
		return fmt.Errorf("failed to write netlist: %w", err)
	}
	return f.Close()
}
