package netlist

import (
	"fmt"
	"io"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// Write dumps a design in the netlist text format. The output is
// deterministic: wires and cells in creation order, cell ports and
// parameters sorted by name. Write output parses back to an equivalent
// design.
func Write(w io.Writer, design *rtl.Design) error {
	for _, m := range design.Modules() {
		if err := writeModule(w, m); err != nil {
			return err
		}
	}
	return nil
}

func writeModule(w io.Writer, m *rtl.Module) error {
	if _, err := fmt.Fprintf(w, "module %s\n", m.Name); err != nil {
		return err
	}
	for _, wire := range m.Wires() {
		if err := writeWire(w, wire); err != nil {
			return err
		}
	}
	for _, cell := range m.Cells() {
		if err := writeCell(w, cell); err != nil {
			return err
		}
	}
	for _, conn := range m.Connections() {
		if _, err := fmt.Fprintf(w, "  connect %s %s\n", conn.LHS, conn.RHS); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "end\n")
	return err
}

func writeWire(w io.Writer, wire *rtl.Wire) error {
	if _, err := fmt.Fprintf(w, "  wire"); err != nil {
		return err
	}
	if wire.Width != 1 {
		if _, err := fmt.Fprintf(w, " width %d", wire.Width); err != nil {
			return err
		}
	}
	if wire.PortInput {
		if _, err := fmt.Fprintf(w, " input %d", wire.PortID); err != nil {
			return err
		}
	}
	if wire.PortOutput {
		if _, err := fmt.Fprintf(w, " output %d", wire.PortID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, " %s\n", wire.Name)
	return err
}

func writeCell(w io.Writer, cell *rtl.Cell) error {
	if _, err := fmt.Fprintf(w, "  cell %s %s\n", cell.Type, cell.Name); err != nil {
		return err
	}
	params := make([]string, 0, len(cell.Params))
	for name := range cell.Params {
		params = append(params, name)
	}
	sort.Strings(params)
	for _, name := range params {
		if _, err := fmt.Fprintf(w, "    param %s %d\n", name, cell.Params[name]); err != nil {
			return err
		}
	}
	attrs := make([]string, 0, len(cell.Attributes))
	for name := range cell.Attributes {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)
	for _, name := range attrs {
		if _, err := fmt.Fprintf(w, "    attr %s %s\n", name, cell.Attributes[name]); err != nil {
			return err
		}
	}
	for _, port := range cell.PortNames() {
		if _, err := fmt.Fprintf(w, "    connect %s %s\n", port, cell.GetPort(port)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  end\n")
	return err
}
