package netlist

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// WriteSexp exports a design as an s-expression document for
// interchange with other OpenTraceLab tools. Wire names are emitted
// without the '\' sigil so every atom stays quoting-free; '$' names
// pass through unchanged.
func WriteSexp(w io.Writer, design *rtl.Design) error {
	if _, err := fmt.Fprintf(w, "(netlist\n"); err != nil {
		return err
	}
	for _, m := range design.Modules() {
		if err := writeSexpModule(w, m); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, ")\n")
	return err
}

func writeSexpModule(w io.Writer, m *rtl.Module) error {
	if _, err := fmt.Fprintf(w, "  (module (name %s)\n", m.Name); err != nil {
		return err
	}
	for _, wire := range m.Wires() {
		line := fmt.Sprintf("    (wire (name %s) (width %d)", sexpName(wire.Name), wire.Width)
		if wire.PortInput {
			line += fmt.Sprintf(" (input %d)", wire.PortID)
		}
		if wire.PortOutput {
			line += fmt.Sprintf(" (output %d)", wire.PortID)
		}
		if _, err := fmt.Fprintf(w, "%s)\n", line); err != nil {
			return err
		}
	}
	for _, cell := range m.Cells() {
		if err := writeSexpCell(w, cell); err != nil {
			return err
		}
	}
	for _, conn := range m.Connections() {
		if _, err := fmt.Fprintf(w, "    (connect %s %s)\n", sexpSpec(conn.LHS), sexpSpec(conn.RHS)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  )\n")
	return err
}

func writeSexpCell(w io.Writer, cell *rtl.Cell) error {
	if _, err := fmt.Fprintf(w, "    (cell (type %s) (name %s)\n", cell.Type, sexpName(cell.Name)); err != nil {
		return err
	}
	params := make([]string, 0, len(cell.Params))
	for name := range cell.Params {
		params = append(params, name)
	}
	sort.Strings(params)
	for _, name := range params {
		if _, err := fmt.Fprintf(w, "      (param %s %d)\n", name, cell.Params[name]); err != nil {
			return err
		}
	}
	for _, port := range cell.PortNames() {
		if _, err := fmt.Fprintf(w, "      (conn %s %s)\n", port, sexpSpec(cell.GetPort(port))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "    )\n")
	return err
}

func sexpName(name string) string {
	return strings.TrimPrefix(name, "\\")
}

// sexpSpec renders a spec as nested s-expressions: (ref name),
// (slice name hi lo), (const width digits) or (cat ...) with the most
// significant chunk first.
func sexpSpec(s rtl.SigSpec) string {
	var parts []string
	i := 0
	for i < len(s) {
		j := i
		if s[i].Wire == nil {
			for j < len(s) && s[j].Wire == nil {
				j++
			}
			var digits strings.Builder
			for k := j - 1; k >= i; k-- {
				digits.WriteString(s[k].Data.String())
			}
			parts = append(parts, fmt.Sprintf("(const %d %s)", j-i, digits.String()))
		} else {
			wire := s[i].Wire
			for j < len(s) && s[j].Wire == wire && s[j].Offset == s[i].Offset+(j-i) {
				j++
			}
			lo, hi := s[i].Offset, s[j-1].Offset
			if lo == 0 && hi == wire.Width-1 {
				parts = append(parts, fmt.Sprintf("(ref %s)", sexpName(wire.Name)))
			} else {
				parts = append(parts, fmt.Sprintf("(slice %s %d %d)", sexpName(wire.Name), hi, lo))
			}
		}
		i = j
	}
	if len(parts) == 1 {
		return parts[0]
	}
	// most significant chunk first
	for k, l := 0, len(parts)-1; k < l; k, l = k+1, l-1 {
		parts[k], parts[l] = parts[l], parts[k]
	}
	return "(cat " + strings.Join(parts, " ") + ")"
}
