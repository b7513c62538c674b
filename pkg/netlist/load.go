package netlist

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// Load converts a parse tree into an rtl.Design, validating wire
// references, slice bounds and constant widths. Wires must be declared
// before use.
func Load(file *File) (*rtl.Design, error) {
	design := rtl.NewDesign()
	for _, md := range file.Modules {
		if design.Module(md.Name) != nil {
			return nil, fmt.Errorf("duplicate module %s", md.Name)
		}
		m := design.AddModule(md.Name)
		if err := loadModule(m, md); err != nil {
			return nil, fmt.Errorf("module %s: %w", md.Name, err)
		}
	}
	return design, nil
}

// LoadFile parses and loads a netlist file in one step.
func LoadFile(filename string) (*rtl.Design, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	file, err := p.ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return Load(file)
}

// LoadString parses and loads netlist source text in one step.
func LoadString(input string) (*rtl.Design, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	file, err := p.ParseString(input)
	if err != nil {
		return nil, err
	}
	return Load(file)
}

func loadModule(m *rtl.Module, md *ModuleDecl) error {
	for _, stmt := range md.Stmts {
		switch {
		case stmt.Wire != nil:
			if err := loadWire(m, stmt.Wire); err != nil {
				return err
			}
		case stmt.Cell != nil:
			if err := loadCell(m, stmt.Cell); err != nil {
				return err
			}
		case stmt.Conn != nil:
			lhs, err := resolveSpec(m, stmt.Conn.LHS)
			if err != nil {
				return err
			}
			rhs, err := resolveSpec(m, stmt.Conn.RHS)
			if err != nil {
				return err
			}
			if len(lhs) != len(rhs) {
				return fmt.Errorf("connection width mismatch: %s (%d bits) vs %s (%d bits)",
					lhs, len(lhs), rhs, len(rhs))
			}
			m.Connect(lhs, rhs)
		}
	}
	return nil
}

func loadWire(m *rtl.Module, wd *WireDecl) error {
	if m.Wire(wd.Name) != nil {
		return fmt.Errorf("duplicate wire %s", wd.Name)
	}
	width := 1
	var input, output *int
	for _, opt := range wd.Options {
		switch {
		case opt.Width != nil:
			width = *opt.Width
		case opt.Input != nil:
			input = opt.Input
		case opt.Output != nil:
			output = opt.Output
		}
	}
	if width < 1 {
		return fmt.Errorf("wire %s has invalid width %d", wd.Name, width)
	}
	w := m.AddWire(wd.Name, width)
	if input != nil {
		w.PortInput = true
		w.PortID = *input
	}
	if output != nil {
		w.PortOutput = true
		w.PortID = *output
	}
	return nil
}

func loadCell(m *rtl.Module, cd *CellDecl) error {
	if m.Cell(cd.Name) != nil {
		return fmt.Errorf("duplicate cell %s", cd.Name)
	}
	c := m.AddCell(cd.Name, rtl.CellType(cd.Type))
	for _, stmt := range cd.Body {
		switch {
		case stmt.Param != nil:
			c.SetParam(stmt.Param.Name, stmt.Param.Value)
		case stmt.Attr != nil:
			c.SetAttribute(stmt.Attr.Name, stmt.Attr.Value)
		case stmt.Conn != nil:
			sig, err := resolveSpec(m, stmt.Conn.Sig)
			if err != nil {
				return fmt.Errorf("cell %s port %s: %w", cd.Name, stmt.Conn.Port, err)
			}
			c.SetPort(stmt.Conn.Port, sig)
		}
	}
	return nil
}

func resolveSpec(m *rtl.Module, node *SigSpecNode) (rtl.SigSpec, error) {
	if node.Chunk != nil {
		return resolveChunk(m, node.Chunk)
	}
	// concatenation: most significant chunk is listed first, the spec
	// is built least significant bit first
	var spec rtl.SigSpec
	for i := len(node.Concat) - 1; i >= 0; i-- {
		bits, err := resolveChunk(m, node.Concat[i])
		if err != nil {
			return nil, err
		}
		spec = append(spec, bits...)
	}
	return spec, nil
}

func resolveChunk(m *rtl.Module, node *ChunkNode) (rtl.SigSpec, error) {
	if node.Const != nil {
		return parseConst(*node.Const)
	}
	ref := node.Wire
	w := m.Wire(ref.Name)
	if w == nil {
		return nil, fmt.Errorf("unknown wire %s", ref.Name)
	}
	if ref.Range == nil {
		return w.Bits(), nil
	}
	hi := ref.Range.Hi
	lo := hi
	if ref.Range.Lo != nil {
		lo = *ref.Range.Lo
	}
	if lo > hi || lo < 0 || hi >= w.Width {
		return nil, fmt.Errorf("slice [%d:%d] out of range for wire %s (width %d)", hi, lo, ref.Name, w.Width)
	}
	spec := make(rtl.SigSpec, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		spec = append(spec, rtl.WireBit(w, i))
	}
	return spec, nil
}

// parseConst decodes a sized constant like 4'01xz. The digit string is
// most significant bit first and must match the declared width.
func parseConst(text string) (rtl.SigSpec, error) {
	sep := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '\'' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, fmt.Errorf("malformed constant %q", text)
	}
	width := 0
	for _, ch := range text[:sep] {
		width = width*10 + int(ch-'0')
	}
	digits := text[sep+1:]
	if len(digits) != width {
		return nil, fmt.Errorf("constant %q: %d digits for declared width %d", text, len(digits), width)
	}
	spec := make(rtl.SigSpec, 0, width)
	for i := len(digits) - 1; i >= 0; i-- {
		var state rtl.State
		switch digits[i] {
		case '0':
			state = rtl.S0
		case '1':
			state = rtl.S1
		case 'x':
			state = rtl.Sx
		case 'z':
			state = rtl.Sz
		default:
			return nil, fmt.Errorf("constant %q: invalid digit %q", text, digits[i])
		}
		spec = append(spec, rtl.ConstBit(state))
	}
	return spec, nil
}
