package rtl

import "fmt"

// Connection is a module-level alias: every bit of LHS is the same
// electrical node as the corresponding bit of RHS.
type Connection struct {
	LHS SigSpec
	RHS SigSpec
}

// Module is a flat netlist: wires, cells and connections. Wires and
// cells live in owning tables keyed by stable names; passes that index
// cells store the names, not the pointers, so a deleted cell resolves to
// nil instead of dangling.
type Module struct {
	Name   string
	Design *Design

	wires     map[string]*Wire
	wireOrder []string
	cells     map[string]*Cell
	cellOrder []string
	conns     []Connection

	autoIdx int
}

// NewModule creates an empty standalone module. Modules belonging to a
// design are created with Design.AddModule.
func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		wires: make(map[string]*Wire),
		cells: make(map[string]*Cell),
	}
}

// NewID allocates a fresh internal name, unique within the module.
func (m *Module) NewID() string {
	for {
		m.autoIdx++
		name := fmt.Sprintf("$auto$%d", m.autoIdx)
		if m.wires[name] == nil && m.cells[name] == nil {
			return name
		}
	}
}

// AddWire creates a wire. The name must be unused; passes allocate
// internal names with NewID, the loader checks its own duplicates.
func (m *Module) AddWire(name string, width int) *Wire {
	if _, ok := m.wires[name]; ok {
		panic(fmt.Sprintf("rtl: duplicate wire %s in module %s", name, m.Name))
	}
	w := &Wire{Name: name, Width: width}
	m.wires[name] = w
	m.wireOrder = append(m.wireOrder, name)
	return w
}

// Wire looks a wire up by name, returning nil when absent.
func (m *Module) Wire(name string) *Wire {
	return m.wires[name]
}

// Wires returns the live wires in creation order.
func (m *Module) Wires() []*Wire {
	out := make([]*Wire, 0, len(m.wires))
	for _, name := range m.wireOrder {
		if w, ok := m.wires[name]; ok {
			out = append(out, w)
		}
	}
	return out
}

// AddCell creates a cell of the given type. The name must be unused.
func (m *Module) AddCell(name string, typ CellType) *Cell {
	if _, ok := m.cells[name]; ok {
		panic(fmt.Sprintf("rtl: duplicate cell %s in module %s", name, m.Name))
	}
	c := newCell(name, typ)
	m.cells[name] = c
	m.cellOrder = append(m.cellOrder, name)
	return c
}

// Cell looks a cell up by name, returning nil when absent or deleted.
func (m *Module) Cell(name string) *Cell {
	return m.cells[name]
}

// Cells returns a snapshot of the live cells in creation order. Cells
// added or removed after the call do not affect the returned slice.
func (m *Module) Cells() []*Cell {
	out := make([]*Cell, 0, len(m.cells))
	for _, name := range m.cellOrder {
		if c, ok := m.cells[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Remove deletes a cell from the module. Lookups by the old name return
// nil afterwards.
func (m *Module) Remove(c *Cell) {
	if m.cells[c.Name] == c {
		delete(m.cells, c.Name)
	}
}

// Connect records a module-level alias between two equal-width specs.
func (m *Module) Connect(lhs, rhs SigSpec) {
	if len(lhs) != len(rhs) {
		panic(fmt.Sprintf("rtl: connection width mismatch in %s: %d vs %d", m.Name, len(lhs), len(rhs)))
	}
	m.conns = append(m.conns, Connection{LHS: lhs, RHS: rhs})
}

// Connections returns the module-level aliases.
func (m *Module) Connections() []Connection {
	return m.conns
}

// SetConnections replaces the module-level aliases; used by passes that
// rewrite or drop connections wholesale.
func (m *Module) SetConnections(conns []Connection) {
	m.conns = conns
}

// Gate builders. The Add* forms bind an explicit output; the expression
// forms allocate a fresh wire for the result and return it as a spec,
// mirroring how the synthesis passes compose enables.

func (m *Module) AddNot(name string, a, y SigSpec) *Cell {
	c := m.AddCell(name, CellNot)
	c.SetPort(PortA, a)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(y))
	return c
}

func (m *Module) AddAnd(name string, a, b, y SigSpec) *Cell {
	c := m.AddCell(name, CellAnd)
	c.SetPort(PortA, a)
	c.SetPort(PortB, b)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(y))
	return c
}

func (m *Module) AddOr(name string, a, b, y SigSpec) *Cell {
	c := m.AddCell(name, CellOr)
	c.SetPort(PortA, a)
	c.SetPort(PortB, b)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(y))
	return c
}

func (m *Module) AddReduceOr(name string, a, y SigSpec) *Cell {
	c := m.AddCell(name, CellReduceOr)
	c.SetPort(PortA, a)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(a))
	return c
}

func (m *Module) AddMux(name string, a, b, s, y SigSpec) *Cell {
	c := m.AddCell(name, CellMux)
	c.SetPort(PortA, a)
	c.SetPort(PortB, b)
	c.SetPort(PortS, s)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(y))
	return c
}

// AddPmux creates a priority selector: y takes the B slice of the first
// asserted S bit, or a when no S bit is asserted.
func (m *Module) AddPmux(name string, a, b, s, y SigSpec) *Cell {
	c := m.AddCell(name, CellPmux)
	c.SetPort(PortA, a)
	c.SetPort(PortB, b)
	c.SetPort(PortS, s)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(y))
	return c
}

func (m *Module) AddTribuf(name string, a, en, y SigSpec) *Cell {
	c := m.AddCell(name, CellTribuf)
	c.SetPort(PortA, a)
	c.SetPort(PortEN, en)
	c.SetPort(PortY, y)
	c.SetParam(ParamWidth, len(y))
	return c
}

// AddAssert creates a formal property cell: the property fails when en
// is high and a is low.
func (m *Module) AddAssert(name string, a, en SigSpec) *Cell {
	c := m.AddCell(name, CellAssert)
	c.SetPort(PortA, a)
	c.SetPort(PortEN, en)
	return c
}

func (m *Module) Not(name string, a SigSpec) SigSpec {
	y := m.AddWire(m.NewID(), len(a))
	m.AddNot(name, a, y.Bits())
	return y.Bits()
}

func (m *Module) And(name string, a, b SigSpec) SigSpec {
	y := m.AddWire(m.NewID(), len(a))
	m.AddAnd(name, a, b, y.Bits())
	return y.Bits()
}

func (m *Module) Or(name string, a, b SigSpec) SigSpec {
	y := m.AddWire(m.NewID(), len(a))
	m.AddOr(name, a, b, y.Bits())
	return y.Bits()
}

func (m *Module) ReduceOr(name string, a SigSpec) SigSpec {
	y := m.AddWire(m.NewID(), 1)
	m.AddReduceOr(name, a, y.Bits())
	return y.Bits()
}
