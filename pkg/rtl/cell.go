package rtl

import "sort"

// Wire is a named multi-bit electrical connection point. Wires whose
// name starts with '\' are public (they appeared in the source design);
// '$' names are internal, allocated by passes.
type Wire struct {
	Name       string
	Width      int
	PortInput  bool
	PortOutput bool
	PortID     int
}

// Public reports whether the wire carries a user-visible name.
func (w *Wire) Public() bool {
	return len(w.Name) > 0 && w.Name[0] != '$'
}

// Bits returns the wire as a full-width SigSpec, LSB first.
func (w *Wire) Bits() SigSpec {
	spec := make(SigSpec, w.Width)
	for i := range spec {
		spec[i] = WireBit(w, i)
	}
	return spec
}

// CellType identifies the logic function of a cell.
type CellType string

const (
	CellMux      CellType = "$mux"       // ports A, B, S, Y; Y = S ? B : A
	CellPmux     CellType = "$pmux"      // ports A, B, S, Y; priority select, first-listed S bit wins
	CellTribuf   CellType = "$tribuf"    // ports A, EN, Y; Y = EN ? A : z
	CellNot      CellType = "$not"       // ports A, Y
	CellAnd      CellType = "$and"       // ports A, B, Y
	CellOr       CellType = "$or"        // ports A, B, Y
	CellReduceOr CellType = "$reduce_or" // ports A, Y; Y = |A
	CellAssert   CellType = "$assert"    // ports A, EN; formal property, fails when EN=1 and A=0
)

// Port name constants shared by the cell library.
const (
	PortA  = "A"
	PortB  = "B"
	PortS  = "S"
	PortEN = "EN"
	PortY  = "Y"
)

// ParamWidth is the declared data width of a cell.
const ParamWidth = "WIDTH"

// Cell is a typed logic element with named port bindings.
type Cell struct {
	Name       string
	Type       CellType
	Params     map[string]int
	Attributes map[string]string

	ports map[string]SigSpec
}

func newCell(name string, typ CellType) *Cell {
	return &Cell{
		Name:  name,
		Type:  typ,
		ports: make(map[string]SigSpec),
	}
}

// GetPort returns the binding of the named port, or nil when unbound.
func (c *Cell) GetPort(name string) SigSpec {
	return c.ports[name]
}

// SetPort binds a port. Rewriting a port binding is an atomic mutation;
// callers that maintain bit indices must update them immediately after.
func (c *Cell) SetPort(name string, sig SigSpec) {
	c.ports[name] = sig
}

// UnsetPort removes a port binding.
func (c *Cell) UnsetPort(name string) {
	delete(c.ports, name)
}

// HasPort reports whether the port is bound.
func (c *Cell) HasPort(name string) bool {
	_, ok := c.ports[name]
	return ok
}

// PortNames returns the bound port names in sorted order.
func (c *Cell) PortNames() []string {
	names := make([]string, 0, len(c.ports))
	for name := range c.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsOutputPort reports whether the named port produces a value. Every
// cell type in the library drives exactly its Y port; $assert drives
// nothing.
func (c *Cell) IsOutputPort(name string) bool {
	if c.Type == CellAssert {
		return false
	}
	return name == PortY
}

// SetParam records an integer parameter such as WIDTH.
func (c *Cell) SetParam(name string, value int) {
	if c.Params == nil {
		c.Params = make(map[string]int)
	}
	c.Params[name] = value
}

// SetAttribute records a string attribute such as keep or src.
func (c *Cell) SetAttribute(name, value string) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]string)
	}
	c.Attributes[name] = value
}
