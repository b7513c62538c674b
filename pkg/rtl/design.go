package rtl

// Design is an ordered collection of modules plus an optional selection
// restricting which cells a pass may rewrite.
type Design struct {
	modules     map[string]*Module
	moduleOrder []string
	selection   *Selection
}

// NewDesign creates an empty design with everything selected.
func NewDesign() *Design {
	return &Design{modules: make(map[string]*Module)}
}

// AddModule creates a module in the design.
func (d *Design) AddModule(name string) *Module {
	m := NewModule(name)
	m.Design = d
	d.modules[name] = m
	d.moduleOrder = append(d.moduleOrder, name)
	return m
}

// Module looks a module up by name, returning nil when absent.
func (d *Design) Module(name string) *Module {
	return d.modules[name]
}

// Modules returns the modules in creation order.
func (d *Design) Modules() []*Module {
	out := make([]*Module, 0, len(d.modules))
	for _, name := range d.moduleOrder {
		if m, ok := d.modules[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Selection names the subset of cells a pass invocation may touch. A
// nil Selection (the default) selects everything.
type Selection struct {
	cells map[string]map[string]bool // module name -> cell names
}

// NewSelection builds a selection from explicit module/cell names.
func NewSelection() *Selection {
	return &Selection{cells: make(map[string]map[string]bool)}
}

// Add marks a cell as selected.
func (s *Selection) Add(module, cell string) {
	if s.cells[module] == nil {
		s.cells[module] = make(map[string]bool)
	}
	s.cells[module][cell] = true
}

// SetSelection installs a selection on the design; nil restores the
// select-everything default.
func (d *Design) SetSelection(s *Selection) {
	d.selection = s
}

// Selected reports whether a pass may rewrite the given cell.
func (d *Design) Selected(module, cell string) bool {
	if d.selection == nil {
		return true
	}
	return d.selection.cells[module][cell]
}
