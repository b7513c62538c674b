package tribuf

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// cellSet holds cell names, not pointers: a deleted cell resolves to
// nil at lookup time instead of dangling.
type cellSet map[string]bool

func (s cellSet) names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// The two indices below are the central bookkeeping of the pass. Every
// port rewrite, cell creation and cell deletion must be bracketed by
// the matching register/unregister calls before control returns to the
// worklist loop; checkIndices verifies exactly that.

// registerDriver records cell as a producer of every wire bit of sig.
func (w *worker) registerDriver(sig rtl.SigSpec, cell *rtl.Cell) {
	for _, bit := range w.sigmap.Map(sig) {
		if bit.Wire == nil {
			continue
		}
		set, ok := w.drivers[bit]
		if !ok {
			set = make(cellSet)
			w.drivers[bit] = set
		}
		set[cell.Name] = true
	}
}

func (w *worker) unregisterDriver(sig rtl.SigSpec, cell *rtl.Cell) {
	for _, bit := range w.sigmap.Map(sig) {
		if bit.Wire == nil {
			continue
		}
		if set, ok := w.drivers[bit]; ok {
			delete(set, cell.Name)
		}
	}
}

// registerConsumer records cell as a propagation candidate reading
// every wire bit of sig as a data input.
func (w *worker) registerConsumer(sig rtl.SigSpec, cell *rtl.Cell) {
	for _, bit := range w.sigmap.Map(sig) {
		if bit.Wire == nil {
			continue
		}
		set, ok := w.consumers[bit]
		if !ok {
			set = make(cellSet)
			w.consumers[bit] = set
		}
		set[cell.Name] = true
	}
}

func (w *worker) unregisterConsumer(sig rtl.SigSpec, cell *rtl.Cell) {
	for _, bit := range w.sigmap.Map(sig) {
		if bit.Wire == nil {
			continue
		}
		if set, ok := w.consumers[bit]; ok {
			delete(set, cell.Name)
		}
	}
}

// cellsOf resolves a cellSet to live cells in deterministic name order.
// Stale entries resolve to nil and are reported by the caller through
// checkIndices; here they are skipped.
func (w *worker) cellsOf(set cellSet) []*rtl.Cell {
	out := make([]*rtl.Cell, 0, len(set))
	for _, name := range set.names() {
		if c := w.module.Cell(name); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func sortedBits(set map[rtl.SigBit]bool) []rtl.SigBit {
	out := make([]rtl.SigBit, 0, len(set))
	for bit := range set {
		out = append(out, bit)
	}
	rtl.SortBits(out)
	return out
}

// checkIndices re-derives both indices from the live netlist and
// reports the first disagreement. It may be invoked at any point
// between discrete steps; the rewrite operations never leave a
// half-updated state behind.
func (w *worker) checkIndices() error {
	if err := w.checkConsumers(); err != nil {
		return err
	}
	return w.checkDrivers()
}

func (w *worker) checkConsumers() error {
	if !w.opts.Propagate {
		return nil
	}

	// every index entry must match a live cell that actually reads the bit
	for bit, set := range w.consumers {
		for name := range set {
			cell := w.module.Cell(name)
			if cell == nil {
				return fmt.Errorf("%w: consumer index references deleted cell %s for %s",
					ErrInvariant, name, bit)
			}
			var inputs []rtl.SigSpec
			switch cell.Type {
			case rtl.CellMux:
				inputs = []rtl.SigSpec{cell.GetPort(rtl.PortA), cell.GetPort(rtl.PortB)}
			case rtl.CellTribuf:
				inputs = []rtl.SigSpec{cell.GetPort(rtl.PortA)}
			default:
				return fmt.Errorf("%w: consumer index holds non-selector cell %s (%s)",
					ErrInvariant, name, cell.Type)
			}
			found := false
			for _, sig := range inputs {
				if len(w.sigmap.Map(sig).Extract(rtl.SigSpec{bit})) > 0 {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: cell %s is registered as consumer of %s but does not read it",
					ErrInvariant, name, bit)
			}
		}
	}

	// every selected mux/tribuf data input bit must be registered
	for _, cell := range w.module.Cells() {
		if cell.Type != rtl.CellMux && cell.Type != rtl.CellTribuf {
			continue
		}
		if !w.design.Selected(w.module.Name, cell.Name) {
			continue
		}
		ports := []string{rtl.PortA}
		if cell.Type == rtl.CellMux {
			ports = append(ports, rtl.PortB)
		}
		for _, port := range ports {
			for _, bit := range w.sigmap.Map(cell.GetPort(port)) {
				if bit.Wire == nil {
					continue
				}
				if !w.consumers[bit][cell.Name] {
					return fmt.Errorf("%w: cell %s reads %s on port %s but is not in the consumer index",
						ErrInvariant, cell.Name, bit, port)
				}
			}
		}
	}
	return nil
}

func (w *worker) checkDrivers() error {
	for bit, set := range w.drivers {
		for name := range set {
			cell := w.module.Cell(name)
			if cell == nil {
				return fmt.Errorf("%w: driving index references deleted cell %s for %s",
					ErrInvariant, name, bit)
			}
			found := false
			for _, port := range cell.PortNames() {
				if !cell.IsOutputPort(port) {
					continue
				}
				if len(w.sigmap.Map(cell.GetPort(port)).Extract(rtl.SigSpec{bit})) > 0 {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: cell %s is registered as driver of %s but does not drive it",
					ErrInvariant, name, bit)
			}
		}
	}

	for _, cell := range w.module.Cells() {
		for _, port := range cell.PortNames() {
			if !cell.IsOutputPort(port) {
				continue
			}
			for _, bit := range w.sigmap.Map(cell.GetPort(port)) {
				if bit.Wire == nil {
					continue
				}
				if !w.drivers[bit][cell.Name] {
					return fmt.Errorf("%w: cell %s drives %s but is not in the driving index",
						ErrInvariant, cell.Name, bit)
				}
			}
		}
	}
	return nil
}
