package tribuf

import (
	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// worker runs the pass over a single module. It owns the two bit
// indices and the set of pending tri-state output bits; all three must
// stay exactly consistent with the module as it is rewritten.
type worker struct {
	design *rtl.Design
	module *rtl.Module
	sigmap *rtl.SigMap
	opts   Options

	// driving index: canonical bit -> cells whose output produces it
	drivers map[rtl.SigBit]cellSet

	// consumer index: canonical bit -> mux/tribuf cells reading it as
	// a data input, candidates for propagation
	consumers map[rtl.SigBit]cellSet

	// canonical output bits of tri-state drivers not yet resolved
	tristate map[rtl.SigBit]bool

	// canonical bits bound to module output ports
	outputBits map[rtl.SigBit]bool

	changed int
}

func newWorker(design *rtl.Design, m *rtl.Module, opts Options) *worker {
	return &worker{
		design:    design,
		module:    m,
		sigmap:    rtl.NewSigMap(m),
		opts:      opts,
		drivers:   make(map[rtl.SigBit]cellSet),
		consumers: make(map[rtl.SigBit]cellSet),
		tristate:  make(map[rtl.SigBit]bool),
	}
}

func (w *worker) logf(format string, args ...any) {
	if w.opts.Log != nil {
		w.opts.Log.Printf(format, args...)
	}
}

func (w *worker) run() error {
	w.outputBits = rtl.OutputBits(w.module, w.sigmap)

	w.classify()
	w.buildDrivers()

	if w.opts.Check {
		if err := w.checkIndices(); err != nil {
			return err
		}
	}

	if w.opts.Propagate {
		if err := w.propagate(); err != nil {
			return err
		}
	}

	if w.opts.Merge || w.opts.Logic || w.opts.Formal {
		if err := w.finalMerge(); err != nil {
			return err
		}
	}

	if w.opts.Check {
		return w.checkIndices()
	}
	return nil
}

func isAllZ(sig rtl.SigSpec) bool {
	return len(sig) > 0 && sig.IsAllConst(rtl.Sz)
}

// classify converts selectable muxes with disconnected inputs into
// tri-state buffers and seeds the consumer index. Visitation order does
// not affect the outcome: each decision depends only on the cell's own
// ports.
func (w *worker) classify() {
	for _, cell := range w.module.Cells() {
		if !w.design.Selected(w.module.Name, cell.Name) {
			continue
		}

		switch cell.Type {
		case rtl.CellTribuf:
			w.markTristate(cell.GetPort(rtl.PortY), nil)
			if w.opts.Propagate {
				w.registerConsumer(cell.GetPort(rtl.PortA), cell)
			}

		case rtl.CellMux:
			az := isAllZ(cell.GetPort(rtl.PortA))
			bz := isAllZ(cell.GetPort(rtl.PortB))

			if w.opts.Propagate && !az && !bz {
				w.registerConsumer(cell.GetPort(rtl.PortA), cell)
				w.registerConsumer(cell.GetPort(rtl.PortB), cell)
			}

			switch {
			case az && bz:
				// both inputs disconnected: the output is never driven
				w.logf("removing mux %s with both inputs disconnected", cell.Name)
				w.module.Remove(cell)
				w.changed++

			case az:
				cell.SetPort(rtl.PortA, cell.GetPort(rtl.PortB))
				cell.SetPort(rtl.PortEN, cell.GetPort(rtl.PortS))
				cell.UnsetPort(rtl.PortB)
				cell.UnsetPort(rtl.PortS)
				cell.Type = rtl.CellTribuf
				w.markTristate(cell.GetPort(rtl.PortY), nil)
				if w.opts.Propagate {
					w.registerConsumer(cell.GetPort(rtl.PortA), cell)
				}
				w.logf("converted mux %s to tri-state buffer (A disconnected)", cell.Name)
				w.changed++

			case bz:
				cell.SetPort(rtl.PortEN, w.module.Not(w.module.NewID(), cell.GetPort(rtl.PortS)))
				cell.UnsetPort(rtl.PortB)
				cell.UnsetPort(rtl.PortS)
				cell.Type = rtl.CellTribuf
				w.markTristate(cell.GetPort(rtl.PortY), nil)
				if w.opts.Propagate {
					w.registerConsumer(cell.GetPort(rtl.PortA), cell)
				}
				w.logf("converted mux %s to tri-state buffer (B disconnected, select inverted)", cell.Name)
				w.changed++
			}
		}
	}
}

// markTristate records the wire bits of sig as pending tri-state
// outputs; when worklist is non-nil the bits are also queued for the
// next propagation round.
func (w *worker) markTristate(sig rtl.SigSpec, worklist map[rtl.SigBit]bool) {
	for _, bit := range w.sigmap.Map(sig) {
		if bit.Wire == nil {
			continue
		}
		w.tristate[bit] = true
		if worklist != nil {
			worklist[bit] = true
		}
	}
}

// buildDrivers derives the driving index from scratch. It runs once,
// after classification; every later mutation maintains the index
// incrementally.
func (w *worker) buildDrivers() {
	for _, cell := range w.module.Cells() {
		for _, port := range cell.PortNames() {
			if cell.IsOutputPort(port) {
				w.registerDriver(cell.GetPort(port), cell)
			}
		}
	}
}

// allTristate reports whether every cell in the set is a tri-state
// buffer; the blocking cell is returned otherwise.
func (w *worker) allTristate(set cellSet) (bool, *rtl.Cell) {
	for _, cell := range w.cellsOf(set) {
		if cell.Type != rtl.CellTribuf {
			return false, cell
		}
	}
	return true, nil
}

// Gate helpers for the propagation and merge rewrites. Each creates the
// gate and registers its output in the driving index before returning,
// keeping the rewrite transactional.

func (w *worker) notGate(a rtl.SigSpec) rtl.SigSpec {
	y := w.module.AddWire(w.module.NewID(), len(a))
	c := w.module.AddNot(w.module.NewID(), a, y.Bits())
	w.registerDriver(y.Bits(), c)
	return y.Bits()
}

func (w *worker) andGate(a, b rtl.SigSpec) rtl.SigSpec {
	y := w.module.AddWire(w.module.NewID(), len(a))
	c := w.module.AddAnd(w.module.NewID(), a, b, y.Bits())
	w.registerDriver(y.Bits(), c)
	return y.Bits()
}

func (w *worker) orGate(a, b rtl.SigSpec) rtl.SigSpec {
	y := w.module.AddWire(w.module.NewID(), len(a))
	c := w.module.AddOr(w.module.NewID(), a, b, y.Bits())
	w.registerDriver(y.Bits(), c)
	return y.Bits()
}

func (w *worker) reduceOrGate(a rtl.SigSpec) rtl.SigSpec {
	y := w.module.AddWire(w.module.NewID(), 1)
	c := w.module.AddReduceOr(w.module.NewID(), a, y.Bits())
	w.registerDriver(y.Bits(), c)
	return y.Bits()
}
