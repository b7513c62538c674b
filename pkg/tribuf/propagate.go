package tribuf

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// propagate drains the worklist of tri-state driven bits in discrete
// rounds: the current round is fully processed before the bits it
// produced (by splitting consumers) are looked at. Every bit resolved
// is removed from future consideration and splits only redistribute
// existing output bits across narrower cells, so the worklist empties
// after at most one round per stage of the longest tri-state fan-out
// chain.
func (w *worker) propagate() error {
	next := make(map[rtl.SigBit]bool, len(w.tristate))
	for bit := range w.tristate {
		next[bit] = true
	}

	for len(next) > 0 {
		w.logf("propagating tri-state buffers through consumers: %d signals pending", len(next))
		current := sortedBits(next)
		next = make(map[rtl.SigBit]bool)
		for _, bit := range current {
			if w.opts.Check {
				if err := w.checkIndices(); err != nil {
					return err
				}
			}
			if err := w.propagateBit(bit, next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *worker) propagateBit(bit rtl.SigBit, next map[rtl.SigBit]bool) error {
	if len(w.consumers[bit]) == 0 {
		return nil
	}

	dset := w.drivers[bit]
	if len(dset) == 0 {
		w.logf("no driver left for %s", bit)
		return nil
	}
	if ok, blocker := w.allTristate(dset); !ok {
		w.logf("non-tri-state buffer %s drives %s", blocker.Name, bit)
		return nil
	}

	if len(dset) > 1 {
		if !w.opts.Merge {
			// without merge the bit is dropped, not re-queued; see the
			// -merge documentation
			w.logf("more than one tri-state buffer drives %s", bit)
			return nil
		}
		if err := w.merge(bit); err != nil {
			return err
		}
		dset = w.drivers[bit]
		if len(dset) != 1 {
			w.logf("merge did not leave a single driver on %s", bit)
			return nil
		}
	}

	if !w.tristate[bit] {
		w.logf("no pending tri-state buffer for %s", bit)
		return nil
	}

	resolved := w.cellsOf(dset)
	if len(resolved) != 1 {
		return fmt.Errorf("%w: driving index for %s references a deleted cell", ErrInvariant, bit)
	}
	driver := resolved[0]
	if driver.Type != rtl.CellTribuf {
		return nil
	}
	delete(w.tristate, bit)

	skipped := false
	for _, cell := range w.cellsOf(w.consumers[bit]) {
		// earlier rewrites in this loop may have dropped the entry
		if !w.consumers[bit][cell.Name] {
			continue
		}
		if cell == driver {
			skipped = true
			continue
		}
		if !w.design.Selected(w.module.Name, cell.Name) {
			skipped = true
			continue
		}
		switch cell.Type {
		case rtl.CellMux:
			s, err := w.pushThroughMux(bit, driver, cell, next)
			if err != nil {
				return err
			}
			skipped = skipped || s
		case rtl.CellTribuf:
			s, err := w.pushThroughTribuf(bit, driver, cell, next)
			if err != nil {
				return err
			}
			skipped = skipped || s
		default:
			skipped = true
		}
	}

	w.retireDriver(driver, skipped)
	return nil
}

// driverInputMap projects the driver's output bits onto its data input:
// canonical output bit -> raw input bit at the same position.
func (w *worker) driverInputMap(driver *rtl.Cell) map[rtl.SigBit]rtl.SigBit {
	outputY := w.sigmap.Map(driver.GetPort(rtl.PortY))
	x := driver.GetPort(rtl.PortA)
	m := make(map[rtl.SigBit]rtl.SigBit, len(outputY))
	for i, ob := range outputY {
		if _, ok := m[ob]; !ok {
			m[ob] = x[i]
		}
	}
	return m
}

// pushThroughMux rewrites a downstream mux so it reads the driver's
// data input instead of its tri-stated output, and wraps the mux output
// in a new tri-state buffer whose enable absorbs the mux select:
//
//	tribuf(X, E) -> mux(_, B, S)  becomes  mux(X, B, S) -> tribuf(E or S)
//	tribuf(X, E) -> mux(A, _, S)  becomes  mux(A, X, S) -> tribuf(E or not S)
//
// When the driver covers only part of the data input, the mux is split
// at the bit boundary and only the covered half is wrapped.
func (w *worker) pushThroughMux(bit rtl.SigBit, driver, cell *rtl.Cell, next map[rtl.SigBit]bool) (bool, error) {
	aPort := w.sigmap.Map(cell.GetPort(rtl.PortA))
	bPort := w.sigmap.Map(cell.GetPort(rtl.PortB))

	var side string
	switch {
	case aPort.Contains(bit):
		side = rtl.PortA
	case bPort.Contains(bit):
		side = rtl.PortB
	default:
		w.logf("mux %s is registered as consumer of %s but reads neither data input from it",
			cell.Name, bit)
		return true, nil
	}
	isA := side == rtl.PortA
	otherName := rtl.PortA
	if isA {
		otherName = rtl.PortB
	}

	xMap := w.driverInputMap(driver)
	inputY := w.sigmap.Map(cell.GetPort(side))
	rawSide := cell.GetPort(side)
	rawOther := cell.GetPort(otherName)
	rawY := cell.GetPort(rtl.PortY)
	muxS := cell.GetPort(rtl.PortS)

	// partition the mux positions into overlap and remainder
	var newX, extRawSide, extOther, extY2 rtl.SigSpec
	var keptSide, keptOther, keptY2 rtl.SigSpec
	for i, b := range inputY {
		if xb, ok := xMap[b]; ok {
			newX = append(newX, xb)
			extRawSide = append(extRawSide, rawSide[i])
			extOther = append(extOther, rawOther[i])
			extY2 = append(extY2, rawY[i])
		} else {
			keptSide = append(keptSide, rawSide[i])
			keptOther = append(keptOther, rawOther[i])
			keptY2 = append(keptY2, rawY[i])
		}
	}
	if len(newX) == 0 {
		w.logf("mux %s has no bit overlap with driver %s of %s", cell.Name, driver.Name, bit)
		return true, nil
	}

	y3 := w.module.AddWire(w.module.NewID(), len(newX))

	if len(keptY2) == 0 {
		// full-width overlap: redirect the data input in place
		w.logf("propagating tri-state buffer %s through mux %s (side %s)", driver.Name, cell.Name, side)
		cell.SetPort(side, newX)
		cell.SetPort(rtl.PortY, y3.Bits())
		w.unregisterConsumer(rawSide, cell)
		w.registerConsumer(newX, cell)
		w.registerConsumer(rawOther, cell)
		w.unregisterDriver(rawY, cell)
		w.registerDriver(y3.Bits(), cell)
	} else {
		// partial overlap: split at the bit boundary
		w.logf("splitting mux %s into %s and %s", cell.Name, extY2, keptY2)
		cell.SetPort(side, keptSide)
		cell.SetPort(otherName, keptOther)
		cell.SetPort(rtl.PortY, keptY2)
		cell.SetParam(rtl.ParamWidth, len(keptY2))

		var selector *rtl.Cell
		if isA {
			selector = w.module.AddMux(w.module.NewID(), newX, extOther, muxS, y3.Bits())
		} else {
			selector = w.module.AddMux(w.module.NewID(), extOther, newX, muxS, y3.Bits())
		}

		w.unregisterConsumer(extRawSide, cell)
		w.unregisterConsumer(extOther, cell)
		w.registerConsumer(cell.GetPort(side), cell)
		w.registerConsumer(cell.GetPort(otherName), cell)
		w.registerConsumer(selector.GetPort(rtl.PortA), selector)
		w.registerConsumer(selector.GetPort(rtl.PortB), selector)
		w.unregisterDriver(extY2, cell)
		w.registerDriver(y3.Bits(), selector)
	}

	en := driver.GetPort(rtl.PortEN)
	var orY rtl.SigSpec
	if isA {
		orY = w.orGate(en, muxS)
	} else {
		orY = w.orGate(en, w.notGate(muxS))
	}
	nt := w.module.AddTribuf(w.module.NewID(), y3.Bits(), orY, extY2)
	w.registerDriver(extY2, nt)
	w.registerConsumer(y3.Bits(), nt)
	w.markTristate(extY2, next)
	w.changed++
	return false, nil
}

// pushThroughTribuf folds two tri-state buffers in series into one:
//
//	tribuf(A, E1) -> tribuf(_, E2)  becomes  tribuf(A, E1 and E2)
//
// splitting the downstream buffer first when the overlap is partial.
func (w *worker) pushThroughTribuf(bit rtl.SigBit, driver, cell *rtl.Cell, next map[rtl.SigBit]bool) (bool, error) {
	xMap := w.driverInputMap(driver)
	input := w.sigmap.Map(cell.GetPort(rtl.PortA))
	rawA := cell.GetPort(rtl.PortA)
	rawY := cell.GetPort(rtl.PortY)

	var newX, extRawA, extY2 rtl.SigSpec
	var keptA, keptY rtl.SigSpec
	for i, b := range input {
		if xb, ok := xMap[b]; ok {
			newX = append(newX, xb)
			extRawA = append(extRawA, rawA[i])
			extY2 = append(extY2, rawY[i])
		} else {
			keptA = append(keptA, rawA[i])
			keptY = append(keptY, rawY[i])
		}
	}
	if len(newX) == 0 {
		w.logf("tri-state buffer %s is registered as consumer of %s but does not read it",
			cell.Name, bit)
		return true, nil
	}

	upEn := driver.GetPort(rtl.PortEN)
	ownEn := cell.GetPort(rtl.PortEN)

	if len(keptA) == 0 {
		// full-width overlap: fold in series
		w.logf("folding tri-state buffer %s into %s", driver.Name, cell.Name)
		cell.SetPort(rtl.PortA, newX)
		cell.SetPort(rtl.PortEN, w.andGate(upEn, ownEn))
		w.unregisterConsumer(rawA, cell)
		w.registerConsumer(newX, cell)
		w.changed++
		return false, nil
	}

	// partial overlap: split, fold the covered half
	w.logf("splitting tri-state buffer %s into %s and %s", cell.Name, extY2, keptY)
	cell.SetPort(rtl.PortA, keptA)
	cell.SetPort(rtl.PortY, keptY)
	cell.SetParam(rtl.ParamWidth, len(keptA))

	nt := w.module.AddTribuf(w.module.NewID(), newX, w.andGate(upEn, ownEn), extY2)

	w.unregisterConsumer(extRawA, cell)
	w.registerConsumer(cell.GetPort(rtl.PortA), cell)
	w.registerConsumer(newX, nt)
	w.unregisterDriver(extY2, cell)
	w.registerDriver(extY2, nt)
	w.markTristate(extY2, next)
	w.changed++
	return false, nil
}

// retireDriver removes a tri-state buffer whose every consumer has been
// rewritten to read its data input directly. The driver stays when any
// consumer was skipped, when its output faces a module port, or when
// any cell or connection still reads the output.
func (w *worker) retireDriver(driver *rtl.Cell, skipped bool) {
	if skipped {
		return
	}
	if w.module.Cell(driver.Name) != driver {
		return
	}
	rawY := driver.GetPort(rtl.PortY)
	outY := w.sigmap.Map(rawY)
	for _, b := range outY {
		if w.outputBits[b] {
			return
		}
	}
	for _, cell := range w.module.Cells() {
		if cell == driver {
			continue
		}
		for _, port := range cell.PortNames() {
			if cell.IsOutputPort(port) {
				continue
			}
			if len(w.sigmap.Map(cell.GetPort(port)).Extract(outY)) > 0 {
				return
			}
		}
	}
	for _, conn := range w.module.Connections() {
		if len(w.sigmap.Map(conn.LHS).Extract(outY)) > 0 {
			return
		}
		if len(w.sigmap.Map(conn.RHS).Extract(outY)) > 0 {
			return
		}
	}

	w.logf("removing tri-state buffer %s: subsumed by its consumers", driver.Name)
	w.unregisterDriver(rawY, driver)
	w.unregisterConsumer(driver.GetPort(rtl.PortA), driver)
	for _, b := range outY {
		delete(w.tristate, b)
	}
	w.module.Remove(driver)
	w.changed++
}
