package tribuf

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// finalMerge consolidates every remaining multiply-driven tri-state bit
// and, in logic/formal mode, eliminates tri-state semantics entirely.
func (w *worker) finalMerge() error {
	for _, bit := range sortedBits(w.tristate) {
		// earlier merges resolve whole sibling groups at once
		if !w.tristate[bit] {
			continue
		}
		dset := w.drivers[bit]
		if len(dset) == 0 {
			w.logf("no driver left for tri-state bit %s", bit)
			continue
		}
		if ok, blocker := w.allTristate(dset); !ok {
			w.logf("non-tri-state buffer %s drives %s", blocker.Name, bit)
			continue
		}
		if err := w.merge(bit); err != nil {
			return err
		}
	}
	return nil
}

// partition groups tri-state buffers sharing one canonical enable bit.
// Buffers within a partition drive compatible values; buffers in
// different partitions are alternative sources selected by priority.
type partition struct {
	en    rtl.SigBit
	enSig rtl.SigSpec
	cells []*rtl.Cell
	bits  map[rtl.SigBit]bool
}

// merge rebuilds all tri-state buffers around sig into at most one
// driver. It computes the maximal sibling bit range mergeable in one
// pass, partitions the drivers by enable, splits buffers straddling the
// range boundary, and replaces the group with a priority selector —
// wrapped in a single consolidated tri-state buffer unless the
// tri-state elimination policy applies. The first-seen partition wins
// on simultaneous enables; this deliberately narrows the electrically
// undefined multi-driver case to a defined priority order.
func (w *worker) merge(sig rtl.SigBit) error {
	noTribuf := w.opts.Formal
	if w.opts.Logic && !w.opts.Formal {
		noTribuf = true
		if !w.opts.Force && w.outputBits[sig] {
			noTribuf = false
		}
	}

	cells := w.cellsOf(w.drivers[sig])
	if len(cells) == 0 {
		w.logf("no driver found for %s", sig)
		return nil
	}
	if len(cells) <= 1 && !noTribuf {
		return nil
	}
	for _, c := range cells {
		if c.Type != rtl.CellTribuf {
			w.logf("non-tri-state buffer %s drives %s", c.Name, sig)
			return nil
		}
	}
	w.logf("merging %d tri-state buffers driving %s", len(cells), sig)

	// sibling bits: everything driven together with sig by its drivers
	var siblings []rtl.SigBit
	sibSeen := make(map[rtl.SigBit]bool)
	for _, c := range cells {
		for _, b := range w.sigmap.Map(c.GetPort(rtl.PortY)) {
			if b.Wire != nil && !sibSeen[b] {
				sibSeen[b] = true
				siblings = append(siblings, b)
			}
		}
	}

	// driver closure: every cell driving any sibling bit
	var closure []*rtl.Cell
	closSeen := make(map[string]bool)
	for _, b := range siblings {
		for _, c := range w.cellsOf(w.drivers[b]) {
			if c.Type != rtl.CellTribuf {
				w.logf("non-tri-state buffer %s drives sibling bit %s", c.Name, b)
				return nil
			}
			if !closSeen[c.Name] {
				closSeen[c.Name] = true
				closure = append(closure, c)
			}
		}
	}

	// partition the closure by enable; partition order is first-seen
	// and decides merge priority
	var parts []*partition
	byEn := make(map[rtl.SigBit]*partition)
	for _, c := range closure {
		enSig := w.sigmap.Map(c.GetPort(rtl.PortEN))
		if len(enSig) != 1 {
			return fmt.Errorf("%w: tri-state buffer %s has a %d-bit enable signal",
				ErrInvariant, c.Name, len(enSig))
		}
		en := enSig[0]
		p := byEn[en]
		if p == nil {
			p = &partition{en: en, enSig: rtl.SigSpec{en}}
			byEn[en] = p
			parts = append(parts, p)
		}
		p.cells = append(p.cells, c)
	}

	// only partitions actually driving sig take part in this merge
	sigDrivers := w.drivers[sig]
	var active []*partition
	for _, p := range parts {
		for _, c := range p.cells {
			if sigDrivers[c.Name] {
				active = append(active, p)
				break
			}
		}
	}

	for _, p := range active {
		p.bits = make(map[rtl.SigBit]bool)
		for _, c := range p.cells {
			for _, b := range w.sigmap.Map(c.GetPort(rtl.PortY)) {
				if b.Wire != nil {
					p.bits[b] = true
				}
			}
		}
	}

	// the maximal bus mergeable in one pass: sibling bits covered by
	// every active partition; the rest is left for a later merge
	var intersection rtl.SigSpec
	interSet := make(map[rtl.SigBit]bool)
	for _, b := range siblings {
		inAll := true
		for _, p := range active {
			if !p.bits[b] {
				inAll = false
				break
			}
		}
		if inAll {
			intersection = append(intersection, b)
			interSet[b] = true
		}
	}
	w.logf("merge range for %s: %s", sig, intersection)

	// the elimination policy looks at the whole range: a single output
	// facing bit keeps the consolidated driver tri-state
	if w.opts.Logic && !w.opts.Formal && !w.opts.Force {
		noTribuf = true
		for _, b := range intersection {
			if w.outputBits[b] {
				noTribuf = false
				break
			}
		}
		if !noTribuf && len(cells) <= 1 {
			return nil
		}
	}

	// rebuild each partition as one driver aligned to the merge range
	var merged []*rtl.Cell
	for _, p := range active {
		group := make([]*rtl.Cell, 0, len(p.cells))
		for _, c := range p.cells {
			y := w.sigmap.Map(c.GetPort(rtl.PortY))
			matched := 0
			for _, b := range y {
				if interSet[b] {
					matched++
				}
			}
			switch {
			case matched == len(y):
				group = append(group, c)
			case matched == 0:
				return fmt.Errorf("%w: driver %s shares no bits with the merge range of %s",
					ErrInvariant, c.Name, sig)
			default:
				group = append(group, w.splitAtRange(c, p, interSet))
			}
		}

		// data bit for every merge range bit, then retire the group
		dataOf := make(map[rtl.SigBit]rtl.SigBit)
		for _, c := range group {
			y := w.sigmap.Map(c.GetPort(rtl.PortY))
			rawA := c.GetPort(rtl.PortA)
			for i, b := range y {
				if interSet[b] {
					dataOf[b] = rawA[i]
				}
			}
		}
		for _, c := range group {
			w.unregisterDriver(c.GetPort(rtl.PortY), c)
			if w.opts.Propagate {
				w.unregisterConsumer(c.GetPort(rtl.PortA), c)
			}
			w.module.Remove(c)
			w.changed++
		}

		var alignedA rtl.SigSpec
		for _, b := range intersection {
			xb, ok := dataOf[b]
			if !ok {
				return fmt.Errorf("%w: partition %s does not cover merge bit %s",
					ErrInvariant, p.en, b)
			}
			alignedA = append(alignedA, xb)
		}
		nt := w.module.AddTribuf(w.module.NewID(), alignedA, p.enSig, intersection)
		w.registerDriver(intersection, nt)
		if w.opts.Propagate {
			w.registerConsumer(alignedA, nt)
		}
		merged = append(merged, nt)
		w.changed++
		w.logf("partition %s merged into %s", p.en, nt.Name)
	}

	// formal mode: two drivers enabled at once is a real electrical
	// conflict; surface it as a checkable property per partition
	if w.opts.Formal && len(merged) >= 2 {
		for _, c := range merged {
			var others rtl.SigSpec
			for _, o := range merged {
				if o != c {
					others = append(others, o.GetPort(rtl.PortEN)...)
				}
			}
			conflict := w.andGate(c.GetPort(rtl.PortEN), w.reduceOrGate(others))
			cell := w.module.AddAssert("$tribuf_conflict$"+c.Name,
				w.notGate(conflict), rtl.SigSpec{rtl.ConstBit(rtl.S1)})
			cell.SetAttribute("keep", "1")
			w.changed++
		}
	}

	// replace the partition drivers with one priority selector
	var pmuxB, pmuxS rtl.SigSpec
	for _, c := range merged {
		pmuxS = append(pmuxS, c.GetPort(rtl.PortEN)...)
		pmuxB = append(pmuxB, c.GetPort(rtl.PortA)...)
		w.unregisterDriver(c.GetPort(rtl.PortY), c)
		if w.opts.Propagate {
			w.unregisterConsumer(c.GetPort(rtl.PortA), c)
		}
		w.module.Remove(c)
	}

	var muxout rtl.SigSpec
	if len(pmuxS) > 1 {
		pmuxY := w.module.AddWire(w.module.NewID(), len(intersection))
		pg := w.module.AddPmux(w.module.NewID(),
			rtl.ConstSpec(rtl.Sx, len(intersection)), pmuxB, pmuxS, pmuxY.Bits())
		w.registerDriver(pmuxY.Bits(), pg)
		muxout = pmuxY.Bits()
	} else {
		muxout = pmuxB
	}

	if noTribuf {
		w.logf("replaced tri-state buffers driving %s with priority logic", intersection)
		w.module.Connect(intersection, muxout)
		for _, b := range intersection {
			delete(w.tristate, b)
		}
		w.changed++
		return nil
	}

	nt := w.module.AddTribuf(w.module.NewID(), muxout, w.reduceOrGate(pmuxS), intersection)
	w.registerDriver(intersection, nt)
	if w.opts.Propagate {
		w.registerConsumer(muxout, nt)
	}
	w.changed++
	w.logf("merged tri-state buffers driving %s into %s", intersection, nt.Name)
	return nil
}

// splitAtRange splits a tri-state buffer straddling the merge range
// boundary into an in-range piece (returned) and the out-of-range
// remainder kept in the original cell.
func (w *worker) splitAtRange(c *rtl.Cell, p *partition, interSet map[rtl.SigBit]bool) *rtl.Cell {
	y := w.sigmap.Map(c.GetPort(rtl.PortY))
	rawA := c.GetPort(rtl.PortA)
	rawY := c.GetPort(rtl.PortY)

	var exA, exY, keepA, keepY rtl.SigSpec
	for i, b := range y {
		if interSet[b] {
			exA = append(exA, rawA[i])
			exY = append(exY, rawY[i])
		} else {
			keepA = append(keepA, rawA[i])
			keepY = append(keepY, rawY[i])
		}
	}
	w.logf("splitting tri-state buffer %s into %s and %s", c.Name, exY, keepY)

	c.SetPort(rtl.PortA, keepA)
	c.SetPort(rtl.PortY, keepY)
	c.SetParam(rtl.ParamWidth, len(keepA))
	w.unregisterDriver(exY, c)
	if w.opts.Propagate {
		w.unregisterConsumer(exA, c)
		w.registerConsumer(c.GetPort(rtl.PortA), c)
	}

	nt := w.module.AddTribuf(w.module.NewID(), exA, p.enSig, exY)
	w.registerDriver(exY, nt)
	if w.opts.Propagate {
		w.registerConsumer(exA, nt)
	}
	w.changed++
	return nt
}
