package tribuf

import (
	"sort"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// evaluator computes steady-state bit values of a combinational module
// so tests can compare circuit behavior before and after a pass run.
// Undriven bits read as z, conflicting drivers resolve to x.
type evaluator struct {
	m  *rtl.Module
	sm *rtl.SigMap
}

func newEvaluator(m *rtl.Module) *evaluator {
	return &evaluator{m: m, sm: rtl.NewSigMap(m)}
}

// eval relaxes the netlist to a fixpoint under the given input bit
// assignment. It returns the bit values keyed by canonical bit and the
// names of failed assertion cells.
func (e *evaluator) eval(inputs map[rtl.SigBit]rtl.State) (map[rtl.SigBit]rtl.State, []string) {
	states := make(map[rtl.SigBit]rtl.State)
	cells := e.m.Cells()

	// combinational netlists settle after one pass per logic level
	for round := 0; round <= len(cells)+1; round++ {
		contrib := make(map[rtl.SigBit][]rtl.State)
		for bit, v := range inputs {
			canon := e.sm.MapBit(bit)
			contrib[canon] = append(contrib[canon], v)
		}
		for _, cell := range cells {
			e.evalCell(cell, states, contrib)
		}

		states = make(map[rtl.SigBit]rtl.State)
		for bit, values := range contrib {
			states[bit] = resolveDrivers(values)
		}
	}

	var failed []string
	for _, cell := range cells {
		if cell.Type != rtl.CellAssert {
			continue
		}
		en := e.read(states, cell.GetPort(rtl.PortEN)[0])
		a := e.read(states, cell.GetPort(rtl.PortA)[0])
		if en == rtl.S1 && a == rtl.S0 {
			failed = append(failed, cell.Name)
		}
	}
	sort.Strings(failed)
	return states, failed
}

func (e *evaluator) read(states map[rtl.SigBit]rtl.State, bit rtl.SigBit) rtl.State {
	canon := e.sm.MapBit(bit)
	if canon.IsConst() {
		return canon.Data
	}
	if v, ok := states[canon]; ok {
		return v
	}
	return rtl.Sz
}

func (e *evaluator) readSpec(states map[rtl.SigBit]rtl.State, sig rtl.SigSpec) []rtl.State {
	out := make([]rtl.State, len(sig))
	for i, bit := range sig {
		out[i] = e.read(states, bit)
	}
	return out
}

func (e *evaluator) drive(contrib map[rtl.SigBit][]rtl.State, sig rtl.SigSpec, values []rtl.State) {
	for i, bit := range sig {
		canon := e.sm.MapBit(bit)
		if canon.IsConst() {
			continue
		}
		contrib[canon] = append(contrib[canon], values[i])
	}
}

func (e *evaluator) evalCell(cell *rtl.Cell, states map[rtl.SigBit]rtl.State, contrib map[rtl.SigBit][]rtl.State) {
	a := e.readSpec(states, cell.GetPort(rtl.PortA))
	y := cell.GetPort(rtl.PortY)

	switch cell.Type {
	case rtl.CellNot:
		out := make([]rtl.State, len(a))
		for i := range a {
			out[i] = notState(a[i])
		}
		e.drive(contrib, y, out)

	case rtl.CellAnd, rtl.CellOr:
		b := e.readSpec(states, cell.GetPort(rtl.PortB))
		out := make([]rtl.State, len(a))
		for i := range a {
			if cell.Type == rtl.CellAnd {
				out[i] = andState(a[i], b[i])
			} else {
				out[i] = orState(a[i], b[i])
			}
		}
		e.drive(contrib, y, out)

	case rtl.CellReduceOr:
		out := rtl.S0
		for _, v := range a {
			out = orState(out, v)
		}
		e.drive(contrib, y, []rtl.State{out})

	case rtl.CellMux:
		b := e.readSpec(states, cell.GetPort(rtl.PortB))
		s := e.read(states, cell.GetPort(rtl.PortS)[0])
		out := make([]rtl.State, len(a))
		for i := range a {
			switch s {
			case rtl.S0:
				out[i] = a[i]
			case rtl.S1:
				out[i] = b[i]
			default:
				out[i] = rtl.Sx
			}
		}
		e.drive(contrib, y, out)

	case rtl.CellPmux:
		b := e.readSpec(states, cell.GetPort(rtl.PortB))
		s := e.readSpec(states, cell.GetPort(rtl.PortS))
		width := len(y)
		out := a
		for i, sv := range s {
			if sv == rtl.S0 {
				continue
			}
			if sv == rtl.S1 {
				out = b[i*width : (i+1)*width]
			} else {
				out = make([]rtl.State, width)
				for j := range out {
					out[j] = rtl.Sx
				}
			}
			break
		}
		e.drive(contrib, y, out)

	case rtl.CellTribuf:
		en := e.read(states, cell.GetPort(rtl.PortEN)[0])
		out := make([]rtl.State, len(a))
		for i := range a {
			switch en {
			case rtl.S1:
				out[i] = a[i]
			case rtl.S0:
				out[i] = rtl.Sz
			default:
				out[i] = rtl.Sx
			}
		}
		e.drive(contrib, y, out)
	}
}

func resolveDrivers(values []rtl.State) rtl.State {
	result := rtl.Sz
	for _, v := range values {
		if v == rtl.Sz {
			continue
		}
		if result == rtl.Sz {
			result = v
		} else if result != v {
			return rtl.Sx
		}
	}
	return result
}

func notState(a rtl.State) rtl.State {
	switch a {
	case rtl.S0:
		return rtl.S1
	case rtl.S1:
		return rtl.S0
	}
	return rtl.Sx
}

func andState(a, b rtl.State) rtl.State {
	if a == rtl.S0 || b == rtl.S0 {
		return rtl.S0
	}
	if a == rtl.S1 && b == rtl.S1 {
		return rtl.S1
	}
	return rtl.Sx
}

func orState(a, b rtl.State) rtl.State {
	if a == rtl.S1 || b == rtl.S1 {
		return rtl.S1
	}
	if a == rtl.S0 && b == rtl.S0 {
		return rtl.S0
	}
	return rtl.Sx
}

// inputBits returns the input port bits of a module in name order,
// LSB first, so combo masks are stable across runs.
func inputBits(m *rtl.Module) []rtl.SigBit {
	var wires []*rtl.Wire
	for _, w := range m.Wires() {
		if w.PortInput {
			wires = append(wires, w)
		}
	}
	sort.Slice(wires, func(i, j int) bool { return wires[i].Name < wires[j].Name })
	var bits []rtl.SigBit
	for _, w := range wires {
		bits = append(bits, w.Bits()...)
	}
	return bits
}

func outputBitList(m *rtl.Module) []rtl.SigBit {
	var wires []*rtl.Wire
	for _, w := range m.Wires() {
		if w.PortOutput {
			wires = append(wires, w)
		}
	}
	sort.Slice(wires, func(i, j int) bool { return wires[i].Name < wires[j].Name })
	var bits []rtl.SigBit
	for _, w := range wires {
		bits = append(bits, w.Bits()...)
	}
	return bits
}

// truthTable evaluates the module outputs for every 0/1 assignment of
// its input bits, keyed by the assignment mask.
func truthTable(t *testing.T, m *rtl.Module) map[uint64][]rtl.State {
	t.Helper()
	ins := inputBits(m)
	outs := outputBitList(m)
	if len(ins) > 12 {
		t.Fatalf("too many input bits for exhaustive evaluation: %d", len(ins))
	}

	e := newEvaluator(m)
	table := make(map[uint64][]rtl.State)
	limit := uint64(1) << len(ins)
	for mask := uint64(0); mask < limit; mask++ {
		inputs := make(map[rtl.SigBit]rtl.State, len(ins))
		for i, bit := range ins {
			if mask&(1<<i) != 0 {
				inputs[bit] = rtl.S1
			} else {
				inputs[bit] = rtl.S0
			}
		}
		states, _ := e.eval(inputs)
		row := make([]rtl.State, len(outs))
		for i, bit := range outs {
			row[i] = e.read(states, bit)
		}
		table[mask] = row
	}
	return table
}

// requirePreserved checks that a transformation kept every observable
// 0/1 output value. A z output may weaken to x; an x output is
// unconstrained.
func requirePreserved(t *testing.T, before, after map[uint64][]rtl.State) {
	t.Helper()
	if len(before) != len(after) {
		t.Fatalf("truth table size changed: %d vs %d", len(before), len(after))
	}
	for mask, oldRow := range before {
		newRow := after[mask]
		if len(newRow) != len(oldRow) {
			t.Fatalf("combo %b: output width changed: %d vs %d", mask, len(oldRow), len(newRow))
		}
		for i, old := range oldRow {
			switch old {
			case rtl.S0, rtl.S1:
				if newRow[i] != old {
					t.Errorf("combo %b output bit %d: was %s, now %s", mask, i, old, newRow[i])
				}
			case rtl.Sz:
				if newRow[i] != rtl.Sz && newRow[i] != rtl.Sx {
					t.Errorf("combo %b output bit %d: was z, now %s", mask, i, newRow[i])
				}
			}
		}
	}
}

func countType(m *rtl.Module, typ rtl.CellType) int {
	n := 0
	for _, c := range m.Cells() {
		if c.Type == typ {
			n++
		}
	}
	return n
}

func cellsOfType(m *rtl.Module, typ rtl.CellType) []*rtl.Cell {
	var out []*rtl.Cell
	for _, c := range m.Cells() {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}
