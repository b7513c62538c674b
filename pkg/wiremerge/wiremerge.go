// Package wiremerge collapses groups of wires aliased by module-level
// connections onto one representative wire, rewriting cell ports so the
// rest of the netlist sees a single name per electrical node.
package wiremerge

import (
	"log"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// Options configures a wire merging run.
type Options struct {
	// Log receives diagnostic output; nil means silent.
	Log *log.Logger
}

// Result reports what a run changed.
type Result struct {
	// Changed counts cell port bits redirected to a representative,
	// plus one per module whose connection list was rewritten.
	Changed int
}

// Run merges aliased wires in every module of the design. Bits tied
// together by connections form equivalence classes; each class elects a
// representative bit (an input port bit if the class has one, else a
// public wire bit, else the first bit in wire creation order) and every
// cell port is rewritten to read and drive the representative.
//
// Connections involving constants are drivers, not aliases; they are
// kept, retargeted at the representative. Displaced wires that are
// ports, carry public names, or are still referenced get one alias
// connection back to their representative so their value stays defined.
func Run(design *rtl.Design, opts Options) Result {
	var res Result
	for _, m := range design.Modules() {
		res.Changed += mergeModule(m, opts)
	}
	return res
}

func mergeModule(m *rtl.Module, opts Options) int {
	logf := func(format string, args ...any) {
		if opts.Log != nil {
			opts.Log.Printf(format, args...)
		}
	}

	sm := rtl.NewEmptySigMap()
	for _, conn := range m.Connections() {
		for i := range conn.LHS {
			if conn.LHS[i].IsConst() || conn.RHS[i].IsConst() {
				continue
			}
			sm.Add(rtl.SigSpec{conn.LHS[i]}, rtl.SigSpec{conn.RHS[i]})
		}
	}

	// collect the classes in wire creation order so the election below
	// is deterministic
	classes := make(map[rtl.SigBit][]rtl.SigBit)
	var classOrder []rtl.SigBit
	for _, w := range m.Wires() {
		for _, bit := range w.Bits() {
			root := sm.MapBit(bit)
			if _, ok := classes[root]; !ok {
				classOrder = append(classOrder, root)
			}
			classes[root] = append(classes[root], bit)
		}
	}

	repl := make(map[rtl.SigBit]rtl.SigBit)
	for _, root := range classOrder {
		group := classes[root]
		if len(group) < 2 {
			continue
		}
		rep := electRepresentative(group)
		for _, bit := range group {
			if bit != rep {
				repl[bit] = rep
			}
		}
		logf("merging %d wire bits onto %s", len(group), rep)
	}
	if len(repl) == 0 {
		return 0
	}
	changed := 0

	mapSpec := func(s rtl.SigSpec) rtl.SigSpec {
		out := make(rtl.SigSpec, len(s))
		for i, bit := range s {
			if r, ok := repl[bit]; ok {
				out[i] = r
			} else {
				out[i] = bit
			}
		}
		return out
	}

	for _, cell := range m.Cells() {
		for _, port := range cell.PortNames() {
			sig := cell.GetPort(port)
			mapped := mapSpec(sig)
			if mapped.Equal(sig) {
				continue
			}
			for i := range sig {
				if sig[i] != mapped[i] {
					changed++
				}
			}
			cell.SetPort(port, mapped)
		}
	}

	// constant-driving positions of the old connections survive,
	// retargeted at the representatives; pure aliases are dropped
	var conns []rtl.Connection
	for _, conn := range m.Connections() {
		var lhs, rhs rtl.SigSpec
		ml, mr := mapSpec(conn.LHS), mapSpec(conn.RHS)
		for i := range ml {
			if ml[i] == mr[i] {
				continue
			}
			lhs = append(lhs, ml[i])
			rhs = append(rhs, mr[i])
		}
		if len(lhs) > 0 {
			conns = append(conns, rtl.Connection{LHS: lhs, RHS: rhs})
		}
	}

	// displaced wires that remain visible keep a defining alias
	for _, w := range m.Wires() {
		if !w.PortInput && !w.PortOutput && !w.Public() {
			continue
		}
		var lhs, rhs rtl.SigSpec
		for _, bit := range w.Bits() {
			if r, ok := repl[bit]; ok {
				lhs = append(lhs, bit)
				rhs = append(rhs, r)
			}
		}
		if len(lhs) > 0 {
			conns = append(conns, rtl.Connection{LHS: lhs, RHS: rhs})
			logf("keeping alias for displaced wire %s", w.Name)
		}
	}
	if !connectionsEqual(m.Connections(), conns) {
		m.SetConnections(conns)
		changed++
	}
	return changed
}

func connectionsEqual(a, b []rtl.Connection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].LHS.Equal(b[i].LHS) || !a[i].RHS.Equal(b[i].RHS) {
			return false
		}
	}
	return true
}

// electRepresentative picks the bit the rest of the class collapses
// onto. Input port bits must stay authoritative since their value comes
// from outside the module; public names beat internal ones.
func electRepresentative(group []rtl.SigBit) rtl.SigBit {
	for _, bit := range group {
		if bit.Wire.PortInput {
			return bit
		}
	}
	for _, bit := range group {
		if bit.Wire.Public() {
			return bit
		}
	}
	return group[0]
}
