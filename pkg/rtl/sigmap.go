package rtl

// SigMap canonicalizes electrically identical signal bits to one
// representative bit. It is a union-find structure over SigBits with
// path compression and union by rank; module-level connections feed it.
//
// A wire bit tied to a constant canonicalizes to the constant, so
// consumers of the map can treat "maps to a constant" as "not a live
// wire bit". Two different constants tied together are left alone; that
// is a netlist conflict the map cannot express.
type SigMap struct {
	parent map[SigBit]SigBit
	rank   map[SigBit]int
}

// NewSigMap builds the equivalence map of a module from its current
// connections. The map is a snapshot: connections added later are not
// reflected.
func NewSigMap(m *Module) *SigMap {
	sm := NewEmptySigMap()
	for _, conn := range m.Connections() {
		sm.Add(conn.LHS, conn.RHS)
	}
	return sm
}

// NewEmptySigMap creates a map with no equivalences.
func NewEmptySigMap() *SigMap {
	return &SigMap{
		parent: make(map[SigBit]SigBit),
		rank:   make(map[SigBit]int),
	}
}

// Add records that the bits of a and b are pairwise identical. Widths
// beyond the shorter spec are ignored.
func (sm *SigMap) Add(a, b SigSpec) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sm.union(a[i], b[i])
	}
}

// MapBit returns the canonical representative of a bit.
func (sm *SigMap) MapBit(bit SigBit) SigBit {
	root := bit
	for {
		p, ok := sm.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	// path compression
	cur := bit
	for cur != root {
		next := sm.parent[cur]
		sm.parent[cur] = root
		cur = next
	}
	return root
}

// Map canonicalizes every bit of a spec.
func (sm *SigMap) Map(s SigSpec) SigSpec {
	out := make(SigSpec, len(s))
	for i, bit := range s {
		out[i] = sm.MapBit(bit)
	}
	return out
}

func (sm *SigMap) union(a, b SigBit) {
	ra := sm.MapBit(a)
	rb := sm.MapBit(b)
	if ra == rb {
		return
	}
	// constants always stay representative
	if ra.Wire == nil && rb.Wire == nil {
		return
	}
	if ra.Wire == nil {
		sm.parent[rb] = ra
		return
	}
	if rb.Wire == nil {
		sm.parent[ra] = rb
		return
	}
	// union by rank
	switch {
	case sm.rank[ra] < sm.rank[rb]:
		sm.parent[ra] = rb
	case sm.rank[ra] > sm.rank[rb]:
		sm.parent[rb] = ra
	default:
		sm.parent[rb] = ra
		sm.rank[ra]++
	}
}

// OutputBits returns the canonical bits bound to the module's output
// ports. Passes compute this once per run to decide whether an
// optimization may delete a driver whose absence would be externally
// observable.
func OutputBits(m *Module, sm *SigMap) map[SigBit]bool {
	out := make(map[SigBit]bool)
	for _, w := range m.Wires() {
		if !w.PortOutput {
			continue
		}
		for _, bit := range sm.Map(w.Bits()) {
			out[bit] = true
		}
	}
	return out
}
