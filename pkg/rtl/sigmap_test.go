package rtl

import "testing"

func TestSigMapUnion(t *testing.T) {
	a := &Wire{Name: "\\a", Width: 2}
	b := &Wire{Name: "\\b", Width: 2}

	sm := NewEmptySigMap()
	sm.Add(a.Bits(), b.Bits())

	for i := 0; i < 2; i++ {
		if sm.MapBit(WireBit(a, i)) != sm.MapBit(WireBit(b, i)) {
			t.Errorf("bit %d of \\a and \\b should share a representative", i)
		}
	}
	if sm.MapBit(WireBit(a, 0)) == sm.MapBit(WireBit(a, 1)) {
		t.Error("distinct bits of \\a must not be unified")
	}
}

func TestSigMapTransitive(t *testing.T) {
	a := &Wire{Name: "\\a", Width: 1}
	b := &Wire{Name: "\\b", Width: 1}
	c := &Wire{Name: "\\c", Width: 1}

	sm := NewEmptySigMap()
	sm.Add(a.Bits(), b.Bits())
	sm.Add(b.Bits(), c.Bits())

	if sm.MapBit(WireBit(a, 0)) != sm.MapBit(WireBit(c, 0)) {
		t.Error("aliasing should be transitive")
	}
}

func TestSigMapConstantRepresentative(t *testing.T) {
	a := &Wire{Name: "\\a", Width: 1}
	b := &Wire{Name: "\\b", Width: 1}

	sm := NewEmptySigMap()
	sm.Add(a.Bits(), SigSpec{ConstBit(S0)})
	sm.Add(b.Bits(), a.Bits())

	if got := sm.MapBit(WireBit(a, 0)); got != ConstBit(S0) {
		t.Errorf("\\a should canonicalize to 0, got %s", got)
	}
	if got := sm.MapBit(WireBit(b, 0)); got != ConstBit(S0) {
		t.Errorf("\\b should canonicalize to 0 through \\a, got %s", got)
	}
}

func TestSigMapShortSpec(t *testing.T) {
	a := &Wire{Name: "\\a", Width: 4}
	b := &Wire{Name: "\\b", Width: 2}

	sm := NewEmptySigMap()
	sm.Add(a.Bits(), b.Bits())

	if sm.MapBit(WireBit(a, 1)) != sm.MapBit(WireBit(b, 1)) {
		t.Error("overlapping bits should be unified")
	}
	if got := sm.MapBit(WireBit(a, 3)); got != WireBit(a, 3) {
		t.Errorf("bit beyond the shorter spec should stay itself, got %s", got)
	}
}

func TestSigMapFromModule(t *testing.T) {
	m := NewModule("top")
	a := m.AddWire("\\a", 2)
	b := m.AddWire("\\b", 2)
	m.Connect(b.Bits(), a.Bits())

	sm := NewSigMap(m)
	if sm.MapBit(WireBit(a, 0)) != sm.MapBit(WireBit(b, 0)) {
		t.Error("module connection should feed the map")
	}
}

func TestOutputBits(t *testing.T) {
	m := NewModule("top")
	a := m.AddWire("\\a", 2)
	y := m.AddWire("\\y", 2)
	y.PortOutput = true
	m.Connect(y.Bits(), a.Bits())

	sm := NewSigMap(m)
	out := OutputBits(m, sm)

	if len(out) != 2 {
		t.Fatalf("expected 2 output bits, got %d", len(out))
	}
	// \a aliases the output, so its canonical bits must be flagged too
	for i := 0; i < 2; i++ {
		if !out[sm.MapBit(WireBit(a, i))] {
			t.Errorf("canonical bit of \\a [%d] should be output facing", i)
		}
	}
}
