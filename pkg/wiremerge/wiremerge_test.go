package wiremerge

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

func load(t *testing.T, src string) (*rtl.Design, *rtl.Module) {
	t.Helper()
	design, err := netlist.LoadString(src)
	if err != nil {
		t.Fatalf("fixture does not load: %v", err)
	}
	return design, design.Modules()[0]
}

func TestMergeAliasedWires(t *testing.T) {
	design, m := load(t, `
module top
  wire width 2 input 1 \in
  wire width 2 \mid
  wire width 2 $tmp
  wire width 2 output 2 \out
  cell $not $inv
    param WIDTH 2
    connect A $tmp
    connect Y \out
  end
  connect \mid \in
  connect $tmp \mid
end
`)
	res := Run(design, Options{})
	if res.Changed == 0 {
		t.Fatal("expected changes")
	}

	// every alias collapses onto the input port wire
	in := m.Wire("\\in")
	inv := m.Cell("$inv")
	if !inv.GetPort(rtl.PortA).Equal(in.Bits()) {
		t.Errorf("$inv reads %s, want \\in", inv.GetPort(rtl.PortA))
	}

	// the internal wire needs no alias; the public one keeps its value
	for _, conn := range m.Connections() {
		for _, bit := range conn.LHS {
			if bit.Wire.Name == "$tmp" {
				t.Errorf("internal wire $tmp should not keep an alias")
			}
		}
	}
	sm := rtl.NewSigMap(m)
	mid := m.Wire("\\mid")
	for i := 0; i < 2; i++ {
		if sm.MapBit(rtl.WireBit(mid, i)) != sm.MapBit(rtl.WireBit(in, i)) {
			t.Errorf("\\mid [%d] lost its tie to \\in", i)
		}
	}
}

func TestRepresentativeElection(t *testing.T) {
	design, m := load(t, `
module top
  wire width 1 $internal
  wire width 1 \public
  wire width 1 input 1 \port
  connect \public $internal
  connect \public \port
end
`)
	Run(design, Options{})

	// input ports always win the election; the public wire keeps an
	// alias, the internal one is left dangling
	sm := rtl.NewSigMap(m)
	port := m.Wire("\\port")
	public := m.Wire("\\public")
	if sm.MapBit(rtl.WireBit(public, 0)) != sm.MapBit(rtl.WireBit(port, 0)) {
		t.Error("\\public should alias the input port after merging")
	}
	for _, conn := range m.Connections() {
		for _, side := range []rtl.SigSpec{conn.LHS, conn.RHS} {
			for _, bit := range side {
				if bit.Wire != nil && bit.Wire.Name == "$internal" {
					t.Error("$internal should not appear in any connection")
				}
			}
		}
	}
}

func TestPublicBeatsInternal(t *testing.T) {
	design, m := load(t, `
module top
  wire width 2 $a
  wire width 2 \name
  wire width 2 output 1 \out
  cell $not $inv
    param WIDTH 2
    connect A $a
    connect Y \out
  end
  connect \name $a
end
`)
	Run(design, Options{})

	name := m.Wire("\\name")
	inv := m.Cell("$inv")
	if !inv.GetPort(rtl.PortA).Equal(name.Bits()) {
		t.Errorf("$inv reads %s, want the public wire \\name", inv.GetPort(rtl.PortA))
	}
}

func TestConstantDriversKept(t *testing.T) {
	design, m := load(t, `
module top
  wire width 2 \a
  wire width 2 \b
  wire width 2 output 1 \out
  cell $not $inv
    param WIDTH 2
    connect A \b
    connect Y \out
  end
  connect \a 2'01
  connect \b \a
end
`)
	Run(design, Options{})

	// the constant driver survives, retargeted at the representative
	found := false
	for _, conn := range m.Connections() {
		for i, bit := range conn.RHS {
			if bit.IsConst() {
				found = true
				if conn.LHS[i].Wire == nil {
					t.Error("constant driver lost its wire target")
				}
			}
		}
	}
	if !found {
		t.Fatal("constant driver connection was dropped")
	}

	// both aliased wires read the same constant through the map
	sm := rtl.NewSigMap(m)
	a := m.Wire("\\a")
	b := m.Wire("\\b")
	for i := 0; i < 2; i++ {
		ca := sm.MapBit(rtl.WireBit(a, i))
		cb := sm.MapBit(rtl.WireBit(b, i))
		if !ca.IsConst() || !cb.IsConst() || ca != cb {
			t.Errorf("bit %d: expected both wires tied to one constant, got %s and %s", i, ca, cb)
		}
	}
}

func TestNoAliasesNoChange(t *testing.T) {
	design, m := load(t, `
module top
  wire width 2 input 1 \a
  wire width 2 output 2 \y
  cell $not $inv
    param WIDTH 2
    connect A \a
    connect Y \y
  end
end
`)
	res := Run(design, Options{})
	if res.Changed != 0 {
		t.Errorf("Changed = %d, want 0", res.Changed)
	}
	if len(m.Connections()) != 0 {
		t.Errorf("expected no connections, got %d", len(m.Connections()))
	}
}

func TestMergeIdempotent(t *testing.T) {
	design, _ := load(t, `
module top
  wire width 2 input 1 \in
  wire width 2 \mid
  wire width 2 output 2 \out
  cell $not $inv
    param WIDTH 2
    connect A \mid
    connect Y \out
  end
  connect \mid \in
end
`)
	Run(design, Options{})
	res := Run(design, Options{})
	if res.Changed != 0 {
		t.Errorf("second run changed %d more times", res.Changed)
	}
}
