package netlist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

const sampleNetlist = `
# tri-state bus with two drivers
module top
  wire width 4 input 1 \a
  wire width 4 input 2 \b
  wire input 3 \en_a
  wire input 4 \en_b
  wire width 4 output 5 \bus
  wire width 4 $scratch

  cell $mux $drv_a
    param WIDTH 4
    connect A 4'zzzz
    connect B \a
    connect S \en_a
    connect Y \bus
  end

  cell $tribuf $drv_b
    param WIDTH 4
    attr keep 1
    connect A \b
    connect EN \en_b
    connect Y \bus
  end

  connect $scratch { \a [1:0] 2'01 }
end
`

func TestLoadString(t *testing.T) {
	design, err := LoadString(sampleNetlist)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	m := design.Module("top")
	if m == nil {
		t.Fatal("module top not found")
	}
	if len(m.Wires()) != 6 {
		t.Errorf("expected 6 wires, got %d", len(m.Wires()))
	}
	if len(m.Cells()) != 2 {
		t.Errorf("expected 2 cells, got %d", len(m.Cells()))
	}

	a := m.Wire("\\a")
	if a == nil || a.Width != 4 || !a.PortInput || a.PortID != 1 {
		t.Errorf("wire \\a loaded wrong: %+v", a)
	}
	bus := m.Wire("\\bus")
	if bus == nil || !bus.PortOutput || bus.PortID != 5 {
		t.Errorf("wire \\bus loaded wrong: %+v", bus)
	}

	mux := m.Cell("$drv_a")
	if mux == nil || mux.Type != rtl.CellMux {
		t.Fatalf("cell $drv_a loaded wrong: %+v", mux)
	}
	if !mux.GetPort(rtl.PortA).IsAllConst(rtl.Sz) {
		t.Errorf("port A of $drv_a should be all z, got %s", mux.GetPort(rtl.PortA))
	}
	if !mux.GetPort(rtl.PortB).Equal(a.Bits()) {
		t.Errorf("port B of $drv_a should be \\a, got %s", mux.GetPort(rtl.PortB))
	}
	if mux.Params[rtl.ParamWidth] != 4 {
		t.Errorf("WIDTH of $drv_a = %d, want 4", mux.Params[rtl.ParamWidth])
	}

	tri := m.Cell("$drv_b")
	if tri == nil || tri.Type != rtl.CellTribuf {
		t.Fatalf("cell $drv_b loaded wrong: %+v", tri)
	}
	if tri.Attributes["keep"] != "1" {
		t.Errorf("attr keep of $drv_b = %q, want 1", tri.Attributes["keep"])
	}

	// concat is written most significant chunk first, stored LSB first
	conns := m.Connections()
	if len(conns) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(conns))
	}
	want := rtl.SigSpec{
		rtl.ConstBit(rtl.S1), rtl.ConstBit(rtl.S0),
		rtl.WireBit(a, 0), rtl.WireBit(a, 1),
	}
	if !conns[0].RHS.Equal(want) {
		t.Errorf("connection RHS = %s, want %s", conns[0].RHS, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		match string
	}{
		{
			"unknown wire",
			"module top\n  connect \\a \\a\nend\n",
			"unknown wire",
		},
		{
			"duplicate wire",
			"module top\n  wire \\a\n  wire \\a\nend\n",
			"duplicate wire",
		},
		{
			"slice out of range",
			"module top\n  wire width 2 \\a\n  connect \\a [3:2] \\a [1:0]\nend\n",
			"out of range",
		},
		{
			"connection width mismatch",
			"module top\n  wire width 2 \\a\n  wire width 4 \\b\n  connect \\a \\b\nend\n",
			"width mismatch",
		},
		{
			"constant digit count",
			"module top\n  wire width 2 \\a\n  connect \\a 3'01\nend\n",
			"declared width",
		},
		{
			"invalid constant digit",
			"module top\n  wire width 2 \\a\n  connect \\a 2'0q\nend\n",
			"",
		},
	}
	for _, tt := range tests {
		_, err := LoadString(tt.input)
		if err == nil {
			t.Errorf("%s: expected error, got none", tt.name)
			continue
		}
		if tt.match != "" && !strings.Contains(err.Error(), tt.match) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.match)
		}
	}
}

func TestParseConst(t *testing.T) {
	spec, err := parseConst("4'01xz")
	if err != nil {
		t.Fatalf("parseConst failed: %v", err)
	}
	// digits are MSB first in the text, the spec is LSB first
	want := rtl.SigSpec{
		rtl.ConstBit(rtl.Sz), rtl.ConstBit(rtl.Sx),
		rtl.ConstBit(rtl.S1), rtl.ConstBit(rtl.S0),
	}
	if !spec.Equal(want) {
		t.Errorf("parseConst(4'01xz) = %s, want %s", spec, want)
	}
}

func TestWriteRoundtrip(t *testing.T) {
	design, err := LoadString(sampleNetlist)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, design); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	again, err := LoadString(buf.String())
	if err != nil {
		t.Fatalf("reload failed: %v\noutput was:\n%s", err, buf.String())
	}

	m1 := design.Module("top")
	m2 := again.Module("top")
	if len(m1.Wires()) != len(m2.Wires()) || len(m1.Cells()) != len(m2.Cells()) {
		t.Fatalf("reloaded module differs: %d/%d wires, %d/%d cells",
			len(m1.Wires()), len(m2.Wires()), len(m1.Cells()), len(m2.Cells()))
	}
	for _, c1 := range m1.Cells() {
		c2 := m2.Cell(c1.Name)
		if c2 == nil || c2.Type != c1.Type {
			t.Errorf("cell %s lost or retyped on roundtrip", c1.Name)
			continue
		}
		for _, port := range c1.PortNames() {
			if c1.GetPort(port).String() != c2.GetPort(port).String() {
				t.Errorf("cell %s port %s: %s != %s",
					c1.Name, port, c1.GetPort(port), c2.GetPort(port))
			}
		}
	}
}

func TestParseComments(t *testing.T) {
	input := "# header comment\nmodule top # trailing\n  wire \\a\nend\n"
	design, err := LoadString(input)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	if design.Module("top") == nil {
		t.Fatal("module top not found")
	}
}
