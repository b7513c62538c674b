// Package rtl implements the in-memory circuit model used by the
// OpenTraceSynth passes: modules, wires, typed cells, multi-bit signal
// specs and the bit-level equivalence map.
package rtl

import (
	"fmt"
	"sort"
	"strings"
)

// State is the value of a constant signal bit.
type State int8

const (
	S0 State = iota // logic low
	S1              // logic high
	Sx              // unknown
	Sz              // disconnected / high impedance
)

func (s State) String() string {
	switch s {
	case S0:
		return "0"
	case S1:
		return "1"
	case Sx:
		return "x"
	case Sz:
		return "z"
	}
	return "?"
}

// SigBit is an atomic signal identity: a single bit of a wire, or a
// constant. Wire == nil means the bit is the constant Data. SigBit is
// comparable and is used as a map key throughout the passes.
type SigBit struct {
	Wire   *Wire
	Offset int
	Data   State
}

// ConstBit returns the SigBit for a constant state.
func ConstBit(s State) SigBit {
	return SigBit{Data: s}
}

// WireBit returns the SigBit for one bit of a wire.
func WireBit(w *Wire, offset int) SigBit {
	return SigBit{Wire: w, Offset: offset}
}

// IsConst reports whether the bit is a constant rather than a wire bit.
func (b SigBit) IsConst() bool {
	return b.Wire == nil
}

func (b SigBit) String() string {
	if b.Wire == nil {
		return b.Data.String()
	}
	if b.Wire.Width == 1 {
		return b.Wire.Name
	}
	return fmt.Sprintf("%s [%d]", b.Wire.Name, b.Offset)
}

// BitLess is a deterministic ordering over signal bits: wire bits first,
// sorted by wire name then offset, then constants sorted by value. The
// passes use it so that worklist processing order never depends on map
// iteration order.
func BitLess(a, b SigBit) bool {
	if (a.Wire == nil) != (b.Wire == nil) {
		return a.Wire != nil
	}
	if a.Wire == nil {
		return a.Data < b.Data
	}
	if a.Wire.Name != b.Wire.Name {
		return a.Wire.Name < b.Wire.Name
	}
	return a.Offset < b.Offset
}

// SortBits sorts a bit slice with BitLess.
func SortBits(bits []SigBit) {
	sort.Slice(bits, func(i, j int) bool { return BitLess(bits[i], bits[j]) })
}

// SigSpec is an ordered sequence of signal bits, least significant bit
// first. It is the binding of a cell port or one side of a module
// connection. SigSpec values are plain slices; methods that "modify"
// return a new spec.
type SigSpec []SigBit

// ConstSpec returns a spec of width identical constant bits.
func ConstSpec(s State, width int) SigSpec {
	spec := make(SigSpec, width)
	for i := range spec {
		spec[i] = ConstBit(s)
	}
	return spec
}

// Equal reports bit-for-bit equality.
func (s SigSpec) Equal(other SigSpec) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// IsAllConst reports whether every bit equals the given constant.
func (s SigSpec) IsAllConst(state State) bool {
	for _, bit := range s {
		if bit.Wire != nil || bit.Data != state {
			return false
		}
	}
	return true
}

// Contains reports whether the spec has at least one bit equal to b.
func (s SigSpec) Contains(b SigBit) bool {
	for _, bit := range s {
		if bit == b {
			return true
		}
	}
	return false
}

func bitSet(pattern SigSpec) map[SigBit]bool {
	set := make(map[SigBit]bool, len(pattern))
	for _, bit := range pattern {
		set[bit] = true
	}
	return set
}

// Extract returns the bits of s that occur in pattern, preserving the
// order and multiplicity of s.
func (s SigSpec) Extract(pattern SigSpec) SigSpec {
	set := bitSet(pattern)
	var out SigSpec
	for _, bit := range s {
		if set[bit] {
			out = append(out, bit)
		}
	}
	return out
}

// ExtractMapped returns the bits of other at the positions where the
// corresponding bit of s occurs in pattern. s and other must have the
// same width; the two specs describe the same positions in different
// signal domains (for example a canonicalized port and its raw binding).
func (s SigSpec) ExtractMapped(pattern, other SigSpec) SigSpec {
	if len(s) != len(other) {
		panic(fmt.Sprintf("rtl: ExtractMapped width mismatch: %d vs %d", len(s), len(other)))
	}
	set := bitSet(pattern)
	var out SigSpec
	for i, bit := range s {
		if set[bit] {
			out = append(out, other[i])
		}
	}
	return out
}

// RemoveMapped is the positional complement of ExtractMapped: it returns
// the bits of other at the positions where the corresponding bit of s
// does NOT occur in pattern.
func (s SigSpec) RemoveMapped(pattern, other SigSpec) SigSpec {
	if len(s) != len(other) {
		panic(fmt.Sprintf("rtl: RemoveMapped width mismatch: %d vs %d", len(s), len(other)))
	}
	set := bitSet(pattern)
	var out SigSpec
	for i, bit := range s {
		if !set[bit] {
			out = append(out, other[i])
		}
	}
	return out
}

// Remove returns s without the bits occurring in pattern.
func (s SigSpec) Remove(pattern SigSpec) SigSpec {
	return s.RemoveMapped(pattern, s)
}

// AsBit returns the single bit of a one-bit spec.
func (s SigSpec) AsBit() (SigBit, bool) {
	if len(s) != 1 {
		return SigBit{}, false
	}
	return s[0], true
}

// chunk is a maximal run of a SigSpec that can be printed as one item:
// either consecutive bits of one wire or a run of constants.
type chunk struct {
	wire     *Wire
	offset   int // first offset for wire chunks
	states   []State
	width    int
}

func (s SigSpec) chunks() []chunk {
	var out []chunk
	for _, bit := range s {
		n := len(out)
		if bit.Wire == nil {
			if n > 0 && out[n-1].wire == nil {
				out[n-1].states = append(out[n-1].states, bit.Data)
				out[n-1].width++
				continue
			}
			out = append(out, chunk{states: []State{bit.Data}, width: 1})
			continue
		}
		if n > 0 && out[n-1].wire == bit.Wire && out[n-1].offset+out[n-1].width == bit.Offset {
			out[n-1].width++
			continue
		}
		out = append(out, chunk{wire: bit.Wire, offset: bit.Offset, width: 1})
	}
	return out
}

func (c chunk) String() string {
	if c.wire == nil {
		// constants print most significant bit first
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d'", c.width)
		for i := len(c.states) - 1; i >= 0; i-- {
			sb.WriteString(c.states[i].String())
		}
		return sb.String()
	}
	if c.offset == 0 && c.width == c.wire.Width {
		return c.wire.Name
	}
	if c.width == 1 {
		return fmt.Sprintf("%s [%d]", c.wire.Name, c.offset)
	}
	return fmt.Sprintf("%s [%d:%d]", c.wire.Name, c.offset+c.width-1, c.offset)
}

// String renders the spec in the netlist text syntax. Concatenations are
// printed most significant chunk first.
func (s SigSpec) String() string {
	chunks := s.chunks()
	if len(chunks) == 0 {
		return "{ }"
	}
	if len(chunks) == 1 {
		return chunks[0].String()
	}
	parts := make([]string, 0, len(chunks))
	for i := len(chunks) - 1; i >= 0; i-- {
		parts = append(parts, chunks[i].String())
	}
	return "{ " + strings.Join(parts, " ") + " }"
}
