// Package tribuf infers tri-state buffers from multiplexers with
// disconnected inputs, propagates them through the fan-out graph, and
// merges or eliminates multiply-driven tri-state nets.
package tribuf

import (
	"errors"
	"log"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/rtl"
)

// ErrInvariant marks fatal invariant violations: the live netlist and
// the pass indices disagree, or a cell has a configuration the pass
// cannot soundly rewrite. Continuing after one of these would corrupt
// the design, so Run aborts for the whole invocation.
var ErrInvariant = errors.New("netlist invariant violated")

// Options selects the pass behavior per invocation. Logic, Formal and
// Propagate all imply Merge.
type Options struct {
	// Merge consolidates multiple tri-state drivers of one net into a
	// single priority-selected driver.
	Merge bool

	// Logic replaces tri-state drivers that do not face module outputs
	// with plain logic.
	Logic bool

	// Formal replaces all tri-state drivers with plain logic and emits
	// an assertion per driver group that no two enables are active at
	// once.
	Formal bool

	// Propagate pushes tri-state drivers through downstream muxes and
	// tri-state buffers.
	Propagate bool

	// Force, together with Logic, also eliminates tri-state drivers
	// that face module outputs.
	Force bool

	// Check re-derives both pass indices from the netlist between
	// discrete steps and fails on any mismatch. Intended for tests and
	// debugging; it turns the pass quadratic.
	Check bool

	// Log receives diagnostic output; nil means silent.
	Log *log.Logger
}

func (o *Options) normalize() {
	if o.Logic || o.Formal || o.Propagate {
		o.Merge = true
	}
}

// Result reports what a run changed. Callers use Changed to decide
// whether downstream passes need to run again.
type Result struct {
	// Changed counts cell rewrites, removals and creations performed.
	Changed int
}

// Run executes the pass over every module of the design. Modules are
// processed independently; a fatal invariant violation aborts the whole
// invocation since the indices can no longer be trusted.
func Run(design *rtl.Design, opts Options) (Result, error) {
	opts.normalize()
	var res Result
	for _, m := range design.Modules() {
		w := newWorker(design, m, opts)
		if err := w.run(); err != nil {
			return res, err
		}
		res.Changed += w.changed
	}
	return res, nil
}
