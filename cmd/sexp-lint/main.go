// sexp-lint checks that an exported netlist s-expression document is
// well formed: it must parse, contain exactly one toplevel form, and
// that form must be a non-leaf netlist node.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceSynth/pkg/netlist"
	"github.com/chewxy/sexp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sexp-lint <netlist_file>")
		os.Exit(1)
	}

	design, err := netlist.LoadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load netlist: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	if err := netlist.WriteSexp(&buf, design); err != nil {
		fmt.Fprintf(os.Stderr, "failed to export: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d bytes\n", buf.Len())

	sexps, err := sexp.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "export does not parse: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Parsed %d toplevel s-expressions\n", len(sexps))

	if len(sexps) != 1 {
		fmt.Fprintf(os.Stderr, "expected exactly one toplevel form, got %d\n", len(sexps))
		os.Exit(1)
	}
	top := sexps[0]
	if top.IsLeaf() {
		fmt.Fprintln(os.Stderr, "toplevel form is a bare atom")
		os.Exit(1)
	}
	fmt.Printf("Toplevel form has %d leaves\n", top.LeafCount())

	fmt.Println("OK")
}
