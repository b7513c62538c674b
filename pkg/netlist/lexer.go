package netlist

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer defines the token structure of the netlist text format. The
// format is line-oriented but the lexer is free-form; statements are
// delimited by keywords, not newlines.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Statement keywords
	{Name: "KwModule", Pattern: `\bmodule\b`},
	{Name: "KwWire", Pattern: `\bwire\b`},
	{Name: "KwCell", Pattern: `\bcell\b`},
	{Name: "KwConnect", Pattern: `\bconnect\b`},
	{Name: "KwParam", Pattern: `\bparam\b`},
	{Name: "KwAttr", Pattern: `\battr\b`},
	{Name: "KwEnd", Pattern: `\bend\b`},

	// Wire options
	{Name: "KwWidth", Pattern: `\bwidth\b`},
	{Name: "KwInput", Pattern: `\binput\b`},
	{Name: "KwOutput", Pattern: `\boutput\b`},

	// Sized constants, e.g. 4'01xz (most significant bit first)
	{Name: "Const", Pattern: `[0-9]+'[01xz]+`},

	// Numbers
	{Name: "Int", Pattern: `[0-9]+`},

	// Wire and cell names carry a '\' (public) or '$' (internal) sigil
	{Name: "SigId", Pattern: `[\\$][^\s\[\]{}:#]+`},

	// Bare identifiers: module names, port names, parameter names
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	// Punctuation
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Colon", Pattern: `:`},
})
