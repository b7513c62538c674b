package netlist

// File is the parse tree of a netlist source: a sequence of modules.
type File struct {
	Modules []*ModuleDecl `parser:"@@*"`
}

// ModuleDecl is one module body.
// Example: module top ... end
type ModuleDecl struct {
	Name  string  `parser:"KwModule @Ident"`
	Stmts []*Stmt `parser:"@@* KwEnd"`
}

// Stmt is a module-level statement.
type Stmt struct {
	Wire *WireDecl `parser:"  @@"`
	Cell *CellDecl `parser:"| @@"`
	Conn *ConnDecl `parser:"| @@"`
}

// WireDecl declares a wire with optional width and port options.
// Example: wire width 8 input 1 \data
type WireDecl struct {
	Options []*WireOption `parser:"KwWire @@*"`
	Name    string        `parser:"@SigId"`
}

// WireOption is one wire modifier. Port options carry the port index.
type WireOption struct {
	Width  *int `parser:"  KwWidth @Int"`
	Input  *int `parser:"| KwInput @Int"`
	Output *int `parser:"| KwOutput @Int"`
}

// CellDecl declares a typed cell with parameters and port connections.
// Example:
//
//	cell $mux $m1
//	  param WIDTH 8
//	  connect A \data
//	  connect Y \out
//	end
type CellDecl struct {
	Type string      `parser:"KwCell @SigId"`
	Name string      `parser:"@SigId"`
	Body []*CellStmt `parser:"@@* KwEnd"`
}

// CellStmt is one statement inside a cell body.
type CellStmt struct {
	Param *ParamDecl `parser:"  @@"`
	Attr  *AttrDecl  `parser:"| @@"`
	Conn  *PortConn  `parser:"| @@"`
}

// ParamDecl sets an integer cell parameter.
type ParamDecl struct {
	Name  string `parser:"KwParam @Ident"`
	Value int    `parser:"@Int"`
}

// AttrDecl sets an integer cell attribute, e.g. attr keep 1
type AttrDecl struct {
	Name  string `parser:"KwAttr @Ident"`
	Value string `parser:"@Int"`
}

// PortConn binds a cell port to a signal spec.
type PortConn struct {
	Port string       `parser:"KwConnect @Ident"`
	Sig  *SigSpecNode `parser:"@@"`
}

// ConnDecl is a module-level connection between two specs.
// Example: connect \alias \data [3:0]
type ConnDecl struct {
	LHS *SigSpecNode `parser:"KwConnect @@"`
	RHS *SigSpecNode `parser:"@@"`
}

// SigSpecNode is either a single chunk or a concatenation. In the text
// form the most significant chunk is listed first.
type SigSpecNode struct {
	Concat []*ChunkNode `parser:"  LBrace @@* RBrace"`
	Chunk  *ChunkNode   `parser:"| @@"`
}

// ChunkNode is a constant or a (possibly sliced) wire reference.
type ChunkNode struct {
	Const *string  `parser:"  @Const"`
	Wire  *WireRef `parser:"| @@"`
}

// WireRef names a wire with an optional bit or range slice.
type WireRef struct {
	Name  string     `parser:"@SigId"`
	Range *RangeNode `parser:"@@?"`
}

// RangeNode is a [idx] or [hi:lo] slice.
type RangeNode struct {
	Hi int  `parser:"LBracket @Int"`
	Lo *int `parser:"( Colon @Int )? RBracket"`
}
