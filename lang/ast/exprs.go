package ast

import "github.com/glipt-org/glipt/lang/token"

func (*Ident) exprNode()        {}
func (*IntLit) exprNode()       {}
func (*FloatLit) exprNode()     {}
func (*StringLit) exprNode()    {}
func (*BoolLit) exprNode()      {}
func (*NilLit) exprNode()       {}
func (*ListLit) exprNode()      {}
func (*MapLit) exprNode()       {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*CallExpr) exprNode()     {}
func (*IndexExpr) exprNode()    {}
func (*AttrExpr) exprNode()     {}
func (*MatchExpr) exprNode()    {}
func (*ParallelExpr) exprNode() {}

// Ident is a bare identifier reference, e.g. x.
type Ident struct {
	Pos  token.Pos
	Name string
}

func (n *Ident) Start() token.Pos { return n.Pos }

// IntLit is an integer literal.
type IntLit struct {
	Pos   token.Pos
	Value int64
}

func (n *IntLit) Start() token.Pos { return n.Pos }

// FloatLit is a floating-point literal.
type FloatLit struct {
	Pos   token.Pos
	Value float64
}

func (n *FloatLit) Start() token.Pos { return n.Pos }

// StringLit is a string literal (ordinary or raw; f-strings are desugared
// by the parser into a tree of StringLit/CallExpr/BinaryExpr nodes and
// never appear as their own node kind, see parser.parseFString).
type StringLit struct {
	Pos   token.Pos
	Value string
}

func (n *StringLit) Start() token.Pos { return n.Pos }

// BoolLit is the true or false literal.
type BoolLit struct {
	Pos   token.Pos
	Value bool
}

func (n *BoolLit) Start() token.Pos { return n.Pos }

// NilLit is the nil literal.
type NilLit struct {
	Pos token.Pos
}

func (n *NilLit) Start() token.Pos { return n.Pos }

// ListLit is a [a, b, c] literal.
type ListLit struct {
	Pos   token.Pos
	Elems []Expr
}

func (n *ListLit) Start() token.Pos { return n.Pos }

// MapEntry is a single key: value pair of a MapLit.
type MapEntry struct {
	Key   Expr // always a StringLit, possibly synthesized from a bare identifier key
	Value Expr
}

// MapLit is a { key: value, ... } literal.
type MapLit struct {
	Pos     token.Pos
	Entries []MapEntry
}

func (n *MapLit) Start() token.Pos { return n.Pos }

// UnaryExpr is a prefix operator application: -x or not x.
type UnaryExpr struct {
	Pos token.Pos
	Op  token.Token
	X   Expr
}

func (n *UnaryExpr) Start() token.Pos { return n.Pos }

// BinaryExpr is an infix operator application.
type BinaryExpr struct {
	Pos  token.Pos
	Op   token.Token
	X, Y Expr
}

func (n *BinaryExpr) Start() token.Pos { return n.Pos }

// CallExpr is a function call f(args...).
type CallExpr struct {
	Pos    token.Pos
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Start() token.Pos { return n.Pos }

// IndexExpr is a subscript expression x[i].
type IndexExpr struct {
	Pos      token.Pos
	X, Index Expr
}

func (n *IndexExpr) Start() token.Pos { return n.Pos }

// AttrExpr is a dotted attribute access x.name.
type AttrExpr struct {
	Pos  token.Pos
	X    Expr
	Name string
}

func (n *AttrExpr) Start() token.Pos { return n.Pos }

// MatchArm is one `pattern -> body` arm of a MatchExpr. Pattern is nil for
// the wildcard arm `_`.
type MatchArm struct {
	Pattern Expr
	Body    Expr
}

// MatchExpr is a `match subject { pattern -> body, ... }` expression.
type MatchExpr struct {
	Pos     token.Pos
	Subject Expr
	Arms    []MatchArm
}

func (n *MatchExpr) Start() token.Pos { return n.Pos }

// ParallelExpr is a `parallel { cmd1, cmd2, ... }` expression: each element
// of Commands is evaluated to a string and the whole expression desugars to
// a call to the builtin parallel_exec with the resulting list.
type ParallelExpr struct {
	Pos      token.Pos
	Commands []Expr
}

func (n *ParallelExpr) Start() token.Pos { return n.Pos }
