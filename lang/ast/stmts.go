package ast

import "github.com/glipt-org/glipt/lang/token"

func (*ExprStmt) stmtNode()      {}
func (*AssignStmt) stmtNode()    {}
func (*IfStmt) stmtNode()        {}
func (*WhileStmt) stmtNode()     {}
func (*ForInStmt) stmtNode()     {}
func (*ReturnStmt) stmtNode()    {}
func (*BreakStmt) stmtNode()     {}
func (*ContinueStmt) stmtNode()  {}
func (*FuncStmt) stmtNode()      {}
func (*AllowStmt) stmtNode()     {}
func (*OnFailureStmt) stmtNode() {}
func (*ImportStmt) stmtNode()    {}

// ExprStmt is an expression evaluated for its side effect (and, when it is
// the last statement of a function body, implicitly returned -- see
// compiler.compileFunctionBody).
type ExprStmt struct {
	X Expr
}

func (n *ExprStmt) Start() token.Pos { return n.X.Start() }

// AssignStmt covers `let x = e`, bare `x = e` and indexed/attribute
// assignment (x[i] = e, x.f = e), as well as the compound forms (+=, -=,
// *=, /=). Let records whether the `let` keyword introduced the statement;
// the compiler uses it together with binding resolution to decide between
// rebind, local-declare and global-set.
type AssignStmt struct {
	Pos    token.Pos
	Let    bool
	Target Expr        // Ident, IndexExpr or AttrExpr
	Op     token.Token // ASSIGN, PLUS_EQ, MINUS_EQ, STAR_EQ or SLASH_EQ
	Value  Expr
}

func (n *AssignStmt) Start() token.Pos { return n.Pos }

// IfStmt is an if/else statement. Else is nil when there is no else clause;
// an `else if` chain is represented as an Else block containing exactly one
// nested IfStmt.
type IfStmt struct {
	Pos  token.Pos
	Cond Expr
	Then *Block
	Else *Block
}

func (n *IfStmt) Start() token.Pos { return n.Pos }

// WhileStmt is a while loop.
type WhileStmt struct {
	Pos  token.Pos
	Cond Expr
	Body *Block
}

func (n *WhileStmt) Start() token.Pos { return n.Pos }

// ForInStmt is a `for x in iter { ... }` loop.
type ForInStmt struct {
	Pos  token.Pos
	Var  string
	Iter Expr
	Body *Block
}

func (n *ForInStmt) Start() token.Pos { return n.Pos }

// ReturnStmt returns from the enclosing function. Value is nil for a bare
// `return`.
type ReturnStmt struct {
	Pos   token.Pos
	Value Expr
}

func (n *ReturnStmt) Start() token.Pos { return n.Pos }

// BreakStmt exits the innermost enclosing loop.
type BreakStmt struct{ Pos token.Pos }

func (n *BreakStmt) Start() token.Pos { return n.Pos }

// ContinueStmt jumps to the next iteration of the innermost enclosing loop.
type ContinueStmt struct{ Pos token.Pos }

func (n *ContinueStmt) Start() token.Pos { return n.Pos }

// FuncStmt is a named function declaration, fn name(params) { ... }.
type FuncStmt struct {
	Pos    token.Pos
	Name   string
	Params []string
	Body   *Block
}

func (n *FuncStmt) Start() token.Pos { return n.Pos }

// AllowStmt is `allow <kind> <target>`, granting a capability at runtime.
type AllowStmt struct {
	Pos    token.Pos
	Kind   string // exec, net, read, write or env
	Target Expr
}

func (n *AllowStmt) Start() token.Pos { return n.Pos }

// OnFailureStmt marks the start of a protected region: every statement
// after it in the enclosing statement list is wrapped by the handler that
// runs Body on failure.
type OnFailureStmt struct {
	Pos  token.Pos
	Body *Block
}

func (n *OnFailureStmt) Start() token.Pos { return n.Pos }

// ImportStmt loads a module by source path and binds its export namespace
// to a name (the path's last segment minus extension, or the `as` alias).
type ImportStmt struct {
	Pos  token.Pos
	Path string
	As   string // empty if no `as` clause
}

func (n *ImportStmt) Start() token.Pos { return n.Pos }
