package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented dump of the parse tree rooted at f, one node
// per line with line:col positions, for the ast CLI verb and parser tests.
func Fprint(w io.Writer, f *File) error {
	p := &printer{w: w}
	fmt.Fprintf(w, "file %s\n", f.Filename)
	p.block(f.Block, 1)
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, err := fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
	if err != nil {
		p.err = err
	}
}

func (p *printer) block(b *Block, depth int) {
	for _, s := range b.Stmts {
		p.stmt(s, depth)
	}
}

func (p *printer) stmt(s Stmt, depth int) {
	switch s := s.(type) {
	case *ExprStmt:
		p.printf(depth, "[%s] expr", s.Start())
		p.expr(s.X, depth+1)
	case *AssignStmt:
		kw := "assign"
		if s.Let {
			kw = "let"
		}
		p.printf(depth, "[%s] %s %s", s.Pos, kw, s.Op)
		p.expr(s.Target, depth+1)
		p.expr(s.Value, depth+1)
	case *IfStmt:
		p.printf(depth, "[%s] if", s.Pos)
		p.expr(s.Cond, depth+1)
		p.printf(depth+1, "then")
		p.block(s.Then, depth+2)
		if s.Else != nil {
			p.printf(depth+1, "else")
			p.block(s.Else, depth+2)
		}
	case *WhileStmt:
		p.printf(depth, "[%s] while", s.Pos)
		p.expr(s.Cond, depth+1)
		p.block(s.Body, depth+1)
	case *ForInStmt:
		p.printf(depth, "[%s] for %s in", s.Pos, s.Var)
		p.expr(s.Iter, depth+1)
		p.block(s.Body, depth+1)
	case *ReturnStmt:
		p.printf(depth, "[%s] return", s.Pos)
		if s.Value != nil {
			p.expr(s.Value, depth+1)
		}
	case *BreakStmt:
		p.printf(depth, "[%s] break", s.Pos)
	case *ContinueStmt:
		p.printf(depth, "[%s] continue", s.Pos)
	case *FuncStmt:
		p.printf(depth, "[%s] fn %s(%s)", s.Pos, s.Name, strings.Join(s.Params, ", "))
		p.block(s.Body, depth+1)
	case *AllowStmt:
		p.printf(depth, "[%s] allow %s", s.Pos, s.Kind)
		p.expr(s.Target, depth+1)
	case *OnFailureStmt:
		p.printf(depth, "[%s] on failure", s.Pos)
		p.block(s.Body, depth+1)
	case *ImportStmt:
		if s.As != "" {
			p.printf(depth, "[%s] import %q as %s", s.Pos, s.Path, s.As)
		} else {
			p.printf(depth, "[%s] import %q", s.Pos, s.Path)
		}
	default:
		p.printf(depth, "[%s] unknown stmt %T", s.Start(), s)
	}
}

func (p *printer) expr(e Expr, depth int) {
	switch e := e.(type) {
	case *Ident:
		p.printf(depth, "[%s] ident %s", e.Pos, e.Name)
	case *IntLit:
		p.printf(depth, "[%s] int %d", e.Pos, e.Value)
	case *FloatLit:
		p.printf(depth, "[%s] float %s", e.Pos, strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *StringLit:
		p.printf(depth, "[%s] string %q", e.Pos, e.Value)
	case *BoolLit:
		p.printf(depth, "[%s] bool %t", e.Pos, e.Value)
	case *NilLit:
		p.printf(depth, "[%s] nil", e.Pos)
	case *ListLit:
		p.printf(depth, "[%s] list (%d)", e.Pos, len(e.Elems))
		for _, el := range e.Elems {
			p.expr(el, depth+1)
		}
	case *MapLit:
		p.printf(depth, "[%s] map (%d)", e.Pos, len(e.Entries))
		for _, entry := range e.Entries {
			p.expr(entry.Key, depth+1)
			p.expr(entry.Value, depth+2)
		}
	case *UnaryExpr:
		p.printf(depth, "[%s] unary %s", e.Pos, e.Op)
		p.expr(e.X, depth+1)
	case *BinaryExpr:
		p.printf(depth, "[%s] binary %s", e.Pos, e.Op)
		p.expr(e.X, depth+1)
		p.expr(e.Y, depth+1)
	case *CallExpr:
		p.printf(depth, "[%s] call (%d args)", e.Pos, len(e.Args))
		p.expr(e.Callee, depth+1)
		for _, a := range e.Args {
			p.expr(a, depth+1)
		}
	case *IndexExpr:
		p.printf(depth, "[%s] index", e.Pos)
		p.expr(e.X, depth+1)
		p.expr(e.Index, depth+1)
	case *AttrExpr:
		p.printf(depth, "[%s] attr .%s", e.Pos, e.Name)
		p.expr(e.X, depth+1)
	case *MatchExpr:
		p.printf(depth, "[%s] match (%d arms)", e.Pos, len(e.Arms))
		p.expr(e.Subject, depth+1)
		for _, arm := range e.Arms {
			if arm.Pattern == nil {
				p.printf(depth+1, "arm _")
			} else {
				p.printf(depth+1, "arm")
				p.expr(arm.Pattern, depth+2)
			}
			p.expr(arm.Body, depth+2)
		}
	case *ParallelExpr:
		p.printf(depth, "[%s] parallel (%d)", e.Pos, len(e.Commands))
		for _, cmd := range e.Commands {
			p.expr(cmd, depth+1)
		}
	default:
		p.printf(depth, "[%s] unknown expr %T", e.Start(), e)
	}
}
