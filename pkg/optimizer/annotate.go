package optimizer

import (
	"fmt"
	"io"

	"blang/pkg/ast"
)

// Annotate counts reads and writes per symbol. Every counter is zeroed at
// entry, so repeated optimization rounds start clean. An assignment writes
// its target, a call reads its callee, an increment/decrement reads and
// writes its operand, and a name appearing as a direct operand of another
// expression reads its symbol.
func Annotate(prog *ast.Program, out io.Writer, trace bool) error {
	for _, s := range prog.Symbols {
		s.NumReads = 0
		s.NumWrites = 0
	}
	a := &annotator{out: out, trace: trace}
	for _, d := range prog.Decls {
		a.decl(d)
	}
	return nil
}

type annotator struct {
	out   io.Writer
	trace bool
}

func (a *annotator) print(s *ast.Symbol) {
	if !a.trace {
		return
	}
	fmt.Fprintf(a.out, "%s %s read/write: %d/%d\n", s.Kind, s.Name, s.NumReads, s.NumWrites)
}

func (a *annotator) read(s *ast.Symbol) {
	s.NumReads++
	a.print(s)
}

func (a *annotator) readWrite(s *ast.Symbol) {
	s.NumReads++
	s.NumWrites++
	a.print(s)
}

// readName counts a read when e is a plain name reference.
func (a *annotator) readName(e ast.Expression) {
	if id, ok := e.(*ast.Identifier); ok {
		a.read(id.Symbol)
	}
}

func (a *annotator) decl(d *ast.Decl) {
	if d == nil {
		return
	}
	if d.Body != nil {
		a.stmt(d.Body)
	}
	a.expr(d.Value)
}

func (a *annotator) stmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.DeclStatement:
		a.decl(s.Decl)
	case *ast.ExpressionStatement:
		a.expr(s.Expr)
	case *ast.PrintStatement:
		for _, arg := range s.Args {
			a.expr(arg)
			a.readName(arg)
		}
	case *ast.ReturnStatement:
		a.expr(s.Value)
	case *ast.IfStatement:
		a.expr(s.Cond)
		a.stmt(s.Body)
		a.stmt(s.Else)
	case *ast.WhileStatement:
		a.expr(s.Cond)
		a.stmt(s.Body)
	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			a.stmt(inner)
		}
	}
}

func (a *annotator) expr(e ast.Expression) {
	switch e := e.(type) {
	case *ast.AssignExpression:
		a.expr(e.Value)
		a.readName(e.Value)
		e.Symbol.NumWrites++
		a.print(e.Symbol)
	case *ast.CallExpression:
		for _, arg := range e.Args {
			a.expr(arg)
			a.readName(arg)
		}
		a.read(e.Symbol)
	case *ast.PrefixExpression:
		a.expr(e.Operand)
		if e.Op == ast.OpIncr || e.Op == ast.OpDecr {
			a.readWrite(e.Operand.(*ast.Identifier).Symbol)
		} else {
			a.readName(e.Operand)
		}
	case *ast.PostfixExpression:
		a.expr(e.Operand)
		a.readWrite(e.Operand.(*ast.Identifier).Symbol)
	case *ast.InfixExpression:
		a.expr(e.Left)
		a.expr(e.Right)
		a.readName(e.Left)
		a.readName(e.Right)
	}
}
