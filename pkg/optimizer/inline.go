package optimizer

import (
	"github.com/samber/lo"

	"blang/pkg/ast"
)

// Inline substitutes write-once constant locals into their uses and removes
// their declarations. Candidates are stashed on the symbol as a deep copy of
// the initializer; every stash is cleared at entry so repeated optimization
// rounds start clean.
func Inline(prog *ast.Program) error {
	for _, s := range prog.Symbols {
		s.Value = nil
	}
	for _, d := range prog.Decls {
		inlineDecl(d)
	}
	return nil
}

func inlineDecl(d *ast.Decl) {
	if d == nil {
		return
	}
	if d.Body != nil {
		d.Body.Statements = inlineStmts(d.Body.Statements)
	}
	d.Value = inlineExpr(d.Value)
	if d.Symbol.Kind == ast.SymbolLocal &&
		d.Symbol.NumWrites == 0 &&
		ast.IsConst(d.Value) {
		d.Symbol.Value = ast.Copy(d.Value)
	}
}

// inlineStmts processes a statement list in order, so a declaration's stash
// is in place before the uses that follow it, then splices out the
// declarations whose symbols became substitutable.
func inlineStmts(stmts []ast.Statement) []ast.Statement {
	for _, s := range stmts {
		inlineStmt(s)
	}
	return lo.Filter(stmts, func(s ast.Statement, _ int) bool {
		ds, ok := s.(*ast.DeclStatement)
		return !ok || ds.Decl.Symbol.Value == nil
	})
}

func inlineStmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.DeclStatement:
		inlineDecl(s.Decl)
	case *ast.ExpressionStatement:
		s.Expr = inlineExpr(s.Expr)
	case *ast.PrintStatement:
		for i := range s.Args {
			s.Args[i] = inlineExpr(s.Args[i])
		}
	case *ast.ReturnStatement:
		s.Value = inlineExpr(s.Value)
	case *ast.IfStatement:
		s.Cond = inlineExpr(s.Cond)
		inlineStmt(s.Body)
		inlineStmt(s.Else)
	case *ast.WhileStatement:
		s.Cond = inlineExpr(s.Cond)
		inlineStmt(s.Body)
	case *ast.BlockStatement:
		s.Statements = inlineStmts(s.Statements)
	}
}

func inlineExpr(e ast.Expression) ast.Expression {
	switch e := e.(type) {
	case nil:
		return nil
	case *ast.Identifier:
		if e.Symbol != nil && e.Symbol.Value != nil {
			return ast.Copy(e.Symbol.Value)
		}
		return e
	case *ast.InfixExpression:
		e.Left = inlineExpr(e.Left)
		e.Right = inlineExpr(e.Right)
		return e
	case *ast.PrefixExpression:
		e.Operand = inlineExpr(e.Operand)
		return e
	case *ast.PostfixExpression:
		e.Operand = inlineExpr(e.Operand)
		return e
	case *ast.AssignExpression:
		e.Value = inlineExpr(e.Value)
		return e
	case *ast.CallExpression:
		for i := range e.Args {
			e.Args[i] = inlineExpr(e.Args[i])
		}
		return e
	}
	return e
}
