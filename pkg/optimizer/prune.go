package optimizer

import (
	"blang/pkg/ast"
)

// Prune removes dead code: pure expression statements, branches of
// conditionals decided at compile time, loops that never run, statements
// after a return, and assignments to symbols that are never read (keeping
// their right-hand side for its effects).
func Prune(prog *ast.Program) error {
	for _, d := range prog.Decls {
		pruneDecl(d)
	}
	return nil
}

func pruneDecl(d *ast.Decl) {
	if d == nil {
		return
	}
	d.Value = pruneExpr(d.Value)
	if d.Body != nil {
		d.Body.Statements = pruneStmts(d.Body.Statements)
	}
}

func pruneStmts(stmts []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		pruneStmt(s)
		switch s := s.(type) {
		case *ast.ExpressionStatement:
			if !ast.HasEffects(s.Expr) {
				continue
			}
		case *ast.IfStatement:
			if cond, ok := s.Cond.(*ast.BooleanLiteral); ok {
				// Keep only the taken branch (already a block).
				taken := s.Body
				if !cond.Value {
					taken = s.Else
				}
				if taken != nil {
					out = append(out, taken)
				}
				continue
			}
		case *ast.WhileStatement:
			if cond, ok := s.Cond.(*ast.BooleanLiteral); ok && !cond.Value {
				continue
			}
		case *ast.ReturnStatement:
			// Statements after a return are unreachable.
			out = append(out, s)
			return out
		}
		out = append(out, s)
	}
	return out
}

func pruneStmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.DeclStatement:
		pruneDecl(s.Decl)
	case *ast.ExpressionStatement:
		s.Expr = pruneExpr(s.Expr)
	case *ast.PrintStatement:
		for i := range s.Args {
			s.Args[i] = pruneExpr(s.Args[i])
		}
	case *ast.ReturnStatement:
		s.Value = pruneExpr(s.Value)
	case *ast.IfStatement:
		s.Cond = pruneExpr(s.Cond)
		pruneBody(&s.Body)
		pruneBody(&s.Else)
	case *ast.WhileStatement:
		s.Cond = pruneExpr(s.Cond)
		pruneBody(&s.Body)
	case *ast.BlockStatement:
		s.Statements = pruneStmts(s.Statements)
	}
}

func pruneBody(sp *ast.Statement) {
	if block, ok := (*sp).(*ast.BlockStatement); ok {
		block.Statements = pruneStmts(block.Statements)
		return
	}
	pruneStmt(*sp)
}

func pruneExpr(e ast.Expression) ast.Expression {
	switch e := e.(type) {
	case nil:
		return nil
	case *ast.AssignExpression:
		e.Value = pruneExpr(e.Value)
		// The stored value is never read; keep the computation alone.
		if e.Symbol.NumReads == 0 {
			return e.Value
		}
		return e
	case *ast.InfixExpression:
		e.Left = pruneExpr(e.Left)
		e.Right = pruneExpr(e.Right)
		return e
	case *ast.PrefixExpression:
		e.Operand = pruneExpr(e.Operand)
		return e
	case *ast.PostfixExpression:
		e.Operand = pruneExpr(e.Operand)
		return e
	case *ast.CallExpression:
		for i := range e.Args {
			e.Args[i] = pruneExpr(e.Args[i])
		}
		return e
	}
	return e
}
