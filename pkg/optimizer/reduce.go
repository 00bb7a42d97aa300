package optimizer

import (
	"blang/pkg/ast"
)

// Reduce performs constant folding and algebraic identity/short-circuit
// rewrites bottom-up. For each node the rules are tried in a fixed order and
// the first that fires replaces the node. The pass is idempotent: running it
// again over a reduced tree changes nothing.
func Reduce(prog *ast.Program) error {
	for _, d := range prog.Decls {
		reduceDecl(d)
	}
	return nil
}

func reduceDecl(d *ast.Decl) {
	if d == nil {
		return
	}
	d.Value = reduceExpr(d.Value)
	if d.Body != nil {
		reduceStmt(d.Body)
	}
}

func reduceStmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.DeclStatement:
		reduceDecl(s.Decl)
	case *ast.ExpressionStatement:
		s.Expr = reduceExpr(s.Expr)
	case *ast.PrintStatement:
		for i := range s.Args {
			s.Args[i] = reduceExpr(s.Args[i])
		}
	case *ast.ReturnStatement:
		s.Value = reduceExpr(s.Value)
	case *ast.IfStatement:
		s.Cond = reduceExpr(s.Cond)
		reduceStmt(s.Body)
		reduceStmt(s.Else)
	case *ast.WhileStatement:
		s.Cond = reduceExpr(s.Cond)
		reduceStmt(s.Body)
	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			reduceStmt(inner)
		}
	}
}

// intLit reports the value of an integer literal.
func intLit(e ast.Expression) (int, bool) {
	if lit, ok := e.(*ast.IntLiteral); ok {
		return lit.Value, true
	}
	return 0, false
}

// boolLit reports the value of a boolean literal.
func boolLit(e ast.Expression) (bool, bool) {
	if lit, ok := e.(*ast.BooleanLiteral); ok {
		return lit.Value, true
	}
	return false, false
}

// isIntConst reports whether e is the integer literal v.
func isIntConst(e ast.Expression, v int) bool {
	n, ok := intLit(e)
	return ok && n == v
}

// isBoolConst reports whether e is the boolean literal v.
func isBoolConst(e ast.Expression, v bool) bool {
	b, ok := boolLit(e)
	return ok && b == v
}

// sameName reports whether both operands are references to the same symbol.
func sameName(a, b ast.Expression) bool {
	l, lok := a.(*ast.Identifier)
	r, rok := b.(*ast.Identifier)
	return lok && rok && l.Symbol != nil && l.Symbol == r.Symbol
}

func intExpr(v int) ast.Expression   { return &ast.IntLiteral{Value: v} }
func boolExpr(v bool) ast.Expression { return &ast.BooleanLiteral{Value: v} }

func reduceExpr(e ast.Expression) ast.Expression {
	switch e := e.(type) {
	case nil:
		return nil
	case *ast.InfixExpression:
		e.Left = reduceExpr(e.Left)
		e.Right = reduceExpr(e.Right)
		return reduceInfix(e)
	case *ast.PrefixExpression:
		e.Operand = reduceExpr(e.Operand)
		switch e.Op {
		case ast.OpNot:
			if b, ok := boolLit(e.Operand); ok {
				return boolExpr(!b)
			}
		case ast.OpAdd:
			if n, ok := intLit(e.Operand); ok {
				return intExpr(n)
			}
		case ast.OpSub:
			if n, ok := intLit(e.Operand); ok {
				return intExpr(-n)
			}
		}
		return e
	case *ast.PostfixExpression:
		e.Operand = reduceExpr(e.Operand)
		return e
	case *ast.AssignExpression:
		e.Value = reduceExpr(e.Value)
		// x = x is a plain read of x.
		if v, ok := e.Value.(*ast.Identifier); ok && v.Symbol == e.Symbol {
			return e.Value
		}
		return e
	case *ast.CallExpression:
		for i := range e.Args {
			e.Args[i] = reduceExpr(e.Args[i])
		}
		return e
	}
	return e
}

func reduceInfix(e *ast.InfixExpression) ast.Expression {
	li, lint := intLit(e.Left)
	ri, rint := intLit(e.Right)
	lb, lbool := boolLit(e.Left)
	rb, rbool := boolLit(e.Right)
	folded := lint && rint
	self := sameName(e.Left, e.Right)

	switch e.Op {
	case ast.OpLe:
		if folded {
			return boolExpr(li <= ri)
		}
		if self {
			return boolExpr(true)
		}
	case ast.OpLt:
		if folded {
			return boolExpr(li < ri)
		}
		if self {
			return boolExpr(false)
		}
	case ast.OpEq:
		if folded {
			return boolExpr(li == ri)
		}
		if self {
			return boolExpr(true)
		}
	case ast.OpNe:
		if folded {
			return boolExpr(li != ri)
		}
		if self {
			return boolExpr(false)
		}
	case ast.OpGt:
		if folded {
			return boolExpr(li > ri)
		}
		if self {
			return boolExpr(false)
		}
	case ast.OpGe:
		if folded {
			return boolExpr(li >= ri)
		}
		if self {
			return boolExpr(true)
		}
	case ast.OpAdd:
		if folded {
			return intExpr(li + ri)
		}
		if isIntConst(e.Left, 0) {
			return e.Right
		}
		if isIntConst(e.Right, 0) {
			return e.Left
		}
	case ast.OpSub:
		if folded {
			return intExpr(li - ri)
		}
		if self {
			return intExpr(0)
		}
		if isIntConst(e.Right, 0) {
			return e.Left
		}
	case ast.OpMul:
		if folded {
			return intExpr(li * ri)
		}
		if isIntConst(e.Left, 0) && !ast.HasEffects(e.Right) {
			return intExpr(0)
		}
		if isIntConst(e.Right, 0) && !ast.HasEffects(e.Left) {
			return intExpr(0)
		}
		if isIntConst(e.Left, 1) {
			return e.Right
		}
		if isIntConst(e.Right, 1) {
			return e.Left
		}
	case ast.OpDiv:
		if folded && ri != 0 {
			return intExpr(li / ri)
		}
		if self {
			return intExpr(1)
		}
		if isIntConst(e.Left, 0) && !ast.HasEffects(e.Right) {
			return intExpr(0)
		}
		if isIntConst(e.Right, 1) {
			return e.Left
		}
	case ast.OpMod:
		if folded && ri != 0 {
			return intExpr(li % ri)
		}
		if self {
			return intExpr(0)
		}
		if isIntConst(e.Left, 0) && !ast.HasEffects(e.Right) {
			return intExpr(0)
		}
		if isIntConst(e.Right, 1) && !ast.HasEffects(e.Left) {
			return intExpr(0)
		}
	case ast.OpAnd:
		if lbool && rbool {
			return boolExpr(lb && rb)
		}
		if isBoolConst(e.Left, false) && !ast.HasEffects(e.Right) {
			return boolExpr(false)
		}
		if isBoolConst(e.Right, false) && !ast.HasEffects(e.Left) {
			return boolExpr(false)
		}
		if isBoolConst(e.Left, true) {
			return e.Right
		}
		if isBoolConst(e.Right, true) {
			return e.Left
		}
		if self {
			return e.Right
		}
	case ast.OpOr:
		if lbool && rbool {
			return boolExpr(lb || rb)
		}
		if isBoolConst(e.Left, true) && !ast.HasEffects(e.Right) {
			return boolExpr(true)
		}
		if isBoolConst(e.Right, true) && !ast.HasEffects(e.Left) {
			return boolExpr(true)
		}
		if isBoolConst(e.Left, false) {
			return e.Right
		}
		if isBoolConst(e.Right, false) {
			return e.Left
		}
		if self {
			return e.Right
		}
	case ast.OpPow:
		if isIntConst(e.Right, 0) && !ast.HasEffects(e.Left) {
			return intExpr(1)
		}
		if folded {
			// Unrolled by repeated multiplication; a negative exponent
			// multiplies zero times and yields 1, matching the runtime.
			result := 1
			for n := ri; n > 0; n-- {
				result *= li
			}
			return intExpr(result)
		}
	}
	return e
}
