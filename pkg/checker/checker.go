package checker

import (
	"blang/pkg/ast"
	"blang/pkg/errors"
)

// Checker enforces the type rules over a resolved tree and infers missing
// declaration types from initializers. It mutates declaration types in place
// (inference) and aborts on the first violation.
type Checker struct {
	// ftype is the declared return kind of the function whose body is being
	// checked.
	ftype ast.TypeKind
	err   errors.BlangError
}

// New creates a checker.
func New() *Checker {
	return &Checker{}
}

// Run checks the whole program, returning the first error found.
func (c *Checker) Run(prog *ast.Program) error {
	for _, d := range prog.Decls {
		c.checkDecl(d)
	}
	if c.err != nil {
		return c.err
	}
	return nil
}

func (c *Checker) fail(k errors.Kind, format string, args ...interface{}) {
	if c.err == nil {
		c.err = errors.Typef(k, format, args...)
	}
}

func (c *Checker) checkDecl(d *ast.Decl) {
	if d == nil || c.err != nil {
		return
	}

	c.checkExpr(d.Value)
	if c.err != nil {
		return
	}

	if d.Type.Kind == ast.TypeFunction {
		c.checkSignature(d)
		c.ftype = d.Type.Return.Kind
	} else {
		c.checkVariable(d)
	}
	if d.Body != nil {
		c.checkStmt(d.Body)
	}
}

// checkSignature verifies a function declaration against the (possibly
// forward-declared) symbol's type: same kind, same return kind, same
// parameter count and per-position kinds, and no unknowns anywhere.
func (c *Checker) checkSignature(d *ast.Decl) {
	t1 := d.Type
	t2 := d.Symbol.Type
	if t2.Kind != ast.TypeFunction || t1.Return.Kind != t2.Return.Kind {
		c.fail(errors.TypeMismatch, "function '%s' conflicting return types", d.Name)
		return
	}
	if t1.Return.Kind == ast.TypeUnknown {
		c.fail(errors.InferenceFailure, "function '%s' return type cannot be inferred", d.Name)
		return
	}
	if len(t1.Params) != len(t2.Params) {
		c.fail(errors.TypeMismatch, "function '%s' param list count mismatch", d.Name)
		return
	}
	for i, p1 := range t1.Params {
		if p1.Type.Kind != t2.Params[i].Type.Kind {
			c.fail(errors.TypeMismatch, "function '%s' param list type mismatch", d.Name)
			return
		}
		if p1.Type.Kind == ast.TypeUnknown {
			c.fail(errors.InferenceFailure, "function '%s' parameter type cannot be inferred", d.Name)
			return
		}
	}
}

// checkVariable applies the declaration rules: infer unknown declared types
// from the initializer, reject void variables and initializer mismatches,
// and require global initializers to be compile-time constants.
func (c *Checker) checkVariable(d *ast.Decl) {
	kind := ast.TypeKindOf(d.Value)
	switch d.Type.Kind {
	case ast.TypeUnknown:
		if kind == ast.TypeUnknown {
			c.fail(errors.InferenceFailure, "cannot infer type of uninitialized variable")
			return
		}
		d.Type.Kind = kind
	case ast.TypeVoid:
		c.fail(errors.VoidVariable, "variables cannot be of type void")
	default:
		if kind != ast.TypeUnknown && kind != d.Type.Kind {
			c.fail(errors.TypeMismatch, "cannot assign %s to %s", kind, d.Type.Kind)
			return
		}
		if d.Symbol.Kind == ast.SymbolGlobal && !ast.IsConst(d.Value) {
			c.fail(errors.NonConstGlobalInit, "global '%s' initializer must be constant", d.Name)
		}
	}
}

func (c *Checker) checkStmt(s ast.Statement) {
	if s == nil || c.err != nil {
		return
	}

	switch s := s.(type) {
	case *ast.DeclStatement:
		c.checkDecl(s.Decl)
	case *ast.ExpressionStatement:
		c.checkExpr(s.Expr)
	case *ast.PrintStatement:
		for _, a := range s.Args {
			c.checkExpr(a)
		}
	case *ast.ReturnStatement:
		c.checkExpr(s.Value)
		if c.err != nil {
			return
		}
		if ast.TypeKindOf(s.Value) != c.ftype {
			c.fail(errors.TypeMismatch, "type of expr in return statement must match function return type")
		}
	case *ast.IfStatement:
		c.checkCond(s.Cond)
		c.checkStmt(s.Body)
		c.checkStmt(s.Else)
	case *ast.WhileStatement:
		c.checkCond(s.Cond)
		c.checkStmt(s.Body)
	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			c.checkStmt(inner)
		}
	}
}

func (c *Checker) checkCond(e ast.Expression) {
	c.checkExpr(e)
	if c.err != nil {
		return
	}
	if ast.TypeKindOf(e) != ast.TypeBoolean {
		c.fail(errors.TypeMismatch, "condition must be a boolean expr")
	}
}

func (c *Checker) checkExpr(e ast.Expression) {
	if e == nil || c.err != nil {
		return
	}

	switch e := e.(type) {
	case *ast.InfixExpression:
		c.checkExpr(e.Left)
		c.checkExpr(e.Right)
		if c.err != nil {
			return
		}
		switch e.Op {
		case ast.OpEq, ast.OpNe:
			if ast.TypeKindOf(e.Left) != ast.TypeKindOf(e.Right) {
				c.fail(errors.TypeMismatch, "operator requires like operands")
			}
		case ast.OpAnd, ast.OpOr:
			if ast.TypeKindOf(e.Left) != ast.TypeBoolean || ast.TypeKindOf(e.Right) != ast.TypeBoolean {
				c.fail(errors.TypeMismatch, "this operator requires boolean operand(s)")
			}
		default:
			// <, <=, >, >=, +, -, *, /, %, ^
			if ast.TypeKindOf(e.Left) != ast.TypeInt || ast.TypeKindOf(e.Right) != ast.TypeInt {
				c.fail(errors.TypeMismatch, "operator requires integral operand(s)")
			}
		}
	case *ast.PrefixExpression:
		c.checkExpr(e.Operand)
		if c.err != nil {
			return
		}
		if e.Op == ast.OpNot {
			if ast.TypeKindOf(e.Operand) != ast.TypeBoolean {
				c.fail(errors.TypeMismatch, "this operator requires boolean operand(s)")
			}
		} else if ast.TypeKindOf(e.Operand) != ast.TypeInt {
			c.fail(errors.TypeMismatch, "operator requires integral operand(s)")
		}
	case *ast.PostfixExpression:
		c.checkExpr(e.Operand)
		if c.err != nil {
			return
		}
		if ast.TypeKindOf(e.Operand) != ast.TypeInt {
			c.fail(errors.TypeMismatch, "operator requires integral operand(s)")
		}
	case *ast.AssignExpression:
		c.checkExpr(e.Value)
		if c.err != nil {
			return
		}
		if e.Symbol.Type.Kind != ast.TypeKindOf(e.Value) {
			c.fail(errors.TypeMismatch, "operator requires like operands")
		}
	case *ast.CallExpression:
		for _, a := range e.Args {
			c.checkExpr(a)
		}
		if c.err != nil {
			return
		}
		if e.Symbol.Type.Kind != ast.TypeFunction {
			c.fail(errors.TypeMismatch, "called object '%s' is not a function", e.Name)
			return
		}
		params := e.Symbol.Type.Params
		if len(e.Args) != len(params) {
			c.fail(errors.CallArityMismatch, "incorrect number of arguments in call to '%s'", e.Name)
			return
		}
		for i, a := range e.Args {
			if ast.TypeKindOf(a) != params[i].Type.Kind {
				c.fail(errors.TypeMismatch, "incorrect argument type in call to '%s'", e.Name)
				return
			}
		}
	}
}
