package resolver

import (
	"fmt"
	"io"

	"blang/pkg/ast"
	"blang/pkg/errors"
)

// ScopeMax caps the depth of nested scopes.
const ScopeMax = 100

// Resolver attaches a symbol to every defining and referencing occurrence of
// a name, assigns parameter and local frame offsets, and records each
// function's local count. It maintains a stack of name->symbol maps; level 0
// is the global scope.
type Resolver struct {
	prog  *ast.Program
	out   io.Writer
	trace bool

	scopes     []map[string]*ast.Symbol
	which      int
	paramCount int
	localCount int
	err        errors.BlangError
}

// New creates a resolver. When trace is set, every binding and lookup writes
// a "<name> resolves to <kind> <which>" line to out.
func New(out io.Writer, trace bool) *Resolver {
	return &Resolver{out: out, trace: trace}
}

// Run resolves the whole program, returning the first error found.
func (r *Resolver) Run(prog *ast.Program) error {
	r.prog = prog
	r.scopes = []map[string]*ast.Symbol{make(map[string]*ast.Symbol)}
	for _, d := range prog.Decls {
		r.resolveDecl(d)
	}
	if r.err != nil {
		return r.err
	}
	return nil
}

func (r *Resolver) fail(k errors.Kind, format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Resolvef(k, format, args...)
	}
}

func (r *Resolver) print(s *ast.Symbol) {
	if !r.trace {
		return
	}
	fmt.Fprintf(r.out, "%s resolves to %s %d\n", s.Name, s.Kind, s.Which)
}

// --- Scopes ---

func (r *Resolver) scopeEnter() {
	if len(r.scopes) >= ScopeMax {
		r.fail(errors.ScopeOverflow, "max scope exceeded")
		return
	}
	r.scopes = append(r.scopes, make(map[string]*ast.Symbol))
}

func (r *Resolver) scopeExit() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) scopeLevel() int {
	return len(r.scopes) - 1
}

// scopeBind binds a name in the innermost scope, minting its which id.
// It reports false if the scope already binds the name.
func (r *Resolver) scopeBind(name string, s *ast.Symbol) bool {
	top := r.scopes[len(r.scopes)-1]
	if _, ok := top[name]; ok {
		return false
	}
	r.which++
	s.Which = r.which
	top[name] = s
	return true
}

// scopeLookup scans the scope stack from innermost to outermost; the first
// hit wins.
func (r *Resolver) scopeLookup(name string) *ast.Symbol {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if s, ok := r.scopes[i][name]; ok {
			return s
		}
	}
	return nil
}

// paramLookup scans the non-global scopes for a parameter binding of name.
// Locals may shadow globals and outer locals, but not the formal parameters
// of the enclosing function.
func (r *Resolver) paramLookup(name string) *ast.Symbol {
	for i := len(r.scopes) - 1; i >= 1; i-- {
		if s, ok := r.scopes[i][name]; ok && s.Kind == ast.SymbolParam {
			return s
		}
	}
	return nil
}

// --- Walk ---

func (r *Resolver) resolveDecl(d *ast.Decl) {
	if d == nil || r.err != nil {
		return
	}

	t := d.Type
	if r.scopeLevel() == 0 {
		d.Symbol = r.scopeLookup(d.Name)
		if d.Symbol == nil {
			d.Symbol = r.prog.NewSymbol(ast.SymbolGlobal, t, d.Name)
			r.scopeBind(d.Name, d.Symbol)
		}
		// A declaration is defining when it has a body (functions) or an
		// initializer (variables); only one defining occurrence is allowed.
		init := d.Body != nil
		if t.Kind != ast.TypeFunction {
			init = d.Value != nil
		}
		if init {
			if d.Symbol.Init {
				r.fail(errors.GlobalRedefinition, "redefinition of global %s", d.Name)
				return
			}
			d.Symbol.Init = true
		}
		r.print(d.Symbol)
		r.resolveExpr(d.Value)
		if t.Kind == ast.TypeFunction {
			r.scopeEnter()
			r.paramCount = 0
			for _, param := range t.Params {
				r.resolveParam(param)
			}
			r.localCount = 0
			if d.Body != nil {
				r.resolveStmt(d.Body)
			}
			d.NumLocals = r.localCount
			r.scopeExit()
		}
		return
	}

	d.Symbol = r.prog.NewSymbol(ast.SymbolLocal, t, d.Name)
	d.Symbol.Offset = r.localCount
	r.localCount++
	if r.paramLookup(d.Name) != nil {
		r.fail(errors.LocalRedeclaration, "local %s redeclares a parameter", d.Name)
		return
	}
	if !r.scopeBind(d.Name, d.Symbol) {
		r.fail(errors.LocalRedeclaration, "local %s has already been declared", d.Name)
		return
	}
	r.print(d.Symbol)
	r.resolveExpr(d.Value)
}

func (r *Resolver) resolveParam(param *ast.Param) {
	if r.err != nil {
		return
	}
	s := r.prog.NewSymbol(ast.SymbolParam, param.Type, param.Name)
	if !r.scopeBind(param.Name, s) {
		r.fail(errors.LocalRedeclaration, "parameter %s has already been declared", param.Name)
		return
	}
	s.Offset = r.paramCount
	r.paramCount++
	r.print(s)
}

func (r *Resolver) resolveStmt(s ast.Statement) {
	if s == nil || r.err != nil {
		return
	}

	switch s := s.(type) {
	case *ast.DeclStatement:
		r.resolveDecl(s.Decl)
	case *ast.ExpressionStatement:
		r.resolveExpr(s.Expr)
	case *ast.PrintStatement:
		for _, a := range s.Args {
			r.resolveExpr(a)
		}
	case *ast.ReturnStatement:
		r.resolveExpr(s.Value)
	case *ast.IfStatement:
		r.resolveExpr(s.Cond)
		r.scopeEnter()
		r.resolveStmt(s.Body)
		r.scopeExit()
		r.scopeEnter()
		r.resolveStmt(s.Else)
		r.scopeExit()
	case *ast.WhileStatement:
		r.resolveExpr(s.Cond)
		r.scopeEnter()
		r.resolveStmt(s.Body)
		r.scopeExit()
	case *ast.BlockStatement:
		r.scopeEnter()
		for _, inner := range s.Statements {
			r.resolveStmt(inner)
		}
		r.scopeExit()
	}
}

func (r *Resolver) resolveExpr(e ast.Expression) {
	if e == nil || r.err != nil {
		return
	}

	switch e := e.(type) {
	case *ast.Identifier:
		e.Symbol = r.lookupOrFail(e.Name)
	case *ast.CallExpression:
		e.Symbol = r.lookupOrFail(e.Name)
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
	case *ast.AssignExpression:
		e.Symbol = r.lookupOrFail(e.Name)
		r.resolveExpr(e.Value)
	case *ast.StringLiteral:
		r.prog.Strings.Add(e.Spelling)
	case *ast.InfixExpression:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.PrefixExpression:
		r.resolveExpr(e.Operand)
	case *ast.PostfixExpression:
		r.resolveExpr(e.Operand)
	}
}

func (r *Resolver) lookupOrFail(name string) *ast.Symbol {
	s := r.scopeLookup(name)
	if s == nil {
		r.fail(errors.UndeclaredName, "use of undeclared variable %s", name)
		return nil
	}
	r.print(s)
	return s
}
