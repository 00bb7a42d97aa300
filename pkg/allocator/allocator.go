package allocator

import (
	"blang/pkg/ast"
	"blang/pkg/errors"
)

// Allocator assigns one of the five callee-saved general registers to every
// expression node that materializes a value, in a post-order walk. A bitmask
// tracks the registers currently live; binary operators take their left
// operand's register and free the right (with a special case for idivl's
// implicit EDX). Each register handed out is also recorded on the enclosing
// function so the emitter knows what to save and restore.
type Allocator struct {
	regs ast.RegSet
	fn   *ast.Decl
	err  errors.BlangError
}

// New creates an allocator.
func New() *Allocator {
	return &Allocator{}
}

// Run allocates registers for the whole program, returning the first error.
// When it succeeds, every register has been freed again: the walk returns to
// the root with an empty mask.
func (a *Allocator) Run(prog *ast.Program) error {
	for _, d := range prog.Decls {
		a.allocDecl(d)
	}
	if a.err != nil {
		return a.err
	}
	return nil
}

// Live returns the currently allocated register mask.
func (a *Allocator) Live() ast.RegSet {
	return a.regs
}

func (a *Allocator) fail(k errors.Kind, format string, args ...interface{}) {
	if a.err == nil {
		a.err = errors.Allocf(k, format, args...)
	}
}

// regAlloc linearly probes EBX, ECX, EDX, ESI, EDI and returns the first
// free register.
func (a *Allocator) regAlloc() ast.Reg {
	for _, r := range ast.GeneralRegs {
		if !a.regs.Has(r) {
			a.regs.Add(r)
			return r
		}
	}
	a.fail(errors.RegisterPressure, "cannot allocate register")
	return ast.RegNone
}

func (a *Allocator) regFree(r ast.Reg) {
	if a.err != nil {
		return
	}
	switch r {
	case ast.EBX, ast.ECX, ast.EDX, ast.ESI, ast.EDI:
		if !a.regs.Has(r) {
			a.fail(errors.RegisterFreeInvalid, "attempted to free unallocated register '%s'", r)
			return
		}
		a.regs = a.regs &^ ast.RegSet(r)
	default:
		a.fail(errors.RegisterFreeInvalid, "attempted to free out-of-range register %d", r)
	}
}

func (a *Allocator) allocDecl(d *ast.Decl) {
	if d == nil || a.err != nil {
		return
	}

	switch d.Symbol.Kind {
	case ast.SymbolGlobal:
		if d.Type.Kind == ast.TypeFunction && d.Body != nil {
			a.fn = d
			a.allocStmts(d.Body.Statements)
		}
	case ast.SymbolLocal:
		if d.Value != nil {
			a.allocExpr(d.Value)
			a.regFree(d.Value.Register())
		}
	}
}

func (a *Allocator) allocStmts(stmts []ast.Statement) {
	for _, s := range stmts {
		a.allocStmt(s)
	}
}

func (a *Allocator) allocStmt(s ast.Statement) {
	if s == nil || a.err != nil {
		return
	}

	switch s := s.(type) {
	case *ast.DeclStatement:
		a.allocDecl(s.Decl)
	case *ast.ExpressionStatement:
		a.allocExpr(s.Expr)
		if r := s.Expr.Register(); r != ast.RegNone {
			a.regFree(r)
		}
	case *ast.PrintStatement:
		// All arguments hold their registers until the whole list has been
		// walked, mirroring how a call's argument spine allocates.
		for _, arg := range s.Args {
			a.allocExpr(arg)
		}
		for _, arg := range s.Args {
			a.regFree(arg.Register())
		}
	case *ast.ReturnStatement:
		if s.Value != nil {
			a.allocExpr(s.Value)
			a.regFree(s.Value.Register())
		}
	case *ast.IfStatement:
		a.allocExpr(s.Cond)
		if r := s.Cond.Register(); r != ast.RegNone {
			a.regFree(r)
		}
		a.allocStmt(s.Body)
		a.allocStmt(s.Else)
	case *ast.WhileStatement:
		a.allocExpr(s.Cond)
		if r := s.Cond.Register(); r != ast.RegNone {
			a.regFree(r)
		}
		a.allocStmt(s.Body)
	case *ast.BlockStatement:
		a.allocStmts(s.Statements)
	}
}

func (a *Allocator) allocExpr(e ast.Expression) {
	if e == nil || a.err != nil {
		return
	}

	switch e := e.(type) {
	case *ast.InfixExpression:
		a.allocExpr(e.Left)
		a.allocExpr(e.Right)
		if a.err != nil {
			return
		}
		switch e.Op {
		case ast.OpDiv, ast.OpMod:
			// idivl clobbers EDX; the emitter zeroes it and reads the
			// quotient or remainder back out, so the result must not sit
			// in EDX.
			if e.Right.Register() == ast.EDX {
				e.SetRegister(e.Left.Register())
				a.regFree(e.Right.Register())
			} else {
				e.SetRegister(e.Right.Register())
				a.regFree(e.Left.Register())
			}
		default:
			e.SetRegister(e.Left.Register())
			a.regFree(e.Right.Register())
		}
	case *ast.PrefixExpression:
		a.allocExpr(e.Operand)
		e.SetRegister(e.Operand.Register())
	case *ast.PostfixExpression:
		a.allocExpr(e.Operand)
		e.SetRegister(e.Operand.Register())
	case *ast.AssignExpression:
		a.allocExpr(e.Value)
		e.SetRegister(e.Value.Register())
	case *ast.CallExpression:
		// Every argument is evaluated into its own register before any is
		// pushed; the registers come free once consumed.
		for _, arg := range e.Args {
			a.allocExpr(arg)
		}
		for _, arg := range e.Args {
			a.regFree(arg.Register())
		}
		if a.err != nil {
			return
		}
		e.SetRegister(a.regAlloc())
		a.fn.Regs.Add(e.Register())
	case *ast.IntLiteral, *ast.CharLiteral, *ast.BooleanLiteral, *ast.StringLiteral, *ast.Identifier:
		e.SetRegister(a.regAlloc())
		a.fn.Regs.Add(e.Register())
	}
}
