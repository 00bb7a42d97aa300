package codegen

import (
	"bufio"
	"fmt"
	"io"

	"github.com/samber/lo"

	"blang/pkg/ast"
)

// Generator emits AT&T x86-32 assembly by a structural walk of the final
// tree. Functions follow a cdecl ABI: arguments on the stack (caller pops),
// result in EAX, locals below EBP, and every general register the body
// touches saved in the prologue and restored in the epilogue.
type Generator struct {
	w    *bufio.Writer
	prog *ast.Program

	fnName    string
	stmtLabel int
	exprLabel int
}

// New creates a generator writing to w.
func New(w io.Writer) *Generator {
	return &Generator{w: bufio.NewWriter(w)}
}

// Run emits the whole program.
func (g *Generator) Run(prog *ast.Program) error {
	g.prog = prog

	g.write("\t.data")
	for i, spelling := range prog.Strings.All() {
		g.write(".string%d:", i+1)
		g.write("\t.string\t%s", spelling)
	}
	for _, d := range prog.Decls {
		g.decl(d)
	}
	return g.w.Flush()
}

func (g *Generator) write(format string, args ...interface{}) {
	fmt.Fprintf(g.w, format, args...)
	g.w.WriteByte('\n')
}

// location returns the operand naming a symbol's storage: globals by label,
// parameters above the frame pointer, locals below it.
func location(s *ast.Symbol) string {
	switch s.Kind {
	case ast.SymbolParam:
		return fmt.Sprintf("%d(%%ebp)", (s.Offset+2)*4)
	case ast.SymbolLocal:
		return fmt.Sprintf("%d(%%ebp)", (s.Offset+1)*-4)
	}
	return s.Name
}

func (g *Generator) decl(d *ast.Decl) {
	switch d.Symbol.Kind {
	case ast.SymbolGlobal:
		if d.Type.Kind == ast.TypeFunction {
			g.function(d)
		} else {
			g.global(d)
		}
	case ast.SymbolLocal:
		loc := location(d.Symbol)
		if d.Value != nil {
			g.expr(d.Value)
			g.write("\tmovl\t%s, %s", d.Value.Register(), loc)
		} else {
			g.write("\tmovl\t$0, %s", loc)
		}
	}
}

func (g *Generator) function(d *ast.Decl) {
	if d.Body == nil {
		return
	}
	saved := lo.Filter(ast.GeneralRegs, func(r ast.Reg, _ int) bool {
		return d.Regs.Has(r)
	})

	g.write("\t.text")
	g.write(".globl %s", d.Name)
	g.write("%s:", d.Name)
	g.write("\tpushl\t%%ebp")
	g.write("\tmovl\t%%esp, %%ebp")
	if d.NumLocals > 0 {
		g.write("\tsubl\t$%d, %%esp", d.NumLocals*4)
	}
	for _, r := range saved {
		g.write("\tpushl\t%s", r)
	}

	g.fnName = d.Name
	g.stmts(d.Body.Statements)

	g.write("\tmovl\t$0, %%eax")
	g.write(".%sret:", d.Name)
	for _, r := range lo.Reverse(saved) {
		g.write("\tpopl\t%s", r)
	}
	g.write("\tleave")
	g.write("\tret")
}

func (g *Generator) global(d *ast.Decl) {
	g.write("\t.data")
	g.write(".globl %s", d.Name)
	g.write("%s:", d.Name)
	value := "0"
	switch v := d.Value.(type) {
	case *ast.StringLiteral:
		id, _ := g.prog.Strings.Lookup(v.Spelling)
		value = fmt.Sprintf(".string%d", id)
	case *ast.IntLiteral:
		value = fmt.Sprintf("%d", v.Value)
	case *ast.CharLiteral:
		value = fmt.Sprintf("%d", v.Value)
	case *ast.BooleanLiteral:
		value = fmt.Sprintf("%d", boolConst(v.Value))
	}
	g.write("\t.long\t%s", value)
}

func boolConst(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (g *Generator) stmts(stmts []ast.Statement) {
	for _, s := range stmts {
		g.stmt(s)
	}
}

func (g *Generator) stmt(s ast.Statement) {
	g.stmtLabel++
	label := g.stmtLabel

	switch s := s.(type) {
	case *ast.DeclStatement:
		g.decl(s.Decl)
	case *ast.ExpressionStatement:
		g.expr(s.Expr)
	case *ast.IfStatement:
		g.write(".if%d:", label)
		g.expr(s.Cond)
		g.write("\tcmpl\t$0, %s", s.Cond.Register())
		g.write("\tje\t.else%d", label)
		g.write(".then%d:", label)
		g.stmt(s.Body)
		g.write("\tjmp\t.endif%d", label)
		g.write(".else%d:", label)
		if s.Else != nil {
			g.stmt(s.Else)
		}
		g.write(".endif%d:", label)
	case *ast.WhileStatement:
		g.write(".while%d:", label)
		g.expr(s.Cond)
		g.write("\tcmpl\t$0, %s", s.Cond.Register())
		g.write("\tje\t.endwhile%d", label)
		g.write(".whilebody%d:", label)
		g.stmt(s.Body)
		g.write("\tjmp\t.while%d", label)
		g.write(".endwhile%d:", label)
	case *ast.ReturnStatement:
		if s.Value != nil {
			g.expr(s.Value)
			g.write("\tmovl\t%s, %%eax", s.Value.Register())
		}
		g.write("\tjmp\t.%sret", g.fnName)
	case *ast.BlockStatement:
		g.stmts(s.Statements)
	case *ast.PrintStatement:
		for _, arg := range s.Args {
			g.expr(arg)
			g.write("\tpushl\t%s", arg.Register())
			g.write("\tcall\tprint_%s", ast.TypeKindOf(arg))
			g.write("\taddl\t$4, %%esp")
		}
		g.write("\tpushl\t$10")
		g.write("\tcall\tprint_char")
		g.write("\taddl\t$4, %%esp")
	}
}

var cmpJumps = map[string]string{
	ast.OpLe: "jle",
	ast.OpLt: "jl",
	ast.OpEq: "je",
	ast.OpNe: "jne",
	ast.OpGt: "jg",
	ast.OpGe: "jge",
}

func (g *Generator) expr(e ast.Expression) {
	g.exprLabel++
	label := g.exprLabel

	switch e := e.(type) {
	case *ast.InfixExpression:
		g.expr(e.Left)
		g.expr(e.Right)
		if jump, ok := cmpJumps[e.Op]; ok {
			g.compare(e, jump, label)
			return
		}
		switch e.Op {
		case ast.OpAnd:
			g.write("\tandl\t%s, %s", e.Right.Register(), e.Left.Register())
		case ast.OpOr:
			g.write("\torl\t%s, %s", e.Right.Register(), e.Left.Register())
		case ast.OpAdd:
			g.write("\taddl\t%s, %s", e.Right.Register(), e.Left.Register())
		case ast.OpSub:
			g.write("\tsubl\t%s, %s", e.Right.Register(), e.Left.Register())
		case ast.OpMul:
			g.write("\timull\t%s, %s", e.Right.Register(), e.Left.Register())
		case ast.OpDiv:
			g.divide(e, "%eax")
		case ast.OpMod:
			g.divide(e, "%edx")
		case ast.OpPow:
			g.write("\tpushl\t%s", e.Right.Register())
			g.write("\tpushl\t%s", e.Left.Register())
			g.write("\tcall\tpower")
			g.write("\taddl\t$8, %%esp")
			g.write("\tmovl\t%%eax, %s", e.Register())
		}
	case *ast.PrefixExpression:
		g.expr(e.Operand)
		switch e.Op {
		case ast.OpNot:
			g.write("\txorl\t$1, %s", e.Operand.Register())
		case ast.OpSub:
			g.write("\tnegl\t%s", e.Operand.Register())
		case ast.OpIncr, ast.OpDecr:
			loc := location(e.Operand.(*ast.Identifier).Symbol)
			g.write("\t%s\t%s", incOp(e.Op), loc)
			g.write("\tmovl\t%s, %s", loc, e.Operand.Register())
		}
	case *ast.PostfixExpression:
		g.expr(e.Operand)
		loc := location(e.Operand.(*ast.Identifier).Symbol)
		g.write("\t%s\t%s", incOp(e.Op), loc)
	case *ast.IntLiteral:
		g.write("\tmovl\t$%d, %s", e.Value, e.Register())
	case *ast.CharLiteral:
		g.write("\tmovl\t$%d, %s", e.Value, e.Register())
	case *ast.BooleanLiteral:
		g.write("\tmovl\t$%d, %s", boolConst(e.Value), e.Register())
	case *ast.StringLiteral:
		id, _ := g.prog.Strings.Lookup(e.Spelling)
		g.write("\tmovl\t$.string%d, %s", id, e.Register())
	case *ast.Identifier:
		g.write("\tmovl\t%s, %s", location(e.Symbol), e.Register())
	case *ast.AssignExpression:
		g.expr(e.Value)
		g.write("\tmovl\t%s, %s", e.Value.Register(), location(e.Symbol))
	case *ast.CallExpression:
		for _, arg := range e.Args {
			g.expr(arg)
		}
		for i := len(e.Args) - 1; i >= 0; i-- {
			g.write("\tpushl\t%s", e.Args[i].Register())
		}
		g.write("\tcall\t%s", e.Name)
		if len(e.Args) > 0 {
			g.write("\taddl\t$%d, %%esp", len(e.Args)*4)
		}
		g.write("\tmovl\t%%eax, %s", e.Register())
	}
}

// compare emits a cmpl and a conditional jump that materializes 0 or 1 in
// the node's register.
func (g *Generator) compare(e *ast.InfixExpression, jump string, label int) {
	g.write(".cmp%d:", label)
	g.write("\tcmpl\t%s, %s", e.Right.Register(), e.Left.Register())
	g.write("\t%s\t.true%d", jump, label)
	g.write(".false%d:", label)
	g.write("\tmovl\t$0, %s", e.Register())
	g.write("\tjmp\t.endcmp%d", label)
	g.write(".true%d:", label)
	g.write("\tmovl\t$1, %s", e.Register())
	g.write(".endcmp%d:", label)
}

// divide emits an idivl against the node's register and moves the quotient
// (EAX) or remainder (EDX) back into it.
func (g *Generator) divide(e *ast.InfixExpression, result string) {
	g.write("\tmovl\t%s, %%eax", e.Left.Register())
	if e.Right.Register() != e.Register() {
		g.write("\tmovl\t%s, %s", e.Right.Register(), e.Register())
	}
	g.write("\tmovl\t$0, %%edx")
	g.write("\tidivl\t%s", e.Register())
	g.write("\tmovl\t%s, %s", result, e.Register())
}

func incOp(op string) string {
	if op == ast.OpIncr {
		return "incl"
	}
	return "decl"
}
