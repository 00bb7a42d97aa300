package allocator

import (
	"io"
	"testing"

	"blang/pkg/ast"
	"blang/pkg/canon"
	"blang/pkg/checker"
	"blang/pkg/errors"
	"blang/pkg/lexer"
	"blang/pkg/parser"
	"blang/pkg/resolver"
)

func prepared(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, errs := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
	if len(errs) > 0 {
		t.Fatalf("parser error: %s", errs[0])
	}
	if err := resolver.New(io.Discard, false).Run(prog); err != nil {
		t.Fatalf("resolve error: %s", err)
	}
	if err := checker.New().Run(prog); err != nil {
		t.Fatalf("typecheck error: %s", err)
	}
	if err := canon.Run(prog); err != nil {
		t.Fatalf("canon error: %s", err)
	}
	return prog
}

func generalReg(r ast.Reg) bool {
	switch r {
	case ast.EBX, ast.ECX, ast.EDX, ast.ESI, ast.EDI:
		return true
	}
	return false
}

func TestEveryValueGetsAGeneralRegister(t *testing.T) {
	prog := prepared(t, `
int f(int n) { return n; }
int main() {
	int x = 1;
	int y = x + 2;
	if (x < y) {
		y = f(x) * 2;
	}
	while (y > 0) {
		y--;
	}
	print y;
	return y;
}
`)
	a := New()
	if err := a.Run(prog); err != nil {
		t.Fatalf("alloc error: %s", err)
	}
	if !a.Live().Empty() {
		t.Fatalf("registers leaked: mask=%b", a.Live())
	}

	var checkExpr func(e ast.Expression)
	checkExpr = func(e ast.Expression) {
		switch e := e.(type) {
		case nil:
			return
		case *ast.InfixExpression:
			checkExpr(e.Left)
			checkExpr(e.Right)
		case *ast.PrefixExpression:
			checkExpr(e.Operand)
		case *ast.PostfixExpression:
			checkExpr(e.Operand)
		case *ast.AssignExpression:
			checkExpr(e.Value)
		case *ast.CallExpression:
			for _, arg := range e.Args {
				checkExpr(arg)
			}
		}
		if !generalReg(e.Register()) {
			t.Errorf("expression %T has register %q", e, e.Register())
		}
	}
	var checkStmt func(s ast.Statement)
	checkStmt = func(s ast.Statement) {
		switch s := s.(type) {
		case *ast.DeclStatement:
			checkExpr(s.Decl.Value)
		case *ast.ExpressionStatement:
			checkExpr(s.Expr)
		case *ast.PrintStatement:
			for _, a := range s.Args {
				checkExpr(a)
			}
		case *ast.ReturnStatement:
			checkExpr(s.Value)
		case *ast.IfStatement:
			checkExpr(s.Cond)
			checkStmt(s.Body)
			checkStmt(s.Else)
		case *ast.WhileStatement:
			checkExpr(s.Cond)
			checkStmt(s.Body)
		case *ast.BlockStatement:
			for _, inner := range s.Statements {
				checkStmt(inner)
			}
		}
	}
	for _, d := range prog.Decls {
		if d.Body != nil {
			for _, s := range d.Body.Statements {
				checkStmt(s)
			}
		}
	}
}

func TestBinaryTakesLeftRegister(t *testing.T) {
	prog := prepared(t, `int main() { int a = 1; int b = 2; return a + b; }`)
	if err := New().Run(prog); err != nil {
		t.Fatalf("alloc error: %s", err)
	}

	body := prog.Decls[0].Body.Statements
	add := body[2].(*ast.ReturnStatement).Value.(*ast.InfixExpression)
	if add.Register() != add.Left.Register() {
		t.Errorf("binary result register wrong. expected=%s, got=%s",
			add.Left.Register(), add.Register())
	}
}

func TestDivideAvoidsEDX(t *testing.T) {
	// In a / (b / c) the inner divisor lands in EDX, which idivl clobbers,
	// so the inner division moves its result to the left operand's register.
	prog := prepared(t, `int f(int a, int b, int c) { return a / (b / c); }`)
	if err := New().Run(prog); err != nil {
		t.Fatalf("alloc error: %s", err)
	}

	outer := prog.Decls[0].Body.Statements[0].(*ast.ReturnStatement).Value.(*ast.InfixExpression)
	inner := outer.Right.(*ast.InfixExpression)
	if inner.Right.Register() != ast.EDX {
		t.Fatalf("test premise wrong: inner divisor got %s", inner.Right.Register())
	}
	if inner.Register() == ast.EDX {
		t.Errorf("division result must not stay in EDX")
	}
	if inner.Register() != inner.Left.Register() {
		t.Errorf("inner division should fall back to its left register, got=%s", inner.Register())
	}
	if outer.Register() == ast.EDX {
		t.Errorf("outer division result must not stay in EDX")
	}
}

func TestFunctionRegisterMask(t *testing.T) {
	prog := prepared(t, `int main() { int a = 1; return a + 2; }`)
	if err := New().Run(prog); err != nil {
		t.Fatalf("alloc error: %s", err)
	}

	main := prog.Decls[0]
	if !main.Regs.Has(ast.EBX) {
		t.Errorf("main should have touched EBX. mask=%b", main.Regs)
	}
	if main.Regs.Has(ast.EDI) {
		t.Errorf("main should not have touched EDI. mask=%b", main.Regs)
	}
}

func TestRegisterPressure(t *testing.T) {
	// Right-nested additions keep every operand live at once; the sixth
	// load has no register left.
	prog := prepared(t, `
int f(int a, int b, int c, int d, int e, int g) {
	return a + (b + (c + (d + (e + g))));
}
`)
	err := New().Run(prog)
	if err == nil {
		t.Fatalf("expected register pressure error, got none")
	}
	if errors.KindOf(err) != errors.RegisterPressure {
		t.Fatalf("kind wrong. expected=%s, got=%s (%s)", errors.RegisterPressure, errors.KindOf(err), err)
	}
}

func TestSixCallArgumentsOverflow(t *testing.T) {
	// Call arguments all hold registers until the spine frees them.
	prog := prepared(t, `
int f(int a, int b, int c, int d, int e, int g) { return a; }
int main() { return f(1, 2, 3, 4, 5, 6); }
`)
	err := New().Run(prog)
	if errors.KindOf(err) != errors.RegisterPressure {
		t.Fatalf("kind wrong. expected=%s, got=%v", errors.RegisterPressure, err)
	}
}

func TestFiveCallArgumentsFit(t *testing.T) {
	prog := prepared(t, `
int f(int a, int b, int c, int d, int e) { return a; }
int main() { return f(1, 2, 3, 4, 5); }
`)
	if err := New().Run(prog); err != nil {
		t.Fatalf("alloc error: %s", err)
	}
}
