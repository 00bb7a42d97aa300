package resolver

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"blang/pkg/ast"
	"blang/pkg/errors"
	"blang/pkg/lexer"
	"blang/pkg/parser"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, errs := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
	if len(errs) > 0 {
		t.Fatalf("parser error: %s", errs[0])
	}
	return prog
}

func resolve(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog := parseProgram(t, input)
	if err := New(io.Discard, false).Run(prog); err != nil {
		t.Fatalf("resolve error: %s", err)
	}
	return prog
}

func resolveErr(t *testing.T, input string) error {
	t.Helper()
	prog := parseProgram(t, input)
	err := New(io.Discard, false).Run(prog)
	if err == nil {
		t.Fatalf("expected resolve error, got none")
	}
	return err
}

func TestEveryNameGetsASymbol(t *testing.T) {
	prog := resolve(t, `
int g = 1;
int f(int a) { return a + g; }
int main() {
	int x = f(2);
	x = x + 1;
	return x;
}
`)

	// Walk the whole tree: every name-bearing node must carry a symbol whose
	// name matches its own.
	var checkExpr func(e ast.Expression)
	checkExpr = func(e ast.Expression) {
		switch e := e.(type) {
		case *ast.Identifier:
			if e.Symbol == nil || e.Symbol.Name != e.Name {
				t.Errorf("identifier %q has bad symbol %#v", e.Name, e.Symbol)
			}
		case *ast.CallExpression:
			if e.Symbol == nil || e.Symbol.Name != e.Name {
				t.Errorf("call %q has bad symbol %#v", e.Name, e.Symbol)
			}
			for _, a := range e.Args {
				checkExpr(a)
			}
		case *ast.AssignExpression:
			if e.Symbol == nil || e.Symbol.Name != e.Name {
				t.Errorf("assign %q has bad symbol %#v", e.Name, e.Symbol)
			}
			checkExpr(e.Value)
		case *ast.InfixExpression:
			checkExpr(e.Left)
			checkExpr(e.Right)
		case *ast.PrefixExpression:
			checkExpr(e.Operand)
		case *ast.PostfixExpression:
			checkExpr(e.Operand)
		}
	}
	var checkStmt func(s ast.Statement)
	checkStmt = func(s ast.Statement) {
		switch s := s.(type) {
		case *ast.DeclStatement:
			if s.Decl.Symbol == nil {
				t.Errorf("decl %q has no symbol", s.Decl.Name)
			}
			checkExpr(s.Decl.Value)
		case *ast.ExpressionStatement:
			checkExpr(s.Expr)
		case *ast.ReturnStatement:
			checkExpr(s.Value)
		case *ast.BlockStatement:
			for _, inner := range s.Statements {
				checkStmt(inner)
			}
		}
	}
	for _, d := range prog.Decls {
		if d.Symbol == nil {
			t.Fatalf("decl %q has no symbol", d.Name)
		}
		checkExpr(d.Value)
		if d.Body != nil {
			for _, s := range d.Body.Statements {
				checkStmt(s)
			}
		}
	}
}

func TestOffsetsAndLocalCounts(t *testing.T) {
	prog := resolve(t, `
int f(int a, int b) {
	int x = 1;
	if (true) {
		int y = 2;
		return y;
	}
	return x + a + b;
}
`)

	f := prog.Decls[0]
	if f.NumLocals != 2 {
		t.Errorf("num locals wrong. expected=2, got=%d", f.NumLocals)
	}

	offsets := map[string]int{}
	kinds := map[string]ast.SymbolKind{}
	for _, s := range prog.Symbols {
		offsets[s.Name] = s.Offset
		kinds[s.Name] = s.Kind
	}
	if kinds["a"] != ast.SymbolParam || offsets["a"] != 0 {
		t.Errorf("a wrong. kind=%s offset=%d", kinds["a"], offsets["a"])
	}
	if kinds["b"] != ast.SymbolParam || offsets["b"] != 1 {
		t.Errorf("b wrong. kind=%s offset=%d", kinds["b"], offsets["b"])
	}
	if kinds["x"] != ast.SymbolLocal || offsets["x"] != 0 {
		t.Errorf("x wrong. kind=%s offset=%d", kinds["x"], offsets["x"])
	}
	if kinds["y"] != ast.SymbolLocal || offsets["y"] != 1 {
		t.Errorf("y wrong. kind=%s offset=%d", kinds["y"], offsets["y"])
	}
}

func TestLexicalShadowing(t *testing.T) {
	prog := resolve(t, `
int x = 1;
int main() {
	int x = 2;
	return x;
}
`)

	main := prog.Decls[1]
	local := main.Body.Statements[0].(*ast.DeclStatement).Decl.Symbol
	ret := main.Body.Statements[1].(*ast.ReturnStatement)
	use := ret.Value.(*ast.Identifier).Symbol
	if use != local {
		t.Errorf("inner x should resolve to the local, got %s %d", use.Kind, use.Which)
	}
	if local == prog.Decls[0].Symbol {
		t.Errorf("local x and global x should be distinct symbols")
	}
}

func TestForwardDeclaration(t *testing.T) {
	prog := resolve(t, `
int f(int a);
int main() { return f(1); }
int f(int a) { return a; }
`)

	if prog.Decls[0].Symbol != prog.Decls[2].Symbol {
		t.Errorf("forward declaration should reuse the symbol")
	}
	call := prog.Decls[1].Body.Statements[0].(*ast.ReturnStatement).Value.(*ast.CallExpression)
	if call.Symbol != prog.Decls[0].Symbol {
		t.Errorf("call should resolve to the function symbol")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  errors.Kind
	}{
		{`int main() { return x; }`, errors.UndeclaredName},
		{`int main() { y = 1; }`, errors.UndeclaredName},
		{`int x = 1; int x = 2;`, errors.GlobalRedefinition},
		{`int f() { return 0; } int f() { return 1; }`, errors.GlobalRedefinition},
		{`int main() { int a = 1; int a = 2; return a; }`, errors.LocalRedeclaration},
		{`int f(int a) { int a = 1; return a; }`, errors.LocalRedeclaration},
		{`int f(int a) { if (true) { int a = 1; } return a; }`, errors.LocalRedeclaration},
	}

	for i, tt := range tests {
		err := resolveErr(t, tt.input)
		if errors.KindOf(err) != tt.kind {
			t.Errorf("tests[%d] - kind wrong. expected=%s, got=%s (%s)", i, tt.kind, errors.KindOf(err), err)
		}
	}
}

func TestBlockShadowingAllowed(t *testing.T) {
	resolve(t, `
int main() {
	int a = 1;
	if (true) {
		int a = 2;
		print a;
	}
	return a;
}
`)
}

func TestForwardVariableUseFails(t *testing.T) {
	err := resolveErr(t, `int main() { x = 1; return 0; } int x = 2;`)
	if errors.KindOf(err) != errors.UndeclaredName {
		t.Fatalf("kind wrong. expected=%s, got=%s", errors.UndeclaredName, errors.KindOf(err))
	}
}

func TestResolveTrace(t *testing.T) {
	prog := parseProgram(t, `
int g = 1;
int main() {
	int x = g;
	return x;
}
`)
	var out bytes.Buffer
	if err := New(&out, true).Run(prog); err != nil {
		t.Fatalf("resolve error: %s", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	expected := []string{
		"g resolves to global 1",
		"main resolves to global 2",
		"x resolves to local 3",
		"g resolves to global 1",
		"x resolves to local 3",
	}
	if len(lines) != len(expected) {
		t.Fatalf("trace line count wrong. expected=%d, got=%d (%q)", len(expected), len(lines), out.String())
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("trace[%d] wrong. expected=%q, got=%q", i, want, lines[i])
		}
	}
}

func TestStringLiteralsInterned(t *testing.T) {
	prog := resolve(t, `
void main() {
	print "a", "b", "a";
}
`)

	if prog.Strings.Len() != 2 {
		t.Fatalf("string table size wrong. expected=2, got=%d", prog.Strings.Len())
	}
	if id, _ := prog.Strings.Lookup(`"a"`); id != 1 {
		t.Errorf(`"a" id wrong. expected=1, got=%d`, id)
	}
	if id, _ := prog.Strings.Lookup(`"b"`); id != 2 {
		t.Errorf(`"b" id wrong. expected=2, got=%d`, id)
	}
}
