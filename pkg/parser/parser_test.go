package parser

import (
	"testing"

	"blang/pkg/ast"
	"blang/pkg/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, errs := NewParser(lexer.NewLexer(input)).ParseProgram()
	if len(errs) > 0 {
		t.Fatalf("parser error: %s", errs[0])
	}
	return prog
}

func TestGlobalDeclarations(t *testing.T) {
	prog := parseProgram(t, `
int x = 5;
var y = 2;
boolean flag;
string s = "hi";
int f(int a, char b);
`)

	if len(prog.Decls) != 5 {
		t.Fatalf("decl count wrong. expected=5, got=%d", len(prog.Decls))
	}

	tests := []struct {
		name string
		kind ast.TypeKind
	}{
		{"x", ast.TypeInt},
		{"y", ast.TypeUnknown},
		{"flag", ast.TypeBoolean},
		{"s", ast.TypeString},
		{"f", ast.TypeFunction},
	}
	for i, tt := range tests {
		d := prog.Decls[i]
		if d.Name != tt.name {
			t.Errorf("decls[%d] - name wrong. expected=%q, got=%q", i, tt.name, d.Name)
		}
		if d.Type.Kind != tt.kind {
			t.Errorf("decls[%d] - type wrong. expected=%s, got=%s", i, tt.kind, d.Type.Kind)
		}
	}

	if v, ok := prog.Decls[0].Value.(*ast.IntLiteral); !ok || v.Value != 5 {
		t.Errorf("x initializer wrong. got=%#v", prog.Decls[0].Value)
	}
	if prog.Decls[2].Value != nil {
		t.Errorf("flag should have no initializer, got=%#v", prog.Decls[2].Value)
	}

	f := prog.Decls[4]
	if f.Body != nil {
		t.Fatalf("f should be a prototype, got body %#v", f.Body)
	}
	if len(f.Type.Params) != 2 {
		t.Fatalf("f param count wrong. expected=2, got=%d", len(f.Type.Params))
	}
	if f.Type.Params[0].Name != "a" || f.Type.Params[0].Type.Kind != ast.TypeInt {
		t.Errorf("f params[0] wrong. got=%s %s", f.Type.Params[0].Type.Kind, f.Type.Params[0].Name)
	}
	if f.Type.Params[1].Name != "b" || f.Type.Params[1].Type.Kind != ast.TypeChar {
		t.Errorf("f params[1] wrong. got=%s %s", f.Type.Params[1].Type.Kind, f.Type.Params[1].Name)
	}
	if f.Type.Return.Kind != ast.TypeInt {
		t.Errorf("f return kind wrong. expected=int, got=%s", f.Type.Return.Kind)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	prog := parseProgram(t, `int main() { return 2 * 3 + 4; }`)

	ret := prog.Decls[0].Body.Statements[0].(*ast.ReturnStatement)
	add, ok := ret.Value.(*ast.InfixExpression)
	if !ok || add.Op != ast.OpAdd {
		t.Fatalf("root operator wrong. expected=+, got=%#v", ret.Value)
	}
	mul, ok := add.Left.(*ast.InfixExpression)
	if !ok || mul.Op != ast.OpMul {
		t.Fatalf("left operand wrong. expected 2*3, got=%#v", add.Left)
	}
	if v, ok := add.Right.(*ast.IntLiteral); !ok || v.Value != 4 {
		t.Fatalf("right operand wrong. expected 4, got=%#v", add.Right)
	}
}

func TestPowRightAssociative(t *testing.T) {
	prog := parseProgram(t, `int main() { return 2 ^ 3 ^ 4; }`)

	ret := prog.Decls[0].Body.Statements[0].(*ast.ReturnStatement)
	outer := ret.Value.(*ast.InfixExpression)
	if outer.Op != ast.OpPow {
		t.Fatalf("root operator wrong. expected=^, got=%q", outer.Op)
	}
	if _, ok := outer.Left.(*ast.IntLiteral); !ok {
		t.Fatalf("pow should be right-associative, left=%#v", outer.Left)
	}
	inner, ok := outer.Right.(*ast.InfixExpression)
	if !ok || inner.Op != ast.OpPow {
		t.Fatalf("pow should be right-associative, right=%#v", outer.Right)
	}
}

func TestStatementForms(t *testing.T) {
	prog := parseProgram(t, `
void main() {
	int i = 0;
	while (i < 10) i++;
	if (i == 10) { print "done"; } else print i;
	f(i, 'x');
	return;
}
void f(int a, char b) { }
`)

	body := prog.Decls[0].Body.Statements
	if len(body) != 5 {
		t.Fatalf("statement count wrong. expected=5, got=%d", len(body))
	}

	if _, ok := body[0].(*ast.DeclStatement); !ok {
		t.Errorf("body[0] wrong type. got=%T", body[0])
	}

	w, ok := body[1].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("body[1] wrong type. got=%T", body[1])
	}
	// A single-statement body stays unwrapped until canonicalization.
	if _, ok := w.Body.(*ast.ExpressionStatement); !ok {
		t.Errorf("while body wrong type. got=%T", w.Body)
	}

	ifs, ok := body[2].(*ast.IfStatement)
	if !ok {
		t.Fatalf("body[2] wrong type. got=%T", body[2])
	}
	if _, ok := ifs.Body.(*ast.BlockStatement); !ok {
		t.Errorf("if body wrong type. got=%T", ifs.Body)
	}
	if _, ok := ifs.Else.(*ast.PrintStatement); !ok {
		t.Errorf("else body wrong type. got=%T", ifs.Else)
	}

	es, ok := body[3].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("body[3] wrong type. got=%T", body[3])
	}
	call, ok := es.Expr.(*ast.CallExpression)
	if !ok || call.Name != "f" || len(call.Args) != 2 {
		t.Fatalf("call wrong. got=%#v", es.Expr)
	}
	if c, ok := call.Args[1].(*ast.CharLiteral); !ok || c.Value != 'x' || c.Spelling != "'x'" {
		t.Errorf("char argument wrong. got=%#v", call.Args[1])
	}

	ret, ok := body[4].(*ast.ReturnStatement)
	if !ok || ret.Value != nil {
		t.Fatalf("body[4] wrong. got=%#v", body[4])
	}
}

func TestAssignmentTarget(t *testing.T) {
	prog := parseProgram(t, `void main() { x = y = 1; }`)

	es := prog.Decls[0].Body.Statements[0].(*ast.ExpressionStatement)
	outer, ok := es.Expr.(*ast.AssignExpression)
	if !ok || outer.Name != "x" {
		t.Fatalf("outer assign wrong. got=%#v", es.Expr)
	}
	inner, ok := outer.Value.(*ast.AssignExpression)
	if !ok || inner.Name != "y" {
		t.Fatalf("assignment should be right-associative. got=%#v", outer.Value)
	}

	_, errs := NewParser(lexer.NewLexer(`void main() { 1 = 2; }`)).ParseProgram()
	if len(errs) == 0 {
		t.Fatalf("expected syntax error for literal assignment target")
	}
}

func TestPrefixPostfix(t *testing.T) {
	prog := parseProgram(t, `void main() { ++x; x--; y = -x + !b; }`)

	body := prog.Decls[0].Body.Statements

	pre := body[0].(*ast.ExpressionStatement).Expr.(*ast.PrefixExpression)
	if pre.Op != ast.OpIncr {
		t.Errorf("prefix op wrong. expected=++, got=%q", pre.Op)
	}
	post := body[1].(*ast.ExpressionStatement).Expr.(*ast.PostfixExpression)
	if post.Op != ast.OpDecr {
		t.Errorf("postfix op wrong. expected=--, got=%q", post.Op)
	}

	assign := body[2].(*ast.ExpressionStatement).Expr.(*ast.AssignExpression)
	add := assign.Value.(*ast.InfixExpression)
	if _, ok := add.Left.(*ast.PrefixExpression); !ok {
		t.Errorf("add left wrong type. got=%T", add.Left)
	}
	if not, ok := add.Right.(*ast.PrefixExpression); !ok || not.Op != ast.OpNot {
		t.Errorf("add right wrong. got=%#v", add.Right)
	}
}

func TestIncrementRequiresVariable(t *testing.T) {
	_, errs := NewParser(lexer.NewLexer(`void main() { 5++; }`)).ParseProgram()
	if len(errs) == 0 {
		t.Fatalf("expected syntax error for literal increment")
	}
}
