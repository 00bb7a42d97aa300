package parser

import (
	"fmt"

	"blang/pkg/ast"
	"blang/pkg/errors"
	"blang/pkg/lexer"
)

// Parser takes a lexer and builds an AST.
type Parser struct {
	l    *lexer.Lexer
	errs []errors.BlangError

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression // arg is the left side expression
)

// Precedence levels, loosest binding first.
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // =
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	EQUALS      // ==, !=
	LESSGREATER // <, <=, >, >=
	SUM         // +, -
	PRODUCT     // *, /, %
	POWER       // ^ (right-associative)
	PREFIX      // !x, -x, +x, ++x, --x
	POSTFIX     // x++, x--
	CALL        // f(x)
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN: ASSIGNMENT,
	lexer.OR:     LOGICAL_OR,
	lexer.AND:    LOGICAL_AND,
	lexer.EQ:     EQUALS,
	lexer.NE:     EQUALS,
	lexer.LT:     LESSGREATER,
	lexer.LE:     LESSGREATER,
	lexer.GT:     LESSGREATER,
	lexer.GE:     LESSGREATER,
	lexer.ADD:    SUM,
	lexer.SUB:    SUM,
	lexer.MUL:    PRODUCT,
	lexer.DIV:    PRODUCT,
	lexer.MOD:    PRODUCT,
	lexer.POW:    POWER,
	lexer.INCR:   POSTFIX,
	lexer.DECR:   POSTFIX,
	lexer.LPAREN: CALL,
}

// NewParser creates a parser reading from l.
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:          p.parseIdentifier,
		lexer.INT_LITERAL:    p.parseIntLiteral,
		lexer.CHAR_LITERAL:   p.parseCharLiteral,
		lexer.STRING_LITERAL: p.parseStringLiteral,
		lexer.TRUE:           p.parseBooleanLiteral,
		lexer.FALSE:          p.parseBooleanLiteral,
		lexer.NOT:            p.parsePrefixExpression,
		lexer.ADD:            p.parsePrefixExpression,
		lexer.SUB:            p.parsePrefixExpression,
		lexer.INCR:           p.parsePrefixExpression,
		lexer.DECR:           p.parsePrefixExpression,
		lexer.LPAREN:         p.parseGroupedExpression,
	}
	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.OR:     p.parseInfixExpression,
		lexer.AND:    p.parseInfixExpression,
		lexer.EQ:     p.parseInfixExpression,
		lexer.NE:     p.parseInfixExpression,
		lexer.LT:     p.parseInfixExpression,
		lexer.LE:     p.parseInfixExpression,
		lexer.GT:     p.parseInfixExpression,
		lexer.GE:     p.parseInfixExpression,
		lexer.ADD:    p.parseInfixExpression,
		lexer.SUB:    p.parseInfixExpression,
		lexer.MUL:    p.parseInfixExpression,
		lexer.DIV:    p.parseInfixExpression,
		lexer.MOD:    p.parseInfixExpression,
		lexer.POW:    p.parsePowExpression,
		lexer.ASSIGN: p.parseAssignExpression,
		lexer.INCR:   p.parsePostfixExpression,
		lexer.DECR:   p.parsePostfixExpression,
		lexer.LPAREN: p.parseCallExpression,
	}

	// Read two tokens, so curToken and peekToken are both set.
	p.nextToken()
	p.nextToken()
	return p
}

// ParseProgram parses the whole translation unit.
func (p *Parser) ParseProgram() (*ast.Program, []errors.BlangError) {
	var decls []*ast.Decl
	for p.curToken.Type != lexer.EOF && len(p.errs) == 0 {
		d := p.parseDecl()
		if d == nil {
			break
		}
		decls = append(decls, d)
		p.nextToken()
	}
	return ast.NewProgram(decls), p.errs
}

// Errors returns the syntax errors accumulated so far.
func (p *Parser) Errors() []errors.BlangError {
	return p.errs
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.errorf(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...interface{}) {
	p.errs = append(p.errs, &errors.SyntaxError{
		Line:   tok.Line,
		Column: tok.Column,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// --- Declarations ---

func isTypeToken(t lexer.TokenType) bool {
	switch t {
	case lexer.INT, lexer.BOOLEAN, lexer.CHAR, lexer.STRING, lexer.VOID, lexer.VAR:
		return true
	}
	return false
}

func typeKindOfToken(t lexer.TokenType) ast.TypeKind {
	switch t {
	case lexer.INT:
		return ast.TypeInt
	case lexer.BOOLEAN:
		return ast.TypeBoolean
	case lexer.CHAR:
		return ast.TypeChar
	case lexer.STRING:
		return ast.TypeString
	case lexer.VOID:
		return ast.TypeVoid
	}
	// var declares with the unknown type, to be inferred from the initializer.
	return ast.TypeUnknown
}

// parseDecl parses a variable or function declaration. The current token is
// the leading type keyword; on return it is the closing ';' or '}'.
func (p *Parser) parseDecl() *ast.Decl {
	if !isTypeToken(p.curToken.Type) {
		p.errorf(p.curToken, "expected declaration, got %s", p.curToken.Type)
		return nil
	}
	base := typeKindOfToken(p.curToken.Type)
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal

	switch p.peekToken.Type {
	case lexer.LPAREN:
		p.nextToken()
		params, ok := p.parseParams()
		if !ok {
			return nil
		}
		d := &ast.Decl{
			Name: name,
			Type: &ast.Type{Kind: ast.TypeFunction, Params: params, Return: &ast.Type{Kind: base}},
		}
		if p.peekTokenIs(lexer.LBRACE) {
			p.nextToken()
			d.Body = p.parseBlockStatement()
		} else if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return d
	case lexer.ASSIGN:
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return &ast.Decl{Name: name, Type: &ast.Type{Kind: base}, Value: value}
	case lexer.SEMICOLON:
		p.nextToken()
		return &ast.Decl{Name: name, Type: &ast.Type{Kind: base}}
	}
	p.peekError(lexer.SEMICOLON)
	return nil
}

// parseParams parses a parenthesized parameter list. The current token is
// '('; on return it is ')'.
func (p *Parser) parseParams() ([]*ast.Param, bool) {
	var params []*ast.Param
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params, true
	}
	for {
		p.nextToken()
		if !isTypeToken(p.curToken.Type) {
			p.errorf(p.curToken, "expected parameter type, got %s", p.curToken.Type)
			return nil, false
		}
		kind := typeKindOfToken(p.curToken.Type)
		if !p.expectPeek(lexer.IDENT) {
			return nil, false
		}
		params = append(params, &ast.Param{Name: p.curToken.Literal, Type: &ast.Type{Kind: kind}})
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil, false
		}
		return params, true
	}
}

// --- Statements ---

// parseBlockStatement parses a braced statement list. The current token is
// '{'; on return it is '}'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) && len(p.errs) == 0 {
		if s := p.parseStatement(); s != nil {
			block.Statements = append(block.Statements, s)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.INT, lexer.BOOLEAN, lexer.CHAR, lexer.STRING, lexer.VOID, lexer.VAR:
		tok := p.curToken
		d := p.parseDecl()
		if d == nil {
			return nil
		}
		if d.Type.Kind == ast.TypeFunction {
			p.errorf(tok, "functions cannot be declared inside functions")
			return nil
		}
		return &ast.DeclStatement{Decl: d}
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.PRINT:
		return p.parsePrintStatement()
	case lexer.LBRACE:
		return p.parseBlockStatement()
	default:
		expr := p.parseExpression(LOWEST)
		if expr == nil || !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return &ast.ExpressionStatement{Expr: expr}
	}
}

func (p *Parser) parseIfStatement() ast.Statement {
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	body := p.parseStatement()
	s := &ast.IfStatement{Cond: cond, Body: body}
	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		p.nextToken()
		s.Else = p.parseStatement()
	}
	return s
}

func (p *Parser) parseWhileStatement() ast.Statement {
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	return &ast.WhileStatement{Cond: cond, Body: p.parseStatement()}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		return &ast.ReturnStatement{}
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return &ast.ReturnStatement{Value: value}
}

func (p *Parser) parsePrintStatement() ast.Statement {
	s := &ast.PrintStatement{}
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		return s
	}
	for {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		s.Args = append(s.Args, arg)
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return s
	}
}

// --- Expressions ---

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf(p.curToken, "no prefix parse function for %s found", p.curToken.Type)
		return nil
	}
	left := prefix()

	for left != nil && !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Name: p.curToken.Literal}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	value := 0
	for _, c := range p.curToken.Literal {
		value = value*10 + int(c-'0')
	}
	return &ast.IntLiteral{Value: value}
}

func (p *Parser) parseCharLiteral() ast.Expression {
	return &ast.CharLiteral{
		Spelling: p.curToken.Literal,
		Value:    lexer.CharValue(p.curToken.Literal),
	}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Spelling: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	op := p.curToken.Literal
	tok := p.curToken
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	if op == ast.OpIncr || op == ast.OpDecr {
		if _, ok := operand.(*ast.Identifier); !ok {
			p.errorf(tok, "operand of %s must be a variable", op)
			return nil
		}
	}
	return &ast.PrefixExpression{Op: op, Operand: operand}
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	if _, ok := left.(*ast.Identifier); !ok {
		p.errorf(p.curToken, "operand of %s must be a variable", p.curToken.Literal)
		return nil
	}
	return &ast.PostfixExpression{Op: p.curToken.Literal, Operand: left}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	op := p.curToken.Literal
	precedence := precedences[p.curToken.Type]
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.InfixExpression{Op: op, Left: left, Right: right}
}

// parsePowExpression parses '^' right-associatively.
func (p *Parser) parsePowExpression(left ast.Expression) ast.Expression {
	p.nextToken()
	right := p.parseExpression(POWER - 1)
	if right == nil {
		return nil
	}
	return &ast.InfixExpression{Op: ast.OpPow, Left: left, Right: right}
}

// parseAssignExpression parses '=' right-associatively; the target must be a
// plain variable reference.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errorf(p.curToken, "left side of assignment must be a variable")
		return nil
	}
	p.nextToken()
	value := p.parseExpression(ASSIGNMENT - 1)
	if value == nil {
		return nil
	}
	return &ast.AssignExpression{Name: ident.Name, Value: value}
}

func (p *Parser) parseCallExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errorf(p.curToken, "called object must be a function name")
		return nil
	}
	call := &ast.CallExpression{Name: ident.Name}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return call
	}
	for {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
		return call
	}
}
