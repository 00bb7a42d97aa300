package canon

import (
	"blang/pkg/ast"
)

// Run rewrites the tree into canonical form: every variable declaration gets
// a default initializer when the source left it out, and every if/while body
// (and else body) becomes a block. The pass is idempotent.
func Run(prog *ast.Program) error {
	c := &canonicalizer{prog: prog}
	for _, d := range prog.Decls {
		c.decl(d)
	}
	return nil
}

type canonicalizer struct {
	prog *ast.Program
}

func (c *canonicalizer) decl(d *ast.Decl) {
	if d == nil {
		return
	}

	if d.Body != nil {
		c.stmt(d.Body)
	}

	if d.Value != nil {
		return
	}
	switch d.Type.Kind {
	case ast.TypeInt:
		d.Value = &ast.IntLiteral{}
	case ast.TypeChar:
		d.Value = &ast.CharLiteral{Spelling: `'\0'`}
	case ast.TypeBoolean:
		d.Value = &ast.BooleanLiteral{}
	case ast.TypeString:
		d.Value = &ast.StringLiteral{Spelling: `""`}
		c.prog.Strings.Add(`""`)
	}
}

// wrap puts a statement into a block unless it already is one. A nil
// statement (absent else branch) becomes an empty block.
func wrap(s ast.Statement) ast.Statement {
	if block, ok := s.(*ast.BlockStatement); ok {
		return block
	}
	block := &ast.BlockStatement{}
	if s != nil {
		block.Statements = append(block.Statements, s)
	}
	return block
}

func (c *canonicalizer) stmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.DeclStatement:
		c.decl(s.Decl)
	case *ast.IfStatement:
		c.stmt(s.Body)
		c.stmt(s.Else)
		s.Body = wrap(s.Body)
		s.Else = wrap(s.Else)
	case *ast.WhileStatement:
		c.stmt(s.Body)
		s.Body = wrap(s.Body)
	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			c.stmt(inner)
		}
	}
}
