package driver

import (
	"io"

	"blang/pkg/allocator"
	"blang/pkg/ast"
	"blang/pkg/canon"
	"blang/pkg/checker"
	"blang/pkg/codegen"
	"blang/pkg/errors"
	"blang/pkg/lexer"
	"blang/pkg/optimizer"
	"blang/pkg/parser"
	"blang/pkg/resolver"
	"blang/pkg/source"
)

// Mode selects the pipeline prefix to run.
type Mode int

const (
	ModeNone Mode = iota
	ModeHelp
	ModeScan
	ModeParse
	ModePrint
	ModeResolve
	ModeTypecheck
	ModeCanon
	ModeReduce
	ModeAnnotate
	ModeInline
	ModePrune
	ModeAlloc
	ModeCodegen
)

var modeNames = map[string]Mode{
	"help":         ModeHelp,
	"scan":         ModeScan,
	"parse":        ModeParse,
	"print":        ModePrint,
	"resolve":      ModeResolve,
	"typecheck":    ModeTypecheck,
	"canonicalize": ModeCanon,
	"reduce":       ModeReduce,
	"annotate":     ModeAnnotate,
	"inline":       ModeInline,
	"prune":        ModePrune,
	"allocate":     ModeAlloc,
	"generate":     ModeCodegen,
}

// ParseMode maps a mode name (without the leading dash) to its Mode.
func ParseMode(name string) (Mode, bool) {
	m, ok := modeNames[name]
	return m, ok
}

// Config carries the knobs shared by every pass: the output writer, the
// number of optimization rounds, and the verbose traces. An OptLevel of zero
// selects the mode's default round count (one for -reduce through -prune,
// none for -allocate and -generate), so zero rounds cannot be requested for
// a mode whose default is one.
type Config struct {
	Out           io.Writer
	OptLevel      int
	TraceResolve  bool
	TraceAnnotate bool
}

// A pass reads and mutates the shared tree, or fails with the diagnostic
// that aborts the compilation.
type pass func(*ast.Program, *Config) error

func passResolve(p *ast.Program, cfg *Config) error {
	return resolver.New(cfg.Out, cfg.TraceResolve).Run(p)
}

func passTypecheck(p *ast.Program, _ *Config) error {
	return checker.New().Run(p)
}

func passCanon(p *ast.Program, _ *Config) error {
	return canon.Run(p)
}

func passReduce(p *ast.Program, _ *Config) error {
	return optimizer.Reduce(p)
}

func passAnnotate(p *ast.Program, cfg *Config) error {
	return optimizer.Annotate(p, cfg.Out, cfg.TraceAnnotate)
}

func passInline(p *ast.Program, _ *Config) error {
	return optimizer.Inline(p)
}

func passPrune(p *ast.Program, _ *Config) error {
	return optimizer.Prune(p)
}

func passAlloc(p *ast.Program, _ *Config) error {
	return allocator.New().Run(p)
}

func passCodegen(p *ast.Program, cfg *Config) error {
	return codegen.New(cfg.Out).Run(p)
}

func passPrint(p *ast.Program, cfg *Config) error {
	return ast.Fprint(cfg.Out, p)
}

// pipeline is the pass prefix for a mode plus the half-open index range
// [optBegin, optEnd) repeated OptLevel times, and the round count used when
// no -O option was given.
type pipeline struct {
	passes     []pass
	optBegin   int
	optEnd     int
	defaultOpt int
}

func buildPipeline(mode Mode) pipeline {
	front := []pass{passResolve, passTypecheck, passCanon}
	switch mode {
	case ModePrint:
		return pipeline{passes: []pass{passPrint}, optBegin: -1, optEnd: -1}
	case ModeResolve:
		return pipeline{passes: []pass{passResolve}, optBegin: -1, optEnd: -1}
	case ModeTypecheck:
		return pipeline{passes: []pass{passResolve, passTypecheck}, optBegin: -1, optEnd: -1}
	case ModeCanon:
		return pipeline{passes: append(front, passPrint), optBegin: -1, optEnd: -1}
	case ModeReduce:
		return pipeline{
			passes:   append(front, passReduce, passPrint),
			optBegin: 3, optEnd: 4, defaultOpt: 1,
		}
	case ModeAnnotate:
		return pipeline{
			passes:   append(front, passReduce, passAnnotate),
			optBegin: 3, optEnd: 5, defaultOpt: 1,
		}
	case ModeInline:
		return pipeline{
			passes:   append(front, passReduce, passAnnotate, passInline, passPrint),
			optBegin: 3, optEnd: 6, defaultOpt: 1,
		}
	case ModePrune:
		return pipeline{
			passes:   append(front, passReduce, passAnnotate, passInline, passPrune, passPrint),
			optBegin: 3, optEnd: 7, defaultOpt: 1,
		}
	case ModeAlloc:
		return pipeline{
			passes:   append(front, passReduce, passAnnotate, passInline, passPrune, passAlloc),
			optBegin: 3, optEnd: 7,
		}
	case ModeCodegen:
		return pipeline{
			passes:   append(front, passReduce, passAnnotate, passInline, passPrune, passAlloc, passCodegen),
			optBegin: 3, optEnd: 7,
		}
	}
	return pipeline{optBegin: -1, optEnd: -1}
}

// Run drives src through the pipeline prefix selected by mode. Output goes
// to cfg.Out; the first diagnostic aborts the run and is returned.
func Run(mode Mode, src *source.SourceFile, cfg *Config) error {
	if mode == ModeScan {
		return Scan(src, cfg.Out)
	}
	if mode == ModeResolve {
		cfg.TraceResolve = true
	}
	if mode == ModeAnnotate {
		cfg.TraceAnnotate = true
	}

	prog, errs := parser.NewParser(lexer.NewLexerWithSource(src)).ParseProgram()
	if len(errs) > 0 {
		return errs[0]
	}
	if mode == ModeParse {
		return nil
	}

	pl := buildPipeline(mode)
	opt := cfg.OptLevel
	if opt == 0 {
		opt = pl.defaultOpt
	}

	// Walk the pass list, looping back over the optimization sub-range
	// until the round count is spent.
	i := 0
	for i < len(pl.passes) {
		if i == pl.optBegin && opt == 0 {
			i = pl.optEnd
			continue
		}
		if err := pl.passes[i](prog, cfg); err != nil {
			return err
		}
		i++
		if i == pl.optEnd {
			opt--
			i = pl.optBegin
		}
	}
	return nil
}

// Scan prints the token trace for src, one token per line, with char and
// string literals escape-decoded.
func Scan(src *source.SourceFile, out io.Writer) error {
	l := lexer.NewLexerWithSource(src)
	for tok := l.NextToken(); tok.Type != lexer.EOF; tok = l.NextToken() {
		if tok.Type == lexer.ILLEGAL {
			return &errors.SyntaxError{
				Line:   tok.Line,
				Column: tok.Column,
				Msg:    "illegal character " + tok.Literal,
			}
		}
		printToken(out, tok)
	}
	return nil
}

var tokenTraceNames = map[lexer.TokenType]string{
	lexer.INT_LITERAL: "INT LITERAL",
	lexer.IDENT:       "IDENTIFIER",
	lexer.INT:         "INT",
	lexer.BOOLEAN:     "BOOLEAN",
	lexer.CHAR:        "CHAR",
	lexer.STRING:      "STRING",
	lexer.VOID:        "VOID",
	lexer.VAR:         "VAR",
	lexer.IF:          "IF",
	lexer.ELSE:        "ELSE",
	lexer.PRINT:       "PRINT",
	lexer.RETURN:      "RETURN",
	lexer.WHILE:       "WHILE",
	lexer.SEMICOLON:   "SEMICOLON",
	lexer.COMMA:       "COMMA",
	lexer.LBRACE:      "LEFT BRACE",
	lexer.RBRACE:      "RIGHT BRACE",
	lexer.LPAREN:      "LEFT PAREN",
	lexer.RPAREN:      "RIGHT PAREN",
	lexer.INCR:        "INCR",
	lexer.DECR:        "DECR",
	lexer.POW:         "POW",
	lexer.ADD:         "ADD",
	lexer.SUB:         "SUB",
	lexer.MUL:         "MUL",
	lexer.DIV:         "DIV",
	lexer.MOD:         "MOD",
	lexer.EQ:          "EQ",
	lexer.NE:          "NE",
	lexer.GE:          "GE",
	lexer.LE:          "LE",
	lexer.GT:          "GT",
	lexer.LT:          "LT",
	lexer.AND:         "AND",
	lexer.OR:          "OR",
	lexer.NOT:         "NOT",
	lexer.ASSIGN:      "ASSIGN",
	lexer.TRUE:        "TRUE",
	lexer.FALSE:       "FALSE",
}

func printToken(out io.Writer, tok lexer.Token) {
	switch tok.Type {
	case lexer.STRING_LITERAL:
		io.WriteString(out, "STRING LITERAL "+lexer.FormatString(tok.Literal)+"\n")
	case lexer.CHAR_LITERAL:
		io.WriteString(out, "CHAR LITERAL "+lexer.FormatChar(tok.Literal)+"\n")
	default:
		io.WriteString(out, tokenTraceNames[tok.Type]+"\n")
	}
}
