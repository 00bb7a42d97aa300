package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"blang/pkg/driver"
	"blang/pkg/source"
)

const helpText = `usage: blang MODE [OPTIONS] [INFILE] [OUTFILE] [ERRFILE]

modes:
 (printed in order - with some exceptions, later modes imply earlier ones)
 -scan:         print list of tokens
 -parse:        parse grammar, output only on error
 -print:        reprint ast to outfile
 -resolve:      resolve symbols and print summary
 -typecheck:    check types for correctness, output only on error
 -canonicalize: modify ast to canonical form and print
 -reduce:       reduce simple expressions and print
 -annotate:     annotate symbols for read/write usage and print summary
 -inline:       inline constant local variables and print
 -prune:        remove dead code from ast and print
 -allocate:     allocate registers to expressions, output only on error
 -generate:     generate assembly code

options:
 -On: cycle through optimization passes (reduce, annotate, inline, prune) n times
      (-O0 is the same as no option: the mode's default round count applies)
`

func usage() {
	fmt.Println(`incorrect invocation - use "blang -help" for usage`)
	os.Exit(1)
}

func main() {
	mode := driver.ModeNone
	cfg := &driver.Config{Out: os.Stdout}
	var in io.Reader = os.Stdin
	inName := ""
	errOut := io.Writer(os.Stderr)

	numArg := 0
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-") {
			if strings.HasPrefix(arg, "-O") {
				n, err := strconv.Atoi(arg[2:])
				if err != nil || n < 0 {
					usage()
				}
				cfg.OptLevel = n
				continue
			}
			m, ok := driver.ParseMode(arg[1:])
			if !ok {
				usage()
			}
			mode = m
			continue
		}
		numArg++
		switch numArg {
		case 1:
			f, err := os.Open(arg)
			if err != nil {
				fatal(os.Stderr, errors.Wrapf(err, "input file '%s' cannot be opened", arg))
			}
			defer f.Close()
			in = f
			inName = arg
		case 2:
			f, err := os.Create(arg)
			if err != nil {
				fatal(os.Stderr, errors.Wrapf(err, "output file '%s' cannot be opened", arg))
			}
			defer f.Close()
			cfg.Out = f
		case 3:
			f, err := os.Create(arg)
			if err != nil {
				fatal(os.Stderr, errors.Wrapf(err, "error file '%s' cannot be opened", arg))
			}
			defer f.Close()
			errOut = f
		}
	}

	switch mode {
	case driver.ModeNone:
		usage()
	case driver.ModeHelp:
		fmt.Print(helpText)
		return
	}

	content, err := io.ReadAll(in)
	if err != nil {
		fatal(errOut, errors.Wrap(err, "cannot read input"))
	}
	var src *source.SourceFile
	if inName != "" {
		src = source.FromFile(inName, string(content))
	} else {
		src = source.NewStdinSource(string(content))
	}

	if err := driver.Run(mode, src, cfg); err != nil {
		fatal(errOut, err)
	}
}

func fatal(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	os.Exit(1)
}
