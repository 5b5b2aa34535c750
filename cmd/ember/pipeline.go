package main

import (
	"fmt"

	"ember/bytecode"
	"ember/compiler"
	"ember/lexer"
	"ember/parser"
)

// compileSource runs the lex/parse/compile pipeline over src, tagging
// pathID into every Function constant the compiler emits (see
// SPEC_FULL.md's PathID plumbing, used later by runtime stack traces).
// Any error returned here belongs to spec.md §7's Syntax class; the
// caller exits 65 rather than 1.
func compileSource(src string, pathID int) (*bytecode.MemorySlice, error) {
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		return nil, fmt.Errorf("lexing error: %w", err)
	}

	p := parser.New(tokens)
	exprs, err := p.Parse()
	if err != nil {
		return nil, err
	}

	c := compiler.New(pathID)
	return c.Compile(exprs)
}
