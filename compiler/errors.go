package compiler

import "fmt"

// SyntaxError is raised for every compile-time failure: malformed
// assignment targets, duplicate locals, arity/size overflows,
// immutable reassignment, and reserved syntax the compiler declines to
// lower. Mirrors the teacher's SemanticError, renamed to match the
// taxonomy spec.md §7 names.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("💥 SyntaxError: %s (line %d, column %d)", e.Message, e.Line, e.Column)
}

// DeveloperError marks a compiler-internal invariant violation — an AST
// shape the parser should never have produced. It is never expected to
// surface outside of development.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}
