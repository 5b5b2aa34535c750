package parser

import "fmt"

// SyntaxError is raised whenever the token stream does not match the
// grammar. Like compiler.SyntaxError it carries a line, a column and a
// message, though its Error text is laid out differently.
type SyntaxError struct {
	Line    int32
	Column  int
	Message string
}

func CreateSyntaxError(line int32, column int, message string) SyntaxError {
	return SyntaxError{
		Line:    line,
		Column:  column,
		Message: message,
	}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("💥 Syntax error:\nline:%d, column:%d - %s", e.Line, e.Column, e.Message)
}
