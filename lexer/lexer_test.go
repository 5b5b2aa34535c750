package lexer

import (
	"testing"

	"ember/token"
)

// kind is the (type, lexeme, literal) triple this test suite checks;
// Line/Column are intentionally not compared since they are a
// cross-cutting bookkeeping detail exercised separately, not part of
// what any single scan case is about.
type kind struct {
	tokenType token.TokenType
	lexeme    string
	literal   any
}

func scanKinds(t *testing.T, src string) []kind {
	t.Helper()
	toks, err := New(src).Scan()
	if err != nil {
		t.Fatalf("Scan(%q) returned error: %v", src, err)
	}
	out := make([]kind, len(toks))
	for i, tok := range toks {
		out[i] = kind{tok.TokenType, tok.Lexeme, tok.Literal}
	}
	return out
}

func assertKinds(t *testing.T, src string, want []kind) {
	t.Helper()
	got := scanKinds(t, src)
	if len(got) != len(want) {
		t.Fatalf("Scan(%q) = %d tokens %v, want %d tokens %v", src, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scan(%q) token %d = %+v, want %+v", src, i, got[i], want[i])
		}
	}
}

func TestOperators(t *testing.T) {
	assertKinds(t, "== / = * + > - < != <= >= !", []kind{
		{token.EQUAL_EQUAL, "==", nil},
		{token.DIV, "/", nil},
		{token.ASSIGN, "=", nil},
		{token.MULT, "*", nil},
		{token.ADD, "+", nil},
		{token.LARGER, ">", nil},
		{token.SUB, "-", nil},
		{token.LESS, "<", nil},
		{token.NOT_EQUAL, "!=", nil},
		{token.LESS_EQUAL, "<=", nil},
		{token.LARGER_EQUAL, ">=", nil},
		{token.BANG, "!", nil},
		{token.EOF, "", nil},
	})
}

func TestPunctuation(t *testing.T) {
	assertKinds(t, "(){}[],.", []kind{
		{token.LPA, "(", nil},
		{token.RPA, ")", nil},
		{token.LCUR, "{", nil},
		{token.RCUR, "}", nil},
		{token.LBRK, "[", nil},
		{token.RBRK, "]", nil},
		{token.COMMA, ",", nil},
		{token.DOT, ".", nil},
		{token.EOF, "", nil},
	})
}

func TestDefineArrowPipeEllipsis(t *testing.T) {
	assertKinds(t, ": := => |> ...", []kind{
		{token.COLON, ":", nil},
		{token.DEFINE, ":=", nil},
		{token.ARROW, "=>", nil},
		{token.PIPE, "|>", nil},
		{token.ELLIPSIS, "...", nil},
		{token.EOF, "", nil},
	})
}

func TestIntAndFloatLiterals(t *testing.T) {
	assertKinds(t, "42 3.14 0 .5", []kind{
		{token.INT, "42", int64(42)},
		{token.FLOAT, "3.14", 3.14},
		{token.INT, "0", int64(0)},
		{token.FLOAT, ".5", 0.5},
		{token.EOF, "", nil},
	})
}

func TestStringLiteral(t *testing.T) {
	assertKinds(t, `"hello world"`, []kind{
		{token.STRING, "hello world", "hello world"},
		{token.EOF, "", nil},
	})
}

func TestUnclosedStringIsError(t *testing.T) {
	_, err := New(`"oops`).Scan()
	if err == nil {
		t.Fatalf("expected an error for an unclosed string literal")
	}
}

func TestAtomLiteral(t *testing.T) {
	assertKinds(t, ":ok :not_found", []kind{
		{token.ATOM, ":ok", "ok"},
		{token.ATOM, ":not_found", "not_found"},
		{token.EOF, "", nil},
	})
}

func TestIdentifiersAndKeywords(t *testing.T) {
	assertKinds(t, "fn add mut const if else when match with case or and true false nil import panic recover", []kind{
		{token.FUNC, "fn", nil},
		{token.IDENTIFIER, "add", nil},
		{token.MUT, "mut", nil},
		{token.CONST, "const", nil},
		{token.IF, "if", nil},
		{token.ELSE, "else", nil},
		{token.WHEN, "when", nil},
		{token.MATCH, "match", nil},
		{token.WITH, "with", nil},
		{token.CASE, "case", nil},
		{token.OR, "or", nil},
		{token.AND, "and", nil},
		{token.TRUE, "true", nil},
		{token.FALSE, "false", nil},
		{token.NULL, "nil", nil},
		{token.IMPORT, "import", nil},
		{token.PANIC, "panic", nil},
		{token.RECOVER, "recover", nil},
		{token.EOF, "", nil},
	})
}

func TestIdentifierAllowsDigitsAfterFirstChar(t *testing.T) {
	assertKinds(t, "add1 x2y", []kind{
		{token.IDENTIFIER, "add1", nil},
		{token.IDENTIFIER, "x2y", nil},
		{token.EOF, "", nil},
	})
}

func TestWildcardIsDistinctFromIdentifier(t *testing.T) {
	assertKinds(t, "_ _unused", []kind{
		{token.UNDERSCORE, "_", nil},
		{token.IDENTIFIER, "_unused", nil},
		{token.EOF, "", nil},
	})
}

func TestCommentsAreSkipped(t *testing.T) {
	assertKinds(t, "1 # this is a comment\n2", []kind{
		{token.INT, "1", int64(1)},
		{token.INT, "2", int64(2)},
		{token.EOF, "", nil},
	})
}

func TestPropertyDotVsEllipsis(t *testing.T) {
	assertKinds(t, "l.0 ...rest", []kind{
		{token.IDENTIFIER, "l", nil},
		{token.DOT, ".", nil},
		{token.INT, "0", int64(0)},
		{token.ELLIPSIS, "...", nil},
		{token.IDENTIFIER, "rest", nil},
		{token.EOF, "", nil},
	})
}

func TestUnexpectedCharacterIsError(t *testing.T) {
	_, err := New("@").Scan()
	if err == nil {
		t.Fatalf("expected an error for an illegal character")
	}
}
