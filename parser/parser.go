// Package parser builds the ember expression AST (package ast) from a
// token stream, using the same recursive-descent shape as the
// teacher's original parser (position-tracking cursor, peek/previous/
// advance/isMatch/consume helpers, a precedence-climbing chain of
// binary-operator levels) generalized to ember's expression-only
// grammar: every construct — assignment, if, when, match, blocks,
// function literals — is parsed as an expression, there is no
// parallel statement hierarchy.
package parser

import (
	"fmt"

	"ember/ast"
	"ember/token"
)

// Parser consumes a flat token stream and produces []ast.Expr.
type Parser struct {
	tokens   []token.Token
	position int
}

// New returns a Parser over tokens (expected to end with an EOF token,
// as produced by lexer.Scan).
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.position]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.position-1]
}

func (p *Parser) isFinished() bool {
	return p.peek().TokenType == token.EOF
}

func (p *Parser) checkType(t token.TokenType) bool {
	if p.isFinished() {
		return t == token.EOF
	}
	return p.peek().TokenType == t
}

func (p *Parser) advance() token.Token {
	if !p.isFinished() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) isMatch(types ...token.TokenType) bool {
	for _, t := range types {
		if p.checkType(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.TokenType, message string) token.Token {
	if p.checkType(t) {
		return p.advance()
	}
	tok := p.peek()
	p.fail(tok, message)
	return tok
}

func (p *Parser) pos(tok token.Token) ast.Position {
	return ast.Position{Line: int(tok.Line), Column: tok.Column}
}

// parseFailure is the panic payload Parse recovers from, following the
// same panic/recover discipline package compiler uses.
type parseFailure struct{ err error }

func (p *Parser) fail(tok token.Token, message string) {
	panic(parseFailure{CreateSyntaxError(tok.Line, tok.Column, message)})
}

// Parse consumes the whole token stream and returns the top-level
// sequence of expressions (a module is just a sequence of expressions,
// the same grammar rule package ast.Block uses for a brace-delimited
// body).
func (p *Parser) Parse() (exprs []ast.Expr, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(parseFailure); ok {
				err = f.err
				return
			}
			panic(r)
		}
	}()

	for !p.isFinished() {
		exprs = append(exprs, p.expression())
	}
	return exprs, nil
}

// exprSequence parses expressions until `end` is reached, without
// consuming it. Used for block bodies: ember has no statement
// terminator, so one expression simply ends where the grammar for the
// next one no longer applies.
func (p *Parser) exprSequence(end token.TokenType) []ast.Expr {
	var exprs []ast.Expr
	for !p.checkType(end) && !p.isFinished() {
		exprs = append(exprs, p.expression())
	}
	return exprs
}

func (p *Parser) expression() ast.Expr {
	return p.assignment()
}

// assignment handles both definitions ("x := expr") and reassignments
// ("x = expr", "obj.attr = expr"), including a leading "mut" marking a
// definition's bindings mutable. Destructuring targets (tuple/list/
// object patterns) are accepted here as plain literal syntax; the
// compiler is responsible for validating that a given Expr is a legal
// assignment target.
func (p *Parser) assignment() ast.Expr {
	mutable := false
	startTok := p.peek()
	startPos := p.position
	if p.isMatch(token.MUT) {
		mutable = true
	}

	left := p.pipeline()

	if p.isMatch(token.DEFINE, token.ASSIGN) {
		isInit := p.previous().TokenType == token.DEFINE
		right := p.assignment()

		if get, ok := left.(ast.Get); ok {
			if mutable {
				p.fail(startTok, "'mut' is not allowed on a property assignment")
			}
			return ast.Set{Inst: get.Inst, Attr: get.Attr, Val: right, Position: p.pos(startTok)}
		}

		return ast.Assign{Left: left, Right: right, Init: isInit, Mutable: mutable, Position: p.pos(startTok)}
	}

	if mutable {
		// Not a definition: re-parse so "mut" prefixes a literal instead.
		p.position = startPos
		return p.pipeline()
	}

	return left
}

// pipeline implements "x |> f" and "x |> f(a, b)" sugar: the
// left-hand value is prepended as the first argument to the call on
// the right, following spec.md §1's "pipe/callback sugar" item.
func (p *Parser) pipeline() ast.Expr {
	left := p.or()

	for p.isMatch(token.PIPE) {
		opTok := p.previous()
		right := p.or()

		call, ok := right.(ast.Call)
		if !ok {
			call = ast.Call{Callee: right, Position: p.pos(opTok)}
		}
		call.Args = append([]ast.CallArg{{Expr: left, Kind: ast.Positional}}, call.Args...)
		left = call
	}
	return left
}

func (p *Parser) or() ast.Expr {
	left := p.and()
	for p.isMatch(token.OR) {
		op := p.previous()
		right := p.and()
		left = ast.Logic{Left: left, Right: right, Operator: op, Position: p.pos(op)}
	}
	return left
}

func (p *Parser) and() ast.Expr {
	left := p.equality()
	for p.isMatch(token.AND) {
		op := p.previous()
		right := p.equality()
		left = ast.Logic{Left: left, Right: right, Operator: op, Position: p.pos(op)}
	}
	return left
}

func (p *Parser) equality() ast.Expr {
	left := p.comparison()
	for p.isMatch(token.EQUAL_EQUAL, token.NOT_EQUAL) {
		op := p.previous()
		right := p.comparison()
		left = ast.Binary{Left: left, Right: right, Operator: op, Position: p.pos(op)}
	}
	return left
}

func (p *Parser) comparison() ast.Expr {
	left := p.term()
	for p.isMatch(token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL) {
		op := p.previous()
		right := p.term()
		left = ast.Binary{Left: left, Right: right, Operator: op, Position: p.pos(op)}
	}
	return left
}

func (p *Parser) term() ast.Expr {
	left := p.factor()
	for p.isMatch(token.ADD, token.SUB) {
		op := p.previous()
		right := p.factor()
		left = ast.Binary{Left: left, Right: right, Operator: op, Position: p.pos(op)}
	}
	return left
}

func (p *Parser) factor() ast.Expr {
	left := p.unary()
	for p.isMatch(token.MULT, token.DIV, token.REM) {
		op := p.previous()
		right := p.unary()
		left = ast.Binary{Left: left, Right: right, Operator: op, Position: p.pos(op)}
	}
	return left
}

func (p *Parser) unary() ast.Expr {
	if p.isMatch(token.BANG, token.SUB) {
		op := p.previous()
		right := p.unary()
		return ast.Unary{Operator: op, Right: right, Position: p.pos(op)}
	}
	return p.callOrAccess()
}

// callOrAccess handles postfix call and property-access chains:
// "f(a, b).0.attr(c)".
func (p *Parser) callOrAccess() ast.Expr {
	expr := p.primary()

	for {
		switch {
		case p.isMatch(token.LPA):
			expr = p.finishCall(expr)
		case p.isMatch(token.DOT):
			dotTok := p.previous()
			attr := p.attribute()
			expr = ast.Get{Inst: expr, Attr: attr, Position: p.pos(dotTok)}
		default:
			return expr
		}
	}
}

// attribute parses exactly one atomic attribute after a ".": a bare
// identifier (compiled in package compiler as a literal field-name
// constant rather than a variable lookup), an integer index, a
// bracketed slice spec, or a parenthesized computed expression. It
// deliberately does not recurse through the full postfix chain, so
// "a.b.c" parses left-associatively as (a.b).c rather than a.(b.c).
func (p *Parser) attribute() ast.Expr {
	tok := p.peek()
	switch {
	case p.checkType(token.LBRK):
		return p.listLiteral()
	case p.isMatch(token.IDENTIFIER):
		return ast.Var{Name: p.previous().Lexeme, Position: p.pos(tok)}
	case p.isMatch(token.INT):
		return ast.Int{Value: p.previous().Literal.(int64), Position: p.pos(tok)}
	case p.isMatch(token.LPA):
		return p.groupOrTuple(tok)
	default:
		p.fail(tok, "expected a property name, index, or slice after '.'")
		return nil
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	openTok := p.previous()
	var args []ast.CallArg

	if !p.checkType(token.RPA) {
		for {
			kind := ast.Positional
			if p.isMatch(token.ELLIPSIS) {
				kind = ast.Unpacking
			}
			argMutable := p.isMatch(token.MUT)
			arg := p.expression()
			args = append(args, ast.CallArg{Expr: arg, Kind: kind, Mutable: argMutable})
			if !p.isMatch(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPA, "expected ')' after call arguments")
	return ast.Call{Callee: callee, Args: args, Position: p.pos(openTok)}
}

func (p *Parser) primary() ast.Expr {
	tok := p.peek()

	switch {
	case p.isMatch(token.INT):
		return ast.Int{Value: p.previous().Literal.(int64), Position: p.pos(tok)}
	case p.isMatch(token.FLOAT):
		return ast.Float{Value: p.previous().Literal.(float64), Position: p.pos(tok)}
	case p.isMatch(token.STRING):
		return ast.Str{Value: p.previous().Literal.(string), Position: p.pos(tok)}
	case p.isMatch(token.ATOM):
		return ast.Atom{Value: p.previous().Literal.(string), Position: p.pos(tok)}
	case p.isMatch(token.TRUE):
		return ast.Bool{Value: true, Position: p.pos(tok)}
	case p.isMatch(token.FALSE):
		return ast.Bool{Value: false, Position: p.pos(tok)}
	case p.isMatch(token.NULL):
		return ast.Nil{Position: p.pos(tok)}
	case p.isMatch(token.UNDERSCORE):
		return ast.Empty{Position: p.pos(tok)}
	case p.isMatch(token.IDENTIFIER):
		return ast.Var{Name: p.previous().Lexeme, Position: p.pos(tok)}
	case p.isMatch(token.LPA):
		return p.groupOrTuple(tok)
	case p.checkType(token.LBRK):
		return p.listLiteral()
	case p.checkType(token.LCUR):
		return p.objOrBlock()
	case p.isMatch(token.MUT):
		return p.mutLiteral(tok)
	case p.isMatch(token.CONST):
		inner := p.unary()
		return ast.Const{Expr: inner, Position: p.pos(tok)}
	case p.isMatch(token.FUNC):
		return p.funcLiteral(tok)
	case p.isMatch(token.IF):
		return p.ifExpr(tok)
	case p.isMatch(token.WHEN):
		return p.whenExpr(tok)
	case p.isMatch(token.MATCH):
		return p.matchExpr(tok)
	case p.isMatch(token.IMPORT):
		return p.importExpr(tok)
	case p.isMatch(token.PANIC):
		inner := p.expression()
		return ast.Panic{Expr: inner, Position: p.pos(tok)}
	case p.isMatch(token.RECOVER):
		return p.recoverExpr(tok)
	}

	p.fail(tok, fmt.Sprintf("unexpected token %q", tok.Lexeme))
	return nil
}

// groupOrTuple disambiguates "(" expr ")" (a Group, used purely to
// override precedence) from "(" expr "," ... ")" (a Tuple literal).
// "()" is the empty tuple.
func (p *Parser) groupOrTuple(openTok token.Token) ast.Expr {
	if p.isMatch(token.RPA) {
		return ast.Tuple{Position: p.pos(openTok)}
	}

	first := p.expression()
	if p.isMatch(token.COMMA) {
		elems := []ast.Expr{first}
		if !p.checkType(token.RPA) {
			for {
				elems = append(elems, p.expression())
				if !p.isMatch(token.COMMA) {
					break
				}
			}
		}
		p.consume(token.RPA, "expected ')' after tuple elements")
		return ast.Tuple{Elems: elems, Position: p.pos(openTok)}
	}

	p.consume(token.RPA, "expected ')' after expression")
	return ast.Group{Inner: first, Position: p.pos(openTok)}
}

func (p *Parser) listLiteral() ast.Expr {
	openTok := p.consume(token.LBRK, "expected '['")
	var elems []ast.Expr
	if !p.checkType(token.RBRK) {
		for {
			elems = append(elems, p.expression())
			if !p.isMatch(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RBRK, "expected ']' after list elements")
	return ast.List{Elems: elems, Position: p.pos(openTok)}
}

// objOrBlock disambiguates an object literal "{ key: val, ... }" from a
// block "{ expr expr ... }" by looking one token past "{": an
// identifier immediately followed by ":" starts an object.
func (p *Parser) objOrBlock() ast.Expr {
	openTok := p.consume(token.LCUR, "expected '{'")

	if p.checkType(token.RCUR) {
		p.advance()
		return ast.Block{Position: p.pos(openTok)}
	}

	if p.checkType(token.IDENTIFIER) && p.position+1 < len(p.tokens) && p.tokens[p.position+1].TokenType == token.COLON {
		var keys []string
		var vals []ast.Expr
		for {
			key := p.consume(token.IDENTIFIER, "expected object key")
			p.consume(token.COLON, "expected ':' after object key")
			val := p.expression()
			keys = append(keys, key.Lexeme)
			vals = append(vals, val)
			if !p.isMatch(token.COMMA) {
				break
			}
		}
		p.consume(token.RCUR, "expected '}' after object fields")
		return ast.Obj{Keys: keys, Vals: vals, Position: p.pos(openTok)}
	}

	exprs := p.exprSequence(token.RCUR)
	p.consume(token.RCUR, "expected '}' after block body")
	return ast.Block{Exprs: exprs, Position: p.pos(openTok)}
}

// mutLiteral parses "mut" immediately followed by a list, object, or
// string literal, turning on that literal's Mutable flag. "mut" as an
// assignment-target prefix is handled separately, in assignment().
func (p *Parser) mutLiteral(mutTok token.Token) ast.Expr {
	inner := p.primary()
	switch v := inner.(type) {
	case ast.List:
		v.Mutable = true
		return v
	case ast.Obj:
		v.Mutable = true
		return v
	case ast.Str:
		v.Mutable = true
		return v
	default:
		p.fail(mutTok, "'mut' may only prefix a list, object, or string literal")
		return nil
	}
}

func (p *Parser) funcLiteral(fnTok token.Token) ast.Expr {
	var name *string
	if p.checkType(token.IDENTIFIER) {
		n := p.advance().Lexeme
		name = &n
	}

	p.consume(token.LPA, "expected '(' after function name")
	var params []ast.Param
	var rest *ast.Param
	if !p.checkType(token.RPA) {
		for {
			if p.isMatch(token.ELLIPSIS) {
				mutable := p.isMatch(token.MUT)
				n := p.consume(token.IDENTIFIER, "expected rest parameter name").Lexeme
				rest = &ast.Param{Name: n, Mutable: mutable}
				break
			}
			mutable := p.isMatch(token.MUT)
			n := p.consume(token.IDENTIFIER, "expected parameter name").Lexeme
			params = append(params, ast.Param{Name: n, Mutable: mutable})
			if !p.isMatch(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPA, "expected ')' after parameters")
	p.consume(token.ASSIGN, "expected '=' before function body")
	body := p.expression()

	return ast.Func{Name: name, Params: params, Rest: rest, Body: body, Position: p.pos(fnTok)}
}

func (p *Parser) ifExpr(ifTok token.Token) ast.Expr {
	cond := p.expression()
	then := p.blockBody()
	var elseExpr ast.Expr
	if p.isMatch(token.ELSE) {
		if p.checkType(token.IF) {
			p.advance()
			elseExpr = p.ifExpr(p.previous())
		} else {
			elseExpr = p.blockBody()
		}
	}
	return ast.If{Cond: cond, Then: then, Else: elseExpr, Position: p.pos(ifTok)}
}

// blockBody requires the next token to start a brace-delimited block,
// used for if/else/recover bodies so e.g. "if cond { ... }" can't be
// confused with a bare trailing expression.
func (p *Parser) blockBody() ast.Expr {
	p.consume(token.LCUR, "expected '{' to start a block")
	p.position--
	return p.objOrBlock()
}

func (p *Parser) whenExpr(whenTok token.Token) ast.Expr {
	var branches []ast.WhenBranch
	for p.isMatch(token.CASE) {
		cond := p.expression()
		p.consume(token.ARROW, "expected '=>' after 'when' case condition")
		body := p.expression()
		branches = append(branches, ast.WhenBranch{Cond: cond, Body: body})
	}
	return ast.When{Branches: branches, Position: p.pos(whenTok)}
}

func (p *Parser) matchExpr(matchTok token.Token) ast.Expr {
	cond := p.expression()
	p.consume(token.WITH, "expected 'with' after match scrutinee")
	var branches []ast.MatchBranch
	for p.isMatch(token.CASE) {
		pattern := p.expression()
		p.consume(token.ARROW, "expected '=>' after match case pattern")
		body := p.expression()
		branches = append(branches, ast.MatchBranch{Case: pattern, Body: body})
	}
	return ast.Match{Cond: cond, Branches: branches, Position: p.pos(matchTok)}
}

// importExpr is reserved syntax: accepted here so the grammar is
// complete, rejected later by package compiler.
func (p *Parser) importExpr(importTok token.Token) ast.Expr {
	var exprs []ast.Expr
	exprs = append(exprs, p.expression())
	for p.isMatch(token.COMMA) {
		exprs = append(exprs, p.expression())
	}
	return ast.Import{Exprs: exprs, Position: p.pos(importTok)}
}

func (p *Parser) recoverExpr(recoverTok token.Token) ast.Expr {
	recoveree := p.expression()
	body := p.blockBody()
	return ast.Recover{Recoveree: recoveree, Body: body, Position: p.pos(recoverTok)}
}
