// Package compiler lowers the expression AST built by package parser
// into a bytecode.MemorySlice, following spec.md §4.4. It is grounded
// on the teacher's compiler/ast_compiler.go (panic-driven error
// propagation caught at the top-level Compile call, an emit/patchJump
// helper pair, a locals-table-with-scope-depth discipline) generalized
// from the teacher's small statement/expression split to the richer
// expression-only grammar, with the back-patching and destructuring
// algorithms themselves grounded on original_source/src/compiler/mod.rs.
package compiler

import (
	"ember/ast"
	"ember/bytecode"
	"ember/token"
	"ember/value"
)

// Compiler walks a sequence of ast.Expr and emits a bytecode.MemorySlice.
// One Compiler compiles one source unit (one PathID).
type Compiler struct {
	slice      *bytecode.MemorySlice
	locals     []local
	scopeDepth int
	pathID     int
}

// New returns a compiler for the source identified by pathID (used to
// stamp Function values so runtime stack traces can name the right
// source file; see SPEC_FULL.md's PathID plumbing).
func New(pathID int) *Compiler {
	return &Compiler{slice: bytecode.New(), pathID: pathID}
}

// compileFailure is the panic payload Compile recovers from; it is
// always a SyntaxError or DeveloperError.
type compileFailure struct{ err error }

func (c *Compiler) fail(err error) {
	panic(compileFailure{err})
}

// Compile lowers exprs (one source unit's top-level expressions) into
// a bytecode.MemorySlice. Per spec.md §4.4, each top-level expression's
// value is discarded (Pop) and the stream is terminated with Halt.
func (c *Compiler) Compile(exprs []ast.Expr) (slice *bytecode.MemorySlice, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(compileFailure); ok {
				err = f.err
				return
			}
			panic(r)
		}
	}()

	for _, e := range exprs {
		c.compileExpr(e)
		c.emitOp(bytecode.Pop, e.Pos())
	}
	c.emitOp(bytecode.Halt, ast.Position{})
	return c.slice, nil
}

func (c *Compiler) compileExpr(e ast.Expr) {
	e.Accept(c)
}

// --- low level emission helpers ----------------------------------------

func (c *Compiler) emitOp(op bytecode.Op, pos ast.Position) int {
	return c.slice.WriteOp(op, pos.Line, pos.Column)
}

func (c *Compiler) emitByte(b byte, pos ast.Position) int {
	return c.slice.WriteByte(b, pos.Line, pos.Column)
}

func (c *Compiler) emitBool(b bool, pos ast.Position) int {
	if b {
		return c.emitByte(1, pos)
	}
	return c.emitByte(0, pos)
}

// emitJumpPlaceholder writes op followed by a 16-bit placeholder and
// returns the offset of the placeholder, for a later patchJump16.
func (c *Compiler) emitJumpPlaceholder(op bytecode.Op, pos ast.Position) int {
	c.emitOp(op, pos)
	return c.slice.WriteLE16(0xFFFF, pos.Line, pos.Column)
}

// patchJump16 fills in a 16-bit forward jump so it lands on the current
// write position.
func (c *Compiler) patchJump16(placeholder int, msg string, pos ast.Position) {
	dist := len(c.slice.Instructions) - (placeholder + 2)
	if dist > 0xFFFF {
		c.fail(SyntaxError{Message: msg, Line: pos.Line, Column: pos.Column})
	}
	c.slice.PatchLE16(placeholder, uint16(dist))
}

// emitLongJumpPlaceholder writes op followed by a 32-bit placeholder.
func (c *Compiler) emitLongJumpPlaceholder(op bytecode.Op, pos ast.Position) int {
	c.emitOp(op, pos)
	return c.slice.WriteLE32(0xFFFFFFFF, pos.Line, pos.Column)
}

func (c *Compiler) patchJump32(placeholder int, msg string, pos ast.Position) {
	dist := len(c.slice.Instructions) - (placeholder + 4)
	if dist < 0 || uint64(dist) > 0xFFFFFFFF {
		c.fail(SyntaxError{Message: msg, Line: pos.Line, Column: pos.Column})
	}
	c.slice.PatchLE32(placeholder, uint32(dist))
}

func (c *Compiler) addConst(v value.Value, pos ast.Position) {
	idx := c.slice.AddConst(v)
	c.emitLoadConst(idx, pos)
}

func (c *Compiler) emitLoadConst(idx int, pos ast.Position) {
	if idx <= 255 {
		c.emitOp(bytecode.LoadConst, pos)
		c.emitByte(byte(idx), pos)
		return
	}
	c.emitOp(bytecode.LoadLongConst, pos)
	c.slice.WriteLE16(uint16(idx), pos.Line, pos.Column)
}

func (c *Compiler) addVarConst(name string, pos ast.Position) {
	idx := c.slice.AddConst(value.VarName{Name: name})
	c.emitLoadConst(idx, pos)
}

// --- Visitor -------------------------------------------------------------

var _ ast.Visitor = (*Compiler)(nil)

func (c *Compiler) VisitBinary(e ast.Binary) any {
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	switch e.Operator.TokenType {
	case token.ADD:
		c.emitOp(bytecode.Add, e.Position)
	case token.SUB:
		c.emitOp(bytecode.Sub, e.Position)
	case token.MULT:
		c.emitOp(bytecode.Mult, e.Position)
	case token.DIV:
		c.emitOp(bytecode.Div, e.Position)
	case token.REM:
		c.emitOp(bytecode.Rem, e.Position)
	case token.EQUAL_EQUAL:
		c.emitOp(bytecode.Equal, e.Position)
	case token.NOT_EQUAL:
		c.emitOp(bytecode.NotEqual, e.Position)
	case token.LARGER:
		c.emitOp(bytecode.GT, e.Position)
	case token.LESS:
		c.emitOp(bytecode.LT, e.Position)
	case token.LARGER_EQUAL:
		c.emitOp(bytecode.GTEq, e.Position)
	case token.LESS_EQUAL:
		c.emitOp(bytecode.LTEq, e.Position)
	default:
		c.fail(DeveloperError{Message: "unknown binary operator " + string(e.Operator.TokenType)})
	}
	return nil
}

func (c *Compiler) VisitGroup(e ast.Group) any {
	c.compileExpr(e.Inner)
	return nil
}

func (c *Compiler) VisitUnary(e ast.Unary) any {
	c.compileExpr(e.Right)
	if e.Operator.TokenType == token.BANG {
		c.emitOp(bytecode.NegateBool, e.Position)
	} else {
		c.emitOp(bytecode.Negate, e.Position)
	}
	return nil
}

func (c *Compiler) VisitLogic(e ast.Logic) any {
	// Deliberately non-short-circuiting: both operands are always
	// compiled and evaluated (spec.md §9).
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	if e.Operator.TokenType == token.AND {
		c.emitOp(bytecode.And, e.Position)
	} else {
		c.emitOp(bytecode.Or, e.Position)
	}
	return nil
}

func (c *Compiler) VisitVar(e ast.Var) any {
	if c.scopeDepth != 0 {
		if idx := c.resolveLocal(e.Name, true, false, e.Position.Line, e.Position.Column); idx != -1 {
			c.emitOp(bytecode.GetLocal, e.Position)
			c.emitByte(byte(idx), e.Position)
			return nil
		}
	}
	c.addVarConst(e.Name, e.Position)
	c.emitOp(bytecode.GetGlobal, e.Position)
	return nil
}

func (c *Compiler) VisitAssign(e ast.Assign) any {
	pos := e.Position
	if c.scopeDepth == 0 {
		c.compileGlobalAssign(e, pos)
		return nil
	}
	if e.Init {
		c.compileLocalDefine(e, pos)
	} else {
		c.compileLocalReassign(e, pos)
	}
	return nil
}

func (c *Compiler) compileGlobalAssign(e ast.Assign, pos ast.Position) {
	compileTarget := func(expr ast.Expr) {
		switch t := expr.(type) {
		case ast.Var:
			c.addVarConst(t.Name, t.Position)
		case ast.Empty:
			c.emitOp(bytecode.LoadEmpty, t.Position)
		default:
			c.fail(DeveloperError{Message: "invalid global assignment target"})
		}
	}
	switch t := e.Left.(type) {
	case ast.Var:
		c.addVarConst(t.Name, t.Position)
	case ast.Tuple:
		c.compileTuplePattern(t, compileTarget)
	case ast.List:
		c.compileListPattern(t, compileTarget)
	case ast.Obj:
		c.compileObjPattern(t, compileTarget)
	default:
		c.fail(SyntaxError{Message: "invalid assignment target", Line: pos.Line, Column: pos.Column})
	}

	c.compileExpr(e.Right)

	// DefGlobal/SetGlobal pop (pattern, value) and recurse through the
	// pattern at runtime binding each VarName leaf — see vm's
	// define-or-set dispatch (spec.md §4.6 Globals).
	if e.Init {
		c.emitOp(bytecode.DefGlobal, pos)
		c.emitBool(e.Mutable, pos)
	} else {
		c.emitOp(bytecode.SetGlobal, pos)
	}
}

func (c *Compiler) compileLocalDefine(e ast.Assign, pos ast.Position) {
	c.checkLocal(e.Left)

	// Object-destructuring definitions are compiled separately, with a
	// deterministic per-key descriptor, rather than through the generic
	// pattern-value/DefLocal path below (see compileObjDefine).
	if obj, ok := e.Left.(ast.Obj); ok {
		c.compileObjDefine(obj, e.Right, e.Mutable, pos)
		return
	}

	// Destructured elements inherit the enclosing assignment's mutable
	// flag (the surface grammar has one "mut" qualifier per pattern, not
	// per element).
	compileTarget := func(expr ast.Expr) {
		switch t := expr.(type) {
		case ast.Var:
			c.addVarConst(t.Name, t.Position)
			c.addLocal(t.Name, e.Mutable)
		case ast.Empty:
			c.emitOp(bytecode.LoadEmpty, t.Position)
		default:
			c.fail(DeveloperError{Message: "invalid local assignment target"})
		}
	}

	switch t := e.Left.(type) {
	case ast.Var:
		c.addVarConst(t.Name, t.Position)
		c.addLocal(t.Name, e.Mutable)
	case ast.Tuple:
		c.compileTuplePattern(t, compileTarget)
	case ast.List:
		c.compileListPattern(t, compileTarget)
	default:
		c.fail(SyntaxError{Message: "invalid assignment target", Line: pos.Line, Column: pos.Column})
	}

	c.compileExpr(e.Right)
	// DefLocal pops (pattern, value) and recurses, pushing each bound
	// leaf onto the frame's slots in pattern order (vm's define-or-set
	// dispatch with a slot-push definer instead of a map insert).
	c.emitOp(bytecode.DefLocal, pos)
}

// compileObjDefine binds a local object-destructuring definition
// ("{a: x, b: y} := obj") using the same deterministic per-key
// descriptor opSetLocalObj already uses for reassignment (DefLocalObj,
// vm/setlocal.go), instead of building a runtime value.Object pattern
// and routing it through DefLocal's generic bindPattern walk. A
// value.Object's Fields is a Go map, so walking it at runtime binds
// names in randomized order, while addLocal below assigns each bound
// name a fixed slot in source order — a map-order walk would silently
// cross-bind locals between runs.
func (c *Compiler) compileObjDefine(o ast.Obj, rhs ast.Expr, mutable bool, pos ast.Position) {
	if len(o.Keys) > 255 {
		c.fail(SyntaxError{Message: "object literal too big", Line: o.Position.Line, Column: o.Position.Column})
	}

	c.compileExpr(rhs)
	for _, k := range o.Keys {
		c.addVarConst(k, o.Position)
	}

	c.emitOp(bytecode.DefLocalObj, pos)
	c.emitByte(byte(len(o.Keys)), pos)

	for _, v := range o.Vals {
		switch t := v.(type) {
		case ast.Var:
			c.emitByte(1, t.Position)
			c.addLocal(t.Name, mutable)
		case ast.Empty:
			c.emitByte(0, t.Position)
		default:
			c.fail(DeveloperError{Message: "invalid local object-destructuring target"})
		}
	}
}

func (c *Compiler) compileLocalReassign(e ast.Assign, pos ast.Position) {
	c.compileExpr(e.Right)

	compileDescriptor := func(expr ast.Expr) {
		switch t := expr.(type) {
		case ast.Var:
			idx := c.resolveLocal(t.Name, false, true, t.Position.Line, t.Position.Column)
			c.emitByte(1, t.Position)
			c.emitByte(byte(idx), t.Position)
		case ast.Empty:
			c.emitByte(0, t.Position)
			c.emitByte(0, t.Position)
		default:
			c.fail(DeveloperError{Message: "invalid reassignment target"})
		}
	}

	switch t := e.Left.(type) {
	case ast.Var:
		idx := c.resolveLocal(t.Name, false, true, t.Position.Line, t.Position.Column)
		c.emitOp(bytecode.SetLocalVar, pos)
		c.emitByte(byte(idx), pos)
	case ast.Tuple:
		c.emitOp(bytecode.SetLocalTup, pos)
		c.compileTupleTarget(t, compileDescriptor)
	case ast.List:
		c.emitOp(bytecode.SetLocalList, pos)
		c.compileListTarget(t, compileDescriptor)
	case ast.Obj:
		if len(t.Keys) > 255 {
			c.fail(SyntaxError{Message: "object literal too big", Line: pos.Line, Column: pos.Column})
		}
		for _, k := range t.Keys {
			c.addVarConst(k, pos)
		}
		c.emitOp(bytecode.SetLocalObj, pos)
		c.emitByte(byte(len(t.Keys)), pos)
		for _, v := range t.Vals {
			switch tv := v.(type) {
			case ast.Var:
				idx := c.resolveLocal(tv.Name, false, true, tv.Position.Line, tv.Position.Column)
				c.emitByte(byte(idx), tv.Position)
			case ast.Empty:
				c.fail(SyntaxError{Message: "wildcard is not allowed in an object reassignment pattern", Line: tv.Position.Line, Column: tv.Position.Column})
			default:
				c.fail(DeveloperError{Message: "invalid object reassignment target"})
			}
		}
	default:
		c.fail(SyntaxError{Message: "invalid assignment target", Line: pos.Line, Column: pos.Column})
	}
}

// compileTupleTarget/compileListTarget/compileObjTarget mirror the
// literal-compilation helpers below but apply fn to each element
// instead of compiling it as a value-producing expression; used for
// both definition (fn registers locals) and reassignment (fn emits
// descriptor bytes).

func (c *Compiler) compileTupleTarget(t ast.Tuple, fn func(ast.Expr)) {
	if len(t.Elems) > 255 {
		c.fail(SyntaxError{Message: "tuple literal too big", Line: t.Position.Line, Column: t.Position.Column})
	}
	for _, e := range t.Elems {
		fn(e)
	}
}

func (c *Compiler) compileListTarget(l ast.List, fn func(ast.Expr)) {
	if len(l.Elems) > 255 {
		c.fail(SyntaxError{Message: "list literal too big", Line: l.Position.Line, Column: l.Position.Column})
	}
	for _, e := range l.Elems {
		fn(e)
	}
}

func (c *Compiler) compileObjTarget(o ast.Obj, fn func(ast.Expr)) {
	if len(o.Keys) > 255 {
		c.fail(SyntaxError{Message: "object literal too big", Line: o.Position.Line, Column: o.Position.Column})
	}
	for _, v := range o.Vals {
		fn(v)
	}
}

// compileTuplePattern/compileListPattern/compileObjPattern build the
// runtime pattern value a definition's DefGlobal/DefLocal consumes
// alongside the right-hand value: each leaf is a VarName (or LoadEmpty
// for a wildcard), assembled into an actual Tuple/List/Object via
// InitTup/InitList/InitObj, the same way the equivalent literal would
// be built. The VM then recurses through that constructed pattern to
// bind each name (see vm's define-or-set dispatch).
func (c *Compiler) compileTuplePattern(t ast.Tuple, fn func(ast.Expr)) {
	c.compileTupleTarget(t, fn)
	c.emitOp(bytecode.InitTup, t.Position)
	c.emitByte(byte(len(t.Elems)), t.Position)
}

func (c *Compiler) compileListPattern(l ast.List, fn func(ast.Expr)) {
	c.compileListTarget(l, fn)
	c.emitOp(bytecode.InitList, l.Position)
	c.emitByte(byte(len(l.Elems)), l.Position)
	c.emitBool(l.Mutable, l.Position)
}

func (c *Compiler) compileObjPattern(o ast.Obj, fn func(ast.Expr)) {
	if len(o.Keys) > 255 {
		c.fail(SyntaxError{Message: "object literal too big", Line: o.Position.Line, Column: o.Position.Column})
	}
	for i, v := range o.Vals {
		fn(v)
		c.addVarConst(o.Keys[i], o.Position)
	}
	c.emitOp(bytecode.InitObj, o.Position)
	c.emitByte(byte(len(o.Keys)), o.Position)
	c.emitBool(o.Mutable, o.Position)
}

func (c *Compiler) VisitCall(e ast.Call) any {
	if len(e.Args) > 255 {
		c.fail(SyntaxError{Message: "too many arguments", Line: e.Position.Line, Column: e.Position.Column})
	}
	c.compileExpr(e.Callee)
	for _, a := range e.Args {
		if a.Kind == ast.Unpacking {
			c.fail(SyntaxError{Message: "unpacking call arguments are not implemented", Line: e.Position.Line, Column: e.Position.Column})
		}
		c.compileExpr(a.Expr)
	}
	c.emitOp(bytecode.CallFn, e.Position)
	c.emitByte(byte(len(e.Args)), e.Position)
	return nil
}

// compileAttr compiles a Get/Set attribute. A bare name (obj.foo) names
// an object field and is loaded the same way an assignment-pattern
// leaf or object-literal key is: as a VarName constant, never as a
// variable lookup (ast.Var is reused for both "a name" and "a
// reference to a name", disambiguated by position, exactly as
// compileGlobalAssign/compileLocalDefine's target compilation already
// does). Any other attribute expression (an Int index, a List used as
// a 0/1/2-element slice spec, or a parenthesized computed expression)
// compiles as an ordinary value-producing expression.
func (c *Compiler) compileAttr(attr ast.Expr) {
	if v, ok := attr.(ast.Var); ok {
		c.addVarConst(v.Name, v.Position)
		return
	}
	c.compileExpr(attr)
}

func (c *Compiler) VisitGet(e ast.Get) any {
	c.compileExpr(e.Inst)
	c.compileAttr(e.Attr)
	c.emitOp(bytecode.GetProperty, e.Position)
	return nil
}

func (c *Compiler) VisitSet(e ast.Set) any {
	c.compileExpr(e.Inst)
	c.compileAttr(e.Attr)
	c.compileExpr(e.Val)
	c.emitOp(bytecode.SetProperty, e.Position)
	return nil
}

func (c *Compiler) VisitFunc(e ast.Func) any {
	pos := e.Position
	if len(e.Params) > 255 {
		c.fail(SyntaxError{Message: "too many parameters", Line: pos.Line, Column: pos.Column})
	}

	hasName := e.Name != nil
	if hasName {
		c.addVarConst(*e.Name, pos)
		if c.scopeDepth != 0 {
			c.addLocal(*e.Name, true)
		}
	}

	fn := value.Function{Ref: &value.FunctionData{
		Name:    nameOrEmpty(e.Name),
		Arity:   len(e.Params),
		HasRest: e.Rest != nil,
		PathID:  c.pathID,
	}}
	// SetFnAddr peeks (does not pop) the function value just loaded, so
	// it and the preceding VarName (if any) remain on the stack for the
	// DefGlobal/DefLocal emitted after the body.
	c.addConst(fn, pos)
	c.emitOp(bytecode.SetFnAddr, pos)

	placeholder := c.emitLongJumpPlaceholder(bytecode.LongJump, pos)
	c.beginScope()
	for _, p := range e.Params {
		c.addLocal(p.Name, p.Mutable)
	}
	if e.Rest != nil {
		c.addLocal(e.Rest.Name, e.Rest.Mutable)
	}
	c.compileExpr(e.Body)
	c.emitPopExcept(c.endScope(), pos)
	c.emitOp(bytecode.RetFn, pos)
	c.patchJump32(placeholder, "function too big", pos)

	if hasName {
		if c.scopeDepth == 0 {
			c.emitOp(bytecode.DefGlobal, pos)
			c.emitBool(true, pos)
		} else {
			c.emitOp(bytecode.DefLocal, pos)
		}
	}
	return nil
}

func nameOrEmpty(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}

func (c *Compiler) VisitMatch(e ast.Match) any {
	c.compileMatchBranch(e.Cond, e.Branches, e.Position)
	return nil
}

// compileMatchBranch compiles one branch of a match chain and
// recursively compiles the remainder, following the scrutinee-case-body
// layout in spec.md §4.4/§4.6: the scrutinee is compiled once (cond !=
// nil only on the first call), each branch's pattern ("case") is an
// ordinary compiled expression, and the VM's Match opcode does the
// structural comparison at runtime.
func (c *Compiler) compileMatchBranch(cond ast.Expr, branches []ast.MatchBranch, pos ast.Position) {
	branch := branches[0]
	rest := branches[1:]

	if cond != nil {
		c.compileExpr(cond)
	}
	c.compileExpr(branch.Case)

	placeholder := c.emitLongJumpPlaceholder(bytecode.Match, pos)
	c.emitBool(len(rest) != 0, pos)
	c.compileExpr(branch.Body)
	c.patchJump32(placeholder, "the match branch is too big", pos)

	if len(rest) != 0 {
		nextPlaceholder := c.emitLongJumpPlaceholder(bytecode.LongJump, pos)
		c.compileMatchBranch(nil, rest, pos)
		c.patchJump32(nextPlaceholder, "the whole match expression is too big", pos)
	}
}

func (c *Compiler) VisitIf(e ast.If) any {
	pos := e.Position
	c.compileExpr(e.Cond)

	jumpIfFalse := c.emitJumpPlaceholder(bytecode.JumpIfFalse, pos)
	c.compileExpr(e.Then)
	jumpEnd := c.emitJumpPlaceholder(bytecode.Jump, pos)
	c.patchJump16(jumpIfFalse, "if expression is too big", pos)

	if e.Else != nil {
		c.compileExpr(e.Else)
	} else {
		c.emitOp(bytecode.LoadNil, pos)
	}
	c.patchJump16(jumpEnd, "if expression is too big", pos)
	return nil
}

func (c *Compiler) VisitWhen(e ast.When) any {
	c.compileWhenBranch(e.Branches, e.Position)
	return nil
}

func (c *Compiler) compileWhenBranch(branches []ast.WhenBranch, pos ast.Position) {
	if len(branches) == 0 {
		c.emitOp(bytecode.LoadNil, pos)
		return
	}
	branch := branches[0]
	c.compileExpr(branch.Cond)

	jumpIfFalse := c.emitJumpPlaceholder(bytecode.JumpIfFalse, pos)
	c.compileExpr(branch.Body)
	jumpEnd := c.emitLongJumpPlaceholder(bytecode.LongJump, pos)
	c.patchJump16(jumpIfFalse, "when expression is too big", pos)

	c.compileWhenBranch(branches[1:], pos)
	c.patchJump32(jumpEnd, "when expression is too big", pos)
}

func (c *Compiler) VisitImport(e ast.Import) any {
	c.fail(SyntaxError{Message: "import is not implemented", Line: e.Position.Line, Column: e.Position.Column})
	return nil
}

func (c *Compiler) VisitPanic(e ast.Panic) any {
	c.fail(SyntaxError{Message: "panic is not implemented", Line: e.Position.Line, Column: e.Position.Column})
	return nil
}

func (c *Compiler) VisitRecover(e ast.Recover) any {
	c.fail(SyntaxError{Message: "recover is not implemented", Line: e.Position.Line, Column: e.Position.Column})
	return nil
}

func (c *Compiler) VisitBlock(e ast.Block) any {
	pos := e.Position
	c.beginScope()

	last := e.Exprs[len(e.Exprs)-1]
	for _, expr := range e.Exprs[:len(e.Exprs)-1] {
		c.compileExpr(expr)
		c.emitOp(bytecode.Pop, pos)
	}

	popsNeeded := 0
	for _, l := range c.locals {
		if l.depth > c.scopeDepth-1 {
			popsNeeded++
		}
	}
	if popsNeeded > 255 {
		c.fail(SyntaxError{Message: "too many local variables in this scope", Line: pos.Line, Column: pos.Column})
	}

	if a, ok := last.(ast.Assign); ok && a.Init {
		c.fail(SyntaxError{Message: "last expression of a block cannot be an assignment", Line: a.Position.Line, Column: a.Position.Column})
	}

	c.compileExpr(last)
	c.emitPopExcept(popsNeeded, pos)
	c.endScope()
	return nil
}

// emitPopExcept emits the PopExceptLast family appropriate for n locals
// discarded at the end of a block or function body.
func (c *Compiler) emitPopExcept(n int, pos ast.Position) {
	switch {
	case n > 1:
		c.emitOp(bytecode.PopExceptLastN, pos)
		c.emitByte(byte(n), pos)
	case n == 1:
		c.emitOp(bytecode.PopExceptLast, pos)
	}
}

func (c *Compiler) VisitStr(e ast.Str) any {
	c.addConst(value.Str{Ref: &value.StrData{Text: e.Value, Mutable: e.Mutable}}, e.Position)
	return nil
}

func (c *Compiler) VisitAtom(e ast.Atom) any {
	c.addConst(value.Atom{Name: e.Value}, e.Position)
	return nil
}

func (c *Compiler) VisitInt(e ast.Int) any {
	switch e.Value {
	case 0:
		c.emitOp(bytecode.LoadInt0, e.Position)
	case 1:
		c.emitOp(bytecode.LoadInt1, e.Position)
	case 2:
		c.emitOp(bytecode.LoadInt2, e.Position)
	case 3:
		c.emitOp(bytecode.LoadInt3, e.Position)
	default:
		c.addConst(value.Int(e.Value), e.Position)
	}
	return nil
}

func (c *Compiler) VisitFloat(e ast.Float) any {
	c.addConst(value.Float(e.Value), e.Position)
	return nil
}

func (c *Compiler) VisitBool(e ast.Bool) any {
	if e.Value {
		c.emitOp(bytecode.LoadTrue, e.Position)
	} else {
		c.emitOp(bytecode.LoadFalse, e.Position)
	}
	return nil
}

func (c *Compiler) VisitEmpty(e ast.Empty) any {
	c.emitOp(bytecode.LoadEmpty, e.Position)
	return nil
}

func (c *Compiler) VisitList(e ast.List) any {
	c.compileListTarget(e, func(expr ast.Expr) { c.compileExpr(expr) })
	c.emitOp(bytecode.InitList, e.Position)
	c.emitByte(byte(len(e.Elems)), e.Position)
	c.emitBool(e.Mutable, e.Position)
	return nil
}

func (c *Compiler) VisitTuple(e ast.Tuple) any {
	c.compileTupleTarget(e, func(expr ast.Expr) { c.compileExpr(expr) })
	c.emitOp(bytecode.InitTup, e.Position)
	c.emitByte(byte(len(e.Elems)), e.Position)
	return nil
}

func (c *Compiler) VisitObj(e ast.Obj) any {
	if len(e.Keys) > 255 {
		c.fail(SyntaxError{Message: "object literal too big", Line: e.Position.Line, Column: e.Position.Column})
	}
	for i, v := range e.Vals {
		c.compileExpr(v)
		c.addVarConst(e.Keys[i], e.Position)
	}
	c.emitOp(bytecode.InitObj, e.Position)
	c.emitByte(byte(len(e.Keys)), e.Position)
	c.emitBool(e.Mutable, e.Position)
	return nil
}

func (c *Compiler) VisitNil(e ast.Nil) any {
	c.emitOp(bytecode.LoadNil, e.Position)
	return nil
}

func (c *Compiler) VisitConst(e ast.Const) any {
	c.compileExpr(e.Expr)
	c.emitOp(bytecode.Const, e.Position)
	return nil
}
