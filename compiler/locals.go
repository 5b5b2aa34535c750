package compiler

import "ember/ast"

// local is one entry in the compiler's lexical locals table (spec.md
// §3, "Local table (compile-time)"). Locals live in declaration order;
// the most recently declared local is always last.
type local struct {
	name    string
	depth   int
	mutable bool
}

// addLocal appends a new local at the current scope depth. Callers
// must have already verified there is no same-depth redeclaration via
// checkLocal.
func (c *Compiler) addLocal(name string, mutable bool) int {
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth, mutable: mutable})
	return len(c.locals) - 1
}

// resolveLocal searches the locals table top-down for name. reassign
// requests the mutability check required before emitting a
// Set-family opcode; allowGlobalFallback permits falling through to a
// global lookup by returning -1 instead of reporting "not defined".
func (c *Compiler) resolveLocal(name string, allowGlobalFallback, reassign bool, line, col int) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if reassign && !c.locals[i].mutable {
				c.fail(SyntaxError{Message: "local variable " + name + " is immutable", Line: line, Column: col})
			}
			return i
		}
	}
	if !allowGlobalFallback {
		c.fail(SyntaxError{Message: "local variable " + name + " is not defined", Line: line, Column: col})
	}
	return -1
}

// checkLocal walks a (possibly compound) assignment target and fails
// compilation if any identifier in it already names a local declared at
// or above the current scope depth.
func (c *Compiler) checkLocal(target ast.Expr) {
	for _, l := range c.locals {
		if l.depth >= c.scopeDepth {
			walkTargetNames(target, func(name string, pos ast.Position) {
				if l.name == name {
					c.fail(SyntaxError{
						Message: "local variable " + name + " is already defined in this scope",
						Line:    pos.Line, Column: pos.Column,
					})
				}
			})
		}
	}
}

// walkTargetNames visits every identifier bound by a (possibly nested)
// assignment target: a bare Var, or a Tuple/List/Obj whose elements are
// themselves Var or Empty.
func walkTargetNames(target ast.Expr, visit func(name string, pos ast.Position)) {
	switch t := target.(type) {
	case ast.Var:
		visit(t.Name, t.Position)
	case ast.Empty:
		// wildcard binds nothing
	case ast.Tuple:
		for _, e := range t.Elems {
			walkTargetNames(e, visit)
		}
	case ast.List:
		for _, e := range t.Elems {
			walkTargetNames(e, visit)
		}
	case ast.Obj:
		for _, v := range t.Vals {
			walkTargetNames(v, visit)
		}
	}
}

// beginScope enters a new lexical scope (block or function body).
func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope leaves the current scope, discarding every local declared in
// it, and reports how many were discarded (the PopExceptLast(N) count).
func (c *Compiler) endScope() int {
	c.scopeDepth--
	count := 0
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
		count++
	}
	return count
}
