package vm

import (
	"ember/bytecode"
	"ember/value"
)

// opMatch implements Match, following the branch-chaining scheme
// compiler.compileMatchBranch emits and the runtime jump-distance
// arithmetic grounded on original_source/src/vm/mod.rs: the 4-byte
// operand measures the distance from the hasNext byte itself (the byte
// right after the operand) to the end of this branch's body, so after
// advancing past both operands the VM is already one byte into that
// distance and jumps the operand minus one;
// a branch with a following branch additionally needs to clear the
// unconditional LongJump chaining the two together.
func (vm *VM) opMatch(frame *callFrame) {
	target := vm.pop()
	cond := vm.pop()

	rawJump := bytecode.DecodeLE32(vm.slice.Instructions[frame.ip:])
	frame.ip += 4
	hasNext := vm.slice.Instructions[frame.ip] == 1
	frame.ip++

	if vm.matchValue(cond, target) {
		return
	}

	jump := int(rawJump) - 1
	if hasNext {
		jump += 5
		vm.push(cond)
	} else {
		vm.push(value.Nil{})
	}
	frame.ip += jump
}

// matchValue compares cond (the scrutinee) against target (the
// compiled case expression) structurally. Empty always matches,
// standing in for the wildcard "_" case. Compound values recurse
// element/field-wise; any Empty nested inside one behaves as a
// no-op match at that position rather than binding a fresh name —
// this language's match does not support fresh-name patterns, only
// wildcards and literal/structural comparison.
func (vm *VM) matchValue(cond, target value.Value) bool {
	if _, ok := target.(value.Empty); ok {
		return true
	}
	if cond.Kind() != target.Kind() {
		return false
	}
	switch c := cond.(type) {
	case value.List:
		t := target.(value.List)
		if len(c.Ref.Elems) != len(t.Ref.Elems) {
			return false
		}
		for i := range c.Ref.Elems {
			if !vm.matchValue(c.Ref.Elems[i], t.Ref.Elems[i]) {
				return false
			}
		}
		return true
	case value.Tuple:
		t := target.(value.Tuple)
		if len(c.Elems) != len(t.Elems) {
			return false
		}
		for i := range c.Elems {
			if !vm.matchValue(c.Elems[i], t.Elems[i]) {
				return false
			}
		}
		return true
	case value.Object:
		t := target.(value.Object)
		for k, tv := range t.Ref.Fields {
			cv, ok := c.Ref.Fields[k]
			if !ok || !vm.matchValue(cv, tv) {
				return false
			}
		}
		return true
	default:
		return value.Equal(cond, target)
	}
}
