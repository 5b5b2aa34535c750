package vm

import "ember/value"

// opSetLocalTup implements SetLocalTup. Unlike a definition, a local
// reassignment target's shape was already fully resolved at compile
// time into per-element (isAssignable, slotIndex) descriptor bytes
// written directly into the instruction stream (compileLocalReassign),
// so there is no runtime pattern value to walk — only the already
//-popped right-hand Tuple and a run of descriptor pairs whose count is
// implied by that Tuple's length.
func (vm *VM) opSetLocalTup(frame *callFrame) {
	rhs, ok := vm.pop().(value.Tuple)
	if !ok {
		vm.fail("expected a tuple but got " + rhs.TypeName())
		return
	}
	code := vm.slice.Instructions
	for i := range rhs.Elems {
		assignable := code[frame.ip]
		idx := code[frame.ip+1]
		frame.ip += 2
		if assignable == 1 {
			vm.stack.Set(frame.slotBase+int(idx), rhs.Elems[i])
		}
	}
	vm.push(rhs)
}

func (vm *VM) opSetLocalList(frame *callFrame) {
	rhs, ok := vm.pop().(value.List)
	if !ok {
		vm.fail("expected a list but got " + rhs.TypeName())
		return
	}
	code := vm.slice.Instructions
	for i := range rhs.Ref.Elems {
		assignable := code[frame.ip]
		idx := code[frame.ip+1]
		frame.ip += 2
		if assignable == 1 {
			vm.stack.Set(frame.slotBase+int(idx), rhs.Ref.Elems[i])
		}
	}
	vm.push(rhs)
}

// opDefLocalObj implements DefLocalObj: a local object-destructuring
// definition ("{a: x, b: y} := obj"). Like opSetLocalObj, the key names
// to look up and which positions actually bind a name were both fixed
// at compile time, so the keys are walked in that same fixed order
// instead of ranging over the runtime Object's field map (whose
// iteration order is randomized and would otherwise desync from the
// fixed compile-time local slot each name was assigned).
func (vm *VM) opDefLocalObj(frame *callFrame) {
	n := int(vm.slice.Instructions[frame.ip])
	frame.ip++

	keys := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		k, ok := vm.pop().(value.VarName)
		if !ok {
			vm.fail("expected a name but got " + k.TypeName())
			return
		}
		keys[i] = k.Name
	}
	rhs, ok := vm.pop().(value.Object)
	if !ok {
		vm.fail("expected an object but got " + rhs.TypeName())
		return
	}

	code := vm.slice.Instructions
	for i := 0; i < n; i++ {
		bound := code[frame.ip]
		frame.ip++
		fv, exists := rhs.Ref.Fields[keys[i]]
		if !exists {
			vm.fail("key " + keys[i] + " does not exist")
			return
		}
		if bound == 1 {
			vm.push(fv)
		}
	}
	vm.push(rhs)
}

// opSetLocalObj implements SetLocalObj. The compiler pushes the target
// object's field-name constants onto the stack (on top of the
// already-compiled right-hand value), then emits an explicit key count
// followed by one slot-index byte per key (ast.Empty in this position
// is rejected at compile time, so every descriptor here is a real
// slot).
func (vm *VM) opSetLocalObj(frame *callFrame) {
	n := int(vm.slice.Instructions[frame.ip])
	frame.ip++

	keys := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		k, ok := vm.pop().(value.VarName)
		if !ok {
			vm.fail("expected a name but got " + k.TypeName())
			return
		}
		keys[i] = k.Name
	}
	rhs, ok := vm.pop().(value.Object)
	if !ok {
		vm.fail("expected an object but got " + rhs.TypeName())
		return
	}

	code := vm.slice.Instructions
	for i := 0; i < n; i++ {
		idx := code[frame.ip]
		frame.ip++
		fv, exists := rhs.Ref.Fields[keys[i]]
		if !exists {
			vm.fail("key " + keys[i] + " does not exist")
			return
		}
		vm.stack.Set(frame.slotBase+int(idx), fv)
	}
	vm.push(rhs)
}
