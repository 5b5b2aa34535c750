package vm

import "ember/value"

// binder performs the final act of one definition/reassignment: either
// inserting into the Global table, updating an existing Global entry,
// or pushing onto the locals stack. Grounded on original_source's
// define_or_set, which takes exactly this kind of pluggable "what do I
// do with one bound name" callback.
type binder func(vm *VM, name string, val value.Value, mutable bool)

func defineGlobalBinder(vm *VM, name string, val value.Value, mutable bool) {
	if _, exists := vm.globals[name]; exists {
		vm.fail("global variable " + name + " is already defined")
		return
	}
	vm.globals[name] = globalSlot{value: val, mutable: mutable}
}

func setGlobalBinder(vm *VM, name string, val value.Value, _ bool) {
	g, exists := vm.globals[name]
	if !exists {
		vm.fail("global variable " + name + " is not defined")
		return
	}
	if !g.mutable {
		vm.fail("global variable " + name + " is immutable")
		return
	}
	g.value = val
	vm.globals[name] = g
}

func defineLocalBinder(vm *VM, _ string, val value.Value, _ bool) {
	vm.push(val)
}

// defineOrSet pops (pattern, value) off the stack — in that order from
// the bottom, so value is on top — and recurses through pattern binding
// each leaf via bind, then pushes value back as the assignment's own
// result. This implements DefGlobal/SetGlobal/DefLocal uniformly,
// following original_source's single define_or_set used by all three
// opcodes.
func (vm *VM) defineOrSet(bind binder, mutable bool) {
	val := vm.pop()
	pattern := vm.pop()
	vm.bindPattern(pattern, val, bind, mutable)
	vm.push(val)
}

// bindPattern recursively destructures pattern (built at compile time
// out of VarName/Empty leaves via InitTup/InitList/InitObj, or a bare
// VarName/Empty for a non-destructuring target) against val, calling
// bind for every named leaf.
func (vm *VM) bindPattern(pattern, val value.Value, bind binder, mutable bool) {
	switch p := pattern.(type) {
	case value.VarName:
		bind(vm, p.Name, val, mutable)
	case value.Empty:
		// wildcard: binds nothing
	case value.Tuple:
		elems, ok := sequenceElems(val)
		if !ok || len(elems) != len(p.Elems) {
			vm.fail("pattern does not match value shape")
			return
		}
		for i, leaf := range p.Elems {
			vm.bindPattern(leaf, elems[i], bind, mutable)
		}
	case value.List:
		elems, ok := sequenceElems(val)
		if !ok || len(elems) != len(p.Ref.Elems) {
			vm.fail("pattern does not match value shape")
			return
		}
		for i, leaf := range p.Ref.Elems {
			vm.bindPattern(leaf, elems[i], bind, mutable)
		}
	case value.Object:
		obj, ok := val.(value.Object)
		if !ok {
			vm.fail("expected an object but got " + val.TypeName())
			return
		}
		for key, leaf := range p.Ref.Fields {
			fv, exists := obj.Ref.Fields[key]
			if !exists {
				vm.fail("key " + key + " does not exist")
				return
			}
			vm.bindPattern(leaf, fv, bind, mutable)
		}
	default:
		vm.fail("invalid assignment pattern")
	}
}

func sequenceElems(v value.Value) ([]value.Value, bool) {
	switch t := v.(type) {
	case value.Tuple:
		return t.Elems, true
	case value.List:
		return t.Ref.Elems, true
	default:
		return nil, false
	}
}
