// Package vm executes the bytecode package compiler emits: a single
// flat MemorySlice interpreted by a stack machine with call frames,
// local slots addressed into the same shared stack, global binding,
// structural pattern matching, and slice-style property access
// (spec.md §4.6). It is grounded on the teacher's vm/ package (a
// Stack type, a 💥-prefixed RuntimeError, a fetch-decode-execute Run
// loop over a package compiler.Bytecode) generalized from the
// teacher's single OP_CONSTANT prototype to the full instruction set,
// with the call-frame/destructuring/pattern-match runtime semantics
// themselves grounded on original_source/src/vm/mod.rs.
package vm

import (
	"fmt"

	"ember/bytecode"
	"ember/heap"
	"ember/value"
)

// globalSlot pairs a bound value with whether it can be reassigned,
// mirroring the original's globals: HashMap<Arc<str>, (Value, bool)>.
type globalSlot struct {
	value   value.Value
	mutable bool
}

// NativeFunc is the host-callable shape a registered native name
// resolves to (SPEC_FULL.md §4's "native-function calling convention").
// It receives the VM itself — so a native can raise a properly
// frame-traced RuntimeError, and a future native can reach the heap —
// and the already-collected argument vector.
type NativeFunc func(vm *VM, args []value.Value) (value.Value, error)

// VM is one execution of a single compiled MemorySlice.
type VM struct {
	slice  *bytecode.MemorySlice
	heap   *heap.Heap
	stack  Stack
	frames []callFrame

	globals map[string]globalSlot
	natives map[string]NativeFunc
}

// New returns a VM backed by h, with the standard native library
// registered into its global table.
func New(h *heap.Heap) *VM {
	vm := &VM{
		heap:    h,
		globals: make(map[string]globalSlot, 12),
		natives: make(map[string]NativeFunc, 8),
	}
	vm.registerStdlib()
	return vm
}

// RegisterNative binds name as a global pointing at a native function,
// exactly the way the standard library is installed.
func (vm *VM) RegisterNative(name string, fn NativeFunc) {
	vm.natives[name] = fn
	vm.globals[name] = globalSlot{value: value.Native{Name: name}, mutable: false}
}

// runtimeFailure is the panic payload Run recovers from; always wraps a
// RuntimeError, mirroring package compiler's compileFailure/fail.
type runtimeFailure struct{ err error }

// fail raises a RuntimeError carrying a frame-unwind trace (every live
// call frame from the one that failed down to the script frame),
// following the original's runtime_err.
func (vm *VM) fail(msg string) {
	trace := make([]traceEntry, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		pos := vm.slice.PositionFor(f.ip)
		trace = append(trace, traceEntry{FuncName: f.fnName, Line: pos.Line, Column: pos.Column})
	}
	panic(runtimeFailure{RuntimeError{Message: msg, Trace: trace}})
}

func (vm *VM) push(v value.Value) {
	if vm.stack.Len() >= stackMax {
		vm.fail("stack overflow")
	}
	vm.stack.Push(v)
}

func (vm *VM) pop() value.Value {
	v, ok := vm.stack.Pop()
	if !ok {
		vm.fail("stack underflow")
	}
	return v
}

func (vm *VM) currentFrame() *callFrame {
	return &vm.frames[len(vm.frames)-1]
}

// Run executes slice from its first instruction to Halt, returning the
// RuntimeError raised by the first failing instruction, if any.
func (vm *VM) Run(slice *bytecode.MemorySlice) (err error) {
	vm.slice = slice
	vm.stack = make(Stack, 0, 256)
	vm.frames = []callFrame{{ip: 0, slotBase: 0}}

	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(runtimeFailure); ok {
				err = f.err
				return
			}
			panic(r)
		}
	}()

	code := slice.Instructions
	for {
		frame := vm.currentFrame()
		if frame.ip >= len(code) {
			vm.fail("instruction pointer ran past the end of the program")
		}
		op := bytecode.Op(code[frame.ip])
		frame.ip++

		switch op {
		case bytecode.Halt:
			return nil

		case bytecode.LoadConst:
			idx := int(code[frame.ip])
			frame.ip++
			vm.push(vm.constAt(idx))

		case bytecode.LoadLongConst:
			idx := int(bytecode.DecodeLE16(code[frame.ip:]))
			frame.ip += 2
			vm.push(vm.constAt(idx))

		case bytecode.LoadInt0:
			vm.push(value.Int(0))
		case bytecode.LoadInt1:
			vm.push(value.Int(1))
		case bytecode.LoadInt2:
			vm.push(value.Int(2))
		case bytecode.LoadInt3:
			vm.push(value.Int(3))
		case bytecode.LoadTrue:
			vm.push(value.Bool(true))
		case bytecode.LoadFalse:
			vm.push(value.Bool(false))
		case bytecode.LoadNil:
			vm.push(value.Nil{})
		case bytecode.LoadEmpty:
			vm.push(value.Empty{})

		case bytecode.Const:
			v := vm.pop()
			switch t := v.(type) {
			case value.Str:
				t.Ref.Mutable = false
			case value.List:
				t.Ref.Mutable = false
			case value.Object:
				t.Ref.Mutable = false
			}
			vm.push(v)

		case bytecode.Add:
			vm.binaryArith(value.Add)
		case bytecode.Sub:
			vm.binaryArith(value.Sub)
		case bytecode.Mult:
			vm.binaryArith(value.Mult)
		case bytecode.Div:
			vm.binaryArith(value.Div)
		case bytecode.Rem:
			vm.binaryArith(value.Rem)

		case bytecode.Negate:
			v := vm.pop()
			r, err := value.Negate(v)
			if err != nil {
				vm.fail(err.Error())
				break
			}
			vm.push(r)

		case bytecode.NegateBool:
			v := vm.pop()
			r, err := value.NegateBool(v)
			if err != nil {
				vm.fail(err.Error())
				break
			}
			vm.push(r)

		case bytecode.Equal, bytecode.NotEqual:
			r, l := vm.pop(), vm.pop()
			_, lEmpty := l.(value.Empty)
			_, rEmpty := r.(value.Empty)
			if lEmpty || rEmpty {
				vm.fail(value.TypeError{Op: "compare", Lhs: l.TypeName(), Rhs: r.TypeName()}.Error())
				break
			}
			vm.push(value.Bool(value.Equal(l, r) == (op == bytecode.Equal)))

		case bytecode.GT:
			vm.compareOp(value.GreaterThan)
		case bytecode.LT:
			vm.compareOp(value.LessThan)
		case bytecode.GTEq:
			vm.compareOp(value.GreaterThanOrEq)
		case bytecode.LTEq:
			vm.compareOp(value.LessThanOrEq)

		case bytecode.And:
			r, l := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Truthy(l) && value.Truthy(r)))
		case bytecode.Or:
			r, l := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Truthy(l) || value.Truthy(r)))

		case bytecode.Pop:
			vm.pop()
		case bytecode.PopN:
			n := int(code[frame.ip])
			frame.ip++
			vm.stack.PopN(n)
		case bytecode.PopExceptLast:
			last := vm.pop()
			vm.pop()
			vm.push(last)
		case bytecode.PopExceptLastN:
			last := vm.pop()
			n := int(code[frame.ip])
			frame.ip++
			vm.stack.PopN(n)
			vm.push(last)

		case bytecode.Jump:
			dist := bytecode.DecodeLE16(code[frame.ip:])
			frame.ip += 2 + int(dist)
		case bytecode.LongJump:
			dist := bytecode.DecodeLE32(code[frame.ip:])
			frame.ip += 4 + int(dist)
		case bytecode.JumpIfFalse:
			dist := bytecode.DecodeLE16(code[frame.ip:])
			frame.ip += 2
			if !value.Truthy(vm.pop()) {
				frame.ip += int(dist)
			}

		case bytecode.InitTup:
			n := int(code[frame.ip])
			frame.ip++
			vm.push(value.Tuple{Elems: vm.popN(n)})

		case bytecode.InitList:
			n := int(code[frame.ip])
			frame.ip++
			mutable := code[frame.ip] == 1
			frame.ip++
			elems := vm.popN(n)
			vm.push(value.List{Ref: heap.Allocate(vm.heap, value.ListData{Elems: elems, Mutable: mutable})})

		case bytecode.InitObj:
			n := int(code[frame.ip])
			frame.ip++
			mutable := code[frame.ip] == 1
			frame.ip++
			fields := make(map[string]value.Value, n)
			for i := 0; i < n; i++ {
				key, ok := vm.pop().(value.VarName)
				if !ok {
					vm.fail("invalid object literal key")
					break
				}
				val := vm.pop()
				fields[key.Name] = val
			}
			vm.push(value.Object{Ref: heap.Allocate(vm.heap, value.ObjectData{Fields: fields, Mutable: mutable})})

		case bytecode.DefGlobal:
			mutable := code[frame.ip] == 1
			frame.ip++
			vm.defineOrSet(defineGlobalBinder, mutable)
		case bytecode.SetGlobal:
			vm.defineOrSet(setGlobalBinder, false)
		case bytecode.GetGlobal:
			v := vm.pop()
			name, ok := v.(value.VarName)
			if !ok {
				vm.fail("expected a name")
				break
			}
			g, ok := vm.globals[name.Name]
			if !ok {
				vm.fail("global variable " + name.Name + " is not defined")
				break
			}
			vm.push(g.value)

		case bytecode.DefLocal:
			vm.defineOrSet(defineLocalBinder, false)
		case bytecode.DefLocalObj:
			vm.opDefLocalObj(frame)
		case bytecode.GetLocal:
			idx := int(code[frame.ip])
			frame.ip++
			vm.push(vm.stack.At(frame.slotBase + idx))
		case bytecode.SetLocalVar:
			right := vm.pop()
			idx := int(code[frame.ip])
			frame.ip++
			vm.stack.Set(frame.slotBase+idx, right)
			vm.push(right)
		case bytecode.SetLocalTup:
			vm.opSetLocalTup(frame)
		case bytecode.SetLocalList:
			vm.opSetLocalList(frame)
		case bytecode.SetLocalObj:
			vm.opSetLocalObj(frame)

		case bytecode.Match:
			vm.opMatch(frame)

		case bytecode.GetProperty:
			vm.opGetProperty()
		case bytecode.SetProperty:
			vm.opSetProperty()

		case bytecode.SetFnAddr:
			top, ok := vm.stack.Peek()
			if !ok {
				vm.fail("expected a function on top of the stack")
				break
			}
			fn, ok := top.(value.Function)
			if !ok {
				vm.fail("expected a function but got " + top.TypeName())
				break
			}
			// Body starts right after the LongJump this SetFnAddr
			// precedes: its own opcode byte plus the 4-byte operand.
			fn.Ref.Addr = frame.ip + 5

		case bytecode.CallFn:
			vm.opCallFn(frame)

		case bytecode.RetFn:
			vm.frames = vm.frames[:len(vm.frames)-1]

		default:
			vm.fail(fmt.Sprintf("unknown opcode %v", op))
		}
	}
}

func (vm *VM) constAt(idx int) value.Value {
	if idx < 0 || idx >= len(vm.slice.Constants) {
		vm.fail(fmt.Sprintf("invalid constant index %d", idx))
	}
	return vm.slice.Constants[idx]
}

// popN pops n values and returns them in their original left-to-right
// order (the compiler pushes list/tuple/object elements in source
// order, so the last element is on top).
func (vm *VM) popN(n int) []value.Value {
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.pop()
	}
	return out
}

func (vm *VM) binaryArith(op func(a, b value.Value) (value.Value, error)) {
	b, a := vm.pop(), vm.pop()
	r, err := op(a, b)
	if err != nil {
		vm.fail(err.Error())
		return
	}
	vm.push(r)
}

func (vm *VM) compareOp(op func(a, b value.Value) (bool, error)) {
	b, a := vm.pop(), vm.pop()
	r, err := op(a, b)
	if err != nil {
		vm.fail(err.Error())
		return
	}
	vm.push(value.Bool(r))
}
