package vm

import (
	"fmt"

	"ember/heap"
	"ember/value"
)

// rangeBounds interprets a 0/1/2-element List as spec.md §4.6's slice
// spec: empty means the whole sequence, one element is a from-index to
// the end, two elements are a half-open [lo, hi) range.
func (vm *VM) rangeBounds(length int, spec []value.Value) (lo, hi int, whole bool) {
	switch len(spec) {
	case 0:
		return 0, length, true
	case 1:
		lo, ok := asInt(spec[0])
		if !ok {
			vm.fail("expected type int but got " + spec[0].TypeName())
		}
		if lo < 0 || lo >= length {
			vm.fail(fmt.Sprintf("invalid index %d", lo))
		}
		return lo, length, false
	case 2:
		lo, ok1 := asInt(spec[0])
		hi, ok2 := asInt(spec[1])
		if !ok1 || !ok2 {
			vm.fail(fmt.Sprintf("expected ints but got %s and %s", spec[0].TypeName(), spec[1].TypeName()))
		}
		if lo < 0 || hi < 0 || lo > length || hi > length || lo > hi {
			vm.fail(fmt.Sprintf("invalid range [%d, %d)", lo, hi))
		}
		return lo, hi, false
	default:
		vm.fail(fmt.Sprintf("invalid number %d", len(spec)))
		return 0, 0, false
	}
}

func asInt(v value.Value) (int, bool) {
	i, ok := v.(value.Int)
	return int(i), ok
}

func (vm *VM) opGetProperty() {
	attr, _ := vm.stack.Pop()
	inst, _ := vm.stack.Pop()

	switch t := inst.(type) {
	case value.List:
		vm.getListProperty(t, attr)
	case value.Tuple:
		vm.getTupleProperty(t, attr)
	case value.Object:
		vm.getObjectProperty(t, attr)
	case value.Str:
		vm.getStrProperty(t, attr)
	default:
		vm.fail("expected either list, tuple, object, or string but got " + inst.TypeName())
	}
}

func (vm *VM) getListProperty(t value.List, attr value.Value) {
	switch a := attr.(type) {
	case value.Int:
		idx := int(a)
		if idx < 0 || idx >= len(t.Ref.Elems) {
			vm.fail(fmt.Sprintf("invalid index %d", idx))
			return
		}
		vm.push(t.Ref.Elems[idx])
	case value.List:
		lo, hi, _ := vm.rangeBounds(len(t.Ref.Elems), a.Ref.Elems)
		sub := append([]value.Value{}, t.Ref.Elems[lo:hi]...)
		vm.push(value.List{Ref: heap.Allocate(vm.heap, value.ListData{Elems: sub, Mutable: t.Ref.Mutable})})
	default:
		vm.fail("expected either int or list but got " + attr.TypeName())
	}
}

func (vm *VM) getTupleProperty(t value.Tuple, attr value.Value) {
	switch a := attr.(type) {
	case value.Int:
		idx := int(a)
		if idx < 0 || idx >= len(t.Elems) {
			vm.fail(fmt.Sprintf("invalid index: %d", idx))
			return
		}
		vm.push(t.Elems[idx])
	case value.List:
		if len(a.Ref.Elems) == 0 {
			vm.push(value.Tuple{Elems: append([]value.Value{}, t.Elems...)})
			return
		}
		lo, hi, _ := vm.rangeBounds(len(t.Elems), a.Ref.Elems)
		sub := append([]value.Value{}, t.Elems[lo:hi]...)
		vm.push(value.List{Ref: heap.Allocate(vm.heap, value.ListData{Elems: sub, Mutable: false})})
	default:
		vm.fail("expected either int or list but got " + attr.TypeName())
	}
}

func (vm *VM) getObjectProperty(t value.Object, attr value.Value) {
	key, ok := attr.(value.VarName)
	if !ok {
		vm.fail("expected a name but got " + attr.TypeName())
		return
	}
	val, exists := t.Ref.Fields[key.Name]
	if !exists {
		vm.fail("key " + key.Name + " does not exist")
		return
	}
	vm.push(val)
}

func (vm *VM) getStrProperty(t value.Str, attr value.Value) {
	runes := []rune(t.Ref.Text)
	switch a := attr.(type) {
	case value.Int:
		idx := int(a)
		if idx < 0 || idx >= len(runes) {
			vm.fail(fmt.Sprintf("invalid index %d", idx))
			return
		}
		vm.push(value.Str{Ref: &value.StrData{Text: string(runes[idx]), Mutable: false}})
	case value.List:
		if len(a.Ref.Elems) == 0 {
			vm.push(value.Str{Ref: &value.StrData{Text: t.Ref.Text, Mutable: true}})
			return
		}
		lo, hi, _ := vm.rangeBounds(len(runes), a.Ref.Elems)
		vm.push(value.Str{Ref: &value.StrData{Text: string(runes[lo:hi]), Mutable: t.Ref.Mutable}})
	default:
		vm.fail("expected either int or list but got " + attr.TypeName())
	}
}

func (vm *VM) opSetProperty() {
	val, _ := vm.stack.Pop()
	attr, _ := vm.stack.Pop()
	inst, _ := vm.stack.Pop()

	switch t := inst.(type) {
	case value.List:
		vm.setListProperty(t, attr, val)
	case value.Object:
		vm.setObjectProperty(t, attr, val)
	case value.Tuple:
		vm.fail("tuple is immutable")
	default:
		vm.fail("expected type obj or list but got " + inst.TypeName())
	}
	vm.push(val)
}

func (vm *VM) setListProperty(t value.List, attr, val value.Value) {
	if !t.Ref.Mutable {
		vm.fail("value is immutable")
		return
	}
	switch a := attr.(type) {
	case value.Int:
		idx := int(a)
		if idx < 0 || idx >= len(t.Ref.Elems) {
			vm.fail(fmt.Sprintf("invalid index %d", idx))
			return
		}
		t.Ref.Elems[idx] = val
	case value.List:
		if len(a.Ref.Elems) == 0 {
			vm.fail("indexes must not be empty")
			return
		}
		rv, ok := val.(value.List)
		if !ok {
			vm.fail("expected type list but got " + val.TypeName())
			return
		}
		if len(rv.Ref.Elems) != len(a.Ref.Elems) {
			vm.fail(fmt.Sprintf("invalid length: %d and %d", len(a.Ref.Elems), len(rv.Ref.Elems)))
			return
		}
		for i, idxVal := range a.Ref.Elems {
			idx, ok := asInt(idxVal)
			if !ok {
				vm.fail("expected int but got " + idxVal.TypeName())
				return
			}
			if idx < 0 || idx >= len(t.Ref.Elems) {
				vm.fail(fmt.Sprintf("invalid index %d", idx))
				return
			}
			t.Ref.Elems[idx] = rv.Ref.Elems[i]
		}
	default:
		vm.fail("expected type list but got " + attr.TypeName())
	}
}

func (vm *VM) setObjectProperty(t value.Object, attr, val value.Value) {
	if !t.Ref.Mutable {
		vm.fail("value is immutable")
		return
	}
	key, ok := attr.(value.VarName)
	if !ok {
		vm.fail("expected a name but got " + attr.TypeName())
		return
	}
	t.Ref.Fields[key.Name] = val
}
