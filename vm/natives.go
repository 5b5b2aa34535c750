package vm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"ember/value"
)

// registerStdlib wires the minimal native library SPEC_FULL.md §4
// calls for: just enough to exercise the native calling convention end
// to end, matching the handful of builtins the original's test
// fixtures actually call (len, type, print).
func (vm *VM) registerStdlib() {
	vm.RegisterNative("len", nativeLen)
	vm.RegisterNative("type", nativeType)
	vm.RegisterNative("str", nativeStr)
	vm.RegisterNative("int", nativeInt)
	vm.RegisterNative("float", nativeFloat)
	vm.RegisterNative("print", nativePrint)
}

func nativeLen(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("RuntimeError: len expects 1 argument but got %d", len(args))
	}
	switch v := args[0].(type) {
	case value.Str:
		return value.Int(len([]rune(v.Ref.Text))), nil
	case value.List:
		return value.Int(len(v.Ref.Elems)), nil
	case value.Tuple:
		return value.Int(len(v.Elems)), nil
	case value.Object:
		return value.Int(len(v.Ref.Fields)), nil
	default:
		return nil, value.TypeError{Op: "take the length of", Lhs: v.TypeName()}
	}
}

func nativeType(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("RuntimeError: type expects 1 argument but got %d", len(args))
	}
	return value.Str{Ref: &value.StrData{Text: args[0].TypeName(), Mutable: false}}, nil
}

func nativeStr(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("RuntimeError: str expects 1 argument but got %d", len(args))
	}
	return value.Str{Ref: &value.StrData{Text: args[0].Render(), Mutable: true}}, nil
}

func nativeInt(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("RuntimeError: int expects 1 argument but got %d", len(args))
	}
	switch v := args[0].(type) {
	case value.Int:
		return v, nil
	case value.Float:
		return value.Int(int64(v)), nil
	case value.Str:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Ref.Text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("RuntimeError: cannot parse %q as int", v.Ref.Text)
		}
		return value.Int(n), nil
	default:
		return nil, value.TypeError{Op: "convert to int", Lhs: v.TypeName()}
	}
}

func nativeFloat(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("RuntimeError: float expects 1 argument but got %d", len(args))
	}
	switch v := args[0].(type) {
	case value.Float:
		return v, nil
	case value.Int:
		return value.Float(v), nil
	case value.Str:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Ref.Text), 64)
		if err != nil {
			return nil, fmt.Errorf("RuntimeError: cannot parse %q as float", v.Ref.Text)
		}
		return value.Float(n), nil
	default:
		return nil, value.TypeError{Op: "convert to float", Lhs: v.TypeName()}
	}
}

func nativePrint(vm *VM, args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Render()
	}
	fmt.Fprintln(os.Stdout, strings.Join(parts, " "))
	return value.Nil{}, nil
}
