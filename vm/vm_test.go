package vm

import (
	"strings"
	"testing"

	"ember/compiler"
	"ember/heap"
	"ember/lexer"
	"ember/parser"
	"ember/value"
)

// compileAndRun drives src through the full lexer -> parser -> compiler
// -> vm pipeline, the same "integration test" shape the teacher's own
// vm_test.go uses, since a compiled-from-source program is far less
// error-prone to construct by hand than bytecode literals.
//
// compiler.Compile always emits Pop after every top-level expression, so
// a program's result is never left on the stack for inspection — every
// test source assigns its result to a global ("result := ...") and reads
// it back out of the VM's global table after Run returns.
func compileAndRun(t *testing.T, src string) (*VM, error) {
	t.Helper()
	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lexing %q: %v", src, err)
	}
	exprs, err := parser.New(toks).Parse()
	if err != nil {
		t.Fatalf("parsing %q: %v", src, err)
	}
	slice, err := compiler.New(0).Compile(exprs)
	if err != nil {
		t.Fatalf("compiling %q: %v", src, err)
	}
	m := New(heap.New())
	return m, m.Run(slice)
}

func runSource(t *testing.T, src string) *VM {
	t.Helper()
	m, err := compileAndRun(t, src)
	if err != nil {
		t.Fatalf("running %q: %v", src, err)
	}
	return m
}

func globalValue(t *testing.T, m *VM, name string) value.Value {
	t.Helper()
	g, ok := m.globals[name]
	if !ok {
		t.Fatalf("global %q was never defined", name)
	}
	return g.value
}

func TestArithmeticWidensIntAndFloat(t *testing.T) {
	m := runSource(t, "result := 1 + 2.5")
	got, ok := globalValue(t, m, "result").(value.Float)
	if !ok {
		t.Fatalf("result is %T, want value.Float", globalValue(t, m, "result"))
	}
	if got != value.Float(3.5) {
		t.Errorf("result = %v, want 3.5", got)
	}
}

func TestIntArithmeticStaysInt(t *testing.T) {
	m := runSource(t, "result := 7 / 2")
	if got := globalValue(t, m, "result"); got != value.Int(3) {
		t.Errorf("result = %v, want 3", got)
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "result := 1 / 0")
	if err == nil {
		t.Fatal("expected a runtime error dividing by zero")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "division by zero") {
		t.Errorf("RuntimeError.Message = %q, want it to mention division by zero", re.Message)
	}
}

// TestCallPadsMissingArgumentsInsteadOfFailingAtTheCallSite is a
// regression test for the arity-padding fix: supplying fewer arguments
// than a function's arity must not fail at the call site at all, only
// once the missing parameter (bound to Nil) is actually used.
func TestCallPadsMissingArgumentsInsteadOfFailingAtTheCallSite(t *testing.T) {
	_, err := compileAndRun(t, "fn add(x, y) = x + y\nresult := add(2)")
	if err == nil {
		t.Fatal("expected a runtime error evaluating x + nil inside add, got success")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if strings.Contains(re.Message, "expected 2 arguments") {
		t.Errorf("call should not fail at the call site for too few arguments, got: %q", re.Message)
	}
	if !strings.Contains(re.Message, "add") {
		t.Errorf("expected a TypeError from adding integer and nil, got: %q", re.Message)
	}
}

func TestCallWithTooManyArgumentsIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "fn add(x, y) = x + y\nresult := add(1, 2, 3)")
	if err == nil {
		t.Fatal("expected a runtime error calling with too many arguments")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "expected 2 arguments but got 3") {
		t.Errorf("RuntimeError.Message = %q, want it to mention expected 2 but got 3", re.Message)
	}
}

// TestRestParameterBindsEmptyListWhenCallSuppliesExactlyArityArgs is a
// regression test for the rest-parameter packing fix: a call supplying
// exactly as many arguments as the declared (non-rest) arity must bind
// the rest parameter to an empty list, not a one-element list holding a
// spurious Nil.
func TestRestParameterBindsEmptyListWhenCallSuppliesExactlyArityArgs(t *testing.T) {
	m := runSource(t, "fn f(a, ...rest) = rest\nresult := f(1)")
	got, ok := globalValue(t, m, "result").(value.List)
	if !ok {
		t.Fatalf("result is %T, want value.List", globalValue(t, m, "result"))
	}
	if len(got.Ref.Elems) != 0 {
		t.Errorf("rest = %v, want an empty list", got.Ref.Elems)
	}
}

func TestRestParameterCollectsExtraArguments(t *testing.T) {
	m := runSource(t, "fn f(a, ...rest) = rest\nresult := f(1, 2, 3)")
	got, ok := globalValue(t, m, "result").(value.List)
	if !ok {
		t.Fatalf("result is %T, want value.List", globalValue(t, m, "result"))
	}
	if len(got.Ref.Elems) != 2 || got.Ref.Elems[0] != value.Int(2) || got.Ref.Elems[1] != value.Int(3) {
		t.Errorf("rest = %v, want [2, 3]", got.Ref.Elems)
	}
}

// TestLocalObjectDestructureDefinitionBindsByName is a regression test
// for the DefLocalObj fix: binding must follow the compile-time fixed
// key order, not a runtime map's randomized iteration order, so x and y
// consistently end up bound to the fields actually named "a" and "b".
func TestLocalObjectDestructureDefinitionBindsByName(t *testing.T) {
	m := runSource(t, "fn f() = { {a: x, b: y} := {a: 1, b: 2} x - y }\nresult := f()")
	if got := globalValue(t, m, "result"); got != value.Int(-1) {
		t.Errorf("result = %v, want -1", got)
	}
}

func TestLocalObjectDestructureDefinitionMissingKeyIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "fn f() = { {a: x, b: y} := {a: 1} x } \nresult := f()")
	if err == nil {
		t.Fatal("expected a runtime error destructuring a missing key")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "does not exist") {
		t.Errorf("RuntimeError.Message = %q, want it to mention the missing key", re.Message)
	}
}

func TestListIndexOutOfBoundsIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "lst := [1, 2, 3]\nresult := lst.5")
	if err == nil {
		t.Fatal("expected a runtime error indexing out of bounds")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "invalid index") {
		t.Errorf("RuntimeError.Message = %q, want it to mention an invalid index", re.Message)
	}
}

func TestListIndexInBoundsReadsTheElement(t *testing.T) {
	m := runSource(t, "lst := [10, 20, 30]\nresult := lst.1")
	if got := globalValue(t, m, "result"); got != value.Int(20) {
		t.Errorf("result = %v, want 20", got)
	}
}

func TestWritingToAnImmutableListIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "lst := [1, 2, 3]\nlst.0 = 9")
	if err == nil {
		t.Fatal("expected a runtime error writing to an immutable list")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "immutable") {
		t.Errorf("RuntimeError.Message = %q, want it to mention immutability", re.Message)
	}
}

// Rest-parameter lists are packed by the call path as mutable (they
// are freshly allocated per call, owned solely by the callee), so a
// function closing over ...rest is the reliable way to exercise a
// mutable list without depending on mut-literal syntax.
func TestWritingToARestParameterListSucceeds(t *testing.T) {
	m := runSource(t, "fn f(...rest) = { rest.0 = 9 rest }\nresult := f(1, 2, 3)")
	got, ok := globalValue(t, m, "result").(value.List)
	if !ok {
		t.Fatalf("result is %T, want value.List", globalValue(t, m, "result"))
	}
	want := []value.Value{value.Int(9), value.Int(2), value.Int(3)}
	if len(got.Ref.Elems) != len(want) {
		t.Fatalf("result = %v, want %v", got.Ref.Elems, want)
	}
	for i := range want {
		if got.Ref.Elems[i] != want[i] {
			t.Errorf("result[%d] = %v, want %v", i, got.Ref.Elems[i], want[i])
		}
	}
}

func TestWritingToATupleIsAlwaysRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "t := (1, 2)\nt.0 = 9")
	if err == nil {
		t.Fatal("expected a runtime error writing to a tuple")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "immutable") {
		t.Errorf("RuntimeError.Message = %q, want it to mention immutability", re.Message)
	}
}

func TestMatchDispatchesToMatchingLiteralBranch(t *testing.T) {
	m := runSource(t, "result := match 2 with case 1 => 10 case 2 => 20 case _ => 30")
	if got := globalValue(t, m, "result"); got != value.Int(20) {
		t.Errorf("result = %v, want 20", got)
	}
}

func TestMatchFallsThroughToWildcardBranch(t *testing.T) {
	m := runSource(t, "result := match 99 with case 1 => 10 case 2 => 20 case _ => 30")
	if got := globalValue(t, m, "result"); got != value.Int(30) {
		t.Errorf("result = %v, want 30", got)
	}
}

func TestUndefinedGlobalReferenceIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "result := undefinedName")
	if err == nil {
		t.Fatal("expected a runtime error referencing an undefined global")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "not defined") {
		t.Errorf("RuntimeError.Message = %q, want it to mention the name is not defined", re.Message)
	}
}

func TestRedefiningAnExistingGlobalIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "x := 1\nx := 2")
	if err == nil {
		t.Fatal("expected a runtime error redefining an existing global")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "already defined") {
		t.Errorf("RuntimeError.Message = %q, want it to mention the global is already defined", re.Message)
	}
}

func TestReassigningAnImmutableGlobalIsRuntimeError(t *testing.T) {
	_, err := compileAndRun(t, "x := 1\nx = 2")
	if err == nil {
		t.Fatal("expected a runtime error reassigning an immutable global")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, "immutable") {
		t.Errorf("RuntimeError.Message = %q, want it to mention immutability", re.Message)
	}
}

func TestNativeLenWorksOnAList(t *testing.T) {
	m := runSource(t, "result := len([1, 2, 3])")
	if got := globalValue(t, m, "result"); got != value.Int(3) {
		t.Errorf("result = %v, want 3", got)
	}
}

func TestNativeTypeReturnsTypeName(t *testing.T) {
	m := runSource(t, "result := type(1)")
	got, ok := globalValue(t, m, "result").(value.Str)
	if !ok || got.Ref.Text != "integer" {
		t.Errorf("result = %#v, want a Str holding \"integer\"", globalValue(t, m, "result"))
	}
}

// TestNativeErrorUnwindsThroughANamedFrame checks that a native's
// runtime error still carries its own placeholder frame in the trace,
// following the "native calls are real (if bodiless) frames" design.
func TestNativeErrorUnwindsThroughANamedFrame(t *testing.T) {
	_, err := compileAndRun(t, "result := len(1, 2)")
	if err == nil {
		t.Fatal("expected a runtime error calling len with the wrong argument count")
	}
	re, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	found := false
	for _, tr := range re.Trace {
		if tr.FuncName == "len" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the trace to contain a frame named \"len\", got %+v", re.Trace)
	}
}

func TestRuntimeErrorFormatsTraceWithFunctionNames(t *testing.T) {
	_, err := compileAndRun(t, "fn f() = 1 / 0\nresult := f()")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "RuntimeError") {
		t.Errorf("Error() = %q, want it to start with the RuntimeError marker", msg)
	}
	if !strings.Contains(msg, "at f (line") {
		t.Errorf("Error() = %q, want it to name the failing frame \"f\"", msg)
	}
}

func TestFunctionCallsAnotherFunctionAndReturnsThroughBothFrames(t *testing.T) {
	m := runSource(t, "fn square(n) = n * n\nfn sumOfSquares(a, b) = square(a) + square(b)\nresult := sumOfSquares(3, 4)")
	if got := globalValue(t, m, "result"); got != value.Int(25) {
		t.Errorf("result = %v, want 25", got)
	}
}

func TestIfExpressionProducesElseBranchValue(t *testing.T) {
	m := runSource(t, "result := if false { 1 } else { 2 }")
	if got := globalValue(t, m, "result"); got != value.Int(2) {
		t.Errorf("result = %v, want 2", got)
	}
}

func TestIfExpressionWithNoElseProducesNilWhenConditionIsFalse(t *testing.T) {
	m := runSource(t, "result := if false { 1 }")
	if _, ok := globalValue(t, m, "result").(value.Nil); !ok {
		t.Errorf("result = %#v, want Nil", globalValue(t, m, "result"))
	}
}
