package compiler

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nx-lang/internal/chunk"
	"nx-lang/internal/value"
)

func compileOK(t *testing.T, src string) *chunk.Chunk {
	t.Helper()
	ch, err := New(src).Compile()
	require.NoErrorf(t, err, "unexpected compile error for %q", src)
	return ch
}

func ops(ch *chunk.Chunk) []chunk.OpCode {
	out := make([]chunk.OpCode, len(ch.Code))
	for i, instr := range ch.Code {
		out[i] = instr.Op
	}
	return out
}

func assertOps(t *testing.T, ch *chunk.Chunk, want ...chunk.OpCode) {
	t.Helper()
	require.Equal(t, want, ops(ch))
}

func constAt(ch *chunk.Chunk, instrIdx int) value.Value {
	return ch.Constants[ch.Code[instrIdx].Const]
}

func TestBinaryExpressionNeverFoldsAtCompileTime(t *testing.T) {
	ch := compileOK(t, "1 + 2;")

	assertOps(t, ch, chunk.OpConstant, chunk.OpConstant, chunk.OpAdd, chunk.OpPop)

	if n := constAt(ch, 0).Number; n != 1 {
		t.Fatalf("left operand constant = %v, want 1", n)
	}
	if n := constAt(ch, 1).Number; n != 2 {
		t.Fatalf("right operand constant = %v, want 2", n)
	}
}

func TestUnaryNegationFoldsAtCompileTime(t *testing.T) {
	ch := compileOK(t, "-5;")

	assertOps(t, ch, chunk.OpConstant, chunk.OpPop)

	if n := constAt(ch, 0).Number; n != -5 {
		t.Fatalf("folded constant = %v, want -5", n)
	}
}

func TestVarDeclarationAndPrint(t *testing.T) {
	ch := compileOK(t, "var x = 1\nprint x")

	assertOps(t, ch, chunk.OpConstant, chunk.OpSetMem, chunk.OpGetMem, chunk.OpPrint)

	setSlot := constAt(ch, 1).Number
	getSlot := constAt(ch, 2).Number
	if setSlot != getSlot {
		t.Fatalf("SetMem slot %v != GetMem slot %v", setSlot, getSlot)
	}
}

func TestConstReassignmentIsCompileError(t *testing.T) {
	_, err := New("const x = 1\nx = 2").Compile()
	if err == nil {
		t.Fatalf("expected reassigning a const to fail to compile")
	}
}

func TestUndeclaredVariableIsCompileError(t *testing.T) {
	_, err := New("print y").Compile()
	if err == nil {
		t.Fatalf("expected reading an undeclared variable to fail to compile")
	}
}

func TestCompoundAssignYieldsNewValue(t *testing.T) {
	// `var y = x += 1` should read x's *post*-assignment value.
	ch := compileOK(t, "var x = 1\nvar y = x += 1")

	assertOps(t, ch,
		chunk.OpConstant, chunk.OpSetMem, // var x = 1
		chunk.OpConstant, chunk.OpLoadAddr, chunk.OpAdd, chunk.OpGetMem, // x += 1
		chunk.OpSetMem, // var y = ...
	)
}

func TestPostIncrementYieldsOldValue(t *testing.T) {
	ch := compileOK(t, "var x = 1\nvar y = x++")

	assertOps(t, ch,
		chunk.OpConstant, chunk.OpSetMem, // var x = 1
		chunk.OpGetMem, chunk.OpLoadAddr, chunk.OpIncrement, // x++ : old value first, then mutate
		chunk.OpSetMem, // var y = ...
	)
}

func TestTupleConstructionAndDestructuring(t *testing.T) {
	ch := compileOK(t, "var (a, b) = (1, 2)\nprint a")

	assertOps(t, ch,
		chunk.OpConstant, chunk.OpConstant, chunk.OpConstant, chunk.OpConstructTuple, // (1, 2)
		chunk.OpLoadAddr, chunk.OpSetFromTuple, // writes straight into a's and b's slots
		chunk.OpGetMem, chunk.OpPrint,
	)
}

func TestFunctionDeclarationAndCall(t *testing.T) {
	ch := compileOK(t, "fn add(a, b) {\n  return a + b\n}\nvar r = add(1, 2)\nprint r")

	assertOps(t, ch,
		chunk.OpConstant, chunk.OpSetMem, // fn add = <function>
		chunk.OpConstant, chunk.OpConstant, // push args 1, 2
		chunk.OpGetMem, // push the callee last
		chunk.OpCall,
		chunk.OpSetMem, // var r = add(1, 2)
		chunk.OpGetMem, chunk.OpPrint,
	)

	fnVal := constAt(ch, 0)
	fn, ok := fnVal.Obj.(*value.Function)
	if !ok {
		t.Fatalf("expected the declared function's constant to hold a *value.Function")
	}
	if fn.ParamCount != 2 {
		t.Fatalf("ParamCount = %d, want 2", fn.ParamCount)
	}

	body, ok := fn.Chunk.(*chunk.Chunk)
	if !ok {
		t.Fatalf("expected fn.Chunk to be *chunk.Chunk")
	}
	assertOps(t, body,
		chunk.OpGetMem, chunk.OpGetMem, chunk.OpAdd, chunk.OpReturn, // return a + b
		chunk.OpConstant, chunk.OpReturn, // implicit fall-through return nil
	)
}

func TestMultiValueReturnPacksATuple(t *testing.T) {
	ch := compileOK(t, "fn swap(a, b) {\n  return b, a\n}\nvar (p, q) = swap(1, 2)")

	fnVal := constAt(ch, 0)
	fn, ok := fnVal.Obj.(*value.Function)
	if !ok {
		t.Fatalf("expected the declared function's constant to hold a *value.Function")
	}

	body, ok := fn.Chunk.(*chunk.Chunk)
	if !ok {
		t.Fatalf("expected fn.Chunk to be *chunk.Chunk")
	}
	assertOps(t, body,
		chunk.OpGetMem, chunk.OpGetMem, chunk.OpConstant, chunk.OpConstructTuple, chunk.OpReturn, // return b, a
		chunk.OpConstant, chunk.OpReturn, // implicit fall-through return nil
	)
}

func TestRecursiveCallResolvesOwnName(t *testing.T) {
	_, err := New("fn fact(n) {\n  if n == 0 { return 1 }\n  return n * fact(n - 1)\n}\nprint fact(5)").Compile()
	if err != nil {
		t.Fatalf("expected recursive call to resolve, got: %s", err)
	}
}

func TestWhileLoopHasBackwardJump(t *testing.T) {
	ch := compileOK(t, "var i = 0\nwhile i < 3 {\n  i += 1\n}")

	found := false
	for _, instr := range ch.Code {
		if instr.Op == chunk.OpRollBack {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a while loop to emit a RollBack instruction")
	}
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	_, err := New("break").Compile()
	if err == nil {
		t.Fatalf("expected a bare break outside any loop to fail to compile")
	}
}

func TestForRangeLoopCompiles(t *testing.T) {
	ch := compileOK(t, "for i in 0..3 {\n  print i\n}")

	var rollbacks, jifs int
	for _, instr := range ch.Code {
		switch instr.Op {
		case chunk.OpRollBack:
			rollbacks++
		case chunk.OpJif:
			jifs++
		}
	}
	if rollbacks != 1 || jifs != 1 {
		t.Fatalf("range for: got %d RollBack and %d Jif, want 1 and 1", rollbacks, jifs)
	}
}

func TestCStyleForLoopCompiles(t *testing.T) {
	ch := compileOK(t, "for i = 0; i < 3; i++ {\n  print i\n}")

	var rollbacks int
	for _, instr := range ch.Code {
		if instr.Op == chunk.OpRollBack {
			rollbacks++
		}
	}
	if rollbacks != 2 {
		t.Fatalf("C-style for: got %d RollBack, want 2 (one to condition, one to increment)", rollbacks)
	}
}

func TestSwitchStatementHasNoFallthroughJumps(t *testing.T) {
	ch := compileOK(t, `switch 1 {
  0: print "zero"
  1: print "one"
  default: print "other"
}`)

	var jumps int
	for _, instr := range ch.Code {
		if instr.Op == chunk.OpJump {
			jumps++
		}
	}
	if jumps != 2 {
		t.Fatalf("expected one exit jump per non-default case (2), got %d", jumps)
	}
}

func TestFStringConcatenatesParts(t *testing.T) {
	ch := compileOK(t, "var name = \"world\"\nprint f\"hi {name}!\"")

	var toStrings, adds int
	for _, instr := range ch.Code {
		switch instr.Op {
		case chunk.OpToString:
			toStrings++
		case chunk.OpAdd:
			adds++
		}
	}
	if toStrings != 1 {
		t.Fatalf("expected exactly one ToString, converting the interpolated {name} part, got %d", toStrings)
	}
	if adds != 3 {
		t.Fatalf("expected 3 Add ops folding \"hi \", name, and \"!\" onto the accumulator, got %d", adds)
	}
}

func TestNativeBuiltinsPreDeclared(t *testing.T) {
	c := New("")
	for _, nf := range value.Natives {
		v, ok := c.resolveVar(nf.Name)
		if !ok {
			t.Fatalf("builtin %q was not pre-declared", nf.Name)
		}
		if v.kind != varKindNative {
			t.Fatalf("builtin %q has kind %v, want varKindNative", nf.Name, v.kind)
		}
		if v.native != nf {
			t.Fatalf("builtin %q did not carry its shared native object", nf.Name)
		}
	}
}

func TestPanicCallCompiles(t *testing.T) {
	ch := compileOK(t, `panic("boom")`)

	// arg, then the native object itself (it owns no memory slot), then Call.
	assertOps(t, ch, chunk.OpConstant, chunk.OpConstant, chunk.OpCall, chunk.OpPop)

	native, ok := constAt(ch, 1).Obj.(*value.NativeFunction)
	if !ok || native.Name != "panic" {
		t.Fatalf("expected the second constant to be the panic NativeFunction")
	}
}

func TestBareNativeReferenceIsCompileError(t *testing.T) {
	_, err := New("print panic;").Compile()
	if err == nil {
		t.Fatalf("expected referencing panic without calling it to fail to compile")
	}

	_, err = New("var f = panic").Compile()
	if err == nil {
		t.Fatalf("expected assigning panic without calling it to fail to compile")
	}
}

func TestDuplicateIdentifierInSameScopeIsCompileError(t *testing.T) {
	_, err := New("var x = 1\nvar x = 2").Compile()
	if err == nil {
		t.Fatalf("expected declaring x twice in the same scope to fail to compile")
	}
}

func TestDuplicateIdentifierInNestedScopeIsAllowed(t *testing.T) {
	_, err := New("var x = 1\n{ var x = 2\n print x }").Compile()
	if err != nil {
		t.Fatalf("expected shadowing x in a nested scope to compile, got: %s", err)
	}
}

func TestTooManyParametersIsCompileError(t *testing.T) {
	params := make([]string, maxArity+1)
	for i := range params {
		params[i] = "p" + strconv.Itoa(i)
	}
	src := "fn f(" + strings.Join(params, ", ") + ") { return 0 }"
	_, err := New(src).Compile()
	if err == nil {
		t.Fatalf("expected declaring %d parameters to fail to compile", maxArity+1)
	}
}

func TestTooManyArgumentsIsCompileError(t *testing.T) {
	args := make([]string, maxArity+1)
	for i := range args {
		args[i] = "1"
	}
	src := "fn f() { return 0 }\nf(" + strings.Join(args, ", ") + ")"
	_, err := New(src).Compile()
	if err == nil {
		t.Fatalf("expected passing %d arguments to fail to compile", maxArity+1)
	}
}

func TestTooManyReturnValuesIsCompileError(t *testing.T) {
	vals := make([]string, maxArity+1)
	for i := range vals {
		vals[i] = "1"
	}
	src := "fn f() { return " + strings.Join(vals, ", ") + " }"
	_, err := New(src).Compile()
	if err == nil {
		t.Fatalf("expected returning %d values to fail to compile", maxArity+1)
	}
}
