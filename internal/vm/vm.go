// Package vm executes the bytecode a compiler.Compiler produces: a
// single-threaded dispatch loop over a call-frame stack and an operand
// stack, reading and writing a fixed-size memory array of Values.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"nx-lang/internal/chunk"
	"nx-lang/internal/diag"
	"nx-lang/internal/value"
)

// MaxDataSize is the fixed size of the VM's memory array — the
// compile-time slot counter and this array are isomorphic, so a program
// that declares more live identifiers than this overflows at runtime
// rather than growing.
const MaxDataSize = 1000

// MaxCallFrames bounds recursion depth.
const MaxCallFrames = 255

// initialStackReserve mirrors the source's reserved operand-stack
// capacity; the stack itself still grows past this via append.
const initialStackReserve = 1000

// CallFrame is one in-progress call: which chunk is executing, where in
// it, and (for anything but the top-level static chunk) the Function
// object that chunk belongs to.
type CallFrame struct {
	Fn    *value.Function
	Chunk *chunk.Chunk
	PC    int
}

// VM runs one compiled program. Construct with New, run with Interpret.
type VM struct {
	ID uuid.UUID

	frames []*CallFrame

	stack []value.Value

	mem [MaxDataSize]value.Value

	interner *value.Interner

	state value.InterpretResult

	out io.Writer
	in  *bufio.Reader
}

// New builds a VM that interns runtime-constructed strings (ToString,
// concatenation, input) into the same table the compiler used. Native functions carry
// their own behavior (see value.Natives) and need nothing installed
// here — they reach the VM only through the value.NativeVM interface
// below, at the moment they're actually called.
func New(interner *value.Interner) *VM {
	return &VM{
		ID:       uuid.New(),
		stack:    make([]value.Value, 0, initialStackReserve),
		interner: interner,
		state:    value.ResultOk,
		out:      os.Stdout,
		in:       bufio.NewReader(os.Stdin),
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// SetOutput redirects Print and the input() prompt away from stdout —
// used by tests to capture program output.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// SetInput redirects input()'s line reader away from stdin.
func (vm *VM) SetInput(r io.Reader) { vm.in = bufio.NewReader(r) }

// Interpret runs staticChunk as the program's entry frame. Matches the
// spec's "VM takes ownership of the top-level Function as frame-0"
// lifecycle, except the top-level chunk is never wrapped in a
// value.Function — CallFrame.Fn is nil for frame 0.
func (vm *VM) Interpret(staticChunk *chunk.Chunk) value.InterpretResult {
	vm.frames = []*CallFrame{{Chunk: staticChunk, PC: 0}}
	vm.state = value.ResultOk
	vm.run()
	return vm.state
}

func (vm *VM) run() {
	for vm.state == value.ResultOk {
		frame := vm.frames[len(vm.frames)-1]

		if frame.PC >= len(frame.Chunk.Code) {
			if len(vm.frames) == 1 {
				return
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			continue
		}

		instr := frame.Chunk.Code[frame.PC]
		frame.PC++

		switch instr.Op {
		case chunk.OpConstant:
			vm.push(frame.Chunk.Constants[instr.Const].Clone())

		case chunk.OpTrue:
			vm.push(value.NewBool(true))
		case chunk.OpFalse:
			vm.push(value.NewBool(false))
		case chunk.OpNil:
			vm.push(value.Nil())

		case chunk.OpPop:
			if len(vm.stack) > 0 {
				vm.pop()
			}

		case chunk.OpAdd:
			vm.binaryOrCompound(frame, value.Add)
		case chunk.OpSubtract:
			vm.binaryOrCompound(frame, value.Sub)
		case chunk.OpMultiply:
			vm.binaryOrCompound(frame, value.Mul)
		case chunk.OpDivide:
			vm.binaryOrCompound(frame, value.Div)

		case chunk.OpMod:
			vm.binaryOnly(frame, value.Mod)
		case chunk.OpPower:
			vm.binaryOnly(frame, value.Pow)

		case chunk.OpGreater:
			vm.binaryOnly(frame, value.Greater)
		case chunk.OpLess:
			vm.binaryOnly(frame, value.Less)

		case chunk.OpCmp:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(value.Cmp(a, b)))

		case chunk.OpTypeCmp:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(value.TypeCmp(a, b)))

		case chunk.OpNot:
			a := vm.pop()
			vm.push(value.NewBool(a.IsFalsy()))

		case chunk.OpNegate:
			a := vm.pop()
			r, err := value.Negate(a)
			if err != nil {
				vm.runtimeError(frame, err.Error())
				break
			}
			vm.push(r)

		case chunk.OpIncrement:
			vm.mutateAddress(frame, +1)
		case chunk.OpDecrement:
			vm.mutateAddress(frame, -1)

		case chunk.OpAnd:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(!a.IsFalsy() && !b.IsFalsy()))

		case chunk.OpOr:
			b := vm.pop()
			a := vm.pop()
			switch {
			case !a.IsFalsy():
				vm.push(a)
			case !b.IsFalsy():
				vm.push(b)
			default:
				vm.push(value.NewBool(false))
			}

		case chunk.OpToString:
			a := vm.pop()
			vm.push(value.NewObject(vm.interner.Intern(a.ToString())))

		case chunk.OpSetMem:
			slot := vm.slotOf(frame, instr)
			vm.mem[slot] = vm.pop()

		case chunk.OpGetMem:
			slot := vm.slotOf(frame, instr)
			vm.push(vm.mem[slot].Clone())

		case chunk.OpLoadAddr:
			slot := vm.slotOf(frame, instr)
			vm.push(value.NewAddress(uint16(slot)))

		case chunk.OpPrint:
			a := vm.pop()
			fmt.Fprintln(vm.out, a.ToString())

		case chunk.OpJif:
			offset := int(frame.Chunk.Constants[instr.Const].Number)
			v := vm.pop()
			if v.IsFalsy() {
				frame.PC += offset
			}

		case chunk.OpJump:
			offset := int(frame.Chunk.Constants[instr.Const].Number)
			frame.PC += offset

		case chunk.OpRollBack:
			offset := int(frame.Chunk.Constants[instr.Const].Number)
			frame.PC -= offset

		case chunk.OpConstructTuple:
			shellVal := vm.pop()
			shell, ok := shellVal.Obj.(*value.Tuple)
			if shellVal.Tag != value.TagObject || !ok {
				vm.runtimeError(frame, "ConstructTuple expects a tuple shell on top of the stack")
				break
			}
			count := shell.Length
			if len(vm.stack) < count {
				vm.runtimeError(frame, "not enough values on the stack to construct a tuple")
				break
			}
			data := make([]value.Value, count)
			for i := count - 1; i >= 0; i-- {
				data[i] = vm.pop()
			}
			vm.push(value.NewObject(&value.Tuple{Length: count, Data: data}))

		case chunk.OpSetFromTuple:
			idCount := int(frame.Chunk.Constants[instr.Const].Address)
			start := int(vm.pop().Address)
			v := vm.pop()
			if tup, ok := v.Obj.(*value.Tuple); ok && v.Tag == value.TagObject {
				for i := 0; i < idCount; i++ {
					if i < len(tup.Data) {
						vm.mem[start+i] = tup.Data[i].Clone()
					} else {
						vm.mem[start+i] = value.Nil()
					}
				}
			} else {
				vm.mem[start] = v
				for i := 1; i < idCount; i++ {
					vm.mem[start+i] = value.Nil()
				}
			}

		case chunk.OpCall:
			vm.call(frame, instr)

		case chunk.OpReturn:
			if len(vm.frames) == 1 {
				return
			}
			vm.frames = vm.frames[:len(vm.frames)-1]

		case chunk.OpNoOp:
			// nothing

		default:
			vm.runtimeError(frame, fmt.Sprintf("unimplemented opcode %s", instr.Op))
		}
	}
}

func (vm *VM) slotOf(frame *CallFrame, instr chunk.Instruction) int {
	return int(frame.Chunk.Constants[instr.Const].Number)
}

// binaryOrCompound implements the Add/Subtract/Multiply/Divide opcodes,
// which double as in-place compound-assignment operators: when the top
// of the stack is an Address (pushed by a preceding LoadAddr), the
// operation mutates the referenced memory slot instead of pushing a
// result. A String result (concatenation) is interned, so it compares
// equal to any other String with the same content.
func (vm *VM) binaryOrCompound(frame *CallFrame, op func(a, b value.Value) (value.Value, error)) {
	top := vm.peek(0)
	if top.Tag == value.TagAddress {
		addr := vm.pop().Address
		rhs := vm.pop()
		result, err := op(vm.mem[addr], rhs)
		if err != nil {
			vm.runtimeError(frame, err.Error())
			return
		}
		if s, ok := result.Obj.(*value.String); ok {
			result = value.NewObject(vm.interner.Intern(s.Data))
		}
		vm.mem[addr] = result
		return
	}

	b := vm.pop()
	a := vm.pop()
	result, err := op(a, b)
	if err != nil {
		vm.runtimeError(frame, err.Error())
		return
	}
	if s, ok := result.Obj.(*value.String); ok {
		result = value.NewObject(vm.interner.Intern(s.Data))
	}
	vm.push(result)
}

// binaryOnly implements opcodes with no compound-assignment form
// (Mod, Power, Greater, Less): always pop b then a, push the result.
func (vm *VM) binaryOnly(frame *CallFrame, op func(a, b value.Value) (value.Value, error)) {
	b := vm.pop()
	a := vm.pop()
	result, err := op(a, b)
	if err != nil {
		vm.runtimeError(frame, err.Error())
		return
	}
	vm.push(result)
}

// mutateAddress implements Increment/Decrement: pop an Address, bump
// the referenced slot in place, push nothing — the expression's value
// (the old value, read by the GetMem the compiler emits before
// LoadAddr) is already on the stack.
func (vm *VM) mutateAddress(frame *CallFrame, delta float64) {
	top := vm.pop()
	if top.Tag != value.TagAddress {
		vm.runtimeError(frame, "increment/decrement target is not an address")
		return
	}
	slot := vm.mem[top.Address]
	if slot.Tag != value.TagNumber {
		vm.runtimeError(frame, "increment/decrement operand must be a number")
		return
	}
	vm.mem[top.Address] = value.NewNumber(slot.Number + delta)
}

// call implements §4.3.3: arg_count is Call's own baked-in constant
// operand, never pushed at runtime; the callee itself is popped off the
// top of the operand stack, having been pushed there last by a
// preceding GetMem (a user function, read by slot) or Constant (a
// native, which has no slot of its own).
func (vm *VM) call(frame *CallFrame, instr chunk.Instruction) {
	argCount := int(frame.Chunk.Constants[instr.Const].Number)
	callee := vm.pop()

	if callee.Tag != value.TagObject || callee.Obj == nil {
		vm.runtimeError(frame, "non function called")
		return
	}

	switch fn := callee.Obj.(type) {
	case *value.NativeFunction:
		for _, a := range vm.alignedArgs(argCount, fn.ParamCount) {
			vm.push(a)
		}
		result := fn.Fn(vm)
		if result == value.ResultRuntimeError {
			vm.state = value.ResultRuntimeError
		}

	case *value.Function:
		if len(vm.frames) >= MaxCallFrames {
			vm.runtimeError(frame, "call stack overflow")
			return
		}

		args := vm.alignedArgs(argCount, fn.ParamCount)

		body, ok := fn.Chunk.(*chunk.Chunk)
		if !ok {
			vm.runtimeError(frame, "function has no compiled body")
			return
		}

		for i, a := range args {
			vm.mem[fn.ParamBase+i] = a
		}

		vm.frames = append(vm.frames, &CallFrame{Fn: fn, Chunk: body, PC: 0})

	default:
		vm.runtimeError(frame, "non function called")
	}
}

// alignedArgs pops exactly argCount values off the operand stack,
// preserving call order, and returns a paramCount-length slice: short
// by padding with Nil, long by dropping the extras — step 4 of the
// calling convention.
func (vm *VM) alignedArgs(argCount, paramCount int) []value.Value {
	raw := make([]value.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		raw[i] = vm.pop()
	}
	args := make([]value.Value, paramCount)
	for i := range args {
		if i < len(raw) {
			args[i] = raw[i]
		} else {
			args[i] = value.Nil()
		}
	}
	return args
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	if len(vm.stack) == 0 {
		return value.Nil()
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// Push, Pop, RuntimeError, Print, ReadLine and Intern implement
// value.NativeVM, the surface a NativeFunction needs.
func (vm *VM) Push(v value.Value) { vm.push(v) }
func (vm *VM) Pop() value.Value   { return vm.pop() }

func (vm *VM) Print(s string) { fmt.Fprint(vm.out, s) }

func (vm *VM) ReadLine() string {
	line, err := vm.in.ReadString('\n')
	if err != nil && line == "" {
		line = ""
	}
	return trimNewline(line)
}

func (vm *VM) Intern(s string) *value.String { return vm.interner.Intern(s) }

func (vm *VM) RuntimeError(format string, args ...interface{}) {
	vm.runtimeError(vm.frames[len(vm.frames)-1], fmt.Sprintf(format, args...))
}

func (vm *VM) runtimeError(frame *CallFrame, message string) {
	line := 0
	if frame.PC-1 >= 0 && frame.PC-1 < len(frame.Chunk.Code) {
		line = int(frame.Chunk.Code[frame.PC-1].Line)
	}
	diag.RuntimeError(line, message)
	vm.state = value.ResultRuntimeError
}
