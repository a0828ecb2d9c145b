package compiler

import "nx-lang/internal/chunk"
import "nx-lang/internal/value"

// exprResult is what a parsed expression hands back to its caller.
// known marks a value the compiler computed itself at compile time
// and has not emitted any bytecode for yet — flush turns it into a
// real Constant instruction the moment something needs it on the
// operand stack. pushesValue is false only for a bare assignment,
// whose SetMem already nets the stack back to zero.
type exprResult struct {
	known       bool
	value       value.Value
	pushesValue bool
	isStringLit bool
}

func known(v value.Value) exprResult {
	return exprResult{known: true, value: v, pushesValue: true}
}

func emitted() exprResult {
	return exprResult{pushesValue: true}
}

// flush materializes a still-pending known value as a Constant
// instruction. Expressions that were never deferred are a no-op.
func (c *Compiler) flush(e exprResult) {
	if e.known {
		c.emitConstant(e.value)
	}
}

func (c *Compiler) emit(op chunk.OpCode) int {
	return c.activeChunk().Write(op, uint32(c.previous.Line))
}

func (c *Compiler) emitBytes(ops ...chunk.OpCode) {
	for _, op := range ops {
		c.emit(op)
	}
}

func (c *Compiler) emitConstant(v value.Value) int {
	return c.activeChunk().WriteConstant(chunk.OpConstant, v, uint32(c.previous.Line))
}

// emitMem emits an opcode whose operand is a memory slot index,
// pooled as a Number constant the same way any other literal is —
// matching how the original compiler stores a variable's index.
func (c *Compiler) emitMem(op chunk.OpCode, slot int, line int) int {
	return c.activeChunk().WriteConstant(op, value.NewNumber(float64(slot)), uint32(line))
}

// emitJump reserves a constant slot for a not-yet-known jump distance
// and returns the instruction index to patch later.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	idx := c.activeChunk().AddConstant(value.NewNumber(0))
	ch := c.activeChunk()
	ch.Code = append(ch.Code, chunk.Instruction{Op: op, Const: idx, Line: uint32(c.previous.Line)})
	return len(ch.Code) - 1
}

// patchJump fills in the distance from the instruction right after at
// to the current end of the chunk — what the VM adds to its program
// counter (which has already moved past the jump instruction itself
// by the time it reads the operand).
func (c *Compiler) patchJump(at int) {
	ch := c.activeChunk()
	distance := len(ch.Code) - at - 1
	ch.PatchConstant(ch.Code[at].Const, value.NewNumber(float64(distance)))
}

// emitRollback emits a backward jump whose distance is already known
// (the loop start has already been fixed), used to return to the top
// of a loop body. The distance is counted from the instruction after
// the RollBack itself — where the VM's program counter stands when it
// subtracts the operand — back to start.
func (c *Compiler) emitRollback(start int) {
	ch := c.activeChunk()
	distance := len(ch.Code) + 1 - start
	ch.WriteConstant(chunk.OpRollBack, value.NewNumber(float64(distance)), uint32(c.previous.Line))
}

// emitConstRef appends an instruction referencing a constant already
// pooled elsewhere (idx), without pooling a new one — used for the
// `main` coda, which reuses the Function constant fnDeclaration pooled
// for it without ever emitting a SetMem.
func (c *Compiler) emitConstRef(op chunk.OpCode, idx uint16, line int) {
	ch := c.activeChunk()
	ch.Code = append(ch.Code, chunk.Instruction{Op: op, Const: idx, Line: uint32(line)})
}

// emitConstructTuple emits the two instructions a tuple literal or a
// multi-value return packs into one value with: a Constant carrying an
// empty shell Tuple sized to count, then the bare ConstructTuple opcode
// that pops the shell and the count values already under it and pushes
// the populated tuple.
func (c *Compiler) emitConstructTuple(count int, line int) {
	c.activeChunk().WriteConstant(chunk.OpConstant, value.NewObject(&value.Tuple{Length: count}), uint32(line))
	c.activeChunk().Write(chunk.OpConstructTuple, uint32(line))
}

// emitSetFromTuple emits SetFromTuple with idCount pooled as an Address
// constant, the one instruction whose own count operand the opcode
// table encodes as an address rather than a number.
func (c *Compiler) emitSetFromTuple(idCount int, line int) {
	c.activeChunk().WriteConstant(chunk.OpSetFromTuple, value.NewAddress(uint16(idCount)), uint32(line))
}
