// Package value implements the tagged Value union and the heap Object
// hierarchy (String, Function, NativeFunction, Tuple) that the compiler
// and VM pass around.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Tag discriminates the five operand kinds a Value can carry. Address is
// not a user-visible type: it only ever appears as an instruction operand
// (pushed by LoadAddr, or pooled as SetFromTuple's count) and is consumed
// by the compound-assignment, Increment/Decrement and SetFromTuple opcodes.
type Tag uint8

const (
	TagNil Tag = iota
	TagNumber
	TagBool
	TagObject
	TagAddress
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagNumber:
		return "number"
	case TagBool:
		return "bool"
	case TagObject:
		return "object"
	case TagAddress:
		return "address"
	default:
		return "unknown"
	}
}

// Value is the VM's universal operand. Exactly one of the payload fields
// is meaningful, selected by Tag.
type Value struct {
	Tag     Tag
	Number  float64
	Bool    bool
	Obj     Object
	Address uint16
}

func Nil() Value                 { return Value{Tag: TagNil} }
func NewNumber(n float64) Value  { return Value{Tag: TagNumber, Number: n} }
func NewBool(b bool) Value       { return Value{Tag: TagBool, Bool: b} }
func NewObject(o Object) Value   { return Value{Tag: TagObject, Obj: o} }
func NewAddress(a uint16) Value  { return Value{Tag: TagAddress, Address: a} }

// Clone deep-copies any held Object; scalar tags are copied by value
// already. Only immutable objects (String, Function, NativeFunction)
// return themselves from Clone and so may be shared between the VM's
// memory array and operand stack; a *Tuple is copied, because two Values
// sharing a mutable *Tuple would otherwise observe each other's writes.
func (v Value) Clone() Value {
	if v.Tag == TagObject && v.Obj != nil {
		return Value{Tag: TagObject, Obj: v.Obj.Clone()}
	}
	return v
}

// IsFalsy implements the language's truthiness rule: nil and false are
// falsy, everything else is truthy.
func (v Value) IsFalsy() bool {
	switch v.Tag {
	case TagNil:
		return true
	case TagBool:
		return !v.Bool
	default:
		return false
	}
}

// ToString renders a Value the way Print and the ToString opcode do.
func (v Value) ToString() string {
	switch v.Tag {
	case TagNumber:
		return formatNumber(v.Number)
	case TagBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case TagNil:
		return "nil"
	case TagObject:
		if v.Obj == nil {
			return "nil"
		}
		return v.Obj.String()
	case TagAddress:
		return fmt.Sprintf("<addr %d>", v.Address)
	default:
		return "<unknown>"
	}
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Cmp implements the Cmp opcode: structural equality. Tags must match;
// Objects compare via the object's own identity rule (String compares by
// intern identity, others by pointer).
func Cmp(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNil:
		return true
	case TagBool:
		return a.Bool == b.Bool
	case TagNumber:
		return a.Number == b.Number
	case TagAddress:
		return a.Address == b.Address
	case TagObject:
		return objectsEqual(a.Obj, b.Obj)
	default:
		return false
	}
}

func objectsEqual(a, b Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	if as, ok := a.(*String); ok {
		bs, ok := b.(*String)
		return ok && as == bs
	}
	return a == b
}

// TypeCmp implements the TypeCmp opcode: true iff the two values carry the
// same tag (and, for Objects, the same concrete object kind).
func TypeCmp(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	if a.Tag != TagObject {
		return true
	}
	if a.Obj == nil || b.Obj == nil {
		return a.Obj == b.Obj
	}
	return a.Obj.Type() == b.Obj.Type()
}

// ObjectType discriminates the four heap object kinds this language
// allows as first-class values.
type ObjectType uint8

const (
	ObjString ObjectType = iota
	ObjFunction
	ObjNativeFunction
	ObjTuple
)

func (t ObjectType) String() string {
	switch t {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNativeFunction:
		return "native function"
	case ObjTuple:
		return "tuple"
	default:
		return "object"
	}
}

// Object is any heap-resident value. Arithmetic dispatches on the
// concrete type via the package-level Add/Sub/... helpers below rather
// than through virtual methods on the interface, matching the tagged-
// variant redesign noted for this value model.
type Object interface {
	Type() ObjectType
	String() string
	Clone() Object
}

// String is an interned, immutable string object. Equality between two
// Strings is pointer equality into the owning Interner's table.
type String struct {
	Data string
}

func (s *String) Type() ObjectType { return ObjString }
func (s *String) String() string   { return s.Data }
func (s *String) Clone() Object    { return s } // immutable: sharing is safe

// Function is a compiled, named function: a parameter count and its own
// Chunk. Chunk is typed interface{} (concretely *chunk.Chunk) to avoid an
// import cycle between value and chunk — chunk.Chunk already holds
// []value.Value as its constant pool.
type Function struct {
	Name       string
	ParamCount int
	ParamBase  int
	Chunk      interface{}
}

func (f *Function) Type() ObjectType { return ObjFunction }
func (f *Function) String() string   { return f.Name }
func (f *Function) Clone() Object    { return f } // compiled code is shared, never mutated

// InterpretResult is the VM's halt/continue signal, shared with native
// functions so they can report a runtime error without importing the vm
// package.
type InterpretResult uint8

const (
	ResultOk InterpretResult = iota
	ResultCompileError
	ResultRuntimeError
)

// NativeVM is the minimal surface a NativeFunction needs from the VM:
// enough to read its arguments off the operand stack, push a result,
// raise a runtime error, and do the handful of things panic/input need
// (write a prompt, read a line, intern the result). Defined here (not in
// package vm) so that NativeFunction.Fn can be typed without an import
// cycle, and so Natives (natives.go) can be constructed once at compile time
// rather than per-VM.
type NativeVM interface {
	Push(v Value)
	Pop() Value
	RuntimeError(format string, args ...interface{})
	Print(s string)
	ReadLine() string
	Intern(s string) *String
}

type NativeFn func(vm NativeVM) InterpretResult

// NativeFunction is a builtin exposed to the language under the contract
// `(VM&) -> InterpretResult`: it manipulates the operand stack directly
// rather than receiving/returning Values like a Go function would.
type NativeFunction struct {
	Name       string
	ParamCount int
	Fn         NativeFn
}

func (n *NativeFunction) Type() ObjectType { return ObjNativeFunction }
func (n *NativeFunction) String() string   { return n.Name }
func (n *NativeFunction) Clone() Object    { return n }

// Tuple ships multiple return values and is destructured on the receiver
// side by SetFromTuple.
type Tuple struct {
	Length int
	Data   []Value
}

func (t *Tuple) Type() ObjectType { return ObjTuple }

func (t *Tuple) String() string {
	s := "("
	for i, v := range t.Data {
		if i > 0 {
			s += ", "
		}
		s += v.ToString()
	}
	return s + ")"
}

func (t *Tuple) Clone() Object {
	data := make([]Value, len(t.Data))
	for i, v := range t.Data {
		data[i] = v.Clone()
	}
	return &Tuple{Length: t.Length, Data: data}
}
