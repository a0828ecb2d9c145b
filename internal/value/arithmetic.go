package value

import (
	"fmt"
	"math"
)

// arithError reports a type mismatch the way the VM's runtime-error path
// expects: as a plain error rather than an exception, per the
// result-returning arithmetic redesign. Division and modulo by zero are
// not type mismatches — they follow IEEE-754 and produce inf/nan.
type arithError struct{ msg string }

func (e *arithError) Error() string { return e.msg }

func errf(format string, args ...interface{}) error {
	return &arithError{msg: fmt.Sprintf(format, args...)}
}

// Add implements the Add opcode for the two operand pairs the language
// supports: Number+Number and String+String (concatenation).
func Add(a, b Value) (Value, error) {
	if a.Tag == TagNumber && b.Tag == TagNumber {
		return NewNumber(a.Number + b.Number), nil
	}
	if as, ok := asString(a); ok {
		if bs, ok := asString(b); ok {
			return NewObject(&String{Data: as.Data + bs.Data}), nil
		}
	}
	return Value{}, errf("operands to binary expression must be numbers or strings")
}

func Sub(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to binary expression must be numbers")
	}
	return NewNumber(a.Number - b.Number), nil
}

func Mul(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to binary expression must be numbers")
	}
	return NewNumber(a.Number * b.Number), nil
}

func Div(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to binary expression must be numbers")
	}
	return NewNumber(a.Number / b.Number), nil
}

func Mod(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to binary expression must be numbers")
	}
	return NewNumber(math.Mod(a.Number, b.Number)), nil
}

func Pow(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to binary expression must be numbers")
	}
	return NewNumber(math.Pow(a.Number, b.Number)), nil
}

// Greater and Less implement the Greater/Less opcodes. <= and >= both
// lower to Greater, Not at the compiler level (see the compiler package),
// so only these two comparisons exist at the value layer.
func Greater(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to comparison must be numbers")
	}
	return NewBool(a.Number > b.Number), nil
}

func Less(a, b Value) (Value, error) {
	if a.Tag != TagNumber || b.Tag != TagNumber {
		return Value{}, errf("operands to comparison must be numbers")
	}
	return NewBool(a.Number < b.Number), nil
}

// Negate implements the Negate opcode.
func Negate(v Value) (Value, error) {
	if v.Tag != TagNumber {
		return Value{}, errf("negation operand must be a number")
	}
	return NewNumber(-v.Number), nil
}

func asString(v Value) (*String, bool) {
	if v.Tag != TagObject {
		return nil, false
	}
	s, ok := v.Obj.(*String)
	return s, ok
}
