package compiler

import (
	"strconv"

	"nx-lang/internal/chunk"
	"nx-lang/internal/token"
	"nx-lang/internal/value"
)

type precedence uint8

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type prefixFn func(c *Compiler) exprResult
type infixFn func(c *Compiler, left exprResult) exprResult

type parseRule struct {
	prefix     prefixFn
	infix      infixFn
	precedence precedence
}

var rules map[token.TokenType]parseRule

func init() {
	rules = map[token.TokenType]parseRule{
		token.LeftParen:     {grouping, call, precCall},
		token.Minus:         {unary, binary, precTerm},
		token.Plus:          {nil, binary, precTerm},
		token.Slash:         {nil, binary, precFactor},
		token.Star:          {nil, binary, precFactor},
		token.Caret:         {nil, binary, precPrimary},
		token.Percent:       {nil, binary, precFactor},
		token.Bang:          {unary, nil, precNone},
		token.BangEqual:     {nil, binary, precEquality},
		token.EqualEqual:    {nil, binary, precComparison},
		token.Greater:       {nil, binary, precComparison},
		token.GreaterEqual:  {nil, binary, precComparison},
		token.Less:          {nil, binary, precComparison},
		token.LessEqual:     {nil, binary, precComparison},
		token.Identifier:    {variableRule, nil, precNone},
		token.String:        {stringRule, nil, precNone},
		token.FStringStart:  {fstringRule, nil, precNone},
		token.Number:        {numberRule, nil, precNone},
		token.And:           {nil, binary, precAnd},
		token.Is:            {nil, binary, precAnd},
		token.False:         {literalRule, nil, precNone},
		token.True:          {literalRule, nil, precNone},
		token.Nil:           {literalRule, nil, precNone},
		token.Or:            {nil, binary, precOr},
		token.If:            {ifExpr, nil, precNone},
	}
}

func getRule(t token.TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{}
}

func (c *Compiler) expression() exprResult {
	return c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) exprResult {
	c.advance()

	rule := getRule(c.previous.Type)
	if rule.prefix == nil {
		c.error("expected expression")
		return emitted()
	}

	canAssign := prec <= precAssignment
	c.canAssign = canAssign

	left := rule.prefix(c)

	for {
		infixRule := getRule(c.current.Type)
		if infixRule.infix == nil || prec > infixRule.precedence {
			break
		}
		c.advance()
		left = infixRule.infix(c, left)
	}

	if canAssign && c.check(token.Equal) {
		c.error("invalid assignment target")
	}

	return left
}

func numberRule(c *Compiler) exprResult {
	f, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	return known(value.NewNumber(f))
}

func literalRule(c *Compiler) exprResult {
	switch c.previous.Type {
	case token.True:
		return known(value.NewBool(true))
	case token.False:
		return known(value.NewBool(false))
	case token.Nil:
		return known(value.Nil())
	}
	return emitted()
}

// stringRule always emits — the original's "skip if intern entry
// exists" is just what Interner.Intern already does; every string
// literal reuses its pooled *String without the compiler needing to
// special-case repeats.
func stringRule(c *Compiler) exprResult {
	s := c.interner.Intern(c.previous.Lexeme)
	c.emitConstant(value.NewObject(s))
	r := emitted()
	r.isStringLit = true
	return r
}

// fstringRule builds the interpolated string by folding successive
// Add onto an empty accumulator, ToString-converting each interpolated
// part that isn't already textual.
func fstringRule(c *Compiler) exprResult {
	c.emitConstant(value.NewObject(c.interner.Intern("")))

	for !c.check(token.FStringEnd) {
		part := c.expression()
		c.flush(part)
		if !part.isStringLit {
			c.emitBytes(chunk.OpToString)
		}
		c.emitBytes(chunk.OpAdd)
	}

	c.advance() // consumes FStringEnd, flips the lexer back to normal mode
	return emitted()
}

func grouping(c *Compiler) exprResult {
	first := c.expression()

	if c.check(token.Comma) {
		c.flush(first)
		count := 1
		for c.match(token.Comma) {
			el := c.expression()
			c.flush(el)
			count++
			if count > maxArity {
				c.error("too many return values")
			}
		}
		c.consume(token.RightParen, "expected ')' after tuple")
		c.emitConstructTuple(count, c.previous.Line)
		return emitted()
	}

	c.consume(token.RightParen, "expected ')' after expression")
	return first
}

func unary(c *Compiler) exprResult {
	op := c.previous.Type
	operand := c.parsePrecedence(precUnary)

	if operand.known {
		switch op {
		case token.Minus:
			v, err := value.Negate(operand.value)
			if err != nil {
				c.error(err.Error())
				return emitted()
			}
			return known(v)
		case token.Bang:
			return known(value.NewBool(operand.value.IsFalsy()))
		}
	}

	c.flush(operand)

	switch op {
	case token.Minus:
		c.emitBytes(chunk.OpNegate)
	case token.Bang:
		c.emitBytes(chunk.OpNot)
	}
	return emitted()
}

// binary always flushes both operands before emitting its opcode,
// rather than attempting to fold two still-pending constants the way
// the original's cache does. The original's fold can misorder the
// stack when exactly one side is foldable and the other emits
// bytecode of its own (a real operand-ordering hazard for
// non-commutative operators) — flushing the left side before parsing
// the right side sidesteps that entirely, at the cost of never folding
// a binary expression purely at compile time. Folding a lone literal
// or a unary-negated literal still happens, via flush itself.
func binary(c *Compiler, left exprResult) exprResult {
	op := c.previous.Type
	rule := getRule(op)

	c.flush(left)
	right := c.parsePrecedence(rule.precedence + 1)
	c.flush(right)

	switch op {
	case token.BangEqual:
		c.emitBytes(chunk.OpCmp, chunk.OpNot)
	case token.EqualEqual:
		c.emitBytes(chunk.OpCmp)
	case token.Greater:
		c.emitBytes(chunk.OpGreater)
	case token.GreaterEqual:
		c.emitBytes(chunk.OpGreater, chunk.OpNot)
	case token.Less:
		c.emitBytes(chunk.OpLess)
	case token.LessEqual:
		c.emitBytes(chunk.OpGreater, chunk.OpNot)
	case token.Plus:
		c.emitBytes(chunk.OpAdd)
	case token.Minus:
		c.emitBytes(chunk.OpSubtract)
	case token.Star:
		c.emitBytes(chunk.OpMultiply)
	case token.Caret:
		c.emitBytes(chunk.OpPower)
	case token.Percent:
		c.emitBytes(chunk.OpMod)
	case token.Slash:
		c.emitBytes(chunk.OpDivide)
	case token.Or:
		c.emitBytes(chunk.OpOr)
	case token.And:
		c.emitBytes(chunk.OpAnd)
	case token.Is:
		c.emitBytes(chunk.OpTypeCmp)
	}
	return emitted()
}

// ifExpr is the `if cond do a else b` conditional expression form,
// distinct from the if statement: both branches are expressions and
// the whole thing evaluates to whichever one ran.
func ifExpr(c *Compiler) exprResult {
	cond := c.expression()
	c.flush(cond)

	ifJmp := c.emitJump(chunk.OpJif)

	c.consume(token.Do, "expected 'do' after if condition")
	then := c.expression()
	c.flush(then)

	elseJmp := c.emitJump(chunk.OpJump)
	c.patchJump(ifJmp)

	c.consume(token.Else, "an if expression must have a matching else")
	els := c.expression()
	c.flush(els)

	c.patchJump(elseJmp)
	return emitted()
}
