package compiler

import (
	"nx-lang/internal/chunk"
	"nx-lang/internal/token"
	"nx-lang/internal/value"
)

// resolveVar walks the scope stack from innermost to outermost, the
// same shadowing rule the original's resolve_var applies.
func (c *Compiler) resolveVar(name string) (*variable, bool) {
	for d := c.scopeDepth; d >= 0; d-- {
		if v, ok := c.scopes[d][name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *Compiler) declareVar(name string, v *variable) {
	if _, exists := c.scopes[c.scopeDepth][name]; exists {
		c.error("duplicate identifier in scope")
	}
	c.scopes[c.scopeDepth][name] = v
}

// beginScope opens a new lexical scope. dataIndex keeps counting up
// across scope and function boundaries — it is one global slot
// allocator, not a per-function-frame-local one.
func (c *Compiler) beginScope() {
	c.scopeDepth++
	c.scopes = append(c.scopes, make(map[string]*variable))
}

// endScope closes the innermost scope and reclaims its slots, the way
// end_scope() unwinds m_data_index by the size of the scope it pops.
func (c *Compiler) endScope() {
	top := c.scopes[len(c.scopes)-1]
	c.dataIndex -= len(top)
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeDepth--
}

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Var):
		c.varDeclaration(true, false)
	case c.match(token.Const):
		c.varDeclaration(true, true)
	case c.match(token.Fn):
		c.fnDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStmt()
	case c.match(token.If):
		c.ifStmt()
	case c.match(token.While):
		c.whileStmt()
	case c.match(token.Switch):
		c.switchStmt()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	case c.match(token.For):
		c.forStmt()
	case c.match(token.Return):
		c.returnStmt()
	case c.match(token.SemiColon):
		return
	case c.match(token.Continue):
		c.continueBreakStmt()
	case c.match(token.Break):
		c.continueBreakStmt()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) expressionStatement() {
	e := c.expression()
	if !e.pushesValue {
		return
	}
	c.flush(e)
	c.emitBytes(chunk.OpPop)
}

func (c *Compiler) printStmt() {
	e := c.expression()
	c.flush(e)
	c.emitBytes(chunk.OpPrint)
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.Eof) {
		c.declaration()
	}
	c.consume(token.RightBrace, "expected '}' at the end of block")
}

func (c *Compiler) ifStmt() {
	cond := c.expression()
	c.flush(cond)

	ifJmp := c.emitJump(chunk.OpJif)
	c.statement()
	elseJmp := c.emitJump(chunk.OpJump)

	c.patchJump(ifJmp)
	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJmp)
}

func (c *Compiler) whileStmt() {
	c.loops = append(c.loops, &loopContext{})
	start := c.activeChunk().Len()

	cond := c.expression()
	c.flush(cond)
	exitJmp := c.emitJump(chunk.OpJif)

	c.statement()

	lc := c.loops[len(c.loops)-1]
	for _, j := range lc.continueJumps {
		c.patchJump(j)
	}
	c.emitRollback(start)
	c.patchJump(exitJmp)
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}

	c.loops = c.loops[:len(c.loops)-1]
}

// continueBreakStmt compiles `continue`/`break` as a forward jump
// recorded on the innermost loop, patched once that loop knows where
// its next-iteration step (continue) and its exit (break) land. A
// switch never opens a loop context of its own, so break/continue
// inside a switch body target the nearest enclosing loop — a switch's
// own cases never fall through, so it has no use for break itself.
func (c *Compiler) continueBreakStmt() {
	if len(c.loops) == 0 {
		c.error("break/continue statement cannot be used outside of a loop")
		return
	}

	lc := c.loops[len(c.loops)-1]
	j := c.emitJump(chunk.OpJump)
	if c.checkLast(token.Break) {
		lc.breakJumps = append(lc.breakJumps, j)
	} else {
		lc.continueJumps = append(lc.continueJumps, j)
	}
}

// forStmt handles both loop forms this language supports: `for name in
// a..b { }` / `a..=b` for an inclusive upper bound, and the three-clause
// `for init; cond; step { }` form. Both are detected from one token of
// lookahead: an identifier followed by `in` is a range loop; an
// identifier not followed by `in` falls back to being the start of an
// ordinary (var-less) declaration in the init clause.
func (c *Compiler) forStmt() {
	c.loops = append(c.loops, &loopContext{})
	c.beginScope()

	if c.check(token.Identifier) {
		name := c.current.Lexeme
		line := c.current.Line
		c.advance()
		if c.match(token.In) {
			c.rangeFor(name, line)
			c.endScope()
			c.loops = c.loops[:len(c.loops)-1]
			return
		}
		c.varDeclaration(false, false)
	} else if !c.check(token.SemiColon) {
		e := c.expression()
		if e.pushesValue {
			c.flush(e)
			c.emitBytes(chunk.OpPop)
		}
	}
	c.consume(token.SemiColon, "expected ';' after for-loop initializer")

	c.cStyleFor()

	c.endScope()
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) rangeFor(name string, line int) {
	index := c.dataIndex
	c.dataIndex++
	c.declareVar(name, &variable{kind: varKindValue, index: index, isMutable: true})

	startExpr := c.expression()
	c.flush(startExpr)
	c.emitMem(chunk.OpSetMem, index, line)

	condStart := c.activeChunk().Len()
	c.emitMem(chunk.OpGetMem, index, line)
	c.consume(token.DotDot, "expected '..' in range")
	inclusive := c.match(token.Equal)
	endExpr := c.expression()
	c.flush(endExpr)
	if inclusive {
		c.emitBytes(chunk.OpGreater, chunk.OpNot)
	} else {
		c.emitBytes(chunk.OpLess)
	}
	exitJmp := c.emitJump(chunk.OpJif)

	c.statement()

	lc := c.loops[len(c.loops)-1]
	for _, j := range lc.continueJumps {
		c.patchJump(j)
	}
	c.emitMem(chunk.OpLoadAddr, index, line)
	c.emitBytes(chunk.OpIncrement)
	c.emitRollback(condStart)

	c.patchJump(exitJmp)
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
}

func (c *Compiler) cStyleFor() {
	condStart := c.activeChunk().Len()
	cond := c.expression()
	c.flush(cond)
	c.consume(token.SemiColon, "expected ';' after for-loop condition")

	exitJmp := c.emitJump(chunk.OpJif)
	bodyJmp := c.emitJump(chunk.OpJump)
	incStart := c.activeChunk().Len()

	inc := c.expression()
	if inc.pushesValue {
		c.flush(inc)
		c.emitBytes(chunk.OpPop)
	}
	c.emitRollback(condStart)
	c.patchJump(bodyJmp)

	c.statement()

	lc := c.loops[len(c.loops)-1]
	for _, j := range lc.continueJumps {
		c.patchJump(j)
	}
	c.emitRollback(incStart)

	c.patchJump(exitJmp)
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
}

// switchStmt compiles a chain of equality tests against one subject
// value, each case running its body and jumping past the rest on
// match — there is no fallthrough. `default`, if present, must be the
// last label.
func (c *Compiler) switchStmt() {
	c.beginScope()

	subject := c.expression()
	c.flush(subject)

	// The subject is kept in a scope-local slot that every case reloads.
	// "switch" is a keyword, so this entry never collides with a user name.
	slot := c.dataIndex
	c.dataIndex++
	c.declareVar("switch", &variable{kind: varKindValue, index: slot})
	c.emitMem(chunk.OpSetMem, slot, c.previous.Line)

	c.consume(token.LeftBrace, "expected '{' after switch value")

	var exitJumps []int

	for !c.check(token.RightBrace) && !c.check(token.Eof) {
		if c.match(token.Default) {
			c.consume(token.Colon, "expected ':' after default label")
			c.statement()
			if !c.check(token.RightBrace) {
				c.error("default label must be the last case in a switch statement")
			}
			break
		}

		c.emitMem(chunk.OpGetMem, slot, c.previous.Line)
		caseVal := c.expression()
		c.flush(caseVal)
		c.consume(token.Colon, "expected ':' after case value")

		c.emitBytes(chunk.OpCmp)
		caseJmp := c.emitJump(chunk.OpJif)

		c.statement()
		exitJumps = append(exitJumps, c.emitJump(chunk.OpJump))

		c.patchJump(caseJmp)
	}

	for _, j := range exitJumps {
		c.patchJump(j)
	}

	c.consume(token.RightBrace, "expected '}' at the end of switch statement")
	c.endScope()
}

// returnStmt compiles zero, one, or several comma-separated return
// expressions. Two or more are packed into a tuple with the same
// ConstructTuple shell grouping() uses for a parenthesized tuple
// literal, so the caller's SetFromTuple path handles both uniformly.
func (c *Compiler) returnStmt() {
	if c.check(token.SemiColon) || c.check(token.RightBrace) {
		c.emitConstant(value.Nil())
	} else {
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
			c.emitConstructTuple(count, c.previous.Line)
		} else {
			c.flush(first)
		}
	}
	c.match(token.SemiColon)
	c.emitBytes(chunk.OpReturn)
}

// varDeclaration compiles `var name = expr`, `const name = expr`, and
// comma-chained declarations sharing one keyword and mutability
// (`var a = 1, b = 2`). consumeIdentifier is false only when the
// caller (a for-loop initializer) has already consumed the name via
// its own one-token lookahead.
func (c *Compiler) varDeclaration(consumeIdentifier bool, isConst bool) {
	if c.check(token.LeftParen) {
		c.tupleDestructure(isConst)
		return
	}

	if consumeIdentifier {
		c.consume(token.Identifier, "expected variable name")
	}
	tok := c.previous
	name := tok.Lexeme

	index := c.dataIndex
	c.dataIndex++

	if c.match(token.Equal) {
		rhs := c.expression()
		c.flush(rhs)
	} else if isConst {
		c.error("constant variable must be initialized with a value")
	} else {
		c.emitConstant(value.Nil())
	}

	c.emitMem(chunk.OpSetMem, index, tok.Line)
	c.declareVar(name, &variable{kind: varKindValue, index: index, isMutable: !isConst})

	if c.match(token.Comma) {
		c.varDeclaration(true, isConst)
	}
}

// tupleDestructure compiles `var (a, b) = expr`. SetFromTuple writes
// straight into memory starting at the address LoadAddr pushes for the
// first name, so the names must occupy contiguous slots and no SetMem
// is needed afterward.
func (c *Compiler) tupleDestructure(isConst bool) {
	c.advance() // consume '('

	var names []string
	for {
		c.consume(token.Identifier, "expected identifier in tuple pattern")
		names = append(names, c.previous.Lexeme)
		if len(names) > maxArity {
			c.error("too many return values")
		}
		if !c.match(token.Comma) {
			break
		}
	}
	c.consume(token.RightParen, "expected ')' after tuple pattern")
	c.consume(token.Equal, "tuple destructuring must be initialized with a value")

	rhs := c.expression()
	c.flush(rhs)

	indices := make([]int, len(names))
	for i := range names {
		indices[i] = c.dataIndex
		c.dataIndex++
	}

	c.emitMem(chunk.OpLoadAddr, indices[0], c.previous.Line)
	c.emitSetFromTuple(len(names), c.previous.Line)

	for i, name := range names {
		c.declareVar(name, &variable{kind: varKindValue, index: indices[i], isMutable: !isConst})
	}
}

// fnDeclaration compiles a function into its own Chunk, pushed onto
// the compiler's chunk stack for the duration of its body and popped
// once compiled. The function's name is declared in the *enclosing*
// scope before its body compiles, so a recursive call inside the body
// resolves to the function's own slot. A top-level function named main
// is the exception: it is never emitted into any chunk by name — no
// SetMem, no memory slot — it only becomes reachable through the coda
// Compile appends once the whole program has been parsed.
func (c *Compiler) fnDeclaration() {
	c.consume(token.Identifier, "expected function name")
	name := c.previous.Lexeme
	nameLine := c.previous.Line
	isMain := name == "main" && c.scopeDepth == 0

	fnVar := &variable{kind: varKindFunction, isMutable: false}
	if !isMain {
		fnVar.index = c.dataIndex
		c.dataIndex++
	}
	c.declareVar(name, fnVar)

	c.chunks = append(c.chunks, chunk.New())
	c.beginScope()

	c.consume(token.LeftParen, "expected '(' after function name")
	paramBase := c.dataIndex
	paramCount := 0
	if !c.check(token.RightParen) {
		for {
			c.consume(token.Identifier, "expected parameter name")
			pname := c.previous.Lexeme
			pIndex := c.dataIndex
			c.dataIndex++
			c.declareVar(pname, &variable{kind: varKindValue, index: pIndex, isMutable: true})
			paramCount++
			if paramCount > maxArity {
				c.error("too many parameters")
			}
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "expected ')' after parameters")

	if isMain && paramCount > 0 {
		c.error("main function cannot declare arguments")
	}

	fnVar.paramCount = paramCount
	fnVar.paramBase = paramBase

	c.consume(token.LeftBrace, "expected '{' before function body")
	c.block()

	// implicit `return nil` for control falling off the end of the body
	c.emitConstant(value.Nil())
	c.emitBytes(chunk.OpReturn)

	c.endScope()

	fnChunk := c.activeChunk()
	c.chunks = c.chunks[:len(c.chunks)-1]

	fn := &value.Function{Name: name, ParamCount: paramCount, ParamBase: paramBase, Chunk: fnChunk}

	if isMain {
		c.hasMain = true
		c.mainConstIx = c.activeChunk().AddConstant(value.NewObject(fn))
		return
	}

	c.emitConstant(value.NewObject(fn))
	c.emitMem(chunk.OpSetMem, fnVar.index, nameLine)
}
