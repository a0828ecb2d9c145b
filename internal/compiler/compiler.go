// Package compiler is a single-pass Pratt parser that emits bytecode
// directly as it recognizes each construct — there is no intermediate
// syntax tree. A Compiler owns exactly one compile: construct one per
// source string.
package compiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"nx-lang/internal/chunk"
	"nx-lang/internal/diag"
	"nx-lang/internal/lexer"
	"nx-lang/internal/token"
	"nx-lang/internal/value"
)

type varKind uint8

const (
	varKindValue varKind = iota
	varKindFunction
	varKindNative
)

// variable is the compile-time record for one declared name: which
// memory slot it owns, whether it can be reassigned, and (for
// functions) its calling shape. A native has no memory slot at all —
// native carries the shared *value.NativeFunction pooled as a Constant
// at every call site instead.
type variable struct {
	kind       varKind
	index      int
	isMutable  bool
	paramCount int
	paramBase  int
	native     *value.NativeFunction
}

// maxArity bounds parameter counts, argument counts, and tuple/return
// element counts at 0..255.
const maxArity = 255

// loopContext tracks the bookkeeping a single active loop needs to
// patch `break`/`continue` once its body has been compiled.
type loopContext struct {
	continueJumps []int
	breakJumps    []int
}

// Compiler turns source text into a chunk.Chunk. Grounded on the
// original scanner-driven Pratt compiler: one token of lookahead
// (current), one token behind it (previous), and a table of
// per-token-type prefix/infix parse rules.
type Compiler struct {
	lex *lexer.Lexer

	previous, current token.Token

	fstringMode bool
	canAssign   bool

	hadError  bool
	panicMode bool
	errs      []string

	interner *value.Interner

	chunks []*chunk.Chunk

	scopes     []map[string]*variable
	scopeDepth int
	dataIndex  int

	loops []*loopContext

	hasMain     bool
	mainConstIx uint16
}

// New prepares a Compiler over source. Call Compile exactly once.
// Builtins are pre-declared by name in the top scope, ahead of any user
// code, so a user declaration can never resolve to one by accident.
func New(source string) *Compiler {
	c := &Compiler{
		lex:      lexer.New(source),
		interner: value.NewInterner(),
		chunks:   []*chunk.Chunk{chunk.New()},
		scopes:   []map[string]*variable{make(map[string]*variable)},
	}

	for _, nf := range value.Natives {
		c.declareVar(nf.Name, &variable{
			kind:       varKindNative,
			paramCount: nf.ParamCount,
			native:     nf,
		})
	}

	return c
}

// Interner exposes the string table the compiler built, so the VM
// that runs the resulting chunk can intern runtime-constructed strings
// (e.g. input()) into the same pool.
func (c *Compiler) Interner() *value.Interner { return c.interner }

// Compile runs the whole parse/emit pass and returns the top-level
// chunk — the script body, not wrapped in any Function. If the program
// declared a top-level main, its invocation is appended to the end of
// the static chunk so it runs automatically as the program's entry
// point.
func (c *Compiler) Compile() (*chunk.Chunk, error) {
	c.advance()

	for !c.check(token.Eof) {
		c.declaration()
	}

	if c.hasMain {
		line := c.previous.Line
		c.emitConstRef(chunk.OpConstant, c.mainConstIx, line)
		c.emitMem(chunk.OpCall, 0, line)
		c.emit(chunk.OpReturn)
	}

	if c.hadError {
		return nil, errors.New(strings.Join(c.errs, "\n"))
	}

	return c.chunks[0], nil
}

func (c *Compiler) activeChunk() *chunk.Chunk {
	return c.chunks[len(c.chunks)-1]
}

// advance pulls the next token, switching the lexer's scan mode
// exactly when the token just consumed opens or closes a format
// string — the only place the fstring sub-mode needs tracking.
func (c *Compiler) advance() {
	c.previous = c.current

	switch c.previous.Type {
	case token.FStringStart:
		c.fstringMode = true
	case token.FStringEnd:
		c.fstringMode = false
	}

	if c.fstringMode {
		c.current = c.lex.NextFStringToken()
	} else {
		c.current = c.lex.NextToken()
	}

	if !c.lex.State.OK {
		st := c.lex.State
		c.reportAt(st.Line, st.Column, "", st.Message)
		c.lex.State.OK = true
	}
}

func (c *Compiler) check(t token.TokenType) bool { return c.current.Type == t }

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.TokenType, message string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(fmt.Sprintf("%s, got %s", message, c.current.Type.Display()))
}

func (c *Compiler) checkLast(t token.TokenType) bool { return c.previous.Type == t }

func (c *Compiler) errorAt(tok token.Token, message string) {
	c.reportAt(tok.Line, tok.Column, tok.Lexeme, message)
}

func (c *Compiler) reportAt(line, column int, near, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	c.errs = append(c.errs, diag.CompileError(line, column, near, message))
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }

// synchronize skips tokens until it finds one that plausibly starts a
// new statement, so one mistake produces one diagnostic instead of a
// cascade.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for !c.check(token.Eof) {
		if c.checkLast(token.SemiColon) {
			return
		}
		switch c.current.Type {
		case token.Fn, token.Var, token.Const, token.For, token.If,
			token.While, token.Switch, token.Return, token.Print:
			return
		}
		c.advance()
	}
}
