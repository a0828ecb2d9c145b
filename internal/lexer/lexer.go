// Package lexer implements the scanner: a lazy token pump with a normal
// mode and a format-string sub-mode, consumed by the compiler one token
// at a time.
package lexer

import (
	"nx-lang/internal/token"
)

// State mirrors the scanner's own error-reporting surface: the compiler
// checks it after every call that could have failed instead of the
// scanner raising directly.
type State struct {
	OK      bool
	Message string
	Line    int
	Column  int
}

// Lexer scans UTF-8 source text byte at a time. Lexemes are borrowed
// slices of the input — never copied — matching the source's
// string_view-backed Token.
type Lexer struct {
	input       string
	position    int
	readPosition int
	ch          byte

	start int

	line   int
	column int

	inFStringBrace bool
	afterReturn    bool

	State State
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 1, State: State{OK: true}}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peek() byte {
	if l.position >= len(l.input) {
		return 0
	}
	return l.input[l.position]
}

func (l *Lexer) peekNext() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool { return l.position >= len(l.input) }

func (l *Lexer) advance() byte {
	if l.atEnd() {
		return 0
	}
	c := l.ch
	l.column++
	l.readChar()
	return c
}

func (l *Lexer) match(c byte) bool {
	if l.atEnd() || l.ch != c {
		return false
	}
	l.advance()
	return true
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) build(t token.TokenType) token.Token {
	return token.Token{
		Type:   t,
		Lexeme: l.input[l.start:l.position],
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) errorf(msg string) {
	l.State = State{OK: false, Message: msg, Line: l.line, Column: l.column}
}

// NextToken produces the next token in normal mode. Grounded on the
// original scanner's scan_token dispatch.
func (l *Lexer) NextToken() token.Token {
	if l.afterReturn {
		l.afterReturn = false
		if l.crossesNewlineBeforeToken() {
			l.start = l.position
			return l.build(token.SemiColon)
		}
	}

	l.skipChars()
	l.start = l.position

	c := l.advance()

	var tok token.Token

	switch c {
	case 0:
		tok = l.build(token.Eof)
	case '(':
		tok = l.build(token.LeftParen)
	case ')':
		tok = l.build(token.RightParen)
	case '{':
		tok = l.build(token.LeftBrace)
	case '}':
		tok = l.build(token.RightBrace)
	case ',':
		tok = l.build(token.Comma)
	case '.':
		if l.match('.') {
			tok = l.build(token.DotDot)
		} else {
			tok = l.build(token.Dot)
		}
	case ';':
		tok = l.build(token.SemiColon)
	case ':':
		tok = l.build(token.Colon)
	case '-':
		switch {
		case l.match('='):
			tok = l.build(token.MinusEqual)
		case l.match('-'):
			tok = l.build(token.MinusMinus)
		default:
			tok = l.build(token.Minus)
		}
	case '+':
		switch {
		case l.match('='):
			tok = l.build(token.PlusEqual)
		case l.match('+'):
			tok = l.build(token.PlusPlus)
		default:
			tok = l.build(token.Plus)
		}
	case '/':
		if l.match('=') {
			tok = l.build(token.SlashEqual)
		} else {
			tok = l.build(token.Slash)
		}
	case '*':
		if l.match('=') {
			tok = l.build(token.StarEqual)
		} else {
			tok = l.build(token.Star)
		}
	case '^':
		tok = l.build(token.Caret)
	case '%':
		tok = l.build(token.Percent)
	case '!':
		if l.match('=') {
			tok = l.build(token.BangEqual)
		} else {
			tok = l.build(token.Bang)
		}
	case '=':
		if l.match('=') {
			tok = l.build(token.EqualEqual)
		} else {
			tok = l.build(token.Equal)
		}
	case '>':
		if l.match('=') {
			tok = l.build(token.GreaterEqual)
		} else {
			tok = l.build(token.Greater)
		}
	case '<':
		if l.match('=') {
			tok = l.build(token.LessEqual)
		} else {
			tok = l.build(token.Less)
		}
	case '"':
		tok = l.scanString()
	default:
		switch {
		case c == 'f' && l.peek() == '"':
			l.advance()
			tok = l.build(token.FStringStart)
		case isDigit(c):
			tok = l.scanNumber()
		case isAlpha(c):
			tok = l.scanIdentifier()
		default:
			l.errorf("unexpected char")
			tok = l.build(token.Illegal)
		}
	}

	if tok.Type == token.Return {
		l.afterReturn = true
	}
	return tok
}

// NextFStringToken produces the next token while inside a format string.
// Grounded on the original scanner's scan_fstring brace-toggle state
// machine: text runs become String tokens; the first `{` (and every
// subsequent call while still "in brace") hands control back to
// NextToken to scan one ordinary expression token; the matching `}`
// returns to text mode; the closing `"` yields FStringEnd.
func (l *Lexer) NextFStringToken() token.Token {
	for !l.atEnd() && l.peek() != '"' {
		l.start = l.position

		if l.match('}') {
			l.inFStringBrace = false
			continue
		}
		if l.match('{') || l.inFStringBrace {
			l.inFStringBrace = true
			return l.NextToken()
		}

		for !l.atEnd() && l.peek() != '{' && l.peek() != '"' {
			l.advance()
		}
		return l.build(token.String)
	}

	if l.atEnd() {
		l.errorf("unterminated format string found")
	}

	l.advance()
	return l.build(token.FStringEnd)
}

func (l *Lexer) scanString() token.Token {
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}

	if l.atEnd() {
		l.errorf("unterminated string")
		return l.build(token.Illegal)
	}

	contentStart := l.start + 1
	contentEnd := l.position
	l.advance() // closing quote

	return token.Token{
		Type:   token.String,
		Lexeme: l.input[contentStart:contentEnd],
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) scanNumber() token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.build(token.Number)
}

func (l *Lexer) scanIdentifier() token.Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	text := l.input[l.start:l.position]
	return l.build(token.LookupIdent(text))
}

// skipChars skips spaces, tabs, carriage returns, line feeds (tracking
// line/column), `//` line comments and `/* ... */` block comments.
func (l *Lexer) skipChars() {
	for {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.advance()
			l.line++
			l.column = 1
		case '/':
			if l.peekNext() == '/' {
				for !l.atEnd() && l.peek() != '\n' {
					l.advance()
				}
			} else if l.peekNext() == '*' {
				l.advance()
				l.advance()
				terminated := false
				for !l.atEnd() {
					if l.peek() == '\n' {
						l.line++
					}
					if l.peek() == '*' && l.peekNext() == '/' {
						l.advance()
						l.advance()
						terminated = true
						break
					}
					l.advance()
				}
				if !terminated {
					l.errorf("multiline comment is not terminated")
					return
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// crossesNewlineBeforeToken implements automatic semicolon insertion: it
// consumes horizontal whitespace, and if it hits a line feed before any
// other character, consumes that one line feed and reports true.
// Anything else (including a comment) stops the scan there, with only
// the horizontal whitespace consumed, and reports false.
func (l *Lexer) crossesNewlineBeforeToken() bool {
	for {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.advance()
			l.line++
			l.column = 1
			return true
		default:
			return false
		}
	}
}
