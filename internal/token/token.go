package token

import "fmt"

// TokenType is the closed enumeration of lexeme kinds this language's
// scanner produces. The set matches the normative token list (keywords
// plus punctuation).
type TokenType uint8

const (
	Illegal TokenType = iota
	Eof

	// literals
	Number
	String
	FStringStart
	FStringEnd
	Identifier

	// keywords
	And
	Or
	Is
	In
	Obj
	Else
	False
	True
	For
	Fn
	If
	Do
	Nil
	Return
	Super
	This
	Var
	Const
	While
	Switch
	Continue
	Break
	Default
	Print

	// punctuation
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Comma
	Dot
	DotDot
	SemiColon
	Colon
	Minus
	Plus
	Slash
	Star
	PlusEqual
	MinusEqual
	StarEqual
	SlashEqual
	PlusPlus
	MinusMinus
	Caret
	Percent
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual
)

var names = map[TokenType]string{
	Illegal:      "illegal",
	Eof:          "eof",
	Number:       "number",
	String:       "string",
	FStringStart: "fstring-start",
	FStringEnd:   "fstring-end",
	Identifier:   "identifier",

	And: "and", Or: "or", Is: "is", In: "in", Obj: "obj", Else: "else",
	False: "false", True: "true", For: "for", Fn: "fn", If: "if", Do: "do",
	Nil: "nil", Return: "return", Super: "super", This: "this", Var: "var",
	Const: "const", While: "while", Switch: "switch", Continue: "continue",
	Break: "break", Default: "default", Print: "print",

	LeftParen: "'('", RightParen: "')'", LeftBrace: "'{'", RightBrace: "'}'",
	Comma: "','", Dot: "'.'", DotDot: "'..'", SemiColon: "';'", Colon: "':'",
	Minus: "'-'", Plus: "'+'", Slash: "'/'", Star: "'*'",
	PlusEqual: "'+='", MinusEqual: "'-='", StarEqual: "'*='", SlashEqual: "'/='",
	PlusPlus: "'++'", MinusMinus: "'--'", Caret: "'^'", Percent: "'%'",
	Bang: "'!'", BangEqual: "'!='", Equal: "'='", EqualEqual: "'=='",
	Greater: "'>'", GreaterEqual: "'>='", Less: "'<'", LessEqual: "'<='",
}

func (t TokenType) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "unknown"
}

var keywords = map[string]TokenType{
	"and": And, "or": Or, "is": Is, "in": In, "obj": Obj, "else": Else,
	"false": False, "true": True, "for": For, "fn": Fn, "if": If, "do": Do,
	"nil": Nil, "return": Return, "super": Super, "this": This, "var": Var,
	"const": Const, "while": While, "switch": Switch, "continue": Continue,
	"break": Break, "default": Default, "print": Print,
}

// LookupIdent classifies a scanned identifier lexeme as a keyword token
// or a plain Identifier.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return Identifier
}

// Token is a borrowed slice of source text tagged with its kind and
// position. Lexeme is never copied out of the source buffer.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Lexeme, t.Line, t.Column)
}
