package dsl

import "fmt"

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenIndent
	TokenDedent

	TokenKeyword
	TokenIdent
	TokenString
	TokenFString
	TokenNumber
	TokenOperator
	TokenPunct
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "end of input",
	TokenNewline:  "newline",
	TokenIndent:   "indent",
	TokenDedent:   "dedent",
	TokenKeyword:  "keyword",
	TokenIdent:    "identifier",
	TokenString:   "string",
	TokenFString:  "f-string",
	TokenNumber:   "number",
	TokenOperator: "operator",
	TokenPunct:    "punctuation",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit. Value holds the decoded form of string
// and number literals.
type Token struct {
	Type    TokenType
	Literal string
	Value   any
	Line    int
	Column  int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF, TokenNewline, TokenIndent, TokenDedent:
		return t.Type.String()
	default:
		return fmt.Sprintf("%s %q", t.Type, t.Literal)
	}
}

// is reports whether the token has the given type and literal.
func (t Token) is(typ TokenType, literal string) bool {
	return t.Type == typ && t.Literal == literal
}

// keywords is the reserved-word set of the script language.
var keywords = map[string]bool{
	"bot":         true,
	"agent":       true,
	"description": true,
	"memory":      true,
	"var":         true,
	"on":          true,
	"input":       true,
	"event":       true,
	"when":        true,
	"if":          true,
	"then":        true,
	"elif":        true,
	"else":        true,
	"end":         true,
	"call":        true,
	"with":        true,
	"as":          true,
	"say":         true,
	"set":         true,
	"to":          true,
	"delegate":    true,
	"return":      true,
	"loop":        true,
	"in":          true,
	"parallel":    true,
	"and":         true,
	"or":          true,
	"not":         true,
	"contains":    true,
	"true":        true,
	"false":       true,
	"null":        true,
}

// IsKeyword reports whether name is a reserved word.
func IsKeyword(name string) bool {
	return keywords[name]
}
