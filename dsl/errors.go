package dsl

import (
	"errors"
	"fmt"
)

// ErrUnknownAgent is returned when a message is addressed to an agent that
// no loaded bot defines.
var ErrUnknownAgent = errors.New("unknown agent")

// LexError reports an unrecognised character or inconsistent indentation.
// Tokenization stops at the first LexError.
type LexError struct {
	Line    int
	Column  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// SyntaxError reports a grammar violation. Parsing stops at the first
// SyntaxError; no partial AST is returned.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
	Hint    string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}
