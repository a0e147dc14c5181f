package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tabWidth is the number of indentation columns a tab counts for.
const tabWidth = 4

// lexer turns script source into a token stream with indentation encoded
// as indent/dedent tokens.
type lexer struct {
	src  []rune
	pos  int
	line int
	col  int

	indents     []int
	nesting     int
	atLineStart bool
	tokens      []Token
}

// Tokenize converts source text into tokens. On error no tokens are
// returned.
func Tokenize(source string) ([]Token, error) {
	l := &lexer{
		src:         []rune(source),
		line:        1,
		col:         1,
		indents:     []int{0},
		atLineStart: true,
	}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) run() error {
	for {
		if l.atLineStart && l.nesting == 0 {
			done, err := l.lineStart()
			if err != nil {
				return err
			}
			if done {
				break
			}
			if l.atLineStart {
				continue
			}
		}
		if l.eof() {
			break
		}

		ch := l.peek()
		switch {
		case ch == '\n':
			l.advance()
			if l.nesting == 0 {
				l.emitNewline()
				l.atLineStart = true
			}
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '#':
			l.skipComment()
		case ch == '"':
			if err := l.lexString(TokenString); err != nil {
				return err
			}
		case ch == 'f' && l.peekAt(1) == '"':
			l.advance()
			if err := l.lexString(TokenFString); err != nil {
				return err
			}
		case isIdentStart(ch):
			l.lexIdent()
		case isDigit(ch):
			l.lexNumber()
		default:
			if err := l.lexSymbol(); err != nil {
				return err
			}
		}
	}

	l.emitNewline()
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(TokenDedent, "", nil, l.line, l.col)
	}
	l.emit(TokenEOF, "", nil, l.line, l.col)
	return nil
}

// lineStart measures the indentation of the next line and emits indent or
// dedent tokens. Blank and comment-only lines are consumed without effect.
// It reports done when input is exhausted.
func (l *lexer) lineStart() (bool, error) {
	width := 0
scan:
	for !l.eof() {
		switch l.peek() {
		case ' ':
			width++
		case '\t':
			width += tabWidth
		case '\r':
		default:
			break scan
		}
		l.advance()
	}
	if l.eof() {
		return true, nil
	}
	switch l.peek() {
	case '\n':
		l.advance()
		return false, nil
	case '#':
		l.skipComment()
		if !l.eof() {
			l.advance()
		}
		return false, nil
	}

	l.atLineStart = false
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(TokenIndent, "", nil, l.line, 1)
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(TokenDedent, "", nil, l.line, 1)
		}
		if l.indents[len(l.indents)-1] != width {
			return false, &LexError{
				Line:    l.line,
				Column:  l.col,
				Message: fmt.Sprintf("indentation of %d does not match any enclosing block", width),
			}
		}
	}
	return false, nil
}

func (l *lexer) lexString(typ TokenType) error {
	line, col := l.line, l.col
	if l.peekAt(1) == '"' && l.peekAt(2) == '"' {
		return l.lexTripleString(typ, line, col)
	}
	l.advance()

	var b strings.Builder
	for {
		if l.eof() || l.peek() == '\n' {
			return &LexError{Line: line, Column: col, Message: "unterminated string"}
		}
		ch := l.advance()
		if ch == '"' {
			break
		}
		if ch != '\\' {
			b.WriteRune(ch)
			continue
		}
		if l.eof() {
			return &LexError{Line: line, Column: col, Message: "unterminated string"}
		}
		switch esc := l.advance(); esc {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		default:
			b.WriteRune(esc)
		}
	}
	s := b.String()
	l.emit(typ, s, s, line, col)
	return nil
}

// lexTripleString reads a """...""" block verbatim, newlines included.
func (l *lexer) lexTripleString(typ TokenType, line, col int) error {
	l.advance()
	l.advance()
	l.advance()
	start := l.pos
	for {
		if l.eof() {
			return &LexError{Line: line, Column: col, Message: "unterminated triple-quoted string"}
		}
		if l.peek() == '"' && l.peekAt(1) == '"' && l.peekAt(2) == '"' {
			break
		}
		l.advance()
	}
	s := string(l.src[start:l.pos])
	l.advance()
	l.advance()
	l.advance()
	l.emit(typ, s, s, line, col)
	return nil
}

func (l *lexer) lexIdent() {
	line, col := l.line, l.col
	start := l.pos
	for !l.eof() && isIdentPart(l.peek()) {
		l.advance()
	}
	word := string(l.src[start:l.pos])
	if !keywords[word] {
		l.emit(TokenIdent, word, nil, line, col)
		return
	}
	var value any
	switch word {
	case "true":
		value = true
	case "false":
		value = false
	}
	l.emit(TokenKeyword, word, value, line, col)
}

// lexNumber scans ASCII digits with an optional fraction. Literals too
// large for a float64 become infinity.
func (l *lexer) lexNumber() {
	line, col := l.line, l.col
	start := l.pos
	for !l.eof() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	}
	text := string(l.src[start:l.pos])
	n, _ := strconv.ParseFloat(text, 64)
	l.emit(TokenNumber, text, n, line, col)
}

func (l *lexer) lexSymbol() error {
	line, col := l.line, l.col
	ch := l.peek()

	switch two := string([]rune{ch, l.peekAt(1)}); two {
	case "==", "!=", ">=", "<=", "??":
		l.advance()
		l.advance()
		l.emit(TokenOperator, two, nil, line, col)
		return nil
	}

	switch ch {
	case '+', '-', '*', '/', '%', '>', '<':
		l.advance()
		l.emit(TokenOperator, string(ch), nil, line, col)
		return nil
	case '=', ',', ':', '.':
		l.advance()
		l.emit(TokenPunct, string(ch), nil, line, col)
		return nil
	case '(', '[', '{':
		l.advance()
		l.nesting++
		l.emit(TokenPunct, string(ch), nil, line, col)
		return nil
	case ')', ']', '}':
		l.advance()
		if l.nesting > 0 {
			l.nesting--
		}
		l.emit(TokenPunct, string(ch), nil, line, col)
		return nil
	}

	return &LexError{Line: line, Column: col, Message: fmt.Sprintf("unexpected character %q", ch)}
}

func (l *lexer) skipComment() {
	for !l.eof() && l.peek() != '\n' {
		l.advance()
	}
}

// emitNewline emits a newline token unless the stream is empty or already
// ends in a structural token.
func (l *lexer) emitNewline() {
	if len(l.tokens) == 0 {
		return
	}
	switch l.tokens[len(l.tokens)-1].Type {
	case TokenNewline, TokenIndent, TokenDedent:
		return
	}
	l.emit(TokenNewline, "", nil, l.line, l.col)
}

func (l *lexer) emit(typ TokenType, literal string, value any, line, col int) {
	l.tokens = append(l.tokens, Token{Type: typ, Literal: literal, Value: value, Line: line, Column: col})
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.src)
}

func (l *lexer) peek() rune {
	return l.peekAt(0)
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) advance() rune {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || isDigit(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
