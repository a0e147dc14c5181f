package dsl

import (
	"errors"
	"strings"
)

// parseFString splits an f-string template into literal text and
// interpolation expressions. A span that does not parse as a single
// expression is kept as literal text, braces included.
func parseFString(tok Token) *FString {
	fs := &FString{Position: position(tok), Raw: tok.Literal}
	src := []rune(tok.Literal)

	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			fs.Parts = append(fs.Parts, FStringPart{Text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		if src[i] != '{' {
			text.WriteRune(src[i])
			continue
		}
		end := matchBrace(src, i)
		if end < 0 {
			text.WriteString(string(src[i:]))
			break
		}
		span := string(src[i+1 : end])
		expr, err := parseSpan(span)
		if err != nil {
			text.WriteString("{" + span + "}")
		} else {
			flush()
			fs.Parts = append(fs.Parts, FStringPart{Expr: expr, Source: span})
		}
		i = end
	}
	flush()
	return fs
}

// matchBrace returns the index of the brace closing the one at open, or -1.
// Braces inside quoted strings are not counted.
func matchBrace(src []rune, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(src); i++ {
		switch ch := src[i]; {
		case inString:
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var errTrailingTokens = errors.New("unexpected tokens after expression")

// parseSpan parses the inside of an interpolation span as one expression.
func parseSpan(span string) (Expression, error) {
	tokens, err := Tokenize(strings.TrimSpace(span))
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if !p.check(TokenEOF) {
		return nil, errTrailingTokens
	}
	return expr, nil
}
