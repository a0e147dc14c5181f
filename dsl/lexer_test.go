package dsl

import (
	"errors"
	"strings"
	"testing"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeIndentation(t *testing.T) {
	src := "bot A\n  say 1\n  if x\n    say 2\nend\n"
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	want := []TokenType{
		TokenKeyword, TokenIdent, TokenNewline,
		TokenIndent, TokenKeyword, TokenNumber, TokenNewline,
		TokenKeyword, TokenIdent, TokenNewline,
		TokenIndent, TokenKeyword, TokenNumber, TokenNewline,
		TokenDedent, TokenDedent, TokenKeyword, TokenNewline,
		TokenEOF,
	}
	got := tokenTypes(tokens)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTokenizeClosesIndentsAtEOF(t *testing.T) {
	tokens, err := Tokenize("if x\n  if y\n    say 1")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	got := tokenTypes(tokens)
	tail := got[len(got)-4:]
	want := []TokenType{TokenNewline, TokenDedent, TokenDedent, TokenEOF}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("tail = %v, want %v", tail, want)
		}
	}
}

func TestTokenizeSkipsBlankAndCommentLines(t *testing.T) {
	src := "say 1\n\n   \n  # indented comment\nsay 2 # trailing\n"
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	for _, tok := range tokens {
		if tok.Type == TokenIndent || tok.Type == TokenDedent {
			t.Errorf("unexpected %s at line %d", tok, tok.Line)
		}
	}
	if got := len(tokens); got != 7 {
		t.Errorf("len(tokens) = %d, want 7: %v", got, tokens)
	}
}

func TestTokenizeNestingSuppressesNewlines(t *testing.T) {
	src := "call a.b with {\n    x: 1,\n  y: [1,\n2]\n}\nsay 1\n"
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	newlines := 0
	for _, tok := range tokens {
		switch tok.Type {
		case TokenNewline:
			newlines++
		case TokenIndent, TokenDedent:
			t.Errorf("unexpected %s inside brackets", tok)
		}
	}
	if newlines != 2 {
		t.Errorf("newlines = %d, want 2", newlines)
	}
}

func TestTokenizeLiterals(t *testing.T) {
	tokens, err := Tokenize(`"a\"b\n" f"hi {name}" 42 3.5 true null """raw\n"x""" `)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	tests := []struct {
		typ   TokenType
		value any
	}{
		{TokenString, "a\"b\n"},
		{TokenFString, "hi {name}"},
		{TokenNumber, 42.0},
		{TokenNumber, 3.5},
		{TokenKeyword, true},
		{TokenKeyword, nil},
		{TokenString, `raw\n"x`},
	}
	for i, tt := range tests {
		if tokens[i].Type != tt.typ || tokens[i].Value != tt.value {
			t.Errorf("token[%d] = %s (%v), want %s (%v)", i, tokens[i], tokens[i].Value, tt.typ, tt.value)
		}
	}
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize("a == b != c >= d <= e ?? f > g < h = i")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	var ops []string
	for _, tok := range tokens {
		if tok.Type == TokenOperator || tok.Type == TokenPunct {
			ops = append(ops, tok.Literal)
		}
	}
	if got := strings.Join(ops, " "); got != "== != >= <= ?? > < =" {
		t.Errorf("operators = %q", got)
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens, err := Tokenize("say 1\n  say x")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	var x Token
	for _, tok := range tokens {
		if tok.Literal == "x" {
			x = tok
		}
	}
	if x.Line != 2 || x.Column != 7 {
		t.Errorf("x at %d:%d, want 2:7", x.Line, x.Column)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad dedent", "if x\n    say 1\n  say 2\n", "does not match any enclosing block"},
		{"unexpected character", "say @", "unexpected character"},
		{"non-ascii digit", "say ٣", "unexpected character"},
		{"unterminated string", "say \"abc\nsay 1", "unterminated string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if tokens != nil {
				t.Errorf("tokens = %v, want nil on error", tokens)
			}
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("error = %T, want *LexError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err, tt.want)
			}
		})
	}
}

func TestTokenizeTabs(t *testing.T) {
	// A tab counts as four columns, so it matches a four-space level.
	if _, err := Tokenize("if x\n\tsay 1\n    say 2\n"); err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
}
