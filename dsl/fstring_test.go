package dsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []FStringPart
	}{
		{
			name: "plain text",
			raw:  "no spans here",
			want: []FStringPart{{Text: "no spans here"}},
		},
		{
			name: "path",
			raw:  "Hi {user.name}!",
			want: []FStringPart{
				{Text: "Hi "},
				{Expr: path("user", "name"), Source: "user.name"},
				{Text: "!"},
			},
		},
		{
			name: "full expression",
			raw:  "{ count + 1 } left",
			want: []FStringPart{
				{Expr: bin("+", ident("count"), lit(1.0)), Source: " count + 1 "},
				{Text: " left"},
			},
		},
		{
			name: "adjacent spans",
			raw:  "{a}{b}",
			want: []FStringPart{
				{Expr: ident("a"), Source: "a"},
				{Expr: ident("b"), Source: "b"},
			},
		},
		{
			name: "brace inside string",
			raw:  `{d ?? "}"}`,
			want: []FStringPart{
				{Expr: bin("??", ident("d"), lit("}")), Source: `d ?? "}"`},
			},
		},
		{
			name: "invalid span kept verbatim",
			raw:  "a {1 2} b",
			want: []FStringPart{{Text: "a {1 2} b"}},
		},
		{
			name: "unlexable span kept verbatim",
			raw:  "cost {@} now",
			want: []FStringPart{{Text: "cost {@} now"}},
		},
		{
			name: "unclosed brace",
			raw:  "open {name",
			want: []FStringPart{{Text: "open {name"}},
		},
		{
			name: "empty span",
			raw:  "x{}y",
			want: []FStringPart{{Text: "x{}y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := parseFString(Token{Type: TokenFString, Literal: tt.raw, Value: tt.raw, Line: 1, Column: 1})
			if fs.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", fs.Raw, tt.raw)
			}
			if diff := cmp.Diff(tt.want, fs.Parts, astOpts...); diff != "" {
				t.Errorf("Parts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchBrace(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"{a}", 2},
		{"{{a}}", 4},
		{`{"}"}`, 4},
		{`{"\"}"}`, 6},
		{"{a", -1},
	}
	for _, tt := range tests {
		if got := matchBrace([]rune(tt.src), 0); got != tt.want {
			t.Errorf("matchBrace(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}
