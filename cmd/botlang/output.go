package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/everydev1618/botlang/dsl"
)

var (
	errColor   = color.New(color.FgRed, color.Bold)
	hintColor  = color.New(color.FgYellow)
	traceColor = color.New(color.FgCyan)
	dimColor   = color.New(color.Faint)
	okColor    = color.New(color.FgGreen)
)

// formatValue renders a script value for the terminal. Strings print
// bare; everything else prints as JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func printResult(w io.Writer, res *dsl.Result, verbose bool) {
	for _, out := range res.Output {
		fmt.Fprintln(w, formatValue(out))
	}
	if verbose {
		for _, call := range res.ToolCalls {
			label := call.Tool
			if call.IsFallback {
				label += " (fallback)"
			}
			traceColor.Fprintf(w, "→ %s %s\n", label, formatValue(call.Args))
		}
		for _, d := range res.Delegations {
			hintColor.Fprintf(w, "↪ delegated to %s %s\n", d.Agent, formatValue(d.Args))
		}
		if res.Returned {
			dimColor.Fprintf(w, "returned %s\n", formatValue(res.ReturnValue))
		}
		dimColor.Fprintf(w, "run %s\n", res.RunID)
	}
	for _, e := range res.Errors {
		errColor.Fprint(w, "error: ")
		fmt.Fprintln(w, e)
	}
}

// printError reports a command failure. Script errors show their
// position and hint.
func printError(w io.Writer, err error) {
	if errors.Is(err, errRunFailed) {
		return
	}
	var synErr *dsl.SyntaxError
	var lexErr *dsl.LexError
	switch {
	case errors.As(err, &synErr):
		errColor.Fprintf(w, "syntax error")
		fmt.Fprintf(w, " at %d:%d: %s\n", synErr.Line, synErr.Column, synErr.Message)
		if synErr.Hint != "" {
			hintColor.Fprintf(w, "  hint: %s\n", synErr.Hint)
		}
	case errors.As(err, &lexErr):
		errColor.Fprintf(w, "lexical error")
		fmt.Fprintf(w, " at %d:%d: %s\n", lexErr.Line, lexErr.Column, lexErr.Message)
	default:
		errColor.Fprint(w, "error: ")
		fmt.Fprintln(w, err)
	}
}
