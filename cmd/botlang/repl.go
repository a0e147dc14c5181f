package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/everydev1618/botlang"
)

const (
	promptMain  = "bot> "
	promptCont  = "...  "
	historyFile = "repl_history"
)

const replHelp = `Statements run immediately; variables persist between entries.
Lines starting a block (bot, if, loop, parallel, ...) continue until an empty line.

  :input <text>          set the input for later entries (:input alone clears it)
  :emit <event> [input]  emit an event to the loaded bots
  :send <agent> [input]  send an input to an agent
  :load <file>           load a script file
  :bots                  list loaded bots and agents
  :vars                  show session variables
  :tools                 list tool names
  :reset                 clear session variables
  :quit                  leave
`

var blockKeywords = []string{"bot", "agent", "on", "if", "loop", "parallel", "memory"}

// isBlockStart reports whether line opens a block that needs more lines.
func isBlockStart(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	return slices.Contains(blockKeywords, fields[0])
}

// session is the state of one REPL.
type session struct {
	rt    *botlang.Runtime
	vars  map[string]any
	input any
	out   io.Writer
}

func newSession(rt *botlang.Runtime, out io.Writer) *session {
	return &session{rt: rt, vars: map[string]any{}, out: out}
}

// eval runs source in the session and keeps the variables it leaves.
func (s *session) eval(ctx context.Context, source string) {
	res, err := s.rt.Run(ctx, source, s.input, s.vars)
	if err != nil {
		printError(s.out, err)
		return
	}
	printResult(s.out, res, false)
	s.keep(res.Variables)
}

func (s *session) keep(vars map[string]any) {
	s.vars = maps.Clone(vars)
	delete(s.vars, "input")
	delete(s.vars, "event")
}

// command handles a ':' line. It reports whether the REPL should exit.
func (s *session) command(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case ":help":
		fmt.Fprint(s.out, replHelp)
	case ":quit", ":exit":
		return true
	case ":input":
		if rest == "" {
			s.input = nil
		} else {
			s.input = rest
		}
	case ":emit":
		event, input, _ := strings.Cut(rest, " ")
		if event == "" {
			fmt.Fprintln(s.out, "usage: :emit <event> [input]")
			return false
		}
		res := s.rt.Emit(ctx, event, s.argInput(input), s.vars)
		printResult(s.out, res, false)
	case ":send":
		agent, input, _ := strings.Cut(rest, " ")
		if agent == "" {
			fmt.Fprintln(s.out, "usage: :send <agent> [input]")
			return false
		}
		res, err := s.rt.Send(ctx, agent, s.argInput(input), s.vars)
		if err != nil {
			printError(s.out, err)
			return false
		}
		printResult(s.out, res, false)
	case ":load":
		if rest == "" {
			fmt.Fprintln(s.out, "usage: :load <file>")
			return false
		}
		if _, err := s.rt.LoadFile(rest); err != nil {
			printError(s.out, err)
			return false
		}
		okColor.Fprintf(s.out, "loaded %s\n", rest)
	case ":bots":
		fmt.Fprintf(s.out, "bots:   %s\n", strings.Join(s.rt.Interpreter().Bots(), ", "))
		fmt.Fprintf(s.out, "agents: %s\n", strings.Join(s.rt.Interpreter().Agents(), ", "))
	case ":vars":
		for _, k := range slices.Sorted(maps.Keys(s.vars)) {
			fmt.Fprintf(s.out, "%s = %s\n", k, formatValue(s.vars[k]))
		}
	case ":tools":
		fmt.Fprintln(s.out, strings.Join(s.rt.Tools().Names(), "\n"))
	case ":reset":
		s.vars = map[string]any{}
		fmt.Fprintln(s.out, "variables cleared")
	default:
		fmt.Fprintln(s.out, "unknown command. Type :help for help.")
	}
	return false
}

func (s *session) argInput(text string) any {
	if text = strings.TrimSpace(text); text != "" {
		return text
	}
	return s.input
}

// readEntry reads one line, or a block terminated by an empty line.
func readEntry(ln *liner.State) (string, bool) {
	line, err := ln.Prompt(promptMain)
	if errors.Is(err, io.EOF) {
		return "", false
	}
	if err != nil {
		// Ctrl+C aborts the current input.
		return "", true
	}
	if !isBlockStart(line) {
		return line, true
	}

	lines := []string{line}
	for {
		next, err := ln.Prompt(promptCont)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if strings.TrimSpace(next) == "" {
			return strings.Join(lines, "\n"), true
		}
		lines = append(lines, next)
	}
}

var replCmd = &cobra.Command{
	Use:   "repl [file]...",
	Short: "Start an interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(args)
		if err != nil {
			return err
		}
		defer rt.Close()

		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		home := cfg.Home
		if home == "" {
			home = botlang.Home()
		}
		histPath := filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "botlang %s. Type :help for commands.\n", version)
		s := newSession(rt, out)
		ctx := cmd.Context()

		for {
			entry, ok := readEntry(ln)
			if !ok {
				fmt.Fprintln(out)
				break
			}
			if strings.TrimSpace(entry) == "" {
				continue
			}
			ln.AppendHistory(strings.ReplaceAll(entry, "\n", " "))

			if strings.HasPrefix(strings.TrimSpace(entry), ":") {
				if s.command(ctx, entry) {
					break
				}
				continue
			}
			s.eval(ctx, entry)
		}

		if err := botlang.EnsureHome(home); err == nil {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}
		return nil
	},
}
