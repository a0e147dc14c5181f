package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/everydev1618/botlang/dsl"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check bot scripts for errors and summarize them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var failed int
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			prog, err := dsl.Parse(string(src))
			if err != nil {
				failed++
				errColor.Fprintf(out, "✗ %s\n", path)
				printError(out, err)
				continue
			}
			okColor.Fprintf(out, "✓ %s\n", path)
			summarize(out, prog)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files invalid", failed, len(args))
		}
		return nil
	},
}

func summarize(w io.Writer, prog *dsl.Program) {
	for _, bot := range prog.Bots() {
		fmt.Fprintf(w, "  bot %s", bot.Name)
		if bot.Description != "" {
			dimColor.Fprintf(w, "  %s", bot.Description)
		}
		fmt.Fprintln(w)
		inputs, events := countHandlers(bot.Body)
		fmt.Fprintf(w, "    handlers: %d input, %d event\n", inputs, events)
		for _, agent := range bot.Agents() {
			inputs, events := countHandlers(agent.Handlers)
			fmt.Fprintf(w, "    agent %s: %d input, %d event\n", agent.Name, inputs, events)
		}
		for _, mem := range bot.Memory {
			fmt.Fprintf(w, "    memory %s: %d vars\n", mem.Name, len(mem.Vars))
		}
	}
	if n := len(prog.Items) - len(prog.Bots()); n > 0 {
		fmt.Fprintf(w, "  %d top-level statements\n", n)
	}
}

func countHandlers(nodes []dsl.Node) (inputs, events int) {
	for _, n := range nodes {
		switch n.(type) {
		case *dsl.OnInputHandler:
			inputs++
		case *dsl.OnEventHandler:
			events++
		}
	}
	return inputs, events
}
