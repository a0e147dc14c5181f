package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/everydev1618/botlang"
	"github.com/everydev1618/botlang/dsl"
)

// errRunFailed signals a run that recorded errors. They are already printed.
var errRunFailed = errors.New("run finished with errors")

// runFlags are shared by run, emit and send.
type runFlags struct {
	input     string
	jsonInput bool
	varsFile  string
	stateFile string
	jsonOut   bool
	verbose   bool
	follow    int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "input passed to the bots")
	cmd.Flags().BoolVar(&f.jsonInput, "json-input", false, "decode --input as JSON")
	cmd.Flags().StringVar(&f.varsFile, "vars", "", "JSON file of initial variables")
	cmd.Flags().StringVar(&f.stateFile, "state", "", "JSON file variables are loaded from and saved to")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print the tool call trace")
	cmd.Flags().IntVar(&f.follow, "follow", 0, "follow delegations up to this many hops")
}

func (f *runFlags) parseInput() (any, error) {
	if !f.jsonInput {
		return f.input, nil
	}
	var v any
	if err := json.Unmarshal([]byte(f.input), &v); err != nil {
		return nil, fmt.Errorf("--input is not valid JSON: %w", err)
	}
	return v, nil
}

// loadVars merges the state file and --vars, with --vars winning.
func (f *runFlags) loadVars() (map[string]any, error) {
	vars := map[string]any{}
	if f.stateFile != "" {
		state, err := botlang.NewStateFile(f.stateFile).Load()
		if err != nil {
			return nil, err
		}
		maps.Copy(vars, state)
	}
	if f.varsFile != "" {
		data, err := os.ReadFile(f.varsFile)
		if err != nil {
			return nil, err
		}
		var extra map[string]any
		if err := json.Unmarshal(data, &extra); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.varsFile, err)
		}
		maps.Copy(vars, extra)
	}
	return vars, nil
}

func (f *runFlags) options() []botlang.Option {
	if f.follow > 0 {
		return []botlang.Option{botlang.WithFollowDelegations(f.follow)}
	}
	return nil
}

// finish prints res and saves state.
func (f *runFlags) finish(cmd *cobra.Command, res *dsl.Result) error {
	out := cmd.OutOrStdout()
	if f.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(out, res, f.verbose)
	}

	if f.stateFile != "" {
		if err := botlang.NewStateFile(f.stateFile).Save(res.Variables); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	if !res.OK() {
		return errRunFailed
	}
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a bot script against an input",
	Example: `  botlang run support.bot --input "I need help with billing"
  botlang run counter.bot --state vars.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		input, err := runOpts.parseInput()
		if err != nil {
			return err
		}
		vars, err := runOpts.loadVars()
		if err != nil {
			return err
		}

		rt, err := newRuntime(nil, runOpts.options()...)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signalContext(cmd)
		defer stop()

		res, err := rt.Run(ctx, string(src), input, vars)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return runOpts.finish(cmd, res)
	},
}

var emitOpts runFlags

var emitCmd = &cobra.Command{
	Use:     "emit <event> <file>...",
	Short:   "Load bot scripts and emit an event to them",
	Example: `  botlang emit order.shipped shop.bot --json-input --input '{"id": 42}'`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := emitOpts.parseInput()
		if err != nil {
			return err
		}
		vars, err := emitOpts.loadVars()
		if err != nil {
			return err
		}

		rt, err := newRuntime(args[1:], emitOpts.options()...)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signalContext(cmd)
		defer stop()

		return emitOpts.finish(cmd, rt.Emit(ctx, args[0], input, vars))
	},
}

var sendOpts runFlags

var sendCmd = &cobra.Command{
	Use:     "send <agent> <file>...",
	Short:   "Load bot scripts and send an input to one agent",
	Example: `  botlang send Billing support.bot --input "refund order 7"`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := sendOpts.parseInput()
		if err != nil {
			return err
		}
		vars, err := sendOpts.loadVars()
		if err != nil {
			return err
		}

		rt, err := newRuntime(args[1:], sendOpts.options()...)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signalContext(cmd)
		defer stop()

		res, err := rt.Send(ctx, args[0], input, vars)
		if err != nil {
			return err
		}
		return sendOpts.finish(cmd, res)
	},
}

func init() {
	runOpts.register(runCmd)
	emitOpts.register(emitCmd)
	sendOpts.register(sendCmd)
}
