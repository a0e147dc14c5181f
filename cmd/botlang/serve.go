package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/everydev1618/botlang"
)

var serveFollow int

var serveCmd = &cobra.Command{
	Use:   "serve <file>...",
	Short: "Load bot scripts and fire their schedules until interrupted",
	Long: `Load bot scripts and keep them running. Schedules from the config file
and schedules created by scripts with schedule.create emit events into the
loaded bots. Script-created schedules are stored in the memory database and
restored on the next start.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []botlang.Option
		if serveFollow > 0 {
			opts = append(opts, botlang.WithFollowDelegations(serveFollow))
		}
		rt, err := newRuntime(args, opts...)
		if err != nil {
			return err
		}
		defer rt.Close()

		if events := rt.Events().Subscribe(); events != nil {
			go logEvents(events)
		}

		ctx, stop := signalContext(cmd)
		defer stop()

		slog.Info("bots loaded", "bots", rt.Interpreter().Bots(), "agents", rt.Interpreter().Agents())
		return rt.Serve(ctx)
	},
}

func logEvents(events chan botlang.Event) {
	for e := range events {
		switch e.Type {
		case botlang.EventToolFailed:
			slog.Warn("tool failed", "run_id", e.RunID, "tool", e.Tool, "error", e.Error)
		case botlang.EventRunCompleted:
			slog.Info("run completed", "run_id", e.RunID, "kind", e.Kind, "name", e.Name,
				"outputs", e.Outputs, "errors", e.Errors, "duration", e.Duration)
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&serveFollow, "follow", 0, "follow delegations up to this many hops")
}
