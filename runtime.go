package botlang

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/everydev1618/botlang/config"
	"github.com/everydev1618/botlang/dsl"
	"github.com/everydev1618/botlang/memory"
	"github.com/everydev1618/botlang/serve"
	"github.com/everydev1618/botlang/tools"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithStore uses store for memory tools and schedules instead of opening
// the configured database. The caller keeps ownership of store.
func WithStore(store memory.Store) Option {
	return func(r *Runtime) {
		r.store = store
	}
}

// WithFollowDelegations makes Run, Emit and Send run the agents named by
// `delegate to` statements, up to maxHops levels deep. Their output,
// errors and tool calls are appended to the delegating result.
func WithFollowDelegations(maxHops int) Option {
	return func(r *Runtime) {
		r.maxHops = maxHops
	}
}

// WithLogger sets the logger for the runtime, interpreter and tools.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithEventBus publishes run events on bus instead of a private one.
func WithEventBus(bus *EventBus) Option {
	return func(r *Runtime) {
		r.bus = bus
	}
}

// Runtime executes bot scripts against a configured tool set.
type Runtime struct {
	cfg       *config.Config
	interp    *dsl.Interpreter
	tools     *tools.Tools
	store     memory.Store
	ownsStore bool
	bus       *EventBus
	logger    *slog.Logger
	maxHops   int
}

// New creates a Runtime with the default configuration and no persistent
// memory unless WithStore is given.
func New(opts ...Option) (*Runtime, error) {
	cfg := config.Default()
	cfg.Memory.Disabled = true
	return FromConfig(cfg, opts...)
}

// FromConfig creates a Runtime from cfg. Unless memory is disabled, the
// SQLite store at cfg.Memory.Path (or inside the home directory) is
// opened and closed by Close.
func FromConfig(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runtime{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.bus == nil {
		r.bus = NewEventBus()
	}

	r.tools = tools.New(
		tools.WithSandbox(cfg.Sandbox),
		tools.WithMiddleware(tools.Logging(r.logger), tools.Tracing()),
	)
	if err := r.registerTools(); err != nil {
		return nil, err
	}

	if r.store == nil && !cfg.Memory.Disabled {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		r.store, r.ownsStore = store, true
	}
	if r.store != nil {
		if err := memory.RegisterTools(r.tools, r.store); err != nil {
			r.Close()
			return nil, err
		}
	}

	interpOpts := []dsl.InterpreterOption{
		dsl.WithTools(r.tools),
		dsl.WithLogger(r.logger),
		dsl.WithToolTimeout(cfg.ToolTimeout.Duration),
		dsl.WithMaxParallel(cfg.MaxParallel),
		dsl.WithToolErrorHandler(r.toolFailed),
	}
	if cfg.ReturnExits {
		interpOpts = append(interpOpts, dsl.WithReturnExits())
	}
	r.interp = dsl.NewInterpreter(interpOpts...)
	return r, nil
}

func (r *Runtime) registerTools() error {
	if err := r.tools.RegisterBuiltins(); err != nil {
		return fmt.Errorf("register builtin tools: %w", err)
	}
	if r.cfg.AllowExec {
		if err := r.tools.RegisterExec(); err != nil {
			return fmt.Errorf("register shell.exec: %w", err)
		}
	}
	if r.cfg.ToolsDir != "" {
		if err := r.tools.LoadDirectory(r.cfg.ToolsDir); err != nil {
			return err
		}
	}
	for _, def := range r.cfg.Tools {
		if err := r.tools.RegisterDynamicTool(def); err != nil {
			return fmt.Errorf("tool %s: %w", def.Name, err)
		}
	}
	return nil
}

func openStore(cfg *config.Config) (*memory.SQLiteStore, error) {
	path := cfg.Memory.Path
	if path == "" {
		home := cfg.Home
		if home == "" {
			home = Home()
		}
		if err := EnsureHome(home); err != nil {
			return nil, fmt.Errorf("create home: %w", err)
		}
		path = DefaultDBPath(home)
	}
	store, err := memory.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return store, nil
}

// Interpreter returns the underlying interpreter.
func (r *Runtime) Interpreter() *dsl.Interpreter { return r.interp }

// Tools returns the tool registry shared by every run.
func (r *Runtime) Tools() *tools.Tools { return r.tools }

// Store returns the memory store, or nil when memory is disabled.
func (r *Runtime) Store() memory.Store { return r.store }

// Events returns the runtime's event bus.
func (r *Runtime) Events() *EventBus { return r.bus }

// Load parses source and registers its bots.
func (r *Runtime) Load(source string) (*dsl.Program, error) {
	return r.interp.Load(source)
}

// LoadFile reads and loads a script file.
func (r *Runtime) LoadFile(path string) (*dsl.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := r.interp.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Run executes source against input. See dsl.Interpreter.Run.
func (r *Runtime) Run(ctx context.Context, source string, input any, vars map[string]any) (*dsl.Result, error) {
	prog, err := r.interp.Load(source)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, prog, input, vars), nil
}

// Execute runs an already parsed program.
func (r *Runtime) Execute(ctx context.Context, prog *dsl.Program, input any, vars map[string]any) *dsl.Result {
	start := r.started("run", "")
	res := r.interp.Execute(ctx, prog, input, vars)
	r.follow(ctx, res, input, 0)
	r.completed("run", "", start, res)
	return res
}

// Emit delivers an event to every loaded bot.
func (r *Runtime) Emit(ctx context.Context, name string, input any, vars map[string]any) *dsl.Result {
	start := r.started("event", name)
	res := r.interp.EmitEvent(ctx, name, input, vars)
	r.follow(ctx, res, input, 0)
	r.completed("event", name, start, res)
	return res
}

// Send runs an agent's input handlers.
func (r *Runtime) Send(ctx context.Context, agent string, input any, vars map[string]any) (*dsl.Result, error) {
	start := r.started("agent", agent)
	res, err := r.interp.SendToAgent(ctx, agent, input, vars)
	if err != nil {
		return nil, err
	}
	r.follow(ctx, res, input, 0)
	r.completed("agent", agent, start, res)
	return res, nil
}

// follow runs the agents res delegated to and folds their results in.
func (r *Runtime) follow(ctx context.Context, res *dsl.Result, input any, depth int) {
	if depth >= r.maxHops {
		return
	}
	for _, d := range res.Delegations {
		if ctx.Err() != nil {
			return
		}
		sub, err := r.interp.SendToAgent(ctx, d.Agent, input, d.Args)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("delegate to %s: %v", d.Agent, err))
			continue
		}
		r.logger.Debug("followed delegation", "from", d.From, "agent", d.Agent, "run_id", res.RunID, "sub_run_id", sub.RunID)
		r.follow(ctx, sub, input, depth+1)
		res.Output = append(res.Output, sub.Output...)
		res.Errors = append(res.Errors, sub.Errors...)
		res.ToolCalls = append(res.ToolCalls, sub.ToolCalls...)
	}
}

// Serve fires configured and stored schedules until ctx is cancelled.
func (r *Runtime) Serve(ctx context.Context) error {
	host := serve.NewHost(serve.EmitterFunc(r.Emit), r.tools, serve.Config{
		Store: r.store,
		Jobs:  r.cfg.Schedules,
	})
	return host.Start(ctx)
}

// Close releases the memory store if the runtime opened it and closes the
// event bus.
func (r *Runtime) Close() error {
	var err error
	if r.ownsStore && r.store != nil {
		err = r.store.Close()
		r.store = nil
	}
	r.bus.Close()
	return err
}

func (r *Runtime) started(kind, name string) time.Time {
	r.bus.Publish(Event{Type: EventRunStarted, Kind: kind, Name: name})
	return time.Now()
}

func (r *Runtime) completed(kind, name string, start time.Time, res *dsl.Result) {
	r.bus.Publish(Event{
		Type:     EventRunCompleted,
		RunID:    res.RunID,
		Kind:     kind,
		Name:     name,
		Outputs:  len(res.Output),
		Errors:   len(res.Errors),
		Duration: time.Since(start),
	})
}

func (r *Runtime) toolFailed(ctx context.Context, runID string, call dsl.ToolCall, err error) {
	r.bus.Publish(Event{
		Type:  EventToolFailed,
		RunID: runID,
		Tool:  call.Tool,
		Error: err.Error(),
	})
}

// IsScriptError reports whether err is a lexical or syntax error in a script.
func IsScriptError(err error) bool {
	var lexErr *dsl.LexError
	var synErr *dsl.SyntaxError
	return errors.As(err, &lexErr) || errors.As(err, &synErr)
}
