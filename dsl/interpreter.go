package dsl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/everydev1618/botlang/tools"
)

// InterpreterOption configures the interpreter.
type InterpreterOption func(*Interpreter)

// WithTools sets the registry used by RegisterTool and, unless WithToolSet
// is also given, for dispatch.
func WithTools(t *tools.Tools) InterpreterOption {
	return func(i *Interpreter) {
		i.registry = t
	}
}

// WithToolSet dispatches calls through a custom capability set.
func WithToolSet(ts ToolSet) InterpreterOption {
	return func(i *Interpreter) {
		i.toolset = ts
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) InterpreterOption {
	return func(i *Interpreter) {
		i.logger = l
	}
}

// WithToolTimeout bounds every tool invocation. Zero disables the bound.
func WithToolTimeout(d time.Duration) InterpreterOption {
	return func(i *Interpreter) {
		i.toolTimeout = d
	}
}

// WithTracer sets the tracer used for run spans. The default is the global
// OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) InterpreterOption {
	return func(i *Interpreter) {
		i.tracer = t
	}
}

// WithMaxParallel limits how many statements of a parallel block run at
// once. Zero means no limit.
func WithMaxParallel(n int) InterpreterOption {
	return func(i *Interpreter) {
		i.maxParallel = n
	}
}

// WithToolErrorHandler registers a callback invoked for every failed tool
// call, after the failure is recorded in the result.
func WithToolErrorHandler(fn func(ctx context.Context, runID string, call ToolCall, err error)) InterpreterOption {
	return func(i *Interpreter) {
		i.onToolError = fn
	}
}

// WithReturnExits makes `return` end the handler or bot it appears in,
// and halt the run at top level. Without it a return records its value and
// execution carries on with the next statement.
func WithReturnExits() InterpreterOption {
	return func(i *Interpreter) {
		i.returnExits = true
	}
}

// agentRef locates an agent inside its owning bot.
type agentRef struct {
	bot string
	def *AgentDefinition
}

// Interpreter executes bot scripts. Bot definitions and tools persist across
// calls; every call gets its own ExecutionContext, so one interpreter can
// serve concurrent runs.
type Interpreter struct {
	registry    *tools.Tools
	toolset     ToolSet
	logger      *slog.Logger
	tracer      trace.Tracer
	toolTimeout time.Duration
	maxParallel int
	returnExits bool
	onToolError func(ctx context.Context, runID string, call ToolCall, err error)

	mu       sync.RWMutex
	bots     map[string]*BotDefinition
	botOrder []string
	agents   map[string]agentRef
}

// NewInterpreter creates an interpreter with no bots registered.
func NewInterpreter(opts ...InterpreterOption) *Interpreter {
	i := &Interpreter{
		bots:   make(map[string]*BotDefinition),
		agents: make(map[string]agentRef),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.registry == nil {
		i.registry = tools.New()
	}
	if i.toolset == nil {
		i.toolset = i.registry
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.tracer == nil {
		i.tracer = otel.Tracer("botlang/dsl")
	}
	return i
}

// RegisterTool adds a host tool. See tools.Tools.Register for the accepted
// function shapes.
func (i *Interpreter) RegisterTool(name string, fn any) error {
	return i.registry.Register(name, fn)
}

// SetFallbackToolHandler installs the handler for calls to unregistered
// tools. It receives the tool name under args["tool"].
func (i *Interpreter) SetFallbackToolHandler(fn tools.Func) {
	i.registry.SetFallback(fn)
}

// Tools returns the interpreter's tool registry.
func (i *Interpreter) Tools() *tools.Tools {
	return i.registry
}

// Load parses source and registers its bot definitions, replacing bots of
// the same name.
func (i *Interpreter) Load(source string) (*Program, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	i.register(prog)
	return prog, nil
}

func (i *Interpreter) register(prog *Program) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, bot := range prog.Bots() {
		if old, ok := i.bots[bot.Name]; ok {
			for _, agent := range old.Agents() {
				delete(i.agents, agent.Name)
			}
		} else {
			i.botOrder = append(i.botOrder, bot.Name)
		}
		i.bots[bot.Name] = bot
		for _, agent := range bot.Agents() {
			i.agents[agent.Name] = agentRef{bot: bot.Name, def: agent}
		}
		i.logger.Debug("bot registered", "bot", bot.Name, "agents", len(bot.Agents()))
	}
}

// Bots returns the registered bot names in registration order.
func (i *Interpreter) Bots() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]string(nil), i.botOrder...)
}

// Bot returns a registered bot definition.
func (i *Interpreter) Bot(name string) (*BotDefinition, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	bot, ok := i.bots[name]
	return bot, ok
}

// Agents returns the registered agent names, grouped by bot in
// registration order.
func (i *Interpreter) Agents() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var names []string
	for _, name := range i.botOrder {
		for _, agent := range i.bots[name].Agents() {
			if ref, ok := i.agents[agent.Name]; ok && ref.def == agent {
				names = append(names, agent.Name)
			}
		}
	}
	return names
}

// Run tokenizes, parses and executes source. Bot definitions found are
// registered, then every top-level item executes against input. The error
// is non-nil only for lexical and syntax errors; tool failures are
// reported in Result.Errors.
func (i *Interpreter) Run(ctx context.Context, source string, input any, vars map[string]any) (*Result, error) {
	prog, err := i.Load(source)
	if err != nil {
		return nil, err
	}
	return i.Execute(ctx, prog, input, vars), nil
}

// Execute runs an already parsed program. Its bots are registered first.
func (i *Interpreter) Execute(ctx context.Context, prog *Program, input any, vars map[string]any) *Result {
	i.register(prog)

	ec := i.begin(vars, input)
	ctx, span := i.tracer.Start(ctx, "botlang.run", trace.WithAttributes(
		attribute.String("botlang.run_id", ec.runID),
		attribute.Int("botlang.items", len(prog.Items)),
	))
	defer span.End()

	for _, item := range prog.Items {
		if i.stopped(ctx, ec) {
			break
		}
		switch n := item.(type) {
		case *BotDefinition:
			i.runBot(ctx, ec, n)
		case Statement:
			ec.bot = ""
			if sig := i.execStatement(ctx, ec, n); sig.kind == sigReturn && i.returnExits {
				ec.halted = true
			}
		}
	}
	return i.finish(span, ec)
}

// runBot executes a bot's top-level statements and input handlers in
// declaration order. Agents and event handlers do not run here.
func (i *Interpreter) runBot(ctx context.Context, ec *ExecutionContext, bot *BotDefinition) {
	for _, item := range bot.Body {
		if i.stopped(ctx, ec) {
			return
		}
		ec.bot = bot.Name
		switch n := item.(type) {
		case *OnInputHandler:
			if i.runInputHandler(ctx, ec, n) {
				return
			}
		case Statement:
			if sig := i.execStatement(ctx, ec, n); i.exits(sig) {
				return
			}
		}
	}
}

// runInputHandler runs h when its guard passes. It reports whether the
// handler ended its bot's remaining handlers.
func (i *Interpreter) runInputHandler(ctx context.Context, ec *ExecutionContext, h *OnInputHandler) bool {
	if h.Guard != nil && !truthy(i.eval(ec, h.Guard)) {
		return false
	}
	return i.runEntry(ctx, ec, h.Body)
}

// runEntry executes a handler body as one entry point.
func (i *Interpreter) runEntry(ctx context.Context, ec *ExecutionContext, body *Block) bool {
	return i.exits(i.execBlock(ctx, ec, body.Statements))
}

// EmitEvent runs every `on event` handler named name, in every registered
// bot and agent, in registration order. The event name is bound to the
// `event` variable.
func (i *Interpreter) EmitEvent(ctx context.Context, name string, input any, vars map[string]any) *Result {
	ec := i.begin(vars, input)
	ec.set("event", name)

	ctx, span := i.tracer.Start(ctx, "botlang.event", trace.WithAttributes(
		attribute.String("botlang.run_id", ec.runID),
		attribute.String("botlang.event", name),
	))
	defer span.End()

	type target struct {
		owner   string
		handler *OnEventHandler
	}
	var targets []target

	i.mu.RLock()
	for _, botName := range i.botOrder {
		bot := i.bots[botName]
		for _, item := range bot.Body {
			switch n := item.(type) {
			case *OnEventHandler:
				if n.Event == name {
					targets = append(targets, target{bot.Name, n})
				}
			case *AgentDefinition:
				for _, h := range n.Handlers {
					if eh, ok := h.(*OnEventHandler); ok && eh.Event == name {
						targets = append(targets, target{n.Name, eh})
					}
				}
			}
		}
	}
	i.mu.RUnlock()

	if len(targets) == 0 {
		i.logger.Debug("event has no handlers", "event", name, "run_id", ec.runID)
	}
	for _, t := range targets {
		if i.stopped(ctx, ec) {
			break
		}
		ec.bot = t.owner
		i.runEntry(ctx, ec, t.handler.Body)
	}
	return i.finish(span, ec)
}

// SendToAgent runs the input handlers of a registered agent against input.
func (i *Interpreter) SendToAgent(ctx context.Context, agent string, input any, vars map[string]any) (*Result, error) {
	i.mu.RLock()
	ref, ok := i.agents[agent]
	i.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}

	ec := i.begin(vars, input)
	ctx, span := i.tracer.Start(ctx, "botlang.agent", trace.WithAttributes(
		attribute.String("botlang.run_id", ec.runID),
		attribute.String("botlang.bot", ref.bot),
		attribute.String("botlang.agent", agent),
	))
	defer span.End()

	for _, h := range ref.def.Handlers {
		if i.stopped(ctx, ec) {
			break
		}
		if ih, ok := h.(*OnInputHandler); ok {
			ec.bot = agent
			if i.runInputHandler(ctx, ec, ih) {
				break
			}
		}
	}
	return i.finish(span, ec), nil
}

func (i *Interpreter) begin(vars map[string]any, input any) *ExecutionContext {
	ec := newExecutionContext(uuid.NewString(), vars)
	ec.set("input", normalize(input))
	return ec
}

func (i *Interpreter) finish(span trace.Span, ec *ExecutionContext) *Result {
	res := ec.result()
	span.SetAttributes(
		attribute.Int("botlang.outputs", len(res.Output)),
		attribute.Int("botlang.errors", len(res.Errors)),
		attribute.Int("botlang.tool_calls", len(res.ToolCalls)),
	)
	return res
}
