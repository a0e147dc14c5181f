package dsl

import (
	"maps"
	"sync"

	"github.com/everydev1618/botlang/tools"
)

// ToolSet is the capability set call statements dispatch through. Lookup
// resolves a registered tool; Fallback returns the catch-all handler or
// nil. *tools.Tools satisfies it.
type ToolSet interface {
	Lookup(name string) (tools.Func, bool)
	Fallback() tools.Func
}

// ToolCall is one entry of the tool invocation trace.
type ToolCall struct {
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	IsFallback bool           `json:"is_fallback,omitempty"`
}

// Delegation records a `delegate to` hand-off requested by a handler.
type Delegation struct {
	From  string         `json:"from,omitempty"`
	Agent string         `json:"agent"`
	Args  map[string]any `json:"args,omitempty"`
}

// Result is the outcome of one Run, EmitEvent or SendToAgent call.
type Result struct {
	RunID       string         `json:"run_id"`
	Variables   map[string]any `json:"variables"`
	Output      []any          `json:"output"`
	Errors      []string       `json:"errors"`
	ToolCalls   []ToolCall     `json:"tool_calls"`
	Returned    bool           `json:"returned,omitempty"`
	ReturnValue any            `json:"return_value,omitempty"`
	Delegations []Delegation   `json:"delegations,omitempty"`
}

// OK reports whether the run finished without recorded errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// ExecutionContext is the state of a single run. It is created per call,
// threaded through execution and turned into a Result at the end. It
// implements tools.Env.
type ExecutionContext struct {
	runID string
	bot   string

	mu          sync.Mutex
	variables   map[string]any
	written     []string
	output      []any
	errors      []string
	toolCalls   []ToolCall
	delegations []Delegation

	returned    bool
	returnValue any
	halted      bool
}

func newExecutionContext(runID string, vars map[string]any) *ExecutionContext {
	ec := &ExecutionContext{
		runID:     runID,
		variables: make(map[string]any, len(vars)+1),
	}
	for k, v := range vars {
		ec.variables[k] = normalize(v)
	}
	return ec
}

// Get returns a variable.
func (ec *ExecutionContext) Get(name string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.variables[name]
	return v, ok
}

// Set assigns a variable. Values from host code are normalized to script
// values.
func (ec *ExecutionContext) Set(name string, value any) {
	ec.set(name, normalize(value))
}

func (ec *ExecutionContext) set(name string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.variables[name] = value
	ec.written = append(ec.written, name)
}

// RunID identifies the run.
func (ec *ExecutionContext) RunID() string { return ec.runID }

// Bot names the bot or agent whose code is executing.
func (ec *ExecutionContext) Bot() string { return ec.bot }

func (ec *ExecutionContext) say(v any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.output = append(ec.output, v)
}

func (ec *ExecutionContext) addError(msg string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errors = append(ec.errors, msg)
}

func (ec *ExecutionContext) trace(call ToolCall) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.toolCalls = append(ec.toolCalls, call)
}

// recordReturn keeps the value of the latest return executed.
func (ec *ExecutionContext) recordReturn(v any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.returned, ec.returnValue = true, v
}

func (ec *ExecutionContext) delegate(d Delegation) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.delegations = append(ec.delegations, d)
}

// fork returns a child context for one branch of a parallel block. The
// child sees a snapshot of the variables and records into its own lists.
func (ec *ExecutionContext) fork() *ExecutionContext {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return &ExecutionContext{
		runID:     ec.runID,
		bot:       ec.bot,
		variables: maps.Clone(ec.variables),
	}
}

// merge folds a finished fork back in: lists are appended and variable
// writes replayed in the order the fork made them.
func (ec *ExecutionContext) merge(child *ExecutionContext) {
	child.mu.Lock()
	defer child.mu.Unlock()
	ec.mu.Lock()
	defer ec.mu.Unlock()

	for _, name := range child.written {
		ec.variables[name] = child.variables[name]
		ec.written = append(ec.written, name)
	}
	ec.output = append(ec.output, child.output...)
	ec.errors = append(ec.errors, child.errors...)
	ec.toolCalls = append(ec.toolCalls, child.toolCalls...)
	ec.delegations = append(ec.delegations, child.delegations...)
	if child.returned {
		ec.returned, ec.returnValue = true, child.returnValue
	}
	if child.halted {
		ec.halted = true
	}
}

func (ec *ExecutionContext) result() *Result {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return &Result{
		RunID:       ec.runID,
		Variables:   maps.Clone(ec.variables),
		Output:      nonNil(ec.output),
		Errors:      nonNil(ec.errors),
		ToolCalls:   nonNil(ec.toolCalls),
		Returned:    ec.returned,
		ReturnValue: ec.returnValue,
		Delegations: ec.delegations,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
