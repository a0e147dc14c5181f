// Package tools holds the host operations a bot script can invoke with
// `call`, plus the middleware that wraps them.
package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Standard errors
var (
	// ErrToolNotFound is returned when a tool is not registered
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered is returned when trying to register a duplicate tool name.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrInvalidArgs is returned when a call is missing a required argument
	// or passes one of the wrong type.
	ErrInvalidArgs = errors.New("invalid arguments")
)

// ToolError wraps errors with tool context.
type ToolError struct {
	ToolName string
	Err      error
}

func (e *ToolError) Error() string {
	return "tool " + e.ToolName + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Env is the view of a running script a tool receives.
type Env interface {
	// Get returns the value of a script variable.
	Get(name string) (any, bool)
	// Set assigns a script variable.
	Set(name string, value any)
	// RunID identifies the run the call belongs to.
	RunID() string
	// Bot names the bot or agent whose handler is executing, or "" for
	// top-level statements.
	Bot() string
}

// Func is the signature every registered tool is adapted to. Args hold
// fully evaluated argument values.
type Func func(ctx context.Context, args map[string]any, env Env) (any, error)

// Middleware wraps tool execution. Name is the tool being called.
type Middleware func(name string, next Func) Func

// ParamDef defines a tool parameter.
type ParamDef struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Required    bool     `json:"required" yaml:"required"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// Def allows explicit tool definition with parameters.
type Def struct {
	Description string
	Params      map[string]ParamDef
	Fn          any
}

// Info describes a registered tool.
type Info struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Params      map[string]ParamDef `json:"params,omitempty"`
}

// tool is an internal representation of a registered tool.
type tool struct {
	name        string
	description string
	fn          Func
	params      map[string]ParamDef
}

// Option configures Tools.
type Option func(*Tools)

// WithSandbox restricts path arguments to a directory.
func WithSandbox(path string) Option {
	return func(t *Tools) {
		t.sandbox = path
	}
}

// WithMiddleware installs middleware, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(t *Tools) {
		t.middleware = append(t.middleware, mw...)
	}
}

// Tools is a collection of callable tools with an optional catch-all
// fallback. It is safe for concurrent use.
type Tools struct {
	tools      map[string]*tool
	fallback   Func
	middleware []Middleware
	sandbox    string
	mu         sync.RWMutex
}

// New creates an empty tool collection.
func New(opts ...Option) *Tools {
	t := &Tools{
		tools: make(map[string]*tool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds a tool to the collection.
// The function can be:
// - Func
// - func(ctx, args, env) (any, error)
// - func(ctx, args) (any, error)
// - func(ctx, args) (string, error)
// - func(args) (any, error)
// - Def with explicit parameters
func (t *Tools) Register(name string, fn any) error {
	if name == "" {
		return errors.New("tool name is required")
	}

	tl := &tool{name: name}
	if def, ok := fn.(Def); ok {
		tl.description = def.Description
		tl.params = def.Params
		fn = def.Fn
	}
	f, err := adapt(fn)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	tl.fn = f

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, name)
	}
	t.tools[name] = tl
	return nil
}

// Unregister removes a tool. It reports whether the tool existed.
func (t *Tools) Unregister(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tools[name]
	delete(t.tools, name)
	return ok
}

// SetFallback installs the handler used for calls to unregistered tools.
// The handler receives the requested name under the "tool" argument. A nil
// handler removes the fallback.
func (t *Tools) SetFallback(fn Func) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = fn
}

// Use adds middleware to the tool chain.
func (t *Tools) Use(mw Middleware) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.middleware = append(t.middleware, mw)
}

// Lookup returns the registered tool with its parameter checks, sandbox
// rewriting and middleware applied.
func (t *Tools) Lookup(name string) (Func, bool) {
	t.mu.RLock()
	tl, ok := t.tools[name]
	middleware := t.middleware
	sandbox := t.sandbox
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}

	exec := func(ctx context.Context, args map[string]any, env Env) (any, error) {
		args, err := applyParams(tl.params, args)
		if err != nil {
			return nil, &ToolError{ToolName: name, Err: err}
		}
		if sandbox != "" {
			args = rewritePathsForSandbox(args, sandbox)
		}
		result, err := tl.fn(ctx, args, env)
		if err != nil {
			return nil, &ToolError{ToolName: name, Err: err}
		}
		return result, nil
	}
	return chain(name, exec, middleware), true
}

// Fallback returns the fallback handler with middleware applied, or nil.
func (t *Tools) Fallback() Func {
	t.mu.RLock()
	fb := t.fallback
	middleware := t.middleware
	t.mu.RUnlock()
	if fb == nil {
		return nil
	}
	exec := func(ctx context.Context, args map[string]any, env Env) (any, error) {
		result, err := fb(ctx, args, env)
		if err != nil {
			name, _ := args["tool"].(string)
			return nil, &ToolError{ToolName: name, Err: err}
		}
		return result, nil
	}
	return chain("fallback", exec, middleware)
}

// Execute calls a tool by name, falling back to the fallback handler.
func (t *Tools) Execute(ctx context.Context, name string, args map[string]any, env Env) (any, error) {
	if fn, ok := t.Lookup(name); ok {
		return fn(ctx, args, env)
	}
	if fb := t.Fallback(); fb != nil {
		merged := maps.Clone(args)
		if merged == nil {
			merged = make(map[string]any)
		}
		merged["tool"] = name
		return fb(ctx, merged, env)
	}
	return nil, &ToolError{ToolName: name, Err: ErrToolNotFound}
}

// Names returns the registered tool names in sorted order.
func (t *Tools) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.tools))
}

// Describe returns information about every registered tool, sorted by name.
func (t *Tools) Describe() []Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	infos := make([]Info, 0, len(t.tools))
	for _, name := range slices.Sorted(maps.Keys(t.tools)) {
		tl := t.tools[name]
		infos = append(infos, Info{Name: tl.name, Description: tl.description, Params: tl.params})
	}
	return infos
}

// Sandbox returns the sandbox directory, or "" when unrestricted.
func (t *Tools) Sandbox() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sandbox
}

func chain(name string, fn Func, middleware []Middleware) Func {
	for i := len(middleware) - 1; i >= 0; i-- {
		fn = middleware[i](name, fn)
	}
	return fn
}

// adapt converts the accepted tool function shapes to Func.
func adapt(fn any) (Func, error) {
	switch f := fn.(type) {
	case Func:
		return f, nil
	case func(context.Context, map[string]any, Env) (any, error):
		return f, nil
	case func(context.Context, map[string]any) (any, error):
		return func(ctx context.Context, args map[string]any, _ Env) (any, error) {
			return f(ctx, args)
		}, nil
	case func(context.Context, map[string]any) (string, error):
		return func(ctx context.Context, args map[string]any, _ Env) (any, error) {
			return f(ctx, args)
		}, nil
	case func(map[string]any) (any, error):
		return func(_ context.Context, args map[string]any, _ Env) (any, error) {
			return f(args)
		}, nil
	case nil:
		return nil, errors.New("tool function is nil")
	}
	return nil, fmt.Errorf("unsupported tool function type %T", fn)
}

// applyParams fills defaults and checks required and enum parameters.
func applyParams(params map[string]ParamDef, args map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return args, nil
	}
	out := maps.Clone(args)
	if out == nil {
		out = make(map[string]any)
	}
	for _, name := range slices.Sorted(maps.Keys(params)) {
		def := params[name]
		v, ok := out[name]
		if !ok || v == nil {
			if def.Default != nil {
				out[name] = def.Default
				continue
			}
			if def.Required {
				return nil, fmt.Errorf("%w: missing %q", ErrInvalidArgs, name)
			}
			continue
		}
		if len(def.Enum) > 0 && !slices.Contains(def.Enum, fmt.Sprint(v)) {
			return nil, fmt.Errorf("%w: %q must be one of %s", ErrInvalidArgs, name, strings.Join(def.Enum, ", "))
		}
	}
	return out, nil
}

// rewritePathsForSandbox rewrites path arguments to be within sandbox.
func rewritePathsForSandbox(args map[string]any, sandbox string) map[string]any {
	result := make(map[string]any, len(args))
	for k, v := range args {
		if k == "path" || strings.HasSuffix(k, "_path") || strings.HasSuffix(k, "Path") {
			if s, ok := v.(string); ok {
				result[k] = SandboxPath(sandbox, s)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// SandboxPath resolves p inside sandbox. Paths escaping the sandbox are
// redirected to sandbox/basename.
func SandboxPath(sandbox, p string) string {
	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(sandbox, clean)
	}
	rel, err := filepath.Rel(sandbox, clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(sandbox, filepath.Base(clean))
	}
	return clean
}
