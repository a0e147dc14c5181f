package dsl

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/everydev1618/botlang/tools"
)

type signalKind int

const (
	sigContinue signalKind = iota
	sigReturn
	sigDelegate
	sigHalt
)

// signal is what executing a statement reports to its enclosing block.
type signal struct {
	kind       signalKind
	value      any
	delegation *Delegation
}

var continueSignal = signal{kind: sigContinue}

// execBlock runs statements in order. It stops at a halt, and at a return
// when returns exit; delegation is recorded and execution continues.
func (i *Interpreter) execBlock(ctx context.Context, ec *ExecutionContext, stmts []Statement) signal {
	for _, stmt := range stmts {
		if i.stopped(ctx, ec) {
			return signal{kind: sigHalt}
		}
		if sig := i.execStatement(ctx, ec, stmt); i.exits(sig) {
			return sig
		}
	}
	return continueSignal
}

// exits reports whether sig ends the enclosing block.
func (i *Interpreter) exits(sig signal) bool {
	return sig.kind == sigHalt || (sig.kind == sigReturn && i.returnExits)
}

// stopped reports whether the run must not continue. The first time it
// sees a done context it records the reason and halts the run.
func (i *Interpreter) stopped(ctx context.Context, ec *ExecutionContext) bool {
	if ec.halted {
		return true
	}
	if err := ctx.Err(); err != nil {
		ec.addError(fmt.Sprintf("run stopped: %v", err))
		ec.halted = true
		return true
	}
	return false
}

func (i *Interpreter) execStatement(ctx context.Context, ec *ExecutionContext, stmt Statement) signal {
	switch s := stmt.(type) {
	case *Block:
		return i.execBlock(ctx, ec, s.Statements)

	case *IfStatement:
		if truthy(i.eval(ec, s.Condition)) {
			return i.execBlock(ctx, ec, s.Consequent.Statements)
		}
		if s.Alternate != nil {
			return i.execStatement(ctx, ec, s.Alternate)
		}
		return continueSignal

	case *CallStatement:
		i.execCall(ctx, ec, s)
		return continueSignal

	case *Assignment:
		ec.set(s.Name, i.eval(ec, s.Value))
		return continueSignal

	case *SayStatement:
		ec.say(i.eval(ec, s.Message))
		return continueSignal

	case *DelegateStatement:
		return i.execDelegate(ec, s)

	case *ReturnStatement:
		var value any
		if s.Value != nil {
			value = i.eval(ec, s.Value)
		}
		ec.recordReturn(value)
		return signal{kind: sigReturn, value: value}

	case *LoopStatement:
		items, ok := i.eval(ec, s.Iterable).([]any)
		if !ok {
			return continueSignal
		}
		for _, item := range items {
			ec.set(s.Variable, item)
			if sig := i.execBlock(ctx, ec, s.Body.Statements); i.exits(sig) {
				return sig
			}
		}
		return continueSignal

	case *ParallelBlock:
		return i.execParallel(ctx, ec, s.Statements)
	}
	ec.addError(fmt.Sprintf("unsupported statement %T", stmt))
	return continueSignal
}

// execCall dispatches a call statement. Failures are recorded and never
// abort the surrounding block.
func (i *Interpreter) execCall(ctx context.Context, ec *ExecutionContext, s *CallStatement) {
	args := i.evalArgs(ec, s.Args)
	call := ToolCall{Tool: s.Tool, Args: args}

	fn, found := i.toolset.Lookup(s.Tool)
	callArgs := args
	if !found {
		if fb := i.toolset.Fallback(); fb != nil {
			fn = fb
			call.IsFallback = true
			callArgs = maps.Clone(args)
			callArgs["tool"] = s.Tool
		}
	}
	ec.trace(call)

	if fn == nil {
		err := &tools.ToolError{ToolName: s.Tool, Err: tools.ErrToolNotFound}
		i.toolFailed(ctx, ec, call, err)
		return
	}
	if i.toolTimeout > 0 {
		fn = tools.Timeout(i.toolTimeout)(s.Tool, fn)
	}

	i.logger.Debug("dispatching tool", "tool", s.Tool, "fallback", call.IsFallback, "run_id", ec.runID, "bot", ec.bot)
	result, err := fn(ctx, callArgs, ec)
	if err != nil {
		var te *tools.ToolError
		if !errors.As(err, &te) {
			err = &tools.ToolError{ToolName: s.Tool, Err: err}
		}
		i.toolFailed(ctx, ec, call, err)
		return
	}
	if s.Output != "" {
		ec.set(s.Output, smartMerge(normalize(result)))
	}
}

func (i *Interpreter) toolFailed(ctx context.Context, ec *ExecutionContext, call ToolCall, err error) {
	ec.addError(err.Error())
	i.logger.Warn("tool call failed", "tool", call.Tool, "fallback", call.IsFallback, "run_id", ec.runID, "error", err)
	if i.onToolError != nil {
		i.onToolError(ctx, ec.runID, call, err)
	}
}

// execDelegate records the hand-off in the trace and the result. Control
// stays with the current handler.
func (i *Interpreter) execDelegate(ec *ExecutionContext, s *DelegateStatement) signal {
	args := i.evalArgs(ec, s.Args)
	ec.trace(ToolCall{Tool: "delegate", Args: map[string]any{"agent": s.Agent, "args": args}})
	d := Delegation{From: ec.bot, Agent: s.Agent, Args: args}
	ec.delegate(d)
	return signal{kind: sigDelegate, delegation: &d}
}

// execParallel runs each statement concurrently on a forked context, then
// merges the forks in declaration order. Each branch sees the variables as
// they were when the block started, never a sibling's writes.
func (i *Interpreter) execParallel(ctx context.Context, ec *ExecutionContext, stmts []Statement) signal {
	forks := make([]*ExecutionContext, len(stmts))
	sigs := make([]signal, len(stmts))

	var g errgroup.Group
	if i.maxParallel > 0 {
		g.SetLimit(i.maxParallel)
	}
	for idx, stmt := range stmts {
		fork := ec.fork()
		forks[idx] = fork
		g.Go(func() error {
			sigs[idx] = i.execStatement(ctx, fork, stmt)
			return nil
		})
	}
	_ = g.Wait()

	for _, fork := range forks {
		ec.merge(fork)
	}
	for _, sig := range sigs {
		if i.exits(sig) {
			return sig
		}
	}
	return continueSignal
}

func (i *Interpreter) evalArgs(ec *ExecutionContext, args []Argument) map[string]any {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		out[arg.Name] = i.eval(ec, arg.Value)
	}
	return out
}

// eval evaluates an expression. Evaluation never fails: missing variables,
// members of null and invalid operands yield nil.
func (i *Interpreter) eval(ec *ExecutionContext, expr Expression) any {
	switch e := expr.(type) {
	case *Literal:
		return e.Value

	case *Identifier:
		v, _ := ec.Get(e.Name)
		return v

	case *VariableAccess:
		v, _ := ec.Get(e.Path[0])
		for _, seg := range e.Path[1:] {
			if v == nil {
				return nil
			}
			v = member(v, seg)
		}
		return v

	case *MemberExpression:
		obj := i.eval(ec, e.Object)
		if obj == nil {
			return nil
		}
		if e.Computed {
			return member(obj, i.eval(ec, e.Property))
		}
		if id, ok := e.Property.(*Identifier); ok {
			return member(obj, id.Name)
		}
		return nil

	case *ArrayLiteral:
		out := make([]any, len(e.Elements))
		for idx, el := range e.Elements {
			out[idx] = i.eval(ec, el)
		}
		return out

	case *ObjectLiteral:
		out := make(map[string]any, len(e.Properties))
		for _, p := range e.Properties {
			out[p.Key] = i.eval(ec, p.Value)
		}
		return out

	case *UnaryExpression:
		v := i.eval(ec, e.Operand)
		switch e.Operator {
		case "not":
			return !truthy(v)
		case "-":
			if n, ok := toNumber(v); ok {
				return -n
			}
		}
		return nil

	case *BinaryExpression:
		return i.evalBinary(ec, e)

	case *FString:
		return i.evalFString(ec, e)
	}
	return nil
}

func (i *Interpreter) evalBinary(ec *ExecutionContext, e *BinaryExpression) any {
	left := i.eval(ec, e.Left)
	switch e.Operator {
	case "and":
		if !truthy(left) {
			return left
		}
		return i.eval(ec, e.Right)
	case "or":
		if truthy(left) {
			return left
		}
		return i.eval(ec, e.Right)
	case "??":
		if left != nil {
			return left
		}
		return i.eval(ec, e.Right)
	}

	right := i.eval(ec, e.Right)
	switch e.Operator {
	case "+":
		return add(left, right)
	case "-", "*", "/", "%":
		return arithmetic(e.Operator, left, right)
	case "==":
		return looseEqual(left, right)
	case "!=":
		return !looseEqual(left, right)
	case "<", ">", "<=", ">=":
		return compare(e.Operator, left, right)
	case "contains":
		return contains(left, right)
	}
	return nil
}

// evalFString renders an f-string. An interpolation that evaluates to nil
// is emitted as written, braces included.
func (i *Interpreter) evalFString(ec *ExecutionContext, fs *FString) string {
	var b strings.Builder
	for _, part := range fs.Parts {
		if part.Expr == nil {
			b.WriteString(part.Text)
			continue
		}
		v := i.eval(ec, part.Expr)
		if v == nil {
			b.WriteString("{" + part.Source + "}")
			continue
		}
		b.WriteString(stringify(v))
	}
	return b.String()
}
