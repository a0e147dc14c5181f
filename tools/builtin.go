package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxExecOutput caps the output returned by shell.exec.
const maxExecOutput = 8000

// absPathRe matches absolute path tokens inside shell command strings.
// Stops at whitespace and common shell meta-characters.
var absPathRe = regexp.MustCompile(`(/[^\s"'<>|&;(){}\[\]\\]+)`)

// rewriteCommandPaths rewrites absolute paths in a shell command that escape
// the sandbox, redirecting them to sandbox/basename.
func rewriteCommandPaths(command, sandbox string) string {
	return absPathRe.ReplaceAllStringFunc(command, func(match string) string {
		clean := filepath.Clean(match)
		rel, err := filepath.Rel(sandbox, clean)
		if err != nil || strings.HasPrefix(rel, "..") {
			return filepath.Join(sandbox, filepath.Base(clean))
		}
		return match
	})
}

// sandboxEnv returns the current environment with HOME and TMPDIR pointed at
// the sandbox, preventing shell expansions like ~ from escaping.
func sandboxEnv(sandbox string) []string {
	env := os.Environ()
	result := make([]string, 0, len(env)+2)
	for _, e := range env {
		if strings.HasPrefix(e, "HOME=") || strings.HasPrefix(e, "TMPDIR=") {
			continue
		}
		result = append(result, e)
	}
	return append(result, "HOME="+sandbox, "TMPDIR="+sandbox)
}

// ok builds the {success, data} envelope local tools return.
func ok(data map[string]any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

// stringArg returns args[name] as a string. Non-string scalars are
// formatted; a missing value yields "".
func stringArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// RegisterBuiltins adds the local file, text, json, time and random tools.
func (t *Tools) RegisterBuiltins() error {
	var errs []error
	reg := func(name string, def Def) {
		errs = append(errs, t.Register(name, def))
	}

	pathParam := ParamDef{Type: "string", Description: "File path", Required: true}
	textParam := ParamDef{Type: "string", Description: "Input text", Required: true}

	reg("file.read", Def{
		Description: "Read a file",
		Params:      map[string]ParamDef{"path": pathParam},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			path := stringArg(args, "path")
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return ok(map[string]any{"path": path, "content": string(data)}), nil
		},
	})

	reg("file.write", Def{
		Description: "Write content to a file, replacing it",
		Params: map[string]ParamDef{
			"path":    pathParam,
			"content": {Type: "string", Description: "Content to write", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			path, content := stringArg(args, "path"), stringArg(args, "content")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return nil, err
			}
			return ok(map[string]any{"path": path, "bytes": float64(len(content))}), nil
		},
	})

	reg("file.append", Def{
		Description: "Append content to a file",
		Params: map[string]ParamDef{
			"path":    pathParam,
			"content": {Type: "string", Description: "Content to append", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			path, content := stringArg(args, "path"), stringArg(args, "content")
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			if _, err := f.WriteString(content); err != nil {
				return nil, err
			}
			return ok(map[string]any{"path": path, "bytes": float64(len(content))}), nil
		},
	})

	reg("file.list", Def{
		Description: "List a directory; directories end in /",
		Params: map[string]ParamDef{
			"path": {Type: "string", Description: "Directory path", Default: "."},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			path := stringArg(args, "path")
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, err
			}
			files := make([]any, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				files = append(files, name)
			}
			return ok(map[string]any{"path": path, "files": files}), nil
		},
	})

	reg("text.upper", Def{
		Description: "Upper-case text",
		Params:      map[string]ParamDef{"text": textParam},
		Fn: func(args map[string]any) (any, error) {
			return strings.ToUpper(stringArg(args, "text")), nil
		},
	})

	reg("text.lower", Def{
		Description: "Lower-case text",
		Params:      map[string]ParamDef{"text": textParam},
		Fn: func(args map[string]any) (any, error) {
			return strings.ToLower(stringArg(args, "text")), nil
		},
	})

	reg("text.trim", Def{
		Description: "Trim surrounding whitespace",
		Params:      map[string]ParamDef{"text": textParam},
		Fn: func(args map[string]any) (any, error) {
			return strings.TrimSpace(stringArg(args, "text")), nil
		},
	})

	reg("text.split", Def{
		Description: "Split text on a separator",
		Params: map[string]ParamDef{
			"text": textParam,
			"sep":  {Type: "string", Description: "Separator", Default: ","},
		},
		Fn: func(args map[string]any) (any, error) {
			parts := strings.Split(stringArg(args, "text"), stringArg(args, "sep"))
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		},
	})

	reg("text.replace", Def{
		Description: "Replace every occurrence of old with new",
		Params: map[string]ParamDef{
			"text": textParam,
			"old":  {Type: "string", Description: "Text to replace", Required: true},
			"new":  {Type: "string", Description: "Replacement", Default: ""},
		},
		Fn: func(args map[string]any) (any, error) {
			return strings.ReplaceAll(stringArg(args, "text"), stringArg(args, "old"), stringArg(args, "new")), nil
		},
	})

	reg("text.length", Def{
		Description: "Count characters",
		Params:      map[string]ParamDef{"text": textParam},
		Fn: func(args map[string]any) (any, error) {
			return float64(len([]rune(stringArg(args, "text")))), nil
		},
	})

	reg("json.parse", Def{
		Description: "Decode a JSON document",
		Params:      map[string]ParamDef{"text": textParam},
		Fn: func(args map[string]any) (any, error) {
			var v any
			if err := json.Unmarshal([]byte(stringArg(args, "text")), &v); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
			}
			return v, nil
		},
	})

	reg("json.stringify", Def{
		Description: "Encode a value as JSON",
		Params: map[string]ParamDef{
			"value":  {Type: "any", Description: "Value to encode"},
			"indent": {Type: "boolean", Description: "Pretty-print", Default: false},
		},
		Fn: func(args map[string]any) (any, error) {
			var (
				data []byte
				err  error
			)
			if indent, _ := args["indent"].(bool); indent {
				data, err = json.MarshalIndent(args["value"], "", "  ")
			} else {
				data, err = json.Marshal(args["value"])
			}
			if err != nil {
				return nil, err
			}
			return string(data), nil
		},
	})

	reg("time.now", Def{
		Description: "Current time",
		Params: map[string]ParamDef{
			"format": {Type: "string", Description: "Go time layout", Default: time.RFC3339},
		},
		Fn: func(args map[string]any) (any, error) {
			now := time.Now()
			return ok(map[string]any{
				"time": now.Format(stringArg(args, "format")),
				"unix": float64(now.Unix()),
			}), nil
		},
	})

	reg("random.uuid", Def{
		Description: "Generate a random UUID",
		Fn: func(args map[string]any) (any, error) {
			return uuid.NewString(), nil
		},
	})

	return errors.Join(errs...)
}

// RegisterExec adds shell.exec, which runs a command with sh -c inside the
// sandbox (or the working directory when no sandbox is set).
func (t *Tools) RegisterExec() error {
	return t.Register("shell.exec", Def{
		Description: "Execute a shell command inside the sandbox",
		Params: map[string]ParamDef{
			"command":         {Type: "string", Description: "Shell command to run (executed via sh -c)", Required: true},
			"workdir":         {Type: "string", Description: "Subdirectory to run in; must stay within the sandbox"},
			"timeout_seconds": {Type: "number", Description: "Max seconds to wait before killing the command", Default: float64(60)},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			command := stringArg(args, "command")

			sandbox := t.Sandbox()
			workdir := sandbox
			if workdir == "" {
				var err error
				if workdir, err = os.Getwd(); err != nil {
					return nil, err
				}
			}
			if sub := stringArg(args, "workdir"); sub != "" {
				if sandbox != "" {
					workdir = SandboxPath(sandbox, sub)
				} else if filepath.IsAbs(sub) {
					workdir = filepath.Clean(sub)
				} else {
					workdir = filepath.Join(workdir, sub)
				}
			}
			if err := os.MkdirAll(workdir, 0755); err != nil {
				return nil, fmt.Errorf("cannot create workdir %s: %w", workdir, err)
			}

			timeout := 60 * time.Second
			if ts, ok := args["timeout_seconds"].(float64); ok && ts > 0 {
				timeout = time.Duration(ts * float64(time.Second))
			}
			execCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if sandbox != "" {
				command = rewriteCommandPaths(command, sandbox)
			}
			cmd := exec.CommandContext(execCtx, "sh", "-c", command)
			cmd.Dir = workdir
			if sandbox != "" {
				cmd.Env = sandboxEnv(sandbox)
			}

			var buf bytes.Buffer
			cmd.Stdout = &buf
			cmd.Stderr = &buf

			err := cmd.Run()
			output := buf.String()
			if len(output) > maxExecOutput {
				output = output[:maxExecOutput] + "\n... (truncated)"
			}
			exitCode := 0
			var exitErr *exec.ExitError
			switch {
			case errors.As(err, &exitErr):
				exitCode = exitErr.ExitCode()
			case err != nil:
				return nil, fmt.Errorf("command failed: %w", err)
			}
			return map[string]any{
				"success": exitCode == 0,
				"data": map[string]any{
					"output":    output,
					"exit_code": float64(exitCode),
				},
			}, nil
		},
	})
}
