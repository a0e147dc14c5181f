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
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// DynamicToolDef is a YAML tool definition.
type DynamicToolDef struct {
	Name           string            `yaml:"name" toml:"name"`
	Description    string            `yaml:"description" toml:"description"`
	Params         []DynamicParamDef `yaml:"params" toml:"params"`
	Implementation DynamicToolImpl   `yaml:"implementation" toml:"implementation"`
}

// DynamicParamDef is a YAML parameter definition.
type DynamicParamDef struct {
	Name        string   `yaml:"name" toml:"name"`
	Type        string   `yaml:"type" toml:"type"`
	Description string   `yaml:"description" toml:"description"`
	Required    bool     `yaml:"required" toml:"required"`
	Default     any      `yaml:"default" toml:"default"`
	Enum        []string `yaml:"enum" toml:"enum"`
}

// DynamicToolImpl is a YAML implementation definition.
type DynamicToolImpl struct {
	Type     string `yaml:"type" toml:"type"` // static, template, exec, file_read, file_write
	Value    any    `yaml:"value" toml:"value"`
	Template string `yaml:"template" toml:"template"`
	Command  string `yaml:"command" toml:"command"`
	Path     string `yaml:"path" toml:"path"`
	Output   string `yaml:"output" toml:"output"` // text (default) or json
	Timeout  string `yaml:"timeout" toml:"timeout"`
}

// RegisterDynamicTool registers a tool from a DynamicToolDef.
func (t *Tools) RegisterDynamicTool(def DynamicToolDef) error {
	if def.Name == "" {
		return errors.New("dynamic tool: name is required")
	}

	params := make(map[string]ParamDef)
	for _, p := range def.Params {
		params[p.Name] = ParamDef{
			Type:        p.Type,
			Description: p.Description,
			Required:    p.Required,
			Default:     normalizeYAML(p.Default),
			Enum:        p.Enum,
		}
	}

	var fn Func
	switch def.Implementation.Type {
	case "static":
		fn = createStaticExecutor(def.Implementation)
	case "template":
		fn = createTemplateExecutor(def.Implementation)
	case "exec":
		fn = t.createExecExecutor(def.Implementation)
	case "file_read":
		fn = createFileReadExecutor(def.Implementation)
	case "file_write":
		fn = createFileWriteExecutor(def.Implementation)
	default:
		return fmt.Errorf("unknown implementation type: %q", def.Implementation.Type)
	}

	return t.Register(def.Name, Def{
		Description: def.Description,
		Params:      params,
		Fn:          fn,
	})
}

// LoadDirectory loads tool definitions from YAML files.
func (t *Tools) LoadDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read tools directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		if err := t.LoadFile(filepath.Join(path, entry.Name())); err != nil {
			return fmt.Errorf("load tool %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// LoadFile loads a single tool definition from YAML.
func (t *Tools) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var def DynamicToolDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return t.RegisterDynamicTool(def)
}

// createStaticExecutor returns a copy of the configured value on every call.
func createStaticExecutor(impl DynamicToolImpl) Func {
	value := normalizeYAML(impl.Value)
	return func(ctx context.Context, args map[string]any, env Env) (any, error) {
		return deepCopy(value), nil
	}
}

// createTemplateExecutor renders impl.Template with the call arguments.
func createTemplateExecutor(impl DynamicToolImpl) Func {
	return func(ctx context.Context, args map[string]any, env Env) (any, error) {
		out, err := interpolateTemplate(impl.Template, args)
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return decodeOutput(impl.Output, out)
	}
}

// Exec executor with template interpolation support.
func (t *Tools) createExecExecutor(impl DynamicToolImpl) Func {
	return func(ctx context.Context, args map[string]any, env Env) (any, error) {
		timeout := 30 * time.Second
		if impl.Timeout != "" {
			if d, err := time.ParseDuration(impl.Timeout); err == nil {
				timeout = d
			}
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		command, err := interpolateTemplate(impl.Command, args)
		if err != nil {
			return nil, fmt.Errorf("interpolate command: %w", err)
		}
		cmdParts := parseCommand(command)
		if len(cmdParts) == 0 {
			return nil, errors.New("empty command")
		}

		cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if sandbox := t.Sandbox(); sandbox != "" {
			cmd.Dir = sandbox
			cmd.Env = sandboxEnv(sandbox)
		}

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return decodeOutput(impl.Output, strings.TrimRight(stdout.String(), "\n"))
	}
}

// File read executor. The path comes from impl.Path (a template) or the
// "path" argument.
func createFileReadExecutor(impl DynamicToolImpl) Func {
	return func(ctx context.Context, args map[string]any, env Env) (any, error) {
		path, err := toolPath(impl, args)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return decodeOutput(impl.Output, string(data))
	}
}

// File write executor
func createFileWriteExecutor(impl DynamicToolImpl) Func {
	return func(ctx context.Context, args map[string]any, env Env) (any, error) {
		path, err := toolPath(impl, args)
		if err != nil {
			return nil, err
		}
		content, isString := args["content"].(string)
		if !isString {
			return nil, fmt.Errorf("%w: content parameter required", ErrInvalidArgs)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, err
		}
		return ok(map[string]any{"path": path, "bytes": float64(len(content))}), nil
	}
}

func toolPath(impl DynamicToolImpl, args map[string]any) (string, error) {
	if impl.Path != "" {
		return interpolateTemplate(impl.Path, args)
	}
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("%w: path parameter required", ErrInvalidArgs)
	}
	return path, nil
}

// decodeOutput returns out as a string, or decoded JSON when format is
// "json".
func decodeOutput(format, out string) (any, error) {
	if format != "json" {
		return out, nil
	}
	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return nil, fmt.Errorf("decode json output: %w", err)
	}
	return v, nil
}

// interpolateTemplate replaces {{.field}} placeholders with values from args.
func interpolateTemplate(tmplStr string, args map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, args); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseCommand splits a command string into parts, respecting quotes.
func parseCommand(cmd string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range cmd {
		switch {
		case r == '"' || r == '\'':
			if !inQuote {
				inQuote = true
				quoteChar = r
			} else if r == quoteChar {
				inQuote = false
				quoteChar = 0
			} else {
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// normalizeYAML converts YAML-decoded values to script values: integers
// become float64 and maps become map[string]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeYAML(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeYAML(e)
		}
		return out
	}
	return v
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
